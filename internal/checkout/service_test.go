package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_commerce/internal/cart"
	"github.com/fjod/go_commerce/internal/catalog"
	"github.com/fjod/go_commerce/internal/member"
	"github.com/fjod/go_commerce/internal/money"
	"github.com/fjod/go_commerce/internal/order"
	"github.com/fjod/go_commerce/internal/payment"
	"github.com/fjod/go_commerce/internal/pricing"
)

// memoryStore keeps committed orders in a map so the checkout flow can
// be exercised without postgres.
type memoryStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*order.Order
}

func newMemoryStore() *memoryStore {
	return &memoryStore{orders: make(map[uuid.UUID]*order.Order)}
}

func (m *memoryStore) CreateOrder(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *memoryStore) GetOrderByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func (m *memoryStore) AddPayment(_ context.Context, orderID uuid.UUID, p order.Payment, newStatus order.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = newStatus
	return nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, orderID uuid.UUID, status order.Status, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

type fixture struct {
	carts   *cart.MemoryStore
	catalog *catalog.MemoryCatalog
	members *member.MemoryRegistry
	store   *memoryStore
	chain   pricing.Chain
}

func newFixture() *fixture {
	cat := catalog.NewMemoryCatalog()
	cat.AddProduct(catalog.Product{ID: 1, Title: "T-Shirt"})
	cat.AddVariation(catalog.Variation{ID: 1, ProductID: 1, Title: "T-Shirt / M"}, money.MustParse("20", "NZD"), 10)

	tax := pricing.NewTaxModifier().SetCountry("NZ", decimal.RequireFromString("0.10"), "GST", false)
	shipping := pricing.NewShippingModifier(decimal.RequireFromString("15"))

	return &fixture{
		carts:   cart.NewMemoryStore(),
		catalog: cat,
		members: member.NewMemoryRegistry(),
		store:   newMemoryStore(),
		chain:   pricing.NewChain(tax, shipping),
	}
}

func (f *fixture) service(gateways map[string]payment.Gateway) *Service {
	processor := order.NewProcessor(f.carts, f.catalog, f.members, f.store, f.chain)
	return NewService(f.carts, f.catalog, f.chain, processor, f.members, f.store, gateways)
}

func (f *fixture) request(sessionID string) PlaceOrderRequest {
	return PlaceOrderRequest{
		SessionID: sessionID,
		Profile:   member.Profile{FirstName: "Ada", Email: "ada@example.com", Country: "NZ"},
		Shipping:  order.ShippingDetails{Name: "Ada Lovelace", Country: "NZ"},
		Method:    "card",
	}
}

func TestMethods_SortedNames(t *testing.T) {
	f := newFixture()
	svc := f.service(map[string]payment.Gateway{
		"redirect": payment.StaticGateway{Result: payment.StatusProcessing},
		"card":     payment.StaticGateway{Result: payment.StatusSuccess},
	})
	assert.Equal(t, []string{"card", "redirect"}, svc.Methods())
}

func TestPlaceOrder_SuccessfulPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.carts.AddLine(ctx, "s1", cart.Line{ProductID: 1, Quantity: 1}))

	svc := f.service(map[string]payment.Gateway{
		"card": payment.StaticGateway{Result: payment.StatusSuccess},
	})

	result, err := svc.PlaceOrder(ctx, f.request("s1"))
	require.NoError(t, err)
	assert.True(t, result.Order.Committed())
	assert.Equal(t, order.StatusPaid, result.Order.Status)
	assert.Empty(t, result.RedirectTo)

	require.Len(t, result.Order.Payments, 1)
	// 20 + 2 tax + 15 shipping
	assert.True(t, decimal.RequireFromString("37").Equal(result.Order.Payments[0].Amount))
}

func TestPlaceOrder_EmailTaken(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.members.ResolveOrCreate(ctx, member.Profile{Email: "ada@example.com"})
	require.NoError(t, err)
	require.NoError(t, f.carts.AddLine(ctx, "s1", cart.Line{ProductID: 1, Quantity: 1}))

	svc := f.service(map[string]payment.Gateway{
		"card": payment.StaticGateway{Result: payment.StatusSuccess},
	})

	// Anonymous checkout with a registered email is refused before any
	// commit work happens.
	_, err = svc.PlaceOrder(ctx, f.request("s1"))
	assert.ErrorIs(t, err, ErrEmailTaken)
	lines, err := f.carts.Lines(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	// The member themselves may check out with their own email.
	ref, err := f.members.ResolveOrCreate(ctx, member.Profile{Email: "ada@example.com"})
	require.NoError(t, err)
	req := f.request("s1")
	req.MemberRef = ref
	result, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, ref, result.Order.MemberRef)
}

func TestPlaceOrder_UnknownMethodKeepsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.carts.AddLine(ctx, "s1", cart.Line{ProductID: 1, Quantity: 1}))

	svc := f.service(map[string]payment.Gateway{})

	result, err := svc.PlaceOrder(ctx, f.request("s1"))
	assert.ErrorIs(t, err, order.ErrInvalidPaymentMethod)

	// The commit already happened; the order survives with no payment.
	require.NotNil(t, result)
	assert.True(t, result.Order.Committed())
	assert.Equal(t, order.StatusUnpaid, result.Order.Status)
	assert.Empty(t, result.Order.Payments)
}

func TestPlaceOrder_DeclinedPaymentKeepsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.carts.AddLine(ctx, "s1", cart.Line{ProductID: 1, Quantity: 1}))

	svc := f.service(map[string]payment.Gateway{
		"card": payment.StaticGateway{Result: payment.StatusFailure},
	})

	result, err := svc.PlaceOrder(ctx, f.request("s1"))
	assert.ErrorIs(t, err, order.ErrPaymentDeclined)
	assert.Equal(t, order.KindPayment, order.Kind(err))

	require.NotNil(t, result)
	assert.True(t, result.Order.Committed())
	assert.Equal(t, order.StatusUnpaid, result.Order.Status)
	require.Len(t, result.Order.Payments, 1)
	assert.False(t, result.Order.Payments[0].Successful)
}

func TestPlaceOrder_ProcessingSuspendsForRedirect(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.carts.AddLine(ctx, "s1", cart.Line{ProductID: 1, Quantity: 1}))

	svc := f.service(map[string]payment.Gateway{
		"card": payment.StaticGateway{Result: payment.StatusProcessing, Target: "https://pay.example.com"},
	})

	result, err := svc.PlaceOrder(ctx, f.request("s1"))
	require.NoError(t, err)
	assert.Contains(t, result.RedirectTo, result.Order.ID.String())
	assert.Equal(t, order.StatusUnpaid, result.Order.Status)
	assert.Empty(t, result.Order.Payments)

	// The provider answers out of band; the same order settles.
	resumed, err := svc.ResumePayment(ctx, result.Order.ID, payment.Result{Status: payment.StatusSuccess, Reference: "TXN-1"})
	require.NoError(t, err)
	assert.Equal(t, result.Order.ID, resumed.ID)
	assert.Equal(t, order.StatusPaid, resumed.Status)
	require.Len(t, resumed.Payments, 1)
	assert.True(t, resumed.Payments[0].Successful)
}

func TestResumePayment_Edges(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.carts.AddLine(ctx, "s1", cart.Line{ProductID: 1, Quantity: 1}))

	svc := f.service(map[string]payment.Gateway{
		"card": payment.StaticGateway{Result: payment.StatusProcessing, Target: "https://pay.example.com"},
	})

	result, err := svc.PlaceOrder(ctx, f.request("s1"))
	require.NoError(t, err)
	orderID := result.Order.ID

	_, err = svc.ResumePayment(ctx, uuid.New(), payment.Result{Status: payment.StatusSuccess})
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	_, err = svc.ResumePayment(ctx, orderID, payment.Result{Status: payment.StatusProcessing})
	assert.ErrorIs(t, err, ErrPaymentPending)

	_, err = svc.ResumePayment(ctx, orderID, payment.Result{Status: payment.StatusFailure})
	assert.ErrorIs(t, err, order.ErrPaymentDeclined)

	_, err = svc.ResumePayment(ctx, orderID, payment.Result{Status: payment.StatusSuccess})
	require.NoError(t, err)

	// Fully paid: nothing left to resume.
	_, err = svc.ResumePayment(ctx, orderID, payment.Result{Status: payment.StatusSuccess})
	assert.ErrorIs(t, err, ErrNothingToPay)
}

func TestCancel_CustomerOnlyWhileUnpaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.carts.AddLine(ctx, "s1", cart.Line{ProductID: 1, Quantity: 1}))

	svc := f.service(map[string]payment.Gateway{
		"card": payment.StaticGateway{Result: payment.StatusSuccess},
	})

	result, err := svc.PlaceOrder(ctx, f.request("s1"))
	require.NoError(t, err)
	orderID := result.Order.ID

	// Paid order: the customer is refused, an admin is not.
	_, err = svc.Cancel(ctx, orderID, false)
	assert.ErrorIs(t, err, ErrCannotCancel)

	cancelled, err := svc.Cancel(ctx, orderID, true)
	require.NoError(t, err)
	assert.Equal(t, order.StatusAdminCancelled, cancelled.Status)
}

func TestCancel_UnpaidOrderByCustomer(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.carts.AddLine(ctx, "s1", cart.Line{ProductID: 1, Quantity: 1}))

	svc := f.service(map[string]payment.Gateway{
		"card": payment.StaticGateway{Result: payment.StatusFailure},
	})

	result, err := svc.PlaceOrder(ctx, f.request("s1"))
	assert.ErrorIs(t, err, order.ErrPaymentDeclined)

	cancelled, err := svc.Cancel(ctx, result.Order.ID, false)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCustomerCancelled, cancelled.Status)
}
