package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/fjod/go_commerce/internal/cart"
	"github.com/fjod/go_commerce/internal/catalog"
	"github.com/fjod/go_commerce/internal/member"
	"github.com/fjod/go_commerce/internal/money"
	"github.com/fjod/go_commerce/internal/order"
	"github.com/fjod/go_commerce/internal/payment"
	"github.com/fjod/go_commerce/internal/pricing"
)

var (
	ErrEmailTaken     = errors.New("email belongs to an existing member")
	ErrCannotCancel   = errors.New("order can no longer be cancelled by the customer")
	ErrNothingToPay   = errors.New("order has nothing outstanding")
	ErrPaymentPending = errors.New("payment is still pending with the provider")
)

// OrderStore is the slice of order storage the checkout flow needs.
type OrderStore interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	AddPayment(ctx context.Context, orderID uuid.UUID, p order.Payment, newStatus order.Status) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status order.Status, note string) error
}

type PlaceOrderRequest struct {
	SessionID string
	Profile   member.Profile
	Shipping  order.ShippingDetails
	Method    string

	// MemberRef is the logged-in member placing the order, 0 for an
	// anonymous checkout.
	MemberRef int64
}

type PlaceOrderResult struct {
	Order    *order.Order
	Rejected []cart.Line

	// RedirectTo is set when the provider needs an out-of-band step;
	// the order stays Unpaid until ResumePayment is called.
	RedirectTo string
}

// Service drives a cart through commit and payment.
type Service struct {
	carts     cart.Store
	catalog   catalog.Catalog
	chain     pricing.Chain
	processor *order.Processor
	members   member.Registry
	store     OrderStore
	gateways  map[string]payment.Gateway
}

func NewService(
	carts cart.Store,
	cat catalog.Catalog,
	chain pricing.Chain,
	processor *order.Processor,
	members member.Registry,
	store OrderStore,
	gateways map[string]payment.Gateway,
) *Service {
	return &Service{
		carts:     carts,
		catalog:   cat,
		chain:     chain,
		processor: processor,
		members:   members,
		store:     store,
		gateways:  gateways,
	}
}

// Methods lists the configured payment method names.
func (s *Service) Methods() []string {
	methods := make([]string, 0, len(s.gateways))
	for name := range s.gateways {
		methods = append(methods, name)
	}
	sort.Strings(methods)
	return methods
}

// PlaceOrder commits the session's cart and charges the chosen payment
// method. The commit is durable the moment it succeeds: a declined or
// suspended payment leaves the committed order in place with its
// payment trail, never rolls it back.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	unique, err := s.members.IsUniqueIdentifier(ctx, req.Profile, req.MemberRef)
	if err != nil {
		return nil, fmt.Errorf("check member email: %w", err)
	}
	if !unique {
		return nil, ErrEmailTaken
	}

	draft := order.NewDraft(req.SessionID, s.carts, s.catalog, s.chain, req.Shipping)
	committed, err := s.processor.Commit(ctx, draft, req.Profile)
	if err != nil {
		return nil, err
	}
	result := &PlaceOrderResult{Order: committed.Order, Rejected: committed.Rejected}

	o := committed.Order
	total, err := o.Total(ctx)
	if err != nil {
		return result, fmt.Errorf("compute order total: %w", err)
	}
	if total.IsZero() {
		if err := s.store.UpdateStatus(ctx, o.ID, order.StatusPaid, "no payment required"); err != nil {
			return result, fmt.Errorf("mark zero-total order paid: %w", err)
		}
		o.Status = order.StatusPaid
		return result, nil
	}

	gateway, ok := s.gateways[req.Method]
	if !ok {
		return result, order.ErrInvalidPaymentMethod
	}

	unit, err := currency.ParseISO(o.Currency)
	if err != nil {
		return result, fmt.Errorf("parse order currency %q: %w", o.Currency, err)
	}
	charge, err := gateway.Charge(ctx, payment.Request{
		OrderID: o.ID,
		Amount:  money.New(total, unit),
		Method:  req.Method,
	})
	if err != nil {
		return result, fmt.Errorf("charge payment: %w", err)
	}

	if charge.Status == payment.StatusProcessing {
		result.RedirectTo = charge.Value
	}
	return result, s.settle(ctx, o, charge, total)
}

// ResumePayment completes a payment that was suspended for an
// out-of-band provider step, against the same order identity.
func (s *Service) ResumePayment(ctx context.Context, orderID uuid.UUID, charge payment.Result) (*order.Order, error) {
	o, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	outstanding, err := o.TotalOutstanding(ctx)
	if err != nil {
		return nil, err
	}
	if outstanding.IsZero() {
		return nil, ErrNothingToPay
	}
	if charge.Status == payment.StatusProcessing {
		return o, ErrPaymentPending
	}

	if err := s.settle(ctx, o, charge, outstanding); err != nil {
		return o, err
	}
	return o, nil
}

// settle records the outcome of one charge attempt. Processing is not
// an outcome yet: nothing is recorded until the provider answers.
func (s *Service) settle(ctx context.Context, o *order.Order, charge payment.Result, amount decimal.Decimal) error {
	switch charge.Status {
	case payment.StatusProcessing:
		return nil
	case payment.StatusSuccess:
		p := order.Payment{
			ID:         uuid.New(),
			Amount:     amount,
			Successful: true,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.store.AddPayment(ctx, o.ID, p, order.StatusPaid); err != nil {
			return fmt.Errorf("record successful payment: %w", err)
		}
		o.Payments = append(o.Payments, p)
		o.Status = order.StatusPaid
		return nil
	default:
		p := order.Payment{
			ID:        uuid.New(),
			Amount:    amount,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.AddPayment(ctx, o.ID, p, o.Status); err != nil {
			return fmt.Errorf("record failed payment: %w", err)
		}
		o.Payments = append(o.Payments, p)
		return order.ErrPaymentDeclined
	}
}

// Cancel moves the order to a cancelled status. Customers may cancel
// only while the order is unpaid; after that an admin has to do it.
func (s *Service) Cancel(ctx context.Context, orderID uuid.UUID, byAdmin bool) (*order.Order, error) {
	o, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	status := order.StatusCustomerCancelled
	note := "cancelled by customer"
	if byAdmin {
		status = order.StatusAdminCancelled
		note = "cancelled by admin"
	} else if !o.Status.CanCancel() {
		return nil, ErrCannotCancel
	}

	if err := s.store.UpdateStatus(ctx, orderID, status, note); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	o.Status = status
	return o, nil
}
