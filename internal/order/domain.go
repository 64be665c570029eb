package order

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fjod/go_commerce/internal/cart"
	"github.com/fjod/go_commerce/internal/catalog"
	"github.com/fjod/go_commerce/internal/pricing"
)

type Status string

const (
	StatusUnpaid            Status = "Unpaid"
	StatusQuery             Status = "Query"
	StatusPaid              Status = "Paid"
	StatusProcessing        Status = "Processing"
	StatusSent              Status = "Sent"
	StatusComplete          Status = "Complete"
	StatusAdminCancelled    Status = "AdminCancelled"
	StatusCustomerCancelled Status = "CustomerCancelled"
)

// IsPaid reports whether the order has received full payment. Paid and
// every later fulfilment stage count.
func (s Status) IsPaid() bool {
	switch s {
	case StatusPaid, StatusProcessing, StatusSent, StatusComplete:
		return true
	}
	return false
}

func (s Status) IsProcessing() bool { return s == StatusProcessing }
func (s Status) IsSent() bool       { return s == StatusSent }
func (s Status) IsComplete() bool   { return s == StatusComplete }

// CanCancel reports whether the customer may still cancel: only while
// the order is unpaid. Paid orders require an admin.
func (s Status) CanCancel() bool { return !s.IsPaid() }

// Line is an order line with its price frozen at commit time.
// FrozenAmount is quantity times FrozenUnitAmount, computed once and
// never recomputed: catalog price changes after commit do not touch it.
type Line struct {
	ProductID        int64
	VersionSnapshot  int64
	Quantity         int
	FrozenUnitAmount decimal.Decimal
	FrozenAmount     decimal.Decimal
}

// Modifier is a pricing adjustment frozen at commit time.
type Modifier struct {
	Name         string
	Kind         pricing.Kind
	FrozenAmount decimal.Decimal
}

// Payment is one payment attempt against an order. Payments are
// append-only: a failed attempt stays on record next to later retries.
type Payment struct {
	ID         uuid.UUID
	Amount     decimal.Decimal
	Successful bool
	CreatedAt  time.Time
}

// StatusLog records one status transition with an operator note.
type StatusLog struct {
	Status Status
	Note   string
	At     time.Time
}

type ShippingDetails struct {
	Name    string
	Address string
	City    string
	Country string
}

// Order is the purchase aggregate. A draft order (ID == uuid.Nil) has
// no rows anywhere and computes its views live from the cart, catalog
// and modifier chain; once committed the frozen collections are
// authoritative and the live sources are dropped.
type Order struct {
	ID        uuid.UUID
	MemberRef int64
	Status    Status
	Currency  string
	Shipping  ShippingDetails
	Lines     []Line
	Modifiers []Modifier
	Payments  []Payment
	Logs      []StatusLog
	CreatedAt time.Time

	sessionID  string
	carts      cart.Store
	catalog    catalog.Catalog
	chain      pricing.Chain
	committing atomic.Bool
}

// NewDraft builds an uncommitted order over a live cart session.
func NewDraft(sessionID string, carts cart.Store, cat catalog.Catalog, chain pricing.Chain, shipping ShippingDetails) *Order {
	return &Order{
		Shipping:  shipping,
		sessionID: sessionID,
		carts:     carts,
		catalog:   cat,
		chain:     chain,
	}
}

func (o *Order) Committed() bool { return o.ID != uuid.Nil }

func (o *Order) SessionID() string { return o.sessionID }

// CurrentLines returns the frozen lines for a committed order, or the
// live cart lines priced at the current catalog price for a draft.
func (o *Order) CurrentLines(ctx context.Context) ([]Line, error) {
	if o.Committed() {
		return o.Lines, nil
	}

	cartLines, err := o.carts.Lines(ctx, o.sessionID)
	if err != nil {
		return nil, fmt.Errorf("read cart lines: %w", err)
	}

	lines := make([]Line, 0, len(cartLines))
	for _, cl := range cartLines {
		price, err := o.catalog.UnitPriceOf(ctx, cl.ProductID, catalog.LiveVersion)
		if err != nil {
			return nil, fmt.Errorf("price product %d: %w", cl.ProductID, err)
		}
		lines = append(lines, Line{
			ProductID:        cl.ProductID,
			VersionSnapshot:  catalog.LiveVersion,
			Quantity:         cl.Quantity,
			FrozenUnitAmount: price.Amount,
			FrozenAmount:     price.Mul(cl.Quantity).Amount,
		})
	}
	return lines, nil
}

// Subtotal sums the line amounts before modifiers.
func (o *Order) Subtotal(ctx context.Context) (decimal.Decimal, error) {
	lines, err := o.CurrentLines(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.FrozenAmount)
	}
	return sum, nil
}

// ModifierAmounts returns the frozen modifiers for a committed order,
// or a fresh evaluation of the live chain for a draft.
func (o *Order) ModifierAmounts(ctx context.Context) ([]Modifier, error) {
	if o.Committed() {
		return o.Modifiers, nil
	}

	subtotal, err := o.Subtotal(ctx)
	if err != nil {
		return nil, err
	}
	frozen := o.chain.Freeze(pricing.Context{Subtotal: subtotal, Country: o.Shipping.Country})
	modifiers := make([]Modifier, 0, len(frozen))
	for _, f := range frozen {
		modifiers = append(modifiers, Modifier{Name: f.Name, Kind: f.Kind, FrozenAmount: f.Amount})
	}
	return modifiers, nil
}

// Total folds the modifiers over the subtotal. Committed orders fold
// their frozen amounts unconditionally; the live chain is never re-run
// for them.
func (o *Order) Total(ctx context.Context) (decimal.Decimal, error) {
	subtotal, err := o.Subtotal(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	modifiers, err := o.ModifierAmounts(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	running := subtotal
	for _, m := range modifiers {
		running = pricing.Frozen{Kind: m.Kind, Amount: m.FrozenAmount}.Apply(running)
	}
	return running, nil
}

// TotalOutstanding is the total minus every successful payment.
func (o *Order) TotalOutstanding(ctx context.Context) (decimal.Decimal, error) {
	total, err := o.Total(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	for _, p := range o.Payments {
		if p.Successful {
			total = total.Sub(p.Amount)
		}
	}
	return total, nil
}
