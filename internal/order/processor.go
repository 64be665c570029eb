package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fjod/go_commerce/internal/cart"
	"github.com/fjod/go_commerce/internal/catalog"
	"github.com/fjod/go_commerce/internal/member"
	"github.com/fjod/go_commerce/internal/pricing"
)

// Repository is the slice of order storage the processor needs.
// CreateOrder must persist the order row, its lines and its modifiers
// in one transaction or not at all.
type Repository interface {
	CreateOrder(ctx context.Context, o *Order) error
}

// CommitResult is the outcome of a successful commit. Rejected holds
// the cart lines that could not be purchased; they stay in the cart.
type CommitResult struct {
	Order    *Order
	Rejected []cart.Line
}

// Processor turns a draft order into a committed one.
type Processor struct {
	carts   cart.Store
	catalog catalog.Catalog
	members member.Registry
	repo    Repository
	chain   pricing.Chain
}

func NewProcessor(carts cart.Store, cat catalog.Catalog, members member.Registry, repo Repository, chain pricing.Chain) *Processor {
	return &Processor{
		carts:   carts,
		catalog: cat,
		members: members,
		repo:    repo,
		chain:   chain,
	}
}

type deducted struct {
	productID int64
	qty       int
}

// Commit freezes and persists a draft order. Lines that fail the
// purchase check or lose the stock race are rejected and stay in the
// cart; the rest are priced at the pinned catalog version, stock is
// deducted, the modifier chain is evaluated once, and everything is
// written in a single repository transaction. On persistence failure
// all deducted stock is released and the order remains a draft.
func (p *Processor) Commit(ctx context.Context, o *Order, profile member.Profile) (*CommitResult, error) {
	if o.Committed() {
		return nil, ErrAlreadyProcessed
	}
	if !o.committing.CompareAndSwap(false, true) {
		return nil, ErrAlreadyProcessed
	}
	defer func() {
		if !o.Committed() {
			o.committing.Store(false)
		}
	}()

	cartLines, err := p.carts.Lines(ctx, o.sessionID)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if len(cartLines) == 0 {
		return nil, ErrEmptyOrder
	}

	var purchasable, rejected []cart.Line
	for _, cl := range cartLines {
		ok, err := p.catalog.CanPurchase(ctx, cl.ProductID, cl.Quantity)
		if err != nil && !errors.Is(err, catalog.ErrProductNotFound) {
			return nil, fmt.Errorf("purchase check for product %d: %w", cl.ProductID, err)
		}
		if err != nil || !ok {
			rejected = append(rejected, cl)
			continue
		}
		purchasable = append(purchasable, cl)
	}
	if len(purchasable) == 0 {
		return nil, ErrNoPurchasableItems
	}

	memberRef, err := p.members.ResolveOrCreate(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("resolve member: %w", err)
	}

	// Freeze prices and deduct stock. A line that loses the stock race
	// is demoted to rejected, not retried.
	var (
		frozenLines []Line
		reserved    []deducted
		currency    string
	)
	release := func() {
		for _, r := range reserved {
			if err := p.catalog.Release(ctx, r.productID, r.qty); err != nil {
				log.Printf("release %d units of product %d: %v", r.qty, r.productID, err)
			}
		}
	}

	for _, cl := range purchasable {
		version, err := p.catalog.PinVersion(ctx, cl.ProductID)
		if err != nil {
			rejected = append(rejected, cl)
			continue
		}
		price, err := p.catalog.UnitPriceOf(ctx, cl.ProductID, version)
		if err != nil {
			rejected = append(rejected, cl)
			continue
		}
		if err := p.catalog.Deduct(ctx, cl.ProductID, cl.Quantity); err != nil {
			if errors.Is(err, catalog.ErrInsufficientStock) {
				rejected = append(rejected, cl)
				continue
			}
			release()
			return nil, fmt.Errorf("deduct stock for product %d: %w", cl.ProductID, err)
		}
		reserved = append(reserved, deducted{productID: cl.ProductID, qty: cl.Quantity})
		currency = price.Currency.String()
		frozenLines = append(frozenLines, Line{
			ProductID:        cl.ProductID,
			VersionSnapshot:  version,
			Quantity:         cl.Quantity,
			FrozenUnitAmount: price.Amount,
			FrozenAmount:     price.Mul(cl.Quantity).Amount,
		})
	}
	if len(frozenLines) == 0 {
		return nil, ErrNoPurchasableItems
	}

	subtotal := decimal.Zero
	for _, l := range frozenLines {
		subtotal = subtotal.Add(l.FrozenAmount)
	}
	frozenModifiers := p.chain.Freeze(pricing.Context{Subtotal: subtotal, Country: o.Shipping.Country})
	modifiers := make([]Modifier, 0, len(frozenModifiers))
	for _, f := range frozenModifiers {
		modifiers = append(modifiers, Modifier{Name: f.Name, Kind: f.Kind, FrozenAmount: f.Amount})
	}

	now := time.Now().UTC()
	o.ID = uuid.New()
	o.MemberRef = memberRef
	o.Status = StatusUnpaid
	o.Currency = currency
	o.Lines = frozenLines
	o.Modifiers = modifiers
	o.Logs = []StatusLog{{Status: StatusUnpaid, Note: "order placed", At: now}}
	o.CreatedAt = now

	if err := p.repo.CreateOrder(ctx, o); err != nil {
		release()
		o.ID = uuid.Nil
		o.MemberRef = 0
		o.Status = ""
		o.Currency = ""
		o.Lines = nil
		o.Modifiers = nil
		o.Logs = nil
		o.CreatedAt = time.Time{}
		return nil, &PersistenceError{Op: "create order", Err: err}
	}

	// The order is durable from here on. Cart cleanup is best effort:
	// rejected lines stay addressable, committed ones leave the cart.
	for _, l := range frozenLines {
		if err := p.carts.RemoveLine(ctx, o.sessionID, l.ProductID); err != nil {
			log.Printf("remove committed line %d from cart %s: %v", l.ProductID, o.sessionID, err)
		}
	}

	o.carts = nil
	o.catalog = nil
	o.chain = pricing.Chain{}

	return &CommitResult{Order: o, Rejected: rejected}, nil
}
