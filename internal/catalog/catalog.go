package catalog

import (
	"context"
	"errors"

	"github.com/fjod/go_commerce/internal/cart"
	"github.com/fjod/go_commerce/internal/money"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrVersionNotFound   = errors.New("price version not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// LiveVersion asks UnitPriceOf for the current price rather than a
// pinned historical one.
const LiveVersion int64 = 0

// Catalog is the price/stock collaborator the order pipeline consumes.
// Implementations must make Deduct a guarded check-and-deduct: the stock
// comparison and the write happen under one guard, so concurrent commits
// racing on the same product fail with ErrInsufficientStock instead of
// driving stock negative.
type Catalog interface {
	// UnitPriceOf returns the unit price of the product at the given
	// price version; LiveVersion resolves the current price.
	UnitPriceOf(ctx context.Context, productID, version int64) (money.Money, error)

	// PinVersion returns the current price version for the product, used
	// to freeze a price snapshot at commit time.
	PinVersion(ctx context.Context, productID int64) (int64, error)

	// CanPurchase reports whether qty of the product can be bought
	// right now (stock minus qty stays at or above zero).
	CanPurchase(ctx context.Context, productID int64, qty int) (bool, error)

	// Deduct removes qty from the product's stock, or fails with
	// ErrInsufficientStock without changing anything.
	Deduct(ctx context.Context, productID int64, qty int) error

	// Release returns qty to the product's stock. Used to compensate a
	// Deduct when a later commit step fails.
	Release(ctx context.Context, productID int64, qty int) error
}

// Purchasable is anything the catalog can sell: it knows its own price,
// can produce a cart line for itself, and can say whether it is already
// in a session's cart.
type Purchasable interface {
	UnitPrice() money.Money
	CreateLine(qty int) cart.Line
	InCart(ctx context.Context, store cart.Store, sessionID string) (bool, error)
}
