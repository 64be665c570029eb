package cart

import (
	"context"
	"errors"
)

var (
	ErrLineNotFound = errors.New("line not found in cart")
	ErrBadQuantity  = errors.New("line quantity must be at least 1")
)

// Store holds the ephemeral cart lines for each session. Every operation
// is scoped by an explicit session ID; there is no process-wide cart.
// A missing line is reported with ErrLineNotFound and is not a failure.
type Store interface {
	// Lines returns all lines for the session, in insertion order.
	Lines(ctx context.Context, sessionID string) ([]Line, error)

	// GetLine returns the line for the given product, or ErrLineNotFound.
	GetLine(ctx context.Context, sessionID string, productID int64) (Line, error)

	// AddLine inserts or replaces the line for line.ProductID. Quantities
	// are never merged; callers wanting to add to an existing line use
	// IncrementQuantity.
	AddLine(ctx context.Context, sessionID string, line Line) error

	// IncrementQuantity adds delta to an existing line's quantity.
	// Returns ErrLineNotFound when the line is absent.
	IncrementQuantity(ctx context.Context, sessionID string, productID int64, delta int) error

	// DecrementQuantity subtracts delta from an existing line's quantity.
	// If the result would drop below 1 the line is removed entirely;
	// a held line never has a zero or negative quantity.
	DecrementQuantity(ctx context.Context, sessionID string, productID int64, delta int) error

	// RemoveLine deletes the line for the given product, if present.
	RemoveLine(ctx context.Context, sessionID string, productID int64) error

	// Clear empties the session cart completely.
	Clear(ctx context.Context, sessionID string) error
}
