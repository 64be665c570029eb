package order

import (
	"errors"
	"fmt"

	"github.com/fjod/go_commerce/internal/catalog"
	"github.com/fjod/go_commerce/internal/member"
)

var (
	ErrEmptyOrder           = errors.New("order has no items")
	ErrNoPurchasableItems   = errors.New("order has no purchasable items")
	ErrAlreadyProcessed     = errors.New("order already processed")
	ErrMemberNotFound       = errors.New("order member not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
	ErrPaymentDeclined      = errors.New("payment declined")
)

// PersistenceError wraps a storage failure so callers can distinguish
// infrastructure trouble from domain rejections.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrorKind buckets commit errors for callers that map them onto a
// response surface.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindPayment
	KindPersistence
)

// Kind classifies an error from the order pipeline.
func Kind(err error) ErrorKind {
	var pe *PersistenceError
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &pe):
		return KindPersistence
	case errors.Is(err, ErrEmptyOrder),
		errors.Is(err, ErrNoPurchasableItems),
		errors.Is(err, ErrInvalidPaymentMethod),
		errors.Is(err, member.ErrEmptyEmail),
		errors.Is(err, member.ErrEmailInUse):
		return KindValidation
	case errors.Is(err, ErrAlreadyProcessed),
		errors.Is(err, catalog.ErrInsufficientStock):
		return KindConflict
	case errors.Is(err, ErrMemberNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, member.ErrNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrVersionNotFound):
		return KindNotFound
	case errors.Is(err, ErrPaymentDeclined):
		return KindPayment
	}
	return KindUnknown
}
