package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/fjod/go_commerce/internal/money"
)

// Status is the tri-state outcome of a charge attempt. Processing means
// the provider needs an out-of-band step (a redirect) before the charge
// settles; the order stays suspended until the result comes back.
type Status string

const (
	StatusSuccess    Status = "Success"
	StatusProcessing Status = "Processing"
	StatusFailure    Status = "Failure"
)

// Request is one charge attempt against a committed order.
type Request struct {
	OrderID uuid.UUID
	Amount  money.Money
	Method  string
}

// Result is the provider's answer. Value carries the redirect target
// when Status is Processing; Reference is the provider's transaction id.
type Result struct {
	Status    Status
	Value     string
	Reference string
}

// Gateway charges a payment with an external provider. A non-nil error
// means the provider could not be reached or answered garbage; a
// declined charge is a Result with StatusFailure, not an error.
type Gateway interface {
	Charge(ctx context.Context, req Request) (Result, error)
}
