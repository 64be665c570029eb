package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/fjod/go_commerce/internal/order"
)

var ErrDuplicateOrder = errors.New("order already exists")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// Receipt is one unpublished receipt outbox row. Payload is the json
// event written in the AddPayment transaction.
type Receipt struct {
	ID      int64
	OrderID uuid.UUID
	Payload []byte
}

type OrderRepository interface {
	// CreateOrder persists the order row with its lines, modifiers and
	// initial status log in one transaction.
	CreateOrder(ctx context.Context, o *order.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	ListOrdersByMember(ctx context.Context, memberRef int64) ([]*order.Order, error)

	// AddPayment appends a payment attempt, moves the order to
	// newStatus and, for a successful payment, enqueues a receipt
	// outbox row, all in one transaction.
	AddPayment(ctx context.Context, orderID uuid.UUID, p order.Payment, newStatus order.Status) error

	// UpdateStatus moves the order to status and records a status log
	// entry with the note.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status order.Status, note string) error

	UnpublishedReceipts(ctx context.Context, limit int) ([]*Receipt, error)
	MarkReceiptPublished(ctx context.Context, id int64) error

	RunMigrations(cred *Credentials) error
	Close() error
}
