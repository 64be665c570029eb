package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fjod/go_commerce/internal/order"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(cred *Credentials) (*PostgresRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *PostgresRepository) CreateOrder(ctx context.Context, o *order.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `INSERT INTO orders (id, member_ref, status, currency,
	              shipping_name, shipping_address, shipping_city, shipping_country,
	              created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	_, insertErr := tx.ExecContext(ctx, query,
		o.ID,
		o.MemberRef,
		o.Status,
		o.Currency,
		o.Shipping.Name,
		o.Shipping.Address,
		o.Shipping.City,
		o.Shipping.Country,
		o.CreatedAt)
	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	for _, l := range o.Lines {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_lines (order_id, product_id, version_snapshot, quantity, frozen_unit_amount, frozen_amount)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, l.ProductID, l.VersionSnapshot, l.Quantity, l.FrozenUnitAmount, l.FrozenAmount)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	for i, m := range o.Modifiers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_modifiers (order_id, position, name, kind, frozen_amount)
			 VALUES ($1, $2, $3, $4, $5)`,
			o.ID, i, m.Name, m.Kind, m.FrozenAmount)
		if err != nil {
			return fmt.Errorf("insert order modifier: %w", err)
		}
	}

	for _, entry := range o.Logs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_status_log (order_id, status, note, created_at)
			 VALUES ($1, $2, $3, $4)`,
			o.ID, entry.Status, entry.Note, entry.At)
		if err != nil {
			return fmt.Errorf("insert status log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	query := `SELECT id, member_ref, status, currency,
	              shipping_name, shipping_address, shipping_city, shipping_country, created_at
	          FROM orders WHERE id = $1`

	var o order.Order
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&o.ID,
		&o.MemberRef,
		&o.Status,
		&o.Currency,
		&o.Shipping.Name,
		&o.Shipping.Address,
		&o.Shipping.City,
		&o.Shipping.Country,
		&o.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	if err := r.loadCollections(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PostgresRepository) ListOrdersByMember(ctx context.Context, memberRef int64) ([]*order.Order, error) {
	query := `SELECT id, member_ref, status, currency,
	              shipping_name, shipping_address, shipping_city, shipping_country, created_at
	          FROM orders WHERE member_ref = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, memberRef)
	if err != nil {
		return nil, fmt.Errorf("query orders by member: %w", err)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(
			&o.ID,
			&o.MemberRef,
			&o.Status,
			&o.Currency,
			&o.Shipping.Name,
			&o.Shipping.Address,
			&o.Shipping.City,
			&o.Shipping.Country,
			&o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for _, o := range orders {
		if err := r.loadCollections(ctx, o); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *PostgresRepository) loadCollections(ctx context.Context, o *order.Order) error {
	lineRows, err := r.db.QueryContext(ctx,
		`SELECT product_id, version_snapshot, quantity, frozen_unit_amount, frozen_amount
		 FROM order_lines WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return fmt.Errorf("query order lines: %w", err)
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var l order.Line
		if err := lineRows.Scan(&l.ProductID, &l.VersionSnapshot, &l.Quantity, &l.FrozenUnitAmount, &l.FrozenAmount); err != nil {
			return fmt.Errorf("scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := lineRows.Err(); err != nil {
		return fmt.Errorf("line iteration error: %w", err)
	}

	modRows, err := r.db.QueryContext(ctx,
		`SELECT name, kind, frozen_amount FROM order_modifiers WHERE order_id = $1 ORDER BY position`, o.ID)
	if err != nil {
		return fmt.Errorf("query order modifiers: %w", err)
	}
	defer modRows.Close()
	for modRows.Next() {
		var m order.Modifier
		if err := modRows.Scan(&m.Name, &m.Kind, &m.FrozenAmount); err != nil {
			return fmt.Errorf("scan order modifier: %w", err)
		}
		o.Modifiers = append(o.Modifiers, m)
	}
	if err := modRows.Err(); err != nil {
		return fmt.Errorf("modifier iteration error: %w", err)
	}

	payRows, err := r.db.QueryContext(ctx,
		`SELECT id, amount, successful, created_at FROM order_payments WHERE order_id = $1 ORDER BY created_at`, o.ID)
	if err != nil {
		return fmt.Errorf("query order payments: %w", err)
	}
	defer payRows.Close()
	for payRows.Next() {
		var p order.Payment
		if err := payRows.Scan(&p.ID, &p.Amount, &p.Successful, &p.CreatedAt); err != nil {
			return fmt.Errorf("scan order payment: %w", err)
		}
		o.Payments = append(o.Payments, p)
	}
	if err := payRows.Err(); err != nil {
		return fmt.Errorf("payment iteration error: %w", err)
	}

	logRows, err := r.db.QueryContext(ctx,
		`SELECT status, note, created_at FROM order_status_log WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return fmt.Errorf("query status log: %w", err)
	}
	defer logRows.Close()
	for logRows.Next() {
		var entry order.StatusLog
		if err := logRows.Scan(&entry.Status, &entry.Note, &entry.At); err != nil {
			return fmt.Errorf("scan status log: %w", err)
		}
		o.Logs = append(o.Logs, entry)
	}
	if err := logRows.Err(); err != nil {
		return fmt.Errorf("status log iteration error: %w", err)
	}

	return nil
}

type receiptEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	MemberRef int64     `json:"member_ref"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	PaidAt    time.Time `json:"paid_at"`
}

func (r *PostgresRepository) AddPayment(ctx context.Context, orderID uuid.UUID, p order.Payment, newStatus order.Status) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var memberRef int64
	var currency string
	err = tx.QueryRowContext(ctx,
		`SELECT member_ref, currency FROM orders WHERE id = $1 FOR UPDATE`, orderID).
		Scan(&memberRef, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return order.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("lock order row: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_payments (id, order_id, amount, successful, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ID, orderID, p.Amount, p.Successful, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, orderID, newStatus)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	note := "payment declined"
	if p.Successful {
		note = "payment received"
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_status_log (order_id, status, note, created_at)
		 VALUES ($1, $2, $3, $4)`,
		orderID, newStatus, note, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert status log: %w", err)
	}

	if p.Successful {
		payload, err := json.Marshal(receiptEvent{
			OrderID:   orderID,
			MemberRef: memberRef,
			Amount:    p.Amount.String(),
			Currency:  currency,
			PaidAt:    p.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("marshal receipt payload: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO receipt_outbox (order_id, payload) VALUES ($1, $2)`, orderID, payload)
		if err != nil {
			return fmt.Errorf("insert receipt outbox row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status order.Status, note string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, orderID, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return order.ErrOrderNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_status_log (order_id, status, note, created_at)
		 VALUES ($1, $2, $3, NOW())`, orderID, status, note)
	if err != nil {
		return fmt.Errorf("insert status log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UnpublishedReceipts(ctx context.Context, limit int) ([]*Receipt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, payload FROM receipt_outbox
		 WHERE NOT published ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*Receipt
	for rows.Next() {
		var rec Receipt
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.Payload); err != nil {
			return nil, fmt.Errorf("scan receipt row: %w", err)
		}
		receipts = append(receipts, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("receipt iteration error: %w", err)
	}
	return receipts, nil
}

func (r *PostgresRepository) MarkReceiptPublished(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE receipt_outbox SET published = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark receipt published: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
