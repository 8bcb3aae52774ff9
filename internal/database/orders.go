package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/model"
)

// StatusPatch carries the text recorded alongside a transition. Empty fields
// leave the stored value alone.
type StatusPatch struct {
	RejectionReason    string
	CancellationReason string
	ConfirmationNote   string
}

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, order_number, user_id, status, items, total_amount, payment_method,
	customer_notes, customer, rejection_reason, cancellation_reason, confirmation_note, created_at`

func (r *OrderRepository) Insert(ctx context.Context, o model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	customer, err := json.Marshal(o.Customer)
	if err != nil {
		return fmt.Errorf("encode customer: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, user_id, status, items, total_amount, payment_method,
			customer_notes, customer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.OrderNumber, o.UserID, o.OrderStatus, items, o.TotalAmount, o.PaymentMethod,
		o.CustomerNotes, customer, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context) ([]model.Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *OrderRepository) Get(ctx context.Context, id string) (model.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, ErrNotFound
	}
	return o, err
}

// UpdateStatus moves the order from one status to another only if it is still
// in from; otherwise it reports ErrStatusChanged.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to model.Status, patch StatusPatch) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1,
			rejection_reason = COALESCE(NULLIF($2, ''), rejection_reason),
			cancellation_reason = COALESCE(NULLIF($3, ''), cancellation_reason),
			confirmation_note = COALESCE(NULLIF($4, ''), confirmation_note)
		WHERE id = $5 AND status = $6`,
		to, patch.RejectionReason, patch.CancellationReason, patch.ConfirmationNote, id, from,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *OrderRepository) query(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return orders, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (model.Order, error) {
	var (
		o        model.Order
		items    []byte
		customer []byte
	)
	err := s.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.OrderStatus, &items, &o.TotalAmount, &o.PaymentMethod,
		&o.CustomerNotes, &customer, &o.RejectionReason, &o.CancellationReason, &o.ConfirmationNote, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return o, err
		}
		return o, fmt.Errorf("scan order: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal(customer, &o.Customer); err != nil {
		return o, fmt.Errorf("decode customer: %w", err)
	}
	return o, nil
}
