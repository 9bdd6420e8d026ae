package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

// invalid_text_representation, raised when an id is not a valid uuid.
const pqInvalidText = "22P02"

const orderColumns = `
	id, customer_id, customer_email, items, shipping_info, delivery_type,
	subtotal, delivery_cost, total, status, created_at, estimated_delivery,
	processed_at, processed_by, updated_at, updated_by`

// OrderRepository stores orders in PostgreSQL. Line items and shipping info
// are kept as JSONB documents on the order row.
type OrderRepository struct {
	db *sql.DB
}

var _ Store = (*OrderRepository)(nil)

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o               domain.Order
		items, shipping []byte
		estimated       sql.NullTime
		processedAt     sql.NullTime
		updatedAt       sql.NullTime
		processedBy     sql.NullString
		updatedBy       sql.NullString
	)

	err := row.Scan(
		&o.ID, &o.CustomerID, &o.CustomerEmail, &items, &shipping, &o.DeliveryType,
		&o.Subtotal, &o.DeliveryCost, &o.Total, &o.Status, &o.CreatedAt, &estimated,
		&processedAt, &processedBy, &updatedAt, &updatedBy,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", o.ID, err)
	}
	if len(shipping) > 0 {
		if err := json.Unmarshal(shipping, &o.ShippingInfo); err != nil {
			return nil, fmt.Errorf("decode shipping info of order %s: %w", o.ID, err)
		}
	}

	o.EstimatedDelivery = nullTime(estimated)
	o.ProcessedAt = nullTime(processedAt)
	o.UpdatedAt = nullTime(updatedAt)
	o.ProcessedBy = processedBy.String
	o.UpdatedBy = updatedBy.String
	return &o, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isInvalidID reports whether err is postgres rejecting a malformed uuid,
// which callers treat the same as a missing row.
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqInvalidText
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.Items == nil {
		order.Items = []domain.LineItem{}
	}

	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	shipping, err := json.Marshal(order.ShippingInfo)
	if err != nil {
		return fmt.Errorf("encode shipping info: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		order.ID, order.CustomerID, order.CustomerEmail, items, shipping, order.DeliveryType,
		order.Subtotal, order.DeliveryCost, order.Total, order.Status, order.CreatedAt, order.EstimatedDelivery,
		order.ProcessedAt, nullString(order.ProcessedBy), order.UpdatedAt, nullString(order.UpdatedBy),
	)
	return err
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

// List scans every order, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) Update(ctx context.Context, id string, upd domain.OrderUpdate) (*domain.Order, error) {
	var processedBy, updatedBy sql.NullString
	if upd.ProcessedBy != nil {
		processedBy = sql.NullString{String: *upd.ProcessedBy, Valid: true}
	}
	if upd.UpdatedBy != nil {
		updatedBy = sql.NullString{String: *upd.UpdatedBy, Valid: true}
	}
	var status sql.NullString
	if upd.Status != nil {
		status = sql.NullString{String: string(*upd.Status), Valid: true}
	}

	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		UPDATE orders SET
			status       = COALESCE($2, status),
			processed_at = COALESCE($3, processed_at),
			processed_by = COALESCE($4, processed_by),
			updated_at   = COALESCE($5, updated_at),
			updated_by   = COALESCE($6, updated_by)
		WHERE id = $1
		RETURNING `+orderColumns,
		id, status, upd.ProcessedAt, processedBy, upd.UpdatedAt, updatedBy,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

// Mutate locks the row for the duration of fn so concurrent item updates on
// the same order are applied one after the other.
func (r *OrderRepository) Mutate(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	order, err := scanOrder(tx.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, nil
		}
		return nil, err
	}

	if err := fn(order); err != nil {
		return nil, err
	}

	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET
			items = $2, status = $3, processed_at = $4, processed_by = $5,
			updated_at = $6, updated_by = $7
		WHERE id = $1
	`, id, items, order.Status, order.ProcessedAt, nullString(order.ProcessedBy),
		order.UpdatedAt, nullString(order.UpdatedBy))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	order.ID = id
	return order, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		if isInvalidID(err) {
			return domain.ErrNotFound
		}
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
