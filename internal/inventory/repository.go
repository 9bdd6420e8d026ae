package inventory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

var (
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInsufficientReserved = errors.New("insufficient reserved stock to release")
)

// Stock is the product stock ledger. GetStock returns nil, nil for an unknown
// product.
type Stock interface {
	ListAll(ctx context.Context) ([]domain.StockLevel, error)
	GetStock(ctx context.Context, productID string) (*domain.StockLevel, error)
	Reserve(ctx context.Context, productID string, quantity int) error
	Release(ctx context.Context, productID string, quantity int) error
}

type InventoryRepository struct {
	db *sql.DB
}

var _ Stock = (*InventoryRepository)(nil)

func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) ListAll(ctx context.Context) ([]domain.StockLevel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, vendor_id, available, reserved
		FROM products
		ORDER BY vendor_id, product_id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	levels := []domain.StockLevel{}
	for rows.Next() {
		var stock domain.StockLevel
		if err := rows.Scan(&stock.ProductID, &stock.VendorID, &stock.Available, &stock.Reserved); err != nil {
			return nil, err
		}
		levels = append(levels, stock)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return levels, nil
}

func (r *InventoryRepository) GetStock(ctx context.Context, productID string) (*domain.StockLevel, error) {
	stock := &domain.StockLevel{}

	err := r.db.QueryRowContext(ctx, `
		SELECT product_id, vendor_id, available, reserved
		FROM products
		WHERE product_id = $1
	`, productID).Scan(&stock.ProductID, &stock.VendorID, &stock.Available, &stock.Reserved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return stock, nil
}

// Reserve moves quantity from available to reserved in one statement, so
// concurrent checkouts cannot oversell.
func (r *InventoryRepository) Reserve(ctx context.Context, productID string, quantity int) error {
	return r.move(ctx, `
		UPDATE products
		SET available = available - $2, reserved = reserved + $2
		WHERE product_id = $1 AND available >= $2
	`, productID, quantity, ErrInsufficientStock)
}

func (r *InventoryRepository) Release(ctx context.Context, productID string, quantity int) error {
	return r.move(ctx, `
		UPDATE products
		SET available = available + $2, reserved = reserved - $2
		WHERE product_id = $1 AND reserved >= $2
	`, productID, quantity, ErrInsufficientReserved)
}

func (r *InventoryRepository) move(ctx context.Context, query, productID string, quantity int, shortage error) error {
	result, err := r.db.ExecContext(ctx, query, productID, quantity)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return shortage
	}
	return nil
}
