package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecommerce-api/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrSkuNotFound  = domain.NotFound("sku")
	ErrSkuCodeTaken = domain.Conflict("sku code already exists")
	// ErrStockTooLow is returned when a guarded decrement would take quantity below zero
	ErrStockTooLow = domain.ErrInsufficientStock
)

// SkuRepository defines the interface for SKU and stock data access
type SkuRepository interface {
	Create(ctx context.Context, sku *domain.ProductSku) error
	Update(ctx context.Context, sku *domain.ProductSku) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductSku, error)
	// FindByIDForUpdate row-locks the SKU until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ProductSku, error)
	AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) error
	SetQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.ProductSku, error)
	ListLowStock(ctx context.Context) ([]domain.ProductSku, error)
	ListOutOfStock(ctx context.Context) ([]domain.ProductSku, error)
	LinkAttributes(ctx context.Context, skuID uuid.UUID, attributeIDs []uuid.UUID) error
	MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error
}

type skuRepository struct {
	db DBTX
}

// NewSkuRepository creates a new instance of SkuRepository
func NewSkuRepository(db DBTX) SkuRepository {
	return &skuRepository{db: db}
}

const skuColumns = `id, product_id, sku_code, price, compare_at_price, cost_price, quantity, low_stock_threshold,
	weight, active, lifecycle, deleted_at, created_at, updated_at`

func scanSku(row rowScanner) (*domain.ProductSku, error) {
	sku := &domain.ProductSku{}
	err := row.Scan(
		&sku.ID,
		&sku.ProductID,
		&sku.SkuCode,
		&sku.Price,
		&sku.CompareAtPrice,
		&sku.CostPrice,
		&sku.Quantity,
		&sku.LowStockThreshold,
		&sku.Weight,
		&sku.Active,
		&sku.Lifecycle,
		&sku.DeletedAt,
		&sku.CreatedAt,
		&sku.UpdatedAt,
	)
	return sku, err
}

func (r *skuRepository) Create(ctx context.Context, sku *domain.ProductSku) error {
	query := `
		INSERT INTO product_skus (` + skuColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		sku.ID,
		sku.ProductID,
		sku.SkuCode,
		sku.Price,
		sku.CompareAtPrice,
		sku.CostPrice,
		sku.Quantity,
		sku.LowStockThreshold,
		sku.Weight,
		sku.Active,
		sku.Lifecycle,
		sku.DeletedAt,
		sku.CreatedAt,
		sku.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrSkuCodeTaken
		}
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create sku: %w", err)
	}
	return nil
}

// Update writes every mutable column including an absolute quantity
func (r *skuRepository) Update(ctx context.Context, sku *domain.ProductSku) error {
	query := `
		UPDATE product_skus
		SET price = $2, compare_at_price = $3, cost_price = $4, quantity = $5,
		    low_stock_threshold = $6, weight = $7, active = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		sku.ID,
		sku.Price,
		sku.CompareAtPrice,
		sku.CostPrice,
		sku.Quantity,
		sku.LowStockThreshold,
		sku.Weight,
		sku.Active,
		sku.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update sku: %w", err)
	}
	return expectAffected(result, ErrSkuNotFound)
}

func (r *skuRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductSku, error) {
	return r.findOne(ctx, `SELECT `+skuColumns+` FROM product_skus WHERE id = $1`, id)
}

func (r *skuRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ProductSku, error) {
	return r.findOne(ctx, `SELECT `+skuColumns+` FROM product_skus WHERE id = $1 FOR UPDATE`, id)
}

func (r *skuRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*domain.ProductSku, error) {
	sku, err := scanSku(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSkuNotFound
		}
		return nil, fmt.Errorf("failed to find sku: %w", err)
	}
	return sku, nil
}

// AdjustQuantity adds delta to the stock; a decrement that would go below zero changes nothing
func (r *skuRepository) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) error {
	query := `
		UPDATE product_skus
		SET quantity = quantity + $2
		WHERE id = $1 AND quantity + $2 >= 0
	`

	result, err := r.db.ExecContext(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust sku quantity: %w", err)
	}
	return expectAffected(result, ErrStockTooLow)
}

func (r *skuRepository) SetQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	if quantity < 0 {
		return domain.ErrNegativeStock
	}

	result, err := r.db.ExecContext(ctx, `UPDATE product_skus SET quantity = $2 WHERE id = $1`, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to set sku quantity: %w", err)
	}
	return expectAffected(result, ErrSkuNotFound)
}

// ListByProduct returns the non-deleted SKUs of a product with their attributes
func (r *skuRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.ProductSku, error) {
	query := `
		SELECT ` + skuColumns + `
		FROM product_skus
		WHERE product_id = $1 AND lifecycle = $2
		ORDER BY created_at ASC, sku_code ASC
	`

	skus, err := r.list(ctx, query, productID, domain.LifecycleActive)
	if err != nil {
		return nil, err
	}

	for i := range skus {
		attributes, err := listSkuAttributes(ctx, r.db, skus[i].ID)
		if err != nil {
			return nil, err
		}
		skus[i].Attributes = attributes
	}
	return skus, nil
}

func (r *skuRepository) ListLowStock(ctx context.Context) ([]domain.ProductSku, error) {
	query := `
		SELECT ` + skuColumns + `
		FROM product_skus
		WHERE lifecycle = $1 AND active = TRUE AND quantity <= low_stock_threshold
		ORDER BY quantity ASC, sku_code ASC
	`
	return r.list(ctx, query, domain.LifecycleActive)
}

func (r *skuRepository) ListOutOfStock(ctx context.Context) ([]domain.ProductSku, error) {
	query := `
		SELECT ` + skuColumns + `
		FROM product_skus
		WHERE lifecycle = $1 AND active = TRUE AND quantity = 0
		ORDER BY sku_code ASC
	`
	return r.list(ctx, query, domain.LifecycleActive)
}

func (r *skuRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.ProductSku, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list skus: %w", err)
	}
	defer rows.Close()

	skus := []domain.ProductSku{}
	for rows.Next() {
		sku, err := scanSku(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sku: %w", err)
		}
		skus = append(skus, *sku)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating skus: %w", err)
	}
	return skus, nil
}

func (r *skuRepository) LinkAttributes(ctx context.Context, skuID uuid.UUID, attributeIDs []uuid.UUID) error {
	for _, attributeID := range attributeIDs {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO sku_attributes (sku_id, attribute_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			skuID, attributeID,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrAttributeNotFound
			}
			return fmt.Errorf("failed to link sku attribute: %w", err)
		}
	}
	return nil
}

func (r *skuRepository) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE product_skus
		SET lifecycle = $2, deleted_at = $3, active = FALSE, updated_at = $3
		WHERE id = $1 AND lifecycle <> $2
	`, id, domain.LifecycleDeleted, at)
	if err != nil {
		return fmt.Errorf("failed to delete sku: %w", err)
	}
	return expectAffected(result, ErrSkuNotFound)
}
