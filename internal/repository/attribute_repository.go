package repository

import (
	"context"
	"fmt"

	"ecommerce-api/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrAttributeNotFound = domain.NotFound("attribute")
	ErrAttributeExists   = domain.Conflict("attribute with this type and value already exists")
)

// AttributeRepository defines the interface for variant attribute data access
type AttributeRepository interface {
	Create(ctx context.Context, attribute *domain.ProductAttribute) error
	List(ctx context.Context) ([]domain.ProductAttribute, error)
}

type attributeRepository struct {
	db DBTX
}

// NewAttributeRepository creates a new instance of AttributeRepository
func NewAttributeRepository(db DBTX) AttributeRepository {
	return &attributeRepository{db: db}
}

func (r *attributeRepository) Create(ctx context.Context, a *domain.ProductAttribute) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO product_attributes (id, type, value, display_value, hex_code)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.Type, a.Value, a.DisplayValue, a.HexCode)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrAttributeExists
		}
		return fmt.Errorf("failed to create attribute: %w", err)
	}
	return nil
}

func (r *attributeRepository) List(ctx context.Context) ([]domain.ProductAttribute, error) {
	return queryAttributes(ctx, r.db, `
		SELECT id, type, value, display_value, hex_code
		FROM product_attributes
		ORDER BY type ASC, value ASC
	`)
}

func listSkuAttributes(ctx context.Context, db DBTX, skuID uuid.UUID) ([]domain.ProductAttribute, error) {
	return queryAttributes(ctx, db, `
		SELECT a.id, a.type, a.value, a.display_value, a.hex_code
		FROM product_attributes a
		JOIN sku_attributes sa ON sa.attribute_id = a.id
		WHERE sa.sku_id = $1
		ORDER BY a.type ASC, a.value ASC
	`, skuID)
}

func queryAttributes(ctx context.Context, db DBTX, query string, args ...interface{}) ([]domain.ProductAttribute, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attributes: %w", err)
	}
	defer rows.Close()

	attributes := []domain.ProductAttribute{}
	for rows.Next() {
		var a domain.ProductAttribute
		if err := rows.Scan(&a.ID, &a.Type, &a.Value, &a.DisplayValue, &a.HexCode); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		attributes = append(attributes, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attributes: %w", err)
	}
	return attributes, nil
}
