package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ecommerce-api/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = domain.NotFound("product")
	ErrSlugTaken       = domain.Conflict("product slug already exists")
)

// ProductFilter narrows product listings; zero values leave a dimension open.
// A product matches CategoryIDs when it sits in any of them, and a price bound when
// one of its live, active SKUs is priced inside the range.
type ProductFilter struct {
	CategoryIDs []uuid.UUID
	Search      string
	Brand       string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	Featured    *bool
}

// minSkuPrice is the cheapest live, active SKU of p; $1 is always the active lifecycle
const minSkuPrice = `(SELECT MIN(s.price) FROM product_skus s WHERE s.product_id = p.id AND s.lifecycle = $1 AND s.active = TRUE)`

// productSortColumns whitelists sortable fields to prevent SQL injection
var productSortColumns = map[string]string{
	"createdAt":  "p.created_at",
	"name":       "p.name",
	"viewCount":  "p.view_count",
	"popularity": "p.view_count",
	"updatedAt":  "p.updated_at",
	"price":      minSkuPrice,
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern that treats term literally
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Product, error)
	SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
	SetCategories(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID) error
	List(ctx context.Context, filter ProductFilter, page domain.PageQuery) ([]*domain.Product, int64, error)
	ListBrands(ctx context.Context) ([]string, error)
}

type productRepository struct {
	db DBTX
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `p.id, p.name, p.slug, p.description, p.summary, p.brand, p.cover_image, p.active, p.featured,
	p.view_count, p.lifecycle, p.deleted_at, p.created_at, p.updated_at,
	COALESCE(ARRAY_TO_STRING(ARRAY(SELECT pc.category_id::text FROM product_categories pc WHERE pc.product_id = p.id ORDER BY pc.category_id), ','), '')`

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var categoryIDs string
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Summary,
		&product.Brand,
		&product.CoverImage,
		&product.Active,
		&product.Featured,
		&product.ViewCount,
		&product.Lifecycle,
		&product.DeletedAt,
		&product.CreatedAt,
		&product.UpdatedAt,
		&categoryIDs,
	)
	if err != nil {
		return nil, err
	}

	product.CategoryIDs = []uuid.UUID{}
	for _, raw := range strings.Split(categoryIDs, ",") {
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid category id %q: %w", raw, err)
		}
		product.CategoryIDs = append(product.CategoryIDs, id)
	}
	return product, nil
}

// Create inserts a new product
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, slug, description, summary, brand, cover_image, active, featured,
		                      view_count, lifecycle, deleted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.Summary,
		product.Brand,
		product.CoverImage,
		product.Active,
		product.Featured,
		product.ViewCount,
		product.Lifecycle,
		product.DeletedAt,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates the editable columns of a product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, slug = $3, description = $4, summary = $5, brand = $6,
		    cover_image = $7, active = $8, featured = $9, updated_at = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.Summary,
		product.Brand,
		product.CoverImage,
		product.Active,
		product.Featured,
		product.UpdatedAt,
	)

	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return expectAffected(result, ErrProductNotFound)
}

// MarkDeleted flips the product and all of its SKUs to the deleted lifecycle
func (r *productRepository) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET lifecycle = $2, deleted_at = $3, active = FALSE, updated_at = $3
		WHERE id = $1 AND lifecycle <> $2
	`, id, domain.LifecycleDeleted, at)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if err := expectAffected(result, ErrProductNotFound); err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE product_skus
		SET lifecycle = $2, deleted_at = $3, updated_at = $3
		WHERE product_id = $1 AND lifecycle <> $2
	`, id, domain.LifecycleDeleted, at)
	if err != nil {
		return fmt.Errorf("failed to delete product skus: %w", err)
	}
	return nil
}

// FindByID retrieves a product by ID regardless of lifecycle
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindBySlug retrieves a non-deleted product by slug
func (r *productRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.slug = $1 AND p.lifecycle = $2`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, slug, domain.LifecycleActive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}

	return product, nil
}

// SlugExists reports whether another product already uses slug
func (r *productRepository) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1 AND id <> $2)`,
		slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

func (r *productRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE products SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	return expectAffected(result, ErrProductNotFound)
}

// SetCategories replaces the category links of a product. Only live categories can be linked.
func (r *productRepository) SetCategories(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM product_categories WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to clear product categories: %w", err)
	}

	linked := make(map[uuid.UUID]bool, len(categoryIDs))
	for _, categoryID := range categoryIDs {
		if linked[categoryID] {
			continue
		}
		result, err := r.db.ExecContext(ctx, `
			INSERT INTO product_categories (product_id, category_id)
			SELECT $1, id FROM categories WHERE id = $2 AND lifecycle = $3
		`, productID, categoryID, domain.LifecycleActive)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to link product category: %w", err)
		}
		if err := expectAffected(result, ErrCategoryNotFound); err != nil {
			return err
		}
		linked[categoryID] = true
	}
	return nil
}

// List retrieves active, non-deleted products matching filter
func (r *productRepository) List(ctx context.Context, filter ProductFilter, page domain.PageQuery) ([]*domain.Product, int64, error) {
	page = page.Normalize("createdAt")
	sortColumn, ok := productSortColumns[page.SortBy]
	if !ok {
		sortColumn = productSortColumns["createdAt"]
	}

	conditions := []string{"p.active = TRUE", "p.lifecycle = $1"}
	args := []interface{}{domain.LifecycleActive}
	argIndex := 2

	if len(filter.CategoryIDs) > 0 {
		placeholders := make([]string, len(filter.CategoryIDs))
		for i, id := range filter.CategoryIDs {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, id)
			argIndex++
		}
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id = p.id AND pc.category_id IN (%s))",
			strings.Join(placeholders, ", ")))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf(
			`(p.name ILIKE $%[1]d ESCAPE '\' OR p.description ILIKE $%[1]d ESCAPE '\' OR p.brand ILIKE $%[1]d ESCAPE '\')`, argIndex))
		args = append(args, containsPattern(search))
		argIndex++
	}

	if brand := strings.TrimSpace(filter.Brand); brand != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(p.brand) = LOWER($%d)", argIndex))
		args = append(args, brand)
		argIndex++
	}

	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("p.featured = $%d", argIndex))
		args = append(args, *filter.Featured)
		argIndex++
	}

	if filter.MinPrice != nil || filter.MaxPrice != nil {
		skuConditions := []string{"s.product_id = p.id", "s.lifecycle = $1", "s.active = TRUE"}
		if filter.MinPrice != nil {
			skuConditions = append(skuConditions, fmt.Sprintf("s.price >= $%d", argIndex))
			args = append(args, *filter.MinPrice)
			argIndex++
		}
		if filter.MaxPrice != nil {
			skuConditions = append(skuConditions, fmt.Sprintf("s.price <= $%d", argIndex))
			args = append(args, *filter.MaxPrice)
			argIndex++
		}
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM product_skus s WHERE "+strings.Join(skuConditions, " AND ")+")")
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM products p " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		%s
		ORDER BY %s %s NULLS LAST, p.id
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, sortColumn, page.SortDir, argIndex, argIndex+1)

	args = append(args, page.PageSize, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

// ListBrands returns the distinct, non-empty brands of non-deleted products
func (r *productRepository) ListBrands(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT brand
		FROM products
		WHERE lifecycle = $1 AND brand <> ''
		ORDER BY brand ASC
	`, domain.LifecycleActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	defer rows.Close()

	brands := []string{}
	for rows.Next() {
		var brand string
		if err := rows.Scan(&brand); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		brands = append(brands, brand)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating brands: %w", err)
	}
	return brands, nil
}
