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
	ErrSubCategoryNotFound      = domain.NotFound("subcategory")
	ErrSubCategoryAlreadyExists = domain.Conflict("subcategory with this name already exists")
)

// SubCategoryRepository defines data access for subcategories. Reads skip deleted rows.
type SubCategoryRepository interface {
	Create(ctx context.Context, sub *domain.SubCategory) error
	Update(ctx context.Context, sub *domain.SubCategory) error
	MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.SubCategory, error)
	ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]domain.SubCategory, error)
}

type subCategoryRepository struct {
	db DBTX
}

func NewSubCategoryRepository(db DBTX) SubCategoryRepository {
	return &subCategoryRepository{db: db}
}

const subCategorySelect = `
	SELECT s.id, s.category_id, c.name, s.name, s.description, s.lifecycle, s.deleted_at, s.created_at, s.updated_at
	FROM subcategories s
	JOIN categories c ON c.id = s.category_id
`

func scanSubCategory(row rowScanner) (domain.SubCategory, error) {
	var s domain.SubCategory
	err := row.Scan(&s.ID, &s.CategoryID, &s.CategoryName, &s.Name, &s.Description,
		&s.Lifecycle, &s.DeletedAt, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *subCategoryRepository) Create(ctx context.Context, s *domain.SubCategory) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subcategories (id, category_id, name, description, lifecycle, deleted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.CategoryID, s.Name, s.Description, s.Lifecycle, s.DeletedAt, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrSubCategoryAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create subcategory: %w", err)
	}
	return nil
}

func (r *subCategoryRepository) Update(ctx context.Context, s *domain.SubCategory) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE subcategories
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1 AND lifecycle = $5
	`, s.ID, s.Name, s.Description, s.UpdatedAt, domain.LifecycleActive)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrSubCategoryAlreadyExists
		}
		return fmt.Errorf("failed to update subcategory: %w", err)
	}
	return expectAffected(result, ErrSubCategoryNotFound)
}

func (r *subCategoryRepository) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE subcategories
		SET lifecycle = $2, deleted_at = $3, updated_at = $3
		WHERE id = $1 AND lifecycle <> $2
	`, id, domain.LifecycleDeleted, at)
	if err != nil {
		return fmt.Errorf("failed to delete subcategory: %w", err)
	}
	return expectAffected(result, ErrSubCategoryNotFound)
}

func (r *subCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.SubCategory, error) {
	sub, err := scanSubCategory(r.db.QueryRowContext(ctx,
		subCategorySelect+`WHERE s.id = $1 AND s.lifecycle = $2`,
		id, domain.LifecycleActive,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subcategory: %w", err)
	}
	return &sub, nil
}

// ListByCategory returns the live subcategories of one category ordered by name
func (r *subCategoryRepository) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]domain.SubCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		subCategorySelect+`WHERE s.category_id = $1 AND s.lifecycle = $2 ORDER BY s.name ASC`,
		categoryID, domain.LifecycleActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}
	defer rows.Close()

	subs := []domain.SubCategory{}
	for rows.Next() {
		sub, err := scanSubCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subcategory: %w", err)
		}
		subs = append(subs, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subcategories: %w", err)
	}
	return subs, nil
}
