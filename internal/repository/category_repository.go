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
	ErrCategoryNotFound      = domain.NotFound("category")
	ErrCategoryAlreadyExists = domain.Conflict("category with this name already exists")
)

// CategoryRepository reads and writes live categories. Names stay unique across deleted rows too.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	// MarkDeleted soft-deletes the category and every subcategory under it
	MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	List(ctx context.Context) ([]*domain.Category, error)
}

type categoryRepository struct {
	db DBTX
}

func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

const categoryColumns = `id, name, description, lifecycle, deleted_at, created_at, updated_at`

func scanCategory(row rowScanner) (*domain.Category, error) {
	c := &domain.Category{SubCategories: []domain.SubCategory{}}
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Lifecycle, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *categoryRepository) Create(ctx context.Context, c *domain.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.Name, c.Description, c.Lifecycle, c.DeletedAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// Update renames or re-describes a live category
func (r *categoryRepository) Update(ctx context.Context, c *domain.Category) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE categories
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1 AND lifecycle = $5
	`, c.ID, c.Name, c.Description, c.UpdatedAt, domain.LifecycleActive)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to update category: %w", err)
	}
	return expectAffected(result, ErrCategoryNotFound)
}

func (r *categoryRepository) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE categories
		SET lifecycle = $2, deleted_at = $3, updated_at = $3
		WHERE id = $1 AND lifecycle <> $2
	`, id, domain.LifecycleDeleted, at)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if err := expectAffected(result, ErrCategoryNotFound); err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE subcategories
		SET lifecycle = $2, deleted_at = $3, updated_at = $3
		WHERE category_id = $1 AND lifecycle <> $2
	`, id, domain.LifecycleDeleted, at)
	if err != nil {
		return fmt.Errorf("failed to delete subcategories: %w", err)
	}
	return nil
}

// FindByID returns a live category; deleted ones read as not found
func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1 AND lifecycle = $2`,
		id, domain.LifecycleActive,
	)
	category, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE lifecycle = $1 ORDER BY name ASC`,
		domain.LifecycleActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}
