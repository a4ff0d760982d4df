package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ecommerce-api/internal/domain"

	"github.com/google/uuid"
)

var ErrImageNotFound = domain.NotFound("image")

// ImageRepository defines the interface for product image data access
type ImageRepository interface {
	Create(ctx context.Context, image *domain.ProductImage) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductImage, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.ProductImage, error)
	// SetPrimary makes imageID the only primary image of its product
	SetPrimary(ctx context.Context, productID, imageID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type imageRepository struct {
	db DBTX
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db DBTX) ImageRepository {
	return &imageRepository{db: db}
}

const imageColumns = `id, product_id, url, alt_text, display_order, is_primary, created_at`

func scanImage(row rowScanner) (*domain.ProductImage, error) {
	img := &domain.ProductImage{}
	err := row.Scan(&img.ID, &img.ProductID, &img.URL, &img.AltText, &img.DisplayOrder, &img.Primary, &img.CreatedAt)
	return img, err
}

func (r *imageRepository) Create(ctx context.Context, img *domain.ProductImage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO product_images (`+imageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, img.ID, img.ProductID, img.URL, img.AltText, img.DisplayOrder, img.Primary, img.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create image: %w", err)
	}
	return nil
}

func (r *imageRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductImage, error) {
	img, err := scanImage(r.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM product_images WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to find image: %w", err)
	}
	return img, nil
}

func (r *imageRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.ProductImage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+imageColumns+`
		FROM product_images
		WHERE product_id = $1
		ORDER BY display_order ASC, created_at ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	images := []domain.ProductImage{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, *img)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating images: %w", err)
	}
	return images, nil
}

func (r *imageRepository) SetPrimary(ctx context.Context, productID, imageID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE product_images
		SET is_primary = (id = $2)
		WHERE product_id = $1
	`, productID, imageID)
	if err != nil {
		return fmt.Errorf("failed to set primary image: %w", err)
	}
	return expectAffected(result, ErrImageNotFound)
}

func (r *imageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM product_images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return expectAffected(result, ErrImageNotFound)
}
