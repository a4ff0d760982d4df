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
	ErrWishlistNotFound     = domain.NotFound("wishlist")
	ErrWishlistItemNotFound = domain.NotFound("wishlist item")
)

// WishlistRepository defines the interface for wishlist data access
type WishlistRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wishlist, error)
	Create(ctx context.Context, wishlist *domain.Wishlist) error
	AddItem(ctx context.Context, wishlistID, productID uuid.UUID, at time.Time) error
	RemoveItem(ctx context.Context, wishlistID, productID uuid.UUID) error
	Clear(ctx context.Context, wishlistID uuid.UUID) error
}

type wishlistRepository struct {
	db DBTX
}

// NewWishlistRepository creates a new instance of WishlistRepository
func NewWishlistRepository(db DBTX) WishlistRepository {
	return &wishlistRepository{db: db}
}

func (r *wishlistRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wishlist, error) {
	w := &domain.Wishlist{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM wishlists WHERE user_id = $1`,
		userID,
	).Scan(&w.ID, &w.UserID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWishlistNotFound
		}
		return nil, fmt.Errorf("failed to find wishlist: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT wi.id, wi.product_id, p.name, p.slug, p.cover_image,
		       COALESCE((SELECT MIN(s.price) FROM product_skus s WHERE s.product_id = p.id AND s.lifecycle = $2), 0),
		       (p.active AND p.lifecycle = $2),
		       wi.added_at
		FROM wishlist_items wi
		JOIN products p ON p.id = wi.product_id
		WHERE wi.wishlist_id = $1
		ORDER BY wi.added_at DESC, wi.id
	`, w.ID, domain.LifecycleActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist items: %w", err)
	}
	defer rows.Close()

	w.Items = []domain.WishlistItem{}
	for rows.Next() {
		var item domain.WishlistItem
		err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.ProductSlug, &item.CoverImage,
			&item.MinPrice, &item.Available, &item.AddedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		w.Items = append(w.Items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wishlist items: %w", err)
	}
	return w, nil
}

// Create inserts the wishlist unless the user already has one
func (r *wishlistRepository) Create(ctx context.Context, w *domain.Wishlist) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wishlists (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`, w.ID, w.UserID, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create wishlist: %w", err)
	}
	return nil
}

func (r *wishlistRepository) AddItem(ctx context.Context, wishlistID, productID uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wishlist_items (id, wishlist_id, product_id, added_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), wishlistID, productID, at)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.ErrAlreadyInWishlist
		}
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return nil
}

func (r *wishlistRepository) RemoveItem(ctx context.Context, wishlistID, productID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM wishlist_items WHERE wishlist_id = $1 AND product_id = $2`,
		wishlistID, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	return expectAffected(result, ErrWishlistItemNotFound)
}

func (r *wishlistRepository) Clear(ctx context.Context, wishlistID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM wishlist_items WHERE wishlist_id = $1`, wishlistID); err != nil {
		return fmt.Errorf("failed to clear wishlist: %w", err)
	}
	return nil
}
