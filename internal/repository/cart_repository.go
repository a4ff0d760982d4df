package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecommerce-api/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound     = domain.NotFound("cart")
	ErrCartItemNotFound = domain.NotFound("cart item")
	ErrCartItemExists   = domain.Conflict("sku is already in the cart")
)

// CartRepository defines the interface for cart data access
type CartRepository interface {
	// FindByUserID loads the user's cart with its lines joined to live SKU data
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	// Create inserts the cart unless the user already has one
	Create(ctx context.Context, cart *domain.Cart) error
	AddItem(ctx context.Context, cartID uuid.UUID, item *domain.CartItem) error
	UpdateItem(ctx context.Context, itemID uuid.UUID, quantity int, price decimal.Decimal) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) error
	Touch(ctx context.Context, cartID uuid.UUID, at time.Time) error
	// ItemOwner returns the user owning the cart that holds itemID
	ItemOwner(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
}

type cartRepository struct {
	db DBTX
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart := &domain.Cart{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`,
		userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	items, err := r.listItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

func (r *cartRepository) listItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	query := `
		SELECT ci.id, ci.sku_id, s.product_id, p.name, s.sku_code, ci.quantity, ci.price,
		       s.price, s.quantity,
		       (s.active AND s.lifecycle = $2 AND p.active AND p.lifecycle = $2),
		       ci.created_at
		FROM cart_items ci
		JOIN product_skus s ON s.id = ci.sku_id
		JOIN products p ON p.id = s.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at ASC, ci.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cartID, domain.LifecycleActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		err := rows.Scan(
			&item.ID,
			&item.SkuID,
			&item.ProductID,
			&item.ProductName,
			&item.SkuCode,
			&item.Quantity,
			&item.Price,
			&item.CurrentPrice,
			&item.AvailableStock,
			&item.SkuActive,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return items, nil
}

func (r *cartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`, cart.ID, cart.UserID, cart.CreatedAt, cart.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

func (r *cartRepository) AddItem(ctx context.Context, cartID uuid.UUID, item *domain.CartItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (id, cart_id, sku_id, quantity, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, cartID, item.SkuID, item.Quantity, item.Price, item.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrCartItemExists
		}
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) UpdateItem(ctx context.Context, itemID uuid.UUID, quantity int, price decimal.Decimal) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $2, price = $3 WHERE id = $1`,
		itemID, quantity, price,
	)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return expectAffected(result, ErrCartItemNotFound)
}

func (r *cartRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return expectAffected(result, ErrCartItemNotFound)
}

// Clear removes every line but keeps the cart itself
func (r *cartRepository) Clear(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (r *cartRepository) Touch(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE carts SET updated_at = $2 WHERE id = $1`, cartID, at); err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	return nil
}

func (r *cartRepository) ItemOwner(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		SELECT c.user_id FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = $1
	`, itemID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrCartItemNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to find cart item owner: %w", err)
	}
	return owner, nil
}
