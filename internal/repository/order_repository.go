package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ecommerce-api/internal/domain"

	"github.com/google/uuid"
)

var ErrOrderNotFound = domain.NotFound("order")

// orderSortColumns whitelists the sortable order fields
var orderSortColumns = map[string]string{
	"createdAt":   "o.created_at",
	"total":       "o.total",
	"status":      "o.status",
	"orderNumber": "o.order_number",
}

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// Create inserts the order header and all of its items
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// FindByIDForUpdate row-locks the order header until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page domain.PageQuery) ([]*domain.Order, int64, error)
	ListAll(ctx context.Context, page domain.PageQuery, status *domain.OrderStatus) ([]*domain.Order, int64, error)
	UpdateStatus(ctx context.Context, order *domain.Order) error
	HasDeliveredPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type orderRepository struct {
	db DBTX
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `o.id, o.order_number, o.user_id, u.username, o.status, o.payment_method, o.payment_status,
	o.subtotal, o.shipping_cost, o.tax, o.discount, o.total,
	o.shipping_name, o.shipping_phone, o.shipping_address_line_1, o.shipping_address_line_2,
	o.shipping_city, o.shipping_country, o.shipping_postal_code,
	o.notes, o.created_at, o.updated_at, o.delivered_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	o := &domain.Order{}
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Username,
		&o.Status,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.Subtotal,
		&o.ShippingCost,
		&o.Tax,
		&o.Discount,
		&o.Total,
		&o.Shipping.Name,
		&o.Shipping.Phone,
		&o.Shipping.Line1,
		&o.Shipping.Line2,
		&o.Shipping.City,
		&o.Shipping.Country,
		&o.Shipping.PostalCode,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.DeliveredAt,
	)
	return o, err
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	query := `
		INSERT INTO orders (id, order_number, user_id, status, payment_method, payment_status,
		                    subtotal, shipping_cost, tax, discount, total,
		                    shipping_name, shipping_phone, shipping_address_line_1, shipping_address_line_2,
		                    shipping_city, shipping_country, shipping_postal_code,
		                    notes, created_at, updated_at, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err := r.db.ExecContext(ctx, query,
		o.ID,
		o.OrderNumber,
		o.UserID,
		o.Status,
		o.PaymentMethod,
		o.PaymentStatus,
		o.Subtotal,
		o.ShippingCost,
		o.Tax,
		o.Discount,
		o.Total,
		o.Shipping.Name,
		o.Shipping.Phone,
		o.Shipping.Line1,
		o.Shipping.Line2,
		o.Shipping.City,
		o.Shipping.Country,
		o.Shipping.PostalCode,
		o.Notes,
		o.CreatedAt,
		o.UpdatedAt,
		o.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for position, item := range o.Items {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, sku_id, position, product_name, sku_code, quantity, price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, item.ID, o.ID, item.SkuID, position, item.ProductName, item.SkuCode, item.Quantity, item.Price, item.Subtotal)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findOne(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1
	`, id)
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findOne(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1
		FOR UPDATE OF o
	`, id)
}

func (r *orderRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	items, err := r.listItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) listItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sku_id, product_name, sku_code, quantity, price, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		err := rows.Scan(&item.ID, &item.SkuID, &item.ProductName, &item.SkuCode, &item.Quantity, &item.Price, &item.Subtotal)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return items, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID, page domain.PageQuery) ([]*domain.Order, int64, error) {
	return r.list(ctx, "WHERE o.user_id = $1", []interface{}{userID}, page)
}

func (r *orderRepository) ListAll(ctx context.Context, page domain.PageQuery, status *domain.OrderStatus) ([]*domain.Order, int64, error) {
	if status != nil {
		return r.list(ctx, "WHERE o.status = $1", []interface{}{*status}, page)
	}
	return r.list(ctx, "", nil, page)
}

func (r *orderRepository) list(ctx context.Context, whereClause string, args []interface{}, page domain.PageQuery) ([]*domain.Order, int64, error) {
	page = page.Normalize("createdAt")
	sortColumn, ok := orderSortColumns[page.SortBy]
	if !ok {
		sortColumn = orderSortColumns["createdAt"]
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders o "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	argIndex := len(args) + 1
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders o
		JOIN users u ON u.id = o.user_id
		%s
		ORDER BY %s %s, o.id
		LIMIT $%d OFFSET $%d
	`, orderColumns, whereClause, sortColumn, page.SortDir, argIndex, argIndex+1)

	rows, err := r.db.QueryContext(ctx, query, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	// Items are loaded after the header cursor is closed; a transaction allows one open cursor at a time
	for _, order := range orders {
		items, err := r.listItems(ctx, order.ID)
		if err != nil {
			return nil, 0, err
		}
		order.Items = items
	}

	return orders, total, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, o *domain.Order) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, payment_status = $3, delivered_at = $4, updated_at = $5
		WHERE id = $1
	`, o.ID, o.Status, o.PaymentStatus, o.DeliveredAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return expectAffected(result, ErrOrderNotFound)
}

// HasDeliveredPurchase reports whether the user received any SKU of the product
func (r *orderRepository) HasDeliveredPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			JOIN product_skus s ON s.id = oi.sku_id
			WHERE o.user_id = $1 AND s.product_id = $2 AND o.status = $3
		)
	`, userID, productID, domain.OrderStatusDelivered).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return exists, nil
}
