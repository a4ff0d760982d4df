package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the per-user shopping cart aggregate
type Cart struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// CartItem is one cart line. Price is captured when the line is added,
// CurrentPrice and AvailableStock are read from the live SKU.
type CartItem struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	SkuID          uuid.UUID       `json:"sku_id" db:"sku_id"`
	ProductID      uuid.UUID       `json:"product_id" db:"product_id"`
	ProductName    string          `json:"product_name" db:"product_name"`
	SkuCode        string          `json:"sku_code" db:"sku_code"`
	Quantity       int             `json:"quantity" db:"quantity"`
	Price          decimal.Decimal `json:"price" db:"price"`
	CurrentPrice   decimal.Decimal `json:"current_price" db:"current_price"`
	AvailableStock int             `json:"available_stock" db:"available_stock"`
	SkuActive      bool            `json:"-" db:"sku_active"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i CartItem) InStock() bool {
	return i.SkuActive && i.AvailableStock >= i.Quantity
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Total sums the captured line prices
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount is the number of units across all lines
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItemBySku returns the line holding skuID, if any
func (c *Cart) FindItemBySku(skuID uuid.UUID) (CartItem, bool) {
	for _, item := range c.Items {
		if item.SkuID == skuID {
			return item, true
		}
	}
	return CartItem{}, false
}

// FindItem returns the line with the given id, if any
func (c *Cart) FindItem(itemID uuid.UUID) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return CartItem{}, false
}
