package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold applies when a SKU is created without a threshold
const DefaultLowStockThreshold = 10

// Category groups products. Deleting a category soft-deletes its subcategories.
type Category struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	Name          string        `json:"name" db:"name"`
	Description   string        `json:"description" db:"description"`
	Lifecycle     Lifecycle     `json:"-" db:"lifecycle"`
	DeletedAt     *time.Time    `json:"-" db:"deleted_at"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
	SubCategories []SubCategory `json:"sub_categories"`
}

// SubCategory belongs to exactly one category; CategoryName is read through a join
type SubCategory struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	CategoryID   uuid.UUID  `json:"category_id" db:"category_id"`
	CategoryName string     `json:"category_name" db:"category_name"`
	Name         string     `json:"name" db:"name"`
	Description  string     `json:"description" db:"description"`
	Lifecycle    Lifecycle  `json:"-" db:"lifecycle"`
	DeletedAt    *time.Time `json:"-" db:"deleted_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Product represents a product in the catalog. Purchasable variants live in Skus.
type Product struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Slug        string         `json:"slug" db:"slug"`
	Description string         `json:"description" db:"description"`
	Summary     string         `json:"summary" db:"summary"`
	Brand       string         `json:"brand" db:"brand"`
	CoverImage  string         `json:"cover_image" db:"cover_image"`
	Active      bool           `json:"active" db:"active"`
	Featured    bool           `json:"featured" db:"featured"`
	ViewCount   int            `json:"view_count" db:"view_count"`
	Lifecycle   Lifecycle      `json:"-" db:"lifecycle"`
	DeletedAt   *time.Time     `json:"-" db:"deleted_at"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
	CategoryIDs []uuid.UUID    `json:"category_ids"`
	Skus        []ProductSku   `json:"skus"`
	Images      []ProductImage `json:"images"`
}

// Available reports whether the product can be shown and bought
func (p *Product) Available() bool {
	return p.Active && !p.Lifecycle.IsDeleted()
}

// TotalStock sums the quantity of live SKUs
func (p *Product) TotalStock() int {
	total := 0
	for _, sku := range p.Skus {
		if !sku.Lifecycle.IsDeleted() {
			total += sku.Quantity
		}
	}
	return total
}

// MinPrice is the lowest price among live SKUs, zero when there are none
func (p *Product) MinPrice() decimal.Decimal {
	var min decimal.Decimal
	found := false
	for _, sku := range p.Skus {
		if sku.Lifecycle.IsDeleted() {
			continue
		}
		if !found || sku.Price.LessThan(min) {
			min = sku.Price
			found = true
		}
	}
	return min
}

// MarkDeleted flips the product to the deleted lifecycle
func (p *Product) MarkDeleted(now time.Time) {
	p.Lifecycle = LifecycleDeleted
	p.DeletedAt = &now
	p.UpdatedAt = now
}

// ProductSku is a purchasable variant of a product with its own price and stock
type ProductSku struct {
	ID                uuid.UUID           `json:"id" db:"id"`
	ProductID         uuid.UUID           `json:"product_id" db:"product_id"`
	SkuCode           string              `json:"sku_code" db:"sku_code"`
	Price             decimal.Decimal     `json:"price" db:"price"`
	CompareAtPrice    decimal.NullDecimal `json:"compare_at_price" db:"compare_at_price"`
	CostPrice         decimal.NullDecimal `json:"cost_price" db:"cost_price"`
	Quantity          int                 `json:"quantity" db:"quantity"`
	LowStockThreshold int                 `json:"low_stock_threshold" db:"low_stock_threshold"`
	Weight            decimal.NullDecimal `json:"weight" db:"weight"`
	Active            bool                `json:"active" db:"active"`
	Lifecycle         Lifecycle           `json:"-" db:"lifecycle"`
	DeletedAt         *time.Time          `json:"-" db:"deleted_at"`
	CreatedAt         time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" db:"updated_at"`
	Attributes        []ProductAttribute  `json:"attributes"`
}

func (s *ProductSku) IsLowStock() bool {
	return s.Quantity <= s.LowStockThreshold
}

func (s *ProductSku) IsOutOfStock() bool {
	return s.Quantity <= 0
}

// Purchasable reports whether the SKU can be added to a cart or ordered
func (s *ProductSku) Purchasable() bool {
	return s.Active && !s.Lifecycle.IsDeleted()
}

// DiscountPercentage derives the markdown from the compare-at price
func (s *ProductSku) DiscountPercentage() decimal.Decimal {
	if !s.CompareAtPrice.Valid || !s.CompareAtPrice.Decimal.GreaterThan(s.Price) {
		return decimal.Zero
	}
	compare := s.CompareAtPrice.Decimal
	return compare.Sub(s.Price).Div(compare).Mul(decimal.NewFromInt(100)).Round(2)
}

// MarkDeleted flips the SKU to the deleted lifecycle
func (s *ProductSku) MarkDeleted(now time.Time) {
	s.Lifecycle = LifecycleDeleted
	s.DeletedAt = &now
	s.UpdatedAt = now
}

// ProductAttribute is a typed option value such as COLOR=red or SIZE=XL
type ProductAttribute struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Type         string    `json:"type" db:"type"`
	Value        string    `json:"value" db:"value"`
	DisplayValue string    `json:"display_value" db:"display_value"`
	HexCode      string    `json:"hex_code,omitempty" db:"hex_code"`
}

// ProductImage is an image URL attached to a product
type ProductImage struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ProductID    uuid.UUID `json:"product_id" db:"product_id"`
	URL          string    `json:"url" db:"url"`
	AltText      string    `json:"alt_text" db:"alt_text"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	Primary      bool      `json:"primary" db:"is_primary"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugWhitespace   = regexp.MustCompile(`\s+`)
	slugDashes       = regexp.MustCompile(`-+`)
)

// Slugify derives a URL slug from a product name
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugInvalidChars.ReplaceAllString(slug, "")
	slug = slugWhitespace.ReplaceAllString(slug, "-")
	slug = slugDashes.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// SlugCandidate returns the n-th candidate for a base slug: base, base-1, base-2, ...
func SlugCandidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}
