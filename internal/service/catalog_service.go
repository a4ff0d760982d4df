package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/logger"
	"ecommerce-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultProductSort = "createdAt"
	maxSlugAttempts    = 100
)

var errSlugExhausted = domain.Conflict("could not derive a unique slug for this product name")

// CatalogService manages categories, products, SKUs, attributes and product images
type CatalogService interface {
	CreateCategory(ctx context.Context, name, description string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*domain.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateSubCategory(ctx context.Context, categoryID uuid.UUID, name, description string) (*domain.SubCategory, error)
	UpdateSubCategory(ctx context.Context, id uuid.UUID, name, description string) (*domain.SubCategory, error)
	ListSubCategories(ctx context.Context, categoryID uuid.UUID) ([]domain.SubCategory, error)
	DeleteSubCategory(ctx context.Context, id uuid.UUID) error

	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductUpdate) (*domain.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListProducts(ctx context.Context, page domain.PageQuery, filter repository.ProductFilter) (domain.Page[*domain.Product], error)
	ListBrands(ctx context.Context) ([]string, error)
	ToggleFeatured(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	AddSku(ctx context.Context, productID uuid.UUID, input SkuInput) (*domain.ProductSku, error)
	GetSku(ctx context.Context, id uuid.UUID) (*domain.ProductSku, error)
	ListProductSkus(ctx context.Context, productID uuid.UUID) ([]domain.ProductSku, error)
	UpdateSku(ctx context.Context, id uuid.UUID, input SkuUpdate) (*domain.ProductSku, error)
	SetSkuStock(ctx context.Context, id uuid.UUID, quantity int) (*domain.ProductSku, error)
	DeleteSku(ctx context.Context, id uuid.UUID) error
	LowStockSkus(ctx context.Context) ([]domain.ProductSku, error)
	OutOfStockSkus(ctx context.Context) ([]domain.ProductSku, error)

	CreateAttribute(ctx context.Context, input AttributeInput) (*domain.ProductAttribute, error)
	ListAttributes(ctx context.Context) ([]domain.ProductAttribute, error)

	AddImage(ctx context.Context, productID uuid.UUID, input ImageInput) (*domain.ProductImage, error)
	SetPrimaryImage(ctx context.Context, productID, imageID uuid.UUID) (*domain.ProductImage, error)
	DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error
}

type ProductInput struct {
	Name        string
	Description string
	Summary     string
	Brand       string
	CoverImage  string
	Featured    bool
	CategoryIDs []uuid.UUID
}

// ProductUpdate carries a partial product update; nil fields are left unchanged
type ProductUpdate struct {
	Name        *string
	Description *string
	Summary     *string
	Brand       *string
	Active      *bool
	Featured    *bool
	CategoryIDs []uuid.UUID
}

type SkuInput struct {
	SkuCode           string
	Price             decimal.Decimal
	CompareAtPrice    decimal.NullDecimal
	CostPrice         decimal.NullDecimal
	Weight            decimal.NullDecimal
	Quantity          int
	LowStockThreshold *int
	AttributeIDs      []uuid.UUID
}

// SkuUpdate carries a partial SKU update; Quantity is an absolute value
type SkuUpdate struct {
	Price             *decimal.Decimal
	CompareAtPrice    *decimal.Decimal
	CostPrice         *decimal.Decimal
	Weight            *decimal.Decimal
	Quantity          *int
	LowStockThreshold *int
	Active            *bool
}

type AttributeInput struct {
	Type         string
	Value        string
	DisplayValue string
	HexCode      string
}

type ImageInput struct {
	URL     string
	AltText string
	Primary bool
}

type catalogService struct {
	uow    repository.UnitOfWork
	logger *zap.Logger
	now    func() time.Time
}

func NewCatalogService(uow repository.UnitOfWork, logger *zap.Logger) CatalogService {
	return &catalogService{uow: uow, logger: logger, now: time.Now}
}

// CreateProduct inserts an active product under a unique slug derived from its name
func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	now := s.now()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Summary:     input.Summary,
		Brand:       input.Brand,
		CoverImage:  input.CoverImage,
		Active:      true,
		Featured:    input.Featured,
		Lifecycle:   domain.LifecycleActive,
		CreatedAt:   now,
		UpdatedAt:   now,
		CategoryIDs: input.CategoryIDs,
	}

	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		slug, err := uniqueSlug(ctx, tx.Products(), product.Name, uuid.Nil)
		if err != nil {
			return err
		}
		product.Slug = slug

		if err := tx.Products().Create(ctx, product); err != nil {
			return err
		}
		return tx.Products().SetCategories(ctx, product.ID, input.CategoryIDs)
	})
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx, s.logger).Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("slug", product.Slug),
	)
	return product, nil
}

// uniqueSlug walks base, base-1, base-2 ... until a slug is free
func uniqueSlug(ctx context.Context, products repository.ProductRepository, name string, excludeID uuid.UUID) (string, error) {
	base := domain.Slugify(name)
	if base == "" {
		return "", domain.Validation("product name must contain letters or digits")
	}
	for n := 0; n < maxSlugAttempts; n++ {
		candidate := domain.SlugCandidate(base, n)
		exists, err := products.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", errSlugExhausted
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductUpdate) (*domain.Product, error) {
	var product *domain.Product
	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		product, err = liveProduct(ctx, tx, id)
		if err != nil {
			return err
		}

		if input.Name != nil && strings.TrimSpace(*input.Name) != product.Name {
			product.Name = strings.TrimSpace(*input.Name)
			if product.Slug, err = uniqueSlug(ctx, tx.Products(), product.Name, product.ID); err != nil {
				return err
			}
		}
		if input.Description != nil {
			product.Description = *input.Description
		}
		if input.Summary != nil {
			product.Summary = *input.Summary
		}
		if input.Brand != nil {
			product.Brand = *input.Brand
		}
		if input.Active != nil {
			product.Active = *input.Active
		}
		if input.Featured != nil {
			product.Featured = *input.Featured
		}
		product.UpdatedAt = s.now()

		if err := tx.Products().Update(ctx, product); err != nil {
			return err
		}
		if input.CategoryIDs != nil {
			if err := tx.Products().SetCategories(ctx, product.ID, input.CategoryIDs); err != nil {
				return err
			}
			product.CategoryIDs = input.CategoryIDs
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// liveProduct loads a product that has not been deleted
func liveProduct(ctx context.Context, store repository.Store, id uuid.UUID) (*domain.Product, error) {
	product, err := store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.Lifecycle.IsDeleted() {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

// GetProduct returns an available product with its SKUs and images and counts the view
func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.uow.Products().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.Available() {
		return nil, repository.ErrProductNotFound
	}

	if err := s.uow.Products().IncrementViewCount(ctx, id); err != nil {
		return nil, err
	}
	product.ViewCount++

	if err := s.loadDetails(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	product, err := s.uow.Products().FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !product.Available() {
		return nil, repository.ErrProductNotFound
	}
	if err := s.loadDetails(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// ListProducts pages through available products matching filter
func (s *catalogService) ListProducts(ctx context.Context, page domain.PageQuery, filter repository.ProductFilter) (domain.Page[*domain.Product], error) {
	if err := validatePriceRange(filter.MinPrice, filter.MaxPrice); err != nil {
		return domain.Page[*domain.Product]{}, err
	}
	page = page.Normalize(defaultProductSort)
	products, total, err := s.uow.Products().List(ctx, filter, page)
	if err != nil {
		return domain.Page[*domain.Product]{}, err
	}
	for _, product := range products {
		if err := s.loadDetails(ctx, product); err != nil {
			return domain.Page[*domain.Product]{}, err
		}
	}
	return domain.NewPage(products, page, total), nil
}

func validatePriceRange(min, max *decimal.Decimal) error {
	if min != nil && min.IsNegative() {
		return domain.Validation("min price must not be negative")
	}
	if max != nil && max.IsNegative() {
		return domain.Validation("max price must not be negative")
	}
	if min != nil && max != nil && min.GreaterThan(*max) {
		return domain.Validation("min price must not exceed max price")
	}
	return nil
}

func (s *catalogService) ListBrands(ctx context.Context) ([]string, error) {
	return s.uow.Products().ListBrands(ctx)
}

func (s *catalogService) ToggleFeatured(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.toggle(ctx, id, "featured", func(p *domain.Product) bool {
		p.Featured = !p.Featured
		return p.Featured
	})
}

// ToggleActive hides or re-lists a product without deleting it
func (s *catalogService) ToggleActive(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.toggle(ctx, id, "active", func(p *domain.Product) bool {
		p.Active = !p.Active
		return p.Active
	})
}

func (s *catalogService) toggle(ctx context.Context, id uuid.UUID, flag string, flip func(*domain.Product) bool) (*domain.Product, error) {
	var (
		product *domain.Product
		value   bool
	)
	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		product, err = liveProduct(ctx, tx, id)
		if err != nil {
			return err
		}
		value = flip(product)
		product.UpdatedAt = s.now()
		return tx.Products().Update(ctx, product)
	})
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx, s.logger).Info("Product flag toggled",
		zap.String("product_id", id.String()),
		zap.String("flag", flag),
		zap.Bool("value", value),
	)
	return product, nil
}

func (s *catalogService) loadDetails(ctx context.Context, product *domain.Product) error {
	skus, err := s.uow.Skus().ListByProduct(ctx, product.ID)
	if err != nil {
		return err
	}
	images, err := s.uow.Images().ListByProduct(ctx, product.ID)
	if err != nil {
		return err
	}
	product.Skus = skus
	product.Images = images
	return nil
}

// DeleteProduct soft-deletes the product together with its SKUs
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := liveProduct(ctx, tx, id); err != nil {
			return err
		}
		return tx.Products().MarkDeleted(ctx, id, s.now())
	})
	if err != nil {
		return err
	}
	logger.FromCtx(ctx, s.logger).Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

func (s *catalogService) AddSku(ctx context.Context, productID uuid.UUID, input SkuInput) (*domain.ProductSku, error) {
	if !input.Price.IsPositive() {
		return nil, domain.ErrNonPositivePrice
	}
	if input.Quantity < 0 {
		return nil, domain.ErrNegativeStock
	}

	now := s.now()
	sku := &domain.ProductSku{
		ID:                uuid.New(),
		ProductID:         productID,
		SkuCode:           strings.TrimSpace(input.SkuCode),
		Price:             input.Price,
		CompareAtPrice:    input.CompareAtPrice,
		CostPrice:         input.CostPrice,
		Weight:            input.Weight,
		Quantity:          input.Quantity,
		LowStockThreshold: domain.DefaultLowStockThreshold,
		Active:            true,
		Lifecycle:         domain.LifecycleActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if input.LowStockThreshold != nil {
		sku.LowStockThreshold = *input.LowStockThreshold
	}

	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := liveProduct(ctx, tx, productID); err != nil {
			return err
		}
		if err := tx.Skus().Create(ctx, sku); err != nil {
			return err
		}
		if len(input.AttributeIDs) == 0 {
			return nil
		}
		if err := tx.Skus().LinkAttributes(ctx, sku.ID, input.AttributeIDs); err != nil {
			return err
		}
		reloaded, err := tx.Skus().FindByID(ctx, sku.ID)
		if err != nil {
			return err
		}
		sku = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sku, nil
}

// UpdateSku applies a partial update while holding the SKU row lock
func (s *catalogService) UpdateSku(ctx context.Context, id uuid.UUID, input SkuUpdate) (*domain.ProductSku, error) {
	var sku *domain.ProductSku
	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		sku, err = lockLiveSku(ctx, tx, id)
		if err != nil {
			return err
		}

		if input.Price != nil {
			if !input.Price.IsPositive() {
				return domain.ErrNonPositivePrice
			}
			sku.Price = *input.Price
		}
		if input.CompareAtPrice != nil {
			sku.CompareAtPrice = decimal.NewNullDecimal(*input.CompareAtPrice)
		}
		if input.CostPrice != nil {
			sku.CostPrice = decimal.NewNullDecimal(*input.CostPrice)
		}
		if input.Weight != nil {
			sku.Weight = decimal.NewNullDecimal(*input.Weight)
		}
		if input.Quantity != nil {
			if *input.Quantity < 0 {
				return domain.ErrNegativeStock
			}
			sku.Quantity = *input.Quantity
		}
		if input.LowStockThreshold != nil {
			sku.LowStockThreshold = *input.LowStockThreshold
		}
		if input.Active != nil {
			sku.Active = *input.Active
		}
		sku.UpdatedAt = s.now()

		return tx.Skus().Update(ctx, sku)
	})
	if err != nil {
		return nil, err
	}
	return sku, nil
}

// SetSkuStock sets an absolute quantity while holding the SKU row lock
func (s *catalogService) SetSkuStock(ctx context.Context, id uuid.UUID, quantity int) (*domain.ProductSku, error) {
	if quantity < 0 {
		return nil, domain.ErrNegativeStock
	}

	var sku *domain.ProductSku
	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		sku, err = lockLiveSku(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := tx.Skus().SetQuantity(ctx, id, quantity); err != nil {
			return err
		}
		sku.Quantity = quantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx, s.logger).Info("SKU stock set",
		zap.String("sku_id", id.String()),
		zap.Int("quantity", quantity),
	)
	return sku, nil
}

// GetSku returns a live SKU of a live product, attributes included
func (s *catalogService) GetSku(ctx context.Context, id uuid.UUID) (*domain.ProductSku, error) {
	sku, err := s.uow.Skus().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sku.Lifecycle.IsDeleted() {
		return nil, repository.ErrSkuNotFound
	}

	siblings, err := s.ListProductSkus(ctx, sku.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, repository.ErrSkuNotFound
		}
		return nil, err
	}
	for i := range siblings {
		if siblings[i].ID == id {
			return &siblings[i], nil
		}
	}
	return nil, repository.ErrSkuNotFound
}

func (s *catalogService) ListProductSkus(ctx context.Context, productID uuid.UUID) ([]domain.ProductSku, error) {
	if _, err := liveProduct(ctx, s.uow, productID); err != nil {
		return nil, err
	}
	return s.uow.Skus().ListByProduct(ctx, productID)
}

func lockLiveSku(ctx context.Context, store repository.Store, id uuid.UUID) (*domain.ProductSku, error) {
	sku, err := store.Skus().FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if sku.Lifecycle.IsDeleted() {
		return nil, repository.ErrSkuNotFound
	}
	return sku, nil
}

func (s *catalogService) DeleteSku(ctx context.Context, id uuid.UUID) error {
	return s.uow.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := lockLiveSku(ctx, tx, id); err != nil {
			return err
		}
		return tx.Skus().MarkDeleted(ctx, id, s.now())
	})
}

func (s *catalogService) LowStockSkus(ctx context.Context) ([]domain.ProductSku, error) {
	return s.uow.Skus().ListLowStock(ctx)
}

func (s *catalogService) OutOfStockSkus(ctx context.Context) ([]domain.ProductSku, error) {
	return s.uow.Skus().ListOutOfStock(ctx)
}

func (s *catalogService) CreateAttribute(ctx context.Context, input AttributeInput) (*domain.ProductAttribute, error) {
	attribute := &domain.ProductAttribute{
		ID:           uuid.New(),
		Type:         strings.ToUpper(strings.TrimSpace(input.Type)),
		Value:        strings.TrimSpace(input.Value),
		DisplayValue: input.DisplayValue,
		HexCode:      input.HexCode,
	}
	if attribute.DisplayValue == "" {
		attribute.DisplayValue = attribute.Value
	}
	if err := s.uow.Attributes().Create(ctx, attribute); err != nil {
		return nil, err
	}
	return attribute, nil
}

func (s *catalogService) ListAttributes(ctx context.Context) ([]domain.ProductAttribute, error) {
	return s.uow.Attributes().List(ctx)
}

// AddImage appends an image. The first image of a product always becomes primary.
func (s *catalogService) AddImage(ctx context.Context, productID uuid.UUID, input ImageInput) (*domain.ProductImage, error) {
	var image *domain.ProductImage
	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		product, err := liveProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		existing, err := tx.Images().ListByProduct(ctx, productID)
		if err != nil {
			return err
		}

		image = &domain.ProductImage{
			ID:           uuid.New(),
			ProductID:    productID,
			URL:          input.URL,
			AltText:      input.AltText,
			DisplayOrder: len(existing),
			CreatedAt:    s.now(),
		}
		if err := tx.Images().Create(ctx, image); err != nil {
			return err
		}

		if input.Primary || len(existing) == 0 {
			image.Primary = true
			return s.promote(ctx, tx, product, image)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

func (s *catalogService) SetPrimaryImage(ctx context.Context, productID, imageID uuid.UUID) (*domain.ProductImage, error) {
	var image *domain.ProductImage
	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		product, err := liveProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		image, err = productImage(ctx, tx, productID, imageID)
		if err != nil {
			return err
		}
		image.Primary = true
		return s.promote(ctx, tx, product, image)
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

// DeleteImage removes an image and hands the primary flag to the next image when needed
func (s *catalogService) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error {
	return s.uow.WithinTx(ctx, func(tx repository.Store) error {
		product, err := liveProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		image, err := productImage(ctx, tx, productID, imageID)
		if err != nil {
			return err
		}
		if err := tx.Images().Delete(ctx, imageID); err != nil {
			return err
		}
		if !image.Primary {
			return nil
		}

		remaining, err := tx.Images().ListByProduct(ctx, productID)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			product.CoverImage = ""
			product.UpdatedAt = s.now()
			return tx.Products().Update(ctx, product)
		}
		return s.promote(ctx, tx, product, &remaining[0])
	})
}

// promote makes image the product's only primary image and its cover
func (s *catalogService) promote(ctx context.Context, tx repository.Store, product *domain.Product, image *domain.ProductImage) error {
	if err := tx.Images().SetPrimary(ctx, product.ID, image.ID); err != nil {
		return err
	}
	product.CoverImage = image.URL
	product.UpdatedAt = s.now()
	return tx.Products().Update(ctx, product)
}

func productImage(ctx context.Context, store repository.Store, productID, imageID uuid.UUID) (*domain.ProductImage, error) {
	image, err := store.Images().FindByID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if image.ProductID != productID {
		return nil, repository.ErrImageNotFound
	}
	return image, nil
}
