package transport

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/middleware"
	"ecommerce-api/internal/repository"
	"ecommerce-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description"`
	Summary     string   `json:"summary" validate:"max=500"`
	Brand       string   `json:"brand" validate:"max=100"`
	CoverImage  string   `json:"cover_image" validate:"omitempty,url"`
	Featured    bool     `json:"featured"`
	CategoryIDs []string `json:"category_ids" validate:"dive,uuid"`
}

type UpdateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=255"`
	Description *string  `json:"description"`
	Summary     *string  `json:"summary" validate:"omitempty,max=500"`
	Brand       *string  `json:"brand" validate:"omitempty,max=100"`
	Active      *bool    `json:"active"`
	Featured    *bool    `json:"featured"`
	CategoryIDs []string `json:"category_ids" validate:"omitempty,dive,uuid"`
}

// Money fields are range-checked by the catalog service
type CreateSkuRequest struct {
	SkuCode           string              `json:"sku_code" validate:"required,max=100"`
	Price             decimal.Decimal     `json:"price"`
	CompareAtPrice    decimal.NullDecimal `json:"compare_at_price"`
	CostPrice         decimal.NullDecimal `json:"cost_price"`
	Weight            decimal.NullDecimal `json:"weight"`
	Quantity          int                 `json:"quantity" validate:"gte=0"`
	LowStockThreshold *int                `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	AttributeIDs      []string            `json:"attribute_ids" validate:"dive,uuid"`
}

type UpdateSkuRequest struct {
	Price             *decimal.Decimal `json:"price"`
	CompareAtPrice    *decimal.Decimal `json:"compare_at_price"`
	CostPrice         *decimal.Decimal `json:"cost_price"`
	Weight            *decimal.Decimal `json:"weight"`
	Quantity          *int             `json:"quantity" validate:"omitempty,gte=0"`
	LowStockThreshold *int             `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	Active            *bool            `json:"active"`
}

type StockRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

type AttributeRequest struct {
	Type         string `json:"type" validate:"required,max=50"`
	Value        string `json:"value" validate:"required,max=100"`
	DisplayValue string `json:"display_value" validate:"max=100"`
	HexCode      string `json:"hex_code" validate:"omitempty,hexcolor"`
}

// SearchProductsRequest carries the structured product search. Paging stays in the query string.
type SearchProductsRequest struct {
	Keyword     string           `json:"keyword" validate:"max=255"`
	CategoryIDs []string         `json:"category_ids" validate:"dive,uuid"`
	MinPrice    *decimal.Decimal `json:"min_price"`
	MaxPrice    *decimal.Decimal `json:"max_price"`
	Brand       string           `json:"brand" validate:"max=100"`
	Featured    *bool            `json:"featured"`
	SortBy      string           `json:"sort_by" validate:"omitempty,oneof=createdAt name price popularity"`
	SortDir     string           `json:"sort_direction" validate:"omitempty,oneof=asc desc ASC DESC"`
}

type ImageRequest struct {
	URL     string `json:"url" validate:"required,url"`
	AltText string `json:"alt_text" validate:"max=255"`
	Primary bool   `json:"primary"`
}

// skuView adds the derived stock and discount fields to a SKU
type skuView struct {
	domain.ProductSku
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	LowStock           bool            `json:"low_stock"`
	OutOfStock         bool            `json:"out_of_stock"`
}

func newSkuView(sku domain.ProductSku) skuView {
	return skuView{
		ProductSku:         sku,
		DiscountPercentage: sku.DiscountPercentage(),
		LowStock:           sku.IsLowStock(),
		OutOfStock:         sku.IsOutOfStock(),
	}
}

func newSkuViews(skus []domain.ProductSku) []skuView {
	views := make([]skuView, 0, len(skus))
	for _, sku := range skus {
		views = append(views, newSkuView(sku))
	}
	return views
}

type productView struct {
	*domain.Product
	Skus       []skuView       `json:"skus"`
	TotalStock int             `json:"total_stock"`
	MinPrice   decimal.Decimal `json:"min_price"`
}

func newProductView(product *domain.Product) productView {
	return productView{
		Product:    product,
		Skus:       newSkuViews(product.Skus),
		TotalStock: product.TotalStock(),
		MinPrice:   product.MinPrice(),
	}
}

// CatalogHandler serves categories, products, SKUs, attributes and images
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes mounts public reads directly and writes behind auth and admin
func (h *CatalogHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Get("/categories", h.ListCategories)
	r.Get("/categories/{id}", h.GetCategory)
	r.Get("/categories/{id}/subcategories", h.ListSubCategories)

	r.Get("/products", h.ListProducts)
	r.Post("/products/search", h.SearchProducts)
	r.Get("/products/featured", h.FeaturedProducts)
	r.Get("/products/brands", h.ListBrands)
	r.Get("/products/{id}", h.GetProduct)
	r.Get("/products/slug/{slug}", h.GetProductBySlug)
	r.Get("/products/{id}/skus", h.ListProductSkus)
	r.Get("/products/skus/{id}", h.GetSku)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, adminMiddleware)

		r.Post("/categories", h.CreateCategory)
		r.Put("/categories/{id}", h.UpdateCategory)
		r.Delete("/categories/{id}", h.DeleteCategory)
		r.Post("/categories/{id}/subcategories", h.CreateSubCategory)
		r.Put("/categories/subcategories/{id}", h.UpdateSubCategory)
		r.Delete("/categories/subcategories/{id}", h.DeleteSubCategory)

		r.Post("/products", h.CreateProduct)
		r.Put("/products/{id}", h.UpdateProduct)
		r.Delete("/products/{id}", h.DeleteProduct)
		r.Patch("/products/{id}/featured", h.ToggleFeatured)
		r.Patch("/products/{id}/active", h.ToggleActive)

		r.Post("/products/{id}/skus", h.AddSku)
		r.Put("/skus/{id}", h.UpdateSku)
		r.Patch("/skus/{id}/stock", h.SetSkuStock)
		r.Delete("/skus/{id}", h.DeleteSku)
		r.Get("/skus/low-stock", h.LowStockSkus)
		r.Get("/skus/out-of-stock", h.OutOfStockSkus)

		r.Post("/attributes", h.CreateAttribute)
		r.Get("/attributes", h.ListAttributes)

		r.Post("/products/{id}/images", h.AddImage)
		r.Patch("/products/{id}/images/{imageId}/primary", h.SetPrimaryImage)
		r.Delete("/products/{id}/images/{imageId}", h.DeleteImage)
	})
}

// productFilter reads q (or keyword), brand, featured, minPrice, maxPrice and
// categoryId, which may repeat or be given as a comma-separated categoryIds
func productFilter(q url.Values) (repository.ProductFilter, error) {
	filter := repository.ProductFilter{
		Search: q.Get("q"),
		Brand:  q.Get("brand"),
	}
	if filter.Search == "" {
		filter.Search = q.Get("keyword")
	}

	rawIDs := append([]string{}, q["categoryId"]...)
	if joined := q.Get("categoryIds"); joined != "" {
		for _, part := range strings.Split(joined, ",") {
			rawIDs = append(rawIDs, strings.TrimSpace(part))
		}
	}
	ids, err := parseIDs(rawIDs)
	if err != nil {
		return filter, err
	}
	if len(ids) > 0 {
		filter.CategoryIDs = ids
	}

	if raw := q.Get("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, domain.Validation("invalid featured flag: " + raw)
		}
		filter.Featured = &featured
	}
	if filter.MinPrice, err = priceParam(q, "minPrice"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = priceParam(q, "maxPrice"); err != nil {
		return filter, err
	}
	return filter, nil
}

func priceParam(q url.Values, name string) (*decimal.Decimal, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domain.Validation("invalid " + name + ": " + raw)
	}
	return &price, nil
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilter(r.URL.Query())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.respondProducts(w, r, pageQuery(r), filter)
}

// SearchProducts takes the filter from the body; sort_by and sort_direction override the query string
func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	var req SearchProductsRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}
	categoryIDs, err := parseIDs(req.CategoryIDs)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	page := pageQuery(r)
	if req.SortBy != "" {
		page.SortBy = req.SortBy
	}
	if req.SortDir != "" {
		page.SortDir = domain.SortDirection(strings.ToUpper(req.SortDir))
	}

	filter := repository.ProductFilter{
		Search:   req.Keyword,
		Brand:    req.Brand,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
		Featured: req.Featured,
	}
	if len(categoryIDs) > 0 {
		filter.CategoryIDs = categoryIDs
	}
	h.respondProducts(w, r, page, filter)
}

func (h *CatalogHandler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	featured := true
	h.respondProducts(w, r, pageQuery(r), repository.ProductFilter{Featured: &featured})
}

func (h *CatalogHandler) respondProducts(w http.ResponseWriter, r *http.Request, query domain.PageQuery, filter repository.ProductFilter) {
	page, err := h.catalog.ListProducts(r.Context(), query, filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	views := make([]productView, 0, len(page.Content))
	for _, product := range page.Content {
		views = append(views, newProductView(product))
	}
	middleware.RespondWithJSON(w, http.StatusOK, "products", domain.Page[productView]{
		Content:       views,
		PageNo:        page.PageNo,
		PageSize:      page.PageSize,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
		Last:          page.Last,
	})
}

func (h *CatalogHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.catalog.ListBrands(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "brands", brands)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "product", newProductView(product))
}

func (h *CatalogHandler) GetProductBySlug(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "product", newProductView(product))
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}
	categoryIDs, err := parseIDs(req.CategoryIDs)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Summary:     req.Summary,
		Brand:       req.Brand,
		CoverImage:  req.CoverImage,
		Featured:    req.Featured,
		CategoryIDs: categoryIDs,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, "product created", newProductView(product))
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	update := service.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Summary:     req.Summary,
		Brand:       req.Brand,
		Active:      req.Active,
		Featured:    req.Featured,
	}
	// an absent list leaves categories untouched, an empty one clears them
	if req.CategoryIDs != nil {
		if update.CategoryIDs, err = parseIDs(req.CategoryIDs); err != nil {
			respondError(w, r, h.logger, err)
			return
		}
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, update)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "product updated", newProductView(product))
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "product deleted", nil)
}

func (h *CatalogHandler) ToggleFeatured(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.catalog.ToggleFeatured, "featured flag toggled")
}

func (h *CatalogHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.catalog.ToggleActive, "active flag toggled")
}

func (h *CatalogHandler) toggle(w http.ResponseWriter, r *http.Request, flip func(context.Context, uuid.UUID) (*domain.Product, error), msg string) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	product, err := flip(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, msg, newProductView(product))
}

func (h *CatalogHandler) GetSku(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	sku, err := h.catalog.GetSku(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "sku", newSkuView(*sku))
}

func (h *CatalogHandler) ListProductSkus(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	skus, err := h.catalog.ListProductSkus(r.Context(), productID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "skus", newSkuViews(skus))
}

func (h *CatalogHandler) AddSku(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req CreateSkuRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}
	attributeIDs, err := parseIDs(req.AttributeIDs)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	sku, err := h.catalog.AddSku(r.Context(), productID, service.SkuInput{
		SkuCode:           req.SkuCode,
		Price:             req.Price,
		CompareAtPrice:    req.CompareAtPrice,
		CostPrice:         req.CostPrice,
		Weight:            req.Weight,
		Quantity:          req.Quantity,
		LowStockThreshold: req.LowStockThreshold,
		AttributeIDs:      attributeIDs,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, "sku created", newSkuView(*sku))
}

func (h *CatalogHandler) UpdateSku(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req UpdateSkuRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	sku, err := h.catalog.UpdateSku(r.Context(), id, service.SkuUpdate{
		Price:             req.Price,
		CompareAtPrice:    req.CompareAtPrice,
		CostPrice:         req.CostPrice,
		Weight:            req.Weight,
		Quantity:          req.Quantity,
		LowStockThreshold: req.LowStockThreshold,
		Active:            req.Active,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "sku updated", newSkuView(*sku))
}

func (h *CatalogHandler) SetSkuStock(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req StockRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	sku, err := h.catalog.SetSkuStock(r.Context(), id, *req.Quantity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "stock updated", newSkuView(*sku))
}

func (h *CatalogHandler) DeleteSku(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.catalog.DeleteSku(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "sku deleted", nil)
}

func (h *CatalogHandler) LowStockSkus(w http.ResponseWriter, r *http.Request) {
	skus, err := h.catalog.LowStockSkus(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "low stock skus", newSkuViews(skus))
}

func (h *CatalogHandler) OutOfStockSkus(w http.ResponseWriter, r *http.Request) {
	skus, err := h.catalog.OutOfStockSkus(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "out of stock skus", newSkuViews(skus))
}

func (h *CatalogHandler) CreateAttribute(w http.ResponseWriter, r *http.Request) {
	var req AttributeRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	attribute, err := h.catalog.CreateAttribute(r.Context(), service.AttributeInput{
		Type:         req.Type,
		Value:        req.Value,
		DisplayValue: req.DisplayValue,
		HexCode:      req.HexCode,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, "attribute created", attribute)
}

func (h *CatalogHandler) ListAttributes(w http.ResponseWriter, r *http.Request) {
	attributes, err := h.catalog.ListAttributes(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "attributes", attributes)
}

func (h *CatalogHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req ImageRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	image, err := h.catalog.AddImage(r.Context(), productID, service.ImageInput{
		URL:     req.URL,
		AltText: req.AltText,
		Primary: req.Primary,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, "image added", image)
}

func (h *CatalogHandler) SetPrimaryImage(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	imageID, err := uuidParam(r, "imageId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	image, err := h.catalog.SetPrimaryImage(r.Context(), productID, imageID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "primary image set", image)
}

func (h *CatalogHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	imageID, err := uuidParam(r, "imageId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.catalog.DeleteImage(r.Context(), productID, imageID); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "image deleted", nil)
}
