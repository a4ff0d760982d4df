package transport

import (
	"net/http"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/middleware"
	"ecommerce-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AddCartItemRequest struct {
	SkuID    string `json:"sku_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type cartItemView struct {
	domain.CartItem
	Subtotal decimal.Decimal `json:"subtotal"`
	InStock  bool            `json:"in_stock"`
}

type cartView struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Items     []cartItemView  `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

func newCartView(cart *domain.Cart) cartView {
	items := make([]cartItemView, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemView{
			CartItem: item,
			Subtotal: item.Subtotal(),
			InStock:  item.InStock(),
		})
	}
	return cartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     items,
		Total:     cart.Total(),
		ItemCount: cart.ItemCount(),
	}
}

type CartHandler struct {
	carts  service.CartService
	logger *zap.Logger
}

func NewCartHandler(carts service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{itemId}", h.UpdateItem)
		r.Delete("/items/{itemId}", h.RemoveItem)
	})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	cart, err := h.carts.GetCart(r.Context(), principal)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "cart", newCartView(cart))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req AddCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	skuID, err := uuid.Parse(req.SkuID)
	if err != nil {
		respondError(w, r, h.logger, errInvalidID)
		return
	}

	cart, err := h.carts.AddItem(r.Context(), principal, skuID, req.Quantity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "item added to cart", newCartView(cart))
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	itemID, err := uuidParam(r, "itemId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req UpdateCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	cart, err := h.carts.UpdateItemQuantity(r.Context(), principal, itemID, req.Quantity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "cart item updated", newCartView(cart))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	itemID, err := uuidParam(r, "itemId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), principal, itemID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "cart item removed", newCartView(cart))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.carts.ClearCart(r.Context(), principal); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "cart cleared", nil)
}
