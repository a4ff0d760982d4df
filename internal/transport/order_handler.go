package transport

import (
	"net/http"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/middleware"
	"ecommerce-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateOrderRequest places an order from the caller's cart. Adjustments default to zero.
type CreateOrderRequest struct {
	PaymentMethod string          `json:"payment_method" validate:"required"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	Tax           decimal.Decimal `json:"tax"`
	Discount      decimal.Decimal `json:"discount"`
	Name          string          `json:"shipping_name" validate:"required,max=100"`
	Phone         string          `json:"shipping_phone" validate:"required,max=20"`
	Line1         string          `json:"shipping_address_line_1" validate:"required,max=255"`
	Line2         string          `json:"shipping_address_line_2" validate:"max=255"`
	City          string          `json:"shipping_city" validate:"required,max=100"`
	Country       string          `json:"shipping_country" validate:"required,max=100"`
	PostalCode    string          `json:"shipping_postal_code" validate:"required,max=20"`
	Notes         string          `json:"notes" validate:"max=1000"`
}

type UpdateOrderStatusRequest struct {
	Status        string  `json:"status" validate:"required"`
	PaymentStatus *string `json:"payment_status"`
}

type OrderHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.CreateOrder)
		r.Get("/my-orders", h.GetMyOrders)
		r.Get("/{id}", h.GetOrder)
		r.Patch("/{id}/cancel", h.CancelOrder)

		r.With(adminMiddleware).Get("/", h.GetAllOrders)
		r.With(adminMiddleware).Patch("/{id}/status", h.UpdateStatus)
	})
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req CreateOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), principal, service.CreateOrderInput{
		PaymentMethod: method,
		ShippingCost:  req.ShippingCost,
		Tax:           req.Tax,
		Discount:      req.Discount,
		Shipping: domain.ShippingAddress{
			Name:       req.Name,
			Phone:      req.Phone,
			Line1:      req.Line1,
			Line2:      req.Line2,
			City:       req.City,
			Country:    req.Country,
			PostalCode: req.PostalCode,
		},
		Notes: req.Notes,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, "order placed", order)
}

func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	page, err := h.orders.GetUserOrders(r.Context(), principal, pageQuery(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "orders", page)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	order, err := h.orders.GetOrderByID(r.Context(), principal, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "order", order)
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	order, err := h.orders.CancelOrder(r.Context(), principal, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "order cancelled", order)
}

// GetAllOrders lists every order, optionally filtered by ?status=
func (h *OrderHandler) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	var status *domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := domain.ParseOrderStatus(raw)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		status = &parsed
	}

	page, err := h.orders.GetAllOrders(r.Context(), pageQuery(r), status)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "orders", page)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	input := service.UpdateStatusInput{Status: status}
	if req.PaymentStatus != nil {
		paymentStatus, err := domain.ParsePaymentStatus(*req.PaymentStatus)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		input.PaymentStatus = &paymentStatus
	}

	order, err := h.orders.UpdateOrderStatus(r.Context(), id, input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "order status updated", order)
}
