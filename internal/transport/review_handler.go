package transport

import (
	"net/http"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/middleware"
	"ecommerce-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReviewRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Rating    int    `json:"rating" validate:"required,gte=1,lte=5"`
	Title     string `json:"title" validate:"max=200"`
	Comment   string `json:"comment" validate:"max=2000"`
}

// EngagementHandler serves reviews and the wishlist
type EngagementHandler struct {
	reviews   service.ReviewService
	wishlists service.WishlistService
	logger    *zap.Logger
}

func NewEngagementHandler(reviews service.ReviewService, wishlists service.WishlistService, logger *zap.Logger) *EngagementHandler {
	return &EngagementHandler{reviews: reviews, wishlists: wishlists, logger: logger}
}

func (h *EngagementHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Get("/products/{id}/reviews", h.ListProductReviews)

	r.Route("/reviews", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.AddReview)
		r.With(adminMiddleware).Patch("/{id}/approve", h.ApproveReview)
		r.With(adminMiddleware).Delete("/{id}", h.DeleteReview)
	})

	r.Route("/wishlist", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetWishlist)
		r.Delete("/", h.ClearWishlist)
		r.Post("/items/{productId}", h.AddToWishlist)
		r.Delete("/items/{productId}", h.RemoveFromWishlist)
		r.Get("/items/{productId}/exists", h.WishlistContains)
	})
}

func (h *EngagementHandler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	page, err := h.reviews.GetProductReviews(r.Context(), productID, pageQuery(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "reviews", page)
}

func (h *EngagementHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req ReviewRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		respondError(w, r, h.logger, errInvalidID)
		return
	}

	review, err := h.reviews.AddReview(r.Context(), principal, service.ReviewInput{
		ProductID: productID,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, "review submitted for approval", review)
}

func (h *EngagementHandler) ApproveReview(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	review, err := h.reviews.ApproveReview(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "review approved", review)
}

func (h *EngagementHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.reviews.DeleteReview(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "review deleted", nil)
}

func (h *EngagementHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	wishlist, err := h.wishlists.Get(r.Context(), principal)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "wishlist", wishlist)
}

func (h *EngagementHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	h.withWishlistItem(w, r, func(principal domain.Principal, productID uuid.UUID) {
		wishlist, err := h.wishlists.AddItem(r.Context(), principal, productID)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, "added to wishlist", wishlist)
	})
}

func (h *EngagementHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	h.withWishlistItem(w, r, func(principal domain.Principal, productID uuid.UUID) {
		wishlist, err := h.wishlists.RemoveItem(r.Context(), principal, productID)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, "removed from wishlist", wishlist)
	})
}

func (h *EngagementHandler) WishlistContains(w http.ResponseWriter, r *http.Request) {
	h.withWishlistItem(w, r, func(principal domain.Principal, productID uuid.UUID) {
		exists, err := h.wishlists.Contains(r.Context(), principal, productID)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, "wishlist lookup", map[string]bool{"exists": exists})
	})
}

func (h *EngagementHandler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.wishlists.Clear(r.Context(), principal); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, "wishlist cleared", nil)
}

// withWishlistItem resolves the caller and the {productId} param before running fn
func (h *EngagementHandler) withWishlistItem(w http.ResponseWriter, r *http.Request, fn func(domain.Principal, uuid.UUID)) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	productID, err := uuidParam(r, "productId")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	fn(principal, productID)
}
