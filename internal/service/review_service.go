package service

import (
	"context"
	"strings"
	"time"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/logger"
	"ecommerce-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultReviewSort = "createdAt"

// ReviewService handles product reviews and their moderation
type ReviewService interface {
	AddReview(ctx context.Context, principal domain.Principal, input ReviewInput) (*domain.Review, error)
	ApproveReview(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	DeleteReview(ctx context.Context, id uuid.UUID) error
	GetProductReviews(ctx context.Context, productID uuid.UUID, page domain.PageQuery) (domain.Page[*domain.Review], error)
}

type ReviewInput struct {
	ProductID uuid.UUID
	Rating    int
	Title     string
	Comment   string
}

type reviewService struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewReviewService(store repository.Store, logger *zap.Logger) ReviewService {
	return &reviewService{store: store, logger: logger, now: time.Now}
}

// AddReview stores an unapproved review, flagged as verified when the caller received the product
func (s *reviewService) AddReview(ctx context.Context, principal domain.Principal, input ReviewInput) (*domain.Review, error) {
	if input.Rating < domain.MinRating || input.Rating > domain.MaxRating {
		return nil, domain.ErrInvalidRating
	}

	product, err := s.store.Products().FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product.Lifecycle.IsDeleted() {
		return nil, repository.ErrProductNotFound
	}

	exists, err := s.store.Reviews().Exists(ctx, input.ProductID, principal.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrAlreadyReviewed
	}

	user, err := s.store.Users().FindByID(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	verified, err := s.store.Orders().HasDeliveredPurchase(ctx, principal.UserID, input.ProductID)
	if err != nil {
		return nil, err
	}

	review := &domain.Review{
		ID:               uuid.New(),
		ProductID:        input.ProductID,
		UserID:           principal.UserID,
		Username:         user.Username,
		Rating:           input.Rating,
		Title:            strings.TrimSpace(input.Title),
		Comment:          input.Comment,
		VerifiedPurchase: verified,
		CreatedAt:        s.now(),
	}
	if err := s.store.Reviews().Create(ctx, review); err != nil {
		return nil, err
	}

	logger.FromCtx(ctx, s.logger).Info("Review submitted",
		zap.String("review_id", review.ID.String()),
		zap.String("product_id", review.ProductID.String()),
		zap.Bool("verified_purchase", verified),
	)
	return review, nil
}

func (s *reviewService) ApproveReview(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	if err := s.store.Reviews().Approve(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Reviews().FindByID(ctx, id)
}

func (s *reviewService) DeleteReview(ctx context.Context, id uuid.UUID) error {
	return s.store.Reviews().Delete(ctx, id)
}

func (s *reviewService) GetProductReviews(ctx context.Context, productID uuid.UUID, page domain.PageQuery) (domain.Page[*domain.Review], error) {
	page = page.Normalize(defaultReviewSort)
	reviews, total, err := s.store.Reviews().ListApprovedByProduct(ctx, productID, page)
	if err != nil {
		return domain.Page[*domain.Review]{}, err
	}
	return domain.NewPage(reviews, page, total), nil
}
