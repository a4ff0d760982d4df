package service

import (
	"context"
	"errors"
	"time"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/repository"

	"github.com/google/uuid"
)

// WishlistService manages the caller's saved products
type WishlistService interface {
	Get(ctx context.Context, principal domain.Principal) (*domain.Wishlist, error)
	AddItem(ctx context.Context, principal domain.Principal, productID uuid.UUID) (*domain.Wishlist, error)
	RemoveItem(ctx context.Context, principal domain.Principal, productID uuid.UUID) (*domain.Wishlist, error)
	Contains(ctx context.Context, principal domain.Principal, productID uuid.UUID) (bool, error)
	Clear(ctx context.Context, principal domain.Principal) error
}

type wishlistService struct {
	store repository.Store
	now   func() time.Time
}

func NewWishlistService(store repository.Store) WishlistService {
	return &wishlistService{store: store, now: time.Now}
}

func (s *wishlistService) Get(ctx context.Context, principal domain.Principal) (*domain.Wishlist, error) {
	wishlist, err := s.store.Wishlists().FindByUserID(ctx, principal.UserID)
	if err == nil {
		return wishlist, nil
	}
	if !errors.Is(err, repository.ErrWishlistNotFound) {
		return nil, err
	}

	now := s.now()
	if err := s.store.Wishlists().Create(ctx, &domain.Wishlist{
		ID:        uuid.New(),
		UserID:    principal.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return nil, err
	}
	return s.store.Wishlists().FindByUserID(ctx, principal.UserID)
}

func (s *wishlistService) AddItem(ctx context.Context, principal domain.Principal, productID uuid.UUID) (*domain.Wishlist, error) {
	product, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Available() {
		return nil, domain.ErrProductUnavailable
	}

	wishlist, err := s.Get(ctx, principal)
	if err != nil {
		return nil, err
	}
	if wishlist.Contains(productID) {
		return nil, domain.ErrAlreadyInWishlist
	}

	if err := s.store.Wishlists().AddItem(ctx, wishlist.ID, productID, s.now()); err != nil {
		return nil, err
	}
	return s.store.Wishlists().FindByUserID(ctx, principal.UserID)
}

func (s *wishlistService) RemoveItem(ctx context.Context, principal domain.Principal, productID uuid.UUID) (*domain.Wishlist, error) {
	wishlist, err := s.store.Wishlists().FindByUserID(ctx, principal.UserID)
	if errors.Is(err, repository.ErrWishlistNotFound) {
		return nil, repository.ErrWishlistItemNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.Wishlists().RemoveItem(ctx, wishlist.ID, productID); err != nil {
		return nil, err
	}
	return s.store.Wishlists().FindByUserID(ctx, principal.UserID)
}

func (s *wishlistService) Contains(ctx context.Context, principal domain.Principal, productID uuid.UUID) (bool, error) {
	wishlist, err := s.store.Wishlists().FindByUserID(ctx, principal.UserID)
	if errors.Is(err, repository.ErrWishlistNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return wishlist.Contains(productID), nil
}

func (s *wishlistService) Clear(ctx context.Context, principal domain.Principal) error {
	wishlist, err := s.store.Wishlists().FindByUserID(ctx, principal.UserID)
	if errors.Is(err, repository.ErrWishlistNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.store.Wishlists().Clear(ctx, wishlist.ID)
}
