package service

import (
	"context"
	"errors"
	"time"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/logger"
	"ecommerce-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartService manages the caller's shopping cart
type CartService interface {
	GetCart(ctx context.Context, principal domain.Principal) (*domain.Cart, error)
	AddItem(ctx context.Context, principal domain.Principal, skuID uuid.UUID, quantity int) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, principal domain.Principal, itemID uuid.UUID, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, principal domain.Principal, itemID uuid.UUID) (*domain.Cart, error)
	ClearCart(ctx context.Context, principal domain.Principal) error
}

type cartService struct {
	uow    repository.UnitOfWork
	logger *zap.Logger
	now    func() time.Time
}

func NewCartService(uow repository.UnitOfWork, logger *zap.Logger) CartService {
	return &cartService{uow: uow, logger: logger, now: time.Now}
}

func (s *cartService) GetCart(ctx context.Context, principal domain.Principal) (*domain.Cart, error) {
	return s.getOrCreate(ctx, s.uow, principal.UserID)
}

// getOrCreate loads the user's cart, creating an empty one on first use
func (s *cartService) getOrCreate(ctx context.Context, store repository.Store, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := store.Carts().FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrCartNotFound) {
		return nil, err
	}

	now := s.now()
	if err := store.Carts().Create(ctx, &domain.Cart{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return nil, err
	}
	return store.Carts().FindByUserID(ctx, userID)
}

// AddItem adds quantity of a SKU, merging with an existing line for the same SKU
func (s *cartService) AddItem(ctx context.Context, principal domain.Principal, skuID uuid.UUID, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var cart *domain.Cart
	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		sku, product, err := purchasableSku(ctx, tx, skuID)
		if err != nil {
			return err
		}

		cart, err = s.getOrCreate(ctx, tx, principal.UserID)
		if err != nil {
			return err
		}

		now := s.now()
		if existing, ok := cart.FindItemBySku(skuID); ok {
			merged := existing.Quantity + quantity
			if merged > sku.Quantity {
				return domain.InsufficientStockFor(product.Name)
			}
			// merging keeps the price captured when the line was first added
			if err := tx.Carts().UpdateItem(ctx, existing.ID, merged, existing.Price); err != nil {
				return err
			}
		} else {
			if quantity > sku.Quantity {
				return domain.InsufficientStockFor(product.Name)
			}
			item := &domain.CartItem{
				ID:        uuid.New(),
				SkuID:     sku.ID,
				Quantity:  quantity,
				Price:     sku.Price,
				CreatedAt: now,
			}
			if err := tx.Carts().AddItem(ctx, cart.ID, item); err != nil {
				return err
			}
		}

		if err := tx.Carts().Touch(ctx, cart.ID, now); err != nil {
			return err
		}
		cart, err = tx.Carts().FindByUserID(ctx, principal.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx, s.logger).Debug("Cart item added",
		zap.String("user_id", principal.UserID.String()),
		zap.String("sku_id", skuID.String()),
		zap.Int("quantity", quantity),
	)
	return cart, nil
}

// purchasableSku loads a SKU and its product, rejecting anything that cannot be bought
func purchasableSku(ctx context.Context, store repository.Store, skuID uuid.UUID) (*domain.ProductSku, *domain.Product, error) {
	sku, err := store.Skus().FindByID(ctx, skuID)
	if err != nil {
		return nil, nil, err
	}
	if !sku.Purchasable() {
		return nil, nil, domain.ErrProductUnavailable
	}
	product, err := store.Products().FindByID(ctx, sku.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if !product.Available() {
		return nil, nil, domain.ErrProductUnavailable
	}
	return sku, product, nil
}

// UpdateItemQuantity sets a line's quantity and refreshes its captured price
func (s *cartService) UpdateItemQuantity(ctx context.Context, principal domain.Principal, itemID uuid.UUID, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var cart *domain.Cart
	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		item, err := s.ownedItem(ctx, tx, principal, itemID)
		if err != nil {
			return err
		}

		sku, product, err := purchasableSku(ctx, tx, item.SkuID)
		if err != nil {
			return err
		}
		if quantity > sku.Quantity {
			return domain.InsufficientStockFor(product.Name)
		}

		if err := tx.Carts().UpdateItem(ctx, itemID, quantity, sku.Price); err != nil {
			return err
		}
		cart, err = tx.Carts().FindByUserID(ctx, principal.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, principal domain.Principal, itemID uuid.UUID) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := s.ownedItem(ctx, tx, principal, itemID); err != nil {
			return err
		}
		if err := tx.Carts().DeleteItem(ctx, itemID); err != nil {
			return err
		}
		var err error
		cart, err = tx.Carts().FindByUserID(ctx, principal.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) ClearCart(ctx context.Context, principal domain.Principal) error {
	cart, err := s.uow.Carts().FindByUserID(ctx, principal.UserID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.uow.Carts().Clear(ctx, cart.ID)
}

// ownedItem returns the line from the caller's own cart, Forbidden when it belongs to someone else
func (s *cartService) ownedItem(ctx context.Context, store repository.Store, principal domain.Principal, itemID uuid.UUID) (domain.CartItem, error) {
	owner, err := store.Carts().ItemOwner(ctx, itemID)
	if err != nil {
		return domain.CartItem{}, err
	}
	if owner != principal.UserID {
		return domain.CartItem{}, domain.ErrAccessDenied
	}

	cart, err := store.Carts().FindByUserID(ctx, owner)
	if err != nil {
		return domain.CartItem{}, err
	}
	item, ok := cart.FindItem(itemID)
	if !ok {
		return domain.CartItem{}, repository.ErrCartItemNotFound
	}
	return item, nil
}
