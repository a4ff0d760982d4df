package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Store groups the repositories bound to one connection or transaction
type Store interface {
	Users() UserRepository
	RefreshTokens() RefreshTokenRepository
	Addresses() AddressRepository
	Categories() CategoryRepository
	SubCategories() SubCategoryRepository
	Products() ProductRepository
	Skus() SkuRepository
	Attributes() AttributeRepository
	Images() ImageRepository
	Carts() CartRepository
	Orders() OrderRepository
	Reviews() ReviewRepository
	Wishlists() WishlistRepository
}

// UnitOfWork runs a function against a transactional Store.
// The transaction commits when fn returns nil and rolls back on error or panic.
type UnitOfWork interface {
	Store
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	db DBTX
}

func newStore(db DBTX) *store {
	return &store{db: db}
}

func (s *store) Users() UserRepository { return NewUserRepository(s.db) }
func (s *store) RefreshTokens() RefreshTokenRepository { return NewRefreshTokenRepository(s.db) }
func (s *store) Addresses() AddressRepository { return NewAddressRepository(s.db) }
func (s *store) Categories() CategoryRepository { return NewCategoryRepository(s.db) }
func (s *store) SubCategories() SubCategoryRepository { return NewSubCategoryRepository(s.db) }
func (s *store) Products() ProductRepository { return NewProductRepository(s.db) }
func (s *store) Skus() SkuRepository { return NewSkuRepository(s.db) }
func (s *store) Attributes() AttributeRepository { return NewAttributeRepository(s.db) }
func (s *store) Images() ImageRepository { return NewImageRepository(s.db) }
func (s *store) Carts() CartRepository { return NewCartRepository(s.db) }
func (s *store) Orders() OrderRepository { return NewOrderRepository(s.db) }
func (s *store) Reviews() ReviewRepository { return NewReviewRepository(s.db) }
func (s *store) Wishlists() WishlistRepository { return NewWishlistRepository(s.db) }

type unitOfWork struct {
	*store
	db *sql.DB
}

// NewUnitOfWork creates a UnitOfWork over the connection pool
func NewUnitOfWork(db *sql.DB) UnitOfWork {
	return &unitOfWork{store: newStore(db), db: db}
}

func (u *unitOfWork) WithinTx(ctx context.Context, fn func(tx Store) error) (err error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newStore(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
