package service

import (
	"context"
	"testing"
	"time"

	"ecommerce-api/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testShipping = domain.ShippingAddress{
	Name:       "Jane Doe",
	Phone:      "555-0100",
	Line1:      "1 Main St",
	City:       "Springfield",
	Country:    "US",
	PostalCode: "12345",
}

func seedUser(t testing.TB, uow *memUnitOfWork, role domain.Role) *domain.User {
	t.Helper()
	suffix := uuid.NewString()[:8]
	user := &domain.User{
		ID:        uuid.New(),
		Username:  "user_" + suffix,
		Email:     "user_" + suffix + "@example.com",
		Role:      role,
		Gender:    domain.GenderUnspecified,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, uow.Users().Create(context.Background(), user))
	return user
}

func principalOf(user *domain.User) domain.Principal {
	return domain.Principal{UserID: user.ID, Role: user.Role}
}

func seedProduct(t testing.TB, uow *memUnitOfWork, name string) *domain.Product {
	t.Helper()
	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Slug:      domain.Slugify(name) + "-" + uuid.NewString()[:8],
		Active:    true,
		Lifecycle: domain.LifecycleActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, uow.Products().Create(context.Background(), product))
	return product
}

func seedSku(t testing.TB, uow *memUnitOfWork, product *domain.Product, quantity int, price string) *domain.ProductSku {
	t.Helper()
	now := time.Now()
	sku := &domain.ProductSku{
		ID:                uuid.New(),
		ProductID:         product.ID,
		SkuCode:           "SKU-" + uuid.NewString()[:8],
		Price:             decimal.RequireFromString(price),
		Quantity:          quantity,
		LowStockThreshold: domain.DefaultLowStockThreshold,
		Active:            true,
		Lifecycle:         domain.LifecycleActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, uow.Skus().Create(context.Background(), sku))
	return sku
}

// putInCart writes a cart line directly, bypassing the stock check done by CartService
func putInCart(t testing.TB, uow *memUnitOfWork, user *domain.User, sku *domain.ProductSku, quantity int) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, uow.Carts().Create(ctx, &domain.Cart{ID: uuid.New(), UserID: user.ID, CreatedAt: now, UpdatedAt: now}))
	cart, err := uow.Carts().FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, uow.Carts().AddItem(ctx, cart.ID, &domain.CartItem{
		ID:        uuid.New(),
		SkuID:     sku.ID,
		Quantity:  quantity,
		Price:     sku.Price,
		CreatedAt: now,
	}))
}

func stockOf(t testing.TB, uow *memUnitOfWork, sku *domain.ProductSku) int {
	t.Helper()
	reloaded, err := uow.Skus().FindByID(context.Background(), sku.ID)
	require.NoError(t, err)
	return reloaded.Quantity
}

func orderInput() CreateOrderInput {
	return CreateOrderInput{
		PaymentMethod: domain.PaymentMethodCashOnDelivery,
		Shipping:      testShipping,
	}
}
