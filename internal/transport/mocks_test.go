package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/middleware"
	"ecommerce-api/internal/repository"
	"ecommerce-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "transport-test-secret"

// --- Mocks ---

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, input service.RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, email, password string) (string, string, *domain.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(2) == nil {
		return "", "", nil, args.Error(3)
	}
	return args.String(0), args.String(1), args.Get(2).(*domain.User), args.Error(3)
}

func (m *MockUserService) Logout(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func (m *MockUserService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockUserService) ValidateToken(tokenString string) (*service.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Claims), args.Error(1)
}

func (m *MockUserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID uuid.UUID, input service.ProfileInput) (*domain.User, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, principal domain.Principal, input service.CreateOrderInput) (*domain.Order, error) {
	args := m.Called(ctx, principal, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderService) GetOrderByID(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, principal, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderService) GetUserOrders(ctx context.Context, principal domain.Principal, page domain.PageQuery) (domain.Page[*domain.Order], error) {
	args := m.Called(ctx, principal, page)
	return args.Get(0).(domain.Page[*domain.Order]), args.Error(1)
}

func (m *MockOrderService) GetAllOrders(ctx context.Context, page domain.PageQuery, status *domain.OrderStatus) (domain.Page[*domain.Order], error) {
	args := m.Called(ctx, page, status)
	return args.Get(0).(domain.Page[*domain.Order]), args.Error(1)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, principal, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, input service.UpdateStatusInput) (*domain.Order, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) GetCart(ctx context.Context, principal domain.Principal) (*domain.Cart, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, principal domain.Principal, skuID uuid.UUID, quantity int) (*domain.Cart, error) {
	args := m.Called(ctx, principal, skuID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartService) UpdateItemQuantity(ctx context.Context, principal domain.Principal, itemID uuid.UUID, quantity int) (*domain.Cart, error) {
	args := m.Called(ctx, principal, itemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, principal domain.Principal, itemID uuid.UUID) (*domain.Cart, error) {
	args := m.Called(ctx, principal, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartService) ClearCart(ctx context.Context, principal domain.Principal) error {
	return m.Called(ctx, principal).Error(0)
}

// --- Helpers ---

// MockCatalogService mocks the catalog reads and writes the handler tests exercise.
// Calls to any other method panic on the nil embedded interface.
type MockCatalogService struct {
	mock.Mock
	service.CatalogService
}

func (m *MockCatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) CreateSubCategory(ctx context.Context, categoryID uuid.UUID, name, description string) (*domain.SubCategory, error) {
	args := m.Called(ctx, categoryID, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubCategory), args.Error(1)
}

func (m *MockCatalogService) UpdateSubCategory(ctx context.Context, id uuid.UUID, name, description string) (*domain.SubCategory, error) {
	args := m.Called(ctx, id, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubCategory), args.Error(1)
}

func (m *MockCatalogService) DeleteSubCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) ListSubCategories(ctx context.Context, categoryID uuid.UUID) ([]domain.SubCategory, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SubCategory), args.Error(1)
}

func (m *MockCatalogService) ListProducts(ctx context.Context, page domain.PageQuery, filter repository.ProductFilter) (domain.Page[*domain.Product], error) {
	args := m.Called(ctx, page, filter)
	return args.Get(0).(domain.Page[*domain.Product]), args.Error(1)
}

func (m *MockCatalogService) ListBrands(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalogService) ToggleFeatured(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockCatalogService) ToggleActive(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockCatalogService) GetSku(ctx context.Context, id uuid.UUID) (*domain.ProductSku, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductSku), args.Error(1)
}

func (m *MockCatalogService) ListProductSkus(ctx context.Context, productID uuid.UUID) ([]domain.ProductSku, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProductSku), args.Error(1)
}

func bearer(t *testing.T, principal domain.Principal) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": principal.UserID.String(),
		"role":    string(principal.Role),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

type (
	chiRouter      = chi.Router
	middlewareFunc = func(http.Handler) http.Handler
)

// newTestRouter mounts handlers under /api/v1 with the real auth and admin middleware
func newTestRouter(register func(r chiRouter, auth, admin middlewareFunc)) http.Handler {
	logger := zap.NewNop()
	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		register(r, middleware.AuthMiddleware(testSecret, logger), middleware.RequireAdmin(logger))
	})
	return router
}

// envelope mirrors middleware.Response with the data payload left raw
type envelope struct {
	Success bool                         `json:"success"`
	Status  int                          `json:"status"`
	Message string                       `json:"message"`
	Data    json.RawMessage              `json:"data"`
	Path    string                       `json:"path"`
	Errors  []middleware.ValidationError `json:"errors"`
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}
