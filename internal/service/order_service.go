package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/logger"
	"ecommerce-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultOrderSort = "createdAt"

// OrderService places, reads and transitions orders.
// Placing and cancelling an order move SKU stock inside the same transaction as the order write.
type OrderService interface {
	CreateOrder(ctx context.Context, principal domain.Principal, input CreateOrderInput) (*domain.Order, error)
	GetOrderByID(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Order, error)
	GetUserOrders(ctx context.Context, principal domain.Principal, page domain.PageQuery) (domain.Page[*domain.Order], error)
	GetAllOrders(ctx context.Context, page domain.PageQuery, status *domain.OrderStatus) (domain.Page[*domain.Order], error)
	CancelOrder(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, input UpdateStatusInput) (*domain.Order, error)
}

type CreateOrderInput struct {
	PaymentMethod domain.PaymentMethod
	ShippingCost  decimal.Decimal
	Tax           decimal.Decimal
	Discount      decimal.Decimal
	Shipping      domain.ShippingAddress
	Notes         string
}

type UpdateStatusInput struct {
	Status        domain.OrderStatus
	PaymentStatus *domain.PaymentStatus
}

type orderService struct {
	uow    repository.UnitOfWork
	logger *zap.Logger
	now    func() time.Time
}

func NewOrderService(uow repository.UnitOfWork, logger *zap.Logger) OrderService {
	return &orderService{uow: uow, logger: logger, now: time.Now}
}

// CreateOrder converts the caller's cart into a PENDING order.
// Every line is validated against row-locked stock before anything is written, so a failing
// line leaves stock, cart and orders untouched.
func (s *orderService) CreateOrder(ctx context.Context, principal domain.Principal, input CreateOrderInput) (*domain.Order, error) {
	if input.ShippingCost.IsNegative() || input.Tax.IsNegative() || input.Discount.IsNegative() {
		return nil, domain.ErrNegativeAdjustments
	}

	log := logger.FromCtx(ctx, s.logger)
	var order *domain.Order

	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, principal.UserID)
		if err != nil {
			return err
		}

		cart, err := tx.Carts().FindByUserID(ctx, user.ID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.ErrCartEmpty
		}
		if err != nil {
			return err
		}
		if cart.IsEmpty() {
			return domain.ErrCartEmpty
		}

		if err := lockAndValidateLines(ctx, tx.Skus(), cart.Items); err != nil {
			return err
		}

		order = domain.NewOrder(user.ID, input.PaymentMethod, input.Shipping, input.Notes, s.now())
		order.Username = user.Username

		for _, line := range cart.Items {
			if err := tx.Skus().AdjustQuantity(ctx, line.SkuID, -line.Quantity); err != nil {
				if errors.Is(err, repository.ErrStockTooLow) {
					return domain.InsufficientStockFor(line.ProductName)
				}
				return err
			}
			order.AddItem(domain.NewOrderItem(line.SkuID, line.ProductName, line.SkuCode, line.Quantity, line.Price))
		}

		order.SetAdjustments(input.ShippingCost, input.Tax, input.Discount)
		if order.Total.IsNegative() {
			return domain.Validation("discount must not exceed the order amount")
		}

		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		return tx.Carts().Clear(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	log.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", order.UserID.String()),
		zap.String("total", order.Total.StringFixed(2)),
	)
	return order, nil
}

// lockAndValidateLines row-locks each SKU in ascending id order and checks it can cover its line
func lockAndValidateLines(ctx context.Context, skus repository.SkuRepository, items []domain.CartItem) error {
	lines := make([]domain.CartItem, len(items))
	copy(lines, items)
	sort.Slice(lines, func(i, j int) bool {
		return bytes.Compare(lines[i].SkuID[:], lines[j].SkuID[:]) < 0
	})

	for _, line := range lines {
		sku, err := skus.FindByIDForUpdate(ctx, line.SkuID)
		if errors.Is(err, repository.ErrSkuNotFound) {
			return domain.UnavailableSku(line.ProductName)
		}
		if err != nil {
			return err
		}
		if !sku.Purchasable() || !line.SkuActive {
			return domain.UnavailableSku(line.ProductName)
		}
		if sku.Quantity < line.Quantity {
			return domain.InsufficientStockFor(line.ProductName)
		}
	}
	return nil
}

func (s *orderService) GetOrderByID(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Order, error) {
	order, err := s.uow.Orders().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(order.UserID) {
		return nil, domain.ErrAccessDenied
	}
	return order, nil
}

func (s *orderService) GetUserOrders(ctx context.Context, principal domain.Principal, page domain.PageQuery) (domain.Page[*domain.Order], error) {
	page = page.Normalize(defaultOrderSort)
	orders, total, err := s.uow.Orders().ListByUser(ctx, principal.UserID, page)
	if err != nil {
		return domain.Page[*domain.Order]{}, err
	}
	return domain.NewPage(orders, page, total), nil
}

func (s *orderService) GetAllOrders(ctx context.Context, page domain.PageQuery, status *domain.OrderStatus) (domain.Page[*domain.Order], error) {
	page = page.Normalize(defaultOrderSort)
	orders, total, err := s.uow.Orders().ListAll(ctx, page, status)
	if err != nil {
		return domain.Page[*domain.Order]{}, err
	}
	return domain.NewPage(orders, page, total), nil
}

// CancelOrder moves a PENDING or CONFIRMED order to CANCELLED and puts its quantities back on the shelf
func (s *orderService) CancelOrder(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Order, error) {
	var order *domain.Order

	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !principal.CanAccess(order.UserID) {
			return domain.ErrAccessDenied
		}
		if err := order.Cancel(s.now()); err != nil {
			return err
		}

		items := make([]domain.OrderItem, len(order.Items))
		copy(items, order.Items)
		sort.Slice(items, func(i, j int) bool {
			return bytes.Compare(items[i].SkuID[:], items[j].SkuID[:]) < 0
		})

		for _, item := range items {
			if _, err := tx.Skus().FindByIDForUpdate(ctx, item.SkuID); err != nil {
				return err
			}
			if err := tx.Skus().AdjustQuantity(ctx, item.SkuID, item.Quantity); err != nil {
				return err
			}
		}

		return tx.Orders().UpdateStatus(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx, s.logger).Info("Order cancelled",
		zap.String("order_id", order.ID.String()),
		zap.String("cancelled_by", principal.UserID.String()),
	)
	return order, nil
}

// UpdateOrderStatus sets the status without transition checks and never touches stock
func (s *orderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, input UpdateStatusInput) (*domain.Order, error) {
	var order *domain.Order

	err := s.uow.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		order.ApplyStatus(input.Status, input.PaymentStatus, s.now())
		return tx.Orders().UpdateStatus(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx, s.logger).Info("Order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(order.Status)),
	)
	return order, nil
}
