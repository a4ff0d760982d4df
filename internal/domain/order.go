package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderNumberPrefix is prepended to the random token of every order number
const OrderNumberPrefix = "ORD-"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ParseOrderStatus accepts any letter case
func ParseOrderStatus(s string) (OrderStatus, error) {
	candidate := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, status := range orderStatuses {
		if status == candidate {
			return status, nil
		}
	}
	return "", Validation("invalid order status: " + s)
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch candidate := PaymentStatus(strings.ToUpper(strings.TrimSpace(s))); candidate {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return candidate, nil
	}
	return "", Validation("invalid payment status: " + s)
}

type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	PaymentMethodCreditCard     PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard      PaymentMethod = "DEBIT_CARD"
	PaymentMethodPayPal         PaymentMethod = "PAYPAL"
	PaymentMethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch candidate := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); candidate {
	case PaymentMethodCashOnDelivery, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodPayPal, PaymentMethodBankTransfer:
		return candidate, nil
	}
	return "", Validation("invalid payment method: " + s)
}

// ShippingAddress is copied into the order at creation and never follows later address edits
type ShippingAddress struct {
	Name       string `json:"shipping_name" db:"shipping_name"`
	Phone      string `json:"shipping_phone" db:"shipping_phone"`
	Line1      string `json:"shipping_address_line_1" db:"shipping_address_line_1"`
	Line2      string `json:"shipping_address_line_2" db:"shipping_address_line_2"`
	City       string `json:"shipping_city" db:"shipping_city"`
	Country    string `json:"shipping_country" db:"shipping_country"`
	PostalCode string `json:"shipping_postal_code" db:"shipping_postal_code"`
}

// Order is the aggregate root of a placed order. Items are frozen at creation.
type Order struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	OrderNumber   string          `json:"order_number" db:"order_number"`
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	Username      string          `json:"username" db:"username"`
	Status        OrderStatus     `json:"status" db:"status"`
	PaymentMethod PaymentMethod   `json:"payment_method" db:"payment_method"`
	PaymentStatus PaymentStatus   `json:"payment_status" db:"payment_status"`
	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	ShippingCost  decimal.Decimal `json:"shipping_cost" db:"shipping_cost"`
	Tax           decimal.Decimal `json:"tax" db:"tax"`
	Discount      decimal.Decimal `json:"discount" db:"discount"`
	Total         decimal.Decimal `json:"total" db:"total"`
	Shipping      ShippingAddress `json:"shipping"`
	Notes         string          `json:"notes" db:"notes"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
	DeliveredAt   *time.Time      `json:"delivered_at,omitempty" db:"delivered_at"`
	Items         []OrderItem     `json:"items"`
}

// OrderItem is a snapshot of one purchased line
type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	SkuID       uuid.UUID       `json:"sku_id" db:"sku_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	SkuCode     string          `json:"sku_code" db:"sku_code"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Subtotal    decimal.Decimal `json:"subtotal" db:"subtotal"`
}

// NewOrderNumber builds a human-readable order number from a random UUID
func NewOrderNumber() string {
	return OrderNumberPrefix + strings.ToUpper(uuid.NewString()[:8])
}

// NewOrderItem snapshots a line and computes its subtotal
func NewOrderItem(skuID uuid.UUID, productName, skuCode string, quantity int, price decimal.Decimal) OrderItem {
	return OrderItem{
		ID:          uuid.New(),
		SkuID:       skuID,
		ProductName: productName,
		SkuCode:     skuCode,
		Quantity:    quantity,
		Price:       price,
		Subtotal:    price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// NewOrder builds a pending order shell with zero adjustments
func NewOrder(userID uuid.UUID, method PaymentMethod, shipping ShippingAddress, notes string, now time.Time) *Order {
	return &Order{
		ID:            uuid.New(),
		OrderNumber:   NewOrderNumber(),
		UserID:        userID,
		Status:        OrderStatusPending,
		PaymentMethod: method,
		PaymentStatus: PaymentStatusPending,
		Subtotal:      decimal.Zero,
		ShippingCost:  decimal.Zero,
		Tax:           decimal.Zero,
		Discount:      decimal.Zero,
		Total:         decimal.Zero,
		Shipping:      shipping,
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AddItem appends a line and keeps Subtotal and Total in step
func (o *Order) AddItem(item OrderItem) {
	o.Items = append(o.Items, item)
	o.Subtotal = o.Subtotal.Add(item.Subtotal)
	o.recalculate()
}

// SetAdjustments sets shipping, tax and discount and recomputes the total
func (o *Order) SetAdjustments(shippingCost, tax, discount decimal.Decimal) {
	o.ShippingCost = shippingCost
	o.Tax = tax
	o.Discount = discount
	o.recalculate()
}

// total = subtotal + shipping + tax - discount
func (o *Order) recalculate() {
	o.Total = o.Subtotal.Add(o.ShippingCost).Add(o.Tax).Sub(o.Discount)
}

// Cancelable reports whether the owner may still cancel
func (o *Order) Cancelable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// Cancel moves the order to CANCELLED
func (o *Order) Cancel(now time.Time) error {
	if !o.Cancelable() {
		return ErrOrderNotCancelable
	}
	o.Status = OrderStatusCancelled
	o.UpdatedAt = now
	return nil
}

// ApplyStatus sets a new status without transition checks. DELIVERED stamps DeliveredAt.
func (o *Order) ApplyStatus(status OrderStatus, paymentStatus *PaymentStatus, now time.Time) {
	o.Status = status
	if status == OrderStatusDelivered {
		o.DeliveredAt = &now
	}
	if paymentStatus != nil {
		o.PaymentStatus = *paymentStatus
	}
	o.UpdatedAt = now
}

// ItemCount is the number of units across all lines
func (o *Order) ItemCount() int {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}
