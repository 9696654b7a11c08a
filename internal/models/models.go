package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product carries a flat legacy stock count. When a product has any
// variants, availability is tracked per variant and StockQuantity is
// ignored.
type Product struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Image         string          `json:"image,omitempty"`
	Category      string          `json:"category,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Variants      []Variant       `json:"variants,omitempty"`
}

// Variant is a (size, color)-addressed stock and price bucket.
type Variant struct {
	ProductID int64           `json:"product_id"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// ShippingGovernorate maps a shipping destination to a flat price.
type ShippingGovernorate struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Key   string          `json:"key"`
	Price decimal.Decimal `json:"price"`
}

// ShippingSnapshot is the frozen shipping rate stored on an order.
type ShippingSnapshot struct {
	GovernorateID int64           `json:"governorate_id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
}

type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

type Coupon struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Key       string          `json:"key"`
	Type      CouponType      `json:"type"`
	Value     decimal.Decimal `json:"value"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

// CouponSnapshot is the frozen coupon stored on an order. The zero value
// means no coupon was applied.
type CouponSnapshot struct {
	CouponID int64           `json:"coupon_id,omitempty"`
	Code     string          `json:"code,omitempty"`
	Type     CouponType      `json:"type,omitempty"`
	Value    decimal.Decimal `json:"value"`
}

func (s CouponSnapshot) IsZero() bool {
	return s.CouponID == 0 && s.Code == ""
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func IsValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodVodafoneCash   PaymentMethod = "vodafone_cash"
	PaymentMethodInstapay       PaymentMethod = "instapay"
)

func IsValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCashOnDelivery, PaymentMethodVodafoneCash, PaymentMethodInstapay:
		return true
	default:
		return false
	}
}

// RequiresReceipt reports whether the method needs a payment receipt
// attached before checkout.
func (m PaymentMethod) RequiresReceipt() bool {
	return m == PaymentMethodVodafoneCash || m == PaymentMethodInstapay
}

type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "pending"
	PaymentStatusPaid           PaymentStatus = "paid"
	PaymentStatusCashOnDelivery PaymentStatus = "cash_on_delivery"
)

func IsValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusCashOnDelivery:
		return true
	default:
		return false
	}
}

// LineItem is an immutable snapshot of one ordered product taken at
// placement time. Price and name are never re-derived from the live
// product.
type LineItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image,omitempty"`
	Category  string          `json:"category,omitempty"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
}

type StatusChange struct {
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note,omitempty"`
	ChangedAt time.Time   `json:"changed_at"`
}

type Order struct {
	ID                int64            `json:"id"`
	UserID            int64            `json:"user_id"`
	OrderNumber       string           `json:"order_number"`
	Items             []LineItem       `json:"items,omitempty"`
	Phone             string           `json:"phone"`
	Address           string           `json:"address"`
	Status            OrderStatus      `json:"status"`
	StatusHistory     []StatusChange   `json:"status_history,omitempty"`
	Subtotal          decimal.Decimal  `json:"subtotal"`
	ShippingPrice     decimal.Decimal  `json:"shipping_price"`
	Shipping          ShippingSnapshot `json:"shipping"`
	Coupon            CouponSnapshot   `json:"coupon"`
	DiscountAmount    decimal.Decimal  `json:"discount_amount"`
	Total             decimal.Decimal  `json:"total"`
	TotalWithShipping decimal.Decimal  `json:"total_with_shipping"`
	PaymentMethod     PaymentMethod    `json:"payment_method"`
	PaymentStatus     PaymentStatus    `json:"payment_status"`
	PaymentReceipt    string           `json:"payment_receipt,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}
