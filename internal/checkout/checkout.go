// Package checkout coordinates order placement: input validation, stock
// reservation, shipping and coupon resolution, pricing and the final
// aggregate write, all inside one serializable transaction. Any failure
// aborts the whole unit of work and cleans up an attached receipt.
package checkout

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/safar/go-checkout/internal/activity"
	"github.com/safar/go-checkout/internal/coupons"
	"github.com/safar/go-checkout/internal/database"
	"github.com/safar/go-checkout/internal/inventory"
	"github.com/safar/go-checkout/internal/metrics"
	"github.com/safar/go-checkout/internal/models"
	"github.com/safar/go-checkout/internal/orders"
	"github.com/safar/go-checkout/internal/pricing"
	"github.com/safar/go-checkout/internal/settings"
	"github.com/safar/go-checkout/internal/shipping"
	"github.com/safar/go-checkout/internal/users"
)

var phonePattern = regexp.MustCompile(`^\d{11}$`)

// ReceiptStore is the slice of receipt storage the coordinator needs:
// checking an attachment exists and deleting it on abort.
type ReceiptStore interface {
	Exists(ref string) bool
	Delete(ref string) error
}

type Deps struct {
	DB       *sql.DB
	Receipts ReceiptStore
	Activity activity.Sink
	Logger   *zap.Logger
	Metrics  *metrics.Checkout
}

type ItemRequest struct {
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Quantity  int
	Image     string
	Category  string
	Size      string
	Color     string
}

type PlaceOrderRequest struct {
	UserID                int64
	Items                 []ItemRequest
	Phone                 string
	Address               string
	ShippingGovernorateID int64
	CouponCode            string
	PaymentMethod         models.PaymentMethod
	PaymentReceiptRef     string
}

// PlaceOrder runs the full placement state machine. On success it returns
// the persisted aggregate and emits the activity event; on failure it
// deletes any attached receipt and returns a kind-tagged error.
func PlaceOrder(ctx context.Context, deps Deps, req PlaceOrderRequest) (*models.Order, error) {
	start := time.Now()

	order, err := placeOrder(ctx, deps, req)
	if err != nil {
		err = mapError(err)
		kind := KindOf(err)

		if req.PaymentReceiptRef != "" && deps.Receipts != nil {
			if delErr := deps.Receipts.Delete(req.PaymentReceiptRef); delErr != nil {
				deps.Logger.Error("receipt cleanup failed",
					zap.String("receipt", req.PaymentReceiptRef),
					zap.Error(delErr))
			}
		}

		if deps.Metrics != nil {
			deps.Metrics.Failures.WithLabelValues(kind.String()).Inc()
		}
		if kind.Expected() {
			deps.Logger.Info("order placement rejected",
				zap.Int64("user_id", req.UserID),
				zap.String("kind", kind.String()))
		} else {
			deps.Logger.Error("order placement failed",
				zap.Int64("user_id", req.UserID),
				zap.Error(err))
		}
		return nil, err
	}

	if deps.Metrics != nil {
		deps.Metrics.Placed.Inc()
		deps.Metrics.Duration.Observe(time.Since(start).Seconds())
	}
	deps.Logger.Info("order placed",
		zap.Int64("user_id", order.UserID),
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber))
	if deps.Activity != nil {
		deps.Activity.Log(activity.NewEvent("order_created", order.UserID, order.ID, "Order created"))
	}

	return order, nil
}

func placeOrder(ctx context.Context, deps Deps, req PlaceOrderRequest) (*models.Order, error) {
	items, err := validate(deps, req)
	if err != nil {
		return nil, err
	}

	// Once the transaction starts it runs to completion even if the
	// caller disconnects; an interrupted reservation must either commit
	// or roll back, never linger.
	txCtx := context.WithoutCancel(ctx)

	var order *models.Order
	err = database.WithRetry(txCtx, deps.DB, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		if err := users.Exists(txCtx, tx, req.UserID); err != nil {
			return err
		}

		enabled, err := settings.EnabledPaymentMethods(txCtx, tx)
		if err != nil {
			return err
		}
		if !enabled[req.PaymentMethod] {
			return newError(KindPaymentMethodUnavailable, "payment method is not available")
		}

		for _, item := range items {
			if err := inventory.Reserve(txCtx, tx, item.ProductID, item.Size, item.Color, item.Quantity); err != nil {
				return err
			}
		}

		subtotal := decimal.Zero
		for _, item := range items {
			subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		subtotal = pricing.RoundMoney(subtotal)

		shippingSnap, err := shipping.Resolve(txCtx, tx, req.ShippingGovernorateID)
		if err != nil {
			return err
		}

		couponSnap, discount, err := coupons.Validate(txCtx, tx, req.CouponCode, subtotal)
		if err != nil {
			return err
		}

		totals := pricing.ComputeTotals(subtotal, shippingSnap.Price, discount)

		paymentStatus := models.PaymentStatusPending
		if req.PaymentMethod == models.PaymentMethodCashOnDelivery {
			paymentStatus = models.PaymentStatusCashOnDelivery
		}

		now := time.Now().UTC()
		order = &models.Order{
			UserID:  req.UserID,
			Items:   items,
			Phone:   req.Phone,
			Address: req.Address,
			Status:  models.OrderStatusPending,
			StatusHistory: []models.StatusChange{
				{Status: models.OrderStatusPending, Note: "Order created", ChangedAt: now},
			},
			Subtotal:          totals.Subtotal,
			ShippingPrice:     totals.ShippingPrice,
			Shipping:          shippingSnap,
			Coupon:            couponSnap,
			DiscountAmount:    totals.DiscountAmount,
			Total:             totals.Total,
			TotalWithShipping: totals.TotalWithShipping,
			PaymentMethod:     req.PaymentMethod,
			PaymentStatus:     paymentStatus,
			PaymentReceipt:    req.PaymentReceiptRef,
		}

		return orders.Insert(txCtx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// validate normalizes the request into line item snapshots. It touches no
// storage: a validation failure means no transaction was ever opened.
func validate(deps Deps, req PlaceOrderRequest) ([]models.LineItem, error) {
	if len(req.Items) == 0 {
		return nil, newError(KindValidation, "order items are required")
	}

	items := make([]models.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID <= 0 {
			return nil, newError(KindValidation, "each item requires a product id")
		}
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		items = append(items, models.LineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  quantity,
			Image:     item.Image,
			Category:  item.Category,
			Size:      item.Size,
			Color:     item.Color,
		})
	}

	if !phonePattern.MatchString(req.Phone) {
		return nil, newError(KindValidation, "phone must be exactly 11 digits")
	}
	if strings.TrimSpace(req.Address) == "" {
		return nil, newError(KindValidation, "address is required")
	}
	if req.ShippingGovernorateID <= 0 {
		return nil, newError(KindValidation, "shipping governorate is required")
	}
	if !models.IsValidPaymentMethod(req.PaymentMethod) {
		return nil, newError(KindValidation, "unknown payment method")
	}
	if req.PaymentMethod.RequiresReceipt() {
		if req.PaymentReceiptRef == "" {
			return nil, newError(KindValidation, "payment receipt is required for this payment method")
		}
		if deps.Receipts != nil && !deps.Receipts.Exists(req.PaymentReceiptRef) {
			return nil, newError(KindValidation, "payment receipt was not found")
		}
	}

	return items, nil
}
