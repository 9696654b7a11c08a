// Package orders persists the order aggregate and its two narrow
// post-creation transitions. The aggregate is written once, inside the
// placement transaction; afterwards only status and payment status move,
// with status changes appended to an immutable history.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safar/go-checkout/internal/database"
	"github.com/safar/go-checkout/internal/models"
)

var (
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
)

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%d", time.Now().UnixNano())
}

// Insert writes the full aggregate inside the caller's transaction and
// fills in generated ids. The order must already carry its initial status
// history entry.
func Insert(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	order.OrderNumber = generateOrderNumber()

	var couponID sql.NullInt64
	if order.Coupon.CouponID != 0 {
		couponID = sql.NullInt64{Int64: order.Coupon.CouponID, Valid: true}
	}

	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (
			user_id, order_number, phone, address, status,
			subtotal, shipping_price, shipping_governorate_id, shipping_governorate_name,
			coupon_id, coupon_code, coupon_type, coupon_value, discount_amount,
			total, total_with_shipping, payment_method, payment_status, payment_receipt,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		order.UserID, order.OrderNumber, order.Phone, order.Address, order.Status,
		order.Subtotal, order.ShippingPrice, order.Shipping.GovernorateID, order.Shipping.Name,
		couponID, order.Coupon.Code, order.Coupon.Type, order.Coupon.Value, order.DiscountAmount,
		order.Total, order.TotalWithShipping, order.PaymentMethod, order.PaymentStatus, order.PaymentReceipt,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, name, unit_price, quantity, image, category, size, color)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id`,
			item.OrderID, item.ProductID, item.Name, item.UnitPrice, item.Quantity,
			item.Image, item.Category, item.Size, item.Color,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}

	for i := range order.StatusHistory {
		change := &order.StatusHistory[i]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_status_history (order_id, status, note, changed_at)
			 VALUES ($1, $2, $3, $4)`,
			order.ID, change.Status, change.Note, change.ChangedAt)
		if err != nil {
			return fmt.Errorf("create status history: %w", err)
		}
	}

	return nil
}

// Get loads one aggregate with its items and status history.
func Get(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	order := &models.Order{}

	var couponID sql.NullInt64
	var couponType sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, order_number, phone, address, status,
		        subtotal, shipping_price, shipping_governorate_id, shipping_governorate_name,
		        coupon_id, coupon_code, coupon_type, coupon_value, discount_amount,
		        total, total_with_shipping, payment_method, payment_status, payment_receipt,
		        created_at, updated_at
		 FROM orders
		 WHERE id = $1`,
		id).Scan(
		&order.ID, &order.UserID, &order.OrderNumber, &order.Phone, &order.Address, &order.Status,
		&order.Subtotal, &order.ShippingPrice, &order.Shipping.GovernorateID, &order.Shipping.Name,
		&couponID, &order.Coupon.Code, &couponType, &order.Coupon.Value, &order.DiscountAmount,
		&order.Total, &order.TotalWithShipping, &order.PaymentMethod, &order.PaymentStatus, &order.PaymentReceipt,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if couponID.Valid {
		order.Coupon.CouponID = couponID.Int64
	}
	if couponType.Valid {
		order.Coupon.Type = models.CouponType(couponType.String)
	}
	order.Shipping.Price = order.ShippingPrice

	items, err := getItems(ctx, db, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	history, err := getHistory(ctx, db, id)
	if err != nil {
		return nil, err
	}
	order.StatusHistory = history

	return order, nil
}

func getItems(ctx context.Context, db *sql.DB, orderID int64) ([]models.LineItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, order_id, product_id, name, unit_price, quantity, image, category, size, color
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var item models.LineItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.UnitPrice,
			&item.Quantity, &item.Image, &item.Category, &item.Size, &item.Color,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func getHistory(ctx context.Context, db *sql.DB, orderID int64) ([]models.StatusChange, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT status, note, changed_at
		 FROM order_status_history
		 WHERE order_id = $1
		 ORDER BY changed_at, id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("get status history: %w", err)
	}
	defer rows.Close()

	var history []models.StatusChange
	for rows.Next() {
		var change models.StatusChange
		if err := rows.Scan(&change.Status, &change.Note, &change.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		history = append(history, change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return history, nil
}

// SetStatus moves the order to a new status and appends the change to the
// history. Any status may follow any other; the history is the audit
// trail.
func SetStatus(ctx context.Context, db *sql.DB, id int64, status models.OrderStatus, note string) (*models.Order, error) {
	if !models.IsValidOrderStatus(status) {
		return nil, ErrInvalidStatus
	}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
			status, id)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return database.ErrOrderNotFound
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_status_history (order_id, status, note, changed_at)
			 VALUES ($1, $2, $3, NOW())`,
			id, status, note)
		if err != nil {
			return fmt.Errorf("append status history: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return Get(ctx, db, id)
}

// SetPaymentStatus updates the payment status independently of the order
// status.
func SetPaymentStatus(ctx context.Context, db *sql.DB, id int64, status models.PaymentStatus) (*models.Order, error) {
	if !models.IsValidPaymentStatus(status) {
		return nil, ErrInvalidPaymentStatus
	}

	result, err := db.ExecContext(ctx,
		`UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, database.ErrOrderNotFound
	}

	return Get(ctx, db, id)
}
