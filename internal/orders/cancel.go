package orders

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-checkout/internal/database"
	"github.com/safar/go-checkout/internal/inventory"
	"github.com/safar/go-checkout/internal/models"
)

// Cancel moves an order to cancelled and restocks its line items in the
// same transaction. Cancelling an already cancelled order is a no-op so
// stock is never released twice.
func Cancel(ctx context.Context, db *sql.DB, id int64, note string) (*models.Order, error) {
	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		var status models.OrderStatus
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}
		if status == models.OrderStatusCancelled {
			return nil
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT product_id, size, color, quantity FROM order_items WHERE order_id = $1`, id)
		if err != nil {
			return fmt.Errorf("load order items: %w", err)
		}

		type line struct {
			productID  int64
			size, color string
			quantity   int
		}
		var lines []line
		for rows.Next() {
			var l line
			if err := rows.Scan(&l.productID, &l.size, &l.color, &l.quantity); err != nil {
				rows.Close()
				return fmt.Errorf("scan order item: %w", err)
			}
			lines = append(lines, l)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("rows error: %w", err)
		}
		rows.Close()

		for _, l := range lines {
			if err := inventory.Release(ctx, tx, l.productID, l.size, l.color, l.quantity); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
			models.OrderStatusCancelled, id); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_status_history (order_id, status, note, changed_at)
			 VALUES ($1, $2, $3, NOW())`,
			id, models.OrderStatusCancelled, note); err != nil {
			return fmt.Errorf("append status history: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return Get(ctx, db, id)
}
