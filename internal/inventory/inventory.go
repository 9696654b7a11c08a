// Package inventory is the only component allowed to mutate product and
// variant stock for an order. Reservation is a single conditional UPDATE
// so that the availability check and the decrement cannot be split by a
// concurrent writer.
package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-checkout/internal/database"
)

// Reserve atomically decrements available stock for one line item inside
// the caller's transaction. Products with variants are matched on
// (size, color); products without variants fall back to the flat stock
// column. A missing product and an out-of-stock product are deliberately
// indistinguishable: both return ErrInsufficientStock.
func Reserve(ctx context.Context, tx *sql.Tx, productID int64, size, color string, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE product_variants
		 SET quantity = quantity - $1
		 WHERE product_id = $2
		   AND size = $3
		   AND color = $4
		   AND quantity >= $1`,
		quantity, productID, size, color)
	if err != nil {
		return fmt.Errorf("reserve variant stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var hasVariants bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM product_variants WHERE product_id = $1)`,
		productID).Scan(&hasVariants)
	if err != nil {
		return fmt.Errorf("check variants: %w", err)
	}
	if hasVariants {
		return database.ErrInsufficientStock
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("reserve flat stock: %w", err)
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

// Release is the inverse increment, used when restocking a cancelled
// order's items. It follows the same variant-first addressing as Reserve.
func Release(ctx context.Context, tx *sql.Tx, productID int64, size, color string, quantity int) error {
	if quantity < 1 {
		return nil
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE product_variants
		 SET quantity = quantity + $1
		 WHERE product_id = $2
		   AND size = $3
		   AND color = $4`,
		quantity, productID, size, color)
	if err != nil {
		return fmt.Errorf("release variant stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $1,
		     updated_at = NOW()
		 WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("release flat stock: %w", err)
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}
