// Package settings exposes the store-level payment method switches. The
// coordinator reads them fresh inside the placement transaction so a
// method disabled mid-flight is honored.
package settings

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-checkout/internal/models"
)

// EnabledPaymentMethods returns the currently enabled methods, read inside
// the caller's transaction.
func EnabledPaymentMethods(ctx context.Context, tx *sql.Tx) (map[models.PaymentMethod]bool, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT method FROM payment_method_settings WHERE enabled = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("load payment methods: %w", err)
	}
	defer rows.Close()

	enabled := make(map[models.PaymentMethod]bool)
	for rows.Next() {
		var method models.PaymentMethod
		if err := rows.Scan(&method); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		enabled[method] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return enabled, nil
}

// SetPaymentMethodEnabled upserts one method switch.
func SetPaymentMethodEnabled(ctx context.Context, db *sql.DB, method models.PaymentMethod, enabled bool) error {
	if !models.IsValidPaymentMethod(method) {
		return fmt.Errorf("unknown payment method %q", method)
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO payment_method_settings (method, enabled)
		 VALUES ($1, $2)
		 ON CONFLICT (method) DO UPDATE SET enabled = EXCLUDED.enabled`,
		method, enabled)
	if err != nil {
		return fmt.Errorf("set payment method: %w", err)
	}

	return nil
}
