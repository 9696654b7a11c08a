// Package coupons validates discount codes and freezes them into order
// snapshots. Validation always works against the authoritative recomputed
// subtotal, never a client-supplied one.
package coupons

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/safar/go-checkout/internal/database"
	"github.com/safar/go-checkout/internal/models"
	"github.com/safar/go-checkout/internal/pricing"
)

// Normalize strips all whitespace and lowercases a raw code into its
// lookup key. Matching is therefore case- and whitespace-insensitive.
func Normalize(rawCode string) string {
	return strings.ToLower(strings.Join(strings.Fields(rawCode), ""))
}

type CreateCouponRequest struct {
	Code   string
	Type   models.CouponType
	Value  decimal.Decimal
	Active bool
}

func CreateCoupon(ctx context.Context, db *sql.DB, req CreateCouponRequest) (*models.Coupon, error) {
	switch req.Type {
	case models.CouponTypePercentage:
		if req.Value.Sign() < 0 || req.Value.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("percentage value must be between 0 and 100")
		}
	case models.CouponTypeFixed:
		if req.Value.Sign() < 0 {
			return nil, fmt.Errorf("fixed value must be non-negative")
		}
	default:
		return nil, fmt.Errorf("unknown coupon type %q", req.Type)
	}

	coupon := &models.Coupon{}
	err := db.QueryRowContext(ctx,
		`INSERT INTO coupons (code, key, type, value, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING id, code, key, type, value, active, created_at`,
		req.Code, Normalize(req.Code), req.Type, req.Value, req.Active).Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.Key,
		&coupon.Type,
		&coupon.Value,
		&coupon.Active,
		&coupon.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	return coupon, nil
}

// SetActive flips a coupon's active flag. Orders that already snapshotted
// the coupon are unaffected.
func SetActive(ctx context.Context, db *sql.DB, id int64, active bool) error {
	result, err := db.ExecContext(ctx,
		`UPDATE coupons SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("set coupon active: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrCouponNotFound
	}

	return nil
}

// Validate resolves a raw code against the current subtotal inside the
// caller's transaction. An empty code is a no-op: the zero snapshot and a
// zero discount are returned. A code that is unknown or inactive returns
// ErrCouponNotFound.
func Validate(ctx context.Context, tx *sql.Tx, rawCode string, subtotal decimal.Decimal) (models.CouponSnapshot, decimal.Decimal, error) {
	key := Normalize(rawCode)
	if key == "" {
		return models.CouponSnapshot{Value: decimal.Zero}, decimal.Zero, nil
	}

	var snap models.CouponSnapshot
	err := tx.QueryRowContext(ctx,
		`SELECT id, code, type, value
		 FROM coupons
		 WHERE key = $1 AND active = TRUE`,
		key).Scan(&snap.CouponID, &snap.Code, &snap.Type, &snap.Value)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.CouponSnapshot{}, decimal.Zero, database.ErrCouponNotFound
		}
		return models.CouponSnapshot{}, decimal.Zero, fmt.Errorf("lookup coupon: %w", err)
	}

	discount := pricing.ComputeDiscountAmount(subtotal, snap.Type, snap.Value)
	return snap, discount, nil
}
