// Package shipping resolves a governorate id to an authoritative flat
// shipping price. The resolved snapshot is frozen onto the order; later
// rate edits never touch placed orders.
package shipping

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/safar/go-checkout/internal/database"
	"github.com/safar/go-checkout/internal/models"
)

// NormalizeKey produces the whitespace-free lowercase lookup key stored
// next to a governorate name.
func NormalizeKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

func CreateGovernorate(ctx context.Context, db *sql.DB, name string, price decimal.Decimal) (*models.ShippingGovernorate, error) {
	if price.Sign() < 0 {
		return nil, fmt.Errorf("shipping price must be non-negative")
	}

	gov := &models.ShippingGovernorate{}
	err := db.QueryRowContext(ctx,
		`INSERT INTO shipping_governorates (name, key, price)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, key, price`,
		name, NormalizeKey(name), price).Scan(&gov.ID, &gov.Name, &gov.Key, &gov.Price)
	if err != nil {
		return nil, fmt.Errorf("create governorate: %w", err)
	}

	return gov, nil
}

func ListGovernorates(ctx context.Context, db *sql.DB) ([]models.ShippingGovernorate, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, key, price FROM shipping_governorates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list governorates: %w", err)
	}
	defer rows.Close()

	var govs []models.ShippingGovernorate
	for rows.Next() {
		var gov models.ShippingGovernorate
		if err := rows.Scan(&gov.ID, &gov.Name, &gov.Key, &gov.Price); err != nil {
			return nil, fmt.Errorf("scan governorate: %w", err)
		}
		govs = append(govs, gov)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return govs, nil
}

// Resolve looks up a governorate by primary key inside the caller's
// transaction. No partial matches, no fuzzy fallback.
func Resolve(ctx context.Context, tx *sql.Tx, governorateID int64) (models.ShippingSnapshot, error) {
	var snap models.ShippingSnapshot
	err := tx.QueryRowContext(ctx,
		`SELECT id, name, price FROM shipping_governorates WHERE id = $1`,
		governorateID).Scan(&snap.GovernorateID, &snap.Name, &snap.Price)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.ShippingSnapshot{}, database.ErrGovernorateNotFound
		}
		return models.ShippingSnapshot{}, fmt.Errorf("resolve governorate: %w", err)
	}

	return snap, nil
}
