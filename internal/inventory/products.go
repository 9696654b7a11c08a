package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/safar/go-checkout/internal/database"
	"github.com/safar/go-checkout/internal/models"
)

type CreateProductRequest struct {
	SKU         string
	Name        string
	Description string
	Image       string
	Category    string
	Price       decimal.Decimal
	Stock       int
}

func CreateProduct(ctx context.Context, db *sql.DB, req CreateProductRequest) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (sku, name, description, image, category, price, stock_quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, sku, name, description, image, category, price, stock_quantity, created_at, updated_at`

	err := db.QueryRowContext(ctx, query,
		req.SKU, req.Name, req.Description, req.Image, req.Category, req.Price, req.Stock).Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Image,
		&product.Category,
		&product.Price,
		&product.StockQuantity,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT id, sku, name, description, image, category, price, stock_quantity, created_at, updated_at
		FROM products
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Image,
		&product.Category,
		&product.Price,
		&product.StockQuantity,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	variants, err := getVariants(ctx, db, id)
	if err != nil {
		return nil, err
	}
	product.Variants = variants

	return product, nil
}

func getVariants(ctx context.Context, db *sql.DB, productID int64) ([]models.Variant, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT product_id, size, color, quantity, price
		 FROM product_variants
		 WHERE product_id = $1
		 ORDER BY size, color`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("get variants: %w", err)
	}
	defer rows.Close()

	var variants []models.Variant
	for rows.Next() {
		var v models.Variant
		if err := rows.Scan(&v.ProductID, &v.Size, &v.Color, &v.Quantity, &v.Price); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return variants, nil
}

// UpsertVariant creates or replaces one (size, color) bucket. Price must
// be positive and quantity non-negative.
func UpsertVariant(ctx context.Context, db *sql.DB, v models.Variant) error {
	if v.Quantity < 0 {
		return fmt.Errorf("variant quantity must be non-negative")
	}
	if v.Price.Sign() <= 0 {
		return fmt.Errorf("variant price must be positive")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO product_variants (product_id, size, color, quantity, price)
		 SELECT $1, $2, $3, $4, $5
		 WHERE EXISTS(SELECT 1 FROM products WHERE id = $1)
		 ON CONFLICT (product_id, size, color)
		 DO UPDATE SET quantity = EXCLUDED.quantity, price = EXCLUDED.price`,
		v.ProductID, v.Size, v.Color, v.Quantity, v.Price)
	if err != nil {
		return fmt.Errorf("upsert variant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func ListProducts(ctx context.Context, db *sql.DB, page, pageSize int) ([]models.Product, int64, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT id, sku, name, description, image, category, price, stock_quantity, created_at, updated_at
		 FROM products
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.SKU,
			&product.Name,
			&product.Description,
			&product.Image,
			&product.Category,
			&product.Price,
			&product.StockQuantity,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return products, total, nil
}
