package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/safar/go-checkout/internal/checkout"
	"github.com/safar/go-checkout/internal/coupons"
	"github.com/safar/go-checkout/internal/inventory"
	"github.com/safar/go-checkout/internal/models"
	"github.com/safar/go-checkout/internal/receipts"
	"github.com/safar/go-checkout/internal/shipping"
	"github.com/safar/go-checkout/internal/users"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func runMigrations(db *sql.DB) error {
	migrationDir := "../../migrations"
	files, err := os.ReadDir(migrationDir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		filePath := filepath.Join(migrationDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	return nil
}

func newDeps(t *testing.T, db *sql.DB) (checkout.Deps, *receipts.Store) {
	store, err := receipts.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Create receipt store: %v", err)
	}
	return checkout.Deps{
		DB:       db,
		Receipts: store,
		Logger:   zap.NewNop(),
	}, store
}

func seedUser(t *testing.T, db *sql.DB, email string) *models.User {
	user, err := users.Create(context.Background(), db, email, "Test User")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

func seedProduct(t *testing.T, db *sql.DB, sku string, price int64, stock int) *models.Product {
	product, err := inventory.CreateProduct(context.Background(), db, inventory.CreateProductRequest{
		SKU:   sku,
		Name:  "Product " + sku,
		Price: decimal.NewFromInt(price),
		Stock: stock,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	return product
}

func seedVariant(t *testing.T, db *sql.DB, productID int64, size, color string, quantity int, price int64) {
	err := inventory.UpsertVariant(context.Background(), db, models.Variant{
		ProductID: productID,
		Size:      size,
		Color:     color,
		Quantity:  quantity,
		Price:     decimal.NewFromInt(price),
	})
	if err != nil {
		t.Fatalf("Upsert variant: %v", err)
	}
}

func seedGovernorate(t *testing.T, db *sql.DB, name string, price int64) *models.ShippingGovernorate {
	gov, err := shipping.CreateGovernorate(context.Background(), db, name, decimal.NewFromInt(price))
	if err != nil {
		t.Fatalf("Create governorate: %v", err)
	}
	return gov
}

func seedCoupon(t *testing.T, db *sql.DB, code string, typ models.CouponType, value int64, active bool) *models.Coupon {
	coupon, err := coupons.CreateCoupon(context.Background(), db, coupons.CreateCouponRequest{
		Code:   code,
		Type:   typ,
		Value:  decimal.NewFromInt(value),
		Active: active,
	})
	if err != nil {
		t.Fatalf("Create coupon: %v", err)
	}
	return coupon
}

func placeRequest(userID, govID int64, items ...checkout.ItemRequest) checkout.PlaceOrderRequest {
	return checkout.PlaceOrderRequest{
		UserID:                userID,
		Items:                 items,
		Phone:                 "01234567890",
		Address:               "12 Main St, Cairo",
		ShippingGovernorateID: govID,
		PaymentMethod:         models.PaymentMethodCashOnDelivery,
	}
}

func item(productID int64, price int64, quantity int) checkout.ItemRequest {
	return checkout.ItemRequest{
		ProductID: productID,
		Name:      "Item",
		Price:     decimal.NewFromInt(price),
		Quantity:  quantity,
	}
}

func variantStock(t *testing.T, db *sql.DB, productID int64, size, color string) int {
	var quantity int
	err := db.QueryRow(
		`SELECT quantity FROM product_variants WHERE product_id = $1 AND size = $2 AND color = $3`,
		productID, size, color).Scan(&quantity)
	if err != nil {
		t.Fatalf("Read variant stock: %v", err)
	}
	return quantity
}

func flatStock(t *testing.T, db *sql.DB, productID int64) int {
	var quantity int
	err := db.QueryRow(
		`SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&quantity)
	if err != nil {
		t.Fatalf("Read flat stock: %v", err)
	}
	return quantity
}
