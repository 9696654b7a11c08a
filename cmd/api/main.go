package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/safar/go-checkout/internal/activity"
	"github.com/safar/go-checkout/internal/checkout"
	"github.com/safar/go-checkout/internal/config"
	"github.com/safar/go-checkout/internal/coupons"
	"github.com/safar/go-checkout/internal/database"
	"github.com/safar/go-checkout/internal/inventory"
	"github.com/safar/go-checkout/internal/metrics"
	"github.com/safar/go-checkout/internal/models"
	"github.com/safar/go-checkout/internal/orders"
	"github.com/safar/go-checkout/internal/pricing"
	"github.com/safar/go-checkout/internal/receipts"
	"github.com/safar/go-checkout/internal/settings"
	"github.com/safar/go-checkout/internal/shipping"
	"github.com/safar/go-checkout/internal/users"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	receiptStore, err := receipts.NewStore(cfg.Receipts.Dir)
	if err != nil {
		logger.Fatal("init receipt store", zap.Error(err))
	}

	sink := activity.NewKafkaSink(cfg.Activity.KafkaBrokers, cfg.Activity.Topic, logger)
	defer sink.Close()

	deps := checkout.Deps{
		DB:       db,
		Receipts: receiptStore,
		Activity: sink,
		Logger:   logger,
		Metrics:  metrics.NewCheckout(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/users", handleCreateUser(db, logger))
	r.Get("/users/{id}", handleGetUser(db, logger))

	r.Post("/products", handleCreateProduct(db, logger))
	r.Get("/products", handleListProducts(db, logger))
	r.Get("/products/{id}", handleGetProduct(db, logger))
	r.Put("/products/{id}/variants", handleUpsertVariant(db, logger))

	r.Post("/shipping/governorates", handleCreateGovernorate(db, logger))
	r.Get("/shipping/governorates", handleListGovernorates(db, logger))

	r.Post("/coupons", handleCreateCoupon(db, logger))
	r.Put("/coupons/{id}/active", handleSetCouponActive(db, logger))

	r.Put("/settings/payment-methods/{method}", handleSetPaymentMethod(db, logger))

	r.Post("/checkout/receipts", handleUploadReceipt(receiptStore, logger))
	r.Post("/orders", handlePlaceOrder(deps))
	r.Get("/orders", handleListOrders(db, logger))
	r.Get("/orders/{id}", handleGetOrder(db, logger))
	r.Put("/orders/{id}/status", handleSetStatus(db, logger))
	r.Put("/orders/{id}/payment-status", handleSetPaymentStatus(db, logger))
	r.Post("/orders/{id}/cancel", handleCancelOrder(db, logger))

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func handleCreateUser(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := users.Create(r.Context(), db, req.Email, req.Name)
		if err != nil {
			respondInternal(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, user)
	}
}

func handleGetUser(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		user, err := users.Get(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, database.ErrUserNotFound) {
				respondError(w, http.StatusNotFound, "user not found")
				return
			}
			respondInternal(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, user)
	}
}

func handleCreateProduct(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SKU         string  `json:"sku"`
			Name        string  `json:"name"`
			Description string  `json:"description"`
			Image       string  `json:"image"`
			Category    string  `json:"category"`
			Price       float64 `json:"price"`
			Stock       int     `json:"stock"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		product, err := inventory.CreateProduct(r.Context(), db, inventory.CreateProductRequest{
			SKU:         req.SKU,
			Name:        req.Name,
			Description: req.Description,
			Image:       req.Image,
			Category:    req.Category,
			Price:       pricing.NewMoney(req.Price),
			Stock:       req.Stock,
		})
		if err != nil {
			respondInternal(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, product)
	}
}

func handleListProducts(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
		if pageSize < 1 || pageSize > 100 {
			pageSize = 20
		}

		products, total, err := inventory.ListProducts(r.Context(), db, page, pageSize)
		if err != nil {
			respondInternal(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"items": products,
			"total": total,
			"page":  page,
		})
	}
}

func handleGetProduct(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		product, err := inventory.GetProduct(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, database.ErrProductNotFound) {
				respondError(w, http.StatusNotFound, "product not found")
				return
			}
			respondInternal(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, product)
	}
}

func handleUpsertVariant(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		var req struct {
			Size     string  `json:"size"`
			Color    string  `json:"color"`
			Quantity int     `json:"quantity"`
			Price    float64 `json:"price"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		err := inventory.UpsertVariant(r.Context(), db, models.Variant{
			ProductID: id,
			Size:      req.Size,
			Color:     req.Color,
			Quantity:  req.Quantity,
			Price:     pricing.NewMoney(req.Price),
		})
		if err != nil {
			if errors.Is(err, database.ErrProductNotFound) {
				respondError(w, http.StatusNotFound, "product not found")
				return
			}
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCreateGovernorate(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name  string  `json:"name"`
			Price float64 `json:"price"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		gov, err := shipping.CreateGovernorate(r.Context(), db, req.Name, pricing.NewMoney(req.Price))
		if err != nil {
			respondInternal(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, gov)
	}
}

func handleListGovernorates(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		govs, err := shipping.ListGovernorates(r.Context(), db)
		if err != nil {
			respondInternal(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, govs)
	}
}

func handleCreateCoupon(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Code   string  `json:"code"`
			Type   string  `json:"type"`
			Value  float64 `json:"value"`
			Active bool    `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		coupon, err := coupons.CreateCoupon(r.Context(), db, coupons.CreateCouponRequest{
			Code:   req.Code,
			Type:   models.CouponType(req.Type),
			Value:  pricing.NewMoney(req.Value),
			Active: req.Active,
		})
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondJSON(w, http.StatusCreated, coupon)
	}
}

func handleSetCouponActive(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		var req struct {
			Active bool `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := coupons.SetActive(r.Context(), db, id, req.Active); err != nil {
			if errors.Is(err, database.ErrCouponNotFound) {
				respondError(w, http.StatusNotFound, "coupon not found")
				return
			}
			respondInternal(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleSetPaymentMethod(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method := models.PaymentMethod(chi.URLParam(r, "method"))

		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := settings.SetPaymentMethodEnabled(r.Context(), db, method, req.Enabled); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleUploadReceipt(store *receipts.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("receipt")
		if err != nil {
			respondError(w, http.StatusBadRequest, "receipt file is required")
			return
		}
		defer file.Close()

		ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")

		ref, err := store.Save(file, ext)
		if err != nil {
			respondInternal(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, map[string]string{"ref": ref})
	}
}

func handlePlaceOrder(deps checkout.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			respondError(w, http.StatusUnauthorized, "missing or invalid session")
			return
		}

		var req struct {
			Items []struct {
				ProductID int64   `json:"product_id"`
				Name      string  `json:"name"`
				Price     float64 `json:"price"`
				Quantity  int     `json:"quantity"`
				Image     string  `json:"image"`
				Category  string  `json:"category"`
				Size      string  `json:"size"`
				Color     string  `json:"color"`
			} `json:"items"`
			Phone                 string `json:"phone"`
			Address               string `json:"address"`
			ShippingGovernorateID int64  `json:"shipping_governorate_id"`
			CouponCode            string `json:"coupon_code"`
			PaymentMethod         string `json:"payment_method"`
			PaymentReceiptRef     string `json:"payment_receipt_ref"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		placeReq := checkout.PlaceOrderRequest{
			UserID:                userID,
			Phone:                 req.Phone,
			Address:               req.Address,
			ShippingGovernorateID: req.ShippingGovernorateID,
			CouponCode:            req.CouponCode,
			PaymentMethod:         models.PaymentMethod(req.PaymentMethod),
			PaymentReceiptRef:     req.PaymentReceiptRef,
		}
		for _, item := range req.Items {
			placeReq.Items = append(placeReq.Items, checkout.ItemRequest{
				ProductID: item.ProductID,
				Name:      item.Name,
				Price:     pricing.NewMoney(item.Price),
				Quantity:  item.Quantity,
				Image:     item.Image,
				Category:  item.Category,
				Size:      item.Size,
				Color:     item.Color,
			})
		}

		order, err := checkout.PlaceOrder(r.Context(), deps, placeReq)
		if err != nil {
			respondCheckoutError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, order)
	}
}

// respondCheckoutError maps coordinator error kinds to HTTP statuses. The
// internal kind gets an opaque body; detail stays in the server log.
func respondCheckoutError(w http.ResponseWriter, err error) {
	kind := checkout.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case checkout.KindValidation, checkout.KindInvalidShippingGovernorate, checkout.KindInvalidCoupon:
		status = http.StatusBadRequest
	case checkout.KindUserNotFound:
		status = http.StatusUnauthorized
	case checkout.KindPaymentMethodUnavailable:
		status = http.StatusUnprocessableEntity
	case checkout.KindInsufficientStock:
		status = http.StatusConflict
	}

	message := "something went wrong"
	var e *checkout.Error
	if kind != checkout.KindInternal && errors.As(err, &e) {
		message = e.Message
	}

	respondJSON(w, status, map[string]string{
		"error_kind": kind.String(),
		"message":    message,
	})
}

func handleListOrders(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		if err != nil || userID <= 0 {
			respondError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit < 1 || limit > 100 {
			limit = 20
		}

		page, err := orders.ListByUser(r.Context(), db, userID, r.URL.Query().Get("cursor"), limit)
		if err != nil {
			respondInternal(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, page)
	}
}

func handleGetOrder(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		order, err := orders.Get(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, database.ErrOrderNotFound) {
				respondError(w, http.StatusNotFound, "order not found")
				return
			}
			respondInternal(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, order)
	}
}

func handleSetStatus(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		var req struct {
			Status string `json:"status"`
			Note   string `json:"note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		order, err := orders.SetStatus(r.Context(), db, id, models.OrderStatus(req.Status), req.Note)
		if err != nil {
			switch {
			case errors.Is(err, orders.ErrInvalidStatus):
				respondError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, database.ErrOrderNotFound):
				respondError(w, http.StatusNotFound, "order not found")
			default:
				respondInternal(w, logger, err)
			}
			return
		}
		respondJSON(w, http.StatusOK, order)
	}
}

func handleSetPaymentStatus(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		var req struct {
			PaymentStatus string `json:"payment_status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		order, err := orders.SetPaymentStatus(r.Context(), db, id, models.PaymentStatus(req.PaymentStatus))
		if err != nil {
			switch {
			case errors.Is(err, orders.ErrInvalidPaymentStatus):
				respondError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, database.ErrOrderNotFound):
				respondError(w, http.StatusNotFound, "order not found")
			default:
				respondInternal(w, logger, err)
			}
			return
		}
		respondJSON(w, http.StatusOK, order)
	}
}

func handleCancelOrder(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		var req struct {
			Note string `json:"note"`
		}
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&req)
		}

		order, err := orders.Cancel(r.Context(), db, id, req.Note)
		if err != nil {
			if errors.Is(err, database.ErrOrderNotFound) {
				respondError(w, http.StatusNotFound, "order not found")
				return
			}
			respondInternal(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, order)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondInternal(w http.ResponseWriter, logger *zap.Logger, err error) {
	logger.Error("request failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "something went wrong")
}
