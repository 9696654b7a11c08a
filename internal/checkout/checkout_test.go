package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/safar/go-checkout/internal/database"
	"github.com/safar/go-checkout/internal/models"
)

type fakeReceipts struct {
	existing map[string]bool
	deleted  []string
}

func newFakeReceipts(refs ...string) *fakeReceipts {
	existing := make(map[string]bool)
	for _, ref := range refs {
		existing[ref] = true
	}
	return &fakeReceipts{existing: existing}
}

func (f *fakeReceipts) Exists(ref string) bool {
	return f.existing[ref]
}

func (f *fakeReceipts) Delete(ref string) error {
	delete(f.existing, ref)
	f.deleted = append(f.deleted, ref)
	return nil
}

// Validation failures must occur before any transaction opens, so a nil
// DB is safe here: touching it would panic the test.
func testDeps(receipts ReceiptStore) Deps {
	return Deps{
		DB:       nil,
		Receipts: receipts,
		Logger:   zap.NewNop(),
	}
}

func validRequest() PlaceOrderRequest {
	return PlaceOrderRequest{
		UserID: 1,
		Items: []ItemRequest{
			{ProductID: 1, Name: "Shirt", Price: decimal.NewFromInt(100), Quantity: 2},
		},
		Phone:                 "01234567890",
		Address:               "12 Main St",
		ShippingGovernorateID: 1,
		PaymentMethod:         models.PaymentMethodCashOnDelivery,
	}
}

func requireValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
}

func TestPlaceOrderRejectsEmptyItems(t *testing.T) {
	req := validRequest()
	req.Items = nil

	_, err := PlaceOrder(context.Background(), testDeps(newFakeReceipts()), req)
	requireValidationError(t, err)
}

func TestPlaceOrderRejectsMissingProductID(t *testing.T) {
	req := validRequest()
	req.Items[0].ProductID = 0

	_, err := PlaceOrder(context.Background(), testDeps(newFakeReceipts()), req)
	requireValidationError(t, err)
}

func TestPlaceOrderRejectsBadPhone(t *testing.T) {
	for _, phone := range []string{"", "123", "0123456789a", "012345678901", "+1234567890"} {
		req := validRequest()
		req.Phone = phone

		_, err := PlaceOrder(context.Background(), testDeps(newFakeReceipts()), req)
		requireValidationError(t, err)
	}
}

func TestPlaceOrderRejectsBlankAddress(t *testing.T) {
	req := validRequest()
	req.Address = "   "

	_, err := PlaceOrder(context.Background(), testDeps(newFakeReceipts()), req)
	requireValidationError(t, err)
}

func TestPlaceOrderRejectsMissingGovernorate(t *testing.T) {
	req := validRequest()
	req.ShippingGovernorateID = 0

	_, err := PlaceOrder(context.Background(), testDeps(newFakeReceipts()), req)
	requireValidationError(t, err)
}

func TestPlaceOrderRejectsUnknownPaymentMethod(t *testing.T) {
	req := validRequest()
	req.PaymentMethod = models.PaymentMethod("bitcoin")

	_, err := PlaceOrder(context.Background(), testDeps(newFakeReceipts()), req)
	requireValidationError(t, err)
}

func TestPlaceOrderRequiresReceiptForWalletMethods(t *testing.T) {
	for _, method := range []models.PaymentMethod{models.PaymentMethodVodafoneCash, models.PaymentMethodInstapay} {
		req := validRequest()
		req.PaymentMethod = method
		req.PaymentReceiptRef = ""

		_, err := PlaceOrder(context.Background(), testDeps(newFakeReceipts()), req)
		requireValidationError(t, err)
	}
}

func TestPlaceOrderRejectsDanglingReceiptRef(t *testing.T) {
	req := validRequest()
	req.PaymentMethod = models.PaymentMethodInstapay
	req.PaymentReceiptRef = "missing.png"

	_, err := PlaceOrder(context.Background(), testDeps(newFakeReceipts()), req)
	requireValidationError(t, err)
}

func TestPlaceOrderDeletesReceiptOnValidationFailure(t *testing.T) {
	receipts := newFakeReceipts("r1.png")
	req := validRequest()
	req.Phone = "bad"
	req.PaymentMethod = models.PaymentMethodVodafoneCash
	req.PaymentReceiptRef = "r1.png"

	_, err := PlaceOrder(context.Background(), testDeps(receipts), req)
	requireValidationError(t, err)
	require.Equal(t, []string{"r1.png"}, receipts.deleted)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "validation_error", KindValidation.String())
	require.Equal(t, "insufficient_stock", KindInsufficientStock.String())
	require.Equal(t, "internal_error", KindInternal.String())
}

func TestKindExpected(t *testing.T) {
	require.True(t, KindInsufficientStock.Expected())
	require.True(t, KindInvalidCoupon.Expected())
	require.False(t, KindInternal.Expected())
}

func TestMapErrorSentinels(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{database.ErrUserNotFound, KindUserNotFound},
		{database.ErrInsufficientStock, KindInsufficientStock},
		{database.ErrGovernorateNotFound, KindInvalidShippingGovernorate},
		{database.ErrCouponNotFound, KindInvalidCoupon},
		{errors.New("connection reset"), KindInternal},
	}
	for _, tc := range cases {
		mapped := mapError(fmt.Errorf("step failed: %w", tc.err))
		require.Equal(t, tc.kind, KindOf(mapped), "for %v", tc.err)
	}
}

func TestMapErrorPreservesTaggedErrors(t *testing.T) {
	tagged := newError(KindPaymentMethodUnavailable, "payment method is not available")
	require.Equal(t, KindPaymentMethodUnavailable, KindOf(mapError(tagged)))
}

func TestInsufficientStockMessageIsGeneric(t *testing.T) {
	mapped := mapError(database.ErrInsufficientStock)
	var e *Error
	require.ErrorAs(t, mapped, &e)
	require.NotContains(t, e.Message, "stock level")
	require.NotContains(t, e.Message, "remaining")
}
