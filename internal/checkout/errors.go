package checkout

import (
	"errors"

	"github.com/safar/go-checkout/internal/database"
)

// Kind tags every failure the coordinator can return. Callers switch on
// the kind, never on message text.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUserNotFound
	KindPaymentMethodUnavailable
	KindInsufficientStock
	KindInvalidShippingGovernorate
	KindInvalidCoupon
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindUserNotFound:
		return "user_not_found"
	case KindPaymentMethodUnavailable:
		return "payment_method_unavailable"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindInvalidShippingGovernorate:
		return "invalid_shipping_governorate"
	case KindInvalidCoupon:
		return "invalid_coupon"
	default:
		return "internal_error"
	}
}

// Expected reports whether the kind is a normal business outcome rather
// than a fault worth alerting on.
func (k Kind) Expected() bool {
	return k != KindInternal
}

type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the kind from any error returned by this package.
// Unrecognized errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// mapError translates storage sentinels surfacing from a placement
// transaction into kind-tagged errors. Insufficient stock deliberately
// carries a generic message: it must not reveal remaining quantities or
// which item failed.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, database.ErrUserNotFound):
		return &Error{Kind: KindUserNotFound, Message: "user not found", cause: err}
	case errors.Is(err, database.ErrInsufficientStock):
		return &Error{Kind: KindInsufficientStock, Message: "one or more items are unavailable in the requested quantity", cause: err}
	case errors.Is(err, database.ErrGovernorateNotFound):
		return &Error{Kind: KindInvalidShippingGovernorate, Message: "invalid shipping governorate", cause: err}
	case errors.Is(err, database.ErrCouponNotFound):
		return &Error{Kind: KindInvalidCoupon, Message: "invalid or inactive coupon", cause: err}
	default:
		return &Error{Kind: KindInternal, Message: "order placement failed", cause: err}
	}
}
