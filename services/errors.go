package services

import (
	"errors"
	"fmt"

	"food-delivery/store"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindUpstream
	KindUnauthorized
	KindThrottled
)

// Machine-readable failure reasons.
const (
	ReasonInvalidRequest        = "INVALID_REQUEST"
	ReasonInvalidQuantity       = "INVALID_QUANTITY"
	ReasonInvalidDish           = "INVALID_DISH"
	ReasonDishUnavailable       = "DISH_UNAVAILABLE"
	ReasonInvalidPrice          = "INVALID_PRICE"
	ReasonRestaurantClosed      = "RESTAURANT_CLOSED"
	ReasonRestaurantNoLocation  = "RESTAURANT_LOCATION_MISSING"
	ReasonMalformedHours        = "MALFORMED_OPENING_HOURS"
	ReasonOrderNotFound         = "ORDER_NOT_FOUND"
	ReasonRestaurantNotFound    = "RESTAURANT_NOT_FOUND"
	ReasonDishNotFound          = "DISH_NOT_FOUND"
	ReasonRiderNotFound         = "RIDER_NOT_FOUND"
	ReasonUserNotFound          = "USER_NOT_FOUND"
	ReasonEarningsNotFound      = "EARNINGS_NOT_FOUND"
	ReasonNotOrderOwner         = "NOT_ORDER_OWNER"
	ReasonNotAssignedRider      = "NOT_ASSIGNED_RIDER"
	ReasonOrderNotOffered       = "ORDER_NOT_OFFERED"
	ReasonRiderUnavailable      = "RIDER_UNAVAILABLE"
	ReasonInvalidStatus         = "INVALID_ORDER_STATUS"
	ReasonInvalidAmount         = "INVALID_AMOUNT"
	ReasonInsufficientBalance   = "INSUFFICIENT_BALANCE"
	ReasonNoRefund              = "NO_REFUND_RECORDED"
	ReasonPaymentGateway        = "PAYMENT_GATEWAY_ERROR"
	ReasonRefundFailed          = "REFUND_INITIATION_FAILED"
	ReasonInvalidCredentials    = "INVALID_CREDENTIALS"
	ReasonTooManyAttempts       = "TOO_MANY_ATTEMPTS"
	ReasonAdminExists           = "ADMIN_EXISTS"
)

// Error is a classified failure surfaced to callers.
type Error struct {
	Kind   Kind
	Reason string
	Msg    string
	Err    error
	// RetryAfter is set for KindThrottled, in seconds.
	RetryAfter int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, reason, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

func upstreamErr(reason string, err error, format string, args ...any) *Error {
	return &Error{Kind: KindUpstream, Reason: reason, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the classification of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// storeErr classifies store sentinels; anything else is wrapped as internal.
func storeErr(err error, notFoundReason, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return newErr(KindNotFound, notFoundReason, "%s not found", what)
	case errors.Is(err, store.ErrConflict):
		return newErr(KindConflict, ReasonInvalidStatus, "%s was modified concurrently", what)
	default:
		var e *Error
		if errors.As(err, &e) {
			return err
		}
		return fmt.Errorf("%s: %w", what, err)
	}
}
