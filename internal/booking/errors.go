package booking

import (
	"errors"
	"fmt"

	"boxoffice/internal/reservation"
)

// Kind classifies a checkout failure
type Kind string

const (
	// KindPrecondition means local state did not allow the operation; nothing was sent
	KindPrecondition Kind = "precondition"
	// KindRejected means the backend answered and refused
	KindRejected Kind = "rejected"
	// KindTransport means no usable answer arrived
	KindTransport Kind = "transport"
	// KindStale means the answer arrived after local state moved on
	KindStale Kind = "stale"
)

// Reason is a machine readable cause within a Kind
type Reason string

const (
	ReasonNoPerformance    Reason = "no_performance"
	ReasonNoSeats          Reason = "no_seats"
	ReasonNoSession        Reason = "no_session"
	ReasonInvalidCustomer  Reason = "invalid_customer"
	ReasonNoBooking        Reason = "no_booking"
	ReasonPaymentPending   Reason = "payment_pending"
	ReasonMaxSeats         Reason = "max_seats"
	ReasonSeatBusy         Reason = "seat_busy"
	ReasonNoDiscountCode   Reason = "no_discount_code"
	ReasonNoPaymentMethod  Reason = "no_payment_method"
	ReasonNoTransaction    Reason = "no_transaction"
	ReasonBookingExists    Reason = "booking_exists"
	ReasonSeatUnavailable  Reason = "seat_unavailable"
	ReasonDiscountInvalid  Reason = "discount_invalid"
	ReasonBookingFailed    Reason = "booking_failed"
	ReasonPaymentFailed    Reason = "payment_failed"
	ReasonCancelFailed     Reason = "cancel_failed"
	ReasonStatusUnknown    Reason = "status_unknown"
	ReasonSuperseded       Reason = "superseded"
	ReasonBackendUnreached Reason = "backend_unreachable"
)

// Error is returned by every orchestrator operation that fails
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	// ShouldRedirect tells the caller to leave the current step
	ShouldRedirect bool
	Err            error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("booking %s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("booking %s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error on Kind and Reason
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

// ErrSuperseded is returned when a response arrives for state that was replaced
var ErrSuperseded = &Error{Kind: KindStale, Reason: ReasonSuperseded, Message: "response superseded by a newer change"}

// IsKind reports whether err is a booking error of kind k
func IsKind(err error, k Kind) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == k
}

// IsReason reports whether err is a booking error with reason r
func IsReason(err error, r Reason) bool {
	var be *Error
	return errors.As(err, &be) && be.Reason == r
}

func precondition(reason Reason, message string) *Error {
	return &Error{Kind: KindPrecondition, Reason: reason, Message: message}
}

func superseded() *Error {
	e := *ErrSuperseded
	return &e
}

// backendFailure maps a client error onto the taxonomy. Rejections carry
// the server message when there is one, otherwise fallback.
func backendFailure(err error, reason Reason, fallback string) *Error {
	if errors.Is(err, reservation.ErrMissingSession) {
		return &Error{Kind: KindPrecondition, Reason: ReasonNoSession, Message: "no checkout session", Err: err}
	}
	if reservation.IsTransport(err) {
		return &Error{Kind: KindTransport, Reason: ReasonBackendUnreached, Message: "reservation service unreachable", Err: err}
	}
	msg := fallback
	if apiErr, ok := reservation.AsAPIError(err); ok && apiErr.Message != "" {
		msg = apiErr.Message
	}
	return &Error{Kind: KindRejected, Reason: reason, Message: msg, Err: err}
}
