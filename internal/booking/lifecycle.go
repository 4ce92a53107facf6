package booking

import (
	"context"

	"boxoffice/internal/reservation"
)

// CreateBooking turns the held seats into a booking. Preconditions are
// checked before anything is sent. A failed attempt clears local booking
// and seat state since the holds may already be gone server side.
func (o *Orchestrator) CreateBooking(ctx context.Context) (*reservation.Booking, error) {
	o.seatOps.Lock()
	defer o.seatOps.Unlock()

	o.mu.Lock()
	if o.booking != nil {
		o.mu.Unlock()
		return nil, precondition(ReasonBookingExists, "a booking is already in progress")
	}
	if o.performance == nil {
		o.mu.Unlock()
		return nil, redirect(precondition(ReasonNoPerformance, "select a performance first"))
	}
	if len(o.seats) == 0 {
		o.mu.Unlock()
		return nil, redirect(precondition(ReasonNoSeats, "select at least one seat"))
	}
	if o.sessionID == "" {
		o.mu.Unlock()
		return nil, redirect(precondition(ReasonNoSession, "checkout session missing"))
	}
	customer := o.customer
	o.mu.Unlock()

	if err := o.validate.Struct(customer); err != nil {
		return nil, &Error{Kind: KindPrecondition, Reason: ReasonInvalidCustomer, Message: "customer details are incomplete", Err: err}
	}

	o.mu.Lock()
	code := ""
	if o.discountValidLocked() {
		code = o.discount.code
	}
	req := o.bookingRequestLocked(code)
	o.bookingSeq++
	seq := o.bookingSeq
	sid := o.sessionID
	o.mu.Unlock()

	created, err := o.backend.CreateBooking(ctx, req)
	if err != nil {
		o.mu.Lock()
		current := seq == o.bookingSeq
		o.mu.Unlock()
		if current {
			o.ClearBooking(ctx)
		}
		return nil, redirect(backendFailure(err, ReasonBookingFailed, "booking could not be created"))
	}

	o.mu.Lock()
	if seq != o.bookingSeq || o.sessionID != sid {
		o.mu.Unlock()
		o.cancelQuietly(ctx, created.BookingCode, sid)
		return nil, superseded()
	}
	o.booking = created
	o.bookingData = &req
	o.mu.Unlock()

	// Booked seats are out of the hold window
	o.timer.Stop()
	o.log.LogBookingCreated(ctx, created.BookingCode, sid, created.FinalAmount)
	o.syncStore(ctx)

	out := *created
	return &out, nil
}

// CancelBooking cancels the pending booking server side, then clears booking state
func (o *Orchestrator) CancelBooking(ctx context.Context) error {
	o.mu.Lock()
	if o.booking == nil {
		o.mu.Unlock()
		return precondition(ReasonNoBooking, "no booking to cancel")
	}
	code := o.booking.BookingCode
	sid := o.sessionID
	seq := o.bookingSeq
	o.mu.Unlock()

	if _, err := o.backend.CancelBooking(ctx, code); err != nil {
		return backendFailure(err, ReasonCancelFailed, "booking could not be cancelled")
	}

	o.mu.Lock()
	current := seq == o.bookingSeq
	o.mu.Unlock()
	if !current {
		return superseded()
	}

	o.log.LogBookingCancelled(ctx, code, sid)
	o.ClearBooking(ctx)
	return nil
}

func (o *Orchestrator) cancelQuietly(ctx context.Context, code, sessionID string) {
	if code == "" {
		return
	}
	if _, err := o.backend.CancelBooking(ctx, code); err != nil {
		o.log.WarnWithContext(ctx, "failed to cancel superseded booking", err, map[string]interface{}{
			"booking_code": code,
			"session_id":   sessionID,
		})
		return
	}
	o.log.LogBookingCancelled(ctx, code, sessionID)
}

func redirect(e *Error) *Error {
	e.ShouldRedirect = true
	return e
}
