package booking

import (
	"context"
	"fmt"
	"time"

	"boxoffice/internal/reservation"
	"boxoffice/internal/session"
)

// mirror is the persisted projection of orchestrator state
type mirror struct {
	sessionID   string
	performance *reservation.Performance
	seats       []reservation.Seat
	expiresAt   time.Time
	customer    CustomerInfo
	bookingData *reservation.BookingRequest
	booking     *reservation.Booking
	txID        string
}

func (o *Orchestrator) mirrorLocked() mirror {
	m := mirror{
		sessionID:   o.sessionID,
		performance: o.performance,
		seats:       append([]reservation.Seat(nil), o.seats...),
		expiresAt:   o.expiresAt,
		customer:    o.customer,
		bookingData: o.bookingData,
		booking:     o.booking,
	}
	if o.transaction != nil {
		m.txID = o.transaction.TransactionID
	}
	return m
}

// syncStore writes the current state to the store. The snapshot is taken
// after persistMu is acquired so the last write always reflects the
// latest state. Failures are logged; the mirror only aids recovery.
func (o *Orchestrator) syncStore(ctx context.Context) {
	o.persistMu.Lock()
	defer o.persistMu.Unlock()

	o.mu.Lock()
	m := o.mirrorLocked()
	o.mu.Unlock()

	var failed []string
	put := func(key string, present bool, value interface{}) {
		var err error
		if present {
			err = o.store.Set(ctx, key, value)
		} else {
			err = o.store.Remove(ctx, key)
		}
		if err != nil {
			failed = append(failed, key)
			o.log.WarnWithContext(ctx, "session mirror write failed", err, map[string]interface{}{"key": key})
		}
	}

	put(session.KeySessionID, m.sessionID != "", m.sessionID)
	put(session.KeySelectedPerformance, m.performance != nil, m.performance)
	put(session.KeySelectedSeats, len(m.seats) > 0, m.seats)
	put(session.KeyReservationExpiry, !m.expiresAt.IsZero(), formatTime(m.expiresAt))
	put(session.KeyCustomerInfo, !m.customer.IsZero(), m.customer)
	put(session.KeyBookingData, m.bookingData != nil, m.bookingData)
	put(session.KeyCurrentBooking, m.booking != nil, m.booking)

	var bookingExpiry time.Time
	if m.booking != nil && m.booking.ExpiresAt != nil {
		bookingExpiry = *m.booking.ExpiresAt
	}
	put(session.KeyBookingExpiry, !bookingExpiry.IsZero(), formatTime(bookingExpiry))
	put(session.KeyCurrentTransaction, m.txID != "", m.txID)

	if len(failed) > 0 {
		o.log.DebugWithContext(ctx, "session mirror partially written", map[string]interface{}{"failed_keys": failed})
	}
}

// RestoreSession reloads state after a restart. The store supplies the
// session, performance and booking; live holds come from the backend,
// which is authoritative. If the backend is unreachable the stored holds
// are used and the countdown expires them on schedule.
func (o *Orchestrator) RestoreSession(ctx context.Context) error {
	o.seatOps.Lock()
	defer o.seatOps.Unlock()

	sid, ok, err := o.store.GetString(ctx, session.KeySessionID)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if !ok {
		return nil
	}

	var (
		perf        reservation.Performance
		seats       []reservation.Seat
		customer    CustomerInfo
		bookingData reservation.BookingRequest
		bkg         reservation.Booking
	)
	hasPerf := o.load(ctx, session.KeySelectedPerformance, &perf)
	o.load(ctx, session.KeySelectedSeats, &seats)
	o.load(ctx, session.KeyCustomerInfo, &customer)
	hasData := o.load(ctx, session.KeyBookingData, &bookingData)
	hasBooking := o.load(ctx, session.KeyCurrentBooking, &bkg)
	window, _, err := o.store.GetTime(ctx, session.KeyReservationExpiry)
	if err != nil {
		o.log.WarnWithContext(ctx, "ignoring stored reservation expiry", err, nil)
		window = time.Time{}
	}
	txID, _, err := o.store.GetString(ctx, session.KeyCurrentTransaction)
	if err != nil {
		o.log.WarnWithContext(ctx, "ignoring stored transaction", err, nil)
		txID = ""
	}

	o.mu.Lock()
	o.resetLocked()
	o.sessionID = sid
	o.customer = customer
	if hasPerf {
		o.performance = &perf
	}
	if hasData {
		o.bookingData = &bookingData
	}
	if hasBooking {
		o.booking = &bkg
	} else {
		o.seats = seats
		o.expiresAt = window
	}
	if txID != "" {
		o.transaction = &reservation.Payment{TransactionID: txID}
		o.paymentStatus = reservation.PaymentPending
		o.paymentPending = true
	}
	seq := o.seatSeq
	o.mu.Unlock()

	if !hasBooking && hasPerf {
		live, err := o.backend.SessionHolds(ctx, perf.ID, sid)
		if err != nil {
			o.log.WarnWithContext(ctx, "live holds unavailable, using stored holds", err, map[string]interface{}{
				"session_id":     sid,
				"performance_id": perf.ID,
			})
		} else {
			o.mu.Lock()
			if seq == o.seatSeq {
				o.seats = append([]reservation.Seat(nil), live.Seats...)
				o.expiresAt = live.ExpiresAt
				if len(o.seats) == 0 {
					o.expiresAt = time.Time{}
				}
			}
			o.mu.Unlock()
		}
	}

	o.mu.Lock()
	window = o.expiresAt
	holding := len(o.seats) > 0 && o.booking == nil
	o.mu.Unlock()

	o.syncStore(ctx)
	if holding && !window.IsZero() {
		o.startCountdown(ctx, window)
	}
	o.log.InfoWithContext(ctx, "checkout session restored", map[string]interface{}{
		"session_id":  sid,
		"has_booking": hasBooking,
		"seat_count":  len(seats),
	})
	return nil
}

// load decodes key into dest, logging and skipping undecodable values
func (o *Orchestrator) load(ctx context.Context, key string, dest interface{}) bool {
	ok, err := o.store.Get(ctx, key, dest)
	if err != nil {
		o.log.WarnWithContext(ctx, "ignoring stored value", err, map[string]interface{}{"key": key})
		return false
	}
	return ok
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
