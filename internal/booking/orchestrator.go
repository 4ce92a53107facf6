package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"boxoffice/internal/countdown"
	"boxoffice/internal/reservation"
	"boxoffice/internal/session"
	"boxoffice/pkg/clock"
	"boxoffice/pkg/logger"
)

// Timer is the reservation countdown as the orchestrator drives it
type Timer interface {
	Start(expiresAt time.Time, onExpire func()) error
	Stop()
}

// Deps are the collaborators of an Orchestrator
type Deps struct {
	Backend  reservation.Client
	Store    *session.Store
	Timer    Timer
	Clock    clock.Clock
	Logger   *logger.Logger
	Validate *validator.Validate
}

// Options tune checkout rules
type Options struct {
	MaxSeats            int
	ServiceFeePerTicket int64
	PollDelay           time.Duration
	PollInterval        time.Duration
	// CleanupTimeout bounds best-effort releases made outside a caller's context
	CleanupTimeout time.Duration
	// OnExpire runs after an expired reservation window has been cleared
	OnExpire func()
}

// DefaultOptions returns the standard checkout rules
func DefaultOptions() Options {
	return Options{
		MaxSeats:            8,
		ServiceFeePerTicket: 10000,
		PollDelay:           5 * time.Second,
		PollInterval:        5 * time.Second,
		CleanupTimeout:      5 * time.Second,
	}
}

// Orchestrator owns the checkout state machine for one tab. State lives
// behind mu, which is never held across a backend call. Every dispatch
// and every clear bumps a per-resource sequence; a response is applied
// only while its sequence is still current.
type Orchestrator struct {
	backend  reservation.Client
	store    *session.Store
	timer    Timer
	clock    clock.Clock
	log      *logger.Logger
	validate *validator.Validate
	opts     Options

	// seatOps serializes seat set changes so each reserve carries the latest union
	seatOps sync.Mutex
	// persistMu orders mirror writes
	persistMu sync.Mutex

	mu             sync.Mutex
	sessionID      string
	performance    *reservation.Performance
	seats          []reservation.Seat
	expiresAt      time.Time
	customer       CustomerInfo
	discount       *discountApplication
	bookingData    *reservation.BookingRequest
	booking        *reservation.Booking
	transaction    *reservation.Payment
	paymentStatus  reservation.PaymentStatus
	paymentPending bool
	inflight       map[int64]struct{}

	seatSeq     uint64
	discountSeq uint64
	bookingSeq  uint64
	paymentSeq  uint64
}

func New(d Deps, opts Options) *Orchestrator {
	def := DefaultOptions()
	if opts.MaxSeats <= 0 {
		opts.MaxSeats = def.MaxSeats
	}
	if opts.ServiceFeePerTicket <= 0 {
		opts.ServiceFeePerTicket = def.ServiceFeePerTicket
	}
	if opts.PollDelay <= 0 {
		opts.PollDelay = def.PollDelay
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.CleanupTimeout <= 0 {
		opts.CleanupTimeout = def.CleanupTimeout
	}

	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Timer == nil {
		d.Timer = countdown.New(d.Clock)
	}
	if d.Logger == nil {
		d.Logger = logger.GetDefault()
	}
	if d.Validate == nil {
		d.Validate = validator.New()
	}
	if d.Store == nil {
		d.Store = session.NewStore(session.NewMemoryStorage(), d.Logger)
	}

	return &Orchestrator{
		backend:  d.Backend,
		store:    d.Store,
		timer:    d.Timer,
		clock:    d.Clock,
		log:      d.Logger.WithComponent("booking"),
		validate: d.Validate,
		opts:     opts,
		inflight: make(map[int64]struct{}),
	}
}

// InitSession returns the tab's session id, creating and persisting one on first use
func (o *Orchestrator) InitSession(ctx context.Context) (string, error) {
	o.mu.Lock()
	if o.sessionID != "" {
		id := o.sessionID
		o.mu.Unlock()
		return id, nil
	}
	o.mu.Unlock()

	id, ok, err := o.store.GetString(ctx, session.KeySessionID)
	if err != nil {
		return "", &Error{Kind: KindPrecondition, Reason: ReasonNoSession, Message: "session store unavailable", Err: err}
	}
	if !ok {
		id = NewSessionID(o.clock.Now())
	}

	o.mu.Lock()
	if o.sessionID == "" {
		o.sessionID = id
	}
	id = o.sessionID
	o.mu.Unlock()

	o.syncStore(ctx)
	return id, nil
}

// SessionID returns the current session id, empty before InitSession
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// SelectPerformance chooses the showing to book. Switching showings
// while holding seats gives those seats back.
func (o *Orchestrator) SelectPerformance(ctx context.Context, perf reservation.Performance) error {
	o.seatOps.Lock()
	defer o.seatOps.Unlock()

	o.mu.Lock()
	if o.booking != nil {
		o.mu.Unlock()
		return precondition(ReasonBookingExists, "a booking is already in progress")
	}
	if o.performance != nil && o.performance.ID == perf.ID {
		o.performance = &perf
		o.mu.Unlock()
		o.syncStore(ctx)
		return nil
	}

	sid := o.sessionID
	released := reservation.SeatIDs(o.seats)
	o.performance = &perf
	o.seats = nil
	o.expiresAt = time.Time{}
	o.discount = nil
	o.seatSeq++
	o.discountSeq++
	o.mu.Unlock()

	o.timer.Stop()
	o.syncStore(ctx)
	o.releaseQuietly(ctx, sid, released, "performance_changed")
	return nil
}

// SelectSeat toggles a seat. A held seat is released on its own; a new
// seat is reserved together with every seat already held.
func (o *Orchestrator) SelectSeat(ctx context.Context, seat reservation.Seat) error {
	o.mu.Lock()
	if _, busy := o.inflight[seat.ID]; busy {
		o.mu.Unlock()
		return precondition(ReasonSeatBusy, "this seat is still being updated")
	}
	o.inflight[seat.ID] = struct{}{}
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.inflight, seat.ID)
		o.mu.Unlock()
	}()

	o.seatOps.Lock()
	defer o.seatOps.Unlock()

	o.mu.Lock()
	held := indexOfSeat(o.seats, seat.ID) >= 0
	o.mu.Unlock()
	if held {
		o.releaseLocked(ctx, []int64{seat.ID}, "deselected")
		return nil
	}

	sid, err := o.InitSession(ctx)
	if err != nil {
		return err
	}

	o.mu.Lock()
	if o.booking != nil {
		o.mu.Unlock()
		return precondition(ReasonBookingExists, "a booking is already in progress")
	}
	if o.performance == nil {
		o.mu.Unlock()
		return precondition(ReasonNoPerformance, "select a performance first")
	}
	if len(o.seats) >= o.opts.MaxSeats {
		o.mu.Unlock()
		return precondition(ReasonMaxSeats, "seat limit reached")
	}
	perfID := o.performance.ID
	ids := append(reservation.SeatIDs(o.seats), seat.ID)
	o.seatSeq++
	seq := o.seatSeq
	o.mu.Unlock()

	res, err := o.backend.ReserveSeats(ctx, perfID, ids, sid)
	if err != nil {
		return backendFailure(err, ReasonSeatUnavailable, "seat could not be reserved")
	}

	o.mu.Lock()
	if seq != o.seatSeq || o.sessionID != sid {
		current := o.seats
		o.mu.Unlock()
		// Holds the server just granted belong to nothing now
		o.releaseQuietly(ctx, sid, orphaned(res.Seats, current), "superseded")
		return superseded()
	}
	if res.ExpiresAt.IsZero() {
		o.mu.Unlock()
		o.log.ErrorWithContext(ctx, "reserve response carried no expiry", nil, map[string]interface{}{
			"session_id": sid,
			"seat_ids":   ids,
		})
		return &Error{Kind: KindTransport, Reason: ReasonBackendUnreached, Message: "reservation response missing expiry"}
	}
	o.seats = append([]reservation.Seat(nil), res.Seats...)
	o.expiresAt = res.ExpiresAt
	o.discount = nil
	o.discountSeq++
	window := o.expiresAt
	o.mu.Unlock()

	o.log.LogSeatsReserved(ctx, sid, reservation.SeatIDs(res.Seats), window)
	o.syncStore(ctx)
	o.startCountdown(ctx, window)
	return nil
}

// Release gives back the given seats. Seats that are not held leave local
// state untouched, though the backend is still told. Failures are logged.
func (o *Orchestrator) Release(ctx context.Context, seatIDs ...int64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	o.seatOps.Lock()
	defer o.seatOps.Unlock()
	o.releaseLocked(ctx, seatIDs, "released")
	return nil
}

// releaseLocked needs seatOps held
func (o *Orchestrator) releaseLocked(ctx context.Context, seatIDs []int64, reason string) {
	drop := make(map[int64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		drop[id] = struct{}{}
	}

	o.mu.Lock()
	sid := o.sessionID
	kept := o.seats[:0:0]
	for _, s := range o.seats {
		if _, ok := drop[s.ID]; !ok {
			kept = append(kept, s)
		}
	}
	changed := len(kept) != len(o.seats)
	emptied := false
	if changed {
		o.seats = kept
		o.seatSeq++
		o.discount = nil
		o.discountSeq++
		if len(kept) == 0 {
			o.expiresAt = time.Time{}
			emptied = true
		}
	}
	o.mu.Unlock()

	if emptied {
		o.timer.Stop()
	}
	if changed {
		o.syncStore(ctx)
	}
	o.releaseQuietly(ctx, sid, seatIDs, reason)
}

// SetCustomerInfo records buyer details. Changing them drops an applied discount.
func (o *Orchestrator) SetCustomerInfo(ctx context.Context, info CustomerInfo) {
	o.mu.Lock()
	if o.customer != info {
		o.customer = info
		o.discount = nil
		o.discountSeq++
	}
	o.mu.Unlock()
	o.syncStore(ctx)
}

// Totals prices the current selection. A discount counts only while the
// seats and customer info still match what it was priced against.
func (o *Orchestrator) Totals() Totals {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.totalsLocked()
}

func (o *Orchestrator) totalsLocked() Totals {
	var amount int64
	var code string
	if o.discountValidLocked() {
		amount, code = o.discount.amount, o.discount.code
	}
	return computeTotals(o.performance, o.seats, o.opts.ServiceFeePerTicket, amount, code)
}

func (o *Orchestrator) discountValidLocked() bool {
	return o.discount != nil &&
		o.discount.seatKey == seatSetKey(o.seats) &&
		o.discount.customer == o.customer
}

// Snapshot returns a copy of the current state
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := State{
		SessionID:         o.sessionID,
		Seats:             append([]reservation.Seat(nil), o.seats...),
		ReservationExpiry: o.expiresAt,
		Customer:          o.customer,
		Totals:            o.totalsLocked(),
		PaymentStatus:     o.paymentStatus,
		PaymentPending:    o.paymentPending,
	}
	if o.performance != nil {
		p := *o.performance
		st.Performance = &p
	}
	if o.booking != nil {
		b := *o.booking
		st.Booking = &b
	}
	if o.transaction != nil {
		t := *o.transaction
		st.Transaction = &t
	}
	return st
}

// ClearBooking resets booking state in memory and in the store, keeping the session id
func (o *Orchestrator) ClearBooking(ctx context.Context) {
	o.mu.Lock()
	o.resetLocked()
	o.mu.Unlock()
	o.timer.Stop()
	o.clearStore(ctx, true)
}

// ClearSession resets everything, including the session id
func (o *Orchestrator) ClearSession(ctx context.Context) {
	o.Abandon(ctx)
}

// Abandon is ClearSession that also reports the session id and the seats
// held in memory at the moment of the reset. Reserve calls still in flight
// come back superseded and release their own seats.
func (o *Orchestrator) Abandon(ctx context.Context) (string, []int64) {
	o.mu.Lock()
	sid := o.sessionID
	held := reservation.SeatIDs(o.seats)
	o.resetLocked()
	o.sessionID = ""
	o.mu.Unlock()
	o.timer.Stop()
	o.clearStore(ctx, false)
	return sid, held
}

func (o *Orchestrator) clearStore(ctx context.Context, keepSession bool) {
	o.persistMu.Lock()
	defer o.persistMu.Unlock()

	keep := o.store.PreserveKeys()
	if keepSession {
		keep = append(keep, session.KeySessionID)
	}
	if err := o.store.Clear(ctx, keep...); err != nil {
		o.log.WarnWithContext(ctx, "failed to clear persisted checkout state", err, map[string]interface{}{
			"keep_session": keepSession,
		})
	}
}

func (o *Orchestrator) resetLocked() {
	o.performance = nil
	o.seats = nil
	o.expiresAt = time.Time{}
	o.customer = CustomerInfo{}
	o.discount = nil
	o.bookingData = nil
	o.booking = nil
	o.transaction = nil
	o.paymentStatus = ""
	o.paymentPending = false
	o.seatSeq++
	o.discountSeq++
	o.bookingSeq++
	o.paymentSeq++
}

func (o *Orchestrator) startCountdown(ctx context.Context, window time.Time) {
	err := o.timer.Start(window, func() { o.expire(window) })
	if err != nil {
		o.log.ErrorWithContext(ctx, "countdown not started", err, map[string]interface{}{"expires_at": window})
	}
}

// expire clears a window that ran out. A window replaced in the meantime is left alone.
func (o *Orchestrator) expire(window time.Time) {
	o.mu.Lock()
	if o.booking != nil || len(o.seats) == 0 || !o.expiresAt.Equal(window) {
		o.mu.Unlock()
		return
	}
	sid := o.sessionID
	ids := reservation.SeatIDs(o.seats)
	o.resetLocked()
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), o.opts.CleanupTimeout)
	defer cancel()

	o.log.LogHoldExpired(ctx, sid, len(ids))
	o.clearStore(ctx, true)
	o.releaseQuietly(ctx, sid, ids, "expired")

	if o.opts.OnExpire != nil {
		o.opts.OnExpire()
	}
}

func (o *Orchestrator) releaseQuietly(ctx context.Context, sessionID string, seatIDs []int64, reason string) {
	if sessionID == "" || len(seatIDs) == 0 {
		return
	}
	if _, err := o.backend.ReleaseSeats(ctx, seatIDs, sessionID); err != nil {
		o.log.WarnWithContext(ctx, "seat release failed", err, map[string]interface{}{
			"session_id": sessionID,
			"seat_ids":   seatIDs,
			"reason":     reason,
		})
		return
	}
	o.log.LogSeatsReleased(ctx, sessionID, seatIDs, reason)
}

// orphaned returns the ids in granted that are not in held
func orphaned(granted, held []reservation.Seat) []int64 {
	var ids []int64
	for _, s := range granted {
		if indexOfSeat(held, s.ID) < 0 {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
