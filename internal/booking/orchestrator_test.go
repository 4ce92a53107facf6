package booking

import (
	"context"
	"errors"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"boxoffice/internal/countdown"
	"boxoffice/internal/reservation"
	"boxoffice/internal/session"
	"boxoffice/pkg/clock"
	"boxoffice/pkg/logger"
)

var (
	epoch           = time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC)
	testPerformance = reservation.Performance{ID: 7, ShowID: 3, ShowName: "Hamlet", ServiceFeePerTicket: 10000, ShippingFee: 30000}
	validCustomer   = CustomerInfo{Name: "Lan Nguyen", Email: "lan@example.com", Phone: "0901234567"}
)

type harness struct {
	o       *Orchestrator
	backend *fakeBackend
	store   *session.Store
	clock   *clock.Fake
	timer   *stubTimer
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	fake := clock.NewFake(epoch)
	h := &harness{
		backend: newFakeBackend(fake),
		store:   session.NewStore(session.NewMemoryStorage(), logger.Discard(), "zoom_instructions_seen"),
		clock:   fake,
		timer:   &stubTimer{},
	}
	h.o = New(Deps{
		Backend: h.backend,
		Store:   h.store,
		Timer:   h.timer,
		Clock:   fake,
		Logger:  logger.Discard(),
	}, opts)
	return h
}

// newCountdownHarness drives a real countdown from the fake clock
func newCountdownHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := newHarness(t, opts)
	h.o.timer = countdown.New(h.clock)
	h.timer = nil
	return h
}

func (h *harness) hold(t *testing.T, ids ...int64) {
	t.Helper()
	ctx := context.Background()
	if err := h.o.SelectPerformance(ctx, testPerformance); err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		if err := h.o.SelectSeat(ctx, h.backend.seats[id]); err != nil {
			t.Fatalf("select %d: %v", id, err)
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestInitSessionIsIdempotent(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	id, err := h.o.InitSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !regexp.MustCompile(`^session_\d+_[0-9a-z]{9}$`).MatchString(id) {
		t.Fatalf("session id %q has wrong format", id)
	}
	again, _ := h.o.InitSession(ctx)
	if again != id {
		t.Fatalf("second InitSession = %q, want %q", again, id)
	}
	stored, ok, _ := h.store.GetString(ctx, session.KeySessionID)
	if !ok || stored != id {
		t.Fatalf("persisted session = %q, %v", stored, ok)
	}
}

func TestInitSessionReusesStoredID(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	_ = h.store.Set(ctx, session.KeySessionID, "session_1_abcdefghi")

	id, err := h.o.InitSession(ctx)
	if err != nil || id != "session_1_abcdefghi" {
		t.Fatalf("InitSession = %q, %v", id, err)
	}
}

func TestSelectSeatReservesFullSet(t *testing.T) {
	h := newHarness(t, Options{})
	h.hold(t, 1, 2, 3)

	if got := h.backend.reserves; len(got) != 3 || len(got[2]) != 3 || got[2][0] != 1 || got[2][2] != 3 {
		t.Fatalf("reserve payloads = %v", got)
	}
	st := h.o.Snapshot()
	if len(st.Seats) != 3 || !st.ReservationExpiry.Equal(epoch.Add(5*time.Minute)) {
		t.Fatalf("state = %+v", st)
	}
	if len(h.timer.starts) != 3 || !h.timer.isRunning() {
		t.Fatalf("countdown starts = %v", h.timer.starts)
	}

	var stored []reservation.Seat
	if ok, _ := h.store.Get(context.Background(), session.KeySelectedSeats, &stored); !ok || len(stored) != 3 {
		t.Fatalf("selectedSeats mirror = %v", stored)
	}
}

func TestSelectSeatRequiresPerformance(t *testing.T) {
	h := newHarness(t, Options{})
	err := h.o.SelectSeat(context.Background(), h.backend.seats[1])
	if !IsReason(err, ReasonNoPerformance) || !IsKind(err, KindPrecondition) {
		t.Fatalf("err = %v", err)
	}
	if h.backend.reserveCount() != 0 {
		t.Fatal("no reserve call expected")
	}
}

func TestMaxSeatsEnforcedWithoutNetwork(t *testing.T) {
	h := newHarness(t, Options{})
	h.hold(t, 1, 2, 3, 4, 5, 6, 7, 8)

	err := h.o.SelectSeat(context.Background(), h.backend.seats[9])
	if !IsReason(err, ReasonMaxSeats) {
		t.Fatalf("err = %v, want max_seats", err)
	}
	if n := h.backend.reserveCount(); n != 8 {
		t.Fatalf("reserve calls = %d, want 8", n)
	}
	if n := len(h.o.Snapshot().Seats); n != 8 {
		t.Fatalf("held = %d", n)
	}
}

func TestMaxSeatsIsConfigurable(t *testing.T) {
	h := newHarness(t, Options{MaxSeats: 2})
	h.hold(t, 1, 2)
	if err := h.o.SelectSeat(context.Background(), h.backend.seats[3]); !IsReason(err, ReasonMaxSeats) {
		t.Fatalf("err = %v", err)
	}
}

func TestDeselectReleasesOnlyThatSeat(t *testing.T) {
	h := newHarness(t, Options{})
	h.hold(t, 1, 2)

	if err := h.o.SelectSeat(context.Background(), h.backend.seats[1]); err != nil {
		t.Fatal(err)
	}
	releases := h.backend.releaseCalls()
	if len(releases) != 1 || len(releases[0]) != 1 || releases[0][0] != 1 {
		t.Fatalf("release payloads = %v", releases)
	}
	st := h.o.Snapshot()
	if len(st.Seats) != 1 || st.Seats[0].ID != 2 {
		t.Fatalf("held = %+v", st.Seats)
	}
	if h.backend.reserveCount() != 2 {
		t.Fatal("deselect must not reserve")
	}
}

func TestReleaseFailureStillDropsSeat(t *testing.T) {
	h := newHarness(t, Options{})
	h.hold(t, 1, 2)
	h.backend.onRelease = func([]int64) error {
		return &reservation.TransportError{Op: "release seats", Err: errors.New("connection reset")}
	}

	if err := h.o.Release(context.Background(), 2); err != nil {
		t.Fatalf("release errors are logged, got %v", err)
	}
	if st := h.o.Snapshot(); len(st.Seats) != 1 || st.Seats[0].ID != 1 {
		t.Fatalf("held = %+v", st.Seats)
	}
}

func TestReleaseOfUnheldSeatChangesNothing(t *testing.T) {
	h := newHarness(t, Options{})
	h.hold(t, 1)
	before := h.o.Snapshot()

	if err := h.o.Release(context.Background(), 9); err != nil {
		t.Fatal(err)
	}
	after := h.o.Snapshot()
	if len(after.Seats) != 1 || after.Seats[0].ID != 1 || !after.ReservationExpiry.Equal(before.ReservationExpiry) {
		t.Fatalf("state changed: %+v", after)
	}
	if !h.timer.isRunning() {
		t.Fatal("countdown stopped by a no-op release")
	}
}

func TestReleasingLastSeatStopsCountdown(t *testing.T) {
	h := newHarness(t, Options{})
	h.hold(t, 1)
	_ = h.o.Release(context.Background(), 1)

	if h.timer.isRunning() {
		t.Fatal("countdown still running with no holds")
	}
	if _, ok, _ := h.store.GetString(context.Background(), session.KeyReservationExpiry); ok {
		t.Fatal("reservationExpiry should be removed")
	}
}

func TestRejectedReserveLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t, Options{})
	h.hold(t, 1)
	h.backend.onReserve = func(context.Context, []int64) (*reservation.Reservation, error) {
		return nil, &reservation.APIError{Op: "reserve seats", StatusCode: 409, Message: "Seat A2 is no longer available"}
	}

	err := h.o.SelectSeat(context.Background(), h.backend.seats[2])
	var be *Error
	if !errors.As(err, &be) || be.Kind != KindRejected || be.Message != "Seat A2 is no longer available" {
		t.Fatalf("err = %#v", err)
	}
	if st := h.o.Snapshot(); len(st.Seats) != 1 {
		t.Fatalf("held = %+v", st.Seats)
	}
}

func TestTransportFailureIsDistinct(t *testing.T) {
	h := newHarness(t, Options{})
	h.hold(t)
	h.backend.onReserve = func(context.Context, []int64) (*reservation.Reservation, error) {
		return nil, &reservation.TransportError{Op: "reserve seats", Err: errors.New("dial tcp: refused")}
	}

	err := h.o.SelectSeat(context.Background(), h.backend.seats[1])
	if !IsKind(err, KindTransport) {
		t.Fatalf("err = %v", err)
	}
	if h.backend.reserveCount() != 1 {
		t.Fatal("mutating calls are never retried")
	}
}

func TestSameSeatDoubleToggleIsBusy(t *testing.T) {
	h := newHarness(t, Options{})
	h.hold(t)

	gate := make(chan struct{})
	entered := make(chan struct{})
	h.backend.onReserve = func(_ context.Context, ids []int64) (*reservation.Reservation, error) {
		close(entered)
		<-gate
		return &reservation.Reservation{Seats: h.backend.seatList(ids), ExpiresAt: epoch.Add(5 * time.Minute)}, nil
	}

	done := make(chan error, 1)
	go func() { done <- h.o.SelectSeat(context.Background(), h.backend.seats[1]) }()
	<-entered

	if err := h.o.SelectSeat(context.Background(), h.backend.seats[1]); !IsReason(err, ReasonSeatBusy) {
		t.Fatalf("err = %v, want seat_busy", err)
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if h.backend.reserveCount() != 1 {
		t.Fatalf("reserve calls = %d", h.backend.reserveCount())
	}
}

func TestLateReserveAfterClearIsDiscarded(t *testing.T) {
	h := newHarness(t, Options{})
	h.hold(t)

	gate := make(chan struct{})
	entered := make(chan struct{})
	h.backend.onReserve = func(_ context.Context, ids []int64) (*reservation.Reservation, error) {
		close(entered)
		<-gate
		return &reservation.Reservation{Seats: h.backend.seatList(ids), ExpiresAt: epoch.Add(5 * time.Minute)}, nil
	}

	done := make(chan error, 1)
	go func() { done <- h.o.SelectSeat(context.Background(), h.backend.seats[4]) }()
	<-entered
	h.o.ClearBooking(context.Background())
	close(gate)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", err)
	}
	if st := h.o.Snapshot(); len(st.Seats) != 0 || st.Performance != nil {
		t.Fatalf("stale response resurrected state: %+v", st)
	}
	releases := h.backend.releaseCalls()
	if len(releases) != 1 || releases[0][0] != 4 {
		t.Fatalf("orphaned hold should be released, got %v", releases)
	}
}

func TestExpiryDuringInflightReserve(t *testing.T) {
	var expired int32
	h := newCountdownHarness(t, Options{OnExpire: func() { atomic.AddInt32(&expired, 1) }})
	h.hold(t, 1)

	gate := make(chan struct{})
	entered := make(chan struct{})
	h.backend.onReserve = func(_ context.Context, ids []int64) (*reservation.Reservation, error) {
		close(entered)
		<-gate
		return &reservation.Reservation{Seats: h.backend.seatList(ids), ExpiresAt: h.clock.Now().Add(5 * time.Minute)}, nil
	}

	done := make(chan error, 1)
	go func() { done <- h.o.SelectSeat(context.Background(), h.backend.seats[2]) }()
	<-entered

	h.clock.Advance(5 * time.Minute)
	waitFor(t, "expiry", func() bool { return atomic.LoadInt32(&expired) == 1 })
	if st := h.o.Snapshot(); len(st.Seats) != 0 {
		t.Fatalf("expiry left holds: %+v", st.Seats)
	}

	close(gate)
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err = %v", err)
	}
	if st := h.o.Snapshot(); len(st.Seats) != 0 {
		t.Fatalf("late reserve resurrected holds: %+v", st.Seats)
	}
	if atomic.LoadInt32(&expired) != 1 {
		t.Fatal("expiry must fire exactly once")
	}
}

func TestExpiryReleasesAndClears(t *testing.T) {
	var expired int32
	h := newCountdownHarness(t, Options{OnExpire: func() { atomic.AddInt32(&expired, 1) }})
	h.hold(t, 1, 2)
	ctx := context.Background()

	h.clock.Advance(5 * time.Minute)
	waitFor(t, "expiry", func() bool { return atomic.LoadInt32(&expired) == 1 })

	releases := h.backend.releaseCalls()
	if len(releases) != 1 || len(releases[0]) != 2 {
		t.Fatalf("release payloads = %v", releases)
	}
	if !h.store.Validate(ctx, session.KeySessionID) {
		t.Fatal("session id should survive expiry")
	}
	if _, ok, _ := h.store.GetString(ctx, session.KeySelectedSeats); ok {
		t.Fatal("selectedSeats should be cleared")
	}
}

func TestAlreadyExpiredWindowClearsImmediately(t *testing.T) {
	var expired int32
	h := newCountdownHarness(t, Options{OnExpire: func() { atomic.AddInt32(&expired, 1) }})
	h.hold(t)
	h.backend.onReserve = func(_ context.Context, ids []int64) (*reservation.Reservation, error) {
		return &reservation.Reservation{Seats: h.backend.seatList(ids), ExpiresAt: epoch.Add(-3 * time.Second)}, nil
	}

	if err := h.o.SelectSeat(context.Background(), h.backend.seats[1]); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&expired) != 1 {
		t.Fatal("past expiry must fire during the call")
	}
	if st := h.o.Snapshot(); len(st.Seats) != 0 {
		t.Fatalf("held = %+v", st.Seats)
	}
}

func TestSwitchingPerformanceReleasesHolds(t *testing.T) {
	h := newHarness(t, Options{})
	h.hold(t, 1, 2)

	other := testPerformance
	other.ID = 8
	if err := h.o.SelectPerformance(context.Background(), other); err != nil {
		t.Fatal(err)
	}
	st := h.o.Snapshot()
	if st.Performance.ID != 8 || len(st.Seats) != 0 {
		t.Fatalf("state = %+v", st)
	}
	if releases := h.backend.releaseCalls(); len(releases) != 1 || len(releases[0]) != 2 {
		t.Fatalf("release payloads = %v", releases)
	}
}

func TestClearSessionDropsSessionButKeepsPreserved(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	_ = h.store.Set(ctx, "zoom_instructions_seen", "true")
	h.hold(t, 1)

	h.o.ClearSession(ctx)

	if h.o.SessionID() != "" {
		t.Fatal("session id should be dropped")
	}
	if v, ok, _ := h.store.GetString(ctx, "zoom_instructions_seen"); !ok || v != "true" {
		t.Fatal("preserved key removed")
	}
	if _, ok, _ := h.store.GetString(ctx, session.KeySessionID); ok {
		t.Fatal("session_id still persisted")
	}
}

func TestRestoreSessionPrefersLiveHolds(t *testing.T) {
	h := newHarness(t, Options{})
	h.hold(t, 1, 2)
	stored := h.o.SessionID()

	live := epoch.Add(3 * time.Minute)
	h.backend.onHolds = func() (*reservation.Reservation, error) {
		return &reservation.Reservation{Seats: h.backend.seatList([]int64{2}), ExpiresAt: live}, nil
	}

	fresh := New(Deps{Backend: h.backend, Store: h.store, Timer: &stubTimer{}, Clock: h.clock, Logger: logger.Discard()}, Options{})
	if err := fresh.RestoreSession(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := fresh.Snapshot()
	if st.SessionID != stored || st.Performance == nil || st.Performance.ID != testPerformance.ID {
		t.Fatalf("restored = %+v", st)
	}
	if len(st.Seats) != 1 || st.Seats[0].ID != 2 || !st.ReservationExpiry.Equal(live) {
		t.Fatalf("restored holds = %+v until %v", st.Seats, st.ReservationExpiry)
	}
}

func TestRestoreSessionFallsBackToStoredHolds(t *testing.T) {
	h := newHarness(t, Options{})
	h.hold(t, 1, 2)
	h.backend.onHolds = func() (*reservation.Reservation, error) {
		return nil, &reservation.TransportError{Op: "session holds", Err: errors.New("timeout")}
	}

	timer := &stubTimer{}
	fresh := New(Deps{Backend: h.backend, Store: h.store, Timer: timer, Clock: h.clock, Logger: logger.Discard()}, Options{})
	if err := fresh.RestoreSession(context.Background()); err != nil {
		t.Fatal(err)
	}
	if st := fresh.Snapshot(); len(st.Seats) != 2 {
		t.Fatalf("restored holds = %+v", st.Seats)
	}
	if !timer.isRunning() {
		t.Fatal("countdown should restart for restored holds")
	}
}

func TestRestoreWithoutSessionIsNoop(t *testing.T) {
	h := newHarness(t, Options{})
	if err := h.o.RestoreSession(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.o.SessionID() != "" {
		t.Fatal("no session should be created")
	}
}
