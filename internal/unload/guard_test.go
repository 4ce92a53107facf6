package unload

import (
	"context"
	"sync"
	"testing"
	"time"

	"boxoffice/internal/reservation"
	"boxoffice/internal/session"
	"boxoffice/pkg/logger"
)

type recordingBeacon struct {
	mu    sync.Mutex
	calls [][]int64
}

func (b *recordingBeacon) SendRelease(_ string, ids []int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, ids)
}

func (b *recordingBeacon) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

type manualSource struct{ ch chan struct{} }

func (m *manualSource) Teardown() <-chan struct{} { return m.ch }

func seededStore(t *testing.T) *session.Store {
	t.Helper()
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryStorage(), logger.Discard(), "zoom_instructions_seen")
	_ = store.Set(ctx, session.KeySessionID, "session_1_abc")
	_ = store.Set(ctx, session.KeySelectedSeats, []reservation.Seat{{ID: 3}, {ID: 4}})
	_ = store.Set(ctx, session.KeyReservationExpiry, "2025-06-01T19:05:00Z")
	_ = store.Set(ctx, "zoom_instructions_seen", "true")
	return store
}

func TestTeardownReleasesAndClears(t *testing.T) {
	store := seededStore(t)
	beacon := &recordingBeacon{}
	g := NewGuard(store, beacon, nil, logger.Discard())
	ctx := context.Background()

	released, handled := g.HandleTeardown(ctx, "/booking/42/customer-info")
	if !handled {
		t.Fatal("teardown should run on a checkout step")
	}
	if len(released) != 2 || released[0] != 3 || released[1] != 4 {
		t.Fatalf("released = %v", released)
	}
	if beacon.count() != 1 || len(beacon.calls[0]) != 2 {
		t.Fatalf("beacon calls = %v", beacon.calls)
	}
	if _, ok, _ := store.GetString(ctx, session.KeySelectedSeats); ok {
		t.Fatal("selectedSeats should be cleared")
	}
	if v, ok, _ := store.GetString(ctx, "zoom_instructions_seen"); !ok || v != "true" {
		t.Fatal("preserved key removed")
	}
}

func TestTeardownSkipsExcludedRoutes(t *testing.T) {
	for _, path := range []string{"/booking/confirmation/BK123", "/payment/failed", "/payment/error?tx=1"} {
		store := seededStore(t)
		beacon := &recordingBeacon{}
		g := NewGuard(store, beacon, nil, logger.Discard())

		if _, handled := g.HandleTeardown(context.Background(), path); handled {
			t.Errorf("%s: teardown should be skipped", path)
		}
		if beacon.count() != 0 {
			t.Errorf("%s: beacon sent", path)
		}
		if !store.Validate(context.Background(), session.KeySessionID) {
			t.Errorf("%s: session cleared", path)
		}
	}
}

func TestTeardownWithoutSeatsSendsNothing(t *testing.T) {
	store := session.NewStore(session.NewMemoryStorage(), logger.Discard())
	_ = store.Set(context.Background(), session.KeySessionID, "session_1_abc")
	beacon := &recordingBeacon{}

	released, _ := NewGuard(store, beacon, nil, logger.Discard()).HandleTeardown(context.Background(), "/booking/1/seats")
	if beacon.count() != 0 || len(released) != 0 {
		t.Fatal("no holds, no beacon")
	}
}

func TestMountedSourceTriggersTeardown(t *testing.T) {
	store := seededStore(t)
	beacon := &recordingBeacon{}
	g := NewGuard(store, beacon, func() string { return "/booking/42/seats" }, logger.Discard())

	src := &manualSource{ch: make(chan struct{})}
	g.Mount(src)
	close(src.ch)

	deadline := time.Now().Add(2 * time.Second)
	for beacon.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("teardown not handled")
		}
		time.Sleep(5 * time.Millisecond)
	}
	g.Unmount()
	if beacon.count() != 1 {
		t.Fatalf("beacon calls = %d", beacon.count())
	}
}

func TestOnTeardownReplacesDefaultPolicy(t *testing.T) {
	store := seededStore(t)
	beacon := &recordingBeacon{}
	g := NewGuard(store, beacon, func() string { return "/booking/42/payment" }, logger.Discard())

	got := make(chan string, 1)
	g.OnTeardown = func(_ context.Context, path string) { got <- path }
	src := &manualSource{ch: make(chan struct{})}
	g.Mount(src)
	close(src.ch)

	select {
	case path := <-got:
		if path != "/booking/42/payment" {
			t.Fatalf("path = %s", path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hook not called")
	}
	g.Unmount()
	if beacon.count() != 0 {
		t.Fatal("default policy ran alongside the hook")
	}
	if _, ok, _ := store.GetString(context.Background(), session.KeySelectedSeats); !ok {
		t.Fatal("store touched without the default policy")
	}
}

func TestUnmountDetaches(t *testing.T) {
	store := seededStore(t)
	beacon := &recordingBeacon{}
	g := NewGuard(store, beacon, nil, logger.Discard())

	src := &manualSource{ch: make(chan struct{})}
	g.Mount(src)
	g.Unmount()
	g.Unmount()
	close(src.ch)

	time.Sleep(10 * time.Millisecond)
	if beacon.count() != 0 {
		t.Fatal("unmounted guard handled teardown")
	}
}

func TestSignalSourceFireIsIdempotent(t *testing.T) {
	s := NewSignalSource()
	defer s.Stop()
	s.Fire()
	s.Fire()
	select {
	case <-s.Teardown():
	default:
		t.Fatal("teardown channel not closed")
	}
}
