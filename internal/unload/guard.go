package unload

import (
	"context"
	"strings"
	"sync"
	"time"

	"boxoffice/internal/reservation"
	"boxoffice/internal/session"
	"boxoffice/pkg/logger"
)

// DefaultExcludedRoutes are pages where teardown must leave the session alone
var DefaultExcludedRoutes = []string{
	"/booking/confirmation",
	"/payment/failed",
	"/payment/error",
}

// Source announces that the checkout surface is going away
type Source interface {
	Teardown() <-chan struct{}
}

// Guard releases holds and clears the session when the checkout is torn
// down mid-flow. The release is a beacon and is never awaited.
type Guard struct {
	store       *session.Store
	beacon      reservation.Beacon
	currentPath func() string
	excluded    []string
	log         *logger.Logger
	// OnTeardown replaces HandleTeardown for mounted sources when set
	OnTeardown func(ctx context.Context, path string)

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func NewGuard(store *session.Store, beacon reservation.Beacon, currentPath func() string, log *logger.Logger, excluded ...string) *Guard {
	if len(excluded) == 0 {
		excluded = DefaultExcludedRoutes
	}
	if log == nil {
		log = logger.GetDefault()
	}
	if currentPath == nil {
		currentPath = func() string { return "" }
	}
	return &Guard{
		store:       store,
		beacon:      beacon,
		currentPath: currentPath,
		excluded:    excluded,
		log:         log.WithComponent("unload"),
	}
}

// Mount starts listening on src, replacing any previous source
func (g *Guard) Mount(src Source) {
	g.Unmount()

	g.mu.Lock()
	stop := make(chan struct{})
	g.stop = stop
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		select {
		case <-stop:
			return
		case <-src.Teardown():
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if g.OnTeardown != nil {
			g.OnTeardown(ctx, g.currentPath())
			return
		}
		g.HandleTeardown(ctx, g.currentPath())
	}()
}

// Unmount stops listening. Safe to call when not mounted.
func (g *Guard) Unmount() {
	g.mu.Lock()
	stop := g.stop
	g.stop = nil
	g.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	g.wg.Wait()
}

// HandleTeardown runs the teardown policy for path and returns the seat ids
// it sent a release for. handled is false when path is excluded and nothing
// was touched.
func (g *Guard) HandleTeardown(ctx context.Context, path string) (released []int64, handled bool) {
	if g.isExcluded(path) {
		g.log.DebugWithContext(ctx, "teardown on excluded route", map[string]interface{}{"path": path})
		return nil, false
	}

	sid, _, err := g.store.GetString(ctx, session.KeySessionID)
	if err != nil {
		g.log.WarnWithContext(ctx, "session unreadable on teardown", err, nil)
	}
	var seats []reservation.Seat
	if _, err := g.store.Get(ctx, session.KeySelectedSeats, &seats); err != nil {
		g.log.WarnWithContext(ctx, "stored seats unreadable on teardown", err, nil)
	}

	if sid != "" && len(seats) > 0 && g.beacon != nil {
		released = reservation.SeatIDs(seats)
		g.beacon.SendRelease(sid, released)
	}

	if err := g.store.ClearBooking(ctx); err != nil {
		g.log.WarnWithContext(ctx, "failed to clear session on teardown", err, nil)
	}
	g.log.InfoWithContext(ctx, "checkout torn down", map[string]interface{}{
		"path":       path,
		"session_id": sid,
		"seat_count": len(seats),
	})
	return released, true
}

func (g *Guard) isExcluded(path string) bool {
	for _, prefix := range g.excluded {
		if path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?") {
			return true
		}
	}
	return false
}
