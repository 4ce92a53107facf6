package sandbox

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"boxoffice/internal/shared/constants"
	"boxoffice/pkg/clock"
)

// HoldStore tracks which session holds which seat. A hold owner is either
// a session id or "booked:<code>" once the seats belong to a booking.
type HoldStore interface {
	// Reserve adds seatIDs to the session's holds. The session's window is
	// reused while it is live, otherwise a new one of length ttl starts.
	Reserve(ctx context.Context, sessionID string, seatIDs []int64, ttl time.Duration, max int) (time.Time, error)
	// Release drops holds the session owns; booked seats are untouched
	Release(ctx context.Context, sessionID string, seatIDs []int64) (int, error)
	SessionHolds(ctx context.Context, sessionID string) ([]int64, time.Time, error)
	// Owners maps each held seat to its owner; free seats are absent
	Owners(ctx context.Context, seatIDs []int64) (map[int64]string, error)

	// Commit turns the session's holds into booking holds lasting until
	Commit(ctx context.Context, sessionID, bookingCode string, seatIDs []int64, until time.Time) error
	// Settle makes booking holds permanent once paid
	Settle(ctx context.Context, bookingCode string, seatIDs []int64) error
	// Free drops booking holds after a cancel or a failed payment
	Free(ctx context.Context, bookingCode string, seatIDs []int64) (int, error)
}

// ConflictError reports a seat owned by someone else
type ConflictError struct {
	SeatID int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seat %d already held or booked", e.SeatID)
}

// LimitError reports a reserve that would exceed the per-session cap
type LimitError struct {
	Current   int
	Requested int
	Max       int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("cannot hold more than %d seats: holding %d, requested %d", e.Max, e.Current, e.Requested)
}

// MissingHoldError reports a commit for a seat the session does not hold
type MissingHoldError struct {
	SeatID int64
}

func (e *MissingHoldError) Error() string {
	return fmt.Sprintf("seat %d is not held by this session", e.SeatID)
}

// BookedOwner is the owner value of a seat committed to bookingCode
func BookedOwner(bookingCode string) string {
	return constants.BOOKED_HOLD_PREFIX + bookingCode
}

// IsBookedOwner reports whether owner is a booking rather than a session
func IsBookedOwner(owner string) bool {
	return strings.HasPrefix(owner, constants.BOOKED_HOLD_PREFIX)
}

type hold struct {
	owner   string
	expires time.Time // zero means permanent
}

func (h hold) live(now time.Time) bool {
	return h.expires.IsZero() || now.Before(h.expires)
}

// MemoryHoldStore is a HoldStore for a single sandbox process
type MemoryHoldStore struct {
	clock   clock.Clock
	mu      sync.Mutex
	holds   map[int64]hold
	windows map[string]time.Time
}

func NewMemoryHoldStore(c clock.Clock) *MemoryHoldStore {
	if c == nil {
		c = clock.New()
	}
	return &MemoryHoldStore{
		clock:   c,
		holds:   make(map[int64]hold),
		windows: make(map[string]time.Time),
	}
}

func (m *MemoryHoldStore) Reserve(_ context.Context, sessionID string, seatIDs []int64, ttl time.Duration, max int) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()

	current := m.sessionSetLocked(sessionID, now)
	requested := dedupe(seatIDs)
	union := len(current)
	for _, id := range requested {
		if !current[id] {
			union++
		}
	}
	if union > max {
		return time.Time{}, &LimitError{Current: len(current), Requested: len(requested), Max: max}
	}
	for _, id := range requested {
		if h, ok := m.holds[id]; ok && h.live(now) && h.owner != sessionID {
			return time.Time{}, &ConflictError{SeatID: id}
		}
	}

	window, ok := m.windows[sessionID]
	if !ok || !now.Before(window) {
		window = now.Add(ttl)
	}
	for _, id := range requested {
		m.holds[id] = hold{owner: sessionID, expires: window}
	}
	m.windows[sessionID] = window
	return window, nil
}

func (m *MemoryHoldStore) Release(_ context.Context, sessionID string, seatIDs []int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()

	released := 0
	for _, id := range dedupe(seatIDs) {
		if h, ok := m.holds[id]; ok && h.live(now) && h.owner == sessionID {
			delete(m.holds, id)
			released++
		}
	}
	if len(m.sessionSetLocked(sessionID, now)) == 0 {
		delete(m.windows, sessionID)
	}
	return released, nil
}

func (m *MemoryHoldStore) SessionHolds(_ context.Context, sessionID string) ([]int64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()

	set := m.sessionSetLocked(sessionID, now)
	if len(set) == 0 {
		return nil, time.Time{}, nil
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, m.windows[sessionID], nil
}

func (m *MemoryHoldStore) Owners(_ context.Context, seatIDs []int64) (map[int64]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()

	out := make(map[int64]string)
	for _, id := range seatIDs {
		if h, ok := m.holds[id]; ok && h.live(now) {
			out[id] = h.owner
		}
	}
	return out, nil
}

func (m *MemoryHoldStore) Commit(_ context.Context, sessionID, bookingCode string, seatIDs []int64, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()

	ids := dedupe(seatIDs)
	for _, id := range ids {
		h, ok := m.holds[id]
		if !ok || !h.live(now) || h.owner != sessionID {
			return &MissingHoldError{SeatID: id}
		}
	}
	owner := BookedOwner(bookingCode)
	for _, id := range ids {
		m.holds[id] = hold{owner: owner, expires: until}
	}
	if len(m.sessionSetLocked(sessionID, now)) == 0 {
		delete(m.windows, sessionID)
	}
	return nil
}

func (m *MemoryHoldStore) Settle(_ context.Context, bookingCode string, seatIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner := BookedOwner(bookingCode)
	for _, id := range seatIDs {
		if h, ok := m.holds[id]; ok && h.owner == owner {
			m.holds[id] = hold{owner: owner}
		}
	}
	return nil
}

func (m *MemoryHoldStore) Free(_ context.Context, bookingCode string, seatIDs []int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner := BookedOwner(bookingCode)
	freed := 0
	for _, id := range dedupe(seatIDs) {
		if h, ok := m.holds[id]; ok && h.owner == owner {
			delete(m.holds, id)
			freed++
		}
	}
	return freed, nil
}

// sessionSetLocked returns the session's live holds and drops lapsed ones
func (m *MemoryHoldStore) sessionSetLocked(sessionID string, now time.Time) map[int64]bool {
	set := make(map[int64]bool)
	for id, h := range m.holds {
		if !h.live(now) {
			delete(m.holds, id)
			continue
		}
		if h.owner == sessionID {
			set[id] = true
		}
	}
	if w, ok := m.windows[sessionID]; ok && !now.Before(w) {
		delete(m.windows, sessionID)
	}
	return set
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
