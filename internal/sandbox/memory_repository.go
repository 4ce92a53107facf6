package sandbox

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepository keeps the sandbox ledger in process. Used when no
// database is configured and in tests.
type MemoryRepository struct {
	mu           sync.RWMutex
	performances map[int64]Performance
	seats        map[int64]Seat
	discounts    map[string]Discount
	bookings     map[string]Booking
	payments     map[string]Payment
	nextBooking  uint
	nextPayment  uint
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		performances: make(map[int64]Performance),
		seats:        make(map[int64]Seat),
		discounts:    make(map[string]Discount),
		bookings:     make(map[string]Booking),
		payments:     make(map[string]Payment),
	}
}

func (m *MemoryRepository) CreatePerformance(_ context.Context, perf *Performance, seats []Seat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if perf.ID == 0 {
		perf.ID = int64(len(m.performances) + 1)
	}
	now := time.Now().UTC()
	perf.CreatedAt, perf.UpdatedAt = now, now
	m.performances[perf.ID] = *perf

	next := int64(len(m.seats) + 1)
	for i := range seats {
		seats[i].PerformanceID = perf.ID
		if seats[i].ID == 0 {
			seats[i].ID = next
			next++
		}
		m.seats[seats[i].ID] = seats[i]
	}
	return nil
}

func (m *MemoryRepository) GetPerformance(_ context.Context, id int64) (*Performance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.performances[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryRepository) GetSeats(_ context.Context, performanceID int64) ([]Seat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Seat
	for _, s := range m.seats {
		if s.PerformanceID == performanceID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SectionName != b.SectionName {
			return a.SectionName < b.SectionName
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Number < b.Number
	})
	return out, nil
}

func (m *MemoryRepository) GetSeatsByIDs(_ context.Context, performanceID int64, ids []int64) ([]Seat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Seat, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		s, ok := m.seats[id]
		if !ok || s.PerformanceID != performanceID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, s)
	}
	return out, nil
}

func (m *MemoryRepository) SaveDiscount(_ context.Context, d *Discount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.Code = strings.ToUpper(d.Code)
	m.discounts[d.Code] = *d
	return nil
}

func (m *MemoryRepository) GetDiscount(_ context.Context, code string) (*Discount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.discounts[strings.ToUpper(code)]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *MemoryRepository) ListPublicDiscounts(_ context.Context) ([]Discount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Discount
	for _, d := range m.discounts {
		if d.Public && d.Active {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *MemoryRepository) CountPendingDiscountUses(_ context.Context, code string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, b := range m.bookings {
		if b.Status == "pending" && strings.EqualFold(b.DiscountCode, code) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) IncrementDiscountUsage(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToUpper(code)
	d, ok := m.discounts[key]
	if !ok {
		return ErrNotFound
	}
	d.UsageCount++
	m.discounts[key] = d
	return nil
}

func (m *MemoryRepository) CreateBooking(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextBooking++
	b.ID = m.nextBooking
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	seats := make([]BookingSeat, len(b.Seats))
	copy(seats, b.Seats)
	stored := *b
	stored.Seats = seats
	m.bookings[b.BookingCode] = stored
	return nil
}

func (m *MemoryRepository) GetBooking(_ context.Context, code string) (*Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[code]
	if !ok {
		return nil, ErrNotFound
	}
	b.Seats = append([]BookingSeat(nil), b.Seats...)
	return &b, nil
}

func (m *MemoryRepository) UpdateBookingStatus(_ context.Context, code, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[code]
	if !ok {
		return ErrNotFound
	}
	if b.Status != from {
		return ErrStatusConflict
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	m.bookings[code] = b
	return nil
}

func (m *MemoryRepository) CreatePayment(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPayment++
	p.ID = m.nextPayment
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	m.payments[p.TransactionID] = *p
	return nil
}

func (m *MemoryRepository) GetPayment(_ context.Context, transactionID string) (*Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[transactionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryRepository) SavePayment(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.TransactionID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	m.payments[p.TransactionID] = *p
	return nil
}
