package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"boxoffice/internal/reservation"
	"boxoffice/pkg/clock"
)

// fakeBackend is an in-memory reservation.Client. Hooks override the
// default behaviour per test.
type fakeBackend struct {
	clock clock.Clock
	seats map[int64]reservation.Seat

	mu       sync.Mutex
	reserves [][]int64
	releases [][]int64
	previews []reservation.BookingRequest
	creates  []reservation.BookingRequest
	payments []string
	statuses []string
	cancels  []string

	onReserve func(ctx context.Context, ids []int64) (*reservation.Reservation, error)
	onHolds   func() (*reservation.Reservation, error)
	onPreview func(req reservation.BookingRequest) (*reservation.BookingPreview, error)
	onCreate  func(req reservation.BookingRequest) (*reservation.Booking, error)
	onPayment func(code, method string) (*reservation.Payment, error)
	onStatus  func(tx string) (*reservation.PaymentStatusResult, error)
	onRelease func(ids []int64) error
}

func newFakeBackend(clk clock.Clock) *fakeBackend {
	b := &fakeBackend{clock: clk, seats: make(map[int64]reservation.Seat)}
	for i := int64(1); i <= 12; i++ {
		b.seats[i] = reservation.Seat{
			ID:          i,
			Row:         "A",
			Number:      int(i),
			FullLabel:   fmt.Sprintf("A%d", i),
			SectionName: "Stalls",
			Price:       100000,
		}
	}
	return b
}

func (b *fakeBackend) seatList(ids []int64) []reservation.Seat {
	out := make([]reservation.Seat, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.seats[id])
	}
	return out
}

func (b *fakeBackend) ReserveSeats(ctx context.Context, _ int64, seatIDs []int64, _ string) (*reservation.Reservation, error) {
	b.mu.Lock()
	b.reserves = append(b.reserves, append([]int64(nil), seatIDs...))
	hook := b.onReserve
	b.mu.Unlock()
	if hook != nil {
		return hook(ctx, seatIDs)
	}
	return &reservation.Reservation{Seats: b.seatList(seatIDs), ExpiresAt: b.clock.Now().Add(5 * time.Minute)}, nil
}

func (b *fakeBackend) ReleaseSeats(_ context.Context, seatIDs []int64, _ string) (*reservation.ReleaseResult, error) {
	b.mu.Lock()
	b.releases = append(b.releases, append([]int64(nil), seatIDs...))
	hook := b.onRelease
	b.mu.Unlock()
	if hook != nil {
		if err := hook(seatIDs); err != nil {
			return nil, err
		}
	}
	return &reservation.ReleaseResult{Released: len(seatIDs)}, nil
}

func (b *fakeBackend) SessionHolds(_ context.Context, _ int64, _ string) (*reservation.Reservation, error) {
	if b.onHolds != nil {
		return b.onHolds()
	}
	return &reservation.Reservation{}, nil
}

func (b *fakeBackend) GetSeatMap(_ context.Context, performanceID int64) (*reservation.SeatMap, error) {
	m := &reservation.SeatMap{PerformanceID: performanceID}
	for i := int64(1); i <= 12; i++ {
		m.Seats = append(m.Seats, reservation.SeatMapEntry{Seat: b.seats[i], Status: reservation.SeatAvailable})
	}
	return m, nil
}

func (b *fakeBackend) GetPerformance(_ context.Context, performanceID int64) (*reservation.Performance, error) {
	p := testPerformance
	p.ID = performanceID
	return &p, nil
}

func (b *fakeBackend) PreviewBooking(_ context.Context, req reservation.BookingRequest) (*reservation.BookingPreview, error) {
	b.mu.Lock()
	b.previews = append(b.previews, req)
	b.mu.Unlock()
	if b.onPreview != nil {
		return b.onPreview(req)
	}
	return &reservation.BookingPreview{DiscountCode: req.DiscountCode}, nil
}

func (b *fakeBackend) CreateBooking(_ context.Context, req reservation.BookingRequest) (*reservation.Booking, error) {
	b.mu.Lock()
	b.creates = append(b.creates, req)
	b.mu.Unlock()
	if b.onCreate != nil {
		return b.onCreate(req)
	}
	expires := b.clock.Now().Add(30 * time.Minute)
	return &reservation.Booking{
		BookingCode: "BK123",
		Status:      reservation.BookingPending,
		FinalAmount: 100000,
		ExpiresAt:   &expires,
	}, nil
}

func (b *fakeBackend) CancelBooking(_ context.Context, code string) (*reservation.Booking, error) {
	b.mu.Lock()
	b.cancels = append(b.cancels, code)
	b.mu.Unlock()
	return &reservation.Booking{BookingCode: code, Status: reservation.BookingCancelled}, nil
}

func (b *fakeBackend) CreatePayment(_ context.Context, code, method string) (*reservation.Payment, error) {
	b.mu.Lock()
	b.payments = append(b.payments, code)
	b.mu.Unlock()
	if b.onPayment != nil {
		return b.onPayment(code, method)
	}
	return &reservation.Payment{TransactionID: "TX-" + code, Method: method, Amount: 100000}, nil
}

func (b *fakeBackend) CheckPaymentStatus(_ context.Context, tx string) (*reservation.PaymentStatusResult, error) {
	b.mu.Lock()
	b.statuses = append(b.statuses, tx)
	b.mu.Unlock()
	if b.onStatus != nil {
		return b.onStatus(tx)
	}
	return &reservation.PaymentStatusResult{TransactionID: tx, Status: reservation.PaymentSuccess}, nil
}

func (b *fakeBackend) AvailableDiscounts(context.Context) ([]reservation.Discount, error) {
	return []reservation.Discount{{Code: "SAVE10", DiscountType: reservation.DiscountPercentage, Value: 10}}, nil
}

func (b *fakeBackend) reserveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.reserves)
}

func (b *fakeBackend) releaseCalls() [][]int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]int64(nil), b.releases...)
}

// stubTimer records countdown use without running one
type stubTimer struct {
	mu      sync.Mutex
	starts  []time.Time
	stops   int
	expire  func()
	running bool
}

func (s *stubTimer) Start(expiresAt time.Time, onExpire func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts = append(s.starts, expiresAt)
	s.expire = onExpire
	s.running = true
	return nil
}

func (s *stubTimer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	s.running = false
}

func (s *stubTimer) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *stubTimer) fire() {
	s.mu.Lock()
	fn := s.expire
	s.running = false
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
