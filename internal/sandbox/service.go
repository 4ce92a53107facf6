package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"boxoffice/internal/reservation"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/constants"
	"boxoffice/pkg/cache"
	"boxoffice/pkg/clock"
	"boxoffice/pkg/logger"

	"github.com/google/uuid"
)

// Config holds the sandbox's timing and pricing rules
type Config struct {
	HoldTTL             time.Duration
	PaymentTTL          time.Duration
	MaxSeats            int
	ServiceFeePerTicket int64
	PollsUntilSettled   int
	GatewayURL          string
}

// ConfigFrom reads the sandbox section of the application config
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		HoldTTL:             cfg.Sandbox.SeatHoldTimeout,
		PaymentTTL:          cfg.Sandbox.PaymentTimeout,
		MaxSeats:            cfg.Sandbox.MaxSeatsPerSession,
		ServiceFeePerTicket: cfg.Sandbox.ServiceFeePerTicket,
		PollsUntilSettled:   cfg.Sandbox.PollsUntilSettled,
		GatewayURL:          cfg.Sandbox.GatewayBaseURL,
	}
}

// RequestError is a rejection the caller can act on
type RequestError struct {
	Status  int
	Message string
	Details interface{}
}

func (e *RequestError) Error() string { return e.Message }

func badRequest(msg string, details interface{}) error {
	return &RequestError{Status: http.StatusBadRequest, Message: msg, Details: details}
}

const msgSeatsTaken = "Some seats are already booked or held by someone else. Please reload the page."

// Service is the reference reservation backend
type Service struct {
	repo    Repository
	holds   HoldStore
	cache   cache.Service
	gateway *Gateway
	clock   clock.Clock
	cfg     Config
	log     *logger.Logger
}

// NewService wires the sandbox. cacheSvc may be nil.
func NewService(repo Repository, holds HoldStore, cacheSvc cache.Service, c clock.Clock, cfg Config, log *logger.Logger) *Service {
	if c == nil {
		c = clock.New()
	}
	if log == nil {
		log = logger.GetDefault()
	}
	if cfg.MaxSeats <= 0 {
		cfg.MaxSeats = 8
	}
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 5 * time.Minute
	}
	if cfg.PaymentTTL <= 0 {
		cfg.PaymentTTL = 30 * time.Minute
	}
	return &Service{
		repo:    repo,
		holds:   holds,
		cache:   cacheSvc,
		gateway: NewGateway(cfg.GatewayURL, cfg.PollsUntilSettled),
		clock:   c,
		cfg:     cfg,
		log:     log.WithComponent("sandbox"),
	}
}

// CATALOGUE

func (s *Service) GetPerformance(ctx context.Context, id int64) (*reservation.Performance, error) {
	perf, err := s.repo.GetPerformance(ctx, id)
	if err != nil {
		return nil, err
	}
	out := perf.toWire()
	if out.ServiceFeePerTicket == 0 {
		out.ServiceFeePerTicket = s.cfg.ServiceFeePerTicket
	}
	return &out, nil
}

func (s *Service) SeatMap(ctx context.Context, performanceID int64) (*reservation.SeatMap, error) {
	if _, err := s.repo.GetPerformance(ctx, performanceID); err != nil {
		return nil, err
	}
	seats, err := s.layout(ctx, performanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}

	ids := make([]int64, len(seats))
	for i, seat := range seats {
		ids[i] = seat.ID
	}
	owners, err := s.holds.Owners(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to read holds: %w", err)
	}

	out := &reservation.SeatMap{PerformanceID: performanceID, Seats: make([]reservation.SeatMapEntry, len(seats))}
	for i, seat := range seats {
		status := reservation.SeatAvailable
		if owner, ok := owners[seat.ID]; ok {
			status = reservation.SeatReserved
			if IsBookedOwner(owner) {
				status = reservation.SeatBooked
			}
		}
		out.Seats[i] = reservation.SeatMapEntry{Seat: seat.toWire(), Status: status}
	}
	return out, nil
}

// layout is the seat list without hold state, cached when a cache is wired
func (s *Service) layout(ctx context.Context, performanceID int64) ([]Seat, error) {
	if s.cache == nil {
		return s.repo.GetSeats(ctx, performanceID)
	}
	var seats []Seat
	err := s.cache.GetOrSet(ctx, constants.BuildSeatLayoutKey(performanceID), constants.TTL_SEAT_MAP, func() (interface{}, error) {
		return s.repo.GetSeats(ctx, performanceID)
	}, &seats)
	return seats, err
}

// HOLDS

func (s *Service) Reserve(ctx context.Context, req reservation.ReserveRequest) (*reservation.Reservation, error) {
	perf, err := s.repo.GetPerformance(ctx, req.PerformanceID)
	if err != nil {
		return nil, err
	}
	seats, err := s.seatsFor(ctx, perf.ID, req.SeatIDs)
	if err != nil {
		return nil, err
	}

	expiresAt, err := s.holds.Reserve(ctx, req.SessionID, req.SeatIDs, s.cfg.HoldTTL, s.cfg.MaxSeats)
	if err != nil {
		var limit *LimitError
		var conflict *ConflictError
		switch {
		case errors.As(err, &limit):
			return nil, badRequest(
				fmt.Sprintf("Cannot hold more than %d seats. You hold %d and requested %d.", limit.Max, limit.Current, limit.Requested),
				map[string]interface{}{
					"current_count":   limit.Current,
					"requested_count": limit.Requested,
					"max_allowed":     limit.Max,
				})
		case errors.As(err, &conflict):
			return nil, badRequest(msgSeatsTaken, map[string]interface{}{"seat_id": conflict.SeatID})
		}
		return nil, fmt.Errorf("failed to hold seats: %w", err)
	}

	s.log.LogSeatsReserved(ctx, req.SessionID, req.SeatIDs, expiresAt)
	out := &reservation.Reservation{ExpiresAt: expiresAt, Seats: make([]reservation.Seat, len(seats))}
	for i, seat := range seats {
		out.Seats[i] = seat.toWire()
	}
	return out, nil
}

func (s *Service) Release(ctx context.Context, req reservation.ReleaseRequest, reason string) (*reservation.ReleaseResult, error) {
	if req.SessionID == "" {
		return nil, badRequest("session_id is required", nil)
	}
	n, err := s.holds.Release(ctx, req.SessionID, req.SeatIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to release seats: %w", err)
	}
	if n > 0 {
		s.log.LogSeatsReleased(ctx, req.SessionID, req.SeatIDs, reason)
	}
	return &reservation.ReleaseResult{Released: n}, nil
}

// SessionHolds reports what the session still holds for a performance
func (s *Service) SessionHolds(ctx context.Context, sessionID string, performanceID int64) (*reservation.Reservation, error) {
	if sessionID == "" {
		return nil, badRequest("session_id is required", nil)
	}
	ids, window, err := s.holds.SessionHolds(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read holds: %w", err)
	}
	out := &reservation.Reservation{Seats: []reservation.Seat{}}
	if len(ids) == 0 {
		return out, nil
	}
	seats, err := s.repo.GetSeatsByIDs(ctx, performanceID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}
	if len(seats) == 0 {
		return out, nil
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].ID < seats[j].ID })
	for _, seat := range seats {
		out.Seats = append(out.Seats, seat.toWire())
	}
	out.ExpiresAt = window
	return out, nil
}

// BOOKINGS

// Preview prices a booking payload with its discount code
func (s *Service) Preview(ctx context.Context, req reservation.BookingRequest) (*reservation.BookingPreview, error) {
	if strings.TrimSpace(req.DiscountCode) == "" {
		return nil, badRequest("Please provide a discount code.", nil)
	}
	_, _, quote, err := s.quote(ctx, req)
	if err != nil {
		return nil, err
	}
	preview := quote.toPreview()
	return &preview, nil
}

func (s *Service) CreateBooking(ctx context.Context, req reservation.BookingRequest) (*reservation.Booking, error) {
	perf, seats, quote, err := s.quote(ctx, req)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(seats))
	for i, seat := range seats {
		ids[i] = seat.ID
	}
	owners, err := s.holds.Owners(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to read holds: %w", err)
	}
	for _, id := range ids {
		if owners[id] != req.SessionID {
			return nil, badRequest("Your seat hold has expired or belongs to another session.", map[string]interface{}{"seat_id": id})
		}
	}

	now := s.clock.Now().UTC()
	expiresAt := now.Add(s.cfg.PaymentTTL)
	b := &Booking{
		BookingCode:     newBookingCode(),
		PerformanceID:   perf.ID,
		SessionID:       req.SessionID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		ShippingTime:    req.ShippingTime,
		Notes:           req.Notes,
		Status:          reservation.BookingPending,
		TotalAmount:     quote.TotalAmount,
		ServiceFee:      quote.ServiceFee,
		ShippingFee:     quote.ShippingFee,
		DiscountCode:    quote.DiscountCode,
		DiscountAmount:  quote.DiscountAmount,
		FinalAmount:     quote.FinalAmount,
		ExpiresAt:       &expiresAt,
		CreatedAt:       now,
	}
	for _, seat := range seats {
		b.Seats = append(b.Seats, BookingSeat{SeatID: seat.ID, Price: seat.Price})
	}

	if err := s.holds.Commit(ctx, req.SessionID, b.BookingCode, ids, expiresAt); err != nil {
		var missing *MissingHoldError
		if errors.As(err, &missing) {
			return nil, badRequest("Your seat hold has expired or belongs to another session.", map[string]interface{}{"seat_id": missing.SeatID})
		}
		return nil, fmt.Errorf("failed to commit holds: %w", err)
	}
	if err := s.repo.CreateBooking(ctx, b); err != nil {
		if _, ferr := s.holds.Free(ctx, b.BookingCode, ids); ferr != nil {
			s.log.ErrorWithContext(ctx, "failed to free seats after booking error", ferr, map[string]interface{}{"booking_code": b.BookingCode})
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.log.LogBookingCreated(ctx, b.BookingCode, req.SessionID, b.FinalAmount)
	out := b.toWire(seatIndex(seats), reservation.SeatReserved)
	return &out, nil
}

func (s *Service) CancelBooking(ctx context.Context, code string) (*reservation.Booking, error) {
	b, err := s.booking(ctx, code)
	if err != nil {
		return nil, err
	}
	if b.Status != reservation.BookingPending {
		return nil, badRequest("Only pending bookings can be cancelled.", map[string]interface{}{"status": b.Status})
	}
	if err := s.repo.UpdateBookingStatus(ctx, code, reservation.BookingPending, reservation.BookingCancelled); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, badRequest("Only pending bookings can be cancelled.", nil)
		}
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	b.Status = reservation.BookingCancelled
	if _, err := s.holds.Free(ctx, code, b.seatIDs()); err != nil {
		s.log.ErrorWithContext(ctx, "failed to free cancelled seats", err, map[string]interface{}{"booking_code": code})
	}

	s.log.LogBookingCancelled(ctx, code, b.SessionID)
	return s.bookingWire(ctx, b, reservation.SeatAvailable)
}

// PAYMENTS

func (s *Service) CreatePayment(ctx context.Context, code, method string) (*reservation.Payment, error) {
	if strings.TrimSpace(method) == "" {
		return nil, badRequest("payment_method is required", nil)
	}
	b, err := s.booking(ctx, code)
	if err != nil {
		return nil, err
	}
	if b.Status != reservation.BookingPending {
		return nil, badRequest("This booking is not awaiting payment.", map[string]interface{}{"status": b.Status})
	}

	p := s.gateway.Start(code, method, b.FinalAmount, s.clock.Now().UTC())
	if err := s.repo.CreatePayment(ctx, &p); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	auto := p.Status == string(reservation.PaymentSuccess)
	if auto {
		if err := s.markPaid(ctx, b); err != nil {
			return nil, err
		}
	}
	s.log.LogPaymentStatus(ctx, p.TransactionID, p.Status)

	return &reservation.Payment{
		TransactionID: p.TransactionID,
		PaymentURL:    s.gateway.PaymentURL(p),
		AutoComplete:  auto,
		Method:        p.Method,
		Amount:        p.Amount,
	}, nil
}

func (s *Service) PaymentStatus(ctx context.Context, transactionID string) (*reservation.PaymentStatusResult, error) {
	p, err := s.repo.GetPayment(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if p.Status == string(reservation.PaymentPending) {
		changed := s.gateway.Poll(p, s.clock.Now().UTC())
		if err := s.repo.SavePayment(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to save payment: %w", err)
		}
		if changed {
			s.log.LogPaymentStatus(ctx, p.TransactionID, p.Status)
			if p.Status == string(reservation.PaymentSuccess) {
				b, err := s.repo.GetBooking(ctx, p.BookingCode)
				if err != nil {
					return nil, fmt.Errorf("failed to load booking: %w", err)
				}
				if err := s.markPaid(ctx, b); err != nil {
					return nil, err
				}
			}
		}
	}

	return &reservation.PaymentStatusResult{
		TransactionID: p.TransactionID,
		BookingCode:   p.BookingCode,
		Status:        reservation.PaymentStatus(p.Status),
	}, nil
}

func (s *Service) markPaid(ctx context.Context, b *Booking) error {
	if err := s.repo.UpdateBookingStatus(ctx, b.BookingCode, reservation.BookingPending, reservation.BookingPaid); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil
		}
		return fmt.Errorf("failed to mark booking paid: %w", err)
	}
	b.Status = reservation.BookingPaid
	if err := s.holds.Settle(ctx, b.BookingCode, b.seatIDs()); err != nil {
		s.log.ErrorWithContext(ctx, "failed to settle booked seats", err, map[string]interface{}{"booking_code": b.BookingCode})
	}
	if b.DiscountCode != "" {
		if err := s.repo.IncrementDiscountUsage(ctx, b.DiscountCode); err != nil {
			s.log.ErrorWithContext(ctx, "failed to record discount usage", err, map[string]interface{}{"code": b.DiscountCode})
		}
		s.invalidateDiscounts(ctx)
	}
	return nil
}

// DISCOUNTS

func (s *Service) AvailableDiscounts(ctx context.Context) ([]reservation.Discount, error) {
	fetch := func() ([]reservation.Discount, error) {
		all, err := s.repo.ListPublicDiscounts(ctx)
		if err != nil {
			return nil, err
		}
		now := s.clock.Now()
		out := make([]reservation.Discount, 0, len(all))
		for _, d := range all {
			if !d.usable(now) {
				continue
			}
			if d.MaxUsage != nil && d.UsageCount >= *d.MaxUsage {
				continue
			}
			out = append(out, d.toWire())
		}
		return out, nil
	}
	if s.cache == nil {
		return fetch()
	}

	var out []reservation.Discount
	err := s.cache.GetOrSet(ctx, constants.CACHE_KEY_DISCOUNTS_AVAILABLE, constants.TTL_DISCOUNT_CATALOGUE, func() (interface{}, error) {
		return fetch()
	}, &out)
	return out, err
}

func (s *Service) invalidateDiscounts(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, constants.CACHE_KEY_DISCOUNTS_AVAILABLE); err != nil {
		s.log.WarnWithContext(ctx, "failed to invalidate discount cache", err, nil)
	}
}

// HandleBeacon applies a teardown release delivered over the broker
func (s *Service) HandleBeacon(ctx context.Context, b reservation.ReleaseBeacon) error {
	if b.SessionID == "" || len(b.SeatIDs) == 0 {
		return nil
	}
	_, err := s.Release(ctx, reservation.ReleaseRequest{SessionID: b.SessionID, SeatIDs: b.SeatIDs}, "beacon")
	return err
}

// helpers

// quote validates the booking payload and prices it
func (s *Service) quote(ctx context.Context, req reservation.BookingRequest) (*Performance, []Seat, Quote, error) {
	perf, err := s.repo.GetPerformance(ctx, req.PerformanceID)
	if err != nil {
		return nil, nil, Quote{}, err
	}
	seats, err := s.seatsFor(ctx, perf.ID, req.SeatIDs)
	if err != nil {
		return nil, nil, Quote{}, err
	}

	q := priceSeats(perf, seats, s.cfg.ServiceFeePerTicket)
	code := strings.TrimSpace(req.DiscountCode)
	if code == "" {
		return perf, seats, q, nil
	}

	d, err := s.repo.GetDiscount(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, Quote{}, badRequest("This discount code is not valid.", nil)
		}
		return nil, nil, Quote{}, fmt.Errorf("failed to load discount: %w", err)
	}
	pending, err := s.repo.CountPendingDiscountUses(ctx, d.Code)
	if err != nil {
		return nil, nil, Quote{}, fmt.Errorf("failed to count discount uses: %w", err)
	}
	q, err = applyDiscount(q, d, len(seats), pending, s.clock.Now())
	if err != nil {
		var derr *DiscountError
		if errors.As(err, &derr) {
			return nil, nil, Quote{}, badRequest(derr.Message, nil)
		}
		return nil, nil, Quote{}, err
	}
	return perf, seats, q, nil
}

// seatsFor loads seats in request order and rejects unknown or foreign ids
func (s *Service) seatsFor(ctx context.Context, performanceID int64, ids []int64) ([]Seat, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, badRequest("No seats specified.", nil)
	}
	seats, err := s.repo.GetSeatsByIDs(ctx, performanceID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}
	if len(seats) != len(ids) {
		return nil, badRequest("One or more seats are invalid.", nil)
	}
	byID := seatIndex(seats)
	ordered := make([]Seat, len(ids))
	for i, id := range ids {
		ordered[i] = byID[id]
	}
	return ordered, nil
}

// booking loads a booking and expires it when its payment window is over
func (s *Service) booking(ctx context.Context, code string) (*Booking, error) {
	b, err := s.repo.GetBooking(ctx, code)
	if err != nil {
		return nil, err
	}
	if b.Status == reservation.BookingPending && b.ExpiresAt != nil && !s.clock.Now().Before(*b.ExpiresAt) {
		if err := s.repo.UpdateBookingStatus(ctx, code, reservation.BookingPending, reservation.BookingExpired); err != nil && !errors.Is(err, ErrStatusConflict) {
			return nil, fmt.Errorf("failed to expire booking: %w", err)
		}
		if _, err := s.holds.Free(ctx, code, b.seatIDs()); err != nil {
			s.log.ErrorWithContext(ctx, "failed to free expired seats", err, map[string]interface{}{"booking_code": code})
		}
		b.Status = reservation.BookingExpired
	}
	return b, nil
}

func (s *Service) bookingWire(ctx context.Context, b *Booking, seatStatus string) (*reservation.Booking, error) {
	seats, err := s.repo.GetSeatsByIDs(ctx, b.PerformanceID, b.seatIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}
	out := b.toWire(seatIndex(seats), seatStatus)
	return &out, nil
}

func seatIndex(seats []Seat) map[int64]Seat {
	m := make(map[int64]Seat, len(seats))
	for _, s := range seats {
		m[s.ID] = s
	}
	return m
}

func newBookingCode() string {
	return "BK" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
