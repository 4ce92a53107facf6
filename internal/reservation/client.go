package reservation

import "context"

// Client is the reservation backend as the checkout flow consumes it
type Client interface {
	// ReserveSeats holds the full desired seat set, not a delta
	ReserveSeats(ctx context.Context, performanceID int64, seatIDs []int64, sessionID string) (*Reservation, error)
	ReleaseSeats(ctx context.Context, seatIDs []int64, sessionID string) (*ReleaseResult, error)
	// SessionHolds returns the holds the backend still has for a session
	SessionHolds(ctx context.Context, performanceID int64, sessionID string) (*Reservation, error)
	GetSeatMap(ctx context.Context, performanceID int64) (*SeatMap, error)
	GetPerformance(ctx context.Context, performanceID int64) (*Performance, error)

	// PreviewBooking prices a booking payload without creating it
	PreviewBooking(ctx context.Context, req BookingRequest) (*BookingPreview, error)
	CreateBooking(ctx context.Context, req BookingRequest) (*Booking, error)
	CancelBooking(ctx context.Context, bookingCode string) (*Booking, error)

	CreatePayment(ctx context.Context, bookingCode, method string) (*Payment, error)
	CheckPaymentStatus(ctx context.Context, transactionID string) (*PaymentStatusResult, error)

	AvailableDiscounts(ctx context.Context) ([]Discount, error)
}

// Beacon sends a release without waiting for the outcome
type Beacon interface {
	SendRelease(sessionID string, seatIDs []int64)
}
