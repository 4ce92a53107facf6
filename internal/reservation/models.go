package reservation

import "time"

// Performance is one dated showing and its fee rules
type Performance struct {
	ID                  int64     `json:"id"`
	ShowID              int64     `json:"show_id"`
	ShowName            string    `json:"show_name"`
	StartsAt            time.Time `json:"starts_at"`
	VenueName           string    `json:"venue_name,omitempty"`
	ServiceFeePerTicket int64     `json:"service_fee_per_ticket"`
	ShippingFee         int64     `json:"shipping_fee"`
}

// SeatCategory is the pricing tier a seat belongs to
type SeatCategory struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Seat is one seat as the backend describes it
type Seat struct {
	ID          int64         `json:"id"`
	Row         string        `json:"row"`
	Number      int           `json:"number"`
	FullLabel   string        `json:"full_label"`
	SectionName string        `json:"section_name"`
	Price       int64         `json:"price"`
	Category    *SeatCategory `json:"category,omitempty"`
}

// Seat availability as reported on the seat map
const (
	SeatAvailable = "available"
	SeatReserved  = "reserved"
	SeatBooked    = "booked"
)

// SeatMapEntry is a seat plus its current availability
type SeatMapEntry struct {
	Seat
	Status string `json:"status"`
}

// SeatMap lists every seat of a performance
type SeatMap struct {
	PerformanceID int64          `json:"performance_id"`
	Seats         []SeatMapEntry `json:"seats"`
}

// ReserveRequest carries the full desired hold set
type ReserveRequest struct {
	PerformanceID int64   `json:"performance_id" binding:"required"`
	SeatIDs       []int64 `json:"seat_ids" binding:"required,min=1"`
	SessionID     string  `json:"session_id" binding:"required"`
}

// Reservation is the authoritative hold set and its shared window
type Reservation struct {
	Seats     []Seat    `json:"seats"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReleaseRequest is used by both the API call and the teardown beacon
type ReleaseRequest struct {
	SeatIDs   []int64 `json:"seat_ids" binding:"required"`
	SessionID string  `json:"session_id" binding:"required"`
}

// ReleaseResult reports how many holds were dropped
type ReleaseResult struct {
	Released int `json:"released"`
}

// BookingRequest is the booking payload; the same body prices a discount preview
type BookingRequest struct {
	PerformanceID   int64   `json:"performance_id" binding:"required"`
	SeatIDs         []int64 `json:"seat_ids" binding:"required,min=1"`
	SessionID       string  `json:"session_id" binding:"required"`
	CustomerName    string  `json:"customer_name" binding:"required"`
	CustomerEmail   string  `json:"customer_email" binding:"required,email"`
	CustomerPhone   string  `json:"customer_phone" binding:"required"`
	CustomerAddress string  `json:"customer_address,omitempty"`
	ShippingTime    string  `json:"shipping_time,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	DiscountCode    string  `json:"discount_code,omitempty"`
}

// BookingPreview is the priced result of a discount validation
type BookingPreview struct {
	TotalAmount    int64  `json:"total_amount"`
	ServiceFee     int64  `json:"service_fee"`
	ShippingFee    int64  `json:"shipping_fee"`
	DiscountCode   string `json:"discount_code,omitempty"`
	DiscountAmount int64  `json:"discount_amount"`
	FinalAmount    int64  `json:"final_amount"`
}

// Booking statuses
const (
	BookingPending   = "pending"
	BookingPaid      = "paid"
	BookingCancelled = "cancelled"
	BookingExpired   = "expired"
)

// SeatReservation is a seat attached to a booking
type SeatReservation struct {
	Seat   Seat   `json:"seat"`
	Status string `json:"status"`
}

// Booking is the durable record created from a session's holds
type Booking struct {
	BookingCode      string            `json:"booking_code"`
	Status           string            `json:"status"`
	TotalAmount      int64             `json:"total_amount"`
	ServiceFee       int64             `json:"service_fee"`
	ShippingFee      int64             `json:"shipping_fee"`
	DiscountCode     string            `json:"discount_code,omitempty"`
	DiscountAmount   int64             `json:"discount_amount"`
	FinalAmount      int64             `json:"final_amount"`
	ExpiresAt        *time.Time        `json:"expires_at,omitempty"`
	SeatReservations []SeatReservation `json:"seat_reservations"`
	CreatedAt        time.Time         `json:"created_at"`
}

// PaymentRequest starts a payment attempt for a booking
type PaymentRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
}

// Payment is a started payment attempt
type Payment struct {
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url,omitempty"`
	AutoComplete  bool   `json:"auto_complete"`
	Method        string `json:"payment_method,omitempty"`
	Amount        int64  `json:"amount"`
}

// PaymentStatus is the lifecycle of a payment attempt
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// IsFinal reports whether polling can stop
func (s PaymentStatus) IsFinal() bool {
	return s == PaymentSuccess || s == PaymentFailed
}

// IsValid checks if the payment status is known
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentSuccess, PaymentFailed:
		return true
	}
	return false
}

func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentStatusResult is one poll response
type PaymentStatusResult struct {
	TransactionID string        `json:"transaction_id"`
	BookingCode   string        `json:"booking_code"`
	Status        PaymentStatus `json:"status"`
}

// Discount types
const (
	DiscountPercentage = "PERCENTAGE"
	DiscountFixed      = "FIXED_AMOUNT"
)

// Discount is a publicly listed discount code
type Discount struct {
	Code              string     `json:"code"`
	Description       string     `json:"description,omitempty"`
	DiscountType      string     `json:"discount_type"`
	Value             int64      `json:"value"`
	MinTicketQuantity int        `json:"min_ticket_quantity,omitempty"`
	ValidTo           *time.Time `json:"valid_to,omitempty"`
}

// ReleaseBeacon is the fire-and-forget message sent on teardown
type ReleaseBeacon struct {
	SessionID string    `json:"session_id"`
	SeatIDs   []int64   `json:"seat_ids"`
	SentAt    time.Time `json:"sent_at"`
}

// SeatIDs extracts the ids of seats in order
func SeatIDs(seats []Seat) []int64 {
	ids := make([]int64, len(seats))
	for i, s := range seats {
		ids[i] = s.ID
	}
	return ids
}
