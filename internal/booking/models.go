package booking

import (
	"time"

	"boxoffice/internal/reservation"
)

// CustomerInfo is what the buyer enters before booking
type CustomerInfo struct {
	Name         string `json:"customer_name" validate:"required,max=100"`
	Email        string `json:"customer_email" validate:"required,email"`
	Phone        string `json:"customer_phone" validate:"required,min=8,max=20"`
	Address      string `json:"customer_address,omitempty" validate:"max=255"`
	ShippingTime string `json:"shipping_time,omitempty" validate:"max=50"`
	Notes        string `json:"notes,omitempty" validate:"max=500"`
}

// IsZero reports whether nothing was entered
func (c CustomerInfo) IsZero() bool {
	return c == CustomerInfo{}
}

// Totals is the price breakdown shown at checkout
type Totals struct {
	SeatCount      int    `json:"seat_count"`
	Subtotal       int64  `json:"subtotal"`
	ServiceFee     int64  `json:"service_fee"`
	ShippingFee    int64  `json:"shipping_fee"`
	DiscountCode   string `json:"discount_code,omitempty"`
	DiscountAmount int64  `json:"discount_amount"`
	Final          int64  `json:"final"`
}

// PaymentResult is a started payment attempt
type PaymentResult = reservation.Payment

// State is a read-only copy of the orchestrator for rendering
type State struct {
	SessionID         string
	Performance       *reservation.Performance
	Seats             []reservation.Seat
	ReservationExpiry time.Time
	Customer          CustomerInfo
	Totals            Totals
	Booking           *reservation.Booking
	Transaction       *reservation.Payment
	PaymentStatus     reservation.PaymentStatus
	PaymentPending    bool
}

// HasSeats reports whether any seat is held
func (s State) HasSeats() bool {
	return len(s.Seats) > 0
}

// discountApplication is valid only for the exact inputs it was priced against
type discountApplication struct {
	code     string
	amount   int64
	seatKey  string
	customer CustomerInfo
}
