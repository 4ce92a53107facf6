package sandbox

import (
	"strconv"
	"time"

	"boxoffice/internal/reservation"
)

// Performance defines one dated showing
type Performance struct {
	ID                  int64     `gorm:"primaryKey" json:"id"`
	ShowID              int64     `gorm:"index;not null" json:"show_id"`
	ShowName            string    `gorm:"type:varchar(200);not null" json:"show_name"`
	StartsAt            time.Time `gorm:"not null" json:"starts_at"`
	VenueName           string    `gorm:"type:varchar(200)" json:"venue_name"`
	ServiceFeePerTicket int64     `gorm:"not null;default:0" json:"service_fee_per_ticket"`
	ShippingFee         int64     `gorm:"not null;default:0" json:"shipping_fee"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Seat defines a seat of a performance and its price
type Seat struct {
	ID            int64  `gorm:"primaryKey" json:"id"`
	PerformanceID int64  `gorm:"index;not null" json:"performance_id"`
	SectionName   string `gorm:"type:varchar(100);not null" json:"section_name"`
	Row           string `gorm:"type:varchar(10);not null" json:"row"`
	Number        int    `gorm:"not null" json:"number"`
	Category      string `gorm:"type:varchar(50)" json:"category"`
	Color         string `gorm:"type:varchar(20)" json:"color"`
	Price         int64  `gorm:"not null" json:"price"`
}

// Booking defines a booking and its priced totals
type Booking struct {
	ID              uint       `gorm:"primaryKey" json:"-"`
	BookingCode     string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"booking_code"`
	PerformanceID   int64      `gorm:"index;not null" json:"performance_id"`
	SessionID       string     `gorm:"type:varchar(64);index;not null" json:"session_id"`
	CustomerName    string     `gorm:"type:varchar(100);not null" json:"customer_name"`
	CustomerEmail   string     `gorm:"type:varchar(255);not null" json:"customer_email"`
	CustomerPhone   string     `gorm:"type:varchar(20);not null" json:"customer_phone"`
	CustomerAddress string     `gorm:"type:varchar(255)" json:"customer_address"`
	ShippingTime    string     `gorm:"type:varchar(50)" json:"shipping_time"`
	Notes           string     `gorm:"type:text" json:"notes"`
	Status          string     `gorm:"type:varchar(20);check:status IN ('pending', 'paid', 'cancelled', 'expired');default:'pending'" json:"status"`
	TotalAmount     int64      `gorm:"not null" json:"total_amount"`
	ServiceFee      int64      `gorm:"not null" json:"service_fee"`
	ShippingFee     int64      `gorm:"not null" json:"shipping_fee"`
	DiscountCode    string     `gorm:"type:varchar(50);index" json:"discount_code"`
	DiscountAmount  int64      `gorm:"not null;default:0" json:"discount_amount"`
	FinalAmount     int64      `gorm:"not null" json:"final_amount"`
	ExpiresAt       *time.Time `json:"expires_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Seats []BookingSeat `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE;" json:"seats,omitempty"`
}

// BookingSeat defines a seat attached to a booking at the price it was sold
type BookingSeat struct {
	ID        uint  `gorm:"primaryKey" json:"-"`
	BookingID uint  `gorm:"index;not null" json:"-"`
	SeatID    int64 `gorm:"index;not null" json:"seat_id"`
	Price     int64 `gorm:"not null" json:"price"`
}

// Payment defines one payment attempt for a booking
type Payment struct {
	ID            uint       `gorm:"primaryKey" json:"-"`
	TransactionID string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_id"`
	BookingCode   string     `gorm:"type:varchar(32);index;not null" json:"booking_code"`
	Method        string     `gorm:"type:varchar(50)" json:"payment_method"`
	Amount        int64      `gorm:"not null" json:"amount"`
	Status        string     `gorm:"type:varchar(20);check:status IN ('pending', 'success', 'failed');default:'pending'" json:"status"`
	Polls         int        `gorm:"not null;default:0" json:"-"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Discount defines a discount code and its usage rules
type Discount struct {
	ID                uint       `gorm:"primaryKey" json:"-"`
	Code              string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Description       string     `gorm:"type:varchar(255)" json:"description"`
	DiscountType      string     `gorm:"type:varchar(20);check:discount_type IN ('PERCENTAGE', 'FIXED_AMOUNT');not null" json:"discount_type"`
	Value             int64      `gorm:"not null" json:"value"`
	MinTicketQuantity int        `gorm:"not null;default:0" json:"min_ticket_quantity"`
	MaxUsage          *int       `json:"max_usage"`
	UsageCount        int        `gorm:"not null;default:0" json:"usage_count"`
	Public            bool       `gorm:"not null" json:"public"`
	Active            bool       `gorm:"not null" json:"active"`
	ValidFrom         *time.Time `json:"valid_from"`
	ValidTo           *time.Time `json:"valid_to"`
}

func (Performance) TableName() string { return "sandbox_performances" }
func (Seat) TableName() string        { return "sandbox_seats" }
func (Booking) TableName() string     { return "sandbox_bookings" }
func (BookingSeat) TableName() string { return "sandbox_booking_seats" }
func (Payment) TableName() string     { return "sandbox_payments" }
func (Discount) TableName() string    { return "sandbox_discounts" }

// AllModels lists every table the sandbox migrates
func AllModels() []interface{} {
	return []interface{}{
		&Performance{},
		&Seat{},
		&Booking{},
		&BookingSeat{},
		&Payment{},
		&Discount{},
	}
}

func (p Performance) toWire() reservation.Performance {
	return reservation.Performance{
		ID:                  p.ID,
		ShowID:              p.ShowID,
		ShowName:            p.ShowName,
		StartsAt:            p.StartsAt,
		VenueName:           p.VenueName,
		ServiceFeePerTicket: p.ServiceFeePerTicket,
		ShippingFee:         p.ShippingFee,
	}
}

func (s Seat) toWire() reservation.Seat {
	out := reservation.Seat{
		ID:          s.ID,
		Row:         s.Row,
		Number:      s.Number,
		FullLabel:   s.Label(),
		SectionName: s.SectionName,
		Price:       s.Price,
	}
	if s.Category != "" {
		out.Category = &reservation.SeatCategory{Name: s.Category, Color: s.Color}
	}
	return out
}

// Label is the printed seat name, e.g. "A12"
func (s Seat) Label() string {
	return s.Row + strconv.Itoa(s.Number)
}

func (d Discount) toWire() reservation.Discount {
	return reservation.Discount{
		Code:              d.Code,
		Description:       d.Description,
		DiscountType:      d.DiscountType,
		Value:             d.Value,
		MinTicketQuantity: d.MinTicketQuantity,
		ValidTo:           d.ValidTo,
	}
}

// usable reports whether the discount can be applied at now, ignoring usage
func (d Discount) usable(now time.Time) bool {
	if !d.Active {
		return false
	}
	if d.ValidFrom != nil && now.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidTo != nil && now.After(*d.ValidTo) {
		return false
	}
	return true
}

func (b *Booking) toWire(seats map[int64]Seat, seatStatus string) reservation.Booking {
	out := reservation.Booking{
		BookingCode:    b.BookingCode,
		Status:         b.Status,
		TotalAmount:    b.TotalAmount,
		ServiceFee:     b.ServiceFee,
		ShippingFee:    b.ShippingFee,
		DiscountCode:   b.DiscountCode,
		DiscountAmount: b.DiscountAmount,
		FinalAmount:    b.FinalAmount,
		ExpiresAt:      b.ExpiresAt,
		CreatedAt:      b.CreatedAt,
	}
	out.SeatReservations = make([]reservation.SeatReservation, 0, len(b.Seats))
	for _, bs := range b.Seats {
		seat, ok := seats[bs.SeatID]
		if !ok {
			seat = Seat{ID: bs.SeatID}
		}
		seat.Price = bs.Price
		out.SeatReservations = append(out.SeatReservations, reservation.SeatReservation{
			Seat:   seat.toWire(),
			Status: seatStatus,
		})
	}
	return out
}

func (b *Booking) seatIDs() []int64 {
	ids := make([]int64, len(b.Seats))
	for i, s := range b.Seats {
		ids[i] = s.SeatID
	}
	return ids
}
