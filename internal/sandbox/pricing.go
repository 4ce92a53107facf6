package sandbox

import (
	"fmt"
	"time"

	"boxoffice/internal/reservation"
)

// Quote is a priced booking before it is stored
type Quote struct {
	TotalAmount    int64
	ServiceFee     int64
	ShippingFee    int64
	DiscountCode   string
	DiscountAmount int64
	FinalAmount    int64
}

func (q Quote) toPreview() reservation.BookingPreview {
	return reservation.BookingPreview{
		TotalAmount:    q.TotalAmount,
		ServiceFee:     q.ServiceFee,
		ShippingFee:    q.ShippingFee,
		DiscountCode:   q.DiscountCode,
		DiscountAmount: q.DiscountAmount,
		FinalAmount:    q.FinalAmount,
	}
}

// DiscountError is a discount the booking cannot use; Message is shown to the customer
type DiscountError struct {
	Message string
}

func (e *DiscountError) Error() string { return e.Message }

// priceSeats totals tickets, the per-ticket service fee and shipping.
// A performance fee of zero falls back to defaultFee.
func priceSeats(perf *Performance, seats []Seat, defaultFee int64) Quote {
	var q Quote
	for _, s := range seats {
		q.TotalAmount += s.Price
	}
	fee := perf.ServiceFeePerTicket
	if fee == 0 {
		fee = defaultFee
	}
	q.ServiceFee = int64(len(seats)) * fee
	q.ShippingFee = perf.ShippingFee
	q.FinalAmount = q.TotalAmount + q.ServiceFee + q.ShippingFee
	return q
}

// applyDiscount checks d against the booking and reduces the quote. The
// discount applies to tickets only and never exceeds their total.
func applyDiscount(q Quote, d *Discount, ticketCount, pendingUses int, now time.Time) (Quote, error) {
	if !d.usable(now) {
		return q, &DiscountError{Message: "This discount code is not valid."}
	}
	if d.MaxUsage != nil && d.UsageCount+pendingUses >= *d.MaxUsage {
		return q, &DiscountError{Message: "This discount code has been fully redeemed."}
	}
	if d.MinTicketQuantity > 0 && ticketCount < d.MinTicketQuantity {
		return q, &DiscountError{Message: fmt.Sprintf(
			"This code requires at least %d tickets. You are buying %d.", d.MinTicketQuantity, ticketCount)}
	}

	var amount int64
	switch d.DiscountType {
	case reservation.DiscountPercentage:
		// round half up to the unit
		amount = (q.TotalAmount*d.Value + 50) / 100
	case reservation.DiscountFixed:
		amount = d.Value
	default:
		return q, &DiscountError{Message: "This discount code is not valid."}
	}
	if amount > q.TotalAmount {
		amount = q.TotalAmount
	}
	if amount < 0 {
		amount = 0
	}

	q.DiscountCode = d.Code
	q.DiscountAmount = amount
	q.FinalAmount = q.TotalAmount + q.ServiceFee + q.ShippingFee - amount
	return q, nil
}
