package booking

import (
	"context"
	"strings"

	"boxoffice/internal/reservation"
)

// ApplyDiscount prices code against the current seats and customer info.
// Any failure leaves no discount applied. The preview is advisory: the
// backend recomputes the price from the code it receives at CreateBooking,
// and that amount is what gets charged.
func (o *Orchestrator) ApplyDiscount(ctx context.Context, code string, info CustomerInfo) (Totals, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return o.Totals(), precondition(ReasonNoDiscountCode, "enter a discount code")
	}
	if err := o.validate.Struct(info); err != nil {
		return o.Totals(), &Error{Kind: KindPrecondition, Reason: ReasonInvalidCustomer, Message: "customer details are incomplete", Err: err}
	}
	if _, err := o.InitSession(ctx); err != nil {
		return o.Totals(), err
	}

	o.mu.Lock()
	if o.performance == nil {
		o.mu.Unlock()
		return o.Totals(), precondition(ReasonNoPerformance, "select a performance first")
	}
	if len(o.seats) == 0 {
		o.mu.Unlock()
		return o.Totals(), precondition(ReasonNoSeats, "select at least one seat")
	}
	o.customer = info
	o.discount = nil
	o.discountSeq++
	seq := o.discountSeq
	seatKey := seatSetKey(o.seats)
	req := o.bookingRequestLocked(code)
	o.mu.Unlock()
	o.syncStore(ctx)

	preview, err := o.backend.PreviewBooking(ctx, req)

	o.mu.Lock()
	defer o.mu.Unlock()
	if seq != o.discountSeq || seatSetKey(o.seats) != seatKey || o.customer != info {
		return o.totalsLocked(), superseded()
	}
	if err != nil {
		o.discount = nil
		return o.totalsLocked(), backendFailure(err, ReasonDiscountInvalid, "discount code is not valid")
	}

	applied := preview.DiscountCode
	if applied == "" {
		applied = code
	}
	o.discount = &discountApplication{
		code:     applied,
		amount:   preview.DiscountAmount,
		seatKey:  seatKey,
		customer: info,
	}
	return o.totalsLocked(), nil
}

// RemoveDiscount drops any applied discount
func (o *Orchestrator) RemoveDiscount() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.discount = nil
	o.discountSeq++
}

// AvailableDiscounts lists public discount codes
func (o *Orchestrator) AvailableDiscounts(ctx context.Context) ([]reservation.Discount, error) {
	list, err := o.backend.AvailableDiscounts(ctx)
	if err != nil {
		return nil, backendFailure(err, ReasonDiscountInvalid, "discounts could not be loaded")
	}
	return list, nil
}

func (o *Orchestrator) bookingRequestLocked(discountCode string) reservation.BookingRequest {
	req := reservation.BookingRequest{
		SeatIDs:         reservation.SeatIDs(o.seats),
		SessionID:       o.sessionID,
		CustomerName:    o.customer.Name,
		CustomerEmail:   o.customer.Email,
		CustomerPhone:   o.customer.Phone,
		CustomerAddress: o.customer.Address,
		ShippingTime:    o.customer.ShippingTime,
		Notes:           o.customer.Notes,
		DiscountCode:    discountCode,
	}
	if o.performance != nil {
		req.PerformanceID = o.performance.ID
	}
	return req
}
