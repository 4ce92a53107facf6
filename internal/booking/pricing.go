package booking

import (
	"sort"
	"strconv"
	"strings"

	"boxoffice/internal/reservation"
)

// subtotal sums the ticket prices of the held seats
func subtotal(seats []reservation.Seat) int64 {
	var sum int64
	for _, s := range seats {
		sum += s.Price
	}
	return sum
}

// computeTotals prices seats for a performance. The discount never exceeds
// the ticket subtotal, so fees are always paid in full.
func computeTotals(perf *reservation.Performance, seats []reservation.Seat, defaultFee, discount int64, code string) Totals {
	t := Totals{SeatCount: len(seats), Subtotal: subtotal(seats)}
	if len(seats) == 0 {
		return t
	}

	fee := defaultFee
	if perf != nil {
		if perf.ServiceFeePerTicket > 0 {
			fee = perf.ServiceFeePerTicket
		}
		t.ShippingFee = perf.ShippingFee
	}
	t.ServiceFee = fee * int64(len(seats))

	if discount > t.Subtotal {
		discount = t.Subtotal
	}
	if discount > 0 {
		t.DiscountAmount = discount
		t.DiscountCode = code
	}
	t.Final = t.Subtotal + t.ServiceFee + t.ShippingFee - t.DiscountAmount
	return t
}

// seatSetKey identifies a seat set regardless of selection order
func seatSetKey(seats []reservation.Seat) string {
	ids := reservation.SeatIDs(seats)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func indexOfSeat(seats []reservation.Seat, id int64) int {
	for i, s := range seats {
		if s.ID == id {
			return i
		}
	}
	return -1
}
