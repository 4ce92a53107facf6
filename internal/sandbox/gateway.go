package sandbox

import (
	"net/url"
	"strings"
	"time"

	"boxoffice/internal/reservation"

	"github.com/google/uuid"
)

// MethodDecline is a payment method the mock gateway always declines
const MethodDecline = "decline"

// Gateway is a stand-in payment provider. Attempts settle after a fixed
// number of status polls.
type Gateway struct {
	baseURL           string
	pollsUntilSettled int
}

func NewGateway(baseURL string, pollsUntilSettled int) *Gateway {
	if pollsUntilSettled < 1 {
		pollsUntilSettled = 1
	}
	return &Gateway{baseURL: strings.TrimRight(baseURL, "/"), pollsUntilSettled: pollsUntilSettled}
}

// Start opens an attempt. Free bookings complete without a redirect.
func (g *Gateway) Start(bookingCode, method string, amount int64, now time.Time) Payment {
	p := Payment{
		TransactionID: "TX" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16]),
		BookingCode:   bookingCode,
		Method:        method,
		Amount:        amount,
		Status:        string(reservation.PaymentPending),
	}
	if amount == 0 {
		p.Status = string(reservation.PaymentSuccess)
		p.ProcessedAt = &now
	}
	return p
}

// PaymentURL is where the customer completes the attempt
func (g *Gateway) PaymentURL(p Payment) string {
	if g.baseURL == "" || p.Status != string(reservation.PaymentPending) {
		return ""
	}
	return g.baseURL + "?tx=" + url.QueryEscape(p.TransactionID)
}

// Poll counts one status check and settles the attempt once due.
// Returns true when the status changed.
func (g *Gateway) Poll(p *Payment, now time.Time) bool {
	if p.Status != string(reservation.PaymentPending) {
		return false
	}
	p.Polls++
	if p.Polls < g.pollsUntilSettled {
		return false
	}
	if p.Method == MethodDecline {
		p.Status = string(reservation.PaymentFailed)
	} else {
		p.Status = string(reservation.PaymentSuccess)
	}
	p.ProcessedAt = &now
	return true
}
