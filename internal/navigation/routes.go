package navigation

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"boxoffice/internal/session"
)

// Route names
const (
	RouteHome         = "home"
	RouteShow         = "show"
	RouteSeats        = "seats"
	RouteCustomerInfo = "customer-info"
	RoutePayment      = "payment"
	RouteConfirmation = "confirmation"
	RoutePaymentFail  = "payment-failed"
	RoutePaymentError = "payment-error"
)

// HomePath is where broken sessions are sent
const HomePath = "/"

// Route declares what a checkout step needs before it can be entered
type Route struct {
	Name            string
	Pattern         string
	RequiresSession bool
	// RequiredKeys are validated against the session schema
	RequiredKeys []string
	// RequiresSeats sends the user back to seat selection when nothing is held
	RequiresSeats bool
}

// DefaultRoutes is the checkout flow
func DefaultRoutes() []Route {
	return []Route{
		{Name: RouteHome, Pattern: "/"},
		{Name: RouteShow, Pattern: "/booking/{showId}"},
		{
			Name:            RouteSeats,
			Pattern:         "/booking/{showId}/seats",
			RequiresSession: true,
			RequiredKeys:    []string{session.KeySessionID, session.KeySelectedPerformance},
		},
		{
			Name:            RouteCustomerInfo,
			Pattern:         "/booking/{showId}/customer-info",
			RequiresSession: true,
			RequiredKeys: []string{
				session.KeySessionID,
				session.KeySelectedPerformance,
				session.KeySelectedSeats,
				session.KeyReservationExpiry,
			},
			RequiresSeats: true,
		},
		{
			Name:            RoutePayment,
			Pattern:         "/booking/{showId}/payment",
			RequiresSession: true,
			RequiredKeys: []string{
				session.KeySessionID,
				session.KeySelectedPerformance,
				session.KeyCurrentBooking,
				session.KeyBookingExpiry,
			},
		},
		{Name: RouteConfirmation, Pattern: "/booking/confirmation/{bookingCode}"},
		{Name: RoutePaymentFail, Pattern: "/payment/failed"},
		{Name: RoutePaymentError, Pattern: "/payment/error"},
	}
}

// Table resolves paths to routes using chi's routing tree
type Table struct {
	mux    *chi.Mux
	routes map[string]Route
}

// Match is a resolved route and its path parameters
type Match struct {
	Route  Route
	Params map[string]string
}

func NewTable(routes []Route) *Table {
	t := &Table{mux: chi.NewRouter(), routes: make(map[string]Route, len(routes))}
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	for _, r := range routes {
		t.routes[r.Pattern] = r
		t.mux.Method(http.MethodGet, r.Pattern, noop)
	}
	return t
}

// Lookup finds the route serving path. Query strings are ignored.
func (t *Table) Lookup(path string) (Match, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		path = "/"
	}

	rctx := chi.NewRouteContext()
	if !t.mux.Match(rctx, http.MethodGet, path) {
		return Match{}, false
	}
	route, ok := t.routes[rctx.RoutePattern()]
	if !ok {
		return Match{}, false
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		params[k] = rctx.URLParams.Values[i]
	}
	return Match{Route: route, Params: params}, true
}

// SeatsPath is the seat selection step of a show
func SeatsPath(showID string) string {
	return "/booking/" + showID + "/seats"
}
