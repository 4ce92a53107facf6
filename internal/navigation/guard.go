package navigation

import (
	"context"

	"boxoffice/internal/reservation"
	"boxoffice/internal/session"
	"boxoffice/pkg/logger"
)

// Redirect reasons
const (
	ReasonNoSession      = "no_session"
	ReasonInvalidSession = "invalid_session"
	ReasonNoSeats        = "no_seats"
)

// Resetter clears in-progress booking state
type Resetter interface {
	ClearBooking(ctx context.Context)
}

// Decision is the outcome of a guard check
type Decision struct {
	Allow    bool
	Redirect string
	Reason   string
	Route    string
	Params   map[string]string
}

// Guard checks the persisted session before each checkout transition
type Guard struct {
	table  *Table
	store  *session.Store
	beacon reservation.Beacon
	reset  Resetter
	log    *logger.Logger
}

func NewGuard(table *Table, store *session.Store, beacon reservation.Beacon, reset Resetter, log *logger.Logger) *Guard {
	if table == nil {
		table = NewTable(DefaultRoutes())
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Guard{
		table:  table,
		store:  store,
		beacon: beacon,
		reset:  reset,
		log:    log.WithComponent("navigation"),
	}
}

// Before decides whether path may be entered. Unknown paths are allowed.
func (g *Guard) Before(ctx context.Context, path string) Decision {
	m, ok := g.table.Lookup(path)
	if !ok {
		return Decision{Allow: true}
	}
	d := Decision{Allow: true, Route: m.Route.Name, Params: m.Params}
	if !m.Route.RequiresSession {
		return d
	}

	// A missing session has no holds to give back
	sid, ok, err := g.store.GetString(ctx, session.KeySessionID)
	if err != nil || !ok {
		if err != nil {
			g.log.WarnWithContext(ctx, "session read failed during navigation", err, map[string]interface{}{"path": path})
		}
		g.reset.ClearBooking(ctx)
		return g.redirect(ctx, d, HomePath, ReasonNoSession, path)
	}

	if !g.store.Validate(ctx, m.Route.RequiredKeys...) {
		g.releaseStored(ctx, sid)
		g.reset.ClearBooking(ctx)
		return g.redirect(ctx, d, HomePath, ReasonInvalidSession, path)
	}

	if m.Route.RequiresSeats && len(g.storedSeatIDs(ctx)) == 0 {
		return g.redirect(ctx, d, SeatsPath(m.Params["showId"]), ReasonNoSeats, path)
	}
	return d
}

func (g *Guard) redirect(ctx context.Context, d Decision, to, reason, from string) Decision {
	d.Allow = false
	d.Redirect = to
	d.Reason = reason
	g.log.InfoWithContext(ctx, "navigation redirected", map[string]interface{}{
		"from":   from,
		"to":     to,
		"reason": reason,
	})
	return d
}

// releaseStored fires a release for whatever the store says is held
func (g *Guard) releaseStored(ctx context.Context, sid string) {
	ids := g.storedSeatIDs(ctx)
	if len(ids) == 0 || g.beacon == nil {
		return
	}
	g.beacon.SendRelease(sid, ids)
}

func (g *Guard) storedSeatIDs(ctx context.Context) []int64 {
	var seats []reservation.Seat
	if _, err := g.store.Get(ctx, session.KeySelectedSeats, &seats); err != nil {
		g.log.DebugWithContext(ctx, "stored seats unreadable", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return reservation.SeatIDs(seats)
}
