package clock

import "time"

// Clock is the source of wall-clock time and timers
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	After(d time.Duration) <-chan time.Time
}

// Ticker delivers ticks on C until stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

// New returns a Clock backed by the time package
func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time {
	return r.t.C
}

func (r *realTicker) Stop() {
	r.t.Stop()
}
