package countdown

import (
	"errors"
	"sync"
	"time"

	"boxoffice/pkg/clock"
)

// ErrMissingExpiry is returned by Start when no expiry was supplied
var ErrMissingExpiry = errors.New("countdown: expiry timestamp is required")

// State of a countdown
type State int

const (
	StateIdle State = iota
	StateRunning
	StateExpired
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateExpired:
		return "expired"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Option configures a Countdown
type Option func(*Countdown)

// WithInterval overrides the one second tick
func WithInterval(d time.Duration) Option {
	return func(c *Countdown) { c.interval = d }
}

// WithOnTick registers a callback receiving the remaining time after each tick
func WithOnTick(fn func(time.Duration)) Option {
	return func(c *Countdown) { c.onTick = fn }
}

// Countdown tracks one reservation window at a time. Remaining time is
// always recomputed from the clock, never decremented.
type Countdown struct {
	clock    clock.Clock
	interval time.Duration
	onTick   func(time.Duration)

	mu        sync.Mutex
	state     State
	expiresAt time.Time
	timeLeft  time.Duration
	run       uint64
	stop      chan struct{}
}

func New(clk clock.Clock, opts ...Option) *Countdown {
	c := &Countdown{clock: clk, interval: time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start stops any running countdown and begins a new one toward expiresAt.
// An expiry already in the past fires onExpire before Start returns.
func (c *Countdown) Start(expiresAt time.Time, onExpire func()) error {
	if expiresAt.IsZero() {
		return ErrMissingExpiry
	}

	c.mu.Lock()
	c.haltLocked(StateStopped)
	c.run++
	run := c.run
	c.expiresAt = expiresAt

	left := remaining(expiresAt, c.clock.Now())
	if left <= 0 {
		c.state = StateExpired
		c.timeLeft = 0
		c.mu.Unlock()
		if onExpire != nil {
			onExpire()
		}
		return nil
	}

	c.state = StateRunning
	c.timeLeft = left
	stop := make(chan struct{})
	c.stop = stop
	ticker := c.clock.NewTicker(c.interval)
	c.mu.Unlock()

	go c.loop(run, ticker, stop, onExpire)
	return nil
}

// Stop halts a running countdown. Safe to call in any state.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.haltLocked(StateStopped)
}

// TimeLeft is the remaining time as of the last tick, in whole seconds
func (c *Countdown) TimeLeft() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeLeft
}

// State reports the current state
func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ExpiresAt is the expiry of the most recent Start
func (c *Countdown) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

func (c *Countdown) loop(run uint64, ticker clock.Ticker, stop <-chan struct{}, onExpire func()) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			now := c.clock.Now()
			c.mu.Lock()
			if c.run != run || c.state != StateRunning {
				c.mu.Unlock()
				return
			}
			left := remaining(c.expiresAt, now)
			if left > 0 {
				c.timeLeft = left
				tick := c.onTick
				c.mu.Unlock()
				if tick != nil {
					tick(left)
				}
				continue
			}

			c.timeLeft = 0
			c.state = StateExpired
			c.stop = nil
			tick := c.onTick
			c.mu.Unlock()

			if tick != nil {
				tick(0)
			}
			if onExpire != nil {
				onExpire()
			}
			return
		}
	}
}

func (c *Countdown) haltLocked(next State) {
	if c.state == StateRunning {
		c.state = next
		if c.stop != nil {
			close(c.stop)
			c.stop = nil
		}
	}
}

// remaining truncates to whole seconds; anything under a second counts as expired
func remaining(expiresAt, now time.Time) time.Duration {
	d := expiresAt.Sub(now).Truncate(time.Second)
	if d < 0 {
		return 0
	}
	return d
}
