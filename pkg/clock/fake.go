package clock

import (
	"sync"
	"time"
)

// Fake is a manually driven Clock for tests. Time only moves on Advance or Set.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	timers  []*fakeTimer
}

type fakeTicker struct {
	clock    *Fake
	c        chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

type fakeTimer struct {
	c        chan time.Time
	deadline time.Time
}

// NewFake returns a Fake clock set to start
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{
		clock:    f,
		c:        make(chan time.Time, 1),
		interval: d,
		next:     f.now.Add(d),
	}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{c: make(chan time.Time, 1), deadline: f.now.Add(d)}
	if d <= 0 {
		t.c <- f.now
		return t.c
	}
	f.timers = append(f.timers, t)
	return t.c
}

// Advance moves the clock forward and fires every ticker and timer that
// became due. Ticks are dropped when the receiver is behind, like time.Ticker.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	f.fireLocked()
}

// Set jumps the clock to t. Moving backwards fires nothing.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
	f.fireLocked()
}

// Waiters reports the number of live tickers and pending timers
func (f *Fake) Waiters() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.timers)
	for _, t := range f.tickers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// BlockUntil waits, in real time, until at least n waiters are registered
func (f *Fake) BlockUntil(n int) {
	for f.Waiters() < n {
		time.Sleep(time.Millisecond)
	}
}

func (f *Fake) fireLocked() {
	live := f.tickers[:0]
	for _, t := range f.tickers {
		if t.stopped {
			continue
		}
		if !t.next.After(f.now) {
			select {
			case t.c <- f.now:
			default:
			}
			for !t.next.After(f.now) {
				t.next = t.next.Add(t.interval)
			}
		}
		live = append(live, t)
	}
	f.tickers = live

	pending := f.timers[:0]
	for _, t := range f.timers {
		if !t.deadline.After(f.now) {
			t.c <- f.now
			continue
		}
		pending = append(pending, t)
	}
	f.timers = pending
}

func (t *fakeTicker) C() <-chan time.Time {
	return t.c
}

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}
