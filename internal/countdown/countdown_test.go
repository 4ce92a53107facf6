package countdown

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"boxoffice/pkg/clock"
)

var epoch = time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStartRequiresExpiry(t *testing.T) {
	c := New(clock.NewFake(epoch))
	if err := c.Start(time.Time{}, func() {}); !errors.Is(err, ErrMissingExpiry) {
		t.Fatalf("err = %v, want ErrMissingExpiry", err)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v", c.State())
	}
}

func TestExpiresExactlyOnce(t *testing.T) {
	fake := clock.NewFake(epoch)
	c := New(fake)

	var fired int32
	if err := c.Start(epoch.Add(3*time.Second), func() { atomic.AddInt32(&fired, 1) }); err != nil {
		t.Fatal(err)
	}
	if c.TimeLeft() != 3*time.Second {
		t.Fatalf("TimeLeft = %v", c.TimeLeft())
	}

	fake.Advance(time.Second)
	waitFor(t, "tick", func() bool { return c.TimeLeft() == 2*time.Second })

	fake.Advance(2 * time.Second)
	waitFor(t, "expiry", func() bool { return atomic.LoadInt32(&fired) == 1 })

	fake.Advance(5 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 1 {
		t.Fatalf("onExpire fired %d times", n)
	}
	if c.State() != StateExpired || c.TimeLeft() != 0 {
		t.Fatalf("state = %v, left = %v", c.State(), c.TimeLeft())
	}
}

func TestAlreadyExpiredFiresImmediately(t *testing.T) {
	fake := clock.NewFake(epoch)
	c := New(fake)

	fired := false
	if err := c.Start(epoch.Add(-3*time.Second), func() { fired = true }); err != nil {
		t.Fatal(err)
	}
	if !fired {
		t.Fatal("expiry in the past must fire during Start")
	}
	if c.State() != StateExpired {
		t.Fatalf("state = %v", c.State())
	}
	if fake.Waiters() != 0 {
		t.Fatal("no ticker should be running")
	}
}

func TestRecomputesAfterSuspension(t *testing.T) {
	fake := clock.NewFake(epoch)
	c := New(fake)
	_ = c.Start(epoch.Add(5*time.Minute), nil)

	// One delivered tick after a long gap reflects the whole gap
	fake.Advance(4*time.Minute + 30*time.Second)
	waitFor(t, "recomputed time", func() bool { return c.TimeLeft() == 30*time.Second })
	c.Stop()
}

func TestRestartStopsPrevious(t *testing.T) {
	fake := clock.NewFake(epoch)
	c := New(fake)

	var first, second int32
	_ = c.Start(epoch.Add(2*time.Second), func() { atomic.AddInt32(&first, 1) })
	_ = c.Start(epoch.Add(10*time.Second), func() { atomic.AddInt32(&second, 1) })

	waitFor(t, "old ticker stopped", func() bool { return fake.Waiters() == 1 })

	fake.Advance(3 * time.Second)
	waitFor(t, "tick on new run", func() bool { return c.TimeLeft() == 7*time.Second })
	if atomic.LoadInt32(&first) != 0 {
		t.Fatal("replaced countdown fired")
	}

	fake.Advance(7 * time.Second)
	waitFor(t, "second expiry", func() bool { return atomic.LoadInt32(&second) == 1 })
}

func TestStopIsIdempotent(t *testing.T) {
	fake := clock.NewFake(epoch)
	c := New(fake)

	c.Stop()
	if c.State() != StateIdle {
		t.Fatalf("stop on idle changed state to %v", c.State())
	}

	var fired int32
	_ = c.Start(epoch.Add(2*time.Second), func() { atomic.AddInt32(&fired, 1) })
	c.Stop()
	c.Stop()
	if c.State() != StateStopped {
		t.Fatalf("state = %v", c.State())
	}

	fake.Advance(5 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("stopped countdown fired")
	}

	_ = c.Start(epoch.Add(-time.Second), func() {})
	c.Stop()
	if c.State() != StateExpired {
		t.Fatalf("stop from expired changed state to %v", c.State())
	}
}

func TestOnTickReportsRemaining(t *testing.T) {
	fake := clock.NewFake(epoch)
	var last atomic.Int64
	c := New(fake, WithOnTick(func(d time.Duration) { last.Store(int64(d)) }))
	_ = c.Start(epoch.Add(90*time.Second), nil)

	fake.Advance(time.Second)
	waitFor(t, "tick callback", func() bool { return time.Duration(last.Load()) == 89*time.Second })
	c.Stop()
}
