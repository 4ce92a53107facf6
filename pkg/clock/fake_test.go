package clock

import (
	"testing"
	"time"
)

func TestFakeTickerFiresOnAdvance(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	f := NewFake(start)
	tk := f.NewTicker(time.Second)

	select {
	case <-tk.C():
		t.Fatal("tick before advance")
	default:
	}

	f.Advance(time.Second)
	select {
	case got := <-tk.C():
		if !got.Equal(start.Add(time.Second)) {
			t.Fatalf("tick time = %v", got)
		}
	default:
		t.Fatal("expected tick after advance")
	}

	tk.Stop()
	f.Advance(time.Second)
	select {
	case <-tk.C():
		t.Fatal("tick after stop")
	default:
	}
	if n := f.Waiters(); n != 0 {
		t.Fatalf("waiters = %d, want 0", n)
	}
}

func TestFakeAfter(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	ch := f.After(5 * time.Second)
	if f.Waiters() != 1 {
		t.Fatalf("waiters = %d, want 1", f.Waiters())
	}

	f.Advance(4 * time.Second)
	select {
	case <-ch:
		t.Fatal("fired early")
	default:
	}

	f.Advance(time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("timer did not fire")
	}

	immediate := f.After(0)
	select {
	case <-immediate:
	default:
		t.Fatal("zero duration timer should fire at once")
	}
}
