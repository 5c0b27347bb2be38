package transport

import (
	"math"
	"testing"
	"time"
)

func TestPacer_SlowDownWhileIdle(t *testing.T) {
	p := DefaultPacer()
	base := 2 * time.Second

	// After N consecutive empty responses the interval is
	// min(5s, base * 1.2^N).
	interval := base
	for n := 1; n <= 12; n++ {
		interval = p.Next(interval, false, false)
		want := time.Duration(math.Min(
			float64(5*time.Second),
			float64(base)*math.Pow(1.2, float64(n)),
		))
		if delta(interval, want) > time.Millisecond {
			t.Fatalf("after %d empty responses interval = %v, want %v", n, interval, want)
		}
	}
	if interval != 5*time.Second {
		t.Errorf("idle interval = %v, want capped at 5s", interval)
	}
}

func TestPacer_SpeedUpOnData(t *testing.T) {
	p := DefaultPacer()

	if got := p.Next(2*time.Second, true, false); got != 1600*time.Millisecond {
		t.Errorf("Next(2s, data) = %v, want 1.6s", got)
	}

	// Repeated data floors at 500ms.
	interval := 2 * time.Second
	for i := 0; i < 20; i++ {
		interval = p.Next(interval, true, false)
	}
	if interval != 500*time.Millisecond {
		t.Errorf("interval after sustained data = %v, want 500ms floor", interval)
	}
}

func TestPacer_ErrorDoubles(t *testing.T) {
	p := DefaultPacer()

	if got := p.Next(2*time.Second, false, true); got != 4*time.Second {
		t.Errorf("Next(2s, error) = %v, want 4s", got)
	}

	interval := 2 * time.Second
	for i := 0; i < 5; i++ {
		interval = p.Next(interval, false, true)
	}
	if interval != 10*time.Second {
		t.Errorf("interval after repeated errors = %v, want 10s cap", interval)
	}
}

// TestPacer_DataResetsSlowdown verifies one non-empty response undoes
// the idle multiplier rather than continuing from it.
func TestPacer_DataResetsSlowdown(t *testing.T) {
	p := DefaultPacer()

	interval := 2 * time.Second
	for i := 0; i < 8; i++ {
		interval = p.Next(interval, false, false)
	}
	if interval != 5*time.Second {
		t.Fatalf("idle interval = %v, want 5s", interval)
	}

	if got := p.Next(interval, true, false); got != 4*time.Second {
		t.Errorf("Next(5s, data) = %v, want 4s", got)
	}
}

func delta(a, b time.Duration) time.Duration {
	if a > b {
		return a - b
	}
	return b - a
}
