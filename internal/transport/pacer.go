package transport

import "time"

// Pacer is the pure interval-adaptation policy for adaptive polling.
// It holds no timer state; callers feed the previous interval and the
// outcome of the last request and schedule the result themselves.
type Pacer struct {
	Min      time.Duration // Floor while data flows
	Max      time.Duration // Cap while idle
	ErrMax   time.Duration // Cap after consecutive errors
	SpeedUp  float64       // Multiplier on a non-empty response
	SlowDown float64       // Multiplier on an empty response
}

// DefaultPacer returns the standard polling policy: speed up toward
// 500ms while data flows, back off toward 5s when idle, double toward
// 10s on request errors.
func DefaultPacer() Pacer {
	return Pacer{
		Min:      500 * time.Millisecond,
		Max:      5 * time.Second,
		ErrMax:   10 * time.Second,
		SpeedUp:  0.8,
		SlowDown: 1.2,
	}
}

// Next computes the interval for the next request from the previous
// interval and the outcome of the last one.
func (p Pacer) Next(prev time.Duration, gotData, failed bool) time.Duration {
	switch {
	case failed:
		return capAt(2*prev, p.ErrMax)
	case gotData:
		return floorAt(scale(prev, p.SpeedUp), p.Min)
	default:
		return capAt(scale(prev, p.SlowDown), p.Max)
	}
}

func scale(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}

func capAt(d, max time.Duration) time.Duration {
	if d > max {
		return max
	}
	return d
}

func floorAt(d, min time.Duration) time.Duration {
	if d < min {
		return min
	}
	return d
}
