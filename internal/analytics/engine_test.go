package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/HerbHall/revsense/internal/catalog"
	"github.com/HerbHall/revsense/pkg/telemetry"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, catalog.Default(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func readingsAt(sensorID string, start time.Time, step time.Duration, values ...float64) []telemetry.Reading {
	out := make([]telemetry.Reading, len(values))
	for i, v := range values {
		out[i] = telemetry.Reading{SensorID: sensorID, Value: v, Timestamp: start.Add(time.Duration(i) * step)}
	}
	return out
}

func TestNewEngine_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick interval", func(c *Config) { c.TickInterval = 0 }},
		{"negative max data points", func(c *Config) { c.MaxDataPoints = -1 }},
		{"alpha above one", func(c *Config) { c.SmoothingAlpha = 1.5 }},
		{"zero retention", func(c *Config) { c.Retention = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := NewEngine(cfg, catalog.Default(), zap.NewNop()); err == nil {
				t.Error("NewEngine accepted invalid config, want error")
			}
		})
	}
}

// TestEngine_RPMWindow covers the canonical single-tick scenario: 11
// rpm readings arrive before one tick.
func TestEngine_RPMWindow(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	now := time.Now()

	readings := readingsAt("rpm", now.Add(-11*time.Second), time.Second,
		800, 820, 840, 860, 880, 900, 920, 940, 960, 980, 1000)
	e.Process(readings, now)

	stats, ok := e.Statistics()["rpm"]
	if !ok {
		t.Fatal("no statistics computed for rpm")
	}

	if stats.Current != 1000 {
		t.Errorf("Current = %v, want 1000", stats.Current)
	}
	if stats.Min != 800 {
		t.Errorf("Min = %v, want 800", stats.Min)
	}
	if stats.Max != 1000 {
		t.Errorf("Max = %v, want 1000", stats.Max)
	}
	if stats.Count != 11 {
		t.Errorf("Count = %d, want 11", stats.Count)
	}
	if stats.ChangeRate != 20 {
		t.Errorf("ChangeRate = %v, want 20", stats.ChangeRate)
	}
	if stats.Trend == telemetry.TrendInsufficientData {
		t.Errorf("Trend = %v, want a computed trend", stats.Trend)
	}
	if stats.Trend != telemetry.TrendIncreasing {
		t.Errorf("Trend = %v, want increasing", stats.Trend)
	}

	// 11 samples is above the trend-metrics threshold of 10.
	trend, ok := e.Trends()["rpm"]
	if !ok {
		t.Fatal("no trend metrics computed for rpm")
	}
	if trend.Direction != telemetry.TrendIncreasing {
		t.Errorf("Direction = %v, want increasing", trend.Direction)
	}
	if trend.Momentum <= 0 {
		t.Errorf("Momentum = %v, want positive for monotonic growth", trend.Momentum)
	}
	if math.Abs(trend.Strength-math.Abs(trend.Momentum)) > epsilon {
		t.Errorf("Strength = %v, want |Momentum| = %v", trend.Strength, math.Abs(trend.Momentum))
	}
	wantConfidence := 11.0 / float64(DefaultConfig().MaxDataPoints)
	if math.Abs(trend.Confidence-wantConfidence) > epsilon {
		t.Errorf("Confidence = %v, want %v", trend.Confidence, wantConfidence)
	}
}

func TestEngine_NoTrendMetricsForShortWindows(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	now := time.Now()

	e.Process(readingsAt("rpm", now.Add(-10*time.Second), time.Second,
		800, 820, 840, 860, 880, 900, 920, 940, 960, 980), now)

	if _, ok := e.Trends()["rpm"]; ok {
		t.Error("trend metrics computed for a 10-sample window, want none")
	}
}

func TestEngine_Smoothing(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	now := time.Now()

	// coolant_temp has smoothing enabled with precision 1.
	e.Process(readingsAt("coolant_temp", now.Add(-2*time.Second), time.Second, 90, 100), now)

	processed := e.ProcessedData()["coolant_temp"]
	if len(processed) != 2 {
		t.Fatalf("processed window has %d entries, want 2", len(processed))
	}
	// Seeded with the first raw value.
	if processed[0].Value != 90 {
		t.Errorf("first smoothed value = %v, want seed 90", processed[0].Value)
	}
	// 0.3*100 + 0.7*90 = 93.0
	if processed[1].Value != 93 {
		t.Errorf("second smoothed value = %v, want 93", processed[1].Value)
	}

	// Raw window is untouched by smoothing; statistics come from it.
	if got := e.Statistics()["coolant_temp"].Current; got != 100 {
		t.Errorf("Current = %v, want raw 100", got)
	}
}

func TestEngine_NoSmoothingForDisabledSensor(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	now := time.Now()

	// short_fuel_trim has smoothing disabled.
	e.Process(readingsAt("short_fuel_trim", now.Add(-2*time.Second), time.Second, 2, 8), now)

	processed := e.ProcessedData()["short_fuel_trim"]
	if processed[1].Value != 8 {
		t.Errorf("processed value = %v, want raw 8", processed[1].Value)
	}
}

func TestEngine_WindowBoundedByMaxDataPoints(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDataPoints = 5
	e := newTestEngine(t, cfg)
	now := time.Now()

	e.Process(readingsAt("rpm", now.Add(-10*time.Second), time.Second,
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10), now)

	raw := e.RawData()["rpm"]
	if len(raw) != 5 {
		t.Fatalf("raw window has %d entries, want 5", len(raw))
	}
	// Oldest dropped first.
	if raw[0].Value != 6 || raw[4].Value != 10 {
		t.Errorf("window = %v..%v, want 6..10", raw[0].Value, raw[4].Value)
	}
	if got := e.Statistics()["rpm"].Count; got != 5 {
		t.Errorf("Count = %d, want 5", got)
	}
}

func TestEngine_SweepEvictsOldReadings(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	now := time.Now()

	old := readingsAt("rpm", now.Add(-10*time.Minute), time.Second, 800, 820, 840)
	fresh := readingsAt("rpm", now.Add(-10*time.Second), time.Second, 900, 920)
	e.Process(append(old, fresh...), now)

	e.Sweep(now.Add(-5*time.Minute), now)

	raw := e.RawData()["rpm"]
	if len(raw) != 2 {
		t.Fatalf("raw window has %d entries after sweep, want 2", len(raw))
	}
	for _, r := range raw {
		if r.Timestamp.Before(now.Add(-5 * time.Minute)) {
			t.Errorf("reading at %v survived the sweep", r.Timestamp)
		}
	}
	if got := e.Statistics()["rpm"].Count; got != 2 {
		t.Errorf("Count = %d after sweep, want 2", got)
	}
}

func TestEngine_SweepRemovesEmptySensors(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	now := time.Now()

	e.Process(readingsAt("rpm", now.Add(-10*time.Minute), time.Second, 800, 820), now)
	e.Sweep(now.Add(-5*time.Minute), now)

	if _, ok := e.Statistics()["rpm"]; ok {
		t.Error("statistics survived for a fully evicted sensor")
	}
	if len(e.RawData()) != 0 {
		t.Error("raw windows survived for a fully evicted sensor")
	}
}

func TestEngine_UnknownSensorStillTracked(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	now := time.Now()

	// Sensors outside the catalog get no smoothing but full statistics.
	e.Process(readingsAt("custom_pid", now.Add(-3*time.Second), time.Second, 1, 2, 3), now)

	stats, ok := e.Statistics()["custom_pid"]
	if !ok {
		t.Fatal("no statistics for uncataloged sensor")
	}
	if stats.Count != 3 {
		t.Errorf("Count = %d, want 3", stats.Count)
	}
}
