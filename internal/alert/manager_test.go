package alert

import (
	"context"
	"testing"
	"time"

	"github.com/HerbHall/revsense/internal/catalog"
	"github.com/HerbHall/revsense/pkg/telemetry"
	"go.uber.org/zap"
)

func statsFor(values map[string]float64) map[string]telemetry.SensorStatistics {
	out := make(map[string]telemetry.SensorStatistics, len(values))
	for id, v := range values {
		out[id] = telemetry.SensorStatistics{SensorID: id, Current: v}
	}
	return out
}

func TestManager_CriticalPrecedesWarning(t *testing.T) {
	cat := catalog.New([]catalog.SensorMetadata{{
		ID:            "coolant_temp",
		DisplayName:   "Engine Coolant Temperature",
		Unit:          "°C",
		WarningRange:  &catalog.Range{Lo: 105, Hi: 130},
		CriticalRange: &catalog.Range{Lo: 115, Hi: 130},
	}})
	m := NewManager(cat, nil, zap.NewNop())

	// 120 falls inside both bands; only the critical alert fires.
	raised := m.Evaluate(context.Background(), statsFor(map[string]float64{"coolant_temp": 120}), time.Now())

	if len(raised) != 1 {
		t.Fatalf("Evaluate raised %d alerts, want 1", len(raised))
	}
	if raised[0].Level != telemetry.AlertCritical {
		t.Errorf("Level = %v, want critical", raised[0].Level)
	}
	if raised[0].Value != 120 {
		t.Errorf("Value = %v, want 120", raised[0].Value)
	}
	if raised[0].ID == "" {
		t.Error("alert has no ID")
	}
}

func TestManager_NoAlertInsideNormalRange(t *testing.T) {
	m := NewManager(catalog.Default(), nil, zap.NewNop())

	raised := m.Evaluate(context.Background(), statsFor(map[string]float64{"coolant_temp": 92}), time.Now())

	if len(raised) != 0 {
		t.Errorf("Evaluate raised %d alerts for in-range value, want 0", len(raised))
	}
	if got := m.Alerts(); len(got) != 0 {
		t.Errorf("history has %d entries, want 0", len(got))
	}
}

func TestManager_WarningBand(t *testing.T) {
	m := NewManager(catalog.Default(), nil, zap.NewNop())

	raised := m.Evaluate(context.Background(), statsFor(map[string]float64{"coolant_temp": 110}), time.Now())

	if len(raised) != 1 || raised[0].Level != telemetry.AlertWarning {
		t.Fatalf("Evaluate = %+v, want one warning alert", raised)
	}
}

func TestManager_CustomThresholdOverridesCatalog(t *testing.T) {
	m := NewManager(catalog.Default(), nil, zap.NewNop())

	// 92 is inside the default normal range but critical by override.
	if err := m.SetThreshold("coolant_temp", Threshold{
		Critical: &catalog.Range{Lo: 90, Hi: 100},
	}); err != nil {
		t.Fatalf("SetThreshold: %v", err)
	}

	raised := m.Evaluate(context.Background(), statsFor(map[string]float64{"coolant_temp": 92}), time.Now())

	if len(raised) != 1 || raised[0].Level != telemetry.AlertCritical {
		t.Fatalf("Evaluate = %+v, want one critical alert", raised)
	}
}

func TestManager_RejectsInvertedThreshold(t *testing.T) {
	m := NewManager(catalog.Default(), nil, zap.NewNop())

	if err := m.SetThreshold("rpm", Threshold{
		Warning: &catalog.Range{Lo: 100, Hi: 50},
	}); err == nil {
		t.Error("SetThreshold accepted an inverted range, want error")
	}
}

func TestManager_HistoryCappedAtTwenty(t *testing.T) {
	m := NewManager(catalog.Default(), nil, zap.NewNop())
	now := time.Now()

	// Repeated breaches are not deduplicated; every tick appends.
	for i := 0; i < 30; i++ {
		m.Evaluate(context.Background(),
			statsFor(map[string]float64{"coolant_temp": 120}),
			now.Add(time.Duration(i)*time.Second))
	}

	history := m.Alerts()
	if len(history) != maxHistory {
		t.Fatalf("history has %d entries, want %d", len(history), maxHistory)
	}
	// Oldest dropped first: the surviving entries are ticks 10..29.
	if !history[0].Timestamp.Equal(now.Add(10 * time.Second)) {
		t.Errorf("oldest retained alert at %v, want tick 10", history[0].Timestamp)
	}
}

func TestManager_Clear(t *testing.T) {
	m := NewManager(catalog.Default(), nil, zap.NewNop())

	m.Evaluate(context.Background(), statsFor(map[string]float64{"coolant_temp": 120}), time.Now())
	m.Clear(context.Background())

	if got := m.Alerts(); len(got) != 0 {
		t.Errorf("history has %d entries after Clear, want 0", len(got))
	}
}

func TestManager_SweepKeepsAlertsInsideGrace(t *testing.T) {
	m := NewManager(catalog.Default(), nil, zap.NewNop())
	now := time.Now()

	m.Evaluate(context.Background(), statsFor(map[string]float64{"coolant_temp": 120}), now.Add(-90*time.Second))
	m.Evaluate(context.Background(), statsFor(map[string]float64{"coolant_temp": 121}), now.Add(-30*time.Second))

	// Cutoff -20s minus the 60s grace evicts anything before -80s:
	// the -90s alert goes, the -30s alert stays.
	m.Sweep(now.Add(-20 * time.Second))

	history := m.Alerts()
	if len(history) != 1 {
		t.Fatalf("history has %d entries after sweep, want 1", len(history))
	}
	if !history[0].Timestamp.Equal(now.Add(-30 * time.Second)) {
		t.Errorf("surviving alert at %v, want the -30s alert", history[0].Timestamp)
	}
}
