// Package alert evaluates sensor statistics against threshold bands and
// maintains a bounded alert history for the session.
package alert

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/HerbHall/revsense/internal/catalog"
	"github.com/HerbHall/revsense/internal/event"
	"github.com/HerbHall/revsense/pkg/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxHistory caps the retained alert history, oldest dropped first.
const maxHistory = 20

// alertGrace is how long past the retention cutoff alerts stay visible,
// so a consumer can still observe a just-expired alert.
const alertGrace = 60 * time.Second

// Threshold is a custom per-sensor override of the catalog ranges.
// A nil band is not evaluated.
type Threshold struct {
	Warning  *catalog.Range `json:"warning,omitempty"`
	Critical *catalog.Range `json:"critical,omitempty"`
}

// Manager evaluates per-tick statistics and records threshold breaches.
// Repeated breaches across ticks are recorded every tick; there is no
// suppression or rate limiting of near-duplicate alerts.
type Manager struct {
	cat    *catalog.Catalog
	bus    *event.Bus
	logger *zap.Logger

	mu         sync.Mutex
	thresholds map[string]Threshold
	history    []telemetry.Alert
}

// NewManager creates an alert manager using catalog ranges as defaults.
func NewManager(cat *catalog.Catalog, bus *event.Bus, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cat:        cat,
		bus:        bus,
		logger:     logger,
		thresholds: make(map[string]Threshold),
	}
}

// SetThreshold installs a custom threshold for a sensor, replacing the
// catalog defaults for that sensor.
func (m *Manager) SetThreshold(sensorID string, t Threshold) error {
	if t.Warning != nil && t.Warning.Lo > t.Warning.Hi {
		return fmt.Errorf("warning range for %s inverted: [%v, %v]", sensorID, t.Warning.Lo, t.Warning.Hi)
	}
	if t.Critical != nil && t.Critical.Lo > t.Critical.Hi {
		return fmt.Errorf("critical range for %s inverted: [%v, %v]", sensorID, t.Critical.Lo, t.Critical.Hi)
	}
	m.mu.Lock()
	m.thresholds[sensorID] = t
	m.mu.Unlock()
	return nil
}

// Thresholds returns a copy of the installed custom thresholds.
func (m *Manager) Thresholds() map[string]Threshold {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Threshold, len(m.thresholds))
	for id, t := range m.thresholds {
		out[id] = t
	}
	return out
}

// Evaluate checks every sensor's current value against its threshold
// bands, critical before warning, and appends one alert per breach.
// Returns the alerts raised this tick.
func (m *Manager) Evaluate(ctx context.Context, stats map[string]telemetry.SensorStatistics, now time.Time) []telemetry.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Deterministic evaluation order keeps history ordering stable when
	// several sensors breach in the same tick.
	ids := make([]string, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var raised []telemetry.Alert
	for _, id := range ids {
		a := m.evaluateSensor(id, stats[id].Current, now)
		if a == nil {
			continue
		}
		raised = append(raised, *a)
		m.append(*a)

		m.logger.Warn("alert triggered",
			zap.String("alert_id", a.ID),
			zap.String("sensor_id", a.SensorID),
			zap.String("level", string(a.Level)),
			zap.Float64("value", a.Value),
		)
		if m.bus != nil {
			m.bus.PublishAsync(ctx, event.Event{
				Topic:     TopicAlertTriggered,
				Source:    "alert",
				Timestamp: now,
				Payload:   *a,
			})
		}
	}
	return raised
}

// evaluateSensor returns the alert for one sensor value, or nil when
// the value sits outside every trigger band. Callers must hold m.mu.
func (m *Manager) evaluateSensor(sensorID string, value float64, now time.Time) *telemetry.Alert {
	warning, critical := m.bands(sensorID)

	// Critical takes precedence even when the value also falls inside
	// the warning band.
	if critical != nil && critical.Contains(value) {
		return m.newAlert(sensorID, telemetry.AlertCritical, value, *critical, now)
	}
	if warning != nil && warning.Contains(value) {
		return m.newAlert(sensorID, telemetry.AlertWarning, value, *warning, now)
	}
	return nil
}

// bands resolves the warning/critical trigger bands for a sensor:
// custom thresholds when installed, catalog defaults otherwise.
func (m *Manager) bands(sensorID string) (warning, critical *catalog.Range) {
	if t, ok := m.thresholds[sensorID]; ok {
		return t.Warning, t.Critical
	}
	if meta, ok := m.cat.Lookup(sensorID); ok {
		return meta.WarningRange, meta.CriticalRange
	}
	return nil, nil
}

func (m *Manager) newAlert(sensorID string, level telemetry.AlertLevel, value float64, band catalog.Range, now time.Time) *telemetry.Alert {
	name := sensorID
	unit := ""
	if meta, ok := m.cat.Lookup(sensorID); ok {
		name = meta.DisplayName
		unit = meta.Unit
	}
	return &telemetry.Alert{
		ID:        uuid.NewString(),
		SensorID:  sensorID,
		Level:     level,
		Message:   fmt.Sprintf("%s: %v %s in %s range [%v, %v]", name, value, unit, level, band.Lo, band.Hi),
		Value:     value,
		Timestamp: now,
	}
}

// append adds an alert to the history, dropping the oldest entry once
// the cap is reached. Callers must hold m.mu.
func (m *Manager) append(a telemetry.Alert) {
	m.history = append(m.history, a)
	if len(m.history) > maxHistory {
		m.history = append([]telemetry.Alert(nil), m.history[len(m.history)-maxHistory:]...)
	}
}

// Alerts returns a copy of the alert history, oldest first.
func (m *Manager) Alerts() []telemetry.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]telemetry.Alert(nil), m.history...)
}

// Clear empties the alert history.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	m.history = nil
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.PublishAsync(ctx, event.Event{
			Topic:     TopicAlertsCleared,
			Source:    "alert",
			Timestamp: time.Now().UTC(),
		})
	}
}

// Sweep evicts alerts older than the retention cutoff plus the alert
// grace period.
func (m *Manager) Sweep(cutoff time.Time) {
	graced := cutoff.Add(-alertGrace)

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := 0
	for idx < len(m.history) && m.history[idx].Timestamp.Before(graced) {
		idx++
	}
	if idx > 0 {
		m.history = append([]telemetry.Alert(nil), m.history[idx:]...)
	}
}
