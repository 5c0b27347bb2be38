// Package session wires the transport, ingest buffer, analytics engine
// and alert manager into one monitoring session with a tick-driven
// pipeline and a read-only snapshot surface.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/revsense/internal/alert"
	"github.com/HerbHall/revsense/internal/analytics"
	"github.com/HerbHall/revsense/internal/catalog"
	"github.com/HerbHall/revsense/internal/event"
	"github.com/HerbHall/revsense/internal/ingest"
	"github.com/HerbHall/revsense/internal/store"
	"github.com/HerbHall/revsense/internal/transport"
	"github.com/HerbHall/revsense/pkg/telemetry"
)

// Snapshot is an internally consistent, copy-only view of a session.
// Hidden sensors are omitted from the data maps; alert history is
// always included.
type Snapshot struct {
	SessionID        string                                `json:"session_id"`
	RawData          map[string][]telemetry.Reading        `json:"raw_data"`
	ProcessedData    map[string][]telemetry.Reading        `json:"processed_data"`
	SensorStatistics map[string]telemetry.SensorStatistics `json:"sensor_statistics"`
	Alerts           []telemetry.Alert                     `json:"alerts"`
	Trends           map[string]telemetry.TrendMetrics     `json:"trends"`
	ConnectionStatus telemetry.TransportStatus             `json:"connection_status"`
	UpdateRate       float64                               `json:"update_rate"`
	GeneratedAt      time.Time                             `json:"generated_at"`
}

// Session owns one end-to-end monitoring pipeline: readings flow from
// the active transport into the ingest buffer, and each tick drains
// the buffer through the analytics engine and alert evaluation.
type Session struct {
	cfg     Config
	logger  *zap.Logger
	bus     *event.Bus
	buffer  *ingest.Buffer
	engine  *analytics.Engine
	alerts  *alert.Manager
	conn    *transport.Manager
	prefs   *store.Prefs

	mu         sync.Mutex
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	running    bool
	status     telemetry.TransportStatus
	updateRate float64
	hidden     map[string]bool
	filters    map[string]catalog.Range
}

// New builds a session from its configuration. The preference store is
// optional; pass nil to run without persisted preferences.
func New(cfg Config, cat *catalog.Catalog, bus *event.Bus, prefs *store.Prefs, logger *zap.Logger) (*Session, error) {
	if cfg.Transport.SessionID == "" {
		cfg.Transport.SessionID = cfg.SessionID
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}

	engine, err := analytics.NewEngine(cfg.Analytics, cat, logger)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:     cfg,
		logger:  logger,
		bus:     bus,
		buffer:  ingest.NewBuffer(),
		engine:  engine,
		alerts:  alert.NewManager(cat, bus, logger),
		prefs:   prefs,
		status:  telemetry.StatusDisconnected,
		hidden:  make(map[string]bool),
		filters: make(map[string]catalog.Range),
	}

	s.conn, err = transport.NewManager(cfg.Transport, transport.Events{
		OnReading: s.ingestReading,
		OnStatus:  s.onTransportStatus,
	}, logger)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Start loads persisted preferences, connects the transport and begins
// the tick loop. Starting a running session is an error.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("session %q already running", s.cfg.SessionID)
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	if err := s.loadPreferences(ctx); err != nil {
		s.logger.Warn("loading preferences failed, continuing with defaults",
			zap.String("session_id", s.cfg.SessionID),
			zap.Error(err))
	}

	if err := s.conn.Connect(runCtx); err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		cancel()
		return fmt.Errorf("connect transport: %w", err)
	}

	s.wg.Add(1)
	go s.run(runCtx)

	s.logger.Info("session started",
		zap.String("session_id", s.cfg.SessionID),
		zap.String("transport", s.conn.ActiveName()),
		zap.Duration("tick_interval", s.cfg.Analytics.TickInterval))
	return nil
}

// Stop halts the tick loop and disconnects the transport. Safe to call
// more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.conn.Disconnect()
	s.wg.Wait()
	s.logger.Info("session stopped", zap.String("session_id", s.cfg.SessionID))
}

func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Analytics.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, time.Now())
		}
	}
}

// tick runs one analytics cycle: drain, process, evaluate alerts,
// sweep the retention horizon.
func (s *Session) tick(ctx context.Context, now time.Time) {
	started := time.Now()

	drained := s.buffer.Drain()
	s.engine.Process(drained, now)

	stats := s.engine.Statistics()
	raised := s.alerts.Evaluate(ctx, stats, now)

	cutoff := now.Add(-s.cfg.Analytics.Retention)
	s.engine.Sweep(cutoff, now)
	s.alerts.Sweep(cutoff)

	rate := float64(len(drained)) / s.cfg.Analytics.TickInterval.Seconds()
	s.mu.Lock()
	s.updateRate = rate
	s.mu.Unlock()

	ticksTotal.Inc()
	tickDuration.Observe(time.Since(started).Seconds())
	readingsProcessed.Add(float64(len(drained)))
	activeAlerts.Set(float64(len(s.alerts.Alerts())))

	s.bus.PublishAsync(ctx, event.Event{
		Topic:     TopicTick,
		Source:    "session",
		Timestamp: now,
		Payload: TickSummary{
			SessionID:  s.cfg.SessionID,
			Drained:    len(drained),
			Sensors:    len(stats),
			Alerts:     len(raised),
			UpdateRate: rate,
		},
	})
}

// ingestReading is the transport sink. Readings failing the sensor's
// value filter are dropped before they reach the buffer.
func (s *Session) ingestReading(r telemetry.Reading) {
	s.mu.Lock()
	f, filtered := s.filters[r.SensorID]
	s.mu.Unlock()
	if filtered && !f.Contains(r.Value) {
		return
	}
	s.buffer.Append(r)
}

func (s *Session) onTransportStatus(st telemetry.TransportStatus) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()

	s.bus.PublishAsync(context.Background(), event.Event{
		Topic:     TopicTransportStatus,
		Source:    "session",
		Timestamp: time.Now(),
		Payload:   st,
	})
}

// Snapshot returns a consistent copy of the session's current state.
// Hidden sensors are excluded from the data maps.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	status := s.status
	rate := s.updateRate
	hidden := make(map[string]bool, len(s.hidden))
	for id, h := range s.hidden {
		hidden[id] = h
	}
	s.mu.Unlock()

	snap := Snapshot{
		SessionID:        s.cfg.SessionID,
		RawData:          s.engine.RawData(),
		ProcessedData:    s.engine.ProcessedData(),
		SensorStatistics: s.engine.Statistics(),
		Alerts:           s.alerts.Alerts(),
		Trends:           s.engine.Trends(),
		ConnectionStatus: status,
		UpdateRate:       rate,
		GeneratedAt:      time.Now(),
	}

	for id, h := range hidden {
		if !h {
			continue
		}
		delete(snap.RawData, id)
		delete(snap.ProcessedData, id)
		delete(snap.SensorStatistics, id)
		delete(snap.Trends, id)
	}
	return snap
}

// ToggleSensorVisibility flips a sensor's visibility and returns the
// new state. The change is persisted when a preference store is
// attached.
func (s *Session) ToggleSensorVisibility(ctx context.Context, sensorID string) (visible bool, err error) {
	s.mu.Lock()
	s.hidden[sensorID] = !s.hidden[sensorID]
	visible = !s.hidden[sensorID]
	pref := s.prefFor(sensorID)
	s.mu.Unlock()

	if err := s.savePref(ctx, pref); err != nil {
		return visible, err
	}
	return visible, nil
}

// SetSensorFilter restricts ingest for a sensor to values within
// [min, max]. Out-of-range readings are discarded before buffering.
func (s *Session) SetSensorFilter(ctx context.Context, sensorID string, min, max float64) error {
	if min > max {
		return fmt.Errorf("invalid filter for %q: min %v > max %v", sensorID, min, max)
	}

	s.mu.Lock()
	s.filters[sensorID] = catalog.Range{Lo: min, Hi: max}
	pref := s.prefFor(sensorID)
	s.mu.Unlock()

	return s.savePref(ctx, pref)
}

// SetThreshold overrides the alerting bands for a sensor and persists
// the override when a preference store is attached.
func (s *Session) SetThreshold(ctx context.Context, sensorID string, t alert.Threshold) error {
	if err := s.alerts.SetThreshold(sensorID, t); err != nil {
		return err
	}
	if s.prefs == nil {
		return nil
	}
	return s.prefs.SaveThreshold(ctx, sensorID, t)
}

// ClearAlerts discards the alert history.
func (s *Session) ClearAlerts(ctx context.Context) {
	s.alerts.Clear(ctx)
}

// Reconnect tears down the active transport and reconnects from the
// configured primary method.
func (s *Session) Reconnect() error {
	return s.conn.Reconnect()
}

// ConnectionStatus reports the most recent transport status.
func (s *Session) ConnectionStatus() telemetry.TransportStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ActiveTransport names the transport currently delivering readings.
func (s *Session) ActiveTransport() string {
	return s.conn.ActiveName()
}

// Statistics exposes the engine's current per-sensor statistics.
func (s *Session) Statistics() map[string]telemetry.SensorStatistics {
	return s.engine.Statistics()
}

// Alerts exposes the retained alert history, oldest first.
func (s *Session) Alerts() []telemetry.Alert {
	return s.alerts.Alerts()
}

// prefFor builds the persistable preference row for a sensor from the
// in-memory state. Caller must hold s.mu.
func (s *Session) prefFor(sensorID string) store.SensorPref {
	pref := store.SensorPref{SensorID: sensorID, Visible: !s.hidden[sensorID]}
	if f, ok := s.filters[sensorID]; ok {
		lo, hi := f.Lo, f.Hi
		pref.FilterMin = &lo
		pref.FilterMax = &hi
	}
	return pref
}

func (s *Session) savePref(ctx context.Context, pref store.SensorPref) error {
	if s.prefs == nil {
		return nil
	}
	return s.prefs.SavePref(ctx, pref)
}

// loadPreferences restores persisted thresholds, visibility and
// filters.
func (s *Session) loadPreferences(ctx context.Context) error {
	if s.prefs == nil {
		return nil
	}

	thresholds, err := s.prefs.Thresholds(ctx)
	if err != nil {
		return err
	}
	for id, t := range thresholds {
		if err := s.alerts.SetThreshold(id, t); err != nil {
			s.logger.Warn("skipping stored threshold",
				zap.String("sensor_id", id),
				zap.Error(err))
		}
	}

	prefs, err := s.prefs.Prefs(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	for id, p := range prefs {
		s.hidden[id] = !p.Visible
		if p.FilterMin != nil && p.FilterMax != nil {
			s.filters[id] = catalog.Range{Lo: *p.FilterMin, Hi: *p.FilterMax}
		}
	}
	s.mu.Unlock()
	return nil
}
