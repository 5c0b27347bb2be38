package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/HerbHall/revsense/pkg/telemetry"
	"go.uber.org/zap"
)

// Manager owns the single active transport for a session and decides
// fallback policy: when the push stream exhausts its retry budget and
// fallback is enabled, adaptive polling takes over while the push
// stream stays idle for a later manual reconnect. Exactly one
// transport delivers readings downstream at any instant.
type Manager struct {
	cfg    Config
	sink   Events
	logger *zap.Logger

	mu       sync.Mutex
	ctx      context.Context
	primary  Transport
	fallback Transport
	active   Transport
	status   telemetry.TransportStatus
}

// NewManager creates a transport manager delivering readings and
// status changes to the given sink.
func NewManager(cfg Config, sink Events, logger *zap.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("transport config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		status: telemetry.StatusDisconnected,
	}, nil
}

// Connect builds the configured transport and starts it.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.primary != nil {
		m.mu.Unlock()
		return fmt.Errorf("transport manager already connected")
	}
	m.ctx = ctx

	primary, err := m.build(m.cfg)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.primary = primary
	m.active = primary
	// Connect outside the lock: transports report status synchronously.
	m.mu.Unlock()
	return primary.Connect(ctx)
}

// Disconnect stops every transport the manager created. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	primary, fallback := m.primary, m.fallback
	m.primary, m.fallback, m.active = nil, nil, nil
	m.status = telemetry.StatusDisconnected
	m.mu.Unlock()

	if fallback != nil {
		fallback.Disconnect()
	}
	if primary != nil {
		primary.Disconnect()
	}
}

// Reconnect tears down the current transports and rebuilds the
// configured one with fresh retry/backoff state.
func (m *Manager) Reconnect() error {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	if ctx == nil {
		return fmt.Errorf("transport manager not connected")
	}

	m.Disconnect()

	m.mu.Lock()
	m.ctx = ctx
	primary, err := m.build(m.cfg)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.primary = primary
	m.active = primary
	m.mu.Unlock()

	m.logger.Info("transport rebuilt", zap.String("method", string(m.cfg.Method)))
	return primary.Connect(ctx)
}

// Status returns the status of the active transport path.
func (m *Manager) Status() telemetry.TransportStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ActiveName names the transport currently delivering readings, or ""
// when disconnected.
func (m *Manager) ActiveName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ""
	}
	return m.active.Name()
}

// build constructs a transport wired to the manager's filtered
// callbacks. The callbacks close over the slot so they can identify
// their own transport once it is running.
func (m *Manager) build(cfg Config) (Transport, error) {
	var t Transport
	events := Events{
		OnReading: func(r telemetry.Reading) { m.onReading(t, r) },
		OnStatus:  func(s telemetry.TransportStatus) { m.onStatus(t, s) },
	}

	var err error
	switch cfg.Method {
	case telemetry.MethodPush:
		t, err = NewPushStream(cfg, events, m.logger)
	case telemetry.MethodPoll:
		t, err = NewAdaptivePoll(cfg, events, m.logger)
	case telemetry.MethodLongPoll:
		t, err = NewLongPoll(cfg, events, m.logger)
	default:
		err = fmt.Errorf("unknown transport method %q", cfg.Method)
	}
	return t, err
}

// onReading forwards readings only from the transport that is active
// right now.
func (m *Manager) onReading(from Transport, r telemetry.Reading) {
	m.mu.Lock()
	activeNow := m.active == from
	m.mu.Unlock()
	if activeNow {
		m.sink.reading(r)
	}
}

// onStatus tracks the active transport's state and drives fallback:
// a push stream that parked at status error hands over to adaptive
// polling when fallback is enabled.
func (m *Manager) onStatus(from Transport, s telemetry.TransportStatus) {
	m.mu.Lock()
	if m.active != from {
		m.mu.Unlock()
		return
	}
	m.status = s

	shouldFallBack := s == telemetry.StatusError &&
		m.cfg.Method == telemetry.MethodPush &&
		m.cfg.FallbackEnabled &&
		from == m.primary &&
		m.fallback == nil
	ctx := m.ctx
	m.mu.Unlock()

	m.sink.status(s)

	if !shouldFallBack {
		return
	}

	m.logger.Warn("push stream failed, falling back to adaptive polling")
	pollCfg := m.cfg
	pollCfg.Method = telemetry.MethodPoll

	fb, err := m.build(pollCfg)
	if err != nil {
		m.logger.Error("fallback construction failed", zap.Error(err))
		return
	}

	m.mu.Lock()
	m.fallback = fb
	m.active = fb
	m.mu.Unlock()

	if err := fb.Connect(ctx); err != nil {
		m.logger.Error("fallback connect failed", zap.Error(err))
	}
}
