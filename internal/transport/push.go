package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HerbHall/revsense/pkg/telemetry"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// Compile-time interface guard.
var _ Transport = (*PushStream)(nil)

// PushStream maintains one long-lived WebSocket per session over which
// the server pushes reading events. On transport errors it redials
// with a linearly growing delay up to a fixed retry budget; once the
// budget is exhausted the stream goes to status error and stays idle
// until the caller reconnects it.
type PushStream struct {
	cfg    Config
	events Events
	logger *zap.Logger

	mu       sync.Mutex
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	conn     *websocket.Conn
	status   telemetry.TransportStatus
	attempts int
}

// NewPushStream creates a push-stream transport.
func NewPushStream(cfg Config, events Events, logger *zap.Logger) (*PushStream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("push stream config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushStream{
		cfg:    cfg,
		events: events,
		logger: logger,
		status: telemetry.StatusDisconnected,
	}, nil
}

func (p *PushStream) Name() string { return "push" }

// Connect starts the stream. The connection is established
// asynchronously; progress is reported through the status callback.
// Calling Connect resets the retry budget.
func (p *PushStream) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return fmt.Errorf("push stream already connected")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.attempts = 0
	p.mu.Unlock()

	p.setStatus(telemetry.StatusConnecting)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(runCtx)
	}()
	return nil
}

// Disconnect stops the stream and releases the connection. It is
// idempotent and no callbacks are delivered after it returns.
func (p *PushStream) Disconnect() {
	p.mu.Lock()
	cancel := p.cancel
	conn := p.conn
	p.cancel = nil
	p.conn = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "disconnect")
	}
	// No reading or status callbacks are delivered once Wait returns.
	p.wg.Wait()
	p.setStatus(telemetry.StatusDisconnected)
}

// Status returns the current connection status.
func (p *PushStream) Status() telemetry.TransportStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// run dials and reads until the context is cancelled or the retry
// budget runs out.
func (p *PushStream) run(ctx context.Context) {
	url := fmt.Sprintf("%s/api/v1/sessions/%s/stream", p.cfg.BaseURL, p.cfg.SessionID)

	for {
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("push stream dial failed", zap.String("session_id", p.cfg.SessionID), zap.Error(err))
			requestErrors.WithLabelValues(p.Name()).Inc()
			if !p.scheduleRetry(ctx) {
				return
			}
			continue
		}

		p.mu.Lock()
		p.conn = conn
		p.attempts = 0
		p.mu.Unlock()
		p.setStatus(telemetry.StatusConnected)
		p.logger.Info("push stream connected", zap.String("session_id", p.cfg.SessionID))

		err = p.readLoop(ctx, conn)
		_ = conn.Close(websocket.StatusInternalError, "read loop ended")
		p.mu.Lock()
		p.conn = nil
		p.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("push stream dropped", zap.Error(err))
		p.setStatus(telemetry.StatusDisconnected)
		if !p.scheduleRetry(ctx) {
			return
		}
	}
}

// readLoop decodes events until the connection fails or the context is
// cancelled.
func (p *PushStream) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var ev pushEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch ev.Type {
		case eventConnected:
			// Informational only.
		case eventData:
			deliver(p.events, p.Name(), ev.Data, 0)
		default:
			p.logger.Debug("push stream ignoring event", zap.String("type", ev.Type))
		}
	}
}

// scheduleRetry counts a failed attempt and waits the linear backoff
// delay. Returns false once the budget is exhausted or the context is
// cancelled; budget exhaustion parks the stream at status error.
func (p *PushStream) scheduleRetry(ctx context.Context) bool {
	p.mu.Lock()
	p.attempts++
	attempt := p.attempts
	p.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}

	if attempt >= p.cfg.MaxRetries {
		p.logger.Error("push stream retry budget exhausted",
			zap.Int("attempts", attempt),
			zap.String("session_id", p.cfg.SessionID),
		)
		p.setStatus(telemetry.StatusError)
		return false
	}

	reconnectsTotal.WithLabelValues(p.Name()).Inc()
	delay := p.cfg.RetryDelayBase * time.Duration(attempt)
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

// setStatus records a transition and notifies the callback. Repeated
// transitions to the same status are suppressed, which keeps repeated
// Disconnect calls free of observable effects.
func (p *PushStream) setStatus(s telemetry.TransportStatus) {
	p.mu.Lock()
	if p.status == s {
		p.mu.Unlock()
		return
	}
	p.status = s
	p.mu.Unlock()
	p.events.status(s)
}
