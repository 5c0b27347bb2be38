package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/HerbHall/revsense/pkg/telemetry"
	"go.uber.org/zap"
)

// Compile-time interface guard.
var _ Transport = (*LongPoll)(nil)

// LongPoll issues requests the server holds open until data arrives or
// the hold timeout elapses, then immediately cycles. Unlike the push
// stream there is no retry budget: errors back off a fixed delay and
// the loop keeps going until explicitly stopped.
type LongPoll struct {
	cfg    Config
	events Events
	client *http.Client
	logger *zap.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
	cursor int64
	status telemetry.TransportStatus
}

// NewLongPoll creates a long-polling transport.
func NewLongPoll(cfg Config, events Events, logger *zap.Logger) (*LongPoll, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("long poll config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LongPoll{
		cfg:    cfg,
		events: events,
		// The client timeout must exceed the server-side hold so held
		// requests are not cut off locally.
		client: &http.Client{Timeout: cfg.LongPollHold + cfg.RequestTimeout},
		logger: logger,
		status: telemetry.StatusDisconnected,
	}, nil
}

func (l *LongPoll) Name() string { return "longpoll" }

// Connect starts the long-poll cycle.
func (l *LongPoll) Connect(ctx context.Context) error {
	l.mu.Lock()
	if l.cancel != nil {
		l.mu.Unlock()
		return fmt.Errorf("long poll already connected")
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	l.setStatus(telemetry.StatusConnecting)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.run(runCtx)
	}()
	return nil
}

// Disconnect stops the cycle, cancelling any held request. Idempotent.
func (l *LongPoll) Disconnect() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	l.wg.Wait()
	l.setStatus(telemetry.StatusDisconnected)
}

// Status returns the current connection status.
func (l *LongPoll) Status() telemetry.TransportStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// run cycles held requests until the context is cancelled.
func (l *LongPoll) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		l.mu.Lock()
		cursor := l.cursor
		l.mu.Unlock()

		url := fmt.Sprintf("%s/api/v1/sessions/%s/poll?lastTimestamp=%d&hold=%d",
			l.cfg.BaseURL, l.cfg.SessionID, cursor, l.cfg.LongPollHold.Milliseconds())

		var resp longPollResponse
		err := getJSON(ctx, l.client, url, &resp)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			requestErrors.WithLabelValues(l.Name()).Inc()
			l.logger.Warn("long poll request failed", zap.Error(err))
			l.setStatus(telemetry.StatusError)
			if !sleep(ctx, l.cfg.LongPollRetryDelay) {
				return
			}
			continue
		}

		l.setStatus(telemetry.StatusConnected)
		switch resp.Type {
		case eventTimeout:
			// Server hold elapsed with no data; cycle again.
		case eventData:
			newCursor := deliver(l.events, l.Name(), resp.Data, cursor)
			l.mu.Lock()
			if newCursor > l.cursor {
				l.cursor = newCursor
			}
			l.mu.Unlock()
		default:
			l.logger.Debug("long poll ignoring response", zap.String("type", resp.Type))
		}

		if !sleep(ctx, l.cfg.LongPollCycleDelay) {
			return
		}
	}
}

// setStatus records a transition and notifies the callback, suppressing
// repeats.
func (l *LongPoll) setStatus(s telemetry.TransportStatus) {
	l.mu.Lock()
	if l.status == s {
		l.mu.Unlock()
		return
	}
	l.status = s
	l.mu.Unlock()
	l.events.status(s)
}

// sleep waits d or until the context is cancelled. Returns false on
// cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
