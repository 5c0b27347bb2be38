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
var _ Transport = (*AdaptivePoll)(nil)

// AdaptivePoll requests readings newer than a cursor at an interval
// that speeds up while data flows and backs off while idle or failing.
// The interval policy itself lives in Pacer.
type AdaptivePoll struct {
	cfg    Config
	events Events
	pacer  Pacer
	client *http.Client
	logger *zap.Logger

	mu       sync.Mutex
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	timer    *time.Timer
	interval time.Duration
	cursor   int64 // Unix millis of the newest delivered reading
	paused   bool
	status   telemetry.TransportStatus
}

// NewAdaptivePoll creates an adaptive polling transport.
func NewAdaptivePoll(cfg Config, events Events, logger *zap.Logger) (*AdaptivePoll, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("adaptive poll config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdaptivePoll{
		cfg:    cfg,
		events: events,
		pacer:  DefaultPacer(),
		client: &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger,
		status: telemetry.StatusDisconnected,
	}, nil
}

func (a *AdaptivePoll) Name() string { return "poll" }

// Connect starts polling immediately at the base interval.
func (a *AdaptivePoll) Connect(ctx context.Context) error {
	a.mu.Lock()
	if a.cancel != nil {
		a.mu.Unlock()
		return fmt.Errorf("adaptive poll already connected")
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.interval = a.cfg.PollInterval
	a.paused = false
	a.timer = time.NewTimer(0)
	timer := a.timer
	a.mu.Unlock()

	a.setStatus(telemetry.StatusConnecting)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.run(runCtx, timer)
	}()
	return nil
}

// Disconnect stops polling. Idempotent; cancels the scheduled request.
func (a *AdaptivePoll) Disconnect() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	a.wg.Wait()
	a.setStatus(telemetry.StatusDisconnected)
}

// Pause cancels the next scheduled request without disconnecting.
func (a *AdaptivePoll) Pause() {
	a.mu.Lock()
	a.paused = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()
}

// Resume restarts polling after a Pause, issuing a request right away.
func (a *AdaptivePoll) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.paused || a.cancel == nil {
		return
	}
	a.paused = false
	a.timer.Reset(0)
}

// Status returns the current connection status.
func (a *AdaptivePoll) Status() telemetry.TransportStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Interval returns the current adaptive interval.
func (a *AdaptivePoll) Interval() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interval
}

// run issues one request per timer expiry, rescheduling with the
// pacer-computed interval.
func (a *AdaptivePoll) run(ctx context.Context, timer *time.Timer) {
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		a.poll(ctx)

		a.mu.Lock()
		if !a.paused && ctx.Err() == nil && a.cancel != nil {
			timer.Reset(a.interval)
		}
		a.mu.Unlock()
	}
}

// poll fetches readings newer than the cursor and adapts the interval.
func (a *AdaptivePoll) poll(ctx context.Context) {
	a.mu.Lock()
	cursor := a.cursor
	prev := a.interval
	a.mu.Unlock()

	url := fmt.Sprintf("%s/api/v1/sessions/%s/readings?since=%d", a.cfg.BaseURL, a.cfg.SessionID, cursor)

	var resp pollResponse
	err := getJSON(ctx, a.client, url, &resp)
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		requestErrors.WithLabelValues(a.Name()).Inc()
		a.logger.Warn("poll request failed", zap.Error(err), zap.Duration("interval", prev))
		a.mu.Lock()
		a.interval = a.pacer.Next(prev, false, true)
		a.mu.Unlock()
		a.setStatus(telemetry.StatusError)
		return
	}

	next := a.pacer.Next(prev, len(resp.Data) > 0, false)
	newCursor := deliver(a.events, a.Name(), resp.Data, cursor)

	a.mu.Lock()
	a.interval = next
	if newCursor > a.cursor {
		a.cursor = newCursor
	}
	a.mu.Unlock()
	a.setStatus(telemetry.StatusConnected)
}

// setStatus records a transition and notifies the callback, suppressing
// repeats.
func (a *AdaptivePoll) setStatus(s telemetry.TransportStatus) {
	a.mu.Lock()
	if a.status == s {
		a.mu.Unlock()
		return
	}
	a.status = s
	a.mu.Unlock()
	a.events.status(s)
}
