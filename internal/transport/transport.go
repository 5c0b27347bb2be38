// Package transport implements the three delivery mechanisms for a
// session's reading stream (push stream, adaptive poll, long poll) and
// the manager that supervises the active one.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/HerbHall/revsense/pkg/telemetry"
)

// Transport is one delivery mechanism for a session's reading stream.
// Connect starts delivery; Disconnect is idempotent, cancels in-flight
// work and guarantees no callbacks after it completes.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect()
	Status() telemetry.TransportStatus
	Name() string
}

// Events carries the callbacks a transport invokes as the stream
// progresses. Nil callbacks are skipped.
type Events struct {
	OnReading func(telemetry.Reading)
	OnStatus  func(telemetry.TransportStatus)
}

func (e Events) reading(r telemetry.Reading) {
	if e.OnReading != nil {
		e.OnReading(r)
	}
}

func (e Events) status(s telemetry.TransportStatus) {
	if e.OnStatus != nil {
		e.OnStatus(s)
	}
}

// Config holds transport settings for one session.
type Config struct {
	Method          telemetry.TransportMethod `mapstructure:"method"`
	FallbackEnabled bool                      `mapstructure:"fallback_enabled"`
	BaseURL         string                    `mapstructure:"base_url"`
	SessionID       string                    `mapstructure:"session_id"`
	RequestTimeout  time.Duration             `mapstructure:"request_timeout"`

	// Push stream reconnection.
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	MaxRetries     int           `mapstructure:"max_retries"`

	// Adaptive polling.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// Long polling.
	LongPollHold       time.Duration `mapstructure:"long_poll_hold"`
	LongPollCycleDelay time.Duration `mapstructure:"long_poll_cycle_delay"`
	LongPollRetryDelay time.Duration `mapstructure:"long_poll_retry_delay"`
}

// DefaultConfig returns the standard transport configuration.
func DefaultConfig() Config {
	return Config{
		Method:             telemetry.MethodPush,
		FallbackEnabled:    true,
		RequestTimeout:     10 * time.Second,
		RetryDelayBase:     time.Second,
		MaxRetries:         5,
		PollInterval:       2 * time.Second,
		LongPollHold:       35 * time.Second,
		LongPollCycleDelay: 100 * time.Millisecond,
		LongPollRetryDelay: 3 * time.Second,
	}
}

// Validate reports configuration mistakes.
func (c Config) Validate() error {
	switch c.Method {
	case telemetry.MethodPush, telemetry.MethodPoll, telemetry.MethodLongPoll:
	default:
		return fmt.Errorf("unknown transport method %q", c.Method)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if c.RetryDelayBase <= 0 {
		return fmt.Errorf("retry_delay_base must be positive, got %v", c.RetryDelayBase)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive, got %d", c.MaxRetries)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval)
	}
	if c.LongPollHold <= 0 || c.LongPollCycleDelay <= 0 || c.LongPollRetryDelay <= 0 {
		return fmt.Errorf("long poll intervals must be positive")
	}
	return nil
}
