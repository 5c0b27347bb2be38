package session

import (
	"fmt"

	"github.com/HerbHall/revsense/internal/analytics"
	"github.com/HerbHall/revsense/internal/transport"
)

// Config holds the settings for one monitoring session.
type Config struct {
	SessionID string           `mapstructure:"session_id"`
	Analytics analytics.Config `mapstructure:"analytics"`
	Transport transport.Config `mapstructure:"transport"`
}

// DefaultConfig returns a session configuration with standard analytics
// and transport settings. SessionID and Transport.BaseURL must still be
// set by the caller.
func DefaultConfig() Config {
	return Config{
		Analytics: analytics.DefaultConfig(),
		Transport: transport.DefaultConfig(),
	}
}

// Validate reports configuration mistakes.
func (c Config) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if err := c.Analytics.Validate(); err != nil {
		return fmt.Errorf("analytics: %w", err)
	}
	tc := c.Transport
	if tc.SessionID == "" {
		tc.SessionID = c.SessionID
	}
	if err := tc.Validate(); err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	return nil
}
