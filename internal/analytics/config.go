package analytics

import (
	"fmt"
	"time"
)

// Config controls the analytics engine.
type Config struct {
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	MaxDataPoints  int           `mapstructure:"max_data_points"`
	SmoothingAlpha float64       `mapstructure:"smoothing_alpha"`
	EnableTrends   bool          `mapstructure:"enable_trends"`
	Retention      time.Duration `mapstructure:"retention"`
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval:   time.Second,
		MaxDataPoints:  100,
		SmoothingAlpha: 0.3,
		EnableTrends:   true,
		Retention:      5 * time.Minute,
	}
}

// Validate reports configuration mistakes. Invalid analytics config is
// a programming error and fails construction rather than being patched
// up at runtime.
func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval)
	}
	if c.MaxDataPoints <= 0 {
		return fmt.Errorf("max_data_points must be positive, got %d", c.MaxDataPoints)
	}
	if c.SmoothingAlpha <= 0 || c.SmoothingAlpha > 1 {
		return fmt.Errorf("smoothing_alpha must be in (0, 1], got %v", c.SmoothingAlpha)
	}
	if c.Retention <= 0 {
		return fmt.Errorf("retention must be positive, got %v", c.Retention)
	}
	return nil
}
