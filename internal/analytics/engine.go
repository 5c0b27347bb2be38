// Package analytics maintains the per-sensor analytics state for one
// diagnostic session: exponential smoothing, rolling descriptive
// statistics and trend/momentum/volatility scoring over a bounded
// retained window.
package analytics

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/HerbHall/revsense/internal/catalog"
	"github.com/HerbHall/revsense/pkg/telemetry"
	"go.uber.org/zap"
)

// window holds the retained history for one sensor. The raw series
// feeds statistics and trends; the processed series is the smoothed
// view exposed to consumers.
type window struct {
	raw       []telemetry.Reading
	processed []telemetry.Reading
	smoothed  float64
	seeded    bool
}

// Engine recomputes sensor analytics on every tick. It owns all
// retained windows exclusively; concurrent readers get copies.
type Engine struct {
	cfg    Config
	cat    *catalog.Catalog
	logger *zap.Logger

	mu      sync.RWMutex
	windows map[string]*window
	stats   map[string]telemetry.SensorStatistics
	trends  map[string]telemetry.TrendMetrics
}

// NewEngine creates an analytics engine. Invalid configuration fails
// construction.
func NewEngine(cfg Config, cat *catalog.Catalog, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("analytics config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:     cfg,
		cat:     cat,
		logger:  logger,
		windows: make(map[string]*window),
		stats:   make(map[string]telemetry.SensorStatistics),
		trends:  make(map[string]telemetry.TrendMetrics),
	}, nil
}

// Process ingests one tick's worth of drained readings: smoothing,
// window append with oldest-first trimming, then a full recompute of
// statistics and trend metrics.
func (e *Engine) Process(readings []telemetry.Reading, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range readings {
		w := e.windows[r.SensorID]
		if w == nil {
			w = &window{}
			e.windows[r.SensorID] = w
		}

		w.raw = append(w.raw, r)

		processed := r
		if meta, ok := e.cat.Lookup(r.SensorID); ok && meta.SmoothingEnabled {
			if !w.seeded {
				w.smoothed = r.Value
				w.seeded = true
			} else {
				w.smoothed = e.cfg.SmoothingAlpha*r.Value + (1-e.cfg.SmoothingAlpha)*w.smoothed
			}
			processed.Value = roundTo(w.smoothed, meta.Precision)
		}
		w.processed = append(w.processed, processed)

		if n := len(w.raw) - e.cfg.MaxDataPoints; n > 0 {
			w.raw = w.raw[n:]
		}
		if n := len(w.processed) - e.cfg.MaxDataPoints; n > 0 {
			w.processed = w.processed[n:]
		}
	}

	e.recompute(now)
}

// Sweep evicts readings older than the cutoff and recomputes analytics
// for the surviving windows. Sensors left with no readings are removed
// entirely.
func (e *Engine) Sweep(cutoff, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, w := range e.windows {
		w.raw = trimBefore(w.raw, cutoff)
		w.processed = trimBefore(w.processed, cutoff)
		if len(w.raw) == 0 && len(w.processed) == 0 {
			delete(e.windows, id)
			delete(e.stats, id)
			delete(e.trends, id)
		}
	}

	e.recompute(now)
}

// recompute rebuilds the statistics and trend maps from the retained
// raw windows. Callers must hold e.mu.
func (e *Engine) recompute(now time.Time) {
	for id, w := range e.windows {
		if len(w.raw) == 0 {
			delete(e.stats, id)
			delete(e.trends, id)
			continue
		}

		values := make([]float64, len(w.raw))
		for i, r := range w.raw {
			values[i] = r.Value
		}

		e.stats[id] = computeStatistics(id, values, now)

		if e.cfg.EnableTrends && len(values) > 10 {
			e.trends[id] = computeTrendMetrics(id, values, e.cfg.MaxDataPoints, now)
		} else {
			delete(e.trends, id)
		}
	}
}

// computeStatistics derives the wholesale-replaced statistics snapshot
// for one sensor window.
func computeStatistics(id string, values []float64, now time.Time) telemetry.SensorStatistics {
	stats := telemetry.SensorStatistics{
		SensorID:  id,
		Current:   values[len(values)-1],
		Min:       values[0],
		Max:       values[0],
		Avg:       mean(values),
		Median:    median(values),
		Count:     len(values),
		Variance:  variance(values),
		Trend:     classifyTrend(values),
		Quality:   classifyQuality(values),
		UpdatedAt: now,
	}
	for _, v := range values {
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
	}
	if len(values) >= 2 {
		stats.ChangeRate = values[len(values)-1] - values[len(values)-2]
	}
	return stats
}

// computeTrendMetrics scores momentum over 5- and 10-sample windows
// (the longer window weighted by its length), volatility as the stdev
// of successive percentage returns, and confidence as retained window
// fill.
func computeTrendMetrics(id string, values []float64, maxRetained int, now time.Time) telemetry.TrendMetrics {
	m5 := windowMomentum(values, 5)
	m10 := windowMomentum(values, 10)
	momentum := (5*m5 + 10*m10) / 15

	metrics := telemetry.TrendMetrics{
		SensorID:   id,
		Direction:  classifyTrend(values),
		Momentum:   momentum,
		Volatility: stdDev(percentReturns(values)),
		Strength:   math.Abs(momentum),
		UpdatedAt:  now,
	}
	if maxRetained > 0 {
		metrics.Confidence = float64(len(values)) / float64(maxRetained)
	}
	return metrics
}

// Statistics returns a copy of the current per-sensor statistics.
func (e *Engine) Statistics() map[string]telemetry.SensorStatistics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]telemetry.SensorStatistics, len(e.stats))
	for id, s := range e.stats {
		out[id] = s
	}
	return out
}

// Trends returns a copy of the current per-sensor trend metrics.
func (e *Engine) Trends() map[string]telemetry.TrendMetrics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]telemetry.TrendMetrics, len(e.trends))
	for id, t := range e.trends {
		out[id] = t
	}
	return out
}

// RawData returns a copy of every retained raw window.
func (e *Engine) RawData() map[string][]telemetry.Reading {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string][]telemetry.Reading, len(e.windows))
	for id, w := range e.windows {
		out[id] = append([]telemetry.Reading(nil), w.raw...)
	}
	return out
}

// ProcessedData returns a copy of every retained smoothed window.
func (e *Engine) ProcessedData() map[string][]telemetry.Reading {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string][]telemetry.Reading, len(e.windows))
	for id, w := range e.windows {
		out[id] = append([]telemetry.Reading(nil), w.processed...)
	}
	return out
}

// trimBefore drops readings with timestamps strictly before the cutoff.
func trimBefore(readings []telemetry.Reading, cutoff time.Time) []telemetry.Reading {
	idx := 0
	for idx < len(readings) && readings[idx].Timestamp.Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return readings
	}
	return append([]telemetry.Reading(nil), readings[idx:]...)
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}
