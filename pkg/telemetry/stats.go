package telemetry

import "time"

// Trend classifies the recent direction of a sensor's value history.
type Trend string

const (
	TrendInsufficientData Trend = "insufficient_data"
	TrendStable           Trend = "stable"
	TrendIncreasing       Trend = "increasing"
	TrendDecreasing       Trend = "decreasing"
)

// Quality classifies signal quality by coefficient of variation.
type Quality string

const (
	QualityInsufficient Quality = "insufficient"
	QualityExcellent    Quality = "excellent"
	QualityGood         Quality = "good"
	QualityFair         Quality = "fair"
	QualityPoor         Quality = "poor"
)

// SensorStatistics is the descriptive-statistics view of one sensor's
// retained window. It is replaced wholesale every analytics tick and
// never partially mutated.
type SensorStatistics struct {
	SensorID   string    `json:"sensor_id"`
	Current    float64   `json:"current"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
	Avg        float64   `json:"avg"`
	Median     float64   `json:"median"`
	Count      int       `json:"count"`
	Variance   float64   `json:"variance"`
	ChangeRate float64   `json:"change_rate"`
	Trend      Trend     `json:"trend"`
	Quality    Quality   `json:"quality"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TrendMetrics carries directional, magnitude and variability measures
// of a sensor's recent value history.
type TrendMetrics struct {
	SensorID   string    `json:"sensor_id"`
	Direction  Trend     `json:"direction"`
	Momentum   float64   `json:"momentum"`   // Weighted % change across sub-windows
	Volatility float64   `json:"volatility"` // Stdev of period-over-period returns, as %
	Strength   float64   `json:"strength"`   // |momentum|
	Confidence float64   `json:"confidence"` // windowSize / maxRetained, 0.0-1.0
	UpdatedAt  time.Time `json:"updated_at"`
}

// AlertLevel is the severity of a threshold alert.
type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Alert records one threshold breach observed at an analytics tick.
type Alert struct {
	ID        string     `json:"id"`
	SensorID  string     `json:"sensor_id"`
	Level     AlertLevel `json:"level"`
	Message   string     `json:"message"`
	Value     float64    `json:"value"`
	Timestamp time.Time  `json:"timestamp"`
}
