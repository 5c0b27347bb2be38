package analytics

import (
	"math"
	"sort"

	"github.com/HerbHall/revsense/pkg/telemetry"
)

// Classification thresholds for trend and quality scoring.
const (
	trendMinSamples   = 5    // Below this, trend is insufficient_data
	trendStablePct    = 2.0  // |% change| under this is stable
	qualityMinSamples = 3    // Below this, quality is insufficient
	cvExcellent       = 0.1  // Coefficient of variation bounds
	cvGood            = 0.2
	cvFair            = 0.4
)

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// variance returns the population variance. Windows shorter than two
// samples have no spread, so zero is returned rather than dividing by
// the window length.
func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	return math.Sqrt(variance(values))
}

// classifyTrend compares the average of the most recent five samples
// against the average of the five before them. Fewer than five samples
// is insufficient data; a relative change under trendStablePct is
// stable.
func classifyTrend(values []float64) telemetry.Trend {
	n := len(values)
	if n < trendMinSamples {
		return telemetry.TrendInsufficientData
	}

	recent := mean(values[n-trendMinSamples:])
	olderStart := n - 2*trendMinSamples
	if olderStart < 0 {
		olderStart = 0
	}
	older := values[olderStart : n-trendMinSamples]
	if len(older) == 0 {
		return telemetry.TrendStable
	}

	olderAvg := mean(older)
	if olderAvg == 0 {
		return telemetry.TrendStable
	}

	pct := (recent - olderAvg) / math.Abs(olderAvg) * 100
	switch {
	case math.Abs(pct) < trendStablePct:
		return telemetry.TrendStable
	case pct > 0:
		return telemetry.TrendIncreasing
	default:
		return telemetry.TrendDecreasing
	}
}

// classifyQuality scores signal quality by coefficient of variation
// (stdev over mean). A zero mean has no meaningful CV and maps to
// insufficient, as do windows under qualityMinSamples.
func classifyQuality(values []float64) telemetry.Quality {
	if len(values) < qualityMinSamples {
		return telemetry.QualityInsufficient
	}
	m := mean(values)
	if m == 0 {
		return telemetry.QualityInsufficient
	}
	cv := stdDev(values) / math.Abs(m)
	switch {
	case cv < cvExcellent:
		return telemetry.QualityExcellent
	case cv < cvGood:
		return telemetry.QualityGood
	case cv < cvFair:
		return telemetry.QualityFair
	default:
		return telemetry.QualityPoor
	}
}

// percentReturns computes successive period-over-period percentage
// changes. Zero predecessors are skipped to avoid division by zero.
func percentReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 {
			continue
		}
		returns = append(returns, (values[i]-prev)/math.Abs(prev)*100)
	}
	return returns
}

// windowMomentum is the average period-over-period percentage change
// across the last n samples.
func windowMomentum(values []float64, n int) float64 {
	if n > len(values) {
		n = len(values)
	}
	return mean(percentReturns(values[len(values)-n:]))
}
