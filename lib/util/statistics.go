package util

import (
	"fmt"
	"math"
)

// ----------------------------------------------------------------------------
// Summary Statistics
// ----------------------------------------------------------------------------

// Stats summarizes a set of samples (e.g. operations completed per worker).
type Stats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	MinMaxRatio  float64 `json:"min_max_ratio"`
}

// NewStats computes mean, population standard deviation, min, max and the
// min/max ratio of the values. An empty slice yields the zero Stats.
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	s := Stats{Min: values[0], Max: values[0], MinMaxRatio: 1.0}
	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))

	var squares float64
	for _, v := range values {
		squares += (v - s.Mean) * (v - s.Mean)
	}
	s.StdDeviation = math.Sqrt(squares / float64(len(values)))

	if s.Max > 0 {
		s.MinMaxRatio = s.Min / s.Max
	}
	return s
}

// ----------------------------------------------------------------------------
// Fairness
// ----------------------------------------------------------------------------

// DistributionStats rates how evenly work was spread across workers.
type DistributionStats struct {
	Stats
	// DistributionQuality is in [0, 1], 1 meaning every worker did the same amount of work.
	DistributionQuality float64 `json:"distribution_quality"`
}

// NewDistributionStats computes the fairness of the per-worker counts.
// The quality is the mean of (1 - coefficient of variation, capped at 1)
// and the min/max ratio.
func NewDistributionStats(perWorker []float64) DistributionStats {
	stats := NewStats(perWorker)

	var cv float64
	if stats.Mean > 0 {
		cv = stats.StdDeviation / stats.Mean
	}

	return DistributionStats{
		Stats:               stats,
		DistributionQuality: (1.0-math.Min(1.0, cv))*0.5 + stats.MinMaxRatio*0.5,
	}
}

// String formats the stats for the bench report.
func (d DistributionStats) String() string {
	return fmt.Sprintf("min %.0f | max %.0f | mean %.1f | stddev %.1f | quality %.3f",
		d.Min, d.Max, d.Mean, d.StdDeviation, d.DistributionQuality)
}
