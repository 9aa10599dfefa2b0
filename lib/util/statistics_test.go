package util

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewStats(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		if s := NewStats(nil); s != (Stats{}) {
			t.Errorf("Expected zero stats, got %+v", s)
		}
	})

	t.Run("Values", func(t *testing.T) {
		s := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
		if s.Min != 2 || s.Max != 9 {
			t.Errorf("Expected min 2 and max 9, got %v and %v", s.Min, s.Max)
		}
		if !almostEqual(s.Mean, 5) {
			t.Errorf("Expected mean 5, got %v", s.Mean)
		}
		if !almostEqual(s.StdDeviation, 2) {
			t.Errorf("Expected standard deviation 2, got %v", s.StdDeviation)
		}
		if !almostEqual(s.MinMaxRatio, 2.0/9.0) {
			t.Errorf("Expected min/max ratio 2/9, got %v", s.MinMaxRatio)
		}
	})

	t.Run("AllZero", func(t *testing.T) {
		s := NewStats([]float64{0, 0})
		if s.MinMaxRatio != 1 {
			t.Errorf("Expected min/max ratio 1 for all zero values, got %v", s.MinMaxRatio)
		}
	})
}

func TestNewDistributionStats(t *testing.T) {
	even := NewDistributionStats([]float64{100, 100, 100, 100})
	if !almostEqual(even.DistributionQuality, 1) {
		t.Errorf("Expected quality 1 for an even distribution, got %v", even.DistributionQuality)
	}

	skewed := NewDistributionStats([]float64{1, 1, 1, 1000})
	if skewed.DistributionQuality >= even.DistributionQuality {
		t.Errorf("Expected skewed distribution to rate lower, got %v", skewed.DistributionQuality)
	}
	if skewed.DistributionQuality < 0 || skewed.DistributionQuality > 1 {
		t.Errorf("Expected quality in [0, 1], got %v", skewed.DistributionQuality)
	}

	if even.String() == "" {
		t.Errorf("Expected a non-empty report")
	}
}

func TestGenerateSeed(t *testing.T) {
	if GenerateSeed() == GenerateSeed() {
		t.Errorf("Expected two seeds to differ")
	}
}
