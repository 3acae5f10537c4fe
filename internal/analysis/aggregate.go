package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

// WeightedMean returns the index-weighted mean of data over its first
// iterations entries, divided by the sum of all of data, and that sum in
// hours (data is in seconds).
//
// When the sum is zero the mean is missing rather than NaN; callers must
// check Mean.Valid before using it.
func WeightedMean(data []float64, iterations int) (Aggregate, error) {
	if iterations < 0 || iterations > len(data) {
		return Aggregate{}, fmt.Errorf("analysis: %d iterations over %d entries: %w", iterations, len(data), ErrInvalidIterations)
	}
	weights := make([]float64, iterations)
	for i := range weights {
		weights[i] = float64(i)
	}
	total := floats.Sum(data)

	agg := Aggregate{TotalHours: total / SecondsPerHour}
	if total == 0 {
		return agg, nil
	}
	agg.Mean = series.FromFloat(floats.Dot(data[:iterations], weights) / total)
	return agg, nil
}

// Summary is the mean/time row of a distribution. The undefined bucket is
// part of the total time but carries no weight in the mean.
func (d Distribution) Summary() Aggregate {
	agg, _ := WeightedMean(d.Seconds(), len(d.Bins))
	return agg
}

// MeanValue converts a mean bin index back to the value axis.
func (b BinSpec) MeanValue(a Aggregate) series.Value {
	if !a.Mean.Valid {
		return series.Missing()
	}
	return series.Some(b.Min + a.Mean.Float*b.Width)
}
