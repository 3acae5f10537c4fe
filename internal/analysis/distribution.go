package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

// BuildDistribution accumulates, for every interval i -> i+1, the elapsed
// time into the bin of values[i].
//
// gate is optional (nil for none). Intervals whose gate sample is missing
// are skipped entirely. Intervals whose value is missing go to the
// Undefined bucket. Values whose bin falls outside [0, Count) are dropped,
// so Total() can be less than the scanned duration.
//
// The bin of v is round((v - Min) / Width) with ties to even.
func BuildDistribution(values, gate []series.Value, ts []time.Duration, bins BinSpec) (Distribution, error) {
	if err := bins.Validate(); err != nil {
		return Distribution{}, err
	}
	if len(values) != len(ts) {
		return Distribution{}, fmt.Errorf("analysis: %d values for %d timestamps: %w", len(values), len(ts), ErrLengthMismatch)
	}
	if gate != nil && len(gate) != len(ts) {
		return Distribution{}, fmt.Errorf("analysis: %d gate samples for %d timestamps: %w", len(gate), len(ts), ErrLengthMismatch)
	}
	if err := series.CheckMonotonicOffsets(ts); err != nil {
		return Distribution{}, err
	}

	d := Distribution{Bins: make([]time.Duration, bins.Count)}
	for i := 0; i+1 < len(ts); i++ {
		if gate != nil && !gate[i].Valid {
			continue
		}
		dt := ts[i+1] - ts[i]
		v := values[i]
		if !v.Valid {
			d.Undefined += dt
			continue
		}
		idx := math.RoundToEven((v.Float - bins.Min) / bins.Width)
		if idx < 0 || idx >= float64(bins.Count) {
			continue
		}
		d.Bins[int(idx)] += dt
	}
	return d, nil
}

// Scanned is the span covered by ts, the upper bound of Distribution.Total.
func Scanned(ts []time.Duration) time.Duration {
	if len(ts) == 0 {
		return 0
	}
	return ts[len(ts)-1] - ts[0]
}
