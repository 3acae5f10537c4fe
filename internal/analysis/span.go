package analysis

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

// spanGapLimit is the longest run of missing samples bridged before span
// statistics are taken.
const spanGapLimit = 3

// SpanStats describes values[start:end] after zero readings are treated as
// missing and short gaps are bridged linearly. Fields are missing when the
// window holds no reading.
func SpanStats(channel string, values []series.Value, start, end int) (SpanResult, error) {
	if start < 0 || end > len(values) || start >= end {
		return SpanResult{}, fmt.Errorf("analysis: span [%d, %d) over %d samples: %w", start, end, len(values), ErrInvalidSpan)
	}
	filled := series.InterpolateLinear(series.ZeroAsMissing(values), spanGapLimit)
	window := stats.Float64Data(series.Present(filled[start:end]))

	res := SpanResult{Channel: channel}
	if window.Len() == 0 {
		return res, nil
	}
	mean, err := window.Mean()
	if err != nil {
		return SpanResult{}, fmt.Errorf("analysis: span mean of %q: %w", channel, err)
	}
	hi, err := window.Max()
	if err != nil {
		return SpanResult{}, fmt.Errorf("analysis: span max of %q: %w", channel, err)
	}
	lo, err := window.Min()
	if err != nil {
		return SpanResult{}, fmt.Errorf("analysis: span min of %q: %w", channel, err)
	}
	res.Mean = series.Some(mean)
	res.Max = series.Some(hi)
	res.Min = series.Some(lo)
	res.PeakToPeak = series.Some(hi - lo)
	return res, nil
}
