package analysis

import (
	"fmt"
	"time"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

// CleanCycles returns the active-only view of t: timestamps are compacted
// with the crossings of spec.Channel, then rows where that channel is
// missing or below spec.Threshold are dropped.
func CleanCycles(t *series.Table, spec ThresholdSpec, cs CrossingSet) (*series.Table, error) {
	values, err := t.Column(spec.Channel)
	if err != nil {
		return nil, err
	}
	compacted, err := CompactTimeline(cs, t.Offsets())
	if err != nil {
		return nil, fmt.Errorf("analysis: clean %q: %w", spec.Channel, err)
	}

	retimed := &series.Table{
		Time:    make([]time.Time, len(compacted)),
		Columns: t.Columns,
		Data:    t.Data,
	}
	var origin time.Time
	if t.Len() > 0 {
		origin = t.Time[0]
	}
	for i, d := range compacted {
		retimed.Time[i] = origin.Add(d)
	}

	keep := make([]int, 0, len(values))
	for i, v := range values {
		if v.Valid && v.Float >= spec.Threshold {
			keep = append(keep, i)
		}
	}
	return retimed.Select(keep), nil
}
