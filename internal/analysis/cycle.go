package analysis

import (
	"time"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

// CountCycles integrates the ON time and counts the cycles bounded by cs.
// Partial cycles at the start and end of the stream count as whole cycles
// and contribute the time up to the stream edge.
//
// A crossing set with an empty sequence yields the zero result. ON stretches
// that end before they start, or overlap the previous stretch, are clipped
// (see onSpans), so ActiveTime never exceeds the scanned span.
func CountCycles(cs CrossingSet, ts []time.Time) (CycleResult, error) {
	if err := series.CheckMonotonic(ts); err != nil {
		return CycleResult{}, err
	}
	bc, err := Classify(cs)
	if err != nil {
		return CycleResult{}, err
	}
	if bc == BoundaryNone {
		return CycleResult{}, nil
	}
	if err := checkBounds(cs, len(ts)); err != nil {
		return CycleResult{}, err
	}
	spans, err := onSpans(bc, cs, len(ts))
	if err != nil {
		return CycleResult{}, err
	}

	res := CycleResult{Count: cycleCount(bc, len(cs.On))}
	for _, sp := range spans {
		res.ActiveTime += ts[sp.end].Sub(ts[sp.start])
	}
	return res, nil
}

// cycleCount is the number of cycles bounded by on ON events: open stretches
// at either edge of the stream count once each.
func cycleCount(bc BoundaryCase, on int) int {
	switch bc {
	case StartOn, EndOff:
		return on + 1
	case StartOff, FullyBracketed:
		return on
	default:
		return 0
	}
}
