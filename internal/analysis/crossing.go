package analysis

import (
	"fmt"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

// DetectCrossings scans consecutive sample pairs (i, i+1) against threshold.
//
// An OFF event is recorded at i+1 when values[i] is above threshold and
// values[i+1] is below it or missing. An ON event is recorded at i+1 when
// values[i+1] is above threshold and either values[i] is below it or
// values[i+1] is missing. The missing test of the ON branch looks at i+1,
// not i, so a gap followed by an above-threshold sample does not produce an
// ON event. Readings equal to the threshold are neither above nor below.
func DetectCrossings(values []series.Value, threshold float64) CrossingSet {
	var cs CrossingSet
	if len(values) < 2 {
		return cs
	}
	above := func(v series.Value) bool { return v.Valid && v.Float > threshold }
	below := func(v series.Value) bool { return v.Valid && v.Float < threshold }

	for i := 0; i < len(values)-1; i++ {
		cur, next := values[i], values[i+1]
		if above(cur) && (below(next) || !next.Valid) {
			cs.Off = append(cs.Off, i+1)
		}
		if above(next) && (below(cur) || !next.Valid) {
			cs.On = append(cs.On, i+1)
		}
	}
	return cs
}

// Classify returns the boundary configuration of cs from the order of its
// first and last events only. Gaps and readings equal to the threshold can
// leave two OFF (or two ON) events in a row; that alone is not an error.
func Classify(cs CrossingSet) (BoundaryCase, error) {
	if cs.Empty() {
		return BoundaryNone, nil
	}
	startsOn := cs.Off[0] < cs.On[0]
	endsOn := cs.On[len(cs.On)-1] > cs.Off[len(cs.Off)-1]
	switch {
	case startsOn && endsOn:
		return StartOn, nil
	case startsOn:
		return EndOff, nil
	case endsOn:
		return StartOff, nil
	default:
		return FullyBracketed, nil
	}
}

// minOff is the number of OFF events the formulas of bc read for n ON
// events.
func minOff(bc BoundaryCase, n int) int {
	switch bc {
	case EndOff:
		return n + 1
	case StartOff:
		return n - 1
	default:
		return n
	}
}

// checkPairing fails when the formulas of bc would read past cs.Off.
func checkPairing(bc BoundaryCase, cs CrossingSet) error {
	if bc == BoundaryNone {
		return nil
	}
	if need := minOff(bc, len(cs.On)); len(cs.Off) < need {
		return fmt.Errorf("analysis: %s with %d ON events needs %d OFF events, have %d: %w",
			bc, len(cs.On), need, len(cs.Off), ErrUnbalancedCrossings)
	}
	return nil
}

// checkBounds verifies every crossing indexes into a series of length n.
func checkBounds(cs CrossingSet, n int) error {
	for _, seq := range [][]int{cs.Off, cs.On} {
		if len(seq) == 0 {
			continue
		}
		if seq[0] < 0 || seq[len(seq)-1] >= n {
			return fmt.Errorf("analysis: crossings span [%d, %d] for %d samples: %w", seq[0], seq[len(seq)-1], n, ErrIndexOutOfRange)
		}
	}
	return nil
}
