package analysis

import (
	"time"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

// span is an inclusive index interval of ON time: the stretch contributes
// ts[end]-ts[start] to the compacted timeline.
type span struct {
	start, end int
}

// CompactTimeline rewrites ts so that OFF stretches have zero width. Each
// sample is shifted back by the OFF time accumulated before it; samples
// inside an OFF stretch all land on the instant the stretch began.
//
// The result is non-decreasing and its last value equals ts[0] plus the
// ActiveTime CountCycles reports for the same crossings. With no crossings
// every sample collapses onto ts[0].
func CompactTimeline(cs CrossingSet, ts []time.Duration) ([]time.Duration, error) {
	if err := series.CheckMonotonicOffsets(ts); err != nil {
		return nil, err
	}
	bc, err := Classify(cs)
	if err != nil {
		return nil, err
	}
	if err := checkBounds(cs, len(ts)); err != nil {
		return nil, err
	}
	spans, err := onSpans(bc, cs, len(ts))
	if err != nil {
		return nil, err
	}
	return shiftOut(ts, spans), nil
}

// onSpans lists the ON stretches of each boundary configuration in order.
// Stretches are clipped so they never overlap: one starting before the
// previous end starts at that end, and one ending before its start is
// dropped. Non-alternating crossings (gaps, readings on the threshold) are
// the only source of such stretches.
func onSpans(bc BoundaryCase, cs CrossingSet, n int) ([]span, error) {
	if err := checkPairing(bc, cs); err != nil {
		return nil, err
	}
	off, on := cs.Off, cs.On
	last := n - 1
	var raw []span

	switch bc {
	case StartOn:
		raw = append(raw, span{0, off[0]})
		for i := 0; i < len(on)-1; i++ {
			raw = append(raw, span{on[i], off[i+1]})
		}
		raw = append(raw, span{on[len(on)-1], last})

	case EndOff:
		raw = append(raw, span{0, off[0]})
		for i := 0; i < len(on); i++ {
			raw = append(raw, span{on[i], off[i+1]})
		}

	case StartOff:
		for i := 0; i < len(on)-1; i++ {
			raw = append(raw, span{on[i], off[i]})
		}
		raw = append(raw, span{on[len(on)-1], last})

	case FullyBracketed:
		for i := 0; i < len(on); i++ {
			raw = append(raw, span{on[i], off[i]})
		}
	}

	spans := raw[:0]
	for _, sp := range raw {
		if k := len(spans); k > 0 && sp.start < spans[k-1].end {
			sp.start = spans[k-1].end
		}
		if sp.end < sp.start {
			continue
		}
		spans = append(spans, sp)
	}
	return spans, nil
}

// shiftOut subtracts the running OFF offset from every sample.
func shiftOut(ts []time.Duration, spans []span) []time.Duration {
	out := make([]time.Duration, len(ts))
	if len(ts) == 0 {
		return out
	}
	var offset time.Duration
	edge := 0 // index where the current OFF stretch began
	for _, sp := range spans {
		for k := edge; k < sp.start; k++ {
			out[k] = ts[edge] - offset
		}
		offset += ts[sp.start] - ts[edge]
		for k := sp.start; k <= sp.end; k++ {
			out[k] = ts[k] - offset
		}
		edge = sp.end
	}
	for k := edge; k < len(ts); k++ {
		out[k] = ts[edge] - offset
	}
	return out
}
