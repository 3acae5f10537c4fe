package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

// SecondsPerHour converts accumulated bin seconds to hours in summaries.
const SecondsPerHour = 3600.0

// ThresholdSpec names the channel that drives ON/OFF detection.
type ThresholdSpec struct {
	Channel   string
	Threshold float64
}

// Validate rejects specs that cannot be evaluated.
func (s ThresholdSpec) Validate() error {
	if s.Channel == "" {
		return fmt.Errorf("analysis: threshold spec has no channel: %w", ErrInvalidThreshold)
	}
	if math.IsNaN(s.Threshold) || math.IsInf(s.Threshold, 0) {
		return fmt.Errorf("analysis: threshold %v for %q: %w", s.Threshold, s.Channel, ErrInvalidThreshold)
	}
	return nil
}

// CrossingSet holds the sample indices where a channel switched state.
// Off[k] is the first sample below threshold after an ON stretch, On[k] the
// first sample above threshold after an OFF stretch.
type CrossingSet struct {
	Off []int
	On  []int
}

// Empty reports whether either sequence is empty; no cycle can be bounded.
func (c CrossingSet) Empty() bool {
	return len(c.Off) == 0 || len(c.On) == 0
}

// BoundaryCase is the open/closed configuration of a crossing set at the
// two ends of the stream.
type BoundaryCase int

const (
	// BoundaryNone: at least one crossing sequence is empty.
	BoundaryNone BoundaryCase = iota
	// StartOn: the stream starts and ends ON (first event OFF, last ON).
	StartOn
	// EndOff: the stream starts ON and ends OFF (first and last events OFF).
	EndOff
	// StartOff: the stream starts OFF and ends ON (first and last events ON).
	StartOff
	// FullyBracketed: every ON stretch is closed (first event ON, last OFF).
	FullyBracketed
)

func (b BoundaryCase) String() string {
	switch b {
	case BoundaryNone:
		return "none"
	case StartOn:
		return "start-on"
	case EndOff:
		return "end-off"
	case StartOff:
		return "start-off"
	case FullyBracketed:
		return "fully-bracketed"
	default:
		return fmt.Sprintf("BoundaryCase(%d)", int(b))
	}
}

// CycleResult is the cycle count and cumulative ON time of one channel.
type CycleResult struct {
	Count      int
	ActiveTime time.Duration
}

// Add accumulates another result, e.g. when cumulating several test files.
func (r CycleResult) Add(other CycleResult) CycleResult {
	return CycleResult{Count: r.Count + other.Count, ActiveTime: r.ActiveTime + other.ActiveTime}
}

// BinSpec is the histogram geometry: Count bins of Width starting at Min.
type BinSpec struct {
	Count int
	Width float64
	Min   float64
}

// NewBinSpec derives the bin width from a value range split in count bins.
func NewBinSpec(min, max float64, count int) (BinSpec, error) {
	if count <= 0 {
		return BinSpec{}, fmt.Errorf("analysis: bin count %d: %w", count, ErrInvalidBins)
	}
	spec := BinSpec{Count: count, Width: (max - min) / float64(count), Min: min}
	if err := spec.Validate(); err != nil {
		return BinSpec{}, err
	}
	return spec, nil
}

// Validate rejects zero or non-finite geometry.
func (b BinSpec) Validate() error {
	if b.Count <= 0 {
		return fmt.Errorf("analysis: bin count %d: %w", b.Count, ErrInvalidBins)
	}
	if !(b.Width > 0) || math.IsInf(b.Width, 0) {
		return fmt.Errorf("analysis: bin width %v: %w", b.Width, ErrInvalidBins)
	}
	if math.IsNaN(b.Min) || math.IsInf(b.Min, 0) {
		return fmt.Errorf("analysis: bin minimum %v: %w", b.Min, ErrInvalidBins)
	}
	return nil
}

// Lower returns the lower edge of bin i.
func (b BinSpec) Lower(i int) float64 {
	return b.Min + float64(i)*b.Width
}

// Distribution is a time-weighted histogram. Bins[i] is the time spent with
// the value in bin i; Undefined is the time spent with the value missing.
type Distribution struct {
	Bins      []time.Duration
	Undefined time.Duration
}

// Total is the attributed time: all bins plus the undefined bucket.
func (d Distribution) Total() time.Duration {
	total := d.Undefined
	for _, b := range d.Bins {
		total += b
	}
	return total
}

// Seconds returns the bins in seconds followed by the undefined bucket, the
// row layout used by summaries and exports.
func (d Distribution) Seconds() []float64 {
	out := make([]float64, len(d.Bins)+1)
	for i, b := range d.Bins {
		out[i] = b.Seconds()
	}
	out[len(d.Bins)] = d.Undefined.Seconds()
	return out
}

// Merge adds other bin by bin. Both must share the same bin count.
func (d Distribution) Merge(other Distribution) (Distribution, error) {
	if len(d.Bins) != len(other.Bins) {
		return Distribution{}, fmt.Errorf("analysis: merge %d bins with %d: %w", len(d.Bins), len(other.Bins), ErrInvalidBins)
	}
	out := Distribution{Bins: make([]time.Duration, len(d.Bins)), Undefined: d.Undefined + other.Undefined}
	for i := range d.Bins {
		out.Bins[i] = d.Bins[i] + other.Bins[i]
	}
	return out, nil
}

// Aggregate is the summary row of a distribution: the index-weighted mean
// bin and the total time in hours. Mean is missing when no time was
// accumulated.
type Aggregate struct {
	Mean       series.Value
	TotalHours float64
}

// IndexRange is an inclusive run of sample indices.
type IndexRange struct {
	Start int
	End   int
}

func (r IndexRange) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Channel is a named value sequence handed to the module checker.
type Channel struct {
	Name   string
	Values []series.Value
}

// ModuleFault lists the suspect index ranges of one redundant channel.
type ModuleFault struct {
	Channel       string
	SuspectRanges []IndexRange
}

// SpanResult holds descriptive statistics over a selected sample window.
type SpanResult struct {
	Channel    string
	Mean       series.Value
	Max        series.Value
	Min        series.Value
	PeakToPeak series.Value
}
