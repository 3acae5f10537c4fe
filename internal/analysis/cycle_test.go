package analysis

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

func TestCountCycles(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		wantCase   BoundaryCase
		wantCount  int
		wantActive time.Duration
	}{
		{"fully bracketed", []float64{5, 5, 15, 15, 5, 5}, FullyBracketed, 1, 2 * time.Second},
		{"starts and ends on", []float64{15, 15, 5, 5, 15, 15}, StartOn, 2, 3 * time.Second},
		{"starts on, ends off", []float64{15, 5, 15, 5}, EndOff, 2, 2 * time.Second},
		{"starts off, ends on", []float64{5, 15, 5, 15, 15}, StartOff, 2, 2 * time.Second},
		{"all below", []float64{1, 2, 3, 4, 5, 6}, BoundaryNone, 0, 0},
		{"two bracketed cycles", []float64{5, 15, 15, 5, 15, 5}, FullyBracketed, 2, 3 * time.Second},
		{"gap inside ON stretch", []float64{15, nan, 15, 5, 15}, StartOn, 2, 1 * time.Second},
		{"threshold readings hide ON", []float64{5, 10, 15, 5, 10, 15, 5, 15}, StartOn, 2, 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := DetectCrossings(vals(tt.values...), 10)
			bc, err := Classify(cs)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if bc != tt.wantCase {
				t.Errorf("case = %v, want %v", bc, tt.wantCase)
			}
			res, err := CountCycles(cs, everySecond(len(tt.values)))
			if err != nil {
				t.Fatalf("CountCycles: %v", err)
			}
			if res.Count != tt.wantCount {
				t.Errorf("count = %d, want %d", res.Count, tt.wantCount)
			}
			if res.ActiveTime != tt.wantActive {
				t.Errorf("active = %v, want %v", res.ActiveTime, tt.wantActive)
			}
		})
	}
}

func TestCountCycles_Errors(t *testing.T) {
	cs := CrossingSet{Off: []int{4}, On: []int{2}}

	ts := everySecond(6)
	ts[3], ts[4] = ts[4], ts[3]
	if _, err := CountCycles(cs, ts); !errors.Is(err, ErrNotMonotonic) {
		t.Errorf("unsorted timestamps: got %v, want ErrNotMonotonic", err)
	}

	if _, err := CountCycles(CrossingSet{Off: []int{9}, On: []int{2}}, everySecond(6)); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("crossing past end: got %v, want ErrIndexOutOfRange", err)
	}
}

func TestCountCycles_ClipsStretches(t *testing.T) {
	tests := []struct {
		name       string
		cs         CrossingSet
		wantCount  int
		wantActive time.Duration
		wantEnd    time.Duration
	}{
		// Span {4,3} ends before it starts and is dropped.
		{"inverted stretch", CrossingSet{Off: []int{1, 3, 5}, On: []int{4}}, 2, time.Second, time.Second},
		// Span {2,5} overlaps {1,4} and is clipped to {4,5}.
		{"overlapping stretches", CrossingSet{Off: []int{4, 5}, On: []int{1, 2}}, 2, 4 * time.Second, 4 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := everySecond(6)
			res, err := CountCycles(tt.cs, ts)
			if err != nil {
				t.Fatalf("CountCycles: %v", err)
			}
			if res.Count != tt.wantCount || res.ActiveTime != tt.wantActive {
				t.Errorf("got %+v, want count %d active %v", res, tt.wantCount, tt.wantActive)
			}
			compacted, err := CompactTimeline(tt.cs, series.Offsets(ts))
			if err != nil {
				t.Fatalf("CompactTimeline: %v", err)
			}
			if got := compacted[len(compacted)-1]; got != tt.wantEnd {
				t.Errorf("compacted end = %v, want %v", got, tt.wantEnd)
			}
		})
	}
}

func TestCycleResult_Add(t *testing.T) {
	got := CycleResult{Count: 2, ActiveTime: time.Hour}.Add(CycleResult{Count: 3, ActiveTime: time.Minute})
	want := CycleResult{Count: 5, ActiveTime: time.Hour + time.Minute}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestCompactTimeline(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []time.Duration // in seconds
	}{
		{"fully bracketed", []float64{5, 5, 15, 15, 5, 5}, []time.Duration{0, 0, 0, 1, 2, 2}},
		{"starts and ends on", []float64{15, 15, 5, 5, 15, 15}, []time.Duration{0, 1, 2, 2, 2, 3}},
		{"starts on, ends off", []float64{15, 5, 15, 5}, []time.Duration{0, 1, 1, 2}},
		{"starts off, ends on", []float64{5, 15, 5, 15, 15}, []time.Duration{0, 0, 1, 1, 2}},
		{"no crossings", []float64{1, 2, 3}, []time.Duration{0, 0, 0}},
		{"gap inside ON stretch", []float64{15, nan, 15, 5, 15}, []time.Duration{0, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := DetectCrossings(vals(tt.values...), 10)
			got, err := CompactTimeline(cs, series.Offsets(everySecond(len(tt.values))))
			if err != nil {
				t.Fatalf("CompactTimeline: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i]*time.Second {
					t.Errorf("[%d] = %v, want %v", i, got[i], tt.want[i]*time.Second)
				}
			}
		})
	}
}

// The compactor and the cycle accountant must report the same active time,
// including for crossings broken up by gaps and readings on the threshold.
func TestCompactTimeline_AgreesWithCountCycles(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 500; trial++ {
		n := 2 + rng.Intn(80)
		data := make([]float64, n)
		sec := make([]float64, n)
		at := float64(rng.Intn(100))
		for i := range data {
			if r := rng.Intn(24); r < 20 {
				data[i] = float64(r)
			} else {
				data[i] = nan
			}
			sec[i] = at
			at += float64(1 + rng.Intn(5))
		}
		ts := secondsAt(sec...)
		offsets := series.Offsets(ts)
		cs := DetectCrossings(vals(data...), 10)

		res, err := CountCycles(cs, ts)
		compacted, cerr := CompactTimeline(cs, offsets)
		if errors.Is(err, ErrUnbalancedCrossings) {
			if !errors.Is(cerr, ErrUnbalancedCrossings) {
				t.Fatalf("trial %d: CompactTimeline accepted crossings CountCycles rejected: %v", trial, cerr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("trial %d: CountCycles: %v", trial, err)
		}
		if cerr != nil {
			t.Fatalf("trial %d: CompactTimeline: %v", trial, cerr)
		}
		if err := series.CheckMonotonicOffsets(compacted); err != nil {
			t.Fatalf("trial %d: compacted timeline not monotonic: %v", trial, err)
		}
		if got, want := compacted[n-1], offsets[0]+res.ActiveTime; got != want {
			t.Fatalf("trial %d: compacted end %v, want %v (data %v)", trial, got, want, data)
		}
		if res.ActiveTime > offsets[n-1]-offsets[0] {
			t.Fatalf("trial %d: active %v exceeds scanned %v", trial, res.ActiveTime, offsets[n-1]-offsets[0])
		}
	}
}

func TestCompactTimeline_Errors(t *testing.T) {
	if _, err := CompactTimeline(CrossingSet{}, []time.Duration{0, 2, 1}); !errors.Is(err, ErrNotMonotonic) {
		t.Errorf("got %v, want ErrNotMonotonic", err)
	}
	if _, err := CompactTimeline(CrossingSet{Off: []int{5}, On: []int{1}}, []time.Duration{0, 1, 2}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("got %v, want ErrIndexOutOfRange", err)
	}
}
