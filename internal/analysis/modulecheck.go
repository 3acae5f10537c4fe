package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

// zeroWindow is the run of consecutive zero readings that confirms a
// channel really dropped out rather than glitched.
const zeroWindow = 10

// DefaultModuleMatch selects the per-module output current columns, logged
// in groups of three redundant sensors.
const DefaultModuleMatch = "Iout_PM"

// CheckModule compares three channels that should track each other.
//
// At index i a pair diverges when its readings, rounded to the nearest ten,
// differ both at i and at i+lookahead. When channel a diverges from b or
// from c, each channel whose next zeroWindow samples are all zero is marked
// suspect at i. Suspect indices are then folded into contiguous ranges.
// Only channels with at least one range are returned, in argument order.
func CheckModule(a, b, c Channel, lookahead int) ([]ModuleFault, error) {
	if lookahead < 0 {
		return nil, fmt.Errorf("analysis: lookahead %d: %w", lookahead, ErrInvalidLookahead)
	}
	n := len(a.Values)
	if len(b.Values) != n || len(c.Values) != n {
		return nil, fmt.Errorf("analysis: module %s/%s/%s has %d/%d/%d samples: %w",
			a.Name, b.Name, c.Name, n, len(b.Values), len(c.Values), ErrLengthMismatch)
	}

	channels := [3]Channel{a, b, c}
	var suspect [3][]int
	end := min(n-zeroWindow, n-lookahead)
	for i := 0; i < end; i++ {
		ab := diverges(a.Values, b.Values, i) && diverges(a.Values, b.Values, i+lookahead)
		ac := diverges(a.Values, c.Values, i) && diverges(a.Values, c.Values, i+lookahead)
		if !ab && !ac {
			continue
		}
		for k, ch := range channels {
			if zeroesFrom(ch.Values, i) {
				suspect[k] = append(suspect[k], i)
			}
		}
	}

	var faults []ModuleFault
	for k, ch := range channels {
		if len(suspect[k]) == 0 {
			continue
		}
		faults = append(faults, ModuleFault{Channel: ch.Name, SuspectRanges: collapseRanges(suspect[k])})
	}
	return faults, nil
}

// CheckModules runs CheckModule on every consecutive triplet of columns
// whose name contains match. A trailing incomplete group is ignored.
func CheckModules(t *series.Table, match string, lookahead int) ([]ModuleFault, error) {
	if match == "" {
		match = DefaultModuleMatch
	}
	var cols []string
	for _, name := range t.Columns {
		if strings.Contains(name, match) {
			cols = append(cols, name)
		}
	}

	var faults []ModuleFault
	for g := 0; g+3 <= len(cols); g += 3 {
		var group [3]Channel
		for k := range group {
			values, err := t.Column(cols[g+k])
			if err != nil {
				return nil, err
			}
			group[k] = Channel{Name: cols[g+k], Values: values}
		}
		found, err := CheckModule(group[0], group[1], group[2], lookahead)
		if err != nil {
			return nil, err
		}
		faults = append(faults, found...)
	}
	return faults, nil
}

func diverges(x, y []series.Value, i int) bool {
	if !x[i].Valid || !y[i].Valid {
		return true
	}
	return roundTens(x[i].Float) != roundTens(y[i].Float)
}

// roundTens rounds to the nearest multiple of ten, ties to even.
func roundTens(v float64) float64 {
	return math.RoundToEven(v/10) * 10
}

func zeroesFrom(values []series.Value, i int) bool {
	for j := 0; j < zeroWindow; j++ {
		v := values[i+j]
		if !v.Valid || v.Float != 0 {
			return false
		}
	}
	return true
}

// collapseRanges folds ascending indices into inclusive runs.
func collapseRanges(idx []int) []IndexRange {
	if len(idx) == 0 {
		return nil
	}
	ranges := []IndexRange{{Start: idx[0], End: idx[0]}}
	for _, i := range idx[1:] {
		cur := &ranges[len(ranges)-1]
		if i == cur.End+1 {
			cur.End = i
			continue
		}
		ranges = append(ranges, IndexRange{Start: i, End: i})
	}
	return ranges
}
