package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

var nan = math.NaN()

var testOrigin = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func vals(data ...float64) []series.Value { return series.FromFloats(data) }

// secondsAt returns absolute timestamps at the given second offsets.
func secondsAt(sec ...float64) []time.Time {
	ts := make([]time.Time, len(sec))
	for i, s := range sec {
		ts[i] = testOrigin.Add(time.Duration(s * float64(time.Second)))
	}
	return ts
}

// everySecond returns n timestamps one second apart.
func everySecond(n int) []time.Time {
	sec := make([]float64, n)
	for i := range sec {
		sec[i] = float64(i)
	}
	return secondsAt(sec...)
}

// buildTable assembles a table with one-second rows; columns are added in
// the order given by names.
func buildTable(t *testing.T, names []string, cols map[string][]float64) *series.Table {
	t.Helper()
	tbl := series.NewTable()
	tbl.Time = everySecond(len(cols[names[0]]))
	for _, name := range names {
		if err := tbl.AddColumn(name, series.FromFloats(cols[name])); err != nil {
			t.Fatalf("AddColumn(%s): %v", name, err)
		}
	}
	return tbl
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
