package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/user/lifetest_analyzer_go/internal/analysis"
)

// edgeTolerance absorbs the six decimals bin edges are written with.
const edgeTolerance = 1e-6

func hoursToDuration(h float64) time.Duration {
	return time.Duration(math.Round(h * float64(time.Hour)))
}

// ReadDistributionCSV reads back a distribution.csv written with the same
// bins. The mean and hours rows are derived and ignored.
func ReadDistributionCSV(r io.Reader, bins analysis.BinSpec) ([]analysis.ColumnResult, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || records[0][0] != "bin" {
		return nil, fmt.Errorf("distribution csv: missing bin header")
	}
	if len(records) < bins.Count+2 {
		return nil, fmt.Errorf("distribution csv: %d rows for %d bins: %w", len(records)-1, bins.Count, analysis.ErrInvalidBins)
	}

	hdr := records[0]
	cols := make([]analysis.ColumnResult, len(hdr)-1)
	for j := range cols {
		cols[j] = analysis.ColumnResult{
			Name:         hdr[j+1],
			Distribution: analysis.Distribution{Bins: make([]time.Duration, bins.Count)},
		}
	}

	parseRow := func(row []string, set func(j int, d time.Duration)) error {
		for j := range cols {
			h, err := strconv.ParseFloat(row[j+1], 64)
			if err != nil {
				return fmt.Errorf("distribution csv: %s row %q: %w", cols[j].Name, row[0], err)
			}
			set(j, hoursToDuration(h))
		}
		return nil
	}

	for i := 0; i < bins.Count; i++ {
		row := records[1+i]
		edge, err := strconv.ParseFloat(row[0], 64)
		if err != nil || math.Abs(edge-bins.Lower(i)) > edgeTolerance {
			return nil, fmt.Errorf("distribution csv: bin %d edge %q, want %s: %w", i, row[0], ff(bins.Lower(i)), analysis.ErrInvalidBins)
		}
		if err := parseRow(row, func(j int, d time.Duration) { cols[j].Distribution.Bins[i] = d }); err != nil {
			return nil, err
		}
	}

	row := records[1+bins.Count]
	if row[0] != "undefined" {
		return nil, fmt.Errorf("distribution csv: row %q after %d bins, want undefined: %w", row[0], bins.Count, analysis.ErrInvalidBins)
	}
	if err := parseRow(row, func(j int, d time.Duration) { cols[j].Distribution.Undefined = d }); err != nil {
		return nil, err
	}
	return cols, nil
}

// ReadCyclesCSV reads back the per-channel rows of a cycles.csv.
func ReadCyclesCSV(r io.Reader) ([]analysis.CycleRecord, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("cycles csv: empty")
	}
	idx := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		idx[name] = i
	}
	for _, name := range []string{"channel", "threshold", "cycles", "active_seconds"} {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("cycles csv: missing %s column", name)
		}
	}

	out := make([]analysis.CycleRecord, 0, len(records)-1)
	for _, row := range records[1:] {
		threshold, err := strconv.ParseFloat(row[idx["threshold"]], 64)
		if err != nil {
			return nil, fmt.Errorf("cycles csv: threshold of %s: %w", row[idx["channel"]], err)
		}
		count, err := strconv.Atoi(row[idx["cycles"]])
		if err != nil {
			return nil, fmt.Errorf("cycles csv: cycles of %s: %w", row[idx["channel"]], err)
		}
		secs, err := strconv.ParseFloat(row[idx["active_seconds"]], 64)
		if err != nil {
			return nil, fmt.Errorf("cycles csv: active seconds of %s: %w", row[idx["channel"]], err)
		}
		out = append(out, analysis.CycleRecord{
			Spec:   analysis.ThresholdSpec{Channel: row[idx["channel"]], Threshold: threshold},
			Result: analysis.CycleResult{Count: count, ActiveTime: time.Duration(math.Round(secs * float64(time.Second)))},
		})
	}
	return out, nil
}

// ReadCumulation loads the distribution.csv and cycles.csv that ExportCSV
// wrote into dir.
func ReadCumulation(dir string, bins analysis.BinSpec) (analysis.Cumulation, error) {
	c := analysis.Cumulation{Source: dir}

	f, err := os.Open(filepath.Join(dir, DistributionFile))
	if err != nil {
		return c, err
	}
	c.Columns, err = ReadDistributionCSV(f, bins)
	_ = f.Close()
	if err != nil {
		return c, fmt.Errorf("read %s: %w", filepath.Join(dir, DistributionFile), err)
	}

	f, err = os.Open(filepath.Join(dir, CyclesFile))
	if err != nil {
		return c, err
	}
	c.Cycles, err = ReadCyclesCSV(f)
	_ = f.Close()
	if err != nil {
		return c, fmt.Errorf("read %s: %w", filepath.Join(dir, CyclesFile), err)
	}
	return c, nil
}
