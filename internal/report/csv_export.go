package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/user/lifetest_analyzer_go/internal/analysis"
)

const (
	DistributionFile = "distribution.csv"
	CyclesFile       = "cycles.csv"
)

func ff(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// fh writes bin hours at full precision so a cumulated export reads back
// without drift.
func fh(d time.Duration) string { return strconv.FormatFloat(d.Hours(), 'f', -1, 64) }

// WriteDistributionCSV writes one row per bin (lower edge, hours per column)
// followed by the undefined, mean and total-hours rows.
func WriteDistributionCSV(w io.Writer, res *analysis.Results) error {
	cw := csv.NewWriter(w)

	hdr := make([]string, 0, len(res.Columns)+1)
	hdr = append(hdr, "bin")
	for _, col := range res.Columns {
		hdr = append(hdr, col.Name)
	}
	if err := cw.Write(hdr); err != nil {
		return err
	}

	for i := 0; i < res.Bins.Count; i++ {
		row := []string{ff(res.Bins.Lower(i))}
		for _, col := range res.Columns {
			row = append(row, fh(col.Distribution.Bins[i]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	undefined := []string{"undefined"}
	mean := []string{"mean"}
	total := []string{"hours"}
	for _, col := range res.Columns {
		undefined = append(undefined, fh(col.Distribution.Undefined))
		mean = append(mean, formatValue(res.Bins.MeanValue(col.Summary), 6))
		total = append(total, ff(col.Summary.TotalHours))
	}
	for _, row := range [][]string{undefined, mean, total} {
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Header of cycles.csv, also used to read it back.
var cyclesHeader = []string{"channel", "threshold", "boundary", "cycles", "active_time", "active_seconds", "active_rows"}

// WriteCyclesCSV writes one row per counted channel. active_rows is only
// filled for the channel that cleaned the log.
func WriteCyclesCSV(w io.Writer, res *analysis.Results) error {
	cw := csv.NewWriter(w)
	rows := [][]string{cyclesHeader}
	for _, rec := range res.Cycles {
		activeRows := ""
		if rec.Spec == res.Cycle.Spec {
			activeRows = strconv.Itoa(res.ActiveRows)
		}
		rows = append(rows, []string{
			rec.Spec.Channel,
			ff(rec.Spec.Threshold),
			rec.Boundary.String(),
			strconv.Itoa(rec.Result.Count),
			FormatHMS(rec.Result.ActiveTime),
			ff(rec.Result.ActiveTime.Seconds()),
			activeRows,
		})
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// ExportCSV writes distribution.csv and cycles.csv into dir and returns
// their paths.
func ExportCSV(dir string, res *analysis.Results) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	writers := []struct {
		name  string
		write func(io.Writer, *analysis.Results) error
	}{
		{DistributionFile, WriteDistributionCSV},
		{CyclesFile, WriteCyclesCSV},
	}
	paths := make([]string, 0, len(writers))
	for _, wr := range writers {
		path := filepath.Join(dir, wr.name)
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		if err := wr.write(f, res); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
