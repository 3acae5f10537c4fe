package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

// normalizeColumnName strips the characters the loggers put in headers so
// names are usable as identifiers.
func normalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, " ", "_")
	for _, c := range []string{"(", ")", ","} {
		name = strings.ReplaceAll(name, c, "")
	}
	return name
}

// detectDelimiter picks the separator from the header line.
func detectDelimiter(header string) rune {
	best, bestCount := ',', strings.Count(header, ",")
	for _, c := range []rune{'\t', ';'} {
		if n := strings.Count(header, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

var errNoTime = errors.New("no time cell")

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseLog reads a delimited sensor log from filepath and normalizes it.
func ParseLog(filepath string, opts Options) (*ParsedLog, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()
	return ParseLogReader(file, opts)
}

// ParseLogReader normalizes a delimited sensor log:
//   - header names are cleaned (spaces to '_', no parentheses or commas)
//   - the timestamp comes from "DateTime", or from "Date" (plus "Time" when
//     present); rows are sorted by it
//   - bookkeeping columns and all-missing columns are dropped
//   - non-numeric cells become missing; isolated zeros take the next reading
//   - gaps up to opts.PadLimit samples are forward filled
func ParseLogReader(r io.Reader, opts Options) (*ParsedLog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read log data: %w", err)
	}
	text := string(raw)
	headerLine, _, _ := strings.Cut(text, "\n")

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = detectDelimiter(headerLine)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read log data: %w", err)
	}
	if len(allRows) < 2 {
		return nil, fmt.Errorf("log has no data rows")
	}

	parsed := NewParsedLog()
	header := make([]string, len(allRows[0]))
	colIndex := make(map[string]int, len(header))
	for i, h := range allRows[0] {
		header[i] = normalizeColumnName(h)
		colIndex[header[i]] = i
	}

	dateCol, hasDate := colIndex["DateTime"]
	timeCol, hasTime := -1, false
	if !hasDate {
		dateCol, hasDate = colIndex["Date"]
		timeCol, hasTime = colIndex["Time"]
	}
	if !hasDate {
		return nil, fmt.Errorf("log has neither a DateTime nor a Date column")
	}

	type row struct {
		at    time.Time
		cells []string
	}
	rows := make([]row, 0, len(allRows)-1)
	for rowIdx, cells := range allRows[1:] {
		if len(cells) == 0 || (len(cells) == 1 && strings.TrimSpace(cells[0]) == "") {
			continue
		}
		if dateCol >= len(cells) {
			parsed.ParseErrors = append(parsed.ParseErrors, fmt.Sprintf("Warning: row %d has no date cell, skipped.", rowIdx+2))
			continue
		}
		stamp := cells[dateCol]
		var at time.Time
		err := errNoTime
		if hasTime && timeCol < len(cells) {
			at, err = parseDate(stamp + " " + cells[timeCol])
		}
		if err != nil {
			at, err = parseDate(stamp)
		}
		if err != nil {
			parsed.ParseErrors = append(parsed.ParseErrors, fmt.Sprintf("Warning: row %d: %v, skipped.", rowIdx+2, err))
			continue
		}
		rows = append(rows, row{at: at, cells: cells})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("log has no rows with a valid date")
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })

	table := parsed.Table
	table.Time = make([]time.Time, len(rows))
	for i, rw := range rows {
		table.Time[i] = rw.at
	}

	for colIdx, name := range header {
		if colIdx == dateCol || colIdx == timeCol || name == "" || name == "DateTime" || name == "Date" || slices.Contains(droppedColumns, name) {
			continue
		}
		values := make([]series.Value, len(rows))
		mixed, anyValid := false, false
		for i, rw := range rows {
			if colIdx >= len(rw.cells) {
				continue
			}
			cell := strings.TrimSpace(rw.cells[colIdx])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.Replace(cell, ",", ".", 1), 64)
			if err != nil {
				mixed = true
				continue
			}
			values[i] = series.FromFloat(v)
			anyValid = anyValid || values[i].Valid
		}
		if !anyValid {
			continue
		}
		if mixed {
			parsed.MixedColumns = append(parsed.MixedColumns, name)
		}
		values = series.PadForward(backfillZeros(values, zeroBackfillLimit), opts.PadLimit)
		if slices.ContainsFunc(values, func(v series.Value) bool { return !v.Valid }) {
			parsed.GapColumns = append(parsed.GapColumns, name)
		}
		if err := table.AddColumn(name, values); err != nil {
			parsed.ParseErrors = append(parsed.ParseErrors, fmt.Sprintf("Warning: column %q skipped: %v", name, err))
		}
	}
	return parsed, nil
}

// backfillZeros replaces the last limit zeros of every zero run with the
// reading that follows the run. Runs at the end of the log are kept.
func backfillZeros(values []series.Value, limit int) []series.Value {
	out := make([]series.Value, len(values))
	copy(out, values)
	isZero := func(v series.Value) bool { return v.Valid && v.Float == 0 }
	for i := 0; i < len(values); {
		if !isZero(values[i]) {
			i++
			continue
		}
		j := i
		for j < len(values) && isZero(values[j]) {
			j++
		}
		if j < len(values) && values[j].Valid {
			for k := max(i, j-limit); k < j; k++ {
				out[k] = values[j]
			}
		}
		i = j
	}
	return out
}
