package parser

import (
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

const commaLog = `DateTime,Iout,Temp (C),Fan,Status,Condition,Empty
2024-03-01 08:00:02,15,20,3,ok,1,
2024-03-01 08:00:00,5,0,1,ok,1,
2024-03-01 08:00:01,15,21,bad,x,1,
2024-03-01 08:00:03,,22,4,ok,1,
`

func floats(t *testing.T, tbl *series.Table, name string) []float64 {
	t.Helper()
	values, err := tbl.Column(name)
	if err != nil {
		t.Fatalf("Column(%s): %v", name, err)
	}
	return rawFloats(values)
}

func rawFloats(values []series.Value) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.NaN()
		if v.Valid {
			out[i] = v.Float
		}
	}
	return out
}

func equalFloats(a, b []float64) bool {
	return slices.EqualFunc(a, b, func(x, y float64) bool {
		return x == y || (math.IsNaN(x) && math.IsNaN(y))
	})
}

func TestParseLogReader(t *testing.T) {
	parsed, err := ParseLogReader(strings.NewReader(commaLog), Options{PadLimit: DefaultPadLimit})
	if err != nil {
		t.Fatalf("ParseLogReader: %v", err)
	}
	tbl := parsed.Table

	if got, want := tbl.Columns, []string{"Iout", "Temp_C", "Fan"}; !slices.Equal(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}
	if tbl.Len() != 4 {
		t.Fatalf("rows = %d, want 4", tbl.Len())
	}
	if err := tbl.Validate(); err != nil {
		t.Errorf("rows not sorted: %v", err)
	}

	tests := []struct {
		col  string
		want []float64
	}{
		{"Iout", []float64{5, 15, 15, 15}},     // trailing gap padded
		{"Temp_C", []float64{21, 21, 20, 22}}, // isolated zero takes the next reading
		{"Fan", []float64{1, 1, 3, 4}},        // non-numeric cell padded over
	}
	for _, tt := range tests {
		if got := floats(t, tbl, tt.col); !equalFloats(got, tt.want) {
			t.Errorf("%s = %v, want %v", tt.col, got, tt.want)
		}
	}

	if !slices.Equal(parsed.MixedColumns, []string{"Fan"}) {
		t.Errorf("mixed columns = %v, want [Fan]", parsed.MixedColumns)
	}
	if len(parsed.GapColumns) != 0 {
		t.Errorf("gap columns = %v, want none", parsed.GapColumns)
	}
}

func TestParseLogReader_NoPadding(t *testing.T) {
	parsed, err := ParseLogReader(strings.NewReader(commaLog), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(parsed.GapColumns, "Iout") {
		t.Errorf("gap columns = %v, want Iout listed", parsed.GapColumns)
	}
	if got := floats(t, parsed.Table, "Iout"); !math.IsNaN(got[3]) {
		t.Errorf("Iout = %v, want trailing gap", got)
	}
}

func TestParseLogReader_DateAndTime(t *testing.T) {
	log := "Date;Time;Vout\n01/03/2024;08:00:00;12,5\n01/03/2024;08:00:10;12\nnot a date;x;1\n"
	parsed, err := ParseLogReader(strings.NewReader(log), Options{PadLimit: DefaultPadLimit})
	if err != nil {
		t.Fatalf("ParseLogReader: %v", err)
	}
	tbl := parsed.Table
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.Len())
	}
	if want := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC); !tbl.Time[0].Equal(want) {
		t.Errorf("time[0] = %v, want %v", tbl.Time[0], want)
	}
	if d := tbl.Time[1].Sub(tbl.Time[0]); d != 10*time.Second {
		t.Errorf("sample spacing = %v, want 10s", d)
	}
	if got := floats(t, tbl, "Vout"); !equalFloats(got, []float64{12.5, 12}) {
		t.Errorf("Vout = %v", got)
	}
	if len(parsed.ParseErrors) != 1 {
		t.Errorf("parse errors = %v, want one skipped row", parsed.ParseErrors)
	}
}

func TestParseLogReader_Errors(t *testing.T) {
	tests := map[string]string{
		"no date column": "A,B\n1,2\n",
		"header only":    "DateTime,A\n",
		"no valid dates": "DateTime,A\nyesterday,1\n",
	}
	for name, log := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseLogReader(strings.NewReader(log), Options{}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseLog_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	if err := os.WriteFile(path, []byte(commaLog), 0o644); err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseLog(path, Options{PadLimit: DefaultPadLimit})
	if err != nil {
		t.Fatalf("ParseLog: %v", err)
	}
	if parsed.Table.Len() != 4 {
		t.Errorf("rows = %d, want 4", parsed.Table.Len())
	}
	if _, err := ParseLog(filepath.Join(t.TempDir(), "missing.csv"), Options{}); err == nil {
		t.Error("missing file: expected an error")
	}
}

func TestBackfillZeros(t *testing.T) {
	in := series.FromFloats([]float64{1, 0, 0, 5, 0})
	got := rawFloats(backfillZeros(in, 1))
	if want := []float64{1, 0, 5, 5, 0}; !equalFloats(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalizeColumnName(t *testing.T) {
	tests := map[string]string{
		" Temp (C) ":    "Temp_C",
		"Vout PM1":      "Vout_PM1",
		"I(out),PM2":    "IoutPM2",
		"Already_Clean": "Already_Clean",
	}
	for in, want := range tests {
		if got := normalizeColumnName(in); got != want {
			t.Errorf("normalizeColumnName(%q) = %q, want %q", in, got, want)
		}
	}
}
