package analysis

import (
	"context"
	"errors"
	"testing"
	"time"
)

// lifeTestTable is a six second log with one bracketed ON stretch on
// Iout (rows 1-4) and a module column gated by Iout_PM1.
func lifeTestTable(t *testing.T) (names []string, cols map[string][]float64) {
	t.Helper()
	names = []string{"Iout", "Temp", "Tinlet_PM1", "Iout_PM1"}
	cols = map[string][]float64{
		"Iout":       {5, 15, 15, 15, 15, 5},
		"Temp":       {0, 20, 20, 30, 30, 0},
		"Tinlet_PM1": {25, 25, 25, 25, 25, 25},
		"Iout_PM1":   {0, 5, 0, 5, 5, 0},
	}
	return names, cols
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	names, cols := lifeTestTable(t)
	s := NewSession(Options{})
	if _, err := s.Import(buildTable(t, names, cols)); err != nil {
		t.Fatalf("Import: %v", err)
	}
	return s
}

func TestCleanCycles(t *testing.T) {
	names, cols := lifeTestTable(t)
	tbl := buildTable(t, names, cols)
	spec := ThresholdSpec{Channel: "Iout", Threshold: 10}
	cs := DetectCrossings(tbl.Data["Iout"], spec.Threshold)

	lt, err := CleanCycles(tbl, spec, cs)
	if err != nil {
		t.Fatalf("CleanCycles: %v", err)
	}
	if lt.Len() != 4 {
		t.Fatalf("rows = %d, want 4", lt.Len())
	}
	for i, at := range lt.Time {
		if want := testOrigin.Add(time.Duration(i) * time.Second); !at.Equal(want) {
			t.Errorf("time[%d] = %v, want %v", i, at, want)
		}
	}
	temp, _ := lt.Column("Temp")
	if temp[0].Float != 20 || temp[3].Float != 30 {
		t.Errorf("Temp = %v", temp)
	}
	if tbl.Len() != 6 {
		t.Error("CleanCycles modified its input")
	}
}

func TestSession_ImportAndFindCycles(t *testing.T) {
	s := newTestSession(t)
	if s.ID() == "" {
		t.Fatal("session has no ID after import")
	}

	rec, err := s.FindCycles(ThresholdSpec{Channel: "Iout", Threshold: 10})
	if err != nil {
		t.Fatalf("FindCycles: %v", err)
	}
	if rec.Boundary != FullyBracketed || rec.Result.Count != 1 || rec.Result.ActiveTime != 4*time.Second {
		t.Errorf("record = %+v", rec)
	}

	if _, err := s.FindCycles(ThresholdSpec{Channel: "nope", Threshold: 10}); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("unknown channel: got %v, want ErrUnknownChannel", err)
	}
	if _, err := s.FindCycles(ThresholdSpec{Channel: "Iout"}); err != nil {
		t.Errorf("zero threshold is valid: %v", err)
	}

	first := s.ID()
	names, cols := lifeTestTable(t)
	if _, err := s.Import(buildTable(t, names, cols)); err != nil {
		t.Fatal(err)
	}
	if s.ID() == first {
		t.Error("re-import kept the old session ID")
	}
}

func TestSession_DistributionsBeforeClean(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Distributions(context.Background(), []DistributionJob{{Column: "Temp"}}, BinSpec{Count: 5, Width: 10})
	if err == nil {
		t.Fatal("expected an error before Clean")
	}
}

func TestSession_Analyze(t *testing.T) {
	s := newTestSession(t)
	bins, err := NewBinSpec(0, 50, 5)
	if err != nil {
		t.Fatal(err)
	}
	req := Request{
		Cycles: []ThresholdSpec{
			{Channel: "Iout_PM1", Threshold: 2},
			{Channel: "Iout", Threshold: 10},
		},
		Clean:   "Iout",
		Columns: []string{"Temp", "Tinlet_PM1"},
		Bins:    bins,
		Gates:   GateRule{Prefixes: DefaultGatePrefixes, ChannelPrefix: DefaultGateChannelPrefix},
		Span:    &SpanRequest{Start: 0, End: 6, Columns: []string{"Temp"}},
	}

	res, err := s.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.SessionID != s.ID() || res.ActiveRows != 4 || res.Scanned != 3*time.Second {
		t.Errorf("session %q rows %d scanned %v", res.SessionID, res.ActiveRows, res.Scanned)
	}
	if res.Cycle.Spec.Channel != "Iout" || res.Cycle.Result.Count != 1 {
		t.Errorf("clean record = %+v", res.Cycle)
	}
	// Iout_PM1 [0,5,0,5,5,0] at threshold 2: ON at 1 and 3, OFF at 2 and 5.
	if len(res.Cycles) != 2 || res.Cycles[0].Spec.Channel != "Iout_PM1" || res.Cycles[0].Result.Count != 2 || res.Cycles[0].Result.ActiveTime != 3*time.Second {
		t.Errorf("cycles = %+v", res.Cycles)
	}
	if len(res.Columns) != 2 {
		t.Fatalf("columns = %d, want 2", len(res.Columns))
	}

	temp := res.Columns[0]
	if temp.Gate != "" {
		t.Errorf("Temp gate = %q, want none", temp.Gate)
	}
	if temp.Distribution.Bins[2] != 2*time.Second || temp.Distribution.Bins[3] != time.Second {
		t.Errorf("Temp bins = %v", temp.Distribution.Bins)
	}
	mv := bins.MeanValue(temp.Summary)
	if !mv.Valid || !almostEqual(mv.Float, 70.0/3, 1e-9) {
		t.Errorf("Temp mean value = %+v, want 23.33", mv)
	}

	inlet := res.Columns[1]
	if inlet.Gate != "Iout_PM1" {
		t.Errorf("Tinlet gate = %q, want Iout_PM1", inlet.Gate)
	}
	// 25 rounds to bin 2; the interval where Iout_PM1 reads 0 is skipped.
	if inlet.Distribution.Bins[2] != 2*time.Second || inlet.Distribution.Total() != 2*time.Second {
		t.Errorf("Tinlet distribution = %+v", inlet.Distribution)
	}

	if len(res.Spans) != 1 || !almostEqual(res.Spans[0].Mean.Float, 25, 1e-9) {
		t.Errorf("spans = %+v", res.Spans)
	}

	if d, ok := s.distributions[distKey{job: DistributionJob{Column: "Temp"}, bins: bins}]; !ok || d.Total() != temp.Distribution.Total() {
		t.Error("distribution not cached in the session")
	}
	again, err := s.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}
	if again.Columns[0].Distribution.Total() != temp.Distribution.Total() {
		t.Errorf("cached distribution differs: %+v", again.Columns[0].Distribution)
	}
	s.Recompute()
	if len(s.distributions) != 0 {
		t.Error("Recompute kept cached distributions")
	}
	if s.Table() == nil {
		t.Error("Recompute dropped the table")
	}
}

func TestSession_AnalyzeNoCycles(t *testing.T) {
	s := newTestSession(t)
	req := Request{
		Cycles: []ThresholdSpec{{Channel: "Iout", Threshold: 100}},
		Bins:   BinSpec{Count: 5, Width: 10},
	}
	if _, err := s.Analyze(context.Background(), req); !errors.Is(err, ErrNoCycles) {
		t.Errorf("got %v, want ErrNoCycles", err)
	}
}

func TestSession_AnalyzeMissingGate(t *testing.T) {
	s := newTestSession(t)
	req := Request{
		Cycles:  []ThresholdSpec{{Channel: "Iout", Threshold: 10}},
		Columns: []string{"Tinlet_PM1"},
		Bins:    BinSpec{Count: 5, Width: 10},
		Gates:   GateRule{Prefixes: []string{"Tinlet_PM"}, ChannelPrefix: "Vout_"},
	}
	if _, err := s.Analyze(context.Background(), req); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("got %v, want ErrUnknownChannel", err)
	}
}

func TestSession_AnalyzeCleanChannel(t *testing.T) {
	s := newTestSession(t)
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"no cycle channel", Request{Bins: BinSpec{Count: 5, Width: 10}}, ErrInvalidThreshold},
		{"clean not listed", Request{
			Cycles: []ThresholdSpec{{Channel: "Iout", Threshold: 10}},
			Clean:  "Temp",
			Bins:   BinSpec{Count: 5, Width: 10},
		}, ErrUnknownChannel},
		// A quiet secondary channel is reported, not fatal.
		{"quiet secondary channel", Request{
			Cycles: []ThresholdSpec{{Channel: "Iout", Threshold: 10}, {Channel: "Temp", Threshold: 100}},
			Bins:   BinSpec{Count: 5, Width: 10},
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Analyze(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if len(res.Cycles) != 2 || res.Cycles[1].Result.Count != 0 {
				t.Errorf("cycles = %+v", res.Cycles)
			}
		})
	}
}

func TestSession_DistributionsDropStaleWrites(t *testing.T) {
	s := newTestSession(t)
	lt, err := s.Clean(ThresholdSpec{Channel: "Iout", Threshold: 10})
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	old := s.ID()

	// A new import lands while the build for the old one is in flight.
	if _, err := s.Import(s.Table()); err != nil {
		t.Fatalf("Import: %v", err)
	}
	jobs := []DistributionJob{{Column: "Temp"}}
	bins := BinSpec{Count: 5, Width: 10}
	dists, err := s.buildDistributions(context.Background(), old, lt, jobs, bins)
	if err != nil {
		t.Fatalf("buildDistributions: %v", err)
	}
	if dists[0].Total() != 3*time.Second {
		t.Errorf("total = %v, want 3s", dists[0].Total())
	}
	if len(s.distributions) != 0 {
		t.Errorf("stale distributions cached into import %s", s.ID())
	}
}

func TestGateRule_GateFor(t *testing.T) {
	rule := GateRule{Prefixes: DefaultGatePrefixes, ChannelPrefix: DefaultGateChannelPrefix}
	tests := map[string]string{
		"Tinlet_PM1":      "Iout_PM1",
		"Fan_Voltage_PM7": "Iout_PM7",
		"Iout_PM3":        "Iout_PM3",
		"Temp":            "",
		"Tamb":            "",
	}
	for col, want := range tests {
		if got := rule.GateFor(col); got != want {
			t.Errorf("GateFor(%q) = %q, want %q", col, got, want)
		}
	}
}
