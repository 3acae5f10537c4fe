package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

// DefaultGatePrefixes are the per-module signals whose samples only count
// while the module delivers output current.
var DefaultGatePrefixes = []string{
	"Vout_PM", "Iout_PM", "Vout_SP_PM", "Iout_SP_PM", "Tinlet_PM", "T_PFC_PM",
	"T_DCDC1_PM", "T_DCDC2_PM", "Fan_Voltage_PM", "Vin1_PM", "Vin2_PM", "Vin3_PM", "Status_PM",
}

// DefaultGateChannelPrefix is joined with the module suffix to name the gate.
const DefaultGateChannelPrefix = "Iout_"

// moduleSuffixLen is the length of the module tag at the end of a column
// name, e.g. "PM1" in "Tinlet_PM1".
const moduleSuffixLen = 3

// GateRule maps module columns to the channel gating them.
type GateRule struct {
	Prefixes      []string
	ChannelPrefix string
}

// GateFor returns the gate channel of column, or "" when it is not a module
// column.
func (r GateRule) GateFor(column string) string {
	for _, p := range r.Prefixes {
		if strings.Contains(column, p) && len(column) >= moduleSuffixLen {
			return r.ChannelPrefix + column[len(column)-moduleSuffixLen:]
		}
	}
	return ""
}

// SpanRequest selects a sample window for descriptive statistics.
type SpanRequest struct {
	Start   int
	End     int
	Columns []string
}

// Request is a full life-test analysis run.
type Request struct {
	// Cycles are counted for every channel listed, each with its own
	// threshold.
	Cycles []ThresholdSpec
	// Clean names the entry of Cycles whose ON time drives cleaning and the
	// distributions. Empty selects the first entry.
	Clean   string
	Columns []string
	Bins    BinSpec
	Gates   GateRule
	Span    *SpanRequest
}

// CleanSpec returns the cycle entry selected by Clean.
func (r Request) CleanSpec() (ThresholdSpec, error) {
	if len(r.Cycles) == 0 {
		return ThresholdSpec{}, fmt.Errorf("analysis: request has no cycle channel: %w", ErrInvalidThreshold)
	}
	if r.Clean == "" {
		return r.Cycles[0], nil
	}
	for _, c := range r.Cycles {
		if c.Channel == r.Clean {
			return c, nil
		}
	}
	return ThresholdSpec{}, fmt.Errorf("analysis: clean channel %q is not a cycle channel: %w", r.Clean, ErrUnknownChannel)
}

// ColumnResult is the histogram and summary row of one column.
type ColumnResult struct {
	Name         string
	Gate         string
	Distribution Distribution
	Summary      Aggregate
}

// Results holds everything a run produces for the report writers.
type Results struct {
	SessionID string
	// Cycle is the record that drove cleaning; Cycles holds every counted
	// channel in request order, Cycle included.
	Cycle      CycleRecord
	Cycles     []CycleRecord
	Bins       BinSpec
	ActiveRows int
	// Scanned is the span of the compacted timeline the distributions
	// were built over.
	Scanned time.Duration
	Columns []ColumnResult
	Spans   []SpanResult
	Faults  []ModuleFault

	// CumulatedFrom is set when earlier totals were merged in.
	CumulatedFrom string
}

// snapshot is one import's state taken under a single lock hold.
type snapshot struct {
	id       string
	table    *series.Table
	lifetest *series.Table
	faults   []ModuleFault
	cycles   []CycleRecord
	clean    CycleRecord
}

// prepare counts every cycle channel and cleans with the selected one
// without releasing the lock, so the records all belong to one import.
func (s *Session) prepare(cycles []ThresholdSpec, clean ThresholdSpec) (snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{id: s.id, table: s.table, faults: append([]ModuleFault(nil), s.faults...)}
	for _, spec := range cycles {
		rec, err := s.findCyclesLocked(spec)
		if err != nil {
			return snapshot{}, err
		}
		snap.cycles = append(snap.cycles, rec)
		if spec == clean {
			snap.clean = rec
		}
	}
	if snap.clean.Result.Count == 0 {
		return snapshot{}, fmt.Errorf("analysis: %q at threshold %v: %w", clean.Channel, clean.Threshold, ErrNoCycles)
	}
	lt, err := s.cleanLocked(snap.clean)
	if err != nil {
		return snapshot{}, err
	}
	snap.lifetest = lt
	return snap, nil
}

// Analyze runs cycles -> cleaning -> distributions -> summaries on the
// imported table. It returns ErrNoCycles when the cleaning channel shows no
// complete transition, since nothing downstream would be meaningful.
func (s *Session) Analyze(ctx context.Context, req Request) (*Results, error) {
	if err := req.Bins.Validate(); err != nil {
		return nil, err
	}
	clean, err := req.CleanSpec()
	if err != nil {
		return nil, err
	}
	for _, spec := range req.Cycles {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}

	snap, err := s.prepare(req.Cycles, clean)
	if err != nil {
		return nil, err
	}

	jobs := make([]DistributionJob, len(req.Columns))
	for i, col := range req.Columns {
		jobs[i] = DistributionJob{Column: col, Gate: req.Gates.GateFor(col)}
	}
	dists, err := s.buildDistributions(ctx, snap.id, snap.lifetest, jobs, req.Bins)
	if err != nil {
		return nil, err
	}

	res := &Results{
		SessionID:  snap.id,
		Cycle:      snap.clean,
		Cycles:     snap.cycles,
		Bins:       req.Bins,
		ActiveRows: snap.lifetest.Len(),
		Scanned:    Scanned(snap.lifetest.Offsets()),
		Faults:     snap.faults,
	}
	for i, job := range jobs {
		res.Columns = append(res.Columns, ColumnResult{
			Name:         job.Column,
			Gate:         job.Gate,
			Distribution: dists[i],
			Summary:      dists[i].Summary(),
		})
	}

	if req.Span != nil {
		spans, err := spanStats(snap.table, *req.Span)
		if err != nil {
			return nil, err
		}
		res.Spans = spans
	}

	slog.Info("analysis: run complete", "session", res.SessionID, "cycle_channels", len(res.Cycles),
		"columns", len(res.Columns), "active_rows", res.ActiveRows)
	return res, nil
}

func spanStats(t *series.Table, req SpanRequest) ([]SpanResult, error) {
	out := make([]SpanResult, 0, len(req.Columns))
	for _, col := range req.Columns {
		values, err := t.Column(col)
		if err != nil {
			return nil, err
		}
		sr, err := SpanStats(col, values, req.Start, req.End)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, nil
}
