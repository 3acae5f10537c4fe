package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

// CycleRecord is a cached cycle computation for one channel and threshold.
type CycleRecord struct {
	Spec      ThresholdSpec
	Crossings CrossingSet
	Boundary  BoundaryCase
	Result    CycleResult
}

type cycleKey struct {
	channel   string
	threshold float64
}

type distKey struct {
	job  DistributionJob
	bins BinSpec
}

// Options configures the import-time module check.
type Options struct {
	ModuleMatch string // column substring selecting redundant sensors
	Lookahead   int    // divergence must persist this many samples ahead
}

// Session owns one imported table and everything derived from it. Import
// replaces the table and drops every cached result; Recompute drops the
// derived results only.
//
// All exported methods are safe for concurrent use.
type Session struct {
	mu   sync.Mutex
	opts Options

	id            string
	table         *series.Table
	faults        []ModuleFault
	cycles        map[cycleKey]CycleRecord
	lifetest      *series.Table
	lifetestKey   cycleKey
	distributions map[distKey]Distribution
}

// NewSession returns a session with no table loaded.
func NewSession(opts Options) *Session {
	if opts.ModuleMatch == "" {
		opts.ModuleMatch = DefaultModuleMatch
	}
	s := &Session{opts: opts}
	s.resetLocked()
	return s
}

// Import validates t, makes it the session table and runs the module
// consistency check. The returned faults are advisory.
func (s *Session) Import(t *series.Table) ([]ModuleFault, error) {
	if t == nil {
		return nil, fmt.Errorf("analysis: import nil table")
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("analysis: import: %w", err)
	}
	faults, err := CheckModules(t, s.opts.ModuleMatch, s.opts.Lookahead)
	if err != nil {
		return nil, fmt.Errorf("analysis: module check: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.id = uuid.NewString()
	s.table = t
	s.faults = faults

	slog.Info("analysis: table imported", "session", s.id, "rows", t.Len(), "columns", len(t.Columns))
	for _, f := range faults {
		slog.Warn("analysis: module possibly faulty", "session", s.id, "channel", f.Channel, "ranges", len(f.SuspectRanges))
	}
	return faults, nil
}

// Recompute drops cached cycles, the cleaned table and distributions.
func (s *Session) Recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles = make(map[cycleKey]CycleRecord)
	s.lifetest = nil
	s.lifetestKey = cycleKey{}
	s.distributions = make(map[distKey]Distribution)
}

func (s *Session) resetLocked() {
	s.id = ""
	s.table = nil
	s.faults = nil
	s.cycles = make(map[cycleKey]CycleRecord)
	s.lifetest = nil
	s.lifetestKey = cycleKey{}
	s.distributions = make(map[distKey]Distribution)
}

// ID identifies the current import. It is empty before the first Import.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Table returns the imported table, or nil.
func (s *Session) Table() *series.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// FindCycles detects and counts the cycles of spec.Channel, reusing a
// cached result for the same channel and threshold.
func (s *Session) FindCycles(spec ThresholdSpec) (CycleRecord, error) {
	if err := spec.Validate(); err != nil {
		return CycleRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCyclesLocked(spec)
}

func (s *Session) findCyclesLocked(spec ThresholdSpec) (CycleRecord, error) {
	if s.table == nil {
		return CycleRecord{}, fmt.Errorf("analysis: no table imported")
	}
	key := cycleKey{channel: spec.Channel, threshold: spec.Threshold}
	if rec, ok := s.cycles[key]; ok {
		return rec, nil
	}
	values, err := s.table.Column(spec.Channel)
	if err != nil {
		return CycleRecord{}, err
	}

	cs := DetectCrossings(values, spec.Threshold)
	bc, err := Classify(cs)
	if err != nil {
		return CycleRecord{}, fmt.Errorf("analysis: cycles of %q: %w", spec.Channel, err)
	}
	res, err := CountCycles(cs, s.table.Time)
	if err != nil {
		return CycleRecord{}, fmt.Errorf("analysis: cycles of %q: %w", spec.Channel, err)
	}

	rec := CycleRecord{Spec: spec, Crossings: cs, Boundary: bc, Result: res}
	s.cycles[key] = rec
	slog.Info("analysis: cycles counted",
		"session", s.id, "channel", spec.Channel, "threshold", spec.Threshold,
		"boundary", bc.String(), "cycles", res.Count, "active", res.ActiveTime)
	return rec, nil
}

// Clean builds the active-only table for spec and keeps it as the input of
// subsequent distribution builds.
func (s *Session) Clean(spec ThresholdSpec) (*series.Table, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.findCyclesLocked(spec)
	if err != nil {
		return nil, err
	}
	return s.cleanLocked(rec)
}

func (s *Session) cleanLocked(rec CycleRecord) (*series.Table, error) {
	key := cycleKey{channel: rec.Spec.Channel, threshold: rec.Spec.Threshold}
	if s.lifetest != nil && s.lifetestKey == key {
		return s.lifetest, nil
	}
	lt, err := CleanCycles(s.table, rec.Spec, rec.Crossings)
	if err != nil {
		return nil, err
	}
	s.lifetest = lt
	s.lifetestKey = key
	s.distributions = make(map[distKey]Distribution)
	return lt, nil
}

// DistributionJob is one column to histogram, with its optional gate.
type DistributionJob struct {
	Column string
	Gate   string // empty for no gate
}

// Distributions builds the histograms of jobs over the cleaned table. The
// builds run in parallel; each worker reads the shared table and writes
// only its own slot. Clean must have been called first.
func (s *Session) Distributions(ctx context.Context, jobs []DistributionJob, bins BinSpec) ([]Distribution, error) {
	if err := bins.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	id, lt := s.id, s.lifetest
	s.mu.Unlock()
	if lt == nil {
		return nil, fmt.Errorf("analysis: distributions requested before cleaning")
	}
	return s.buildDistributions(ctx, id, lt, jobs, bins)
}

// buildDistributions histograms jobs over lt, the cleaned table of import
// id. Cached histograms are reused; new ones are stored only while id and
// lt are still current, so an Import or Clean that lands mid-build never
// receives them.
func (s *Session) buildDistributions(ctx context.Context, id string, lt *series.Table, jobs []DistributionJob, bins BinSpec) ([]Distribution, error) {
	out := make([]Distribution, len(jobs))
	cached := make([]bool, len(jobs))
	s.mu.Lock()
	if s.id == id && s.lifetest == lt {
		for i, job := range jobs {
			out[i], cached[i] = s.distributions[distKey{job: job, bins: bins}]
		}
	}
	s.mu.Unlock()

	ts := lt.Offsets()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, job := range jobs {
		if cached[i] {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			values, err := lt.Column(job.Column)
			if err != nil {
				return err
			}
			var gate []series.Value
			if job.Gate != "" {
				raw, err := lt.Column(job.Gate)
				if err != nil {
					return fmt.Errorf("analysis: gate of %q: %w", job.Column, err)
				}
				gate = series.ZeroAsMissing(raw)
			}
			d, err := BuildDistribution(series.ZeroAsMissing(values), gate, ts, bins)
			if err != nil {
				return fmt.Errorf("analysis: distribution of %q: %w", job.Column, err)
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id != id || s.lifetest != lt {
		slog.Warn("analysis: table changed during distribution build, results not cached", "session", id)
		return out, nil
	}
	for i, job := range jobs {
		s.distributions[distKey{job: job, bins: bins}] = out[i]
	}
	return out, nil
}
