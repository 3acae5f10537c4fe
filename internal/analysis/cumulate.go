package analysis

import (
	"fmt"
	"strings"
)

// Cumulation holds the totals of earlier runs: per-column distributions and
// per-channel cycle counts, in the order they were exported.
type Cumulation struct {
	Source  string
	Columns []ColumnResult
	Cycles  []CycleRecord
}

// DropModule removes the columns of module (e.g. "2") so a replaced power
// module starts its distributions from zero. A column belongs to the module
// when it contains one of prefixes immediately followed by module.
func (c Cumulation) DropModule(prefixes []string, module string) Cumulation {
	if module == "" {
		return c
	}
	out := Cumulation{Source: c.Source, Cycles: c.Cycles}
	for _, col := range c.Columns {
		drop := false
		for _, p := range prefixes {
			if strings.Contains(col.Name, p+module) {
				drop = true
				break
			}
		}
		if !drop {
			out.Columns = append(out.Columns, col)
		}
	}
	return out
}

// Cumulate returns a copy of r with prev added in. Distributions are merged
// bin by bin and their summaries recomputed; cycle counts and active times
// are added per channel. Columns and channels only present in prev are
// appended after those of r.
func (r *Results) Cumulate(prev Cumulation) (*Results, error) {
	out := *r
	out.CumulatedFrom = prev.Source

	prevCols := make(map[string]Distribution, len(prev.Columns))
	for _, col := range prev.Columns {
		prevCols[col.Name] = col.Distribution
	}
	out.Columns = make([]ColumnResult, 0, len(r.Columns)+len(prev.Columns))
	seen := make(map[string]bool, len(r.Columns))
	for _, col := range r.Columns {
		seen[col.Name] = true
		if d, ok := prevCols[col.Name]; ok {
			merged, err := col.Distribution.Merge(d)
			if err != nil {
				return nil, fmt.Errorf("analysis: cumulate %q: %w", col.Name, err)
			}
			col.Distribution = merged
			col.Summary = merged.Summary()
		}
		out.Columns = append(out.Columns, col)
	}
	for _, col := range prev.Columns {
		if seen[col.Name] {
			continue
		}
		if len(col.Distribution.Bins) != r.Bins.Count {
			return nil, fmt.Errorf("analysis: cumulate %q: %d bins, want %d: %w", col.Name, len(col.Distribution.Bins), r.Bins.Count, ErrInvalidBins)
		}
		col.Summary = col.Distribution.Summary()
		out.Columns = append(out.Columns, col)
	}

	prevCycles := make(map[string]CycleResult, len(prev.Cycles))
	for _, rec := range prev.Cycles {
		prevCycles[rec.Spec.Channel] = prevCycles[rec.Spec.Channel].Add(rec.Result)
	}
	out.Cycles = make([]CycleRecord, 0, len(r.Cycles)+len(prev.Cycles))
	counted := make(map[string]bool, len(r.Cycles))
	for _, rec := range r.Cycles {
		counted[rec.Spec.Channel] = true
		rec.Result = rec.Result.Add(prevCycles[rec.Spec.Channel])
		if rec.Spec == r.Cycle.Spec {
			out.Cycle = rec
		}
		out.Cycles = append(out.Cycles, rec)
	}
	for _, rec := range prev.Cycles {
		if !counted[rec.Spec.Channel] {
			counted[rec.Spec.Channel] = true
			rec.Result = prevCycles[rec.Spec.Channel]
			out.Cycles = append(out.Cycles, rec)
		}
	}
	return &out, nil
}
