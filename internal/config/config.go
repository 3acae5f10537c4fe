package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/user/lifetest_analyzer_go/internal/analysis"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPadLimit  = 3
	DefaultRangeMin  = 0.0
	DefaultRangeMax  = 150.0
	DefaultBins      = 150
	DefaultLookahead = 1
)

// Config is the top-level configuration of the analyzer.
type Config struct {
	// Input is the sensor log to analyze. The -input flag overrides it.
	Input string `yaml:"input"`

	Import       ImportConfig       `yaml:"import"`
	Cycle        CycleConfig        `yaml:"cycle"`
	Distribution DistributionConfig `yaml:"distribution"`
	ModuleCheck  ModuleCheckConfig  `yaml:"module_check"`
	Span         *SpanConfig        `yaml:"span"`
	Report       ReportConfig       `yaml:"report"`
}

// ImportConfig tunes import normalization.
type ImportConfig struct {
	// PadLimit is the longest gap forward filled at import.
	PadLimit int `yaml:"pad_limit"`
}

// CycleConfig lists the channels whose cycles are counted and selects the
// one that drives cleaning.
type CycleConfig struct {
	Channels []CycleChannel `yaml:"channels"`

	// Clean names the channel used to clean the log. Empty selects the
	// first entry of Channels.
	Clean string `yaml:"clean"`
}

// CycleChannel is one channel and the threshold separating ON from OFF.
type CycleChannel struct {
	Channel   string  `yaml:"channel"`
	Threshold float64 `yaml:"threshold"`
}

// DistributionConfig is the histogram geometry and the columns to build.
type DistributionConfig struct {
	Columns []string `yaml:"columns"`
	Min     float64  `yaml:"min"`
	Max     float64  `yaml:"max"`
	Bins    int      `yaml:"bins"`

	// GatePrefixes are column substrings marking per-module signals.
	GatePrefixes []string `yaml:"gate_prefixes"`

	// GateChannelPrefix is prepended to the module tag to name the gate.
	GateChannelPrefix string `yaml:"gate_channel_prefix"`
}

// ModuleCheckConfig tunes the redundant-sensor consistency check.
type ModuleCheckConfig struct {
	Match     string `yaml:"match"`
	Lookahead int    `yaml:"lookahead"`
}

// SpanConfig selects a sample window for mean / peak-to-peak statistics.
type SpanConfig struct {
	Start   int      `yaml:"start"`
	End     int      `yaml:"end"`
	Columns []string `yaml:"columns"`
}

// ReportConfig selects the outputs written after a run.
type ReportConfig struct {
	// PDF is the report path. The -pdf flag overrides it.
	PDF string `yaml:"pdf"`

	// CSVDir receives distribution.csv and cycles.csv when set.
	CSVDir string `yaml:"csv_dir"`

	// MetricsFile receives a Prometheus text-format snapshot when set.
	MetricsFile string `yaml:"metrics_file"`

	// Plots embeds distribution and timeline charts in the PDF.
	Plots bool `yaml:"plots"`

	// Cumulate is a directory holding the CSV export of earlier runs. When
	// set, its totals are added to this run before anything is written.
	Cumulate string `yaml:"cumulate"`

	// ResetModule drops the columns of one power module (e.g. "2") from
	// the cumulated totals, for a module replaced since the earlier runs.
	ResetModule string `yaml:"reset_module"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Import: ImportConfig{PadLimit: DefaultPadLimit},
		Distribution: DistributionConfig{
			Min:               DefaultRangeMin,
			Max:               DefaultRangeMax,
			Bins:              DefaultBins,
			GatePrefixes:      append([]string(nil), analysis.DefaultGatePrefixes...),
			GateChannelPrefix: analysis.DefaultGateChannelPrefix,
		},
		ModuleCheck: ModuleCheckConfig{Match: analysis.DefaultModuleMatch, Lookahead: DefaultLookahead},
		Report:      ReportConfig{Plots: true},
	}
}

// validate checks required fields and value ranges.
func validate(cfg *Config) error {
	if len(cfg.Cycle.Channels) == 0 {
		return fmt.Errorf("cycle.channels needs at least one channel")
	}
	seen := make(map[string]bool, len(cfg.Cycle.Channels))
	for i, c := range cfg.Cycle.Channels {
		if c.Channel == "" {
			return fmt.Errorf("cycle.channels[%d].channel is required", i)
		}
		if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
			return fmt.Errorf("cycle.channels[%d].threshold must be a finite number", i)
		}
		if seen[c.Channel] {
			return fmt.Errorf("cycle.channels: %s listed twice", c.Channel)
		}
		seen[c.Channel] = true
	}
	if clean := cfg.Cycle.Clean; clean != "" && !seen[clean] {
		return fmt.Errorf("cycle.clean: %s is not in cycle.channels", clean)
	}
	if cfg.Import.PadLimit < 0 {
		return fmt.Errorf("import.pad_limit must not be negative")
	}
	d := cfg.Distribution
	if d.Bins <= 0 {
		return fmt.Errorf("distribution.bins must be positive")
	}
	if !(d.Max > d.Min) {
		return fmt.Errorf("distribution.max (%v) must exceed distribution.min (%v)", d.Max, d.Min)
	}
	for i, col := range d.Columns {
		if col == "" {
			return fmt.Errorf("distribution.columns[%d] is empty", i)
		}
	}
	if cfg.ModuleCheck.Lookahead < 0 {
		return fmt.Errorf("module_check.lookahead must not be negative")
	}
	if s := cfg.Span; s != nil {
		if s.Start < 0 || s.End <= s.Start {
			return fmt.Errorf("span: need 0 <= start < end, got [%d, %d)", s.Start, s.End)
		}
		if len(s.Columns) == 0 {
			return fmt.Errorf("span.columns is required when span is set")
		}
	}
	return nil
}

// Request maps the config onto an analysis run.
func (c *Config) Request() (analysis.Request, error) {
	bins, err := analysis.NewBinSpec(c.Distribution.Min, c.Distribution.Max, c.Distribution.Bins)
	if err != nil {
		return analysis.Request{}, fmt.Errorf("config: %w", err)
	}
	req := analysis.Request{
		Clean:   c.Cycle.Clean,
		Columns: append([]string(nil), c.Distribution.Columns...),
		Bins:    bins,
		Gates: analysis.GateRule{
			Prefixes:      c.Distribution.GatePrefixes,
			ChannelPrefix: c.Distribution.GateChannelPrefix,
		},
	}
	for _, ch := range c.Cycle.Channels {
		req.Cycles = append(req.Cycles, analysis.ThresholdSpec{Channel: ch.Channel, Threshold: ch.Threshold})
	}
	if c.Span != nil {
		req.Span = &analysis.SpanRequest{Start: c.Span.Start, End: c.Span.End, Columns: c.Span.Columns}
	}
	return req, nil
}

// SessionOptions maps the module check settings onto a session.
func (c *Config) SessionOptions() analysis.Options {
	return analysis.Options{ModuleMatch: c.ModuleCheck.Match, Lookahead: c.ModuleCheck.Lookahead}
}
