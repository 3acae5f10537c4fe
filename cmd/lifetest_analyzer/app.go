package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/user/lifetest_analyzer_go/internal/analysis"
	"github.com/user/lifetest_analyzer_go/internal/config"
	"github.com/user/lifetest_analyzer_go/internal/parser"
	"github.com/user/lifetest_analyzer_go/internal/report"
)

// Overrides are command line values that take precedence over the config
// file, including after a reload.
type Overrides struct {
	Input string
	PDF   string
}

func (o Overrides) apply(cfg *config.Config) {
	if o.Input != "" {
		cfg.Input = o.Input
	}
	if o.PDF != "" {
		cfg.Report.PDF = o.PDF
	}
}

// App drives one analysis session from the command line.
type App struct {
	mu        sync.Mutex
	cfgPath   string
	overrides Overrides
	cfg       *config.Config
	session   *analysis.Session
	imported  string // log file currently loaded into session
}

// NewApp creates an App for a loaded config.
func NewApp(cfgPath string, cfg *config.Config, ov Overrides) *App {
	ov.apply(cfg)
	return &App{
		cfgPath:   cfgPath,
		overrides: ov,
		cfg:       cfg,
		session:   analysis.NewSession(cfg.SessionOptions()),
	}
}

// Paths returns the input log and PDF path of the current config.
func (a *App) Paths() (input, pdf string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Input, a.cfg.Report.PDF
}

// Run generates the report for the current config.
func (a *App) Run(ctx context.Context) error {
	input, pdf := a.Paths()
	if input == "" {
		return fmt.Errorf("no input log: set input in the config or pass -input")
	}
	return a.GenerateReport(ctx, input, pdf)
}

func (a *App) sendStatus(message string, args ...any) {
	slog.Info(message, args...)
}

// Import parses csvPath and loads it into the session. Module check
// findings are reported as warnings; they do not stop the run.
func (a *App) Import(csvPath string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.importLocked(csvPath)
}

func (a *App) importLocked(csvPath string) error {
	a.sendStatus("parsing log", "path", csvPath)
	parsed, err := parser.ParseLog(csvPath, parser.Options{PadLimit: a.cfg.Import.PadLimit})
	if err != nil {
		return fmt.Errorf("parse %s: %w", csvPath, err)
	}
	a.sendStatus("parsed log", "rows", parsed.Table.Len(), "columns", len(parsed.Table.Columns))
	for _, e := range parsed.ParseErrors {
		slog.Warn("parse warning", "detail", e)
	}
	if len(parsed.MixedColumns) > 0 {
		slog.Warn("columns with non-numeric cells", "columns", parsed.MixedColumns)
	}
	if len(parsed.GapColumns) > 0 {
		slog.Warn("columns with gaps longer than the pad limit", "columns", parsed.GapColumns)
	}

	faults, err := a.session.Import(parsed.Table)
	if err != nil {
		return fmt.Errorf("import %s: %w", csvPath, err)
	}
	for _, f := range faults {
		slog.Warn("module possibly faulty", "channel", f.Channel, "ranges", len(f.SuspectRanges))
	}
	a.imported = csvPath
	return nil
}

// Reload re-reads the config file. The imported table is kept when the
// module check settings are unchanged; otherwise the log is imported again
// into a fresh session.
func (a *App) Reload() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.overrides.apply(cfg)

	a.mu.Lock()
	defer a.mu.Unlock()
	prev := a.cfg
	a.cfg = cfg
	if cfg.SessionOptions() == prev.SessionOptions() && cfg.Import.PadLimit == prev.Import.PadLimit {
		a.sendStatus("recompute requested", "config", a.cfgPath)
		a.session.Recompute()
		return nil
	}
	a.session = analysis.NewSession(cfg.SessionOptions())
	if a.imported == "" {
		return nil
	}
	return a.importLocked(a.imported)
}

// GenerateReport runs the analysis on csvPath and writes the PDF report to
// pdfPath, plus CSV tables and the metrics file when configured.
func (a *App) GenerateReport(ctx context.Context, csvPath, pdfPath string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sendStatus("report requested", "csv", csvPath, "pdf", pdfPath)

	if csvPath != a.imported {
		if err := a.importLocked(csvPath); err != nil {
			return err
		}
	}

	req, err := a.cfg.Request()
	if err != nil {
		return err
	}
	clean, err := req.CleanSpec()
	if err != nil {
		return err
	}
	if len(req.Columns) == 0 {
		for _, col := range a.session.Table().Columns {
			if col != clean.Channel {
				req.Columns = append(req.Columns, col)
			}
		}
	}

	a.sendStatus("analyzing", "clean_channel", clean.Channel, "threshold", clean.Threshold,
		"cycle_channels", len(req.Cycles), "columns", len(req.Columns))
	res, err := a.session.Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	for _, rec := range res.Cycles {
		a.sendStatus("cycles counted",
			"channel", rec.Spec.Channel,
			"cycles", rec.Result.Count,
			"active_time", report.FormatHMS(rec.Result.ActiveTime),
			"boundary", rec.Boundary.String(),
		)
	}

	if dir := a.cfg.Report.Cumulate; dir != "" {
		prev, err := report.ReadCumulation(dir, res.Bins)
		if err != nil {
			return fmt.Errorf("read cumulation: %w", err)
		}
		prev = prev.DropModule(req.Gates.Prefixes, a.cfg.Report.ResetModule)
		if res, err = res.Cumulate(prev); err != nil {
			return fmt.Errorf("cumulate: %w", err)
		}
		a.sendStatus("cumulated earlier runs", "from", dir, "columns", len(res.Columns), "reset_module", a.cfg.Report.ResetModule)
	}

	plotImages := make(map[string][]byte)
	if a.cfg.Report.Plots {
		a.sendStatus("generating plots")
		a.plots(res, plotImages)
	}

	if pdfPath != "" {
		a.sendStatus("generating PDF", "path", pdfPath)
		if err := report.BuildPDFReport(pdfPath, res, plotImages); err != nil {
			return fmt.Errorf("generate PDF report: %w", err)
		}
		a.sendStatus("PDF report generated", "path", pdfPath)
	}
	if dir := a.cfg.Report.CSVDir; dir != "" {
		paths, err := report.ExportCSV(dir, res)
		if err != nil {
			return fmt.Errorf("export CSV: %w", err)
		}
		a.sendStatus("CSV exported", "files", paths)
	}
	if path := a.cfg.Report.MetricsFile; path != "" {
		if err := report.WriteMetricsFile(path, res); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		a.sendStatus("metrics written", "path", path)
	}
	return nil
}

// plots renders every chart it can; a failed chart is logged and left out
// of the report.
func (a *App) plots(res *analysis.Results, out map[string][]byte) {
	add := func(key string, img []byte, err error) {
		if err != nil {
			slog.Warn("plot failed", "plot", key, "err", err)
			return
		}
		out[key] = img
	}

	t := a.session.Table()
	img, err := report.CreateTimelinePlot(t, res.Cycle.Spec)
	add(report.PlotTimeline, img, err)

	compacted, err := analysis.CompactTimeline(res.Cycle.Crossings, t.Offsets())
	if err == nil {
		img, err = report.CreateActiveTimePlot(t.Offsets(), compacted)
	}
	add(report.PlotActiveTime, img, err)

	if len(res.Columns) > 0 {
		img, err = report.CreateDistributionHeatmap(res)
		add(report.PlotHeatmap, img, err)
	}
	for _, col := range res.Columns {
		img, err := report.CreateDistributionPlot(col, res.Bins)
		add(report.DistributionPlotKey(col.Name), img, err)
	}
}
