package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/lifetest_analyzer_go/internal/analysis"
	"github.com/user/lifetest_analyzer_go/internal/config"
)

func writeLog(t *testing.T, dir string, iout []float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("DateTime,Iout,Temp\n")
	for i, v := range iout {
		fmt.Fprintf(&b, "2024-03-01 08:00:%02d,%g,%d\n", i, v, 20+i)
	}
	path := filepath.Join(dir, "lifetest.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeConfig writes a config with CSV and metrics output under out and
// extra appended to the report section.
func writeConfig(t *testing.T, dir, out, extra string) string {
	t.Helper()
	yaml := fmt.Sprintf(`
cycle:
  clean: Iout
  channels:
    - channel: Iout
      threshold: 10
    - channel: Temp
      threshold: 22.5
distribution:
  min: 0
  max: 50
  bins: 5
report:
  csv_dir: %s
  metrics_file: %s
  plots: true
%s`, out, filepath.Join(out, "lifetest.prom"), extra)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestApp(t *testing.T, dir string) *App {
	t.Helper()
	path := writeConfig(t, dir, filepath.Join(dir, "out"), "")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return NewApp(path, cfg, Overrides{})
}

func TestApp_GenerateReport(t *testing.T) {
	dir := t.TempDir()
	logPath := writeLog(t, dir, []float64{5, 15, 15, 15, 15, 5, 5, 5})
	app := newTestApp(t, dir)

	pdfPath := filepath.Join(dir, "out", "report.pdf")
	if err := os.MkdirAll(filepath.Dir(pdfPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := app.GenerateReport(context.Background(), logPath, pdfPath); err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	for _, name := range []string{"report.pdf", "distribution.csv", "cycles.csv", "lifetest.prom"} {
		if info, err := os.Stat(filepath.Join(dir, "out", name)); err != nil || info.Size() == 0 {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	if err := app.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if err := app.GenerateReport(context.Background(), logPath, ""); err != nil {
		t.Fatalf("GenerateReport after reload: %v", err)
	}
}

func TestApp_Cumulate(t *testing.T) {
	dir := t.TempDir()
	logPath := writeLog(t, dir, []float64{5, 15, 15, 15, 15, 5, 5, 5})
	first := newTestApp(t, dir)
	if err := first.GenerateReport(context.Background(), logPath, ""); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := t.TempDir()
	path := writeConfig(t, second, filepath.Join(second, "out"), fmt.Sprintf("  cumulate: %s\n", filepath.Join(dir, "out")))
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if err := NewApp(path, cfg, Overrides{}).GenerateReport(context.Background(), logPath, ""); err != nil {
		t.Fatalf("cumulated run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(second, "out", "cycles.csv"))
	if err != nil {
		t.Fatal(err)
	}
	// Each run holds one Iout cycle of 4s; Temp rises past 22.5 once and
	// never falls back, so its row carries no cycles.
	for _, want := range []string{"Iout,10.000000,fully-bracketed,2,0:00:08", "Temp,22.500000,none,0,"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("cycles.csv missing %q:\n%s", want, data)
		}
	}
}

func TestApp_ReloadPaths(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, filepath.Join(dir, "out"), "  pdf: first.pdf\n")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	app := NewApp(path, cfg, Overrides{PDF: "flag.pdf"})
	if in, pdf := app.Paths(); in != "" || pdf != "flag.pdf" {
		t.Errorf("paths = %q, %q", in, pdf)
	}

	yaml, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	edited := "input: second.csv\n" + strings.Replace(string(yaml), "first.pdf", "second.pdf", 1)
	if err := os.WriteFile(path, []byte(edited), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := app.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	// The edited input is picked up; the -pdf flag still wins.
	if in, pdf := app.Paths(); in != "second.csv" || pdf != "flag.pdf" {
		t.Errorf("paths after reload = %q, %q", in, pdf)
	}
}

func TestApp_NoCycles(t *testing.T) {
	dir := t.TempDir()
	logPath := writeLog(t, dir, []float64{1, 2, 3, 4})
	app := newTestApp(t, dir)

	err := app.GenerateReport(context.Background(), logPath, "")
	if !errors.Is(err, analysis.ErrNoCycles) {
		t.Errorf("got %v, want ErrNoCycles", err)
	}
}
