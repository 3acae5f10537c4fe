package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/user/lifetest_analyzer_go/internal/analysis"
)

func gauge(value float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(value)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{Name: proto.String(labels[i]), Value: proto.String(labels[i+1])})
	}
	return m
}

func family(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: metrics,
	}
}

// MetricFamilies converts the headline numbers of a run into gauges.
// Columns without a defined mean are left out of lifetest_column_mean.
func MetricFamilies(res *analysis.Results) []*dto.MetricFamily {
	var cycles, active []*dto.Metric
	for _, rec := range res.Cycles {
		cycles = append(cycles, gauge(float64(rec.Result.Count), "channel", rec.Spec.Channel))
		active = append(active, gauge(rec.Result.ActiveTime.Seconds(), "channel", rec.Spec.Channel))
	}
	fams := []*dto.MetricFamily{
		family("lifetest_cycles", "Complete OFF/ON cycles per cycle channel.", cycles...),
		family("lifetest_active_seconds", "Time each cycle channel spent above threshold.", active...),
		family("lifetest_scanned_seconds", "Span of the compacted timeline the distributions cover.",
			gauge(res.Scanned.Seconds(), "channel", res.Cycle.Spec.Channel)),
	}

	var means, hrs, undefined []*dto.Metric
	for _, col := range res.Columns {
		if mv := res.Bins.MeanValue(col.Summary); mv.Valid {
			means = append(means, gauge(mv.Float, "column", col.Name))
		}
		hrs = append(hrs, gauge(col.Summary.TotalHours, "column", col.Name))
		undefined = append(undefined, gauge(col.Distribution.Undefined.Seconds(), "column", col.Name))
	}
	if len(means) > 0 {
		fams = append(fams, family("lifetest_column_mean", "Time-weighted mean value of the column.", means...))
	}
	if len(hrs) > 0 {
		fams = append(fams,
			family("lifetest_column_hours", "Hours covered by the column distribution.", hrs...),
			family("lifetest_column_undefined_seconds", "Gated time with no column value.", undefined...))
	}

	if len(res.Faults) > 0 {
		var faults []*dto.Metric
		for _, f := range res.Faults {
			faults = append(faults, gauge(float64(len(f.SuspectRanges)), "channel", f.Channel))
		}
		fams = append(fams, family("lifetest_module_suspect_ranges", "Sample ranges where a redundant module disagrees and drops to zero.", faults...))
	}
	return fams
}

// WriteMetrics writes res in the Prometheus text exposition format.
func WriteMetrics(w io.Writer, res *analysis.Results) error {
	for _, mf := range MetricFamilies(res) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("report: metrics %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteMetricsFile replaces path atomically so a textfile collector never
// reads a partial file.
func WriteMetricsFile(path string, res *analysis.Results) error {
	var buf bytes.Buffer
	if err := WriteMetrics(&buf, res); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
