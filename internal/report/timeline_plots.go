package report

import (
	"bytes"
	"fmt"
	"image/color"
	"time"

	"github.com/user/lifetest_analyzer_go/internal/analysis"
	"github.com/user/lifetest_analyzer_go/internal/series"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var plotColors = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 255}, // blue
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 255}, // orange
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 255}, // green
	color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 255}, // purple
}

var thresholdColor = color.RGBA{R: 255, A: 255}

// CreateTimelinePlot draws the cycle channel over the test duration with the
// threshold as a dashed line. Missing samples break the trace.
func CreateTimelinePlot(t *series.Table, spec analysis.ThresholdSpec) ([]byte, error) {
	if t == nil || t.Len() == 0 {
		return nil, fmt.Errorf("no samples to plot")
	}
	values, err := t.Column(spec.Channel)
	if err != nil {
		return nil, err
	}
	offsets := t.Offsets()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s over test duration", spec.Channel)
	p.X.Label.Text = "Elapsed time (h)"
	p.Y.Label.Text = spec.Channel
	p.Add(plotter.NewGrid())

	plotted := false
	for _, seg := range segments(offsets, values) {
		line, err := plotter.NewLine(seg)
		if err != nil {
			return nil, fmt.Errorf("failed to create line for %s: %v", spec.Channel, err)
		}
		line.Color = plotColors[0]
		line.LineStyle.Width = vg.Points(1)
		p.Add(line)
		if !plotted {
			p.Legend.Add(spec.Channel, line)
			plotted = true
		}
	}
	if !plotted {
		return nil, fmt.Errorf("channel %s has no valid samples", spec.Channel)
	}

	end := offsets[len(offsets)-1].Hours()
	thr, err := plotter.NewLine(plotter.XYs{{X: 0, Y: spec.Threshold}, {X: end, Y: spec.Threshold}})
	if err != nil {
		return nil, fmt.Errorf("failed to create threshold line: %v", err)
	}
	thr.Color = thresholdColor
	thr.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
	p.Add(thr)
	p.Legend.Add(fmt.Sprintf("Threshold %g", spec.Threshold), thr)

	p.Legend.Top = true
	p.Legend.XOffs = vg.Points(-10)
	return renderPNG(p, vg.Points(800), vg.Points(400))
}

// CreateActiveTimePlot plots compacted (ON-only) time against wall-clock time.
// Flat stretches are the OFF periods removed by compaction.
func CreateActiveTimePlot(raw, compacted []time.Duration) ([]byte, error) {
	if len(raw) == 0 || len(raw) != len(compacted) {
		return nil, fmt.Errorf("active time plot needs equal, non-empty timelines (got %d and %d)", len(raw), len(compacted))
	}
	pts := make(plotter.XYs, len(raw))
	for i := range raw {
		pts[i] = plotter.XY{X: (raw[i] - raw[0]).Hours(), Y: (compacted[i] - compacted[0]).Hours()}
	}

	p := plot.New()
	p.Title.Text = "Accumulated active time"
	p.X.Label.Text = "Elapsed time (h)"
	p.Y.Label.Text = "Active time (h)"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create active time line: %v", err)
	}
	line.Color = plotColors[2]
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)

	return renderPNG(p, vg.Points(800), vg.Points(400))
}

// segments splits a channel into runs of valid samples so that gaps are
// not bridged by a straight line.
func segments(offsets []time.Duration, values []series.Value) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i, v := range values {
		if !v.Valid {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: offsets[i].Hours(), Y: v.Float})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func renderPNG(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	writer, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %v", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %v", err)
	}
	return buf.Bytes(), nil
}
