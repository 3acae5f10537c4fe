package report

import (
	"fmt"
	"strconv"

	"github.com/user/lifetest_analyzer_go/internal/analysis"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// maxBinTicks caps the number of labelled bins on the x axis.
const maxBinTicks = 15

// CreateDistributionPlot draws the hours a column spent in each bin.
func CreateDistributionPlot(col analysis.ColumnResult, bins analysis.BinSpec) ([]byte, error) {
	if len(col.Distribution.Bins) == 0 {
		return nil, fmt.Errorf("no distribution for %s", col.Name)
	}
	vals := make(plotter.Values, len(col.Distribution.Bins))
	for i, d := range col.Distribution.Bins {
		vals[i] = d.Hours()
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s time distribution", col.Name)
	if col.Gate != "" {
		p.Title.Text += fmt.Sprintf(" (gated by %s)", col.Gate)
	}
	p.X.Label.Text = col.Name
	p.Y.Label.Text = "Time (h)"
	p.Add(plotter.NewGrid())

	bars, err := plotter.NewBarChart(vals, vg.Points(600/float64(len(vals)+1)))
	if err != nil {
		return nil, fmt.Errorf("failed to create bar chart for %s: %v", col.Name, err)
	}
	bars.Color = plotColors[0]
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.X.Tick.Marker = plot.ConstantTicks(binTicks(bins))

	return renderPNG(p, vg.Points(800), vg.Points(400))
}

// binTicks labels bar positions (bin indices) with their lower edges.
func binTicks(bins analysis.BinSpec) []plot.Tick {
	step := 1
	if bins.Count > maxBinTicks {
		step = (bins.Count + maxBinTicks - 1) / maxBinTicks
	}
	ticks := make([]plot.Tick, 0, bins.Count/step+1)
	for i := 0; i < bins.Count; i++ {
		t := plot.Tick{Value: float64(i)}
		if i%step == 0 {
			t.Label = strconv.FormatFloat(bins.Lower(i), 'g', 4, 64)
		}
		ticks = append(ticks, t)
	}
	return ticks
}
