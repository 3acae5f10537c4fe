package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/user/lifetest_analyzer_go/internal/analysis"
)

const (
	inchToMm               = 25.4
	pdfPageWidthLandscape  = 11 * inchToMm // Letter landscape
	pdfPageHeightLandscape = 8.5 * inchToMm
	pdfMargin              = 0.5 * inchToMm
	pdfContentWidth        = pdfPageWidthLandscape - (2 * pdfMargin)
)

// pdfStyler holds reusable styling and state for PDF generation.
type pdfStyler struct {
	pdf         *gofpdf.Fpdf
	styles      map[string]func() // map of style name to function that sets font, color etc.
	lineHeight  float64
	currentY    float64 // flowing content position
	pageHeight  float64
	contentTopY float64 // Top Y after margin
}

func newPDFStyler(pdf *gofpdf.Fpdf) *pdfStyler {
	s := &pdfStyler{
		pdf:         pdf,
		styles:      make(map[string]func()),
		lineHeight:  6, // mm, default line height
		pageHeight:  pdfPageHeightLandscape - (2 * pdfMargin), // Usable height
		contentTopY: pdfMargin,
	}
	s.currentY = s.contentTopY
	s.defineStyles()
	return s
}

func (s *pdfStyler) defineStyles() {
	s.styles["h1"] = func() {
		s.pdf.SetFont("Arial", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Arial", "B", 14)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Arial", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableHeader"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetFillColor(200, 200, 200) // Light grey
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableCell"] = func() {
		s.pdf.SetFont("Arial", "", 9)
		s.pdf.SetTextColor(50, 50, 50)
	}
	s.styles["tableCellRed"] = func() { // module warnings
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetTextColor(200, 0, 0)
	}
}

func (s *pdfStyler) applyStyle(styleName string) {
	if fn, ok := s.styles[styleName]; ok {
		fn()
	} else {
		s.styles["normal"]() // Default
	}
}

func (s *pdfStyler) checkAddPage(neededHeight float64) {
	if s.currentY+neededHeight > s.pageHeight {
		s.pdf.AddPage()
		s.currentY = s.contentTopY
	}
}

func (s *pdfStyler) writeParagraph(text string, styleName string, align string) {
	s.applyStyle(styleName)
	lines := s.pdf.SplitText(text, pdfContentWidth)
	s.checkAddPage(math.Max(1, float64(len(lines))) * s.lineHeight)

	s.pdf.SetXY(pdfMargin, s.currentY)
	s.pdf.MultiCell(pdfContentWidth, s.lineHeight, text, "", align, false)
	s.currentY = s.pdf.GetY() // Update Y based on what MultiCell consumed
	s.currentY += 1           // Small gap after paragraph
}

func (s *pdfStyler) addSpacer(height float64) {
	s.checkAddPage(height)
	s.currentY += height
	if s.currentY > s.pageHeight {
		s.pdf.AddPage()
		s.currentY = s.contentTopY
	}
}

func (s *pdfStyler) addImage(imageBytes []byte, imageName string, width float64, height float64, caption string, styleName string) {
	// imageName is the registration key gofpdf uses to place the image.
	info := s.pdf.RegisterImageReader(imageName, "PNG", bytes.NewReader(imageBytes))
	if info == nil || s.pdf.Err() {
		slog.Warn("report: image not registered", "image", imageName, "err", s.pdf.Error())
		s.pdf.ClearError()
		return
	}

	if width == 0 {
		width = pdfContentWidth / 2
	}
	if height == 0 {
		height = width * info.Height() / info.Width()
	}

	if width > pdfContentWidth {
		ratio := pdfContentWidth / width
		width = pdfContentWidth
		height *= ratio
	}

	captionHeight := 0.0
	if caption != "" {
		captionHeight = s.lineHeight + 1
	}
	s.checkAddPage(height + captionHeight)

	s.pdf.Image(imageName, pdfMargin, s.currentY, width, height, false, "PNG", 0, "")
	s.currentY += height

	if caption != "" {
		s.addSpacer(1)
		s.writeParagraph(caption, styleName, "C")
	}
	s.addSpacer(2)
}

// writeTable draws a header row and body rows sized by relative widths.
// Cells in redCols use the warning style.
func (s *pdfStyler) writeTable(headers []string, widthsRel []float64, rows [][]string, redCols map[int]bool) {
	widths := make([]float64, len(widthsRel))
	for i, rel := range widthsRel {
		widths[i] = rel * pdfContentWidth
	}

	header := func() {
		sX := pdfMargin
		s.applyStyle("tableHeader")
		for i, h := range headers {
			s.pdf.SetXY(sX, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, h, "1", 0, "C", true, 0, "")
			sX += widths[i]
		}
		s.currentY += s.lineHeight
	}

	s.checkAddPage(s.lineHeight * math.Min(float64(len(rows))+1, 10))
	header()
	for _, row := range rows {
		if s.currentY+s.lineHeight > s.pageHeight {
			s.pdf.AddPage()
			s.currentY = s.contentTopY
			header()
		}
		sX := pdfMargin
		for i, cell := range row {
			if redCols[i] {
				s.applyStyle("tableCellRed")
			} else {
				s.applyStyle("tableCell")
			}
			s.pdf.SetXY(sX, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, cell, "1", 0, "C", false, 0, "")
			sX += widths[i]
		}
		s.currentY += s.lineHeight
	}
}

func (s *pdfStyler) newPage() {
	s.pdf.AddPage()
	s.currentY = s.contentTopY
}

// Plot image keys understood by BuildPDFReport.
const (
	PlotTimeline   = "timeline"
	PlotActiveTime = "active_time"
	PlotHeatmap    = "heatmap_distribution"
)

// DistributionPlotKey is the image key of a column's bar chart.
func DistributionPlotKey(column string) string {
	return "distribution_" + column
}

// BuildPDFReport creates the PDF report: a Cycles section, module check
// warnings, the Distribution summary, optional span statistics and the
// plots found in plotImages.
func BuildPDFReport(filepath string, res *analysis.Results, plotImages map[string][]byte) error {
	pdf := gofpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetTitle("Life Test Report", true)
	pdf.AddPage()

	styler := newPDFStyler(pdf)

	styler.writeParagraph("Life Test Report", "h1", "C")
	styler.addSpacer(5)

	if res == nil {
		styler.writeParagraph("No analysis results to display.", "normal", "L")
		return pdf.OutputFileAndClose(filepath)
	}
	styler.writeParagraph(fmt.Sprintf("Session %s", res.SessionID), "normal", "L")
	styler.addSpacer(3)

	rec := res.Cycle
	styler.writeParagraph("Cycles", "h2", "L")
	if res.CumulatedFrom != "" {
		styler.writeParagraph(fmt.Sprintf("Totals include the earlier runs exported to %s.", res.CumulatedFrom), "normal", "L")
	}
	cycleRows := make([][]string, 0, len(res.Cycles))
	for _, c := range res.Cycles {
		activeRows := "-"
		if c.Spec == rec.Spec {
			activeRows = strconv.Itoa(res.ActiveRows)
		}
		cycleRows = append(cycleRows, []string{
			c.Spec.Channel,
			strconv.FormatFloat(c.Spec.Threshold, 'g', -1, 64),
			c.Boundary.String(),
			strconv.Itoa(c.Result.Count),
			FormatHMS(c.Result.ActiveTime),
			activeRows,
		})
	}
	styler.writeTable(
		[]string{"Channel", "Threshold", "Boundary", "Cycles", "Active time (h:m:s)", "Active rows"},
		[]float64{0.25, 0.12, 0.18, 0.1, 0.2, 0.15},
		cycleRows,
		nil,
	)
	styler.writeParagraph(fmt.Sprintf("Log cleaned with %s at threshold %g.", rec.Spec.Channel, rec.Spec.Threshold), "normal", "L")
	styler.addSpacer(5)

	styler.writeParagraph("Module Check", "h2", "L")
	if len(res.Faults) > 0 {
		rows := make([][]string, 0, len(res.Faults))
		for _, f := range res.Faults {
			ranges := ""
			for i, r := range f.SuspectRanges {
				if i > 0 {
					ranges += ", "
				}
				ranges += r.String()
			}
			rows = append(rows, []string{f.Channel, ranges})
		}
		styler.writeParagraph("Module possibly faulty: redundant modules disagree and the channel drops to zero.", "normal", "L")
		styler.writeTable([]string{"Channel", "Suspect sample ranges"}, []float64{0.25, 0.75}, rows, map[int]bool{0: true})
	} else {
		styler.writeParagraph("No module faults detected.", "normal", "L")
	}
	styler.addSpacer(5)

	styler.writeParagraph("Distribution", "h2", "L")
	styler.writeParagraph(fmt.Sprintf("%d bins of width %g starting at %g, over %s of active time.",
		res.Bins.Count, res.Bins.Width, res.Bins.Min, FormatHMS(res.Scanned)), "normal", "L")
	if len(res.Columns) > 0 {
		rows := make([][]string, 0, len(res.Columns))
		for _, col := range res.Columns {
			gate := col.Gate
			if gate == "" {
				gate = "-"
			}
			rows = append(rows, []string{
				col.Name,
				gate,
				formatValue(res.Bins.MeanValue(col.Summary), 3),
				strconv.FormatFloat(col.Summary.TotalHours, 'f', 3, 64),
				FormatHMS(col.Distribution.Undefined),
			})
		}
		styler.writeTable(
			[]string{"Column", "Gate", "Mean value", "Time (h)", "Undefined (h:m:s)"},
			[]float64{0.3, 0.2, 0.15, 0.15, 0.2},
			rows, nil,
		)
	} else {
		styler.writeParagraph("No distribution columns selected.", "normal", "L")
	}
	styler.addSpacer(5)

	if len(res.Spans) > 0 {
		styler.writeParagraph("Span Statistics", "h2", "L")
		rows := make([][]string, 0, len(res.Spans))
		for _, sp := range res.Spans {
			rows = append(rows, []string{
				sp.Channel,
				formatValue(sp.Mean, 3),
				formatValue(sp.Max, 3),
				formatValue(sp.Min, 3),
				formatValue(sp.PeakToPeak, 3),
			})
		}
		styler.writeTable(
			[]string{"Channel", "Mean", "Max", "Min", "Peak-to-peak"},
			[]float64{0.3, 0.175, 0.175, 0.175, 0.175},
			rows, nil,
		)
	}

	if len(plotImages) > 0 {
		styler.newPage()
		styler.writeParagraph("Graphical Analysis", "h1", "C")
		styler.addSpacer(5)

		imgWidth := pdfContentWidth * 0.8
		imgHeight := imgWidth * (4.0 / 8.0)

		plotDefs := []struct {
			Key     string
			Caption string
		}{
			{PlotTimeline, fmt.Sprintf("%s with threshold %g", rec.Spec.Channel, rec.Spec.Threshold)},
			{PlotActiveTime, "Accumulated active time against elapsed time"},
			{PlotHeatmap, "Time distribution of all columns (h)"},
		}
		for _, col := range res.Columns {
			plotDefs = append(plotDefs, struct {
				Key     string
				Caption string
			}{DistributionPlotKey(col.Name), fmt.Sprintf("%s time distribution", col.Name)})
		}

		for _, pDef := range plotDefs {
			imgBytes, ok := plotImages[pDef.Key]
			if !ok || len(imgBytes) == 0 {
				continue
			}
			if pDef.Key == PlotHeatmap {
				styler.addImage(imgBytes, pDef.Key, pdfContentWidth, 0, pDef.Caption, "normal")
				continue
			}
			styler.addImage(imgBytes, pDef.Key, imgWidth, imgHeight, pDef.Caption, "normal")
		}
	}

	return pdf.OutputFileAndClose(filepath)
}
