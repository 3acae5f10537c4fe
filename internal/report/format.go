package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

// FormatHMS renders d as hours:minutes:seconds. Hours are not wrapped at a
// day, so a 30 hour test reads "30:00:00".
func FormatHMS(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, d/time.Second)
}

func formatValue(v series.Value, prec int) string {
	if !v.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(v.Float, 'f', prec, 64)
}
