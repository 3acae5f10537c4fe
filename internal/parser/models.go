package parser

import "github.com/user/lifetest_analyzer_go/internal/series"

// DefaultPadLimit is how many consecutive missing samples are forward filled
// during import.
const DefaultPadLimit = 3

// zeroBackfillLimit is how many trailing zeros of a zero run are replaced by
// the next reading; loggers emit isolated zeros on dropped frames.
const zeroBackfillLimit = 1

// ParsedLog holds a normalized log and the non-fatal issues found while
// importing it.
type ParsedLog struct {
	Table        *series.Table
	MixedColumns []string // columns holding non-numeric cells, coerced to missing
	GapColumns   []string // columns still holding missing samples after padding
	ParseErrors  []string // row-level warnings
}

// NewParsedLog returns an empty ParsedLog.
func NewParsedLog() *ParsedLog {
	return &ParsedLog{
		Table:        series.NewTable(),
		MixedColumns: make([]string, 0),
		GapColumns:   make([]string, 0),
		ParseErrors:  make([]string, 0),
	}
}

// Options tunes the import normalization.
type Options struct {
	PadLimit int
}

// droppedColumns carry logger bookkeeping, not measurements.
var droppedColumns = []string{"Time", "RelTime", "Condition"}

// dateLayouts are tried in order; day-first layouts precede ISO ones.
var dateLayouts = []string{
	"02/01/2006 15:04:05.000",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02.01.2006 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"2006-01-02",
}
