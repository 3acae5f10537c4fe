package analysis

import (
	"errors"

	"github.com/user/lifetest_analyzer_go/internal/series"
)

// Input-shape errors.
var (
	ErrLengthMismatch      = series.ErrLengthMismatch
	ErrNotMonotonic        = series.ErrNotMonotonic
	ErrUnknownChannel      = series.ErrUnknownChannel
	ErrUnbalancedCrossings = errors.New("not enough OFF events for ON events")
	ErrIndexOutOfRange     = errors.New("crossing index out of range")
)

// Configuration errors.
var (
	ErrInvalidThreshold  = errors.New("invalid threshold")
	ErrInvalidBins       = errors.New("invalid bin configuration")
	ErrInvalidLookahead  = errors.New("invalid lookahead")
	ErrInvalidIterations = errors.New("invalid iteration count")
	ErrInvalidSpan       = errors.New("invalid span")
)

// ErrNoCycles is the advisory returned by the session when the cycle
// channel never completes a detectable ON/OFF transition.
var ErrNoCycles = errors.New("no cycles found")
