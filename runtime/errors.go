package runtime

import (
	"errors"
	"fmt"

	"github.com/outsetrun/heartbeat/cactus"
	"github.com/outsetrun/heartbeat/gsnzi"
	"github.com/outsetrun/heartbeat/outset"
	"github.com/outsetrun/heartbeat/scheduler"
)

// InvariantKind names one of the handful of internal conditions the
// runtime treats as a bug rather than a recoverable failure: stack
// corruption, an SNZI counter decremented past zero, an outset notified
// twice, or a frontier split asked for more weight than it holds.
type InvariantKind int

const (
	InvariantStackCorruption InvariantKind = iota
	InvariantCounterUnderflow
	InvariantDoubleNotify
	InvariantOverlargeSplit
)

func (k InvariantKind) String() string {
	switch k {
	case InvariantStackCorruption:
		return "stack corruption"
	case InvariantCounterUnderflow:
		return "counter underflow"
	case InvariantDoubleNotify:
		return "double notify"
	case InvariantOverlargeSplit:
		return "overlarge split"
	default:
		return fmt.Sprintf("invariant(%d)", int(k))
	}
}

// InvariantError wraps one of the conditions above along with the
// underlying error that detected it (typically from gsnzi, outset, cactus,
// or scheduler), so callers that recover from a runtime panic can use
// errors.Is/errors.As against either this type or the wrapped cause.
type InvariantError struct {
	Kind  InvariantKind
	Cause error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("runtime: invariant violated (%s): %v", e.Kind, e.Cause)
}

func (e *InvariantError) Unwrap() error { return e.Cause }

// AsInvariantError reports whether err is (or wraps) an InvariantError,
// returning it if so.
func AsInvariantError(err error) (*InvariantError, bool) {
	var ie *InvariantError
	ok := errors.As(err, &ie)
	return ie, ok
}

// classifyInvariant recognizes the sentinel errors cactus, gsnzi, outset,
// and scheduler panic with at each of §7's four invariant-violation sites,
// wrapping the matching one as an InvariantError. err is returned
// unwrapped if it isn't one of those sentinels (e.g. scheduler's ordinary
// ErrInvalidWorkerCount usage error: ParseArgs and BindFlags do not check
// Proc, so LaunchWithTuning surfaces it directly).
func classifyInvariant(err error) error {
	switch {
	case errors.Is(err, cactus.ErrPopEmpty), errors.Is(err, cactus.ErrPeekEmpty), errors.Is(err, cactus.ErrForkEmpty), errors.Is(err, cactus.ErrRefcountUnderflow):
		return &InvariantError{Kind: InvariantStackCorruption, Cause: err}
	case errors.Is(err, gsnzi.ErrDecrementZero):
		return &InvariantError{Kind: InvariantCounterUnderflow, Cause: err}
	case errors.Is(err, outset.ErrDoubleNotify):
		return &InvariantError{Kind: InvariantDoubleNotify, Cause: err}
	case errors.Is(err, scheduler.ErrSplitInsufficientWeight):
		return &InvariantError{Kind: InvariantOverlargeSplit, Cause: err}
	default:
		return err
	}
}
