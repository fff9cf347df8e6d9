package outset

import "errors"

// ErrInvalidWorkerCount is an invariant violation: a Scalable outset was
// constructed with a worker count outside the supported range.
var ErrInvalidWorkerCount = errors.New("outset: nbWorkers out of range")

// ErrDoubleNotify is an invariant violation: NotifyInit was called on an
// outset that had already been sealed by an earlier NotifyInit call. A
// correct runtime never releases the same vertex twice, so it never
// drains the same outset twice either.
var ErrDoubleNotify = errors.New("outset: notify_init called on an already-sealed outset")
