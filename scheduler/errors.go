package scheduler

import "errors"

var (
	// ErrSplitInsufficientWeight reports a frontier being asked to split
	// off more strand weight than it currently holds.
	ErrSplitInsufficientWeight = errors.New("scheduler: split requested more weight than the frontier holds")
	// ErrInvalidWorkerCount reports Launch being asked to run with fewer
	// than one worker.
	ErrInvalidWorkerCount = errors.New("scheduler: nbWorkers must be >= 1")
)
