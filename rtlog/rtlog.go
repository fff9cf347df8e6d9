// Package rtlog is the runtime's structured logging facade: a package-level
// logger variable plus SetLogger, mirroring eventloop's
// SetStructuredLogger/getGlobalLogger split, but built directly on
// logiface/stumpy rather than a hand-rolled Logger interface.
package rtlog

import (
	"os"
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var (
	mu     sync.RWMutex
	logger = stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
		stumpy.L.WithLevel(logiface.LevelInformational),
	)
)

// SetLogger replaces the package-level logger used by every logging helper
// below. It is safe to call concurrently with logging calls.
func SetLogger(l *logiface.Logger[*stumpy.Event]) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func current() *logiface.Logger[*stumpy.Event] {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// StealGranted logs a steal request being satisfied, naming the thief, the
// victim, and the weight of the shard handed over.
func StealGranted(thief, victim, weight int) {
	current().Debug().Int(`thief`, thief).Int(`victim`, victim).Int(`weight`, weight).Log(`steal granted`)
}

// StealRejected logs a steal request being turned down.
func StealRejected(thief, victim int) {
	current().Debug().Int(`thief`, thief).Int(`victim`, victim).Log(`steal rejected`)
}

// Promotion logs a suspended computation being promoted to a separate
// vertex at a heartbeat.
func Promotion(workerID int) {
	current().Debug().Int(`worker`, workerID).Log(`promotion`)
}

// VertexReleased logs a vertex's incounter reaching zero and becoming
// runnable.
func VertexReleased(workerID int) {
	current().Trace().Int(`worker`, workerID).Log(`vertex released`)
}

// WorkerStarted and WorkerStopped log a worker goroutine's lifecycle, at
// informational level since they are low frequency (one pair per worker per
// Launch call).
func WorkerStarted(workerID int) {
	current().Info().Int(`worker`, workerID).Log(`worker started`)
}

func WorkerStopped(workerID int) {
	current().Info().Int(`worker`, workerID).Log(`worker stopped`)
}
