package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/outsetrun/heartbeat/gsnzi"
	"github.com/outsetrun/heartbeat/outset"
	"github.com/outsetrun/heartbeat/vertex"
)

// Pool owns a fixed set of workers and the shared counters that span
// them: total steals served, and how many frontier shards steal requests
// have been granted in all (activeShards, which is only ever incremented;
// it takes the place of the original's "active-worker count" but is not
// used for termination, which is detected by waiting on the initial vertex
// instead — see Launch).
type Pool struct {
	workers []*Worker

	dagFreq     int
	sharingFreq int

	nbSteals     atomic.Int64
	activeShards atomic.Int64

	rrIndex atomic.Uint64
}

// NewPool constructs a pool of nbWorkers workers, none yet running, tuned
// with the default D/K constants.
func NewPool(nbWorkers int) (*Pool, error) {
	return NewPoolWithTuning(nbWorkers, D, K)
}

// NewPoolWithTuning constructs a pool with an explicit heartbeat fuel
// grant (dagFreq) and steal-serving weight threshold (sharingFreq),
// matching runtime.Config's DagFreq/SharingFreq knobs.
func NewPoolWithTuning(nbWorkers, dagFreq, sharingFreq int) (*Pool, error) {
	if nbWorkers < 1 {
		return nil, ErrInvalidWorkerCount
	}
	p := &Pool{dagFreq: dagFreq, sharingFreq: sharingFreq}
	p.workers = make([]*Worker, nbWorkers)
	for i := range p.workers {
		p.workers[i] = newWorker(i, p)
	}
	return p, nil
}

// NbSteals reports how many successful steals have occurred since the
// pool was created.
func (p *Pool) NbSteals() int64 { return p.nbSteals.Load() }

// dispatch is installed as the global vertex scheduler hook: it hands v
// to a worker picked round-robin, since a bare Go goroutine carries no
// identity letting it recover "the calling worker" the way a pinned
// OS-thread-per-worker model can (see Worker.incoming's doc comment).
func (p *Pool) dispatch(v vertex.Vertex) {
	idx := int(p.rrIndex.Add(1)-1) % len(p.workers)
	p.workers[idx].enqueue(v)
}

// Launch runs initial to completion (and everything it transitively
// forks or spawns) across the pool's workers, returning once initial and
// every vertex reachable from it have finished. Launch releases initial
// itself, so the caller must not Release it beforehand.
//
// Termination here is tied to initial's own completion rather than a
// pool-wide active-count handshake: a sentinel vertex is wired as
// initial's dependent, and its body firing is the signal every worker
// needs to wind down. This is sound for programs with one root vertex
// (true of every client in cmd/), but does not generalize to a pool fed
// multiple independent roots concurrently — a limitation documented here
// rather than built out, since nothing in this runtime's surface needs
// more than one root per Launch call.
func Launch(nbWorkers int, initial vertex.Vertex) error {
	return LaunchWithTuning(nbWorkers, D, K, initial)
}

// LaunchWithTuning is Launch with an explicit dagFreq/sharingFreq pair,
// for callers (runtime.Launch) that expose those as configuration.
func LaunchWithTuning(nbWorkers, dagFreq, sharingFreq int, initial vertex.Vertex) error {
	p, err := NewPoolWithTuning(nbWorkers, dagFreq, sharingFreq)
	if err != nil {
		return err
	}
	vertex.SetScheduler(p.dispatch)

	done := make(chan struct{})
	sentinel := vertex.NewNativeVertex(gsnzi.Config{Height: 4}, outset.NewSimple(), func(ctx *vertex.Context) {
		close(done)
	})
	vertex.NewEdge(initial, sentinel)
	vertex.Release(sentinel)
	vertex.Release(initial)

	var stop atomic.Bool
	var wg sync.WaitGroup
	panicked := make(chan error, nbWorkers)
	wg.Add(nbWorkers)
	for _, w := range p.workers {
		w := w
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					stop.Store(true)
					panicked <- panicValueToError(r)
				}
			}()
			w.loop(&stop)
		}()
	}

	select {
	case <-done:
	case err := <-panicked:
		stop.Store(true)
		wg.Wait()
		return err
	}
	stop.Store(true)
	wg.Wait()
	select {
	case err := <-panicked:
		return err
	default:
		return nil
	}
}

// panicValueToError converts a recovered panic value into an error,
// preserving it as-is when the panic already carried one (every invariant
// violation in cactus, gsnzi, outset, and scheduler panics with a sentinel
// error value, never a bare string).
func panicValueToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("scheduler: worker panicked: %v", r)
}
