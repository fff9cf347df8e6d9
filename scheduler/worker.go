package scheduler

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/outsetrun/heartbeat/internal/backoff"
	"github.com/outsetrun/heartbeat/rtlog"
	"github.com/outsetrun/heartbeat/rtstats"
	"github.com/outsetrun/heartbeat/vertex"
)

// D is the default heartbeat interval: the fuel grant a worker hands a
// vertex before yielding back to the loop to service steals. K is the
// default minimum frontier weight a worker will honor a steal request at.
// Both are overridable per Pool via NewPoolWithTuning, matching
// runtime.Config's DagFreq/SharingFreq knobs.
const (
	D = 2048
	K = 2 * D
)

const noRequest int64 = -1

// rejectedFrontier is the sentinel a victim stores into a thief's response
// slot to signal "no, keep spinning elsewhere" without allocating per
// rejection; it is never merged into a frontier.
var rejectedFrontier = &Frontier{}

// Worker is one scheduler thread's state: its own frontier, a one-slot
// steal request/response mailbox pair, and the bookkeeping steal-serving
// needs (work done since the request slot was last serviced).
type Worker struct {
	id       int
	pool     *Pool
	frontier *Frontier

	statusBit atomic.Bool
	request   atomic.Int64
	response  atomic.Pointer[Frontier]

	workSinceService int
	rng              *rand.Rand

	// incoming holds vertices handed to this worker from another
	// goroutine (via Pool.dispatch) until the worker's own loop drains
	// them into its frontier. Only the owning goroutine ever touches
	// frontier directly, preserving the single-writer invariant; incoming
	// is the one piece of Worker state written cross-goroutine, guarded
	// by incomingMu rather than left lock-free, since it is off the hot
	// path (a fixed-size mailbox CAS would work too, but contention here
	// is rare enough that a mutex is the simpler, equally correct choice).
	incomingMu sync.Mutex
	incoming   []vertex.Vertex
}

func newWorker(id int, pool *Pool) *Worker {
	w := &Worker{
		id:       id,
		pool:     pool,
		frontier: NewFrontier(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(id)*2654435761)),
	}
	w.request.Store(noRequest)
	return w
}

func (w *Worker) updateStatusBit() {
	w.statusBit.Store(w.frontier.Weight() > 1)
}

// enqueue hands v to this worker from another goroutine; it will be
// merged into the frontier the next time this worker's own loop calls
// drainIncoming.
func (w *Worker) enqueue(v vertex.Vertex) {
	w.incomingMu.Lock()
	w.incoming = append(w.incoming, v)
	w.incomingMu.Unlock()
}

// drainIncoming moves any vertices handed to this worker by other
// goroutines into its frontier. Must only be called from this worker's
// own loop goroutine.
func (w *Worker) drainIncoming() {
	w.incomingMu.Lock()
	pending := w.incoming
	w.incoming = nil
	w.incomingMu.Unlock()
	if len(pending) == 0 {
		return
	}
	for _, v := range pending {
		w.frontier.PushNewest(v)
	}
	w.updateStatusBit()
}

// serveSteal answers a pending request in this worker's own request slot,
// if any, splitting off half the frontier's weight when it is large
// enough to spare and otherwise publishing a rejection. It must only be
// called from this worker's own loop goroutine.
func (w *Worker) serveSteal() {
	j := w.request.Swap(noRequest)
	if j == noRequest {
		return
	}
	weight := w.frontier.Weight()
	k := w.pool.sharingFreq
	var give *Frontier
	if weight > k || (w.workSinceService > k && weight > 1) {
		half := weight / 2
		if half < 1 {
			half = 1
		}
		give = w.frontier.SplitByWeight(half)
		w.pool.activeShards.Add(1)
		w.workSinceService = 0
		w.updateStatusBit()
		rtlog.StealGranted(int(j), w.id, give.Weight())
	} else {
		give = rejectedFrontier
		rtlog.StealRejected(int(j), w.id)
	}
	w.pool.workers[j].response.Store(give)
}

// runTick pops the frontier's newest vertex and gives it one heartbeat's
// worth of fuel, requeueing it if fuel ran out mid-work and dropping it if
// it finished or parked.
func (w *Worker) runTick() {
	v, ok := w.frontier.PopNewest()
	if !ok {
		return
	}
	d := w.pool.dagFreq
	r := v.Run(d)
	rtstats.OnVertexRun(d - max(r, 0))
	switch {
	case r == vertex.SuspendTag:
	case r == 0:
		w.frontier.PushNewest(v)
		w.workSinceService += d
	default:
	}
	w.updateStatusBit()
}

// trySteal picks a random worker reporting stealable work, places a
// request in its slot, and spins on its own response slot — servicing any
// requests addressed to itself while it waits, per the original's
// deadlock-avoidance rule. Returns true if it acquired a non-empty shard.
func (w *Worker) trySteal(stop *atomic.Bool) bool {
	candidates := make([]int, 0, len(w.pool.workers)-1)
	for _, other := range w.pool.workers {
		if other.id != w.id && other.statusBit.Load() {
			candidates = append(candidates, other.id)
		}
	}
	if len(candidates) == 0 {
		return false
	}
	victim := w.pool.workers[candidates[w.rng.Intn(len(candidates))]]
	if !victim.request.CompareAndSwap(noRequest, int64(w.id)) {
		return false
	}

	bo := backoff.New(time.Microsecond, time.Millisecond)
	for {
		f := w.response.Swap(nil)
		if f != nil {
			if f == rejectedFrontier {
				return false
			}
			w.frontier.Merge(f)
			w.updateStatusBit()
			w.pool.nbSteals.Add(1)
			rtstats.OnSteal()
			return true
		}
		w.serveSteal()
		if stop.Load() {
			return false
		}
		bo.Wait()
	}
}

// loop is a worker's main scheduling cycle, run until the pool declares
// termination and this worker's frontier is confirmed empty.
func (w *Worker) loop(stop *atomic.Bool) {
	rtlog.WorkerStarted(w.id)
	defer rtlog.WorkerStopped(w.id)
	for {
		w.drainIncoming()
		if !w.frontier.Empty() {
			w.serveSteal()
			w.runTick()
			continue
		}
		w.serveSteal()
		if stop.Load() {
			w.drainIncoming()
			if w.frontier.Empty() {
				return
			}
			continue
		}
		w.trySteal(stop)
	}
}
