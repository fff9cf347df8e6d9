// Package vertex implements the runtime's unit of schedulable work: a
// vertex owns a cactus stack of suspended frames, an incounter counting
// its unresolved dependencies, and an outset of dependents to notify once
// it completes. Two independently complete flavors are provided: CFGVertex
// interprets a small control-flow-graph form with promotable fork/join
// points, and NativeVertex runs ordinary Go code that calls Async/Finish
// and yields at explicit heartbeat checks.
package vertex

import (
	"sync/atomic"

	"github.com/outsetrun/heartbeat/gsnzi"
	"github.com/outsetrun/heartbeat/outset"
)

// Vertex is the scheduler-facing contract both flavors satisfy.
type Vertex interface {
	// NbStrands reports how many independent strands of work remain: 0
	// once the vertex has nothing left to run, 1 for ordinary sequential
	// work, and >=1 for a frame representing a splittable parallel loop.
	NbStrands() int
	// Run executes until fuel is exhausted, the vertex suspends on an
	// unresolved dependency (returning SuspendTag), or it finishes
	// (returning a non-negative remainder less than the fuel it was
	// given). fuel must be >= 1.
	Run(fuel int) int
	// Split divides a multi-strand vertex into two vertices each holding
	// roughly half of the remaining strands. Only called when NbStrands
	// reports >= 2.
	Split(nb int) (Vertex, Vertex)

	edges() *Base
}

// SuspendTag is the sentinel Run returns when a vertex has parked itself
// on an outset and must not be rescheduled until that outset's drain
// resolves its incounter.
const SuspendTag = -1

// Base is the common state every vertex embeds: its incounter (In), its
// outset of dependents (Out), and the handle releasing it created for
// itself at construction (ReleaseHandle) — held until the creator finishes
// wiring in-edges and calls Release.
type Base struct {
	In            *gsnzi.Incounter
	Out           outset.Outset
	ReleaseHandle *gsnzi.Node
}

func (b *Base) edges() *Base { return b }

var edgeKeys atomic.Uint64

func nextEdgeKey() uint64 { return edgeKeys.Add(1) }

// NewBase constructs a Base owned by owner, with out as its dependent bag.
// The returned Base already holds one self-reference (ReleaseHandle);
// Release must be called once the owner has finished wiring in-edges.
func NewBase(owner Vertex, cfg gsnzi.Config, out outset.Outset) Base {
	b := Base{In: gsnzi.NewIncounter(cfg, owner), Out: out}
	b.ReleaseHandle = b.In.Increment(0)
	return b
}

var schedulerHook atomic.Pointer[func(Vertex)]

// SetScheduler installs the callback invoked whenever a vertex's incounter
// reaches zero — ordinarily the worker pool's dispatch function, installed
// by scheduler.LaunchWithTuning. Vertex intentionally does not import the scheduler
// package directly, to keep the dependency pointing the one natural way.
func SetScheduler(f func(Vertex)) {
	schedulerHook.Store(&f)
}

func schedule(owner any) {
	v, ok := owner.(Vertex)
	if !ok {
		panic(ErrOwnerNotVertex)
	}
	if f := schedulerHook.Load(); f != nil {
		(*f)(v)
	}
}

// NewEdge wires a dependency: to will not be scheduled until from has
// completed and drained this edge. If from has already been released and
// drained (its outset sealed) by the time this call arrives, the edge is
// resolved immediately instead of being lost.
func NewEdge(from, to Vertex) {
	h := to.edges().In.Increment(nextEdgeKey())
	if !from.edges().Out.Insert(h) {
		gsnzi.Decrement(h, schedule)
	}
}

// Release removes v's self-reference, making it eligible to run the
// moment every other in-edge wired against it has also resolved.
func Release(v Vertex) {
	gsnzi.Decrement(v.edges().ReleaseHandle, schedule)
}

// DrainOutset notifies every dependent registered in v's outset that v has
// completed, decrementing the corresponding incounter handle on each.
// Called once, when a vertex's Run reports that it has finished.
func DrainOutset(v Vertex) {
	v.edges().Out.NotifyInit(func(item outset.Item) {
		h := item.(*gsnzi.Node)
		gsnzi.Decrement(h, schedule)
	})
}

// SuspendOn registers v as a dependent of an externally owned outset
// (e.g. a producer vertex's outset, or a future's) and reports whether the
// registration took hold. It returns false when the producer's outset was
// already drained: the dependency has resolved, the edge just added is
// withdrawn without scheduling v, and the caller keeps running instead of
// suspending.
func SuspendOn(v Vertex, producer outset.Outset) (suspended bool) {
	h := v.edges().In.Increment(nextEdgeKey())
	if producer.Insert(h) {
		return true
	}
	h.Decrement()
	return false
}
