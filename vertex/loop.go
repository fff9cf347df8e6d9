package vertex

import (
	"sync/atomic"
	"time"

	"github.com/outsetrun/heartbeat/gsnzi"
	"github.com/outsetrun/heartbeat/outset"
)

// LoopJoin selects how a parallel loop's split-off siblings rejoin the
// computation once they complete.
type LoopJoin int

const (
	// TrivialJoin shares one logical continuation across every split-off
	// range with no data to combine — the default for parallel for loops.
	TrivialJoin LoopJoin = iota
	// CombineJoin folds each sibling's partial result into an
	// accumulator through a user-supplied associative operator, for
	// parallel reductions.
	CombineJoin
)

// LoopFrame is a mark frame (NbStrands >= 2 while its range holds more
// than one cutoff-sized chunk) representing a sequential loop eligible
// for promotion into parallel siblings.
type LoopFrame struct {
	lo, hi, cutoff int
	body           func(lo, hi int) any
	kind           LoopJoin
	combine        func(a, b any) any
	acc            any

	pending []*loopVertex
	waitIdx int
}

// NewTrivialLoopFrame builds a parallel-for loop frame: body runs the
// sequential chunk [lo, min(hi, lo+cutoff)) and its return value is
// ignored.
func NewTrivialLoopFrame(lo, hi, cutoff int, body func(lo, hi int)) *LoopFrame {
	return &LoopFrame{lo: lo, hi: hi, cutoff: cutoff, kind: TrivialJoin, body: func(lo, hi int) any {
		body(lo, hi)
		return nil
	}}
}

// NewCombineLoopFrame builds a parallel-reduction loop frame: body
// computes each chunk's partial result, and combine folds a sibling's
// partial result into the running accumulator (seeded at initial) as each
// one completes.
func NewCombineLoopFrame(lo, hi, cutoff int, initial any, body func(lo, hi int) any, combine func(a, b any) any) *LoopFrame {
	return &LoopFrame{lo: lo, hi: hi, cutoff: cutoff, kind: CombineJoin, body: body, combine: combine, acc: initial}
}

// Result returns the accumulator of a CombineJoin loop frame once its
// range, and every sibling it split off, have finished.
func (f *LoopFrame) Result() any { return f.acc }

func (f *LoopFrame) NbStrands() int {
	n := f.hi - f.lo
	if n <= 0 {
		return 0
	}
	steps := (n + f.cutoff - 1) / f.cutoff
	if steps < 1 {
		steps = 1
	}
	return steps
}

// step runs one cutoff-sized chunk of the frame's own remaining range and
// advances lo past it (siblings split off from it may still be
// outstanding — see pending).
func (f *LoopFrame) step() {
	next := min(f.hi, f.lo+f.cutoff)
	partial := f.body(f.lo, next)
	if f.kind == CombineJoin {
		f.acc = f.combine(f.acc, partial)
	}
	f.lo = next
}

// split halves the frame's remaining range, keeping the first half for
// itself and returning a loopVertex for the second half, already recorded
// in pending so the frame waits on it before it is considered fully done.
func (f *LoopFrame) split(cfg gsnzi.Config) *loopVertex {
	mid := f.lo + (f.hi-f.lo)/2
	sibling := newLoopVertex(cfg, f.cutoff, mid, f.hi, f.body, f.kind, f.combine, f.acc)
	f.hi = mid
	f.pending = append(f.pending, sibling)
	return sibling
}

// foldPending combines the result of the sibling a wait just resolved
// against, for CombineJoin frames; a no-op for TrivialJoin, which has no
// data to carry back.
func (f *LoopFrame) foldPending() {
	sibling := f.pending[f.waitIdx]
	if f.kind == CombineJoin {
		f.acc = f.combine(f.acc, sibling.acc)
	}
}

// loopVertex is a standalone vertex for a loop range split off from a
// CFGVertex's loop frame (or from another loopVertex, recursively): it has
// no CFG of its own, just the range, body, and join policy it inherited.
type loopVertex struct {
	Base
	cfg            gsnzi.Config
	lo, hi, cutoff int
	body           func(lo, hi int) any
	kind           LoopJoin
	combine        func(a, b any) any
	acc            any

	pending []*loopVertex
	waitIdx int
	done    bool
}

func newLoopVertex(cfg gsnzi.Config, cutoff, lo, hi int, body func(int, int) any, kind LoopJoin, combine func(any, any) any, initial any) *loopVertex {
	v := &loopVertex{cfg: cfg, lo: lo, hi: hi, cutoff: cutoff, body: body, kind: kind, combine: combine, acc: initial}
	v.Base = NewBase(v, cfg, outset.NewSimple())
	return v
}

func (v *loopVertex) NbStrands() int {
	if v.done {
		return 0
	}
	n := v.hi - v.lo
	if n <= 0 {
		return 0
	}
	steps := (n + v.cutoff - 1) / v.cutoff
	if steps < 1 {
		steps = 1
	}
	return steps
}

func (v *loopVertex) Run(fuel int) int {
	for fuel > 0 {
		if v.lo < v.hi {
			next := min(v.hi, v.lo+v.cutoff)
			partial := v.body(v.lo, next)
			if v.kind == CombineJoin {
				v.acc = v.combine(v.acc, partial)
			}
			v.lo = next
			fuel--
			continue
		}
		if v.waitIdx < len(v.pending) {
			sibling := v.pending[v.waitIdx]
			if SuspendOn(v, sibling.edges().Out) {
				return SuspendTag
			}
			if v.kind == CombineJoin {
				v.acc = v.combine(v.acc, sibling.acc)
			}
			v.waitIdx++
			continue
		}
		v.done = true
		DrainOutset(v)
		return fuel
	}
	return 0
}

func (v *loopVertex) Split(nb int) (Vertex, Vertex) {
	if v.NbStrands() < 2 {
		panic(ErrSplitNotEnoughStrands)
	}
	mid := v.lo + (v.hi-v.lo)/2
	sibling := newLoopVertex(v.cfg, v.cutoff, mid, v.hi, v.body, v.kind, v.combine, v.acc)
	v.hi = mid
	v.pending = append(v.pending, sibling)
	sibling.ReleaseHandle.Decrement()
	return v, sibling
}

// GrainPolicy adaptively sizes loop cutoffs: it widens the chunk when runs
// finish comfortably under the lower time bound, and narrows it when a
// chunk runs over the upper bound without enough iterations to show for
// it — the same feedback loop the original's grain controller callback
// applies, minus its per-worker PRNG-free bookkeeping.
type GrainPolicy struct {
	cutoff atomic.Int64
	lower  time.Duration
	upper  time.Duration
	max    int
}

// NewGrainPolicy constructs a policy starting at the given cutoff, growing
// no larger than max, reacting to chunks running faster than lower or
// slower than upper.
func NewGrainPolicy(initial, max int, lower, upper time.Duration) *GrainPolicy {
	g := &GrainPolicy{lower: lower, upper: upper, max: max}
	g.cutoff.Store(int64(initial))
	return g
}

// Cutoff returns the current recommended chunk size.
func (g *GrainPolicy) Cutoff() int { return int(g.cutoff.Load()) }

// Report feeds back how long a chunk of nbIters iterations took, possibly
// adjusting the cutoff for the next chunk.
func (g *GrainPolicy) Report(elapsed time.Duration, nbIters int) {
	cur := g.cutoff.Load()
	switch {
	case elapsed < g.lower:
		next := cur * 2
		if int(next) > g.max {
			next = int64(g.max)
		}
		g.cutoff.Store(next)
	case elapsed > g.upper && nbIters >= int(cur):
		next := cur / 2
		if next < 1 {
			next = 1
		}
		g.cutoff.Store(next)
	}
}

// DefaultGrainPolicy is a reasonable starting point for loops that don't
// need their own tuning: a 256-iteration cutoff, growing to 65536, reacting
// to chunks finishing in under 10µs or taking over 100µs.
var DefaultGrainPolicy = NewGrainPolicy(256, 65536, 10*time.Microsecond, 100*time.Microsecond)
