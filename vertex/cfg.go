package vertex

import (
	"github.com/outsetrun/heartbeat/cactus"
	"github.com/outsetrun/heartbeat/gsnzi"
	"github.com/outsetrun/heartbeat/outset"
	"github.com/outsetrun/heartbeat/rtstats"
)

// BlockKind names one of the block shapes the CFG interpreter understands.
type BlockKind int

const (
	// Cond evaluates a predicate over env and jumps to whichever block
	// index it returns.
	Cond BlockKind = iota
	// Step runs a plain side-effecting step, then falls through to Next.
	Step
	// SpawnJoin pushes a sync-linked call: the callee runs to completion
	// (interpreted inline, since it becomes the new top of stack) before
	// this frame resumes at Next.
	SpawnJoin
	// Spawn2Join pushes an async-linked call — the fork site. The pushed
	// frame becomes eligible for heartbeat promotion; barring promotion,
	// it still just runs inline like SpawnJoin, and this frame resumes at
	// Next once it completes.
	Spawn2Join
	// Tail replaces the current frame with a new one (tail-call form).
	Tail
	// Return pops the current frame, resuming its caller.
	Return
	// SpawnPlus starts a self-managed async dependency: the runtime
	// creates and releases a fresh vertex, recording it in the SyncVar
	// reachable through Var so a later JoinPlus can wait on it.
	SpawnPlus
	// JoinPlus blocks (suspending, if necessary) until the vertex started
	// by a prior SpawnPlus through the same SyncVar has completed.
	JoinPlus
	// SpawnMinus is handled exactly like SpawnPlus: the runtime creates and
	// releases a fresh vertex and records it in the SyncVar's Of field. It
	// does not read or set SyncVar.External.
	SpawnMinus
	// JoinMinus blocks on an externally supplied producer outset reached
	// through Var, if one is set.
	JoinMinus
	// SpawnLoop pushes a parallel loop frame built by Loop, which becomes
	// the new top of stack (and a promotable mark once it holds more than
	// one cutoff-sized chunk) until its range, and any siblings split off
	// from it, are exhausted.
	SpawnLoop
)

// ExitPC is not itself a valid block index; Return blocks are the only
// legitimate way to unwind a frame.
const ExitPC = -1

// SyncVar is the "synchronization object" spawn_plus/join_plus and
// spawn_minus/join_minus pass a pointer to in the original design: Of
// names a vertex this runtime created and owns (the Plus flavors);
// External names a producer outset supplied from outside (the Minus
// flavors). At most one is set at a time.
type SyncVar struct {
	Of       Vertex
	External outset.Outset
}

func (sv *SyncVar) producer() outset.Outset {
	if sv.Of != nil {
		return sv.Of.edges().Out
	}
	return sv.External
}

// Block is one instruction of a Program.
type Block struct {
	Kind BlockKind

	Cond   func(env any) int
	Effect func(env any)
	// Spawn produces the callee's program and a freshly constructed
	// environment for it; used by SpawnJoin, Spawn2Join, Tail, SpawnPlus,
	// and SpawnMinus.
	Spawn func(env any) (*Program, any)
	// Var reaches into env for the SyncVar a Plus/Minus block pair
	// shares; used by SpawnPlus, JoinPlus, SpawnMinus, JoinMinus.
	Var func(env any) *SyncVar
	// Loop builds the loop frame for a SpawnLoop block.
	Loop func(env any) *LoopFrame

	Next int
}

// Program is a CFG: a flat slice of blocks addressed by index.
type Program struct {
	Blocks []Block
}

// cfgFrame is the activation record pushed onto a CFGVertex's cactus
// stack: which program it's interpreting, where in that program, and the
// program's private environment.
type cfgFrame struct {
	prog    *Program
	pc      int
	env     any
	strands int
}

func (f *cfgFrame) NbStrands() int { return f.strands }

// CFGVertex interprets a Program over a cactus stack, with fork points
// (Spawn2Join) eligible for heartbeat promotion via Promote.
type CFGVertex struct {
	Base
	cfg   gsnzi.Config
	stack *cactus.Stack
	done  bool
}

// NewCFGVertex constructs a vertex that begins interpreting prog from
// block 0 with the given environment. The caller must still call Release
// once any in-edges it intends to wire (via NewEdge) have been installed.
func NewCFGVertex(cfg gsnzi.Config, out outset.Outset, prog *Program, env any) *CFGVertex {
	v := &CFGVertex{cfg: cfg, stack: cactus.NewStack()}
	v.Base = NewBase(v, cfg, out)
	v.stack.Push(cactus.LinkSync, &cfgFrame{prog: prog, env: env, strands: 1})
	return v
}

// NbStrands reports 0 once the interpreter has nothing left to run, the
// strand count of the oldest mark frame if one exists (a loop frame
// mid-split reports more than one), or 1 otherwise.
func (v *CFGVertex) NbStrands() int {
	if v.done || v.stack.Empty() {
		return 0
	}
	if mark, _ := v.stack.PeekMark(); mark != nil {
		switch f := mark.(type) {
		case *LoopFrame:
			return f.NbStrands()
		case *cfgFrame:
			return f.strands
		}
	}
	return 1
}

// Run interprets blocks until fuel is exhausted, the vertex suspends
// (returning SuspendTag), or the stack empties (returning the unused
// fuel, having already drained the outset).
func (v *CFGVertex) Run(fuel int) int {
	for fuel > 0 {
		if v.stack.Empty() {
			v.done = true
			DrainOutset(v)
			return fuel
		}

		if lf, ok := v.stack.PeekNewest().(*LoopFrame); ok {
			if lf.lo < lf.hi {
				lf.step()
				fuel--
				continue
			}
			if lf.waitIdx < len(lf.pending) {
				sibling := lf.pending[lf.waitIdx]
				if SuspendOn(v, sibling.edges().Out) {
					return SuspendTag
				}
				lf.foldPending()
				lf.waitIdx++
				continue
			}
			v.stack.Pop()
			continue
		}

		fr := v.stack.PeekNewest().(*cfgFrame)
		blk := fr.prog.Blocks[fr.pc]
		fuel--

		switch blk.Kind {
		case SpawnLoop:
			fr.pc = blk.Next
			v.stack.Push(cactus.LinkSync, blk.Loop(fr.env))

		case Return:
			v.stack.Pop()

		case Cond:
			fr.pc = blk.Cond(fr.env)

		case Step:
			blk.Effect(fr.env)
			fr.pc = blk.Next

		case SpawnJoin:
			prog, env := blk.Spawn(fr.env)
			fr.pc = blk.Next
			v.stack.Push(cactus.LinkSync, &cfgFrame{prog: prog, env: env, strands: 1})

		case Spawn2Join:
			prog, env := blk.Spawn(fr.env)
			fr.pc = blk.Next
			v.stack.Push(cactus.LinkAsync, &cfgFrame{prog: prog, env: env, strands: 1})

		case Tail:
			prog, env := blk.Spawn(fr.env)
			v.stack.Pop()
			v.stack.Push(cactus.LinkSync, &cfgFrame{prog: prog, env: env, strands: 1})

		case SpawnPlus, SpawnMinus:
			sv := blk.Var(fr.env)
			prog, env := blk.Spawn(fr.env)
			callee := NewCFGVertex(v.cfg, outset.NewSimple(), prog, env)
			sv.Of = callee
			Release(callee)
			fr.pc = blk.Next

		case JoinPlus, JoinMinus:
			sv := blk.Var(fr.env)
			if producer := sv.producer(); producer != nil {
				if SuspendOn(v, producer) {
					return SuspendTag
				}
			}
			fr.pc = blk.Next
		}
	}
	return 0
}

// Split halves the remaining range of the vertex's loop frame, if its
// oldest mark is one and holds at least two strands, returning this vertex
// (now holding the first half) and a fresh loopVertex for the second half.
// The sibling's self-reference is already dropped, but it is not
// scheduled: the caller places both returned vertices.
// Called only when NbStrands reported >= 2.
func (v *CFGVertex) Split(nb int) (Vertex, Vertex) {
	mark, _ := v.stack.PeekMark()
	lf, ok := mark.(*LoopFrame)
	if !ok || lf.NbStrands() < 2 {
		panic(ErrSplitNotEnoughStrands)
	}
	sibling := lf.split(v.cfg)
	sibling.ReleaseHandle.Decrement()
	return v, sibling
}

// Promote attempts heartbeat promotion at the oldest mark frame. It only
// succeeds when that mark is also the stack's oldest frame overall: the
// sliced-off piece becomes a fresh branch vertex, wired as a predecessor
// of this vertex, which is repurposed as the join continuation and keeps
// running the remainder. A mark with older frames beneath it is reported
// as not promotable. A vertex built by NewCFGVertex keeps its
// single-strand, synchronously linked entry frame (or the Tail frame that
// replaced it) at the bottom of its stack, so Promote reports false for it.
func (v *CFGVertex) Promote() (branch Vertex, ok bool) {
	mark, _ := v.stack.PeekMark()
	if mark == nil {
		return nil, false
	}
	if v.stack.PeekOldest() != mark {
		return nil, false
	}
	s1, s2 := v.stack.ForkFront()
	v.stack = s2

	b := &CFGVertex{cfg: v.cfg, stack: s1}
	b.Base = NewBase(b, v.cfg, outset.NewSimple())

	NewEdge(b, v)
	Release(b)
	rtstats.OnPromotion()
	return b, true
}
