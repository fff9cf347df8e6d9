package vertex

import (
	"sync/atomic"

	"github.com/outsetrun/heartbeat/gsnzi"
	"github.com/outsetrun/heartbeat/outset"
)

type runEventKind int

const (
	eventHeartbeat runEventKind = iota
	eventSuspend
	eventDone
)

type runEvent struct {
	kind runEventKind
}

// Context is the handle a NativeVertex's body uses to cooperate with the
// scheduler: Heartbeat is the promotion checkpoint the body must call at
// loop back-edges (the Go-level stand-in for the original's automatic
// promote_if_needed() calls), and Finish/Async implement the nested
// fork-join pattern, each Async body running as its own NativeVertex so it
// competes for workers and fuel like any other unit of work.
type Context struct {
	v     *NativeVertex
	scope *atomic.Int64
}

// Heartbeat consumes one unit of fuel and parks the running goroutine,
// handing control back to the scheduler, once fuel is exhausted. It
// returns once the scheduler resumes this vertex with a fresh fuel grant.
func (c *Context) Heartbeat() {
	v := c.v
	v.fuel--
	if v.fuel <= 0 {
		v.events <- runEvent{kind: eventHeartbeat}
		<-v.resume
	}
}

// Finish runs f, then blocks until every Async call f made (transitively,
// within this Finish's scope) has completed — parking the vertex rather
// than occupying a worker while it waits.
func (c *Context) Finish(f func()) {
	var pending atomic.Int64
	pending.Store(1)
	prev := c.scope
	c.scope = &pending
	f()
	c.scope = prev
	if pending.Add(-1) != 0 {
		for pending.Load() != 0 {
			c.v.events <- runEvent{kind: eventSuspend}
			<-c.v.resume
		}
	}
}

// Async schedules f to run as an independent vertex, counted against the
// innermost enclosing Finish's completion count. It panics if called
// outside of a Finish scope, mirroring the original's assertion that an
// async call's finish pointer is never null.
func (c *Context) Async(f func()) {
	if c.scope == nil {
		panic(ErrAsyncWithoutFinish)
	}
	scope := c.scope
	scope.Add(1)
	owner := c.v
	child := NewNativeVertex(owner.cfg, outset.NewSimple(), func(_ *Context) { f() })
	child.onDone = func() {
		if scope.Add(-1) == 0 {
			schedule(owner)
		}
	}
	Release(child)
}

// NativeVertex runs an ordinary Go function, parking its goroutine at
// Heartbeat/Finish checkpoints instead of running to completion in one
// shot — the goroutine-plus-channel substitute for the original's
// register-context-switch trampoline.
type NativeVertex struct {
	Base
	cfg    gsnzi.Config
	body   func(ctx *Context)
	onDone func()

	events  chan runEvent
	resume  chan struct{}
	fuel    int
	started bool
	done    bool
}

// NewNativeVertex constructs a vertex that will run body, starting the
// first time Run is called. The caller must still call Release once any
// in-edges it intends to wire have been installed.
func NewNativeVertex(cfg gsnzi.Config, out outset.Outset, body func(ctx *Context)) *NativeVertex {
	v := &NativeVertex{
		cfg:    cfg,
		body:   body,
		events: make(chan runEvent),
		resume: make(chan struct{}),
	}
	v.Base = NewBase(v, cfg, out)
	return v
}

// NbStrands reports 1 while the body is running or not yet started, 0
// once it has completed. Native vertices do not support loop splitting —
// Split always panics for them, as in the original.
func (v *NativeVertex) NbStrands() int {
	if v.done {
		return 0
	}
	return 1
}

// Run hands the vertex a fresh fuel grant and blocks until it either
// exhausts that fuel at a Heartbeat checkpoint (returning 0), suspends
// inside a Finish (returning SuspendTag), or completes (returning the
// unused fuel, having already drained the outset).
func (v *NativeVertex) Run(fuel int) int {
	v.fuel = fuel
	if !v.started {
		v.started = true
		go func() {
			ctx := &Context{v: v}
			v.body(ctx)
			v.events <- runEvent{kind: eventDone}
		}()
	} else {
		v.resume <- struct{}{}
	}

	ev := <-v.events
	switch ev.kind {
	case eventDone:
		v.done = true
		DrainOutset(v)
		if v.onDone != nil {
			v.onDone()
		}
		return v.fuel
	case eventSuspend:
		return SuspendTag
	default:
		return 0
	}
}

// Split always panics: a NativeVertex never reports NbStrands() >= 2, so
// the scheduler never has cause to call it.
func (v *NativeVertex) Split(nb int) (Vertex, Vertex) {
	panic(ErrSplitNotEnoughStrands)
}

// Current returns the vertex currently executing on the calling
// goroutine's Context. It exists for parity with the original's
// my_vertex(); callers that already hold their Context should prefer that.
func Current(ctx *Context) *NativeVertex { return ctx.v }
