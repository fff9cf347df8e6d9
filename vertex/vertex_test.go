package vertex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outsetrun/heartbeat/gsnzi"
	"github.com/outsetrun/heartbeat/outset"
)

// driver is a minimal single-threaded stand-in for the scheduler: it keeps
// a FIFO of ready vertices and runs each to either suspension, fuel
// exhaustion (requeued), or completion. It is sufficient for these tests
// because every schedule() call a CFGVertex or NativeVertex makes here
// happens synchronously within the driver's own Run call, never from a
// goroutine the driver isn't currently blocked waiting on.
type driver struct {
	queue []Vertex
}

func newDriver(t *testing.T) *driver {
	d := &driver{}
	SetScheduler(func(v Vertex) { d.queue = append(d.queue, v) })
	t.Cleanup(func() { SetScheduler(func(Vertex) {}) })
	return d
}

// runUntil drives the queue until done reports true, failing the test if
// the queue empties first (a stall — nothing left that could make
// progress toward done).
func (d *driver) runUntil(t *testing.T, done func() bool) {
	t.Helper()
	for !done() {
		if len(d.queue) == 0 {
			t.Fatalf("driver stalled: queue empty before completion")
		}
		v := d.queue[0]
		d.queue = d.queue[1:]
		if r := v.Run(1 << 20); r == 0 {
			d.queue = append(d.queue, v)
		}
	}
}

func smallCfg() gsnzi.Config { return gsnzi.Config{Height: 3} }

type fibEnv struct {
	n           int
	out         *int
	left, right int
}

func fibProgram() *Program {
	return &Program{Blocks: []Block{
		{ // 0: n < 2 ?
			Kind: Cond,
			Cond: func(e any) int {
				if e.(*fibEnv).n < 2 {
					return 1
				}
				return 2
			},
		},
		{ // 1: base case
			Kind: Step,
			Effect: func(e any) {
				env := e.(*fibEnv)
				*env.out = env.n
			},
			Next: 5,
		},
		{ // 2: fork left
			Kind: Spawn2Join,
			Spawn: func(e any) (*Program, any) {
				env := e.(*fibEnv)
				return fibProgram(), &fibEnv{n: env.n - 1, out: &env.left}
			},
			Next: 3,
		},
		{ // 3: fork right
			Kind: Spawn2Join,
			Spawn: func(e any) (*Program, any) {
				env := e.(*fibEnv)
				return fibProgram(), &fibEnv{n: env.n - 2, out: &env.right}
			},
			Next: 4,
		},
		{ // 4: combine
			Kind: Step,
			Effect: func(e any) {
				env := e.(*fibEnv)
				*env.out = env.left + env.right
			},
			Next: 5,
		},
		{Kind: Return}, // 5
	}}
}

// waitFor builds a trivial NativeVertex wired as a dependent of v, so the
// driver can tell when v (and everything it transitively forked inline)
// has finished.
func waitFor(v Vertex) (wait *NativeVertex) {
	w := NewNativeVertex(smallCfg(), outset.NewSimple(), func(ctx *Context) {})
	NewEdge(v, w)
	Release(w)
	return w
}

func TestCFGFibSingleWorker(t *testing.T) {
	d := newDriver(t)

	var result int
	root := NewCFGVertex(smallCfg(), outset.NewSimple(), fibProgram(), &fibEnv{n: 5, out: &result})
	w := waitFor(root)
	Release(root)

	d.runUntil(t, func() bool { return w.NbStrands() == 0 })
	assert.Equal(t, 5, result)
}

func TestCFGPromoteSplitsOldestMark(t *testing.T) {
	d := newDriver(t)

	var result int
	root := NewCFGVertex(smallCfg(), outset.NewSimple(), fibProgram(), &fibEnv{n: 5, out: &result})
	w := waitFor(root)
	Release(root)

	// Run one fuel-limited tick so the root has pushed at least one
	// async-linked frame, making the oldest frame on its stack a mark.
	require.Equal(t, 0, root.Run(1))

	branch, ok := root.Promote()
	if !ok {
		t.Skip("oldest frame was not yet a promotable mark after one tick")
	}
	require.NotNil(t, branch)

	d.queue = append(d.queue, root, branch)
	d.runUntil(t, func() bool { return w.NbStrands() == 0 })
	assert.Equal(t, 5, result)
}

func TestNativeFinishAsync(t *testing.T) {
	newDriver(t)

	var sum int
	root := NewNativeVertex(smallCfg(), outset.NewSimple(), func(ctx *Context) {
		ctx.Finish(func() {
			for i := 1; i <= 4; i++ {
				i := i
				ctx.Async(func() { sum += i })
			}
		})
		sum *= 10
	})
	w := waitFor(root)
	Release(root)

	d := &driver{}
	SetScheduler(func(v Vertex) { d.queue = append(d.queue, v) })
	d.queue = append(d.queue, root)
	d.runUntil(t, func() bool { return w.NbStrands() == 0 })

	assert.Equal(t, 100, sum)
}

func TestNativeAsyncWithoutFinishPanics(t *testing.T) {
	newDriver(t)
	root := NewNativeVertex(smallCfg(), outset.NewSimple(), func(ctx *Context) {
		assert.PanicsWithValue(t, ErrAsyncWithoutFinish, func() {
			ctx.Async(func() {})
		})
	})
	w := waitFor(root)
	Release(root)

	d := &driver{}
	SetScheduler(func(v Vertex) { d.queue = append(d.queue, v) })
	d.queue = append(d.queue, root)
	d.runUntil(t, func() bool { return w.NbStrands() == 0 })
}

func TestTrivialLoopSplitRunsWholeRange(t *testing.T) {
	d := newDriver(t)

	var touched []int
	var mu = make(chan struct{}, 1)
	mu <- struct{}{}
	record := func(lo, hi int) {
		<-mu
		for i := lo; i < hi; i++ {
			touched = append(touched, i)
		}
		mu <- struct{}{}
	}

	prog := &Program{Blocks: []Block{
		{Kind: SpawnLoop, Loop: func(e any) *LoopFrame {
			return NewTrivialLoopFrame(0, 10, 2, record)
		}, Next: 1},
		{Kind: Return},
	}}

	root := NewCFGVertex(smallCfg(), outset.NewSimple(), prog, nil)
	w := waitFor(root)
	Release(root)

	// Split once before driving to completion, mimicking a scheduler that
	// steals the second half of the loop onto another worker.
	require.Equal(t, 0, root.Run(1))
	require.Equal(t, 5, root.NbStrands())
	v1, v2 := root.Split(root.NbStrands())
	d.queue = append(d.queue, v1, v2)

	d.runUntil(t, func() bool { return w.NbStrands() == 0 })

	sum := 0
	seen := map[int]bool{}
	for _, x := range touched {
		require.False(t, seen[x], "iteration %d ran twice", x)
		seen[x] = true
		sum += x
	}
	assert.Len(t, touched, 10)
	assert.Equal(t, 45, sum)
}

func TestCombineLoopSplitSumsPartials(t *testing.T) {
	d := newDriver(t)

	lf := NewCombineLoopFrame(0, 20, 3, 0, func(lo, hi int) any {
		s := 0
		for i := lo; i < hi; i++ {
			s += i
		}
		return s
	}, func(a, b any) any { return a.(int) + b.(int) })

	prog := &Program{Blocks: []Block{
		{Kind: SpawnLoop, Loop: func(e any) *LoopFrame { return lf }, Next: 1},
		{Kind: Return},
	}}

	root := NewCFGVertex(smallCfg(), outset.NewSimple(), prog, nil)
	w := waitFor(root)
	Release(root)

	require.Equal(t, 0, root.Run(1))
	v1, v2 := root.Split(root.NbStrands())
	d.queue = append(d.queue, v1, v2)

	d.runUntil(t, func() bool { return w.NbStrands() == 0 })
	assert.Equal(t, 190, lf.Result())
}
