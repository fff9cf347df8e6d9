package gsnzi

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeIncrementDecrementSingleThreaded(t *testing.T) {
	n := &Node{isRoot: true}
	assert.False(t, n.IsNonzero())

	n.Increment()
	assert.True(t, n.IsNonzero())

	n.Increment()
	assert.True(t, n.IsNonzero())

	assert.False(t, n.Decrement())
	assert.True(t, n.IsNonzero())

	assert.True(t, n.Decrement())
	assert.False(t, n.IsNonzero())
}

func TestDecrementOfZeroPanics(t *testing.T) {
	n := &Node{isRoot: true}
	assert.PanicsWithValue(t, ErrDecrementZero, func() { n.Decrement() })
}

func TestTreePropagatesThroughLeaves(t *testing.T) {
	tr := NewTree(Config{Height: 2, FixedSize: true}, "owner")
	assert.False(t, tr.IsNonzero())

	// reach into the heap directly rather than via TargetOfKey, so the test
	// doesn't depend on the hash spreading two keys to distinct leaves.
	leafA := &tr.heap[tr.nbLeaves]
	leafB := &tr.heap[tr.nbLeaves+1]
	require.NotSame(t, leafA, leafB)

	leafA.Increment()
	assert.True(t, tr.IsNonzero())

	leafB.Increment()
	assert.False(t, leafA.Decrement(), "leaf B is still held up, so the root stays non-zero")
	assert.True(t, tr.IsNonzero())

	leafB.Decrement()
	assert.False(t, tr.IsNonzero())

	assert.Equal(t, "owner", RootAnnotation(leafA))
	assert.Equal(t, "owner", RootAnnotation(leafB))
}

func TestTreeGrowsLazilyOnSaturation(t *testing.T) {
	tr := NewTree(Config{Height: 2}, "owner")
	require.Nil(t, tr.heap)

	target := tr.TargetOfKey(7)
	assert.Same(t, tr.root, target, "below saturation, increments land directly on the root")

	for i := int32(0); i < tr.saturation; i++ {
		tr.root.Increment()
	}
	target = tr.TargetOfKey(7)
	assert.NotNil(t, tr.heap, "crossing the saturation bound materializes the leaf array")
	assert.NotSame(t, tr.root, target)
}

// TestTreeConcurrentIncrementDecrement is boundary scenario 4: 64 goroutines
// each racing 10^5 increment/decrement pairs against a shared tree. Once
// every pair has settled, the root must read zero; the root's state while
// pairs are still in flight is not checked here.
func TestTreeConcurrentIncrementDecrement(t *testing.T) {
	const goroutines = 64
	const pairsPerGoroutine = 100_000

	tr := NewTree(Config{Height: 4}, "owner")

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		g := g
		go func() {
			defer wg.Done()
			leaf := tr.TargetOfKey(uint64(g))
			for i := 0; i < pairsPerGoroutine; i++ {
				leaf.Increment()
				leaf.Decrement()
			}
		}()
	}
	wg.Wait()

	assert.False(t, tr.IsNonzero(), "every increment was paired with a decrement")
}

func TestTreeConcurrentSettlesNonzeroUntilLastDecrement(t *testing.T) {
	const goroutines = 32

	tr := NewTree(Config{Height: 3}, "owner")

	var wg sync.WaitGroup
	wg.Add(goroutines)
	release := make(chan struct{})
	for g := 0; g < goroutines; g++ {
		g := g
		go func() {
			defer wg.Done()
			leaf := tr.TargetOfKey(uint64(g))
			leaf.Increment()
			<-release
			leaf.Decrement()
		}()
	}

	// wait until at least one increment has reached the root before
	// releasing any decrements.
	assert.Eventually(t, func() bool { return tr.IsNonzero() }, time.Second, time.Millisecond)

	close(release)
	wg.Wait()
	assert.False(t, tr.IsNonzero())
}
