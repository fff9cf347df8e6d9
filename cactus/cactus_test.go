package cactus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFrame struct {
	name    string
	strands int
}

func (f *testFrame) NbStrands() int { return f.strands }

func frame(name string) *testFrame { return &testFrame{name: name, strands: 1} }

func TestPushPopRoundTrip(t *testing.T) {
	s := NewStack()
	require.True(t, s.Empty())

	s.Push(LinkSync, frame("A"))
	s.Push(LinkSync, frame("B"))
	s.Push(LinkSync, frame("C"))

	require.Equal(t, "C", s.PeekNewest().(*testFrame).name)
	require.Equal(t, "A", s.PeekOldest().(*testFrame).name)

	got := s.Pop().(*testFrame)
	assert.Equal(t, "C", got.name)
	got = s.Pop().(*testFrame)
	assert.Equal(t, "B", got.name)
	got = s.Pop().(*testFrame)
	assert.Equal(t, "A", got.name)

	assert.True(t, s.Empty())
}

func TestPushPopManyChunks(t *testing.T) {
	s := NewStack()
	const n = chunkCap*3 + 5
	for i := 0; i < n; i++ {
		s.Push(LinkSync, &testFrame{strands: 1})
	}
	for i := 0; i < n; i++ {
		s.Pop()
	}
	assert.True(t, s.Empty())
}

func TestPopOfEmptyPanics(t *testing.T) {
	s := NewStack()
	assert.PanicsWithValue(t, ErrPopEmpty, func() { s.Pop() })
}

// TestCactusFork is boundary scenario 6 of the spec: push A, B, C; fork at
// the oldest frame; push D on one arm, E on the other; pop the new leaves.
// A and B stay shared between the two arms; the chunk holding C gains a
// reference on fork and loses exactly one once the s1 arm is fully drained.
func TestCactusFork(t *testing.T) {
	s := NewStack()
	s.Push(LinkSync, frame("A"))
	s.Push(LinkSync, frame("B"))
	s.Push(LinkSync, frame("C"))

	sharedChunk := s.fp.chunk
	require.EqualValues(t, 1, sharedChunk.refcount)

	s1, s2 := s.ForkFront()
	assert.EqualValues(t, 2, sharedChunk.refcount, "chunk containing C gains a reference on fork")
	assert.Equal(t, "A", s1.PeekNewest().(*testFrame).name)
	assert.Equal(t, "C", s2.PeekNewest().(*testFrame).name)
	assert.Equal(t, "B", s2.PeekOldest().(*testFrame).name)

	s1.Push(LinkSync, frame("D"))
	s2.Push(LinkSync, frame("E"))

	assert.Equal(t, "D", s1.Pop().(*testFrame).name)
	assert.Equal(t, "E", s2.Pop().(*testFrame).name)

	// arm 1: pop A, fully draining it; its arena (a fresh branch chunk,
	// allocated when D's chunk was vacated) differs from the shared chunk,
	// so this drop does decrement the shared chunk's refcount.
	assert.Equal(t, "A", s1.Pop().(*testFrame).name)
	assert.True(t, s1.Empty())
	assert.EqualValues(t, 1, sharedChunk.refcount)

	// arm 2: pop C then B, fully draining it too; s2 never allocated a new
	// chunk (it wrote E directly into the still-shared trunk chunk), so its
	// write arena still equals the chunk being vacated and this drop does
	// NOT decrement further.
	assert.Equal(t, "C", s2.Pop().(*testFrame).name)
	assert.Equal(t, "B", s2.Pop().(*testFrame).name)
	assert.True(t, s2.Empty())
	assert.EqualValues(t, 1, sharedChunk.refcount)
}

func TestForkFrontSingleFrame(t *testing.T) {
	s := NewStack()
	s.Push(LinkSync, frame("only"))
	s1, s2 := s.ForkFront()
	assert.True(t, s2.Empty())
	assert.Equal(t, "only", s1.PeekNewest().(*testFrame).name)
}

func TestIsMarkAndPeekMark(t *testing.T) {
	s := NewStack()
	s.Push(LinkSync, frame("A"))
	assert.False(t, s.IsMark())

	s.Push(LinkAsync, frame("fork-site"))
	assert.True(t, s.IsMark())

	mark, pred := s.PeekMark()
	require.NotNil(t, mark)
	assert.Equal(t, "fork-site", mark.(*testFrame).name)
	require.NotNil(t, pred)
	assert.Equal(t, "A", pred.(*testFrame).name)

	s.Push(LinkSync, &testFrame{name: "loop", strands: 4})
	mark, pred = s.PeekMark()
	assert.Equal(t, "fork-site", mark.(*testFrame).name)
	assert.Equal(t, "A", pred.(*testFrame).name)
}

func TestRefcountUnderflowPanics(t *testing.T) {
	c := newStacklet(trunkTag, nil)
	decrRefcount(c)
	assert.Panics(t, func() { decrRefcount(c) })
}
