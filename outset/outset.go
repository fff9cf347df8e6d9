// Package outset implements the concurrent "outset" bag: a write-many,
// drain-once collection of continuations (incounter handles, in the
// runtime's terms) that a vertex's dependents register themselves into,
// and that gets walked exactly once — when the vertex completes — to wake
// every dependent.
//
// Two implementations exist behind the Outset interface, mirroring the
// original runtime's choice between them: Simple is a single lock-free
// linked stack, cheap to construct and fine for low fan-in; Scalable
// spreads concurrent inserts across per-worker shortcut blocks and a
// lazily grown tree of blocks, avoiding a single contended cache line when
// fan-in is large.
package outset

import "sync/atomic"

// Item is whatever a dependent registers to be notified with — normally an
// incounter handle naming the edge to decrement on release.
type Item any

// Outset is a bag that accepts concurrent Insert calls until NotifyInit
// seals it, at which point it hands every previously-inserted item to a
// visitor exactly once. An Insert that arrives after sealing returns false;
// per the synchronization contract, the caller that lost that race must
// perform whatever action the item would otherwise have received via
// notification itself (self-decrement the edge it was about to register).
type Outset interface {
	Insert(x Item) bool
	NotifyInit(visit func(Item))
}

type simpleNode struct {
	item Item
	next *simpleNode
}

// sealedMarker is a unique, never-dereferenced sentinel used to mark a
// Simple outset's head as sealed — the Go-native substitute for the
// original's low-bit tagged pointer, since Go gives us no bits to steal
// from a real pointer.
var sealedMarker = &simpleNode{}

// Simple is a lock-free singly linked stack of items, sealed by swapping
// its head for a sentinel.
type Simple struct {
	head atomic.Pointer[simpleNode]
}

// NewSimple constructs an empty, unsealed Simple outset.
func NewSimple() *Simple {
	return &Simple{}
}

// Insert pushes x onto the bag. It returns false if the bag has already
// been sealed by NotifyInit.
func (s *Simple) Insert(x Item) bool {
	cell := &simpleNode{item: x}
	for {
		old := s.head.Load()
		if old == sealedMarker {
			return false
		}
		cell.next = old
		if s.head.CompareAndSwap(old, cell) {
			return true
		}
	}
}

// NotifyInit seals the bag against further inserts and visits every item
// that was inserted before sealing, in unspecified order. It must be
// called at most once; a second call panics with ErrDoubleNotify rather
// than silently visiting nothing, since a caller relying on every
// dependent being woken exactly once must know if that contract broke.
func (s *Simple) NotifyInit(visit func(Item)) {
	old := s.head.Swap(sealedMarker)
	if old == sealedMarker {
		panic(ErrDoubleNotify)
	}
	for old != nil {
		visit(old.item)
		old = old.next
	}
}
