package vertex

import "errors"

var (
	// ErrOwnerNotVertex is an invariant violation: an incounter's root
	// annotation was not a Vertex when its tree reached zero.
	ErrOwnerNotVertex = errors.New("vertex: incounter owner is not a Vertex")
	// ErrMarkerStackEmpty reports that Promote was called with no mark
	// frame available to split.
	ErrMarkerStackEmpty = errors.New("vertex: no mark frame to promote")
	// ErrSplitNotEnoughStrands reports Split being asked for more strands
	// than a loop frame currently holds.
	ErrSplitNotEnoughStrands = errors.New("vertex: split requested more strands than available")
	// ErrAsyncWithoutFinish reports an Async call outside any Finish scope.
	ErrAsyncWithoutFinish = errors.New("vertex: async called without an enclosing finish")
)
