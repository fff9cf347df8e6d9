// Package scheduler implements the work-stealing scheduler: a fixed pool
// of workers, each holding a local frontier of runnable vertices, with a
// one-slot request/response mailbox pair driving steals between them.
package scheduler

import "github.com/outsetrun/heartbeat/vertex"

// Frontier is a per-worker weighted sequence of runnable vertices. Newest
// entries are popped and run first (LIFO), matching the original's
// locality preference for the work the producing worker just created.
// Weight, for splitting purposes, is the sum of every entry's NbStrands.
type Frontier struct {
	entries []vertex.Vertex
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier { return &Frontier{} }

// Empty reports whether the frontier currently holds no vertices.
func (f *Frontier) Empty() bool { return len(f.entries) == 0 }

// PushNewest adds v as the frontier's newest (next to run) entry.
func (f *Frontier) PushNewest(v vertex.Vertex) {
	f.entries = append(f.entries, v)
}

// PopNewest removes and returns the frontier's newest entry.
func (f *Frontier) PopNewest() (vertex.Vertex, bool) {
	n := len(f.entries)
	if n == 0 {
		return nil, false
	}
	v := f.entries[n-1]
	f.entries = f.entries[:n-1]
	return v, true
}

// Weight returns the sum of NbStrands across every entry currently held.
func (f *Frontier) Weight() int {
	w := 0
	for _, v := range f.entries {
		w += v.NbStrands()
	}
	return w
}

// SplitByWeight removes vertices from the oldest end of f (the end
// opposite where PopNewest draws from, so the donor keeps its hottest,
// most cache-local work) until at least n units of weight have moved,
// returning them as a new Frontier.
//
// A vertex whose whole weight fits in what is still needed moves as is. A
// multi-strand vertex carrying more weight than that is bisected with
// Split, which in this runtime always halves its strands regardless of nb
// (see vertex/loop.go): the first half stays at the oldest end of f and
// the second half moves. Since no single vertex can be asked for an
// arbitrary exact share, the frontier-level split weight conservation
// invariant holds approximately here (new_weight(acceptor) >= n, not ==n)
// rather than exactly.
func (f *Frontier) SplitByWeight(n int) *Frontier {
	acc := &Frontier{}
	got := 0
	for got < n {
		if len(f.entries) == 0 {
			panic(ErrSplitInsufficientWeight)
		}
		v := f.entries[0]
		f.entries = f.entries[1:]
		w := v.NbStrands()
		if w >= 2 && w > n-got {
			kept, taken := v.Split(n - got)
			f.entries = append([]vertex.Vertex{kept}, f.entries...)
			acc.entries = append(acc.entries, taken)
			got += taken.NbStrands()
			continue
		}
		acc.entries = append(acc.entries, v)
		got += w
	}
	return acc
}

// Merge appends other's entries as this frontier's newest, consuming
// other (used by a thief absorbing a stolen shard into its own frontier).
func (f *Frontier) Merge(other *Frontier) {
	f.entries = append(f.entries, other.entries...)
}
