package gsnzi

// Incounter ties a GSNZI tree to the vertex it gates: once every increment
// issued against it has been matched by a decrement, the tree's root
// transitions to zero and the vertex becomes eligible to run again.
type Incounter struct {
	tree *Tree
}

// NewIncounter constructs an incounter owned by owner (typically a
// vertex), which RootAnnotation will later recover from any handle this
// incounter hands out.
func NewIncounter(cfg Config, owner any) *Incounter {
	return &Incounter{tree: NewTree(cfg, owner)}
}

// Increment records one more outstanding dependency, routed to whichever
// tree node key hashes to, and returns the handle the caller must later
// pass to Decrement.
func (ic *Incounter) Increment(key uint64) *Node {
	h := ic.tree.TargetOfKey(key)
	h.Increment()
	return h
}

// IsNonzero reports whether the incounter currently has outstanding
// dependencies.
func (ic *Incounter) IsNonzero() bool { return ic.tree.IsNonzero() }

// Decrement resolves one dependency recorded through h. If this was the
// last outstanding dependency anywhere in the incounter, schedule is
// invoked with the incounter's owner.
func Decrement(h *Node, schedule func(owner any)) {
	if h.Decrement() {
		schedule(RootAnnotation(h))
	}
}
