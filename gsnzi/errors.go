package gsnzi

import "errors"

// ErrDecrementZero is an invariant violation: a caller decremented a node
// whose counter was already at zero. A correct incounter never does this.
var ErrDecrementZero = errors.New("gsnzi: decrement of zero counter")
