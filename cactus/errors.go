package cactus

import "errors"

// These are invariant violations, not recoverable failures: a correct
// runtime never triggers them, so they panic rather than return an error.
var (
	ErrPopEmpty          = errors.New("cactus: pop of empty stack")
	ErrPeekEmpty         = errors.New("cactus: peek of empty stack")
	ErrForkEmpty         = errors.New("cactus: fork_front of empty stack")
	ErrRefcountUnderflow = errors.New("cactus: stacklet refcount underflow")
)
