// Package idgen provides the node id generator used by the kernel.
package idgen

import "sync/atomic"

// ID is a node identifier. Valid ids start at 1.
type ID uint64

// Generator produces unique identifiers.
type Generator interface {
	Generate() ID

	// Last returns the most recently generated id, or 0 if none was
	// generated yet.
	Last() ID
}

// New returns a sequential generator whose first emitted ID is 1.
func New() Generator {
	return &sequentialGenerator{}
}

type sequentialGenerator struct {
	next uint64
}

func (g *sequentialGenerator) Generate() ID {
	return ID(atomic.AddUint64(&g.next, 1))
}

func (g *sequentialGenerator) Last() ID {
	return ID(atomic.LoadUint64(&g.next))
}
