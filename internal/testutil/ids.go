package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates UUID-shaped transaction ids counting up from 1:
//
//	00000000-0000-0000-0000-000000000001
//	00000000-0000-0000-0000-000000000002
//
// Unlike engine.FixedGenerator it never runs out, and it can be reset so the
// same scenario produces the same ids on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu sync.Mutex
	n  int64
}

// NewSequentialIDs creates a generator whose first id is ID(1).
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// Generate returns the next id. Implements engine.IDGenerator.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return ID(g.n)
}

// Count returns how many ids have been generated since the last reset.
func (g *SequentialIDs) Count() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset restarts the sequence at ID(1).
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}

// ID returns the n-th id a fresh SequentialIDs generates.
func ID(n int64) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}
