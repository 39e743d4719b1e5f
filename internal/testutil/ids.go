package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator generates deterministic line ids: "<prefix>-001",
// "<prefix>-002", ...
//
// The same scenario with a fresh SequenceGenerator produces byte-identical
// questionnaires, which keeps golden files stable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequenceGenerator creates a generator. An empty prefix becomes "line".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "line"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id.
//
// Implements engine.IDGenerator.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%03d", g.prefix, g.seq)
}

// Reset restarts the sequence so the next id is "<prefix>-001".
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
