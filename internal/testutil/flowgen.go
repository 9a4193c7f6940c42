// Package testutil provides deterministic stand-ins for the randomized
// pieces of the checkout flow.
package testutil

import (
	"fmt"
	"sync"
)

// FixedFlowGenerator returns predetermined flow tokens in order.
//
// This makes checkout runs deterministic for golden-output comparison:
// tests provide a known token sequence and assert on exact summaries.
//
// Safe for concurrent use via internal mutex.
type FixedFlowGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedFlowGenerator creates a generator that returns tokens in order.
// When the list is exhausted, Generate panics - a test consuming more
// tokens than it scripted is a test bug.
func NewFixedFlowGenerator(tokens ...string) *FixedFlowGenerator {
	return &FixedFlowGenerator{tokens: tokens}
}

// Generate returns the next scripted token.
func (g *FixedFlowGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic(fmt.Sprintf("FixedFlowGenerator: all %d tokens exhausted", len(g.tokens)))
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
