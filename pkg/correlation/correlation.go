// Package correlation generates opaque tokens that tag in-flight provider
// invocations.
package correlation

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces correlation tokens.
type Generator interface {
	Generate() string
}

// UUIDGenerator returns version 7 UUID strings, falling back to version 4 if
// the time-ordered variant cannot be produced.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a UUIDGenerator.
func NewUUIDGenerator() UUIDGenerator {
	return UUIDGenerator{}
}

// Generate returns a new UUID string.
func (UUIDGenerator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Sequence is a deterministic Generator for tests: prefix-1, prefix-2, ...
type Sequence struct {
	Prefix string
	n      atomic.Uint64
}

// Generate returns the next token in the sequence.
func (s *Sequence) Generate() string {
	return fmt.Sprintf("%s-%d", s.Prefix, s.n.Add(1))
}
