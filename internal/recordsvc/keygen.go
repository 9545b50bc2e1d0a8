package recordsvc

import (
	"fmt"

	"github.com/google/uuid"
)

// KeyGenerator produces aggregate lookup keys. The production generator is
// UUID-based; tests substitute a sequence generator so golden traces stay
// byte-identical across runs.
type KeyGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 lookup keys.
//
// UUIDv7 embeds a timestamp in the most significant bits, so keys sort by
// creation time, which is helpful when inspecting a database by hand.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns "key-1", "key-2", ... for deterministic tests.
type SequenceGenerator struct {
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator counting up from one under the
// given prefix.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next key in the sequence.
func (g *SequenceGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
