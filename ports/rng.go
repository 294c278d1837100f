package ports

import (
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Stream creates a deterministic generator for a named operation
	Stream(name string, seed int64) *rand.Rand

	// SubStream creates the index-th independent stream of a named operation.
	// Parallel workers each take their own sub-stream so results do not depend
	// on scheduling.
	SubStream(name string, seed int64, index int) *rand.Rand
}
