package rng

import (
	"hash/fnv"
	"math/rand"

	"gouplift/ports"
)

// Streams derives independent deterministic generators from a master seed.
// The derived seed depends only on (name, seed, index), never on call order,
// so parallel workers reproduce the same draws on every run.
type Streams struct{}

var _ ports.RNGPort = (*Streams)(nil)

// NewStreams creates a stream factory
func NewStreams() *Streams {
	return &Streams{}
}

// Stream creates a deterministic generator for a named operation
func (s *Streams) Stream(name string, seed int64) *rand.Rand {
	return rand.New(rand.NewSource(DeriveSeed(name, seed, 0)))
}

// SubStream creates the index-th generator of a named operation
func (s *Streams) SubStream(name string, seed int64, index int) *rand.Rand {
	return rand.New(rand.NewSource(DeriveSeed(name, seed, index+1)))
}

// DeriveSeed mixes the operation name, master seed and index through
// splitmix64 so neighbouring indices give uncorrelated sources.
func DeriveSeed(name string, seed int64, index int) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	x := h.Sum64() ^ uint64(seed)
	x = splitmix64(x + uint64(index)*0x9E3779B97F4A7C15)
	return int64(x &^ (1 << 63))
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}
