package core

import "math/rand/v2"

// RNG is a thin convenience wrapper around math/rand/v2 for deterministic seeding.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a deterministic RNG using the provided seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), 0))}
}

// Float64 returns a value in [0, 1).
func (r *RNG) Float64() float64 { return r.r.Float64() }

// Offset returns int(rand*span - size). The result is negative when the
// random point lands within size of the origin, which callers rely on for
// wraparound placement.
func (r *RNG) Offset(span, size int) int {
	return int(r.r.Float64()*float64(span) - float64(size))
}
