// Package randutil builds seeded math/rand/v2 generators for
// reproducible deck shuffles in tests.
package randutil

import "math/rand/v2"

// New expands one int64 seed into the two words a PCG source wants,
// via splitmix64 so adjacent seeds do not yield correlated streams.
func New(seed int64) *rand.Rand {
	state := uint64(seed)
	return rand.New(rand.NewPCG(splitmix64(&state), splitmix64(&state)))
}

func splitmix64(state *uint64) uint64 {
	*state += 0x9e3779b97f4a7c15
	z := *state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
