package pipeline

import "math/rand/v2"

// DefaultSeed is the process-wide random seed used when none is configured.
const DefaultSeed = 123

// NewRand returns the process-wide random source. Call it once at startup,
// before the Runner is built, and hand the result to every stage that needs
// randomness. It is never reseeded during a run.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
