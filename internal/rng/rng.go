// Package rng provides the explicit seeded random source threaded through
// every generation call. There is no package-level generator: each engine
// instance owns its own Source.
package rng

import "math/rand/v2"

// #region constants

// stream selects the PCG sequence. Fixed so that a seed alone determines output.
const stream uint64 = 0x6e61727261746976

// #endregion

// #region source

// Source is a deterministic pseudo-random generator.
type Source struct {
	seed uint64
	r    *rand.Rand
}

// New creates a source seeded with seed.
func New(seed uint64) *Source {
	return &Source{seed: seed, r: rand.New(rand.NewPCG(seed, stream))}
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() uint64 {
	return s.seed
}

// Float64 returns a value in [0, 1).
func (s *Source) Float64() float64 {
	return s.r.Float64()
}

// IntN returns a value in [0, n). Panics if n <= 0.
func (s *Source) IntN(n int) int {
	return s.r.IntN(n)
}

// Bernoulli reports true with probability p.
func (s *Source) Bernoulli(p float64) bool {
	return s.r.Float64() < p
}

// #endregion

// #region derive

// Derive mixes a base seed with a generation counter and retry number into a
// new seed. Equal inputs always give equal outputs.
func Derive(base, counter uint64, retry int) uint64 {
	h := splitmix(base)
	h = splitmix(h ^ counter)
	h = splitmix(h ^ uint64(retry))
	return h
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// #endregion
