// Package rng provides the simulator's single seeded deterministic random
// stream. Every stochastic choice in the simulator — arrival timing,
// persona selection, speed/stop/dwell sampling, micro-shift intervals,
// confusion rolls — must draw from one Source in a fixed order, per
// spec.md §5 and §9. Grounded on server/world/world.go and
// server/world/tick.go, which already seed math/rand/v2 with
// rand.NewPCG rather than reaching for a package-level global.
package rng

import "math/rand/v2"

// Source wraps a *rand.Rand seeded from a single integer seed, giving the
// simulator one mutable stream it threads explicitly rather than a
// package-level global.
type Source struct {
	r *rand.Rand
}

// New returns a Source seeded deterministically from seed. The same seed
// always produces the same sequence of draws.
func New(seed uint64) *Source {
	return &Source{r: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))}
}

// Float64 returns a pseudo-random number in [0,1).
func (s *Source) Float64() float64 { return s.r.Float64() }

// Range returns a pseudo-random number uniformly in [lo,hi).
func (s *Source) Range(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.r.Float64()*(hi-lo)
}

// IntN returns a pseudo-random integer in [0,n).
func (s *Source) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.IntN(n)
}

// Bool returns a pseudo-random boolean with the given probability of
// being true.
func (s *Source) Bool(p float64) bool { return s.r.Float64() < p }

// NormFloat64 returns a pseudo-random number from the standard normal
// distribution.
func (s *Source) NormFloat64() float64 { return s.r.NormFloat64() }

// Shuffle randomizes the order of n elements via swap.
func (s *Source) Shuffle(n int, swap func(i, j int)) { s.r.Shuffle(n, swap) }

// WeightedIndex returns an index into weights chosen with probability
// proportional to its weight. Weights need not sum to 1.
func (s *Source) WeightedIndex(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}
	pick := s.Float64() * total
	var acc float64
	for i, w := range weights {
		acc += w
		if pick < acc {
			return i
		}
	}
	return len(weights) - 1
}
