// Package yield computes the randomized quantity a recipe output produces.
package yield

// Rand is the subset of *math/rand.Rand the resolver needs.
type Rand interface {
	Intn(n int) int
}

// Sample returns a uniform integer in [max(0, base-spread), base+spread].
// For fluid outputs (portionsPerLitre > 0) base and spread are first scaled
// from litres to portions. A result of 0 is a valid "nothing produced" yield.
// Without a random source the base quantity is returned.
func Sample(rng Rand, base, spread, portionsPerLitre int) int {
	if spread < 0 {
		spread = -spread
	}
	if portionsPerLitre > 0 {
		base *= portionsPerLitre
		spread *= portionsPerLitre
	}
	lo := max(0, base-spread)
	hi := base + spread
	if rng == nil {
		return max(0, base)
	}
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// Bounds reports the inclusive range Sample draws from.
func Bounds(base, spread, portionsPerLitre int) (lo, hi int) {
	if spread < 0 {
		spread = -spread
	}
	if portionsPerLitre > 0 {
		base *= portionsPerLitre
		spread *= portionsPerLitre
	}
	return max(0, base-spread), max(0, base+spread)
}
