// Package mathx holds integer helpers and deterministic position hashes
// shared by world generation and climate sampling.
package mathx

// FloorDiv rounds toward negative infinity; b must be > 0.
func FloorDiv(a, b int) int {
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

// Mod is the non-negative remainder; b must be > 0.
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func ClampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// InSphere reports whether the offset (dx,dy,dz) lies within radius r.
func InSphere(dx, dy, dz, r int) bool {
	return dx*dx+dy*dy+dz*dz <= r*r
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9))
}

func Hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9))
}

// HashString folds s into a seed with FNV-1a so named entities get stable,
// distinct hash streams.
func HashString(seed int64, s string) int64 {
	h := uint64(14695981039346656037)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return int64(mix64(h ^ uint64(seed)))
}
