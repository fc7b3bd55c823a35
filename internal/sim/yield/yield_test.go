package yield

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type fixedRand int

func (f fixedRand) Intn(n int) int {
	if int(f) >= n {
		return n - 1
	}
	return int(f)
}

func TestSampleStaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := Sample(rng, 4, 2, 0)
		require.GreaterOrEqual(t, v, 2)
		require.LessOrEqual(t, v, 6)
		seen[v] = true
	}
	require.Len(t, seen, 5, "every value in [2,6] should appear")
}

func TestSampleSpreadEqualBaseCanBeZero(t *testing.T) {
	require.Equal(t, 0, Sample(fixedRand(0), 3, 3, 0))
	require.Equal(t, 6, Sample(fixedRand(99), 3, 3, 0))
}

func TestSampleClampsLowerBound(t *testing.T) {
	lo, hi := Bounds(1, 5, 0)
	require.Equal(t, 0, lo)
	require.Equal(t, 6, hi)
	require.Equal(t, 0, Sample(fixedRand(0), 1, 5, 0))
}

func TestSampleScalesFluids(t *testing.T) {
	lo, hi := Bounds(2, 1, 100)
	require.Equal(t, 100, lo)
	require.Equal(t, 300, hi)
	require.Equal(t, 100, Sample(fixedRand(0), 2, 1, 100))
	require.Equal(t, 200, Sample(nil, 2, 0, 100))
}

func TestSampleNegativeSpreadIsAbsolute(t *testing.T) {
	require.Equal(t, 2, Sample(fixedRand(0), 4, -2, 0))
}

func TestSampleWithoutRandIsBase(t *testing.T) {
	require.Equal(t, 4, Sample(nil, 4, 2, 0))
	require.Equal(t, 200, Sample(nil, 2, 1, 100))
	require.Equal(t, 0, Sample(nil, -3, 0, 0))
}
