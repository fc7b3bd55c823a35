package world

import (
	"fmt"
	"math/rand/v2"
)

// pcgStream is fixed so a seed alone determines the sequence.
const pcgStream = 0x9e3779b97f4a7c15

// worldRand is the world's seeded source. Its PCG state is carried in
// snapshots so a resumed world keeps drawing the same sequence.
type worldRand struct {
	pcg *rand.PCG
	r   *rand.Rand
}

func newWorldRand(seed int64) *worldRand {
	pcg := rand.NewPCG(uint64(seed), pcgStream)
	return &worldRand{pcg: pcg, r: rand.New(pcg)}
}

func (r *worldRand) Intn(n int) int { return r.r.IntN(n) }

func (r *worldRand) state() []byte {
	b, err := r.pcg.MarshalBinary()
	if err != nil {
		return nil
	}
	return b
}

func (r *worldRand) restore(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := r.pcg.UnmarshalBinary(b); err != nil {
		return fmt.Errorf("rng state: %w", err)
	}
	return nil
}
