package world

import (
	"fmt"

	"voxelforge.ai/internal/sim/world/logic/mathx"
)

// DepositSpec describes an ore body generated around Center.
type DepositSpec struct {
	ID     string
	Center Vec3i
	Radius int
	Ore    string
	// Density is the percentage of positions in the sphere that get ore.
	Density int
}

type stagedBlock struct {
	pos  Vec3i
	code string
}

// deposit generation runs once off the loop. The result is staged on ready
// and committed by the loop; done latches so it never runs again.
type deposit struct {
	spec     DepositSpec
	ready    chan []stagedBlock
	done     bool
	placed   int
	listener ListenerID
}

// AddDeposit starts the one-shot background precompute for spec. The blocks
// appear on the first tick after the worker finishes.
func (w *World) AddDeposit(spec DepositSpec) error {
	if spec.ID == "" || spec.Ore == "" || spec.Radius <= 0 {
		return fmt.Errorf("world: deposit %q: invalid spec", spec.ID)
	}
	if _, ok := w.deposits[spec.ID]; ok {
		return fmt.Errorf("world: deposit %q: exists", spec.ID)
	}
	if spec.Density <= 0 || spec.Density > 100 {
		spec.Density = 100
	}
	d := &deposit{spec: spec, ready: make(chan []stagedBlock, 1)}
	w.deposits[spec.ID] = d

	seed := mathx.HashString(w.tun.Seed, spec.ID)
	go func() { d.ready <- generateDeposit(seed, spec) }()

	d.listener = w.RegisterTick(w.tickDT(), func(float64) { w.commitDeposit(d) })
	return nil
}

func generateDeposit(seed int64, s DepositSpec) []stagedBlock {
	var out []stagedBlock
	r := s.Radius
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				if !mathx.InSphere(dx, dy, dz, r) {
					continue
				}
				p := s.Center.Add(Vec3i{X: dx, Y: dy, Z: dz})
				if int(mathx.Hash3(seed, p.X, p.Y, p.Z)%100) >= s.Density {
					continue
				}
				out = append(out, stagedBlock{pos: p, code: s.Ore})
			}
		}
	}
	return out
}

func (w *World) commitDeposit(d *deposit) {
	if d.done {
		return
	}
	var staged []stagedBlock
	select {
	case staged = <-d.ready:
	default:
		return
	}
	for _, b := range staged {
		if !w.Loaded(b.pos) || w.occupied(b.pos) || w.blocks[b.pos] != "" {
			continue
		}
		w.blocks[b.pos] = b.code
		d.placed++
	}
	d.done = true
	w.UnregisterTick(d.listener)
	w.auditEvent("WORLD", "DEPOSIT_COMMIT", d.spec.Center, "", map[string]any{
		"deposit": d.spec.ID,
		"ore":     d.spec.Ore,
		"blocks":  d.placed,
	})
}

// DepositDone reports whether the deposit's blocks have been committed.
func (w *World) DepositDone(id string) bool {
	d, ok := w.deposits[id]
	return ok && d.done
}
