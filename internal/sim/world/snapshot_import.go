package world

import (
	"fmt"

	"voxelforge.ai/internal/persistence/snapshot"
	"voxelforge.ai/internal/sim/attrs"
	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/pipe"
	"voxelforge.ai/internal/sim/world/kernel/model"
)

// ImportSnapshot replaces the current in-memory world state with the snapshot.
// The world's tick becomes the snapshot tick; the next step simulates tick+1.
//
// This must be called only when the world is stopped or from the world loop goroutine.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version: %d", s.Header.Version)
	}
	if s.Seed != w.tun.Seed {
		return fmt.Errorf("snapshot seed mismatch: cfg=%d snap=%d", w.tun.Seed, s.Seed)
	}
	if s.ChunkSize != w.tun.ChunkSize {
		return fmt.Errorf("snapshot chunk_size mismatch: cfg=%d snap=%d", w.tun.ChunkSize, s.ChunkSize)
	}
	for _, m := range s.Machines {
		if _, ok := w.types[m.Type]; !ok {
			return fmt.Errorf("snapshot machine %v: unknown type %q", m.Pos, m.Type)
		}
	}
	if s.ItemsDigest != "" && s.ItemsDigest != w.digests[0] {
		w.log.Printf("snapshot items digest differs: catalog changed since tick %d", s.Header.Tick)
	}
	if s.RecipesDigest != "" && s.RecipesDigest != w.digests[1] {
		w.log.Printf("snapshot recipes digest differs: catalog changed since tick %d", s.Header.Tick)
	}

	w.reset()

	w.tick.Store(s.Header.Tick)
	w.elapsed = s.Elapsed
	w.nextItemNum.Store(s.Counters.NextItem)

	for _, c := range s.Chunks {
		w.chunks[ChunkKey{CX: c.CX, CZ: c.CZ}] = true
	}
	for _, b := range s.Blocks {
		w.blocks[model.FromArray(b.Pos)] = b.Code
	}
	// Flags first so restored machines search against the saved set.
	for _, r := range s.Recipes {
		w.recipes.SetEnabled(r.ID, r.Enabled)
	}
	for _, c := range s.Containers {
		pos := model.FromArray(c.Pos)
		inv, err := w.placeContainer(pos, max(1, len(c.Slots)))
		if err != nil {
			return fmt.Errorf("snapshot container %v: %w", c.Pos, err)
		}
		inv.Restore(importStacks(c.Slots))
	}
	for _, m := range s.Machines {
		parts := make([]Vec3i, 0, len(m.Parts))
		for _, p := range m.Parts {
			parts = append(parts, model.FromArray(p))
		}
		e, err := w.placeMachine(m.Type, model.FromArray(m.Pos), parts)
		if err != nil {
			return fmt.Errorf("snapshot machine %v: %w", m.Pos, err)
		}
		e.inv.Restore(importStacks(m.Slots))
		e.ctrl.Load(attrs.Tree(m.Attrs))
	}
	for _, p := range s.Pipes {
		policy, ok := pipe.ParsePolicy(p.Policy)
		if !ok {
			return fmt.Errorf("snapshot pipe %v: bad policy %q", p.Pos, p.Policy)
		}
		n := pipe.NewNode(model.FromArray(p.Pos), model.FromArray(p.Source), p.Rate, policy)
		n.Cursor = p.Cursor
		if p.HasFilter {
			n.Filter = &pipe.Filter{Whitelist: p.Whitelist, Patterns: append([]string(nil), p.Patterns...)}
		}
		for _, c := range p.Connections {
			n.Connections = append(n.Connections, pipe.Connection{Pos: model.FromArray(c.Pos), Distance: c.Distance})
		}
		w.addPipeNode(n)
	}
	for _, it := range s.Items {
		pos := model.FromArray(it.Pos)
		w.itemEntities[it.EntityID] = &model.ItemEntity{
			EntityID:    it.EntityID,
			Pos:         pos,
			Item:        it.Item,
			Count:       it.Count,
			CreatedTick: it.CreatedTick,
		}
		w.itemsAt[pos] = append(w.itemsAt[pos], it.EntityID)
	}
	for _, d := range s.Deposits {
		spec := DepositSpec{ID: d.ID, Center: model.FromArray(d.Pos), Radius: d.Radius, Ore: d.Ore, Density: d.Density}
		if d.Done {
			w.deposits[d.ID] = &deposit{spec: spec, done: true}
			continue
		}
		if err := w.AddDeposit(spec); err != nil {
			return fmt.Errorf("snapshot deposit %s: %w", d.ID, err)
		}
	}
	w.rng = newWorldRand(w.tun.Seed)
	if err := w.rng.restore(s.RNG); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	w.publishMetrics(0)
	return nil
}

// reset drops every placed entity and its tick listener.
func (w *World) reset() {
	for _, e := range w.machines {
		w.UnregisterTick(e.listener)
		e.inv.OnChange(nil)
		machineStates.WithLabelValues(e.ctrl.State().String()).Dec()
	}
	for _, e := range w.pipes {
		w.UnregisterTick(e.listener)
	}
	for _, d := range w.deposits {
		if !d.done {
			w.UnregisterTick(d.listener)
		}
	}
	w.chunks = map[ChunkKey]bool{}
	w.blocks = map[Vec3i]string{}
	w.anchors = map[Vec3i]Vec3i{}
	w.machines = map[Vec3i]*machineEntry{}
	w.containers = map[Vec3i]*inventory.Slots{}
	w.pipes = map[Vec3i]*pipeEntry{}
	w.deposits = map[string]*deposit{}
	w.itemEntities = map[string]*model.ItemEntity{}
	w.itemsAt = map[Vec3i][]string{}
	w.snapAcc = 0
	w.crafts = 0
}

var _ machine.Env = (*World)(nil)
var _ pipe.Env = (*World)(nil)
var _ pipe.Graph = (*World)(nil)
