package world

import (
	"sort"

	"voxelforge.ai/internal/persistence/snapshot"
	"voxelforge.ai/internal/sim/attrs"
	"voxelforge.ai/internal/sim/inventory"
)

// ExportSnapshot must be called from the world loop goroutine.
func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    w.tick.Load(),
		},
		Seed:          w.tun.Seed,
		TickRate:      w.tun.TickRateHz,
		ChunkSize:     w.tun.ChunkSize,
		Elapsed:       w.elapsed,
		RNG:           w.rng.state(),
		ItemsDigest:   w.digests[0],
		RecipesDigest: w.digests[1],
		Counters:      snapshot.CountersV1{NextItem: w.nextItemNum.Load()},
	}

	for _, k := range w.LoadedChunks() {
		s.Chunks = append(s.Chunks, snapshot.ChunkV1{CX: k.CX, CZ: k.CZ})
	}
	for _, p := range sortedKeys(w.blocks) {
		s.Blocks = append(s.Blocks, snapshot.BlockV1{Pos: p.ToArray(), Code: w.blocks[p]})
	}

	for _, p := range sortedKeys(w.machines) {
		e := w.machines[p]
		t := attrs.Tree{}
		e.ctrl.Save(t)
		parts := make([][3]int, 0, len(e.parts))
		for _, q := range e.parts {
			parts = append(parts, q.ToArray())
		}
		s.Machines = append(s.Machines, snapshot.MachineV1{
			Pos:   p.ToArray(),
			Type:  e.ctrl.Type(),
			Attrs: t,
			Slots: exportStacks(e.inv.Stacks()),
			Parts: parts,
		})
	}
	for _, p := range sortedKeys(w.containers) {
		s.Containers = append(s.Containers, snapshot.ContainerV1{
			Pos:   p.ToArray(),
			Slots: exportStacks(w.containers[p].Stacks()),
		})
	}

	for _, p := range sortedKeys(w.pipes) {
		n := w.pipes[p].node
		pv := snapshot.PipeV1{
			Pos:    p.ToArray(),
			Source: n.Source.ToArray(),
			Rate:   n.Rate,
			Policy: n.Policy.String(),
			Cursor: n.Cursor,
		}
		if n.Filter != nil {
			pv.HasFilter = true
			pv.Whitelist = n.Filter.Whitelist
			pv.Patterns = append([]string(nil), n.Filter.Patterns...)
		}
		for _, c := range n.Connections {
			pv.Connections = append(pv.Connections, snapshot.ConnectionV1{Pos: c.Pos.ToArray(), Distance: c.Distance})
		}
		s.Pipes = append(s.Pipes, pv)
	}

	for _, id := range w.sortedItemIDs() {
		e := w.itemEntities[id]
		s.Items = append(s.Items, snapshot.ItemEntityV1{
			EntityID:    e.EntityID,
			Pos:         e.Pos.ToArray(),
			Item:        e.Item,
			Count:       e.Count,
			CreatedTick: e.CreatedTick,
		})
	}

	ids := make([]string, 0, len(w.deposits))
	for id := range w.deposits {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		d := w.deposits[id]
		s.Deposits = append(s.Deposits, snapshot.DepositV1{
			ID:      id,
			Pos:     d.spec.Center.ToArray(),
			Radius:  d.spec.Radius,
			Ore:     d.spec.Ore,
			Density: d.spec.Density,
			Done:    d.done,
		})
	}

	for _, r := range w.recipes.All() {
		s.Recipes = append(s.Recipes, snapshot.RecipeFlagV1{ID: r.ID, Enabled: r.Enabled})
	}
	return s
}

func exportStacks(in []inventory.Stack) []snapshot.StackV1 {
	out := make([]snapshot.StackV1, len(in))
	for i, st := range in {
		if st.Empty() {
			continue
		}
		out[i] = snapshot.StackV1{Code: st.Code, Count: st.Count, Durability: st.Durability}
	}
	return out
}

func importStacks(in []snapshot.StackV1) []inventory.Stack {
	out := make([]inventory.Stack, len(in))
	for i, st := range in {
		out[i] = inventory.Stack{Code: st.Code, Count: st.Count, Durability: st.Durability}
	}
	return out
}
