package world

import (
	"fmt"
	"math"

	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/world/kernel/model"
	"voxelforge.ai/internal/sim/world/logic/mathx"
	"voxelforge.ai/internal/sim/yield"
)

// BlockPipe is the block code of a pipe segment.
const BlockPipe = "pipe"

// SetBlock places a plain block (pipe, blower, ore). Positions holding a
// machine or container are refused.
func (w *World) SetBlock(pos Vec3i, code string) error {
	if !w.Loaded(pos) {
		return fmt.Errorf("world: set block at %s: chunk not loaded", pos)
	}
	if w.occupied(pos) {
		return fmt.Errorf("world: set block at %s: occupied", pos)
	}
	wasPipe := w.blocks[pos] == BlockPipe
	if code == "" {
		delete(w.blocks, pos)
	} else {
		w.blocks[pos] = code
	}
	w.auditEvent("WORLD", "SET_BLOCK", pos, "", map[string]any{"code": code})
	if wasPipe || code == BlockPipe {
		w.rediscoverPipes()
	}
	return nil
}

func (w *World) BlockAt(pos Vec3i) string {
	if _, ok := w.machineAt(pos); ok {
		return "machine"
	}
	if _, ok := w.containers[pos]; ok {
		return "container"
	}
	return w.blocks[pos]
}

func (w *World) occupied(pos Vec3i) bool {
	if _, ok := w.anchors[pos]; ok {
		return true
	}
	_, ok := w.containers[pos]
	return ok
}

// CountDevices counts blocks of code on the six faces of pos.
func (w *World) CountDevices(pos Vec3i, code string) int {
	n := 0
	for _, d := range model.Faces {
		if w.blocks[pos.Add(d)] == code {
			n++
		}
	}
	return n
}

// Climate is the ambient temperature at pos: a seasonal wave around the base
// temperature plus a small fixed per-column offset.
func (w *World) Climate(pos Vec3i) float64 {
	c := w.tun.Climate
	phase := 2 * math.Pi * w.elapsed / c.PeriodSeconds
	local := float64(mathx.Hash2(w.tun.Seed, pos.X, pos.Z)%5) - 2
	return c.BaseTemperature + c.Amplitude*math.Sin(phase) + local
}

func (w *World) Rand() yield.Rand { return w.rng }

// InventoryAt resolves the inventory at pos, following a multi-block part to
// its anchor.
func (w *World) InventoryAt(pos Vec3i) (inventory.Inventory, bool) {
	if e, ok := w.machineAt(pos); ok {
		return e.inv, true
	}
	if c, ok := w.containers[pos]; ok {
		return c, true
	}
	return nil, false
}

func (w *World) MaxStack(code string) int { return w.items.MaxStack(code) }

func (w *World) PortionsPerLitre(code string) (int, bool) { return w.items.PortionsPerLitre(code) }

// PlaceContainer adds a plain chest with n slots.
func (w *World) PlaceContainer(pos Vec3i, n int) (*inventory.Slots, error) {
	c, err := w.placeContainer(pos, n)
	if err != nil {
		return nil, err
	}
	w.auditEvent("WORLD", "PLACE_CONTAINER", pos, "", map[string]any{"slots": n})
	w.rediscoverPipes()
	return c, nil
}

func (w *World) placeContainer(pos Vec3i, n int) (*inventory.Slots, error) {
	if !w.Loaded(pos) {
		return nil, fmt.Errorf("world: container at %s: chunk not loaded", pos)
	}
	if w.occupied(pos) || w.blocks[pos] != "" {
		return nil, fmt.Errorf("world: container at %s: occupied", pos)
	}
	if n <= 0 {
		return nil, fmt.Errorf("world: container at %s: %d slots", pos, n)
	}
	c := inventory.NewSlots(make([]inventory.Role, n), w.items)
	w.containers[pos] = c
	return c, nil
}

func (w *World) Container(pos Vec3i) (*inventory.Slots, bool) {
	c, ok := w.containers[pos]
	return c, ok
}

// RemoveContainer drops the chest's contents at pos.
func (w *World) RemoveContainer(pos Vec3i) bool {
	c, ok := w.containers[pos]
	if !ok {
		return false
	}
	for _, s := range c.Stacks() {
		w.spawnItemEntity(pos, s.Code, s.Count, "BREAK")
	}
	delete(w.containers, pos)
	w.auditEvent("WORLD", "REMOVE_CONTAINER", pos, "", nil)
	w.rediscoverPipes()
	return true
}
