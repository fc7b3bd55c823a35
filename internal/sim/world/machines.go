package world

import (
	"fmt"
	"math"

	"voxelforge.ai/internal/protocol"
	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/machine"
)

// machineInterval is the tick cadence of an active machine, in seconds.
const machineInterval = 0.1

// PlaceMachine builds a controller of type typ anchored at pos. Parts are the
// extra blocks of a multi-block machine; pipes touching a part reach the
// anchor's inventory. Every block must lie in a loaded chunk.
func (w *World) PlaceMachine(typ string, pos Vec3i, parts ...Vec3i) (*machine.Controller, error) {
	e, err := w.placeMachine(typ, pos, parts)
	if err != nil {
		return nil, err
	}
	w.auditEvent("WORLD", "PLACE_MACHINE", pos, "", map[string]any{"type": typ, "parts": len(parts)})
	w.rediscoverPipes()
	return e.ctrl, nil
}

func (w *World) placeMachine(typ string, pos Vec3i, parts []Vec3i) (*machineEntry, error) {
	cfg, ok := w.types[typ]
	if !ok {
		return nil, fmt.Errorf("%w: unknown machine type %q", machine.ErrSetup, typ)
	}
	all := append([]Vec3i{pos}, parts...)
	seen := make(map[Vec3i]bool, len(all))
	for _, p := range all {
		if seen[p] {
			return nil, fmt.Errorf("%w: %s at %s: duplicate part %s", machine.ErrSetup, typ, pos, p)
		}
		seen[p] = true
		if !w.Loaded(p) {
			return nil, fmt.Errorf("%w: %s at %s: chunk not loaded", machine.ErrSetup, typ, p)
		}
		if w.occupied(p) || w.blocks[p] != "" {
			return nil, fmt.Errorf("%w: %s at %s: occupied", machine.ErrSetup, typ, p)
		}
	}

	inv := inventory.NewSlots(rolesFor(cfg.Layout), w.items)
	if fuel := cfg.Layout.Fuel; fuel >= 0 {
		inv.Accepts = func(slot int, code string) bool {
			if slot != fuel {
				return true
			}
			_, ok := w.items.Fuel(code)
			return ok
		}
	}
	var obs machine.Observer
	if w.observer != nil {
		obs = machineObserver{w: w}
	}

	machineStates.WithLabelValues(machine.Sleeping.String()).Inc()
	ctrl, err := machine.New(cfg, pos, inv, machine.Deps{
		Env:      w,
		Items:    w.items,
		Recipes:  w.recipes,
		Observer: obs,
		Hooks:    machine.Hooks{OnCraft: w.onCraft, OnState: w.onMachineState},
		Logger:   w.log,
	})
	if err != nil {
		machineStates.WithLabelValues(machine.Sleeping.String()).Dec()
		return nil, err
	}

	e := &machineEntry{ctrl: ctrl, inv: inv, parts: append([]Vec3i(nil), parts...)}
	for _, p := range all {
		w.anchors[p] = pos
	}
	w.machines[pos] = e
	e.listener = w.RegisterTick(machineInterval, func(dt float64) {
		if !w.Loaded(pos) {
			return
		}
		ctrl.Tick(dt)
	})
	return e, nil
}

func rolesFor(l machine.Layout) []inventory.Role {
	roles := make([]inventory.Role, l.Slots)
	for _, i := range l.Inputs {
		roles[i] = inventory.RoleInput
	}
	for _, i := range l.Outputs {
		roles[i] = inventory.RoleOutput
	}
	if l.Aux >= 0 {
		roles[l.Aux] = inventory.RoleAux
	}
	if l.Fuel >= 0 {
		roles[l.Fuel] = inventory.RoleFuel
	}
	return roles
}

func (w *World) machineAt(pos Vec3i) (*machineEntry, bool) {
	a, ok := w.anchors[pos]
	if !ok {
		return nil, false
	}
	e, ok := w.machines[a]
	return e, ok
}

// Machine returns the controller at pos or at any of its parts.
func (w *World) Machine(pos Vec3i) (*machine.Controller, bool) {
	e, ok := w.machineAt(pos)
	if !ok {
		return nil, false
	}
	return e.ctrl, true
}

// RemoveMachine deregisters the machine's tick and drops its contents.
func (w *World) RemoveMachine(pos Vec3i) bool {
	e, ok := w.machineAt(pos)
	if !ok {
		return false
	}
	anchor := e.ctrl.Pos()
	w.UnregisterTick(e.listener)
	e.inv.OnChange(nil)
	for _, s := range e.inv.Stacks() {
		w.spawnItemEntity(anchor, s.Code, s.Count, "BREAK")
	}
	delete(w.anchors, anchor)
	for _, p := range e.parts {
		delete(w.anchors, p)
	}
	delete(w.machines, anchor)
	machineStates.WithLabelValues(e.ctrl.State().String()).Dec()
	w.auditEvent("WORLD", "REMOVE_MACHINE", anchor, "", map[string]any{"type": e.ctrl.Type()})
	w.rediscoverPipes()
	return true
}

func (w *World) ToggleMachine(pos Vec3i, on bool) bool {
	e, ok := w.machineAt(pos)
	if !ok {
		return false
	}
	e.ctrl.Toggle(on)
	return true
}

func (w *World) onCraft(ev machine.CraftEvent) {
	w.crafts++
	craftsTotal.WithLabelValues(ev.Type, string(ev.Family)).Inc()
	outs := make([]map[string]any, 0, len(ev.Outputs))
	for _, o := range ev.Outputs {
		outs = append(outs, map[string]any{
			"item":      o.Code,
			"yield":     o.Yield,
			"deposited": o.Deposited,
			"dropped":   o.Dropped,
		})
	}
	w.auditEvent("MACHINE", "CRAFT", ev.Pos, ev.Name, map[string]any{
		"machine":   ev.Type,
		"recipe_id": ev.RecipeID,
		"outputs":   outs,
	})
	if ev.ToolBroken {
		toolBreaks.WithLabelValues(ev.Type).Inc()
		w.auditEvent("MACHINE", "TOOL_BREAK", ev.Pos, ev.Name, map[string]any{
			"byproduct": ev.Byproduct.Code,
			"count":     ev.Byproduct.Yield,
		})
	}
}

func (w *World) onMachineState(_ Vec3i, from, to machine.State) {
	machineStates.WithLabelValues(from.String()).Dec()
	machineStates.WithLabelValues(to.String()).Inc()
}

// systemGenerators hands every power-gated machine its flat supply.
func (w *World) systemGenerators(dt float64) {
	n := int64(math.Round(float64(w.tun.GeneratorPowerPerSecond) * dt))
	if n <= 0 {
		return
	}
	for _, p := range sortedKeys(w.machines) {
		e := w.machines[p]
		if e.ctrl.Config().Gate != machine.GatePower || !w.Loaded(p) {
			continue
		}
		e.ctrl.ReceivePower(n)
	}
}

type machineObserver struct{ w *World }

func (o machineObserver) Update(u machine.Update) {
	if o.w.observer == nil {
		return
	}
	o.w.observer.Publish(protocol.MachineUpdate{
		Type:              protocol.TypeMachineUpdate,
		ProtocolVersion:   protocol.Version,
		Tick:              o.w.tick.Load(),
		WorldID:           o.w.cfg.ID,
		Pos:               u.Pos.ToArray(),
		Machine:           u.Type,
		State:             u.State.String(),
		Progress:          u.Progress,
		Power:             u.Power,
		PowerCapacity:     u.PowerCapacity,
		RecipeID:          u.RecipeID,
		Recipe:            u.RecipeName,
		Temperature:       u.Temperature,
		TargetTemperature: u.TargetTemperature,
		FuelLeft:          u.FuelLeft,
		FuelTotal:         u.FuelTotal,
		Status:            u.Status,
	})
}
