package machine

import (
	"fmt"

	"voxelforge.ai/internal/sim/world/kernel/model"
)

// Update is the observer view of a machine after a state-changing event.
type Update struct {
	Pos           model.Vec3i
	Type          string
	State         State
	Progress      float64
	Power         int64
	PowerCapacity int64

	RecipeID   int32
	RecipeName string

	Temperature       float64
	TargetTemperature float64
	FuelLeft          float64
	FuelTotal         float64

	Status string
}

func (c *Controller) View() Update {
	u := Update{
		Pos:           c.pos,
		Type:          c.cfg.Type,
		State:         c.state,
		Progress:      c.Fraction(),
		Power:         c.power,
		PowerCapacity: c.cfg.PowerCapacity,
		Temperature:   c.temperature,
		FuelLeft:      c.fuelLeft,
		FuelTotal:     c.fuelTotal,
		Status:        c.Status(),
	}
	if c.active != nil {
		u.RecipeID = c.active.ID
		u.RecipeName = c.active.Name
		u.TargetTemperature = c.active.Temperature
	}
	return u
}

// Status is the one-line text shown to players.
func (c *Controller) Status() string {
	switch {
	case c.state == Off:
		return "off"
	case c.state == Sleeping || c.active == nil:
		return "idle"
	case c.stall != "":
		return "stalled: " + c.stall
	case c.active.Temperature > 0 && c.temperature < c.active.Temperature:
		return fmt.Sprintf("heating %d/%d", int(c.temperature), int(c.active.Temperature))
	}
	return fmt.Sprintf("crafting %d%%", int(c.Fraction()*100))
}

func (c *Controller) publish() {
	if c.obs == nil {
		return
	}
	c.obs.Update(c.View())
}
