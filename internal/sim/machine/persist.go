package machine

import "voxelforge.ai/internal/sim/attrs"

const (
	keyState       = "state"
	keyProgress    = "progress"
	keyPower       = "power"
	keyTemperature = "temperature"
	keyEnvTemp     = "envTemperature"
	keyEnvAcc      = "envElapsed"
	keyFuelLeft    = "fuelLeft"
	keyFuelTotal   = "fuelTotal"
	keyBurnTemp    = "burnTemperature"
	keyRecipe      = "recipeKey"
)

// Save writes every mutable field into t.
func (c *Controller) Save(t attrs.Tree) {
	t.SetString(keyState, c.state.String())
	t.SetFloat(keyProgress, c.progress)
	t.SetInt(keyPower, c.power)
	t.SetFloat(keyTemperature, c.temperature)
	t.SetFloat(keyEnvTemp, c.envTemp)
	t.SetFloat(keyEnvAcc, c.envAcc)
	t.SetFloat(keyFuelLeft, c.fuelLeft)
	t.SetFloat(keyFuelTotal, c.fuelTotal)
	t.SetFloat(keyBurnTemp, c.burnTemp)
	t.SetString(keyRecipe, c.active.Key())
}

// Load restores fields written by Save. Missing keys fall back to fresh
// values. The active plan is recomputed from the inventory, and saved progress
// is kept only if it belongs to the same plan.
func (c *Controller) Load(t attrs.Tree) {
	state, ok := ParseState(t.GetString(keyState, ""))
	if !ok {
		state = Sleeping
	}
	c.envTemp = t.GetFloat(keyEnvTemp, c.envTemp)
	c.temperature = max(AbsoluteZero, t.GetFloat(keyTemperature, c.envTemp))
	c.envAcc = t.GetFloat(keyEnvAcc, 0)
	c.power = max(0, t.GetInt(keyPower, 0))
	if c.cfg.PowerCapacity > 0 {
		c.power = min(c.power, c.cfg.PowerCapacity)
	}
	c.fuelLeft = max(0, t.GetFloat(keyFuelLeft, 0))
	c.fuelTotal = max(c.fuelLeft, t.GetFloat(keyFuelTotal, 0))
	c.burnTemp = t.GetFloat(keyBurnTemp, c.envTemp)
	c.sleepAcc = 0
	c.stall = ""

	c.active = nil
	c.progress = 0
	if state == Off {
		c.setState(Off)
		return
	}
	c.setState(Sleeping)
	c.search()
	if c.active != nil && c.active.Key() == t.GetString(keyRecipe, "") {
		c.progress = max(0, t.GetFloat(keyProgress, 0))
	}
}
