package machine

import "math"

// gate decides how much progress a tick earns and how much a plan needs.
type gate interface {
	// advance returns the progress earned over dt, or 0 with a stall reason.
	advance(c *Controller, dt float64) (float64, string)
	required(c *Controller) float64
}

type powerGate struct {
	rate float64
}

// advance compares stored power against the exact rate*dt and then draws the
// rounded amount, at least one unit.
func (g powerGate) advance(c *Controller, dt float64) (float64, string) {
	want := g.rate * dt
	if want <= 0 {
		return 0, ""
	}
	if float64(c.power) < want {
		return 0, stallPower
	}
	need := max(1, int64(math.Round(want)))
	c.power -= need
	return float64(need), ""
}

func (powerGate) required(c *Controller) float64 {
	if c.active == nil {
		return 0
	}
	return float64(c.active.Power)
}

// heatGate accrues elapsed seconds once the machine is at the plan's
// temperature. With overshoot set, residual heat above the goal shortens the
// required duration.
type heatGate struct {
	overshoot bool
}

func (heatGate) advance(c *Controller, dt float64) (float64, string) {
	if c.active == nil || c.temperature < c.active.Temperature {
		return 0, ""
	}
	return dt, ""
}

func (g heatGate) required(c *Controller) float64 {
	if c.active == nil {
		return 0
	}
	if !g.overshoot {
		return c.active.Seconds
	}
	return c.active.Seconds / OvershootMultiplier(c.temperature, c.active.Temperature)
}

func gateFor(cfg Config) gate {
	switch cfg.Gate {
	case GatePower:
		return powerGate{rate: cfg.Rate}
	case GateHybrid:
		return heatGate{overshoot: true}
	default:
		return heatGate{}
	}
}
