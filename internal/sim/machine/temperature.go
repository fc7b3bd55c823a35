package machine

import "math"

const AbsoluteZero = -273.0

// Thermal holds the material-specific heating constants of a machine.
type Thermal struct {
	// HeatPerSecond is the linear rate used while the machine is below
	// LinearBelow.
	HeatPerSecond float64
	LinearBelow   float64
}

func DefaultThermal() Thermal {
	return Thermal{HeatPerSecond: 20, LinearBelow: 300}
}

// ChangeTemperature moves from toward to over dt seconds. Below the linear
// threshold the change is HeatPerSecond*dt; above it the change is a sixth of
// the remaining distance per second, which closes most of the gap in ~30s.
// The result never passes to and never drops below AbsoluteZero.
func ChangeTemperature(from, to, dt float64, th Thermal) float64 {
	to = math.Max(to, AbsoluteZero)
	from = math.Max(from, AbsoluteZero)
	dist := math.Abs(to - from)
	if dist == 0 || dt <= 0 {
		return from
	}

	var step float64
	if from < th.LinearBelow {
		step = th.HeatPerSecond * dt
	} else {
		step = dist / 6 * dt
	}
	if step >= dist || dist < 0.01 {
		return to
	}
	if to < from {
		step = -step
	}
	return math.Max(from+step, AbsoluteZero)
}

// OvershootMultiplier is the speed-up a hybrid machine gets for residual heat
// above the recipe's goal temperature.
func OvershootMultiplier(current, goal float64) float64 {
	over := current - goal
	switch {
	case over > 900:
		return 3.0
	case over > 500:
		return 2.0
	case over > 250:
		return 1.334
	case over > 100:
		return 1.1
	default:
		return 1.0
	}
}
