package machine

import (
	"errors"
	"fmt"
	"strings"

	"voxelforge.ai/internal/sim/recipe"
	"voxelforge.ai/internal/sim/tuning"
)

// ErrSetup marks configuration faults found while building a controller.
var ErrSetup = errors.New("machine: setup")

type GateMode string

const (
	GatePower  GateMode = "power"
	GateHeat   GateMode = "heat"
	GateHybrid GateMode = "hybrid"
)

// Layout binds slot roles to inventory indices. Aux and Fuel are -1 when the
// machine has no such slot.
type Layout struct {
	Slots   int
	Inputs  []int
	Outputs []int
	Aux     int
	Fuel    int
}

// Config describes one machine type. Concrete machines differ only in their
// Config; there is a single Controller implementation.
type Config struct {
	Type          string
	Gate          GateMode
	Rate          float64
	PowerCapacity int64
	Layout        Layout
	Families      []recipe.Family
	Thermal       Thermal

	DeviceCode string
	Byproduct  string

	SleepSeconds       float64
	EnvResampleSeconds float64
}

func (c Config) heated() bool { return c.Gate == GateHeat || c.Gate == GateHybrid }

func (c *Config) applyDefaults() {
	if c.SleepSeconds <= 0 {
		c.SleepSeconds = 2
	}
	if c.EnvResampleSeconds <= 0 {
		c.EnvResampleSeconds = 300
	}
	if c.Thermal.HeatPerSecond <= 0 {
		c.Thermal.HeatPerSecond = DefaultThermal().HeatPerSecond
	}
	if c.Thermal.LinearBelow <= 0 {
		c.Thermal.LinearBelow = DefaultThermal().LinearBelow
	}
}

func (c Config) validate() error {
	if c.Type == "" {
		return fmt.Errorf("%w: missing type", ErrSetup)
	}
	switch c.Gate {
	case GatePower:
		if c.Rate <= 0 {
			return fmt.Errorf("%w: %s: power gate needs rate > 0", ErrSetup, c.Type)
		}
	case GateHeat, GateHybrid:
		if c.Layout.Fuel < 0 {
			return fmt.Errorf("%w: %s: heat gate needs a fuel slot", ErrSetup, c.Type)
		}
	default:
		return fmt.Errorf("%w: %s: unknown gate %q", ErrSetup, c.Type, c.Gate)
	}
	l := c.Layout
	if l.Slots <= 0 || len(l.Inputs) == 0 || len(l.Outputs) == 0 {
		return fmt.Errorf("%w: %s: layout needs slots, inputs and outputs", ErrSetup, c.Type)
	}
	seen := map[int]bool{}
	check := func(i int) error {
		if i < 0 || i >= l.Slots {
			return fmt.Errorf("%w: %s: slot %d out of range", ErrSetup, c.Type, i)
		}
		if seen[i] {
			return fmt.Errorf("%w: %s: slot %d bound twice", ErrSetup, c.Type, i)
		}
		seen[i] = true
		return nil
	}
	for _, i := range append(append([]int(nil), l.Inputs...), l.Outputs...) {
		if err := check(i); err != nil {
			return err
		}
	}
	for _, i := range []int{l.Aux, l.Fuel} {
		if i < 0 {
			continue
		}
		if err := check(i); err != nil {
			return err
		}
	}
	if len(c.Families) == 0 {
		return fmt.Errorf("%w: %s: no recipe families", ErrSetup, c.Type)
	}
	for _, f := range c.Families {
		switch f {
		case recipe.FamilyStructured, recipe.FamilyAlloy:
		case recipe.FamilySmelt:
			if !c.heated() {
				return fmt.Errorf("%w: %s: smelt family needs a heat gate", ErrSetup, c.Type)
			}
		default:
			return fmt.Errorf("%w: %s: unknown family %q", ErrSetup, c.Type, f)
		}
	}
	return nil
}

// ConfigFromSpec converts a machines.yaml entry, filling cadence values from
// the world tuning.
func ConfigFromSpec(s tuning.MachineSpec, t tuning.Tuning) (Config, error) {
	c := Config{
		Type:          s.Type,
		Gate:          GateMode(strings.ToLower(strings.TrimSpace(s.Gate))),
		Rate:          s.Rate,
		PowerCapacity: s.PowerCapacity,
		Layout: Layout{
			Slots:   s.Slots,
			Inputs:  append([]int(nil), s.Inputs...),
			Outputs: append([]int(nil), s.Outputs...),
			Aux:     -1,
			Fuel:    -1,
		},
		Thermal:            Thermal{HeatPerSecond: s.HeatPerSecond, LinearBelow: s.LinearBelow},
		DeviceCode:         s.DeviceCode,
		Byproduct:          s.Byproduct,
		SleepSeconds:       t.SleepSeconds,
		EnvResampleSeconds: t.EnvResampleSeconds,
	}
	if s.Aux != nil {
		c.Layout.Aux = *s.Aux
	}
	if s.Fuel != nil {
		c.Layout.Fuel = *s.Fuel
	}
	for _, f := range s.Families {
		c.Families = append(c.Families, recipe.Family(strings.TrimSpace(f)))
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
