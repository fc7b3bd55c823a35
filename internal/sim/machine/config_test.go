package machine

import (
	"errors"
	"testing"

	"voxelforge.ai/internal/sim/recipe"
	"voxelforge.ai/internal/sim/tuning"
)

func TestConfigFromSpec(t *testing.T) {
	fuel := 2
	spec := tuning.MachineSpec{
		Type:     "alloy-furnace",
		Gate:     "Hybrid",
		Slots:    4,
		Inputs:   []int{0, 1},
		Outputs:  []int{3},
		Fuel:     &fuel,
		Families: []string{"alloy", "smelt"},
	}
	cfg, err := ConfigFromSpec(spec, tuning.Defaults())
	if err != nil {
		t.Fatalf("ConfigFromSpec: %v", err)
	}
	if cfg.Gate != GateHybrid || cfg.Layout.Aux != -1 || cfg.Layout.Fuel != 2 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if len(cfg.Families) != 2 || cfg.Families[0] != recipe.FamilyAlloy {
		t.Fatalf("families=%v", cfg.Families)
	}
	if cfg.SleepSeconds != 2 || cfg.EnvResampleSeconds != 300 || cfg.Thermal != DefaultThermal() {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestConfigFromSpecRejects(t *testing.T) {
	cases := []tuning.MachineSpec{
		{Type: "a", Gate: "power", Slots: 2, Inputs: []int{0}, Outputs: []int{1}, Families: []string{"structured"}},
		{Type: "b", Gate: "heat", Slots: 2, Inputs: []int{0}, Outputs: []int{1}, Families: []string{"smelt"}},
		{Type: "c", Gate: "power", Rate: 1, Slots: 2, Inputs: []int{0}, Outputs: []int{0}, Families: []string{"structured"}},
		{Type: "d", Gate: "power", Rate: 1, Slots: 2, Inputs: []int{0}, Outputs: []int{1}, Families: []string{"smelt"}},
		{Type: "e", Gate: "steam", Rate: 1, Slots: 2, Inputs: []int{0}, Outputs: []int{1}, Families: []string{"structured"}},
	}
	for _, spec := range cases {
		if _, err := ConfigFromSpec(spec, tuning.Defaults()); !errors.Is(err, ErrSetup) {
			t.Fatalf("%s: err=%v want ErrSetup", spec.Type, err)
		}
	}
}
