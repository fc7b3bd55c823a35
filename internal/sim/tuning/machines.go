package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MachineSpec is one machine type: a gate mode plus slot-role bindings.
type MachineSpec struct {
	Type string `yaml:"type"`
	// Gate is "power", "heat" or "hybrid".
	Gate          string  `yaml:"gate"`
	Rate          float64 `yaml:"rate,omitempty"`
	PowerCapacity int64   `yaml:"power_capacity,omitempty"`

	Slots   int   `yaml:"slots"`
	Inputs  []int `yaml:"inputs"`
	Outputs []int `yaml:"outputs"`
	Aux     *int  `yaml:"aux,omitempty"`
	Fuel    *int  `yaml:"fuel,omitempty"`

	// Families are tried in this order; the first that matches wins.
	Families []string `yaml:"families"`

	HeatPerSecond float64 `yaml:"heat_per_second,omitempty"`
	LinearBelow   float64 `yaml:"linear_below,omitempty"`

	DeviceCode string `yaml:"device_code,omitempty"`
	Byproduct  string `yaml:"byproduct,omitempty"`
}

type MachinesFile struct {
	Machines []MachineSpec `yaml:"machines"`
}

func LoadMachines(path string) ([]MachineSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMachines(raw)
}

func ParseMachines(raw []byte) ([]MachineSpec, error) {
	var f MachinesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("machines.yaml: %w", err)
	}
	seen := map[string]bool{}
	for i, m := range f.Machines {
		m.Type = strings.TrimSpace(m.Type)
		if m.Type == "" {
			return nil, fmt.Errorf("machines.yaml: machine %d: missing type", i)
		}
		if seen[m.Type] {
			return nil, fmt.Errorf("machines.yaml: duplicate type %q", m.Type)
		}
		seen[m.Type] = true
		f.Machines[i] = m
	}
	return f.Machines, nil
}
