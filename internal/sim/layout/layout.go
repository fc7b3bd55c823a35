// Package layout loads a starting factory (containers, machines, pipes,
// deposits) from YAML and places it into a fresh world.
package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/pipe"
	"voxelforge.ai/internal/sim/world"
	"voxelforge.ai/internal/sim/world/kernel/model"
)

type Layout struct {
	Containers []Container `yaml:"containers"`
	Machines   []Machine   `yaml:"machines"`
	Blocks     []Block     `yaml:"blocks"`
	Extractors []Extractor `yaml:"extractors"`
	Deposits   []Deposit   `yaml:"deposits"`
}

type Stack struct {
	Code  string `yaml:"code"`
	Count int    `yaml:"count"`
}

type Container struct {
	Pos   [3]int  `yaml:"pos"`
	Slots int     `yaml:"slots"`
	Items []Stack `yaml:"items,omitempty"`
}

type Machine struct {
	Type  string   `yaml:"type"`
	Pos   [3]int   `yaml:"pos"`
	Parts [][3]int `yaml:"parts,omitempty"`
	Off   bool     `yaml:"off,omitempty"`
	// Items are preloaded slot by slot; empty codes leave a slot empty.
	Items []Stack `yaml:"items,omitempty"`
}

// Block is a plain block such as a pipe segment or a blower.
type Block struct {
	Pos  [3]int `yaml:"pos"`
	Code string `yaml:"code"`
}

type Extractor struct {
	Pipe   [3]int  `yaml:"pipe"`
	Source [3]int  `yaml:"source"`
	Rate   int     `yaml:"rate,omitempty"`
	Policy string  `yaml:"policy,omitempty"`
	Filter *Filter `yaml:"filter,omitempty"`
}

type Filter struct {
	Whitelist bool     `yaml:"whitelist"`
	Patterns  []string `yaml:"patterns"`
}

type Deposit struct {
	ID      string `yaml:"id"`
	Center  [3]int `yaml:"center"`
	Radius  int    `yaml:"radius"`
	Ore     string `yaml:"ore"`
	Density int    `yaml:"density,omitempty"`
}

func Load(path string) (Layout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return Layout{}, fmt.Errorf("layout: %w", err)
	}
	for i, e := range l.Extractors {
		if _, ok := pipe.ParsePolicy(e.Policy); !ok {
			return Layout{}, fmt.Errorf("layout: extractor %d: unknown policy %q", i, e.Policy)
		}
	}
	return l, nil
}

// Apply places l into w in dependency order: inventories first, then the
// pipe segments that connect them, then extractors and deposits. It must run
// on the world loop goroutine (or before Run).
func Apply(w *world.World, l Layout) error {
	for _, c := range l.Containers {
		inv, err := w.PlaceContainer(model.FromArray(c.Pos), c.Slots)
		if err != nil {
			return err
		}
		if err := fill(inv, c.Items); err != nil {
			return fmt.Errorf("layout: container %v: %w", c.Pos, err)
		}
	}
	for _, m := range l.Machines {
		parts := make([]model.Vec3i, 0, len(m.Parts))
		for _, p := range m.Parts {
			parts = append(parts, model.FromArray(p))
		}
		ctrl, err := w.PlaceMachine(m.Type, model.FromArray(m.Pos), parts...)
		if err != nil {
			return err
		}
		if m.Off {
			ctrl.Toggle(false)
		}
		if err := fill(ctrl.Inventory(), m.Items); err != nil {
			return fmt.Errorf("layout: machine %v: %w", m.Pos, err)
		}
	}
	for _, b := range l.Blocks {
		if err := w.SetBlock(model.FromArray(b.Pos), b.Code); err != nil {
			return err
		}
	}
	for _, e := range l.Extractors {
		policy, _ := pipe.ParsePolicy(e.Policy)
		opts := world.ExtractorOptions{Rate: e.Rate, Policy: policy}
		if e.Filter != nil {
			opts.Filter = &pipe.Filter{Whitelist: e.Filter.Whitelist, Patterns: e.Filter.Patterns}
		}
		if _, err := w.AttachExtractor(model.FromArray(e.Pipe), model.FromArray(e.Source), opts); err != nil {
			return err
		}
	}
	for _, d := range l.Deposits {
		if err := w.AddDeposit(world.DepositSpec{
			ID:      d.ID,
			Center:  model.FromArray(d.Center),
			Radius:  d.Radius,
			Ore:     d.Ore,
			Density: d.Density,
		}); err != nil {
			return err
		}
	}
	return nil
}

type setter interface {
	Len() int
	Set(i int, s inventory.Stack) error
}

func fill(inv setter, items []Stack) error {
	if len(items) > inv.Len() {
		return fmt.Errorf("%d stacks for %d slots", len(items), inv.Len())
	}
	for i, it := range items {
		if it.Code == "" || it.Count <= 0 {
			continue
		}
		if err := inv.Set(i, inventory.Stack{Code: it.Code, Count: it.Count}); err != nil {
			return err
		}
	}
	return nil
}
