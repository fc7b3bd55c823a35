package machine

import (
	"sort"
	"strconv"
	"strings"

	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/recipe"
)

// take is an ingredient quantity removed from a slot on completion.
type take struct {
	Slot  int
	Count int
}

// outputSpec is one output of a plan before its yield is sampled.
type outputSpec struct {
	Code     string
	Base     int
	Spread   int
	Portions int
}

// Plan is the craft a machine is working toward: what to consume, what to
// produce and what it costs.
type Plan struct {
	Family recipe.Family
	Recipe *recipe.Recipe
	Name   string
	ID     int32

	consume []take
	outputs []outputSpec

	Power       int64
	Seconds     float64
	Temperature float64
	Wear        bool

	key string
}

// Key identifies the plan across searches; progress survives a re-search
// only while the key is unchanged.
func (p *Plan) Key() string {
	if p == nil {
		return ""
	}
	return p.key
}

// slotView is what a source searches: the machine's current slots.
type slotView struct {
	inputs  []inventory.Stack
	slots   []int
	aux     inventory.Stack
	devices func(code string) int
}

// Source produces the plan of one recipe family.
type Source interface {
	Family() recipe.Family
	find(p slotView) (*Plan, bool)
}

type registrySource struct {
	recipes *recipe.Registry
	machine string
	family  recipe.Family
	gate    GateMode
	device  string
}

func (s registrySource) Family() recipe.Family { return s.family }

func (s registrySource) find(p slotView) (*Plan, bool) {
	for _, r := range s.recipes.For(s.machine, s.family) {
		if r.PowerGated() != (s.gate == GatePower) {
			continue
		}
		if r.Aux.MinDevices > 0 && s.device != "" && p.devices(s.device) < r.Aux.MinDevices {
			continue
		}
		m, ok := r.Match(p.inputs, p.aux)
		if !ok {
			continue
		}
		return planFor(r, m, p), true
	}
	return nil, false
}

func planFor(r *recipe.Recipe, m recipe.Matching, p slotView) *Plan {
	pl := &Plan{
		Family:      r.Family,
		Recipe:      r,
		Name:        r.Name,
		ID:          r.ID,
		Power:       r.PowerPerCraft,
		Seconds:     r.Seconds,
		Temperature: r.Aux.Temperature,
		Wear:        r.Aux.Code != "" && r.Aux.ConsumesDurability,
	}
	for _, b := range m.Bindings {
		pl.consume = append(pl.consume, take{Slot: p.slots[b.Candidate], Count: r.Ingredients[b.Ingredient].Quantity})
	}
	var codes []string
	for i, o := range r.Outputs {
		code := r.OutputCode(i, m.Vars)
		pl.outputs = append(pl.outputs, outputSpec{
			Code:     code,
			Base:     o.Quantity,
			Spread:   o.Spread(),
			Portions: o.PortionsPerLitre,
		})
		codes = append(codes, code)
	}
	pl.key = string(r.Family) + ":" + strconv.Itoa(int(r.ID)) + ":" + strings.Join(codes, ",")
	return pl
}

// smeltSource synthesizes a plan from the smelting properties of the single
// occupied input slot.
type smeltSource struct {
	items Items
}

func (smeltSource) Family() recipe.Family { return recipe.FamilySmelt }

func (s smeltSource) find(p slotView) (*Plan, bool) {
	if !p.aux.Empty() {
		return nil, false
	}
	at := -1
	for i, st := range p.inputs {
		if st.Empty() {
			continue
		}
		if at >= 0 {
			return nil, false
		}
		at = i
	}
	if at < 0 {
		return nil, false
	}
	in := p.inputs[at]
	props, ok := s.items.Smelting(in.Code)
	if !ok || in.Count < props.Ratio {
		return nil, false
	}
	portions, _ := s.items.PortionsPerLitre(props.Output)
	return &Plan{
		Family:      recipe.FamilySmelt,
		Name:        "smelt " + in.Code,
		consume:     []take{{Slot: p.slots[at], Count: props.Ratio}},
		outputs:     []outputSpec{{Code: props.Output, Base: props.Quantity, Portions: portions}},
		Seconds:     props.MeltSeconds,
		Temperature: props.MeltingPoint,
		key:         "smelt:" + in.Code,
	}, true
}

func buildSources(cfg Config, deps Deps) []Source {
	var out []Source
	for _, f := range cfg.Families {
		switch f {
		case recipe.FamilySmelt:
			out = append(out, smeltSource{items: deps.Items})
		default:
			out = append(out, registrySource{
				recipes: deps.Recipes,
				machine: cfg.Type,
				family:  f,
				gate:    cfg.Gate,
				device:  cfg.DeviceCode,
			})
		}
	}
	return out
}

// outputCodes lists the distinct codes a plan deposits, sorted.
func (p *Plan) outputCodes() []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range p.outputs {
		if !seen[o.Code] {
			seen[o.Code] = true
			out = append(out, o.Code)
		}
	}
	sort.Strings(out)
	return out
}
