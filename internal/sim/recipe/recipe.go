// Package recipe holds machine recipe definitions: wildcard resolution against
// the item registry, bijective ingredient matching, the wire codec used to sync
// recipes to clients, and the per-world Registry.
package recipe

import (
	"errors"
	"strings"

	"voxelforge.ai/internal/sim/catalogs"
)

var (
	ErrUnresolved  = errors.New("recipe: unresolved")
	ErrDuplicateID = errors.New("recipe: duplicate id")
)

type Family string

const (
	FamilyStructured Family = "structured"
	FamilyAlloy      Family = "alloy"
	// FamilySmelt recipes are synthesized from an item's smelting properties
	// and never registered.
	FamilySmelt Family = "smelt"
)

// Resolver is the registry accessor Resolve binds codes against.
type Resolver interface {
	Codes() []string
	Lookup(code string) (catalogs.ItemDef, bool)
	PortionsPerLitre(code string) (int, bool)
}

type Ingredient struct {
	Pattern         string
	Name            string
	AllowedVariants []string
	Quantity        int

	Resolved string
}

type Output struct {
	// Code may contain {name} placeholders bound from named ingredients.
	Code     string
	Quantity int
	Variable *int
	Fluid    bool

	Resolved         string
	PortionsPerLitre int
}

// Spread is the absolute variable spread (0 when fixed).
func (o Output) Spread() int {
	if o.Variable == nil {
		return 0
	}
	if *o.Variable < 0 {
		return -*o.Variable
	}
	return *o.Variable
}

// Aux is the auxiliary requirement parsed from Code and the attribute bag.
// Code == "" means the recipe takes no tool and the aux slot must stay empty.
type Aux struct {
	Code               string
	Variants           []string
	ConsumesDurability bool
	Temperature        float64
	MinDevices         int
}

type Recipe struct {
	ID      int32
	Name    string
	Machine string
	Family  Family
	Enabled bool

	PowerPerCraft int64
	Seconds       float64

	// Code is the optional auxiliary code pattern; Attributes is the raw JSON
	// attribute bag. Both travel on the wire, Aux is derived from them.
	Code       string
	Attributes string

	Ingredients []Ingredient
	Outputs     []Output

	Aux Aux
	// Variants maps an ingredient name to every concrete variant its pattern
	// resolved to.
	Variants map[string][]string

	outputCodes map[string]bool
	resolved    bool
}

func (r *Recipe) Resolved() bool { return r != nil && r.resolved }

// Active reports whether the recipe participates in matching.
func (r *Recipe) Active() bool { return r != nil && r.Enabled && r.resolved }

// PowerGated reports whether the recipe's cost is power; otherwise it is time.
func (r *Recipe) PowerGated() bool { return r.PowerPerCraft > 0 }

// FromDef converts the catalog authoring form; the result still needs Resolve.
func FromDef(machine string, d catalogs.RecipeDef) *Recipe {
	r := &Recipe{
		ID:            d.ID,
		Name:          d.Name,
		Machine:       machine,
		Family:        Family(strings.TrimSpace(d.Family)),
		Enabled:       d.Enabled == nil || *d.Enabled,
		PowerPerCraft: d.PowerPerCraft,
		Code:          strings.TrimSpace(d.Requires),
	}
	if r.Family == "" {
		r.Family = FamilyStructured
	}
	if len(d.Attributes) > 0 && string(d.Attributes) != "null" {
		r.Attributes = string(d.Attributes)
	}
	for _, in := range d.Ingredients {
		r.Ingredients = append(r.Ingredients, Ingredient{
			Pattern:         in.Code,
			Name:            in.Name,
			AllowedVariants: append([]string(nil), in.AllowedVariants...),
			Quantity:        in.Quantity,
		})
	}
	for _, out := range d.Outputs {
		o := Output{Code: out.Code, Quantity: out.Quantity, Fluid: out.Fluid}
		if out.Variable != nil {
			v := *out.Variable
			o.Variable = &v
		}
		r.Outputs = append(r.Outputs, o)
	}
	return r
}

// OutputCode returns the concrete code of output i for a matched set of
// ingredient variants, falling back to the resolved default.
func (r *Recipe) OutputCode(i int, vars map[string]string) string {
	o := r.Outputs[i]
	if len(vars) == 0 || !strings.Contains(o.Code, "{") {
		return o.Resolved
	}
	code := expand(o.Code, vars)
	if strings.Contains(code, "{") {
		return o.Resolved
	}
	return code
}

func expand(code string, vars map[string]string) string {
	for name, v := range vars {
		code = strings.ReplaceAll(code, "{"+name+"}", v)
	}
	return code
}
