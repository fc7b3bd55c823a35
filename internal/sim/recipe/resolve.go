package recipe

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"voxelforge.ai/internal/sim/codes"
)

// attributeBag is the canonical attribute schema. "requiresvariants" is the
// only accepted spelling of the tool variant list.
type attributeBag struct {
	RequiresVariants  []string `json:"requiresvariants"`
	ConsumeDurability bool     `json:"consumedurability"`
	Temperature       float64  `json:"temperature"`
	Blowers           int      `json:"blowers"`
	Seconds           float64  `json:"seconds"`
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Resolve binds every ingredient and output to a concrete code and parses the
// auxiliary requirement. It keeps going after a failing entry and returns the
// AND of all entries; the caller decides what to do with a false result.
func (r *Recipe) Resolve(res Resolver) bool {
	ok := true
	r.Variants = map[string][]string{}
	r.outputCodes = nil
	r.Aux = Aux{Code: r.Code}
	r.Seconds = 0

	if r.Attributes != "" {
		var bag attributeBag
		if err := json.Unmarshal([]byte(r.Attributes), &bag); err != nil {
			ok = false
		} else {
			r.Aux.Variants = bag.RequiresVariants
			r.Aux.ConsumesDurability = bag.ConsumeDurability
			r.Aux.Temperature = bag.Temperature
			r.Aux.MinDevices = bag.Blowers
			r.Seconds = bag.Seconds
		}
	}
	if r.PowerPerCraft > 0 && r.Seconds > 0 {
		// Power and time gating are exclusive.
		ok = false
	}
	if r.PowerPerCraft <= 0 && r.Seconds <= 0 {
		ok = false
	}

	if r.Aux.Code != "" && len(enumerate(res, r.Aux.Code, r.Aux.Variants)) == 0 {
		ok = false
	}

	if len(r.Ingredients) == 0 || len(r.Outputs) == 0 {
		ok = false
	}
	for i := range r.Ingredients {
		if !r.resolveIngredient(res, &r.Ingredients[i]) {
			ok = false
		}
	}
	for i := range r.Outputs {
		if !r.resolveOutput(res, &r.Outputs[i]) {
			ok = false
		}
	}
	r.resolved = ok
	return ok
}

func enumerate(res Resolver, pattern string, variants []string) []string {
	if !codes.IsWildcard(pattern) {
		if _, ok := res.Lookup(pattern); ok {
			return []string{pattern}
		}
		return nil
	}
	var out []string
	for _, c := range res.Codes() {
		if codes.Match(pattern, c, variants) {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recipe) resolveIngredient(res Resolver, in *Ingredient) bool {
	in.Resolved = ""
	if in.Quantity <= 0 || in.Pattern == "" {
		return false
	}
	matches := enumerate(res, in.Pattern, in.AllowedVariants)
	if len(matches) == 0 {
		return false
	}
	in.Resolved = matches[0]
	if in.Name != "" && codes.IsWildcard(in.Pattern) {
		seen := map[string]bool{}
		for _, v := range r.Variants[in.Name] {
			seen[v] = true
		}
		for _, c := range matches {
			v, _ := codes.Capture(in.Pattern, c)
			if !seen[v] {
				seen[v] = true
				r.Variants[in.Name] = append(r.Variants[in.Name], v)
			}
		}
	}
	return true
}

func (r *Recipe) resolveOutput(res Resolver, o *Output) bool {
	o.Resolved = ""
	o.PortionsPerLitre = 0
	if o.Quantity < 0 || o.Code == "" {
		return false
	}
	code := o.Code
	if names := placeholderRe.FindAllStringSubmatch(code, -1); len(names) > 0 {
		for _, m := range names {
			if len(r.Variants[m[1]]) == 0 {
				return false
			}
		}
		if r.outputCodes == nil {
			r.outputCodes = map[string]bool{}
		}
		// The default binding is the first expansion the registry knows.
		code = ""
		for _, c := range r.expansions(o.Code) {
			if _, known := res.Lookup(c); known {
				r.outputCodes[c] = true
				if code == "" {
					code = c
				}
			}
		}
		if code == "" {
			return false
		}
	}
	matches := enumerate(res, code, nil)
	if len(matches) == 0 {
		return false
	}
	o.Resolved = matches[0]
	if o.Fluid {
		n, ok := res.PortionsPerLitre(o.Resolved)
		if !ok {
			return false
		}
		o.PortionsPerLitre = n
	}
	return true
}

// knownOutputs reports whether every templated output expands, for the
// matched variants, to a code the registry knows.
func (r *Recipe) knownOutputs(vars map[string]string) bool {
	for _, o := range r.Outputs {
		if !strings.Contains(o.Code, "{") {
			continue
		}
		if !r.outputCodes[expand(o.Code, vars)] {
			return false
		}
	}
	return true
}

// expansions enumerates every substitution of the placeholders in code.
func (r *Recipe) expansions(code string) []string {
	out := []string{code}
	for _, m := range placeholderRe.FindAllStringSubmatch(code, -1) {
		var next []string
		for _, partial := range out {
			for _, v := range r.Variants[m[1]] {
				next = append(next, strings.ReplaceAll(partial, m[0], v))
			}
		}
		out = next
	}
	return out
}

func (r *Recipe) String() string {
	return fmt.Sprintf("%s (%d)", r.Name, r.ID)
}

// Describe is a one-line summary for operator tooling.
func (r *Recipe) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s [%s/%s]", r.ID, r.Name, r.Machine, r.Family)
	if !r.Enabled {
		b.WriteString(" disabled")
	}
	if !r.resolved {
		b.WriteString(" unresolved")
	}
	for _, in := range r.Ingredients {
		fmt.Fprintf(&b, " %dx%s", in.Quantity, in.Pattern)
	}
	b.WriteString(" ->")
	for _, o := range r.Outputs {
		fmt.Fprintf(&b, " %dx%s", o.Quantity, o.Code)
		if s := o.Spread(); s > 0 {
			fmt.Fprintf(&b, "±%d", s)
		}
	}
	return b.String()
}
