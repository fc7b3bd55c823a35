package recipe

import (
	"voxelforge.ai/internal/sim/codes"
	"voxelforge.ai/internal/sim/inventory"
)

// Binding pairs a candidate (index into the slice given to Match) with the
// ingredient it satisfies.
type Binding struct {
	Candidate  int
	Ingredient int
}

type Matching struct {
	Bindings []Binding
	// Vars holds the variant captured by each named ingredient.
	Vars map[string]string
}

// Satisfies reports whether stack s can serve ingredient in.
func (in Ingredient) Satisfies(s inventory.Stack) bool {
	if s.Empty() || in.Quantity > s.Count {
		return false
	}
	if s.Code == in.Resolved {
		return true
	}
	return codes.Match(in.Pattern, s.Code, in.AllowedVariants)
}

// Match pairs every non-empty candidate with exactly one ingredient. Candidates
// are taken in order and each binds to the first still-unbound ingredient it
// satisfies. Either every candidate and every ingredient is bound, or the
// result is false; a partial pairing is never returned.
//
// The aux stack must satisfy the recipe's tool requirement, or be empty when
// the recipe has none.
func (r *Recipe) Match(candidates []inventory.Stack, aux inventory.Stack) (Matching, bool) {
	if !r.Active() {
		return Matching{}, false
	}
	if !r.matchAux(aux) {
		return Matching{}, false
	}

	queue := make([]int, 0, len(candidates))
	for i, s := range candidates {
		if !s.Empty() {
			queue = append(queue, i)
		}
	}
	if len(queue) != len(r.Ingredients) {
		return Matching{}, false
	}

	pool := make([]int, len(r.Ingredients))
	for i := range pool {
		pool[i] = i
	}
	m := Matching{Bindings: make([]Binding, 0, len(queue))}

	for _, ci := range queue {
		s := candidates[ci]
		bound := -1
		for pi, ii := range pool {
			in := r.Ingredients[ii]
			if !in.Satisfies(s) {
				continue
			}
			if in.Name != "" && codes.IsWildcard(in.Pattern) {
				v, _ := codes.Capture(in.Pattern, s.Code)
				if prev, ok := m.Vars[in.Name]; ok && prev != v {
					continue
				}
				if m.Vars == nil {
					m.Vars = map[string]string{}
				}
				m.Vars[in.Name] = v
			}
			bound = pi
			m.Bindings = append(m.Bindings, Binding{Candidate: ci, Ingredient: ii})
			break
		}
		if bound < 0 {
			return Matching{}, false
		}
		pool = append(pool[:bound], pool[bound+1:]...)
	}
	if len(pool) != 0 {
		return Matching{}, false
	}
	if !r.knownOutputs(m.Vars) {
		return Matching{}, false
	}
	return m, true
}

func (r *Recipe) matchAux(aux inventory.Stack) bool {
	if r.Aux.Code == "" {
		return aux.Empty()
	}
	if aux.Empty() {
		return false
	}
	if aux.Code == r.Aux.Code {
		return true
	}
	return codes.IsWildcard(r.Aux.Code) && codes.Match(r.Aux.Code, aux.Code, r.Aux.Variants)
}
