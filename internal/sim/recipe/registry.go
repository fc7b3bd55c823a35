package recipe

import (
	"fmt"
	"io"
	"log"
	"sort"

	"voxelforge.ai/internal/sim/catalogs"
)

// Registry is the per-world recipe collection. It is built when a world loads
// and dropped with it; controllers receive it explicitly.
type Registry struct {
	log *log.Logger

	order     []*Recipe
	byID      map[int32]*Recipe
	byMachine map[string][]*Recipe
}

func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Registry{
		log:       logger,
		byID:      map[int32]*Recipe{},
		byMachine: map[string][]*Recipe{},
	}
}

// FromCatalog registers every recipe of cat in file order and resolves them.
func FromCatalog(cat catalogs.RecipeCatalog, res Resolver, logger *log.Logger) (*Registry, error) {
	g := NewRegistry(logger)
	for _, f := range cat.Files {
		for _, d := range f.Recipes {
			if err := g.Register(FromDef(f.Machine, d)); err != nil {
				return nil, err
			}
		}
	}
	g.ResolveAll(res)
	return g, nil
}

func (g *Registry) Register(r *Recipe) error {
	if r == nil {
		return fmt.Errorf("recipe: nil")
	}
	if prev, ok := g.byID[r.ID]; ok {
		return fmt.Errorf("%w: %d (%s, %s)", ErrDuplicateID, r.ID, prev.Name, r.Name)
	}
	g.order = append(g.order, r)
	g.byID[r.ID] = r
	g.byMachine[r.Machine] = append(g.byMachine[r.Machine], r)
	return nil
}

// ResolveAll resolves every recipe and returns the ids that failed. Failed
// recipes stay registered but never match.
func (g *Registry) ResolveAll(res Resolver) []int32 {
	var failed []int32
	for _, r := range g.order {
		if r.Resolve(res) {
			continue
		}
		failed = append(failed, r.ID)
		g.log.Printf("recipe %s: unresolved ingredient/output, excluded from matching", r)
	}
	return failed
}

// For returns the active recipes of machine in family, in registration order.
// An empty family selects every family.
func (g *Registry) For(machine string, family Family) []*Recipe {
	var out []*Recipe
	for _, r := range g.byMachine[machine] {
		if !r.Active() {
			continue
		}
		if family != "" && r.Family != family {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (g *Registry) Get(id int32) (*Recipe, bool) {
	r, ok := g.byID[id]
	return r, ok
}

// SetEnabled toggles a recipe at runtime; disabled recipes stay loaded.
func (g *Registry) SetEnabled(id int32, on bool) bool {
	r, ok := g.byID[id]
	if !ok {
		return false
	}
	r.Enabled = on
	return true
}

// All returns every registered recipe in registration order.
func (g *Registry) All() []*Recipe {
	return append([]*Recipe(nil), g.order...)
}

func (g *Registry) Machines() []string {
	out := make([]string, 0, len(g.byMachine))
	for m := range g.byMachine {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// EnabledFlags snapshots the runtime enabled flag of every recipe.
func (g *Registry) EnabledFlags() map[int32]bool {
	out := make(map[int32]bool, len(g.order))
	for _, r := range g.order {
		out[r.ID] = r.Enabled
	}
	return out
}
