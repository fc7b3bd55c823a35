package world

import (
	"io"

	"voxelforge.ai/internal/sim/recipe"
)

// SetRecipeEnabled toggles a recipe and re-runs the search of every idle or
// active machine so the change applies on this tick.
func (w *World) SetRecipeEnabled(id int32, on bool) bool {
	if !w.recipes.SetEnabled(id, on) {
		return false
	}
	w.auditEvent("WORLD", "RECIPE_TOGGLE", Vec3i{}, "", map[string]any{"recipe_id": id, "enabled": on})
	for _, p := range sortedKeys(w.machines) {
		w.machines[p].ctrl.OnSlotModified(-1)
	}
	return true
}

// EncodeRecipes writes the full catalog in wire form for a client sync.
func (w *World) EncodeRecipes(wr io.Writer) error {
	return recipe.EncodeAll(wr, w.recipes.All())
}
