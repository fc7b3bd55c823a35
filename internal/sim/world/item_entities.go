package world

import (
	"fmt"
	"sort"

	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/world/kernel/model"
)

func (w *World) newItemEntityID() string {
	n := w.nextItemNum.Add(1)
	return fmt.Sprintf("IT%06d", n)
}

// Spawn drops s at pos as an item entity. It is the overflow path of machine
// completion, so every unit handed in ends up in some entity.
func (w *World) Spawn(pos Vec3i, s inventory.Stack) {
	w.spawnItemEntity(pos, s.Code, s.Count, "OVERFLOW")
}

func (w *World) spawnItemEntity(pos Vec3i, item string, count int, reason string) string {
	if item == "" || count <= 0 {
		return ""
	}
	droppedItems.WithLabelValues(reason).Add(float64(count))

	// Merge into an existing entity of the same item at the same position.
	for _, id := range w.itemsAt[pos] {
		e := w.itemEntities[id]
		if e == nil || e.Item != item || e.Count <= 0 {
			continue
		}
		e.Count += count
		w.auditEvent("WORLD", "ITEM_SPAWN", pos, reason, map[string]any{
			"entity_id": e.EntityID,
			"item":      item,
			"count":     count,
			"merged":    true,
		})
		return e.EntityID
	}

	id := w.newItemEntityID()
	w.itemEntities[id] = &model.ItemEntity{
		EntityID:    id,
		Pos:         pos,
		Item:        item,
		Count:       count,
		CreatedTick: w.tick.Load(),
	}
	w.itemsAt[pos] = append(w.itemsAt[pos], id)
	w.auditEvent("WORLD", "ITEM_SPAWN", pos, reason, map[string]any{
		"entity_id": id,
		"item":      item,
		"count":     count,
		"merged":    false,
	})
	return id
}

// RemoveItemEntity deletes an entity, e.g. when a player picks it up.
func (w *World) RemoveItemEntity(id string) (model.ItemEntity, bool) {
	e := w.itemEntities[id]
	if e == nil {
		return model.ItemEntity{}, false
	}
	delete(w.itemEntities, id)
	ids := w.itemsAt[e.Pos]
	for i := range ids {
		if ids[i] == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(w.itemsAt, e.Pos)
	} else {
		w.itemsAt[e.Pos] = ids
	}
	w.auditEvent("WORLD", "ITEM_DESPAWN", e.Pos, "", map[string]any{
		"entity_id": id,
		"item":      e.Item,
		"count":     e.Count,
	})
	return *e, true
}

// ItemEntitiesAt returns copies of the entities at pos, in spawn order.
func (w *World) ItemEntitiesAt(pos Vec3i) []model.ItemEntity {
	var out []model.ItemEntity
	for _, id := range w.itemsAt[pos] {
		if e := w.itemEntities[id]; e != nil {
			out = append(out, *e)
		}
	}
	return out
}

func (w *World) sortedItemIDs() []string {
	out := make([]string, 0, len(w.itemEntities))
	for id := range w.itemEntities {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
