package model

// ItemEntity is a dropped stack in the world: machine output that did not fit,
// or the byproduct of a broken tool. It is part of the authoritative state and
// is snapshotted.
type ItemEntity struct {
	EntityID    string
	Pos         Vec3i
	Item        string
	Count       int
	CreatedTick uint64
}

func (e *ItemEntity) ID() string { return e.EntityID }
