// Package inventory is the slot storage shared by machines and pipes.
//
// All mutation happens on the world loop goroutine; nothing here locks.
package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrIncompatible = errors.New("inventory: incompatible stack")
	ErrSlotRange    = errors.New("inventory: slot out of range")
)

type Stack struct {
	Code  string
	Count int
	// Durability is the remaining uses of a tool stack; 0 means untouched
	// (the catalog maximum applies).
	Durability int
}

func (s Stack) Empty() bool { return s.Code == "" || s.Count <= 0 }

func (s Stack) String() string {
	if s.Empty() {
		return "empty"
	}
	return fmt.Sprintf("%s x%d", s.Code, s.Count)
}

type Role uint8

const (
	RoleAny Role = iota
	RoleInput
	RoleOutput
	RoleAux
	RoleFuel
)

func (r Role) String() string {
	switch r {
	case RoleInput:
		return "INPUT"
	case RoleOutput:
		return "OUTPUT"
	case RoleAux:
		return "AUX"
	case RoleFuel:
		return "FUEL"
	default:
		return "ANY"
	}
}

// Sizer reports the per-slot stack limit for a code.
type Sizer interface {
	MaxStack(code string) int
}

// Inventory is the indexed slot collection the machine controller and the
// pipe router operate on.
type Inventory interface {
	Len() int
	Slot(i int) Stack
	Role(i int) Role
	RemainingCapacity(i int, code string) int
	TakeOut(i, n int) Stack
	PutInto(i int, s Stack) (int, error)
	// Pullable reports whether a pipe may extract from slot i at all.
	Pullable(i int) bool
	// AutoPullSlot is the slot a pipe extracts from when it has no filter.
	AutoPullSlot() (int, bool)
	// AutoPushSlot is the slot that would accept s from a pipe.
	AutoPushSlot(s Stack) (int, bool)
}

// Move transfers up to n units from src[si] to dst[di] as one take-out /
// put-into pair. On a put failure the taken units are returned to src, so the
// total across both inventories never changes.
func Move(src Inventory, si int, dst Inventory, di int, n int) (int, error) {
	s := src.Slot(si)
	if s.Empty() || n <= 0 {
		return 0, nil
	}
	room := dst.RemainingCapacity(di, s.Code)
	if room <= 0 {
		cur := dst.Slot(di)
		if !cur.Empty() && cur.Code != s.Code {
			return 0, ErrIncompatible
		}
		return 0, nil
	}
	n = min(n, s.Count, room)

	taken := src.TakeOut(si, n)
	if taken.Empty() {
		return 0, nil
	}
	moved, err := dst.PutInto(di, taken)
	if moved < taken.Count {
		rest := taken
		rest.Count -= moved
		if _, perr := src.PutInto(si, rest); perr != nil {
			return moved, errors.Join(err, perr)
		}
	}
	return moved, err
}
