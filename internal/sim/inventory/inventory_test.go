package inventory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fixedSizer map[string]int

func (f fixedSizer) MaxStack(code string) int { return f[code] }

func TestSlotsPutIntoMergesUpToCapacity(t *testing.T) {
	s := NewSlots([]Role{RoleInput, RoleOutput}, fixedSizer{"ore": 10})
	n, err := s.PutInto(0, Stack{Code: "ore", Count: 7})
	require.NoError(t, err)
	require.Equal(t, 7, n)

	n, err = s.PutInto(0, Stack{Code: "ore", Count: 7})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 10, s.Slot(0).Count)

	_, err = s.PutInto(0, Stack{Code: "coal", Count: 1})
	require.ErrorIs(t, err, ErrIncompatible)
}

func TestSlotsChangeCallback(t *testing.T) {
	s := NewSlots([]Role{RoleInput}, nil)
	var fired []int
	s.OnChange(func(slot int) { fired = append(fired, slot) })

	require.NoError(t, s.Set(0, Stack{Code: "ore", Count: 2}))
	s.TakeOut(0, 1)
	require.Equal(t, []int{0, 0}, fired)

	s.Restore([]Stack{{Code: "coal", Count: 1}})
	require.Len(t, fired, 2, "Restore must not notify")
}

func TestAutoPullPrefersOutputSlots(t *testing.T) {
	s := NewSlots([]Role{RoleInput, RoleOutput, RoleOutput}, nil)
	require.NoError(t, s.Set(0, Stack{Code: "ore", Count: 1}))
	_, ok := s.AutoPullSlot()
	require.False(t, ok, "input slots are not pulled from a machine")

	require.NoError(t, s.Set(2, Stack{Code: "ingot", Count: 1}))
	i, ok := s.AutoPullSlot()
	require.True(t, ok)
	require.Equal(t, 2, i)

	chest := NewSlots([]Role{RoleAny, RoleAny}, nil)
	require.NoError(t, chest.Set(1, Stack{Code: "ore", Count: 1}))
	i, ok = chest.AutoPullSlot()
	require.True(t, ok)
	require.Equal(t, 1, i)
}

func TestAutoPushSlot(t *testing.T) {
	s := NewSlots([]Role{RoleFuel, RoleInput, RoleInput, RoleOutput}, fixedSizer{"ore": 4})
	s.Accepts = func(slot int, code string) bool {
		if s.Role(slot) == RoleFuel {
			return code == "coal"
		}
		return true
	}
	require.NoError(t, s.Set(2, Stack{Code: "ore", Count: 1}))

	i, ok := s.AutoPushSlot(Stack{Code: "ore", Count: 1})
	require.True(t, ok)
	require.Equal(t, 2, i, "merge target wins over empty slot")

	i, ok = s.AutoPushSlot(Stack{Code: "coal", Count: 1})
	require.True(t, ok)
	require.Equal(t, 0, i)

	require.NoError(t, s.Set(2, Stack{Code: "ore", Count: 4}))
	i, ok = s.AutoPushSlot(Stack{Code: "ore", Count: 1})
	require.True(t, ok)
	require.Equal(t, 1, i)
}

type failingInventory struct {
	*Slots
}

func (f failingInventory) PutInto(int, Stack) (int, error) { return 0, errors.New("boom") }

func TestMoveConservesOnFailure(t *testing.T) {
	src := NewSlots([]Role{RoleAny}, nil)
	require.NoError(t, src.Set(0, Stack{Code: "ore", Count: 5}))
	dst := failingInventory{NewSlots([]Role{RoleAny}, nil)}

	moved, err := Move(src, 0, dst, 0, 3)
	require.Error(t, err)
	require.Equal(t, 0, moved)
	require.Equal(t, Stack{Code: "ore", Count: 5}, src.Slot(0))
	require.True(t, dst.Slot(0).Empty())
}

func TestMoveBoundedByRoom(t *testing.T) {
	src := NewSlots([]Role{RoleAny}, nil)
	dst := NewSlots([]Role{RoleAny}, fixedSizer{"ore": 4})
	require.NoError(t, src.Set(0, Stack{Code: "ore", Count: 10}))
	require.NoError(t, dst.Set(0, Stack{Code: "ore", Count: 3}))

	moved, err := Move(src, 0, dst, 0, 8)
	require.NoError(t, err)
	require.Equal(t, 1, moved)
	require.Equal(t, 9, src.Slot(0).Count)
	require.Equal(t, 4, dst.Slot(0).Count)

	require.NoError(t, dst.Set(0, Stack{Code: "coal", Count: 1}))
	_, err = Move(src, 0, dst, 0, 1)
	require.ErrorIs(t, err, ErrIncompatible)
}
