package inventory

// Slots is the concrete block inventory: a fixed slot list with roles.
type Slots struct {
	stacks []Stack
	roles  []Role
	sizer  Sizer

	// Accepts optionally narrows what pipes may push into a slot (fuel slots
	// take only fuel).
	Accepts func(slot int, code string) bool

	onChange func(slot int)
}

func NewSlots(roles []Role, sizer Sizer) *Slots {
	return &Slots{
		stacks: make([]Stack, len(roles)),
		roles:  append([]Role(nil), roles...),
		sizer:  sizer,
	}
}

// OnChange installs the slot-modified callback. Passing nil removes it.
func (s *Slots) OnChange(fn func(slot int)) { s.onChange = fn }

func (s *Slots) notify(i int) {
	if s.onChange != nil {
		s.onChange(i)
	}
}

func (s *Slots) Len() int { return len(s.stacks) }

func (s *Slots) valid(i int) bool { return i >= 0 && i < len(s.stacks) }

func (s *Slots) Slot(i int) Stack {
	if !s.valid(i) {
		return Stack{}
	}
	return s.stacks[i]
}

func (s *Slots) Role(i int) Role {
	if !s.valid(i) {
		return RoleAny
	}
	return s.roles[i]
}

func (s *Slots) maxStack(code string) int {
	if s.sizer == nil {
		return 64
	}
	if n := s.sizer.MaxStack(code); n > 0 {
		return n
	}
	return 64
}

func (s *Slots) RemainingCapacity(i int, code string) int {
	if !s.valid(i) || code == "" {
		return 0
	}
	cur := s.stacks[i]
	if cur.Empty() {
		return s.maxStack(code)
	}
	if cur.Code != code {
		return 0
	}
	return max(0, s.maxStack(code)-cur.Count)
}

// Set replaces a slot's content and fires the change callback.
func (s *Slots) Set(i int, st Stack) error {
	if !s.valid(i) {
		return ErrSlotRange
	}
	if st.Empty() {
		st = Stack{}
	}
	s.stacks[i] = st
	s.notify(i)
	return nil
}

func (s *Slots) TakeOut(i, n int) Stack {
	if !s.valid(i) || n <= 0 {
		return Stack{}
	}
	cur := s.stacks[i]
	if cur.Empty() {
		return Stack{}
	}
	n = min(n, cur.Count)
	out := cur
	out.Count = n
	cur.Count -= n
	if cur.Count <= 0 {
		cur = Stack{}
	}
	s.stacks[i] = cur
	s.notify(i)
	return out
}

// PutInto merges st into slot i and returns how many units were placed.
func (s *Slots) PutInto(i int, st Stack) (int, error) {
	if !s.valid(i) {
		return 0, ErrSlotRange
	}
	if st.Empty() {
		return 0, nil
	}
	cur := s.stacks[i]
	if !cur.Empty() && cur.Code != st.Code {
		return 0, ErrIncompatible
	}
	n := min(st.Count, s.RemainingCapacity(i, st.Code))
	if n <= 0 {
		return 0, nil
	}
	if cur.Empty() {
		cur = st
		cur.Count = n
	} else {
		cur.Count += n
	}
	s.stacks[i] = cur
	s.notify(i)
	return n, nil
}

func (s *Slots) hasRole(r Role) bool {
	for _, role := range s.roles {
		if role == r {
			return true
		}
	}
	return false
}

// Pullable reports whether a pipe may extract from slot i: output slots when
// the inventory has any, otherwise the plain slots of a container. Input, aux
// and fuel slots are never pulled.
func (s *Slots) Pullable(i int) bool {
	if !s.valid(i) {
		return false
	}
	want := RoleAny
	if s.hasRole(RoleOutput) {
		want = RoleOutput
	}
	return s.roles[i] == want
}

// AutoPullSlot returns the first non-empty pullable slot.
func (s *Slots) AutoPullSlot() (int, bool) {
	for i, st := range s.stacks {
		if s.Pullable(i) && !st.Empty() {
			return i, true
		}
	}
	return 0, false
}

// AutoPushSlot prefers a slot already holding st.Code with room, then the first
// empty slot. Output and aux slots never accept pushes.
func (s *Slots) AutoPushSlot(st Stack) (int, bool) {
	if st.Empty() {
		return 0, false
	}
	pushable := func(i int) bool {
		switch s.roles[i] {
		case RoleOutput, RoleAux:
			return false
		}
		if s.Accepts != nil && !s.Accepts(i, st.Code) {
			return false
		}
		return true
	}
	for i, cur := range s.stacks {
		if pushable(i) && !cur.Empty() && cur.Code == st.Code && s.RemainingCapacity(i, st.Code) > 0 {
			return i, true
		}
	}
	for i, cur := range s.stacks {
		if pushable(i) && cur.Empty() {
			return i, true
		}
	}
	return 0, false
}

// Stacks copies the slot contents for snapshots.
func (s *Slots) Stacks() []Stack {
	return append([]Stack(nil), s.stacks...)
}

// Restore overwrites slot contents without firing change callbacks.
func (s *Slots) Restore(stacks []Stack) {
	for i := range s.stacks {
		if i < len(stacks) && !stacks[i].Empty() {
			s.stacks[i] = stacks[i]
		} else {
			s.stacks[i] = Stack{}
		}
	}
}

func (s *Slots) Roles() []Role { return append([]Role(nil), s.roles...) }
