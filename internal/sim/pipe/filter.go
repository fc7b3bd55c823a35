package pipe

import (
	"voxelforge.ai/internal/sim/codes"
	"voxelforge.ai/internal/sim/inventory"
)

// Filter is a pipe's extraction allow/deny list. Patterns are exact codes or
// prefixes ending in '*'.
type Filter struct {
	Whitelist bool
	Patterns  []string
}

// Eligible reports whether code may be extracted. A nil filter passes
// everything; an empty blacklist passes everything; an empty whitelist passes
// nothing.
func (f *Filter) Eligible(code string) bool {
	if f == nil {
		return true
	}
	hit := false
	for _, p := range f.Patterns {
		if codes.MatchPrefix(p, code) {
			hit = true
			break
		}
	}
	return hit == f.Whitelist
}

// PullSlot picks the slot a node extracts from. Without a filter the source's
// own auto-pull policy decides; with one, the pullable slots are scanned in
// order.
func PullSlot(src inventory.Inventory, f *Filter) (int, bool) {
	if f == nil {
		return src.AutoPullSlot()
	}
	for i := 0; i < src.Len(); i++ {
		s := src.Slot(i)
		if s.Empty() || !src.Pullable(i) {
			continue
		}
		if f.Eligible(s.Code) {
			return i, true
		}
	}
	return 0, false
}
