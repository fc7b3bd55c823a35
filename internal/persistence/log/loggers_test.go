package log

import (
	"path/filepath"
	"testing"

	"voxelforge.ai/internal/sim/world"
)

func TestAuditSegmentsFollowTicks(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir, 10) // 36000 ticks per segment

	for _, e := range []world.AuditEntry{
		{Tick: 1, Action: "CRAFT", Pos: [3]int{1, 0, 0}},
		{Tick: 35999, Action: "DROP"},
		{Tick: 36000, Action: "TRANSFER"},
	} {
		if err := l.WriteAudit(e); err != nil {
			t.Fatalf("WriteAudit: %v", err)
		}
	}
	if got := l.w.Lines(); got != 1 {
		t.Fatalf("open segment lines=%d want=1", got)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	segs, err := Segments(AuditDir(dir), "audit")
	if err != nil {
		t.Fatalf("Segments: %v", err)
	}
	if len(segs) != 2 || filepath.Base(segs[0]) != "audit-0.jsonl.zst" || filepath.Base(segs[1]) != "audit-36000.jsonl.zst" {
		t.Fatalf("segments=%v", segs)
	}
	first, err := ReadAudit(segs[0])
	if err != nil {
		t.Fatalf("ReadAudit: %v", err)
	}
	if len(first) != 2 || first[0].Action != "CRAFT" || first[0].Pos != [3]int{1, 0, 0} || first[1].Tick != 35999 {
		t.Fatalf("first=%+v", first)
	}
	second, err := ReadAudit(segs[1])
	if err != nil {
		t.Fatalf("ReadAudit: %v", err)
	}
	if len(second) != 1 || second[0].Action != "TRANSFER" {
		t.Fatalf("second=%+v", second)
	}
}

func TestAuditResumeAppendsToSegment(t *testing.T) {
	dir := t.TempDir()
	l := NewAuditLogger(dir, 10)
	_ = l.WriteAudit(world.AuditEntry{Tick: 5, Action: "CRAFT"})
	_ = l.Close()

	// A restarted server appends a second frame to the same segment.
	l = NewAuditLogger(dir, 10)
	_ = l.WriteAudit(world.AuditEntry{Tick: 6, Action: "DROP"})
	_ = l.Close()

	got, err := ReadAudit(filepath.Join(AuditDir(dir), "audit-0.jsonl.zst"))
	if err != nil {
		t.Fatalf("ReadAudit: %v", err)
	}
	if len(got) != 2 || got[1].Action != "DROP" {
		t.Fatalf("entries=%+v", got)
	}
}

func TestSegmentsOfMissingDirIsEmpty(t *testing.T) {
	segs, err := Segments(filepath.Join(t.TempDir(), "missing"), "audit")
	if err != nil || segs != nil {
		t.Fatalf("segs=%v err=%v", segs, err)
	}
}
