package snapshot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	snap := SnapshotV1{
		Header:    Header{WorldID: "w1", Tick: 42},
		Seed:      7,
		TickRate:  10,
		ChunkSize: 32,
		Chunks:    []ChunkV1{{CX: 0, CZ: 0}},
		Machines: []MachineV1{{
			Pos:   [3]int{1, 2, 3},
			Type:  "press",
			Attrs: map[string]string{"state": "on", "progress": "10"},
			Slots: []StackV1{{Code: "ore-a", Count: 3}, {}, {Code: "hammer-iron", Count: 1, Durability: 1}},
		}},
		Pipes:   []PipeV1{{Pos: [3]int{0, 0, 1}, Policy: "roundrobin", Cursor: 2, Rate: -1}},
		Recipes: []RecipeFlagV1{{ID: 1, Enabled: false}},
	}
	path := filepath.Join(dir, FileName(42))
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.Tick != 42 || h.Version != Version || h.WorldID != "w1" {
		t.Fatalf("header=%+v", h)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(got.Machines) != 1 || got.Machines[0].Attrs["progress"] != "10" {
		t.Fatalf("machines=%+v", got.Machines)
	}
	if got.Machines[0].Slots[2].Durability != 1 {
		t.Fatalf("slots=%+v", got.Machines[0].Slots)
	}
	if got.Pipes[0].Cursor != 2 || got.Pipes[0].Rate != -1 {
		t.Fatalf("pipes=%+v", got.Pipes)
	}
	if len(got.Recipes) != 1 || got.Recipes[0].Enabled {
		t.Fatalf("recipes=%+v", got.Recipes)
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	for _, tick := range []uint64{5, 120, 30} {
		if err := WriteSnapshot(filepath.Join(dir, FileName(tick)), SnapshotV1{Header: Header{Tick: tick}}); err != nil {
			t.Fatalf("WriteSnapshot: %v", err)
		}
	}
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)

	path, tick, err := Latest(dir)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if tick != 120 || filepath.Base(path) != "120.snap.zst" {
		t.Fatalf("latest=%s tick=%d", path, tick)
	}

	if _, _, err := Latest(t.TempDir()); !os.IsNotExist(err) {
		t.Fatalf("empty dir err=%v", err)
	}
}
