package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"voxelforge.ai/internal/persistence/snapshot"
	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/recipe"
	"voxelforge.ai/internal/sim/tuning"
	"voxelforge.ai/internal/sim/world"
)

func openRaw(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteIndex_AuditsAndCrafts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = idx.WriteAudit(world.AuditEntry{Tick: 5, Actor: "WORLD", Action: "PLACE_MACHINE", Pos: [3]int{1, 2, 3}})
	_ = idx.WriteAudit(world.AuditEntry{
		Tick:   5,
		Actor:  "MACHINE",
		Action: "CRAFT",
		Pos:    [3]int{1, 2, 3},
		Reason: "gear",
		Details: map[string]any{
			"machine":   "press",
			"recipe_id": int32(7),
			"outputs":   []map[string]any{{"item": "gear", "yield": 2}},
		},
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db := openRaw(t, path)
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM audits WHERE tick=5`).Scan(&n); err != nil {
		t.Fatalf("count audits: %v", err)
	}
	if n != 2 {
		t.Fatalf("audits=%d want=2", n)
	}
	var (
		seq     int
		machine string
		id      int64
		name    string
		outs    string
	)
	row := db.QueryRow(`SELECT seq,machine,recipe_id,recipe,outputs_json FROM crafts WHERE tick=5`)
	if err := row.Scan(&seq, &machine, &id, &name, &outs); err != nil {
		t.Fatalf("scan craft: %v", err)
	}
	if seq != 1 || machine != "press" || id != 7 || name != "gear" || outs != `[{"item":"gear","yield":2}]` {
		t.Fatalf("craft row: seq=%d machine=%q id=%d name=%q outs=%s", seq, machine, id, name, outs)
	}
}

func TestSQLiteIndex_RecordSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.RecordSnapshot("/data/snapshots/100.snap.zst", snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: snapshot.Version, WorldID: "w1", Tick: 100},
		Seed:     42,
		Chunks:   []snapshot.ChunkV1{{CX: 0, CZ: 0}, {CX: 1, CZ: 0}},
		Machines: []snapshot.MachineV1{{Type: "press"}},
		Pipes:    []snapshot.PipeV1{{Policy: "nearest"}, {Policy: "random"}},
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var (
		p                   string
		seed                int64
		chunks, m, c, pipes int
	)
	row := openRaw(t, path).QueryRow(`SELECT path,seed,chunks,machines,containers,pipes FROM snapshots WHERE tick=100`)
	if err := row.Scan(&p, &seed, &chunks, &m, &c, &pipes); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if p != "/data/snapshots/100.snap.zst" || seed != 42 || chunks != 2 || m != 1 || c != 0 || pipes != 2 {
		t.Fatalf("row mismatch: path=%q seed=%d chunks=%d machines=%d containers=%d pipes=%d", p, seed, chunks, m, c, pipes)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()

	cats := &catalogs.Catalogs{Items: catalogs.NewItemCatalog([]catalogs.ItemDef{{Code: "gear", Kind: "ITEM"}})}
	cats.Recipes.Digest = "abc"
	recipes := []*recipe.Recipe{
		{ID: 1, Name: "gear", Machine: "press", Family: recipe.FamilyStructured, Enabled: true, PowerPerCraft: 100},
		{ID: 2, Name: "plate", Machine: "press", Family: recipe.FamilyStructured, Enabled: false, PowerPerCraft: 50},
	}
	if err := idx.UpsertCatalogs("", cats, tuning.Defaults(), recipes); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}

	var enabled, resolved int
	if err := idx.db.QueryRow(`SELECT enabled,resolved FROM recipes WHERE id=2`).Scan(&enabled, &resolved); err != nil {
		t.Fatalf("scan recipe: %v", err)
	}
	if enabled != 0 || resolved != 0 {
		t.Fatalf("recipe 2 enabled=%d resolved=%d want=0,0", enabled, resolved)
	}
	var names int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM catalogs WHERE name IN ('items_palette','recipes','tuning')`).Scan(&names); err != nil {
		t.Fatalf("count catalogs: %v", err)
	}
	if names != 3 {
		t.Fatalf("catalog rows=%d want=3", names)
	}
}
