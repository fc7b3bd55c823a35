// Package indexdb is a queryable sqlite read-model of the world: catalogs,
// recipes, the audit stream, crafts and written snapshots. The zstd JSONL
// audit logs remain the source of truth; rows are dropped if the writer falls
// behind.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelforge.ai/internal/persistence/snapshot"
	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/recipe"
	"voxelforge.ai/internal/sim/tuning"
	"voxelforge.ai/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	audit    world.AuditEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick       uint64
	Path       string
	Seed       int64
	Chunks     int
	Machines   int
	Containers int
	Pipes      int
	Items      int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Pipes audit every transfer, so bursts are large.
		ch: make(chan req, 262144),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS recipes (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			machine TEXT NOT NULL,
			family TEXT NOT NULL,
			enabled INTEGER NOT NULL,
			resolved INTEGER NOT NULL,
			power_per_craft INTEGER NOT NULL,
			ingredients INTEGER NOT NULL,
			outputs INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_action_tick ON audits(action, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_pos_tick ON audits(x, z, y, tick);`,
		`CREATE TABLE IF NOT EXISTS crafts (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			machine TEXT NOT NULL,
			recipe_id INTEGER NOT NULL,
			recipe TEXT NOT NULL,
			outputs_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_crafts_recipe ON crafts(recipe_id, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			chunks INTEGER NOT NULL,
			machines INTEGER NOT NULL,
			containers INTEGER NOT NULL,
			pipes INTEGER NOT NULL,
			items INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:       snap.Header.Tick,
		Path:       path,
		Seed:       snap.Seed,
		Chunks:     len(snap.Chunks),
		Machines:   len(snap.Machines),
		Containers: len(snap.Containers),
		Pipes:      len(snap.Pipes),
		Items:      len(snap.Items),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
	}
}

// UpsertCatalogs stores the raw catalogs and the applied tuning, and replaces
// the recipes table with the registry's current view.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning, recipes []*recipe.Recipe) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "items.json")); err == nil {
			rows = append(rows, kv{name: "items_defs", digest: cats.Items.DefsDigest, json: b})
		}
		if b, err := os.ReadFile(filepath.Join(configDir, "machines.yaml")); err == nil {
			rows = append(rows, kv{name: "machines", digest: sha256Hex(b), json: mustJSON(string(b))})
		}
	}
	if b, _ := json.Marshal(cats.Items.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "items_palette", digest: cats.Items.PaletteDigest, json: b})
	}
	if b, _ := json.Marshal(cats.Recipes.Files); len(b) > 0 {
		rows = append(rows, kv{name: "recipes", digest: cats.Recipes.Digest, json: b})
	}
	// Tuning: store the values we actually apply (canonical JSON).
	if b, _ := json.Marshal(tune); len(b) > 0 {
		rows = append(rows, kv{name: "tuning", digest: sha256Hex(b), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`DELETE FROM recipes`); err != nil {
		return err
	}
	rstmt, err := tx.Prepare(`INSERT INTO recipes(id,name,machine,family,enabled,resolved,power_per_craft,ingredients,outputs) VALUES(?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer rstmt.Close()
	for _, r := range recipes {
		if _, err := rstmt.Exec(
			r.ID,
			r.Name,
			r.Machine,
			string(r.Family),
			boolInt(r.Enabled),
			boolInt(r.Resolved()),
			r.PowerPerCraft,
			len(r.Ingredients),
			len(r.Outputs),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func detailString(d map[string]any, key string) string {
	v, _ := d[key].(string)
	return v
}

func detailInt(d map[string]any, key string) int64 {
	switch v := d[key].(type) {
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(tick,seq,actor,action,x,y,z,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertCraft, _ := s.db.Prepare(`INSERT OR REPLACE INTO crafts(tick,seq,x,y,z,machine,recipe_id,recipe,outputs_json) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,seed,chunks,machines,containers,pipes,items) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertAudit, insertCraft, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastAuditTick uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return true
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			raw, _ := json.Marshal(a)
			if !exec(insertAudit, int64(a.Tick), seq, a.Actor, a.Action, a.Pos[0], a.Pos[1], a.Pos[2], a.Reason, string(raw)) {
				continue
			}
			if a.Action == "CRAFT" {
				outs, _ := json.Marshal(a.Details["outputs"])
				exec(insertCraft,
					int64(a.Tick),
					seq,
					a.Pos[0], a.Pos[1], a.Pos[2],
					detailString(a.Details, "machine"),
					detailInt(a.Details, "recipe_id"),
					a.Reason,
					string(outs),
				)
			}

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot,
				int64(sn.Tick),
				sn.Path,
				sn.Seed,
				sn.Chunks,
				sn.Machines,
				sn.Containers,
				sn.Pipes,
				sn.Items,
			)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
