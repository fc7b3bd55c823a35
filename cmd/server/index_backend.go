package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voxelforge.ai/internal/persistence/indexdb"
	"voxelforge.ai/internal/persistence/snapshot"
	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/recipe"
	"voxelforge.ai/internal/sim/tuning"
	"voxelforge.ai/internal/sim/world"
)

type runtimeIndex interface {
	world.AuditLogger
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning, recipes []*recipe.Recipe) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
}

// openRuntimeIndex returns a nil interface when indexing is off, so callers
// can compare against nil.
func openRuntimeIndex(worldDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("VF_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported VF_INDEX_BACKEND: %s", backend)
	}
}
