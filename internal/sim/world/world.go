// Package world is the single simulation authority: it owns every machine,
// container, pipe node and dropped item, and advances them from one loop
// goroutine.
package world

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"voxelforge.ai/internal/persistence/snapshot"
	"voxelforge.ai/internal/protocol"
	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/pipe"
	"voxelforge.ai/internal/sim/recipe"
	"voxelforge.ai/internal/sim/tuning"
	"voxelforge.ai/internal/sim/world/kernel/model"
)

type Vec3i = model.Vec3i

type WorldConfig struct {
	ID       string
	Tuning   tuning.Tuning
	Machines []tuning.MachineSpec
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"`
	Pos     [3]int         `json:"pos"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ObserverSink receives machine updates; it must be safe to call from the
// world loop and must not block.
type ObserverSink interface {
	Publish(msg protocol.MachineUpdate)
}

type Options struct {
	Logger   *log.Logger
	Audit    AuditLogger
	Observer ObserverSink
	// Snapshots receives periodic exports; sends never block the loop.
	Snapshots chan<- snapshot.SnapshotV1
}

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg     WorldConfig
	tun     tuning.Tuning
	items   *catalogs.ItemCatalog
	digests [2]string
	recipes *recipe.Registry
	types   map[string]machine.Config
	log     *log.Logger
	rng     *worldRand

	tick    atomic.Uint64
	elapsed float64

	chunks     map[ChunkKey]bool
	blocks     map[Vec3i]string
	anchors    map[Vec3i]Vec3i
	machines   map[Vec3i]*machineEntry
	containers map[Vec3i]*inventory.Slots
	pipes      map[Vec3i]*pipeEntry
	deposits   map[string]*deposit

	itemEntities map[string]*model.ItemEntity
	itemsAt      map[Vec3i][]string
	nextItemNum  atomic.Uint64

	listeners listeners

	auditLogger AuditLogger
	observer    ObserverSink
	snapshots   chan<- snapshot.SnapshotV1
	snapAcc     float64

	requests chan func(*World)
	stop     chan struct{}

	crafts  uint64
	metrics atomic.Value
}

type machineEntry struct {
	ctrl     *machine.Controller
	inv      *inventory.Slots
	parts    []Vec3i
	listener ListenerID
}

type pipeEntry struct {
	node     *pipe.Node
	listener ListenerID
}

// New builds a world over loaded catalogs. Recipes are registered and
// resolved here; unresolved recipes are logged and excluded from matching.
func New(cfg WorldConfig, cats *catalogs.Catalogs, opts Options) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("world: nil catalogs")
	}
	t := cfg.Tuning
	if t.TickRateHz <= 0 {
		t = tuning.Defaults()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	items := &cats.Items
	reg, err := recipe.FromCatalog(cats.Recipes, items, logger)
	if err != nil {
		return nil, err
	}

	w := &World{
		cfg:          cfg,
		tun:          t,
		items:        items,
		digests:      [2]string{cats.Items.DefsDigest, cats.Recipes.Digest},
		recipes:      reg,
		types:        map[string]machine.Config{},
		log:          logger,
		rng:          newWorldRand(t.Seed),
		chunks:       map[ChunkKey]bool{},
		blocks:       map[Vec3i]string{},
		anchors:      map[Vec3i]Vec3i{},
		machines:     map[Vec3i]*machineEntry{},
		containers:   map[Vec3i]*inventory.Slots{},
		pipes:        map[Vec3i]*pipeEntry{},
		deposits:     map[string]*deposit{},
		itemEntities: map[string]*model.ItemEntity{},
		itemsAt:      map[Vec3i][]string{},
		auditLogger:  opts.Audit,
		observer:     opts.Observer,
		snapshots:    opts.Snapshots,
		requests:     make(chan func(*World), 64),
		stop:         make(chan struct{}),
	}
	for _, spec := range cfg.Machines {
		mc, err := machine.ConfigFromSpec(spec, t)
		if err != nil {
			return nil, err
		}
		w.types[mc.Type] = mc
	}
	r := t.PreloadChunkRadius
	for cx := -r; cx <= r; cx++ {
		for cz := -r; cz <= r; cz++ {
			w.chunks[ChunkKey{CX: cx, CZ: cz}] = true
		}
	}
	if t.GeneratorPowerPerSecond > 0 {
		w.RegisterTick(1, w.systemGenerators)
	}
	w.publishMetrics(0)
	return w, nil
}

func (w *World) ID() string { return w.cfg.ID }

func (w *World) Tuning() tuning.Tuning { return w.tun }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) Recipes() *recipe.Registry { return w.recipes }

func (w *World) Items() *catalogs.ItemCatalog { return w.items }

// MachineTypes lists the configured machine type names.
func (w *World) MachineTypes() []string {
	out := make([]string, 0, len(w.types))
	for t := range w.types {
		out = append(out, t)
	}
	sortStrings(out)
	return out
}

func (w *World) auditEvent(actor, action string, pos Vec3i, reason string, details map[string]any) {
	if w.auditLogger == nil {
		return
	}
	if err := w.auditLogger.WriteAudit(AuditEntry{
		Tick:    w.tick.Load(),
		Actor:   actor,
		Action:  action,
		Pos:     pos.ToArray(),
		Reason:  reason,
		Details: details,
	}); err != nil {
		w.log.Printf("audit %s: %v", action, err)
	}
}

// Welcome describes the world to a new observer session.
func (w *World) Welcome() protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		WorldID: w.cfg.ID,
		Tick:    w.tick.Load(),
		WorldParams: protocol.WorldParams{
			TickRateHz: w.tun.TickRateHz,
			ChunkSize:  w.tun.ChunkSize,
			Seed:       w.tun.Seed,
		},
		Catalogs: protocol.CatalogDigests{
			ItemsDigest:   w.digests[0],
			RecipesDigest: w.digests[1],
			Recipes:       len(w.recipes.All()),
		},
	}
}
