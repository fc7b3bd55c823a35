package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	persistlog "voxelforge.ai/internal/persistence/log"
	"voxelforge.ai/internal/persistence/snapshot"
	"voxelforge.ai/internal/protocol"
	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/layout"
	"voxelforge.ai/internal/sim/tuning"
	"voxelforge.ai/internal/sim/world"
	"voxelforge.ai/internal/transport/observer"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		worldID      = flag.String("world", "world_1", "world id")
		configDir    = flag.String("configs", "./configs", "config directory")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		tuningPath   = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		machinesPath = flag.String("machines", "", "path to machines.yaml (default: <configs>/machines.yaml)")
		layoutPath   = flag.String("layout", "", "starting layout for a fresh world (default: <configs>/layout.yaml if present)")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite index (audits, crafts, catalogs, snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tune, err := tuning.Load(orDefault(*tuningPath, filepath.Join(*configDir, "tuning.yaml")))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found; using defaults")
		tune = tuning.Defaults()
	}
	specs, err := tuning.LoadMachines(orDefault(*machinesPath, filepath.Join(*configDir, "machines.yaml")))
	if err != nil {
		logger.Fatalf("load machines: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	snapDir := filepath.Join(worldDir, "snapshots")
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}
	auditLog := persistlog.NewAuditLogger(worldDir, tune.TickRateHz)
	defer auditLog.Close()

	hub := observer.NewHub(logger)
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w, err := world.New(world.WorldConfig{ID: *worldID, Tuning: tune, Machines: specs}, cats, world.Options{
		Logger:    logger,
		Audit:     multiAuditLogger{a: auditLog, b: idx},
		Observer:  hub,
		Snapshots: snapCh,
	})
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	if idx != nil {
		if err := idx.UpsertCatalogs(*configDir, cats, tune, w.Recipes().All()); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		if p, _, err := snapshot.Latest(snapDir); err == nil {
			snapshotToLoad = p
		}
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	} else if lp := layoutFile(*layoutPath, *configDir); lp != "" {
		l, err := layout.Load(lp)
		if err != nil {
			logger.Fatalf("load layout: %v", err)
		}
		if err := layout.Apply(w, l); err != nil {
			logger.Fatalf("apply layout: %v", err)
		}
		logger.Printf("fresh world from layout=%s", lp)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := w.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	writeSnap := func(snap snapshot.SnapshotV1) {
		path := filepath.Join(snapDir, snapshot.FileName(snap.Header.Tick))
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			logger.Printf("snapshot write: %v", err)
			return
		}
		if idx != nil {
			idx.RecordSnapshot(path, snap)
		}
	}
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case snap := <-snapCh:
				writeSnap(snap)
			}
		}
	})

	obsSrv := observer.NewServer(hub, func(ctx context.Context) (protocol.WelcomeMsg, error) {
		var msg protocol.WelcomeMsg
		err := w.Do(ctx, func(w *world.World) { msg = w.Welcome() })
		return msg, err
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			WorldID  string             `json:"world_id"`
			Tick     uint64             `json:"tick"`
			Metrics  world.WorldMetrics `json:"metrics"`
			Sessions int                `json:"observer_sessions"`
			Dropped  uint64             `json:"observer_dropped"`
		}{
			WorldID:  *worldID,
			Tick:     w.CurrentTick(),
			Metrics:  w.Metrics(),
			Sessions: hub.Sessions(),
			Dropped:  hub.Dropped(),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	})
	mux.HandleFunc("/v1/recipes", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel2()
		var buf bytes.Buffer
		var werr error
		if err := w.Do(ctx2, func(w *world.World) { werr = w.EncodeRecipes(&buf) }); err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if werr != nil {
			http.Error(rw, werr.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/octet-stream")
		_, _ = rw.Write(buf.Bytes())
	})
	mux.HandleFunc("/v1/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", obsSrv.WSHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		<-gctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		return srv.Shutdown(ctx2)
	})
	g.Go(func() error {
		logger.Printf("listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Printf("server error: %v", err)
	}

	// The loop has exited, so the export runs without racing it.
	writeSnap(w.ExportSnapshot())
	logger.Printf("stopped at tick=%d", w.CurrentTick())
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func layoutFile(flagPath, configDir string) string {
	if p := strings.TrimSpace(flagPath); p != "" {
		return p
	}
	p := filepath.Join(configDir, "layout.yaml")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

type multiAuditLogger struct {
	a world.AuditLogger
	b world.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}
