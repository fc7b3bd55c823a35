package world

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"voxelforge.ai/internal/sim/machine"
)

var (
	craftsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxelforge_crafts_total",
			Help: "Completed machine crafts",
		},
		[]string{"machine", "family"},
	)

	toolBreaks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxelforge_tool_breaks_total",
			Help: "Auxiliary tools destroyed by wear",
		},
		[]string{"machine"},
	)

	droppedItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxelforge_dropped_items_total",
			Help: "Units spawned as item entities",
		},
		[]string{"reason"},
	)

	pipeTransfers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxelforge_pipe_transfers_total",
			Help: "Successful pipe node transfers",
		},
		[]string{"policy"},
	)

	pipeUnits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voxelforge_pipe_units_total",
			Help: "Units moved by pipe nodes",
		},
	)

	machineStates = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "voxelforge_machines",
			Help: "Placed machines by lifecycle state",
		},
		[]string{"state"},
	)

	tickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "voxelforge_tick_duration_seconds",
			Help:    "World step latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		},
	)
)

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	LoadedChunks int `json:"loaded_chunks"`
	Machines     int `json:"machines"`
	Active       int `json:"active"`
	Sleeping     int `json:"sleeping"`
	Off          int `json:"off"`
	Containers   int `json:"containers"`
	Pipes        int `json:"pipes"`
	ItemEntities int `json:"item_entities"`
	Listeners    int `json:"listeners"`

	Crafts uint64  `json:"crafts"`
	StepMS float64 `json:"step_ms"`
}

func (w *World) publishMetrics(d time.Duration) {
	if d > 0 {
		tickDuration.Observe(d.Seconds())
	}
	m := WorldMetrics{
		Tick:         w.tick.Load(),
		LoadedChunks: len(w.chunks),
		Machines:     len(w.machines),
		Containers:   len(w.containers),
		Pipes:        len(w.pipes),
		ItemEntities: len(w.itemEntities),
		Listeners:    w.listeners.len(),
		Crafts:       w.crafts,
		StepMS:       float64(d.Microseconds()) / 1000,
	}
	for _, e := range w.machines {
		switch e.ctrl.State() {
		case machine.On:
			m.Active++
		case machine.Sleeping:
			m.Sleeping++
		case machine.Off:
			m.Off++
		}
	}
	w.metrics.Store(m)
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}
