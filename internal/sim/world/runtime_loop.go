package world

import (
	"context"
	"time"
)

func (w *World) tickDT() float64 { return 1 / float64(w.tun.TickRateHz) }

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.tun.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case fn := <-w.requests:
			fn(w)
		case <-ticker.C:
			w.step()
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// Do runs fn on the world loop and waits for it. It is the only way other
// goroutines touch world state while Run is active.
func (w *World) Do(ctx context.Context, fn func(w *World)) error {
	done := make(chan struct{})
	req := func(w *World) {
		defer close(done)
		fn(w)
	}
	select {
	case w.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StepOnce advances the world by a single tick with the server's ordering.
// It is meant for tests and tools that drive the world without Run.
func (w *World) StepOnce() uint64 {
	w.step()
	return w.tick.Load()
}

func (w *World) step() {
	start := time.Now()
	dt := w.tickDT()
	w.tick.Add(1)
	w.elapsed += dt

	w.listeners.run(dt)

	if w.snapshots != nil {
		w.snapAcc += dt
		if w.snapAcc >= float64(w.tun.SnapshotEverySeconds) {
			w.snapAcc = 0
			w.sendSnapshot()
		}
	}
	w.publishMetrics(time.Since(start))
}

func (w *World) sendSnapshot() {
	snap := w.ExportSnapshot()
	select {
	case w.snapshots <- snap:
	default:
		w.log.Printf("snapshot sink full, skipped tick %d", snap.Header.Tick)
	}
}
