package world

import (
	"fmt"

	"voxelforge.ai/internal/sim/pipe"
)

// maxPipeNodes caps the segments one extractor's network walk visits.
const maxPipeNodes = 4096

// ExtractorOptions configures a pipe face extracting from an inventory.
type ExtractorOptions struct {
	Filter *pipe.Filter
	// Rate is units per tick; 0 takes the tuning default and pipe.Unbounded
	// moves a full stack.
	Rate   int
	Policy pipe.Policy
}

// PlacePipe lays a pipe segment at pos.
func (w *World) PlacePipe(pos Vec3i) error { return w.SetBlock(pos, BlockPipe) }

// AttachExtractor turns the pipe at pipePos into an extracting node pulling
// from the adjacent inventory at source.
func (w *World) AttachExtractor(pipePos, source Vec3i, opts ExtractorOptions) (*pipe.Node, error) {
	if w.blocks[pipePos] != BlockPipe {
		return nil, fmt.Errorf("world: extractor at %s: not a pipe", pipePos)
	}
	if pipePos.Manhattan(source) != 1 {
		return nil, fmt.Errorf("world: extractor at %s: source %s not adjacent", pipePos, source)
	}
	if _, ok := w.InventoryAt(source); !ok {
		return nil, fmt.Errorf("world: extractor at %s: no inventory at %s", pipePos, source)
	}
	if _, ok := w.pipes[pipePos]; ok {
		return nil, fmt.Errorf("world: extractor at %s: already attached", pipePos)
	}
	rate := opts.Rate
	if rate == 0 {
		rate = w.tun.PipeRate
	}
	n := pipe.NewNode(pipePos, source, rate, opts.Policy)
	n.Filter = opts.Filter
	n.Connections = pipe.Discover(w, pipePos, source, maxPipeNodes)
	w.addPipeNode(n)
	w.auditEvent("WORLD", "ATTACH_EXTRACTOR", pipePos, "", map[string]any{
		"source":      source.ToArray(),
		"rate":        rate,
		"policy":      opts.Policy.String(),
		"connections": len(n.Connections),
	})
	return n, nil
}

func (w *World) addPipeNode(n *pipe.Node) {
	e := &pipeEntry{node: n}
	e.listener = w.RegisterTick(w.tickDT(), func(float64) {
		tr, ok := n.Tick(w)
		if !ok {
			return
		}
		pipeTransfers.WithLabelValues(n.Policy.String()).Inc()
		pipeUnits.Add(float64(tr.Count))
		w.auditEvent("PIPE", "TRANSFER", n.Pos, "", map[string]any{
			"from":  tr.From.ToArray(),
			"to":    tr.To.ToArray(),
			"item":  tr.Code,
			"count": tr.Count,
		})
	})
	w.pipes[n.Pos] = e
}

// DetachExtractor stops the node on pipePos.
func (w *World) DetachExtractor(pipePos Vec3i) bool {
	e, ok := w.pipes[pipePos]
	if !ok {
		return false
	}
	w.UnregisterTick(e.listener)
	delete(w.pipes, pipePos)
	return true
}

func (w *World) PipeNode(pipePos Vec3i) (*pipe.Node, bool) {
	e, ok := w.pipes[pipePos]
	if !ok {
		return nil, false
	}
	return e.node, true
}

// rediscoverPipes recomputes every node's destinations after the block
// layout changed. Cursors are kept; pick wraps them into range.
func (w *World) rediscoverPipes() {
	for _, p := range sortedKeys(w.pipes) {
		e := w.pipes[p]
		if w.blocks[p] != BlockPipe {
			w.UnregisterTick(e.listener)
			delete(w.pipes, p)
			continue
		}
		e.node.Connections = pipe.Discover(w, p, e.node.Source, maxPipeNodes)
	}
}

func (w *World) IsPipe(pos Vec3i) bool { return w.blocks[pos] == BlockPipe }

func (w *World) HasInventory(pos Vec3i) bool {
	_, ok := w.InventoryAt(pos)
	return ok
}
