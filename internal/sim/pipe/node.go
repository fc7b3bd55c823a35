// Package pipe routes items and fluids between inventories: one Node per
// extracting pipe face pulls from its source and pushes to one of its
// destinations per tick.
package pipe

import (
	"sort"

	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/world/kernel/model"
	"voxelforge.ai/internal/sim/yield"
)

// Unbounded as a rate moves one full stack per tick.
const Unbounded = -1

// Env is the world accessor a node needs.
type Env interface {
	Loaded(pos model.Vec3i) bool
	// InventoryAt resolves the inventory at pos, following a multi-block's
	// anchor.
	InventoryAt(pos model.Vec3i) (inventory.Inventory, bool)
	MaxStack(code string) int
	PortionsPerLitre(code string) (int, bool)
	Rand() yield.Rand
}

type Connection struct {
	Pos      model.Vec3i
	Distance int
}

type Node struct {
	// Pos is the pipe segment; Source is the block it extracts from.
	Pos    model.Vec3i
	Source model.Vec3i

	Filter *Filter
	Rate   int
	Policy Policy
	Cursor int

	Connections []Connection
}

// NewNode returns a node whose first round-robin push goes to connection 0.
func NewNode(pos, source model.Vec3i, rate int, policy Policy) *Node {
	return &Node{Pos: pos, Source: source, Rate: rate, Policy: policy, Cursor: -1}
}

type Transfer struct {
	From     model.Vec3i
	To       model.Vec3i
	FromSlot int
	ToSlot   int
	Code     string
	Count    int
}

// Tick performs at most one transfer. A false result means nothing moved and
// no inventory changed.
func (n *Node) Tick(env Env) (Transfer, bool) {
	if !env.Loaded(n.Source) {
		return Transfer{}, false
	}
	src, ok := env.InventoryAt(n.Source)
	if !ok {
		return Transfer{}, false
	}
	si, ok := PullSlot(src, n.Filter)
	if !ok {
		return Transfer{}, false
	}
	stack := src.Slot(si)

	conn, dst, di, ok := n.pick(env, src, stack)
	if !ok {
		return Transfer{}, false
	}
	moved, err := inventory.Move(src, si, dst, di, n.limit(env, stack.Code))
	if err != nil || moved <= 0 {
		return Transfer{}, false
	}
	return Transfer{
		From:     n.Source,
		To:       conn.Pos,
		FromSlot: si,
		ToSlot:   di,
		Code:     stack.Code,
		Count:    moved,
	}, true
}

// limit is the per-tick unit bound for code. Fluid rates are in litres.
func (n *Node) limit(env Env, code string) int {
	if n.Rate == Unbounded {
		return env.MaxStack(code)
	}
	lim := n.Rate
	if ppl, ok := env.PortionsPerLitre(code); ok {
		lim *= ppl
	}
	return lim
}

func (n *Node) pick(env Env, src inventory.Inventory, s inventory.Stack) (Connection, inventory.Inventory, int, bool) {
	if len(n.Connections) == 0 {
		return Connection{}, nil, 0, false
	}
	switch n.Policy {
	case RoundRobin:
		n.Cursor = (n.Cursor + 1) % len(n.Connections)
		if n.Cursor < 0 {
			n.Cursor = 0
		}
		return n.offer(env, src, n.Connections[n.Cursor], s)
	case Random:
		i := 0
		if rng := env.Rand(); rng != nil {
			i = rng.Intn(len(n.Connections))
		}
		return n.offer(env, src, n.Connections[i], s)
	}

	order := append([]Connection(nil), n.Connections...)
	sort.SliceStable(order, func(i, j int) bool {
		if n.Policy == Farthest {
			return order[i].Distance > order[j].Distance
		}
		return order[i].Distance < order[j].Distance
	})
	for _, c := range order {
		if conn, dst, di, ok := n.offer(env, src, c, s); ok {
			return conn, dst, di, true
		}
	}
	return Connection{}, nil, 0, false
}

// offer never accepts the source itself, including through another part of
// the same multi-block.
func (n *Node) offer(env Env, src inventory.Inventory, c Connection, s inventory.Stack) (Connection, inventory.Inventory, int, bool) {
	if c.Pos == n.Source || !env.Loaded(c.Pos) {
		return c, nil, 0, false
	}
	dst, ok := env.InventoryAt(c.Pos)
	if !ok || dst == src {
		return c, nil, 0, false
	}
	di, ok := dst.AutoPushSlot(s)
	if !ok {
		return c, nil, 0, false
	}
	return c, dst, di, true
}
