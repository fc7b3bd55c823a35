package pipe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/world/kernel/model"
	"voxelforge.ai/internal/sim/yield"
)

type sizes map[string]int

func (s sizes) MaxStack(code string) int { return s[code] }

type seqRand struct{ vals []int }

func (r *seqRand) Intn(n int) int {
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[0] % n
	r.vals = r.vals[1:]
	return v
}

type fakeEnv struct {
	invs     map[model.Vec3i]inventory.Inventory
	unloaded map[model.Vec3i]bool
	fluids   map[string]int
	rng      *seqRand
}

func newEnv() *fakeEnv {
	return &fakeEnv{
		invs:     map[model.Vec3i]inventory.Inventory{},
		unloaded: map[model.Vec3i]bool{},
		fluids:   map[string]int{"water": 100},
		rng:      &seqRand{},
	}
}

func (e *fakeEnv) Loaded(p model.Vec3i) bool { return !e.unloaded[p] }

func (e *fakeEnv) InventoryAt(p model.Vec3i) (inventory.Inventory, bool) {
	inv, ok := e.invs[p]
	return inv, ok
}

func (e *fakeEnv) MaxStack(code string) int {
	if ppl, ok := e.fluids[code]; ok {
		return 64 * ppl
	}
	return 64
}

func (e *fakeEnv) PortionsPerLitre(code string) (int, bool) {
	ppl, ok := e.fluids[code]
	return ppl, ok
}

func (e *fakeEnv) Rand() yield.Rand { return e.rng }

func box(n int) *inventory.Slots {
	roles := make([]inventory.Role, n)
	return inventory.NewSlots(roles, sizes{"water": 6400})
}

func at(x int) model.Vec3i { return model.Vec3i{X: x} }

func TestFilterTruthTable(t *testing.T) {
	var none *Filter
	require.True(t, none.Eligible("anything"))

	require.True(t, (&Filter{}).Eligible("ingot-copper"), "empty blacklist passes all")
	require.False(t, (&Filter{Whitelist: true}).Eligible("ingot-copper"), "empty whitelist passes none")

	black := &Filter{Patterns: []string{"ore-*", "coal"}}
	require.False(t, black.Eligible("ore-iron"))
	require.False(t, black.Eligible("coal"))
	require.True(t, black.Eligible("coal-coke"))
	require.True(t, black.Eligible("ingot-iron"))

	white := &Filter{Whitelist: true, Patterns: []string{"ore-*", "coal"}}
	require.True(t, white.Eligible("ore-iron"))
	require.True(t, white.Eligible("coal"))
	require.False(t, white.Eligible("coal-coke"))
	require.False(t, white.Eligible("ingot-iron"))
}

func TestPullSlot(t *testing.T) {
	src := box(3)
	require.NoError(t, src.Set(0, inventory.Stack{Code: "ore-iron", Count: 2}))
	require.NoError(t, src.Set(2, inventory.Stack{Code: "ingot-iron", Count: 1}))

	i, ok := PullSlot(src, nil)
	require.True(t, ok)
	require.Equal(t, 0, i)

	i, ok = PullSlot(src, &Filter{Patterns: []string{"ore-*"}})
	require.True(t, ok)
	require.Equal(t, 2, i)

	_, ok = PullSlot(src, &Filter{Whitelist: true})
	require.False(t, ok)
}

func nodeWith(env *fakeEnv, policy Policy, dests ...int) *Node {
	n := NewNode(at(0), at(-1), 1, policy)
	src := box(1)
	_ = src.Set(0, inventory.Stack{Code: "ore", Count: 64})
	env.invs[at(-1)] = src
	for i, d := range dests {
		env.invs[at(d)] = box(1)
		n.Connections = append(n.Connections, Connection{Pos: at(d), Distance: 10 - i})
	}
	return n
}

func count(env *fakeEnv, x int) int { return env.invs[at(x)].Slot(0).Count }

func TestNearestAndFarthest(t *testing.T) {
	env := newEnv()
	n := nodeWith(env, Nearest, 1, 2, 3)
	tr, ok := n.Tick(env)
	require.True(t, ok)
	require.Equal(t, at(3), tr.To)

	n.Policy = Farthest
	tr, ok = n.Tick(env)
	require.True(t, ok)
	require.Equal(t, at(1), tr.To)

	// A full nearest destination falls through to the next one.
	require.NoError(t, env.invs[at(3)].(*inventory.Slots).Set(0, inventory.Stack{Code: "sand", Count: 1}))
	n.Policy = Nearest
	tr, ok = n.Tick(env)
	require.True(t, ok)
	require.Equal(t, at(2), tr.To)
}

func TestRoundRobinFairness(t *testing.T) {
	env := newEnv()
	n := nodeWith(env, RoundRobin, 1, 2, 3, 4)
	var order []model.Vec3i
	for i := 0; i < 4; i++ {
		tr, ok := n.Tick(env)
		require.True(t, ok)
		order = append(order, tr.To)
	}
	require.Equal(t, []model.Vec3i{at(1), at(2), at(3), at(4)}, order)
	for _, d := range []int{1, 2, 3, 4} {
		require.Equal(t, 1, count(env, d))
	}
}

func TestRoundRobinNoFallback(t *testing.T) {
	env := newEnv()
	n := nodeWith(env, RoundRobin, 1, 2)
	require.NoError(t, env.invs[at(1)].(*inventory.Slots).Set(0, inventory.Stack{Code: "sand", Count: 1}))

	_, ok := n.Tick(env)
	require.False(t, ok, "rejecting destination must not fall back")
	require.Equal(t, 0, count(env, 2))
	require.Equal(t, 64, count(env, -1))

	tr, ok := n.Tick(env)
	require.True(t, ok)
	require.Equal(t, at(2), tr.To)
}

func TestRandomTriesOneConnection(t *testing.T) {
	env := newEnv()
	env.rng.vals = []int{1, 0}
	n := nodeWith(env, Random, 1, 2)
	require.NoError(t, env.invs[at(2)].(*inventory.Slots).Set(0, inventory.Stack{Code: "sand", Count: 1}))

	_, ok := n.Tick(env)
	require.False(t, ok)
	tr, ok := n.Tick(env)
	require.True(t, ok)
	require.Equal(t, at(1), tr.To)
}

func TestRateAndFluidScaling(t *testing.T) {
	env := newEnv()
	n := nodeWith(env, Nearest, 1)
	n.Rate = 5
	tr, ok := n.Tick(env)
	require.True(t, ok)
	require.Equal(t, 5, tr.Count)

	n.Rate = Unbounded
	tr, ok = n.Tick(env)
	require.True(t, ok)
	require.Equal(t, 59, tr.Count, "bounded by what the source holds")

	tank := box(1)
	require.NoError(t, tank.Set(0, inventory.Stack{Code: "water", Count: 1000}))
	env.invs[at(-1)] = tank
	env.invs[at(1)] = box(1)
	n.Rate = 2
	tr, ok = n.Tick(env)
	require.True(t, ok)
	require.Equal(t, 200, tr.Count, "two litres of water")
}

func TestUnloadedSourceIsNoop(t *testing.T) {
	env := newEnv()
	n := nodeWith(env, RoundRobin, 1, 2)
	env.unloaded[at(-1)] = true
	_, ok := n.Tick(env)
	require.False(t, ok)
	require.Equal(t, -1, n.Cursor)
	require.Equal(t, 64, count(env, -1))
}

func machineSlots() *inventory.Slots {
	return inventory.NewSlots([]inventory.Role{inventory.RoleInput, inventory.RoleOutput, inventory.RoleAux}, nil)
}

func TestSourcePartIsNeverADestination(t *testing.T) {
	env := newEnv()
	press := machineSlots()
	require.NoError(t, press.Set(1, inventory.Stack{Code: "gear", Count: 2}))
	// at(5) is another part of the same multi-block as the source.
	env.invs[at(-1)] = press
	env.invs[at(5)] = press
	n := NewNode(at(0), at(-1), 1, Nearest)
	n.Connections = []Connection{{Pos: at(5), Distance: 2}}

	_, ok := n.Tick(env)
	require.False(t, ok)
	require.True(t, press.Slot(0).Empty(), "output must not loop into the same machine's input")
	require.Equal(t, 2, press.Slot(1).Count)

	env.invs[at(6)] = box(1)
	n.Connections = append(n.Connections, Connection{Pos: at(6), Distance: 3})
	tr, ok := n.Tick(env)
	require.True(t, ok)
	require.Equal(t, at(6), tr.To)
	require.Equal(t, 1, press.Slot(1).Count)
}

func TestFilteredPullSkipsMachineInputs(t *testing.T) {
	press := machineSlots()
	require.NoError(t, press.Set(0, inventory.Stack{Code: "ingot", Count: 4}))
	require.NoError(t, press.Set(2, inventory.Stack{Code: "hammer", Count: 1}))

	_, ok := PullSlot(press, &Filter{})
	require.False(t, ok, "empty blacklist must not reach input or aux slots")

	require.NoError(t, press.Set(1, inventory.Stack{Code: "plate", Count: 1}))
	i, ok := PullSlot(press, &Filter{})
	require.True(t, ok)
	require.Equal(t, 1, i)
}

// lying reports a push slot that holds a different code.
type lying struct{ *inventory.Slots }

func (l lying) AutoPushSlot(inventory.Stack) (int, bool) { return 0, true }

func TestMoveFaultLeavesContentsIntact(t *testing.T) {
	env := newEnv()
	n := nodeWith(env, Nearest, 1)
	dst := box(1)
	require.NoError(t, dst.Set(0, inventory.Stack{Code: "sand", Count: 3}))
	env.invs[at(1)] = lying{dst}

	_, ok := n.Tick(env)
	require.False(t, ok)
	require.Equal(t, 64, count(env, -1))
	require.Equal(t, inventory.Stack{Code: "sand", Count: 3}, dst.Slot(0))
}

type grid struct {
	pipes map[model.Vec3i]bool
	invs  map[model.Vec3i]bool
}

func (g grid) IsPipe(p model.Vec3i) bool       { return g.pipes[p] }
func (g grid) HasInventory(p model.Vec3i) bool { return g.invs[p] }

func TestDiscoverDistances(t *testing.T) {
	// source(-1) - p0 - p1 - p2 - chestA(3); chestB above p0.
	g := grid{
		pipes: map[model.Vec3i]bool{at(0): true, at(1): true, at(2): true},
		invs: map[model.Vec3i]bool{
			at(-1):             true,
			at(3):              true,
			{X: 0, Y: 1, Z: 0}: true,
		},
	}
	conns := Discover(g, at(0), at(-1), 64)
	require.Equal(t, []Connection{
		{Pos: model.Vec3i{Y: 1}, Distance: 1},
		{Pos: at(3), Distance: 3},
	}, conns)

	require.Empty(t, Discover(g, at(0), at(-1), 0))
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{Nearest, Farthest, RoundRobin, Random} {
		got, ok := ParsePolicy(p.String())
		require.True(t, ok)
		require.Equal(t, p, got)
	}
	_, ok := ParsePolicy("sideways")
	require.False(t, ok)
}
