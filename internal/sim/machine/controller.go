// Package machine is the crafting machine simulation: one Controller type,
// parametrized by a Config, drives every machine kind through the
// Off/Sleeping/On lifecycle.
package machine

import (
	"fmt"
	"io"
	"log"
	"math"

	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/recipe"
	"voxelforge.ai/internal/sim/world/kernel/model"
	"voxelforge.ai/internal/sim/yield"
)

const (
	stallOutput = "output full"
	stallPower  = "no power"

	byproductMin  = 5
	byproductSpan = 11
)

// Env is the world accessor a controller needs.
type Env interface {
	Rand() yield.Rand
	Climate(pos model.Vec3i) float64
	CountDevices(pos model.Vec3i, code string) int
	// Spawn drops a stack as an item entity at pos.
	Spawn(pos model.Vec3i, s inventory.Stack)
}

// Items is the catalog subset used for fuel, smelting and tool wear.
type Items interface {
	MaxDurability(code string) int
	Fuel(code string) (catalogs.FuelProps, bool)
	Smelting(code string) (catalogs.SmeltingProps, bool)
	PortionsPerLitre(code string) (int, bool)
}

// Storage is the machine's own slot inventory.
type Storage interface {
	inventory.Inventory
	OnChange(fn func(slot int))
	Set(i int, s inventory.Stack) error
}

type Observer interface {
	Update(u Update)
}

type OutputResult struct {
	Code      string
	Yield     int
	Deposited int
	Dropped   int
}

type CraftEvent struct {
	Pos      model.Vec3i
	Type     string
	Family   recipe.Family
	RecipeID int32
	Name     string
	Outputs  []OutputResult

	ToolBroken bool
	Byproduct  OutputResult
}

// Hooks are optional world callbacks; nil fields are skipped.
type Hooks struct {
	OnCraft func(ev CraftEvent)
	OnState func(pos model.Vec3i, from, to State)
}

type Deps struct {
	Env      Env
	Items    Items
	Recipes  *recipe.Registry
	Observer Observer
	Hooks    Hooks
	Logger   *log.Logger
}

type Controller struct {
	cfg     Config
	pos     model.Vec3i
	inv     Storage
	env     Env
	items   Items
	sources []Source
	gate    gate
	obs     Observer
	hooks   Hooks
	log     *log.Logger

	state  State
	active *Plan
	stall  string

	progress    float64
	power       int64
	temperature float64
	envTemp     float64
	envAcc      float64
	sleepAcc    float64

	fuelLeft  float64
	fuelTotal float64
	burnTemp  float64

	// busy suppresses change notifications caused by the controller's own
	// slot writes.
	busy bool
}

// New builds a controller over storage and subscribes it to slot changes.
// The controller starts Sleeping and runs an initial search.
func New(cfg Config, pos model.Vec3i, storage Storage, deps Deps) (*Controller, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if storage == nil {
		return nil, fmt.Errorf("%w: %s at %s: no inventory", ErrSetup, cfg.Type, pos)
	}
	if storage.Len() < cfg.Layout.Slots {
		return nil, fmt.Errorf("%w: %s at %s: inventory has %d slots, want %d", ErrSetup, cfg.Type, pos, storage.Len(), cfg.Layout.Slots)
	}
	if deps.Env == nil || deps.Items == nil {
		return nil, fmt.Errorf("%w: %s at %s: missing world accessor", ErrSetup, cfg.Type, pos)
	}
	for _, f := range cfg.Families {
		if f != recipe.FamilySmelt && deps.Recipes == nil {
			return nil, fmt.Errorf("%w: %s at %s: no recipe registry", ErrSetup, cfg.Type, pos)
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	c := &Controller{
		cfg:     cfg,
		pos:     pos,
		inv:     storage,
		env:     deps.Env,
		items:   deps.Items,
		sources: buildSources(cfg, deps),
		gate:    gateFor(cfg),
		obs:     deps.Observer,
		hooks:   deps.Hooks,
		log:     logger,
		state:   Sleeping,
	}
	c.envTemp = c.env.Climate(pos)
	c.temperature = c.envTemp
	storage.OnChange(c.OnSlotModified)
	c.search()
	return c, nil
}

func (c *Controller) Pos() model.Vec3i     { return c.pos }
func (c *Controller) Type() string         { return c.cfg.Type }
func (c *Controller) Config() Config       { return c.cfg }
func (c *Controller) State() State         { return c.state }
func (c *Controller) Active() *Plan        { return c.active }
func (c *Controller) Progress() float64    { return c.progress }
func (c *Controller) Power() int64         { return c.power }
func (c *Controller) Temperature() float64 { return c.temperature }
func (c *Controller) Inventory() Storage   { return c.inv }

// Fraction is progress relative to the active plan's requirement, in [0,1].
func (c *Controller) Fraction() float64 {
	req := c.gate.required(c)
	if c.active == nil || req <= 0 {
		return 0
	}
	return math.Min(1, c.progress/req)
}

func (c *Controller) setState(s State) {
	if s == c.state {
		return
	}
	from := c.state
	c.state = s
	if c.hooks.OnState != nil {
		c.hooks.OnState(c.pos, from, s)
	}
}

// OnSlotModified re-runs the recipe search synchronously.
func (c *Controller) OnSlotModified(slot int) {
	if c.busy || c.state == Off {
		return
	}
	c.search()
	c.publish()
}

// Toggle switches the machine off, or back on into whatever state a fresh
// search computes.
func (c *Controller) Toggle(on bool) {
	if !on {
		c.setState(Off)
		c.stall = ""
		c.publish()
		return
	}
	if c.state != Off {
		return
	}
	c.setState(Sleeping)
	c.search()
	c.publish()
}

// ReceivePower stores up to n units and returns the amount accepted. Only
// power-gated machines take power; capacity 0 means unbounded.
func (c *Controller) ReceivePower(n int64) int64 {
	if c.cfg.Gate != GatePower || n <= 0 {
		return 0
	}
	if c.cfg.PowerCapacity > 0 {
		n = min(n, c.cfg.PowerCapacity-c.power)
	}
	if n <= 0 {
		return 0
	}
	c.power += n
	return n
}

func (c *Controller) search() {
	if c.state == Off {
		return
	}
	p := c.find()
	if p == nil {
		c.active = nil
		c.progress = 0
		c.stall = ""
		c.setState(Sleeping)
		return
	}
	if c.active.Key() != p.key {
		c.progress = 0
	}
	c.active = p
	c.setState(On)
}

func (c *Controller) find() *Plan {
	l := c.cfg.Layout
	if c.inv.Slot(l.Inputs[0]).Empty() {
		return nil
	}
	pr := slotView{
		slots:   l.Inputs,
		inputs:  make([]inventory.Stack, len(l.Inputs)),
		devices: func(code string) int { return c.env.CountDevices(c.pos, code) },
	}
	for i, s := range l.Inputs {
		pr.inputs[i] = c.inv.Slot(s)
	}
	if l.Aux >= 0 {
		pr.aux = c.inv.Slot(l.Aux)
	}
	for _, src := range c.sources {
		if p, ok := src.find(pr); ok {
			return p
		}
	}
	return nil
}

// Tick advances the machine by dt seconds. While Off or Sleeping the work is
// deferred until the sleep accumulator crosses its threshold.
func (c *Controller) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	c.envAcc += dt
	if c.envAcc >= c.cfg.EnvResampleSeconds {
		c.envAcc = 0
		c.envTemp = c.env.Climate(c.pos)
	}

	if c.state != On {
		c.sleepAcc += dt
		if c.sleepAcc < c.cfg.SleepSeconds {
			return
		}
		dt, c.sleepAcc = c.sleepAcc, 0
		c.heat(dt)
		if c.state == Sleeping {
			c.search()
		}
		c.publish()
		return
	}
	c.sleepAcc = 0
	c.heat(dt)
	c.advance(dt)
	c.publish()
}

// heat burns fuel and moves the temperature toward the current target.
func (c *Controller) heat(dt float64) {
	if !c.cfg.heated() {
		c.temperature = c.envTemp
		return
	}
	if c.fuelLeft <= 0 && c.state == On && c.active != nil {
		c.ignite()
	}
	target := c.envTemp
	if c.fuelLeft > 0 {
		target = c.burnTemp
		c.fuelLeft = math.Max(0, c.fuelLeft-dt)
	}
	c.temperature = ChangeTemperature(c.temperature, target, dt, c.cfg.Thermal)
}

func (c *Controller) ignite() {
	slot := c.cfg.Layout.Fuel
	st := c.inv.Slot(slot)
	if st.Empty() {
		return
	}
	props, ok := c.items.Fuel(st.Code)
	if !ok {
		return
	}
	c.busy = true
	c.inv.TakeOut(slot, 1)
	c.busy = false
	c.fuelLeft = props.BurnSeconds
	c.fuelTotal = props.BurnSeconds
	c.burnTemp = props.BurnTemperature
}

func (c *Controller) advance(dt float64) {
	if c.active == nil {
		return
	}
	if !c.outputRoom() {
		c.stall = stallOutput
		return
	}
	gain, reason := c.gate.advance(c, dt)
	c.stall = reason
	if gain > 0 {
		c.progress += gain
	}
	if c.active.Temperature > 0 && c.temperature < c.active.Temperature {
		return
	}
	if c.progress >= c.gate.required(c) {
		c.complete()
	}
}

// outputRoom reports whether every code the active plan deposits fits, at
// least partially, in some output slot.
func (c *Controller) outputRoom() bool {
	for _, code := range c.active.outputCodes() {
		ok := false
		for _, s := range c.cfg.Layout.Outputs {
			if c.inv.RemainingCapacity(s, code) > 0 {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func (c *Controller) complete() {
	p := c.active
	rng := c.env.Rand()
	ev := CraftEvent{Pos: c.pos, Type: c.cfg.Type, Family: p.Family, RecipeID: p.ID, Name: p.Name}

	c.busy = true
	for _, o := range p.outputs {
		n := yield.Sample(rng, o.Base, o.Spread, o.Portions)
		ev.Outputs = append(ev.Outputs, c.distribute(o.Code, n))
	}
	for _, t := range p.consume {
		c.inv.TakeOut(t.Slot, t.Count)
	}
	if p.Wear {
		ev.ToolBroken, ev.Byproduct = c.wear(rng)
	}
	c.busy = false

	c.progress = 0
	c.stall = ""
	if c.hooks.OnCraft != nil {
		c.hooks.OnCraft(ev)
	}
	c.search()
}

// distribute deposits n of code into the output slots in order, splitting
// across slots, and drops the remainder into the world.
func (c *Controller) distribute(code string, n int) OutputResult {
	res := OutputResult{Code: code, Yield: n}
	left := n
	for _, s := range c.cfg.Layout.Outputs {
		if left <= 0 {
			break
		}
		room := c.inv.RemainingCapacity(s, code)
		if room <= 0 {
			continue
		}
		added, err := c.inv.PutInto(s, inventory.Stack{Code: code, Count: min(room, left)})
		if err != nil {
			continue
		}
		left -= added
		res.Deposited += added
	}
	if left > 0 {
		c.env.Spawn(c.pos, inventory.Stack{Code: code, Count: left})
		res.Dropped = left
	}
	return res
}

// wear spends one use of the aux tool. A tool reaching zero uses is removed
// and leaves a byproduct.
func (c *Controller) wear(rng yield.Rand) (bool, OutputResult) {
	slot := c.cfg.Layout.Aux
	tool := c.inv.Slot(slot)
	if tool.Empty() {
		return false, OutputResult{}
	}
	uses := tool.Durability
	if uses <= 0 {
		uses = c.items.MaxDurability(tool.Code)
	}
	uses--
	if uses > 0 {
		tool.Durability = uses
		if err := c.inv.Set(slot, tool); err != nil {
			c.log.Printf("%s at %s: tool wear: %v", c.cfg.Type, c.pos, err)
		}
		return false, OutputResult{}
	}

	c.inv.TakeOut(slot, 1)
	if rest := c.inv.Slot(slot); !rest.Empty() && rest.Durability != 0 {
		rest.Durability = 0
		_ = c.inv.Set(slot, rest)
	}
	if c.cfg.Byproduct == "" {
		return true, OutputResult{}
	}
	n := byproductMin
	if rng != nil {
		n += rng.Intn(byproductSpan)
	}
	return true, c.distribute(c.cfg.Byproduct, n)
}
