package layout

import (
	"strings"
	"testing"

	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/tuning"
	"voxelforge.ai/internal/sim/world"
	"voxelforge.ai/internal/sim/world/kernel/model"
)

func shippedWorld(t *testing.T) *world.World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	specs, err := tuning.LoadMachines("../../../configs/machines.yaml")
	if err != nil {
		t.Fatalf("machines: %v", err)
	}
	w, err := world.New(world.WorldConfig{ID: "layout", Tuning: tuning.Defaults(), Machines: specs}, cats, world.Options{})
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

func TestParseRejectsUnknownPolicy(t *testing.T) {
	_, err := Parse([]byte("extractors:\n  - pipe: [1, 0, 0]\n    source: [0, 0, 0]\n    policy: sideways\n"))
	if err == nil || !strings.Contains(err.Error(), "sideways") {
		t.Fatalf("err=%v want unknown policy", err)
	}
	if _, err := Parse([]byte("containers: [")); err == nil {
		t.Fatalf("malformed yaml accepted")
	}
}

func TestApplyShippedLayout(t *testing.T) {
	l, err := Load("../../../configs/layout.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	w := shippedWorld(t)
	if err := Apply(w, l); err != nil {
		t.Fatalf("apply: %v", err)
	}

	chest, ok := w.Container(model.Vec3i{})
	if !ok {
		t.Fatalf("missing chest")
	}
	furnace, ok := w.Machine(model.Vec3i{X: 2})
	if !ok || furnace.Type() != "furnace" {
		t.Fatalf("furnace=%v ok=%v", furnace, ok)
	}
	press, ok := w.Machine(model.Vec3i{X: 2, Z: 4})
	if !ok || press.Type() != "press" {
		t.Fatalf("press missing")
	}
	if got := press.State().String(); got != "on" {
		t.Fatalf("press state=%s want=on with ingots and a hammer", got)
	}

	feed, ok := w.PipeNode(model.Vec3i{X: 1})
	if !ok || len(feed.Connections) != 1 || feed.Connections[0].Pos != (model.Vec3i{X: 2}) {
		t.Fatalf("feed node=%+v", feed)
	}
	drain, ok := w.PipeNode(model.Vec3i{X: 3})
	if !ok || len(drain.Connections) != 1 || drain.Connections[0].Pos != (model.Vec3i{X: 4}) {
		t.Fatalf("drain node=%+v", drain)
	}

	w.StepOnce()
	if got := furnace.Inventory().Slot(0); got.Code != "copper_ore" || got.Count != 1 {
		t.Fatalf("furnace input=%v want copper_ore x1", got)
	}
	if got := chest.Slot(0).Count; got != 63 {
		t.Fatalf("chest=%d want=63", got)
	}
	if got := w.BlockAt(model.Vec3i{X: 2, Y: 1}); got != "blower" {
		t.Fatalf("blower=%q", got)
	}
}

func TestApplyRejectsOverfullSlots(t *testing.T) {
	l := Layout{Containers: []Container{{
		Pos:   [3]int{0, 0, 0},
		Slots: 1,
		Items: []Stack{{Code: "sand", Count: 1}, {Code: "sand", Count: 1}},
	}}}
	if err := Apply(shippedWorld(t), l); err == nil {
		t.Fatalf("overfull container accepted")
	}
}
