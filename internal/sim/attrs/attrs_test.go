package attrs

import "testing"

func TestTreeDefaultsForMissingOrBadKeys(t *testing.T) {
	tr := Tree{}
	tr.SetFloat("temperature", 812.5)
	tr.SetInt("power", 40)
	tr.SetBool("on", true)
	tr["broken"] = "not-a-number"

	if got := tr.GetFloat("temperature", 0); got != 812.5 {
		t.Fatalf("temperature=%v want=812.5", got)
	}
	if got := tr.GetInt("power", 0); got != 40 {
		t.Fatalf("power=%d want=40", got)
	}
	if !tr.GetBool("on", false) {
		t.Fatalf("on=false want=true")
	}
	if got := tr.GetInt("broken", 7); got != 7 {
		t.Fatalf("broken=%d want default 7", got)
	}
	if got := tr.GetString("missing", "sleeping"); got != "sleeping" {
		t.Fatalf("missing=%q", got)
	}
	if keys := tr.Keys(); len(keys) != 4 || keys[0] != "broken" {
		t.Fatalf("Keys=%v", keys)
	}
}
