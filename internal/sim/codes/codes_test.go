package codes

import "testing"

func TestCapture(t *testing.T) {
	cases := []struct {
		pattern, code string
		variant       string
		ok            bool
	}{
		{"ingot-copper", "ingot-copper", "", true},
		{"ingot-copper", "ingot-tin", "", false},
		{"ingot-*", "ingot-tin", "tin", true},
		{"*-ore-poor", "nativecopper-ore-poor", "nativecopper", true},
		{"nugget-*-small", "nugget-gold-small", "gold", true},
		{"nugget-*-small", "nugget-gold", "", false},
		{"ingot-*", "plate-tin", "", false},
	}
	for _, c := range cases {
		v, ok := Capture(c.pattern, c.code)
		if ok != c.ok || v != c.variant {
			t.Fatalf("Capture(%q,%q)=(%q,%v) want=(%q,%v)", c.pattern, c.code, v, ok, c.variant, c.ok)
		}
	}
}

func TestMatchVariants(t *testing.T) {
	if !Match("ingot-*", "ingot-tin", []string{"copper", "tin"}) {
		t.Fatalf("expected tin to be an allowed variant")
	}
	if Match("ingot-*", "ingot-iron", []string{"copper", "tin"}) {
		t.Fatalf("expected iron to be rejected by variants")
	}
	if !Match("ingot-iron", "ingot-iron", []string{"copper"}) {
		t.Fatalf("exact pattern must ignore variants")
	}
}

func TestMatchPrefix(t *testing.T) {
	if !MatchPrefix("ore-*", "ore-copper") {
		t.Fatalf("trailing wildcard must match prefix")
	}
	if MatchPrefix("ore-*", "ingot-copper") {
		t.Fatalf("unexpected prefix match")
	}
	if !MatchPrefix("coal", "coal") || MatchPrefix("coal", "coalblock") {
		t.Fatalf("exact filter pattern mismatch")
	}
}
