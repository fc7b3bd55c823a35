package mathx

import "testing"

func TestFloorDivMod(t *testing.T) {
	cases := []struct{ a, b, q, m int }{
		{7, 4, 1, 3},
		{-1, 16, -1, 15},
		{-16, 16, -1, 0},
		{-17, 16, -2, 15},
		{0, 16, 0, 0},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.q {
			t.Fatalf("FloorDiv(%d,%d)=%d want=%d", c.a, c.b, got, c.q)
		}
		if got := Mod(c.a, c.b); got != c.m {
			t.Fatalf("Mod(%d,%d)=%d want=%d", c.a, c.b, got, c.m)
		}
	}
}

func TestHashesDeterministic(t *testing.T) {
	if Hash3(1, 2, 3, 4) != Hash3(1, 2, 3, 4) {
		t.Fatalf("Hash3 not deterministic")
	}
	if Hash3(1, 2, 3, 4) == Hash3(2, 2, 3, 4) {
		t.Fatalf("Hash3 ignores seed")
	}
	if HashString(1, "a") == HashString(1, "b") {
		t.Fatalf("HashString collides on a/b")
	}
}

func TestInSphere(t *testing.T) {
	if !InSphere(1, 1, 1, 2) || InSphere(2, 2, 0, 2) {
		t.Fatalf("InSphere boundary wrong")
	}
	if ClampInt(5, 0, 3) != 3 || ClampInt(-1, 0, 3) != 0 {
		t.Fatalf("ClampInt wrong")
	}
}
