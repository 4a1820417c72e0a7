package mathx

import "testing"

func TestClampSwapsBounds(t *testing.T) {
	cases := []struct{ v, lo, hi, want int }{
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
		{7, 0, 10, 7},
		{7, 10, 0, 7},
		{-1, 10, 0, 0},
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Fatalf("Clamp(%d,%d,%d)=%d want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestMinMax(t *testing.T) {
	if Min(uint32(3), 9) != 3 || Max(uint32(3), 9) != 9 {
		t.Fatal("min/max")
	}
}

func TestWrap(t *testing.T) {
	cases := []struct{ pos, n, size, add, sub uint32 }{
		{0, 0, 8, 0, 0},
		{5, 2, 8, 7, 3},
		{6, 2, 8, 0, 4},
		{7, 3, 8, 2, 4},
		{1, 3, 8, 4, 6},
		{0, 8, 8, 0, 0},
	}
	for _, c := range cases {
		if got := WrapAdd(c.pos, c.n, c.size); got != c.add {
			t.Fatalf("WrapAdd(%d,%d,%d)=%d want %d", c.pos, c.n, c.size, got, c.add)
		}
		if got := WrapSub(c.pos, c.n, c.size); got != c.sub {
			t.Fatalf("WrapSub(%d,%d,%d)=%d want %d", c.pos, c.n, c.size, got, c.sub)
		}
	}
}
