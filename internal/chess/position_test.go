package chess

import "testing"

func TestWithinBoard(t *testing.T) {
	cases := []struct {
		pos  Vector2d
		want bool
	}{
		{Vector2d{0, 0}, true},
		{Vector2d{7, 7}, true},
		{Vector2d{3, 5}, true},
		{Vector2d{-1, 0}, false},
		{Vector2d{0, -1}, false},
		{Vector2d{8, 0}, false},
		{Vector2d{0, 8}, false},
	}
	for _, c := range cases {
		if got := WithinBoard(c.pos); got != c.want {
			t.Errorf("WithinBoard(%v) = %v, want %v", c.pos, got, c.want)
		}
	}
}

func TestSameLine(t *testing.T) {
	cases := []struct {
		a, b Vector2d
		want bool
	}{
		{Vector2d{0, 0}, Vector2d{0, 7}, true},  // file
		{Vector2d{0, 0}, Vector2d{7, 0}, true},  // rank
		{Vector2d{0, 0}, Vector2d{7, 7}, true},  // rising diagonal
		{Vector2d{0, 7}, Vector2d{7, 0}, true},  // falling diagonal
		{Vector2d{0, 0}, Vector2d{1, 2}, false}, // knight jump
		{Vector2d{2, 3}, Vector2d{5, 4}, false},
	}
	for _, c := range cases {
		if got := SameLine(c.a, c.b); got != c.want {
			t.Errorf("SameLine(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestSameLine3(t *testing.T) {
	cases := []struct {
		a, b, c Vector2d
		want    bool
	}{
		{Vector2d{0, 0}, Vector2d{0, 3}, Vector2d{0, 6}, true},
		{Vector2d{0, 0}, Vector2d{3, 3}, Vector2d{6, 6}, true},
		// b on a's file, c on a's diagonal: not the same kind of line.
		{Vector2d{0, 0}, Vector2d{0, 3}, Vector2d{3, 3}, false},
		{Vector2d{4, 4}, Vector2d{4, 6}, Vector2d{6, 4}, false},
	}
	for _, c := range cases {
		if got := SameLine3(c.a, c.b, c.c); got != c.want {
			t.Errorf("SameLine3(%v, %v, %v) = %v, want %v", c.a, c.b, c.c, got, c.want)
		}
	}
}

func TestIsBetween(t *testing.T) {
	if !IsBetween(Vector2d{3, 3}, Vector2d{1, 1}, Vector2d{5, 5}) {
		t.Error("(3,3) should lie between (1,1) and (5,5)")
	}
	if IsBetween(Vector2d{6, 6}, Vector2d{1, 1}, Vector2d{5, 5}) {
		t.Error("(6,6) should not lie between (1,1) and (5,5)")
	}
	if IsBetween(Vector2d{1, 1}, Vector2d{1, 1}, Vector2d{5, 5}) {
		t.Error("an endpoint does not lie strictly between")
	}
}

func TestUnitVectorTo(t *testing.T) {
	cases := []struct {
		a, b, want Vector2d
	}{
		{Vector2d{0, 0}, Vector2d{0, 5}, Up},
		{Vector2d{0, 0}, Vector2d{4, 4}, UpRight},
		{Vector2d{5, 5}, Vector2d{2, 5}, Left},
		{Vector2d{7, 7}, Vector2d{4, 4}, DownLeft},
	}
	for _, c := range cases {
		if got := UnitVectorTo(c.a, c.b); got != c.want {
			t.Errorf("UnitVectorTo(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestSameColor(t *testing.T) {
	if !SameColor(Vector2d{0, 0}, Vector2d{1, 1}) {
		t.Error("(0,0) and (1,1) are both dark squares")
	}
	if SameColor(Vector2d{0, 0}, Vector2d{0, 1}) {
		t.Error("(0,0) and (0,1) differ in color")
	}
}
