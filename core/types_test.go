package core

import (
	"testing"
)

func TestValueMateClassification(t *testing.T) {
	cases := []struct {
		v    Value
		mate bool
	}{
		{ValueMate, true},
		{ValueMate - MaxPly, true},
		{-ValueMate, true},
		{-(ValueMate - MaxPly), true},
		{ValueMate - MaxPly - 1, false},
		{ValueDraw, false},
		{100, false},
		{-100, false},
	}
	for _, tc := range cases {
		if got := tc.v.IsMate(); got != tc.mate {
			t.Errorf("IsMate(%d) = %v, want %v", tc.v, got, tc.mate)
		}
	}
}

func TestValueMateTranslation(t *testing.T) {
	// A mate score found at ply 5 and stored at ply 5 must read back
	// unchanged when loaded at the same ply.
	score := ValueMate - 12
	stored := score.ToTT(5)
	if got := stored.FromTT(5); got != score {
		t.Errorf("roundtrip at same ply: got %d, want %d", got, score)
	}

	// Stored scores are node relative; read back at a shallower ply
	// the same mate sits nearer the root.
	if got := stored.FromTT(3); got != score+2 {
		t.Errorf("roundtrip from shallower ply: got %d, want %d", got, score+2)
	}

	// Mated scores mirror the transform.
	mated := -ValueMate + 9
	if got := mated.ToTT(4).FromTT(4); got != mated {
		t.Errorf("mated roundtrip: got %d, want %d", got, mated)
	}

	// Ordinary scores pass through untouched.
	if got := Value(77).ToTT(9); got != 77 {
		t.Errorf("plain score adjusted on store: got %d", got)
	}
	if got := Value(77).FromTT(9); got != 77 {
		t.Errorf("plain score adjusted on load: got %d", got)
	}
	if got := ValueNone.FromTT(9); got != ValueNone {
		t.Errorf("none adjusted on load: got %d", got)
	}
}

func TestBoundString(t *testing.T) {
	cases := map[Bound]string{
		BoundNone:  "none",
		BoundUpper: "upper",
		BoundLower: "lower",
		BoundExact: "exact",
	}
	for b, want := range cases {
		if got := b.String(); got != want {
			t.Errorf("Bound(%d).String() = %q, want %q", b, got, want)
		}
	}
}

func TestColorFlip(t *testing.T) {
	if Black.Flip() != White || White.Flip() != Black {
		t.Error("Flip must swap the sides")
	}
}

func TestMoveNone(t *testing.T) {
	if !MoveNone.IsNone() {
		t.Error("MoveNone must report IsNone")
	}
	if Move(1).IsNone() {
		t.Error("a real move must not report IsNone")
	}
}
