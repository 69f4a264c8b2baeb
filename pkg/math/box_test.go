package math

import (
	"math"
	"testing"
)

func TestNewAABoxNormalizes(t *testing.T) {
	b := NewAABox(Vec3{5, -1, 3}, Vec3{1, 2, -3})
	if b.Lo != (Vec3{1, -1, -3}) || b.Hi != (Vec3{5, 2, 3}) {
		t.Errorf("NewAABox = %+v", b)
	}
}

func TestAABoxZeroSentinel(t *testing.T) {
	if !(AABox{}).IsZero() {
		t.Error("zero value should be the sentinel")
	}
	if NewAABox(Vec3{}, Vec3{0, 0, 1}).IsZero() {
		t.Error("non-degenerate box reported as sentinel")
	}
}

func TestAABoxCorners(t *testing.T) {
	b := NewAABox(Vec3{0, 0, 0}, Vec3{1, 2, 3})
	seen := make(map[Vec3]bool)
	for i := 0; i < 8; i++ {
		c := b.Corner(i)
		if !b.Contains(c) {
			t.Errorf("corner %d = %v is outside the box", i, c)
		}
		seen[c] = true
	}
	if len(seen) != 8 {
		t.Errorf("expected 8 distinct corners, got %d", len(seen))
	}
}

func TestAABoxTransformRotated(t *testing.T) {
	// A long thin box rotated 90 degrees around Z must swap its X/Y extents.
	b := NewAABox(Vec3{-10, -1, 0}, Vec3{10, 1, 2})
	rot := EulerZYX(float32(math.Pi/2), 0, 0)
	w := b.Transform(2, rot, Vec3{100, 200, 300})

	wantLo := Vec3{98, 180, 300}
	wantHi := Vec3{102, 220, 304}
	if w.Lo.Distance(wantLo) > 1e-3 || w.Hi.Distance(wantHi) > 1e-3 {
		t.Errorf("Transform = %+v, want lo %v hi %v", w, wantLo, wantHi)
	}
}

func TestAABoxUnionMerge(t *testing.T) {
	b := EmptyAABox().Merge(Vec3{1, 1, 1}).Merge(Vec3{-1, 2, 0})
	if b.Lo != (Vec3{-1, 1, 0}) || b.Hi != (Vec3{1, 2, 1}) {
		t.Errorf("Merge = %+v", b)
	}
	u := b.Union(NewAABox(Vec3{5, 5, 5}, Vec3{6, 6, 6}))
	if u.Hi != (Vec3{6, 6, 6}) || u.Lo != b.Lo {
		t.Errorf("Union = %+v", u)
	}
}
