package math

import (
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 0, 4}
	n := v.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Error("normalizing the zero vector should return zero")
	}
}

func TestVec3Axis(t *testing.T) {
	v := Vec3{1, 2, 3}
	for i, want := range []float32{1, 2, 3} {
		if got := v.Axis(i); got != want {
			t.Errorf("Axis(%d) = %v, want %v", i, got, want)
		}
	}
	v.SetAxis(1, 9)
	if v.Y != 9 {
		t.Errorf("SetAxis(1, 9) left Y = %v", v.Y)
	}
}

func TestVec3PrimaryAxis(t *testing.T) {
	tests := []struct {
		v    Vec3
		want int
	}{
		{Vec3{5, 1, 1}, 0},
		{Vec3{1, -7, 1}, 1},
		{Vec3{1, 1, 2}, 2},
		{Vec3{2, 2, 2}, 0},
	}
	for _, tc := range tests {
		if got := tc.v.PrimaryAxis(); got != tc.want {
			t.Errorf("%v.PrimaryAxis() = %d, want %d", tc.v, got, tc.want)
		}
	}
}

func TestVec3MinMax(t *testing.T) {
	a := Vec3{1, 5, -2}
	b := Vec3{3, 0, -4}
	if got := a.Min(b); got != (Vec3{1, 0, -4}) {
		t.Errorf("Min = %v", got)
	}
	if got := a.Max(b); got != (Vec3{3, 5, -2}) {
		t.Errorf("Max = %v", got)
	}
}
