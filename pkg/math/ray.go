package math

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    Vec3
	Direction Vec3 // Normalized direction
}

// NewRay creates a ray.
func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction}
}

// PointAt returns Origin + t*Direction.
func (r Ray) PointAt(t float32) Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// IntersectionTime tests ray intersection with an axis-aligned box.
// Returns the entry distance and whether the ray hits the box at all.
// A ray starting inside the box returns t = 0.
func (r Ray) IntersectionTime(box AABox) (t float32, hit bool) {
	tmin := NegInf()
	tmax := Inf()

	for axis := 0; axis < 3; axis++ {
		o := r.Origin.Axis(axis)
		d := r.Direction.Axis(axis)
		lo := box.Lo.Axis(axis)
		hi := box.Hi.Axis(axis)

		if d == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}

		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return 0, true
	}
	return tmin, true
}
