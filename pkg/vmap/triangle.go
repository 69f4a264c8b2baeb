package vmap

import (
	"sync/atomic"

	"github.com/Faultbox/vmap/pkg/math"
)

// MeshTriangle holds three indices into its group's vertex list.
type MeshTriangle struct {
	Idx0, Idx1, Idx2 uint32
}

var triangleTests atomic.Uint64

// TriangleTests returns the number of exact ray/triangle tests performed by
// this process.
func TriangleTests() uint64 {
	return triangleTests.Load()
}

// intersectTriangle is the Möller-Trumbore test. On a hit closer than *dist
// it stores the hit distance in *dist.
func intersectTriangle(tri MeshTriangle, vertices []math.Vec3, r math.Ray, dist *float32) bool {
	const eps = 1e-5
	triangleTests.Add(1)

	v0 := vertices[tri.Idx0]
	e1 := vertices[tri.Idx1].Sub(v0)
	e2 := vertices[tri.Idx2].Sub(v0)

	p := r.Direction.Cross(e2)
	a := e1.Dot(p)
	// ill-conditioned determinant: parallel ray or degenerate triangle
	if a > -eps && a < eps {
		return false
	}

	f := 1 / a
	s := r.Origin.Sub(v0)
	u := f * s.Dot(p)
	if u < 0 || u > 1 {
		return false
	}

	q := s.Cross(e1)
	v := f * r.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return false
	}

	t := f * e2.Dot(q)
	if t > 0 && t < *dist {
		*dist = t
		return true
	}
	return false
}

func triangleBounds(tri MeshTriangle, vertices []math.Vec3) math.AABox {
	return math.NewAABox(vertices[tri.Idx0], vertices[tri.Idx1]).Merge(vertices[tri.Idx2])
}
