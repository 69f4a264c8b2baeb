package vmap

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/vmap/pkg/math"
)

// boxTriangles lists the 12 triangles of a box whose 8 corners are ordered
// by math.AABox.Corner.
var boxTriangles = []MeshTriangle{
	{0, 2, 1}, {1, 2, 3}, // -Z
	{4, 5, 6}, {5, 7, 6}, // +Z
	{0, 1, 5}, {0, 5, 4}, // -Y
	{2, 6, 7}, {2, 7, 3}, // +Y
	{0, 4, 6}, {0, 6, 2}, // -X
	{1, 5, 7}, {1, 7, 3}, // +X
}

// appendBox appends the closed mesh of box to vertices and triangles.
func appendBox(vertices []math.Vec3, triangles []MeshTriangle, box math.AABox) ([]math.Vec3, []MeshTriangle) {
	base := uint32(len(vertices))
	for i := 0; i < 8; i++ {
		vertices = append(vertices, box.Corner(i))
	}
	for _, t := range boxTriangles {
		triangles = append(triangles, MeshTriangle{t.Idx0 + base, t.Idx1 + base, t.Idx2 + base})
	}
	return vertices, triangles
}

// createTestGroup creates a group containing a closed mesh for each box.
func createTestGroup(t *testing.T, id uint32, liquid *WmoLiquid, boxes ...math.AABox) *GroupModel {
	t.Helper()

	var vertices []math.Vec3
	var triangles []MeshTriangle
	bound := math.EmptyAABox()
	for _, b := range boxes {
		vertices, triangles = appendBox(vertices, triangles, b)
		bound = bound.Union(b)
	}

	g, err := NewGroupModel(0x8, id, bound, vertices, triangles, liquid)
	if err != nil {
		t.Fatalf("NewGroupModel failed: %v", err)
	}
	return g
}

func box(lx, ly, lz, hx, hy, hz float32) math.AABox {
	return math.NewAABox(math.Vec3{X: lx, Y: ly, Z: lz}, math.Vec3{X: hx, Y: hy, Z: hz})
}

func approxEqual(a, b, eps float32) bool {
	return gomath.Abs(float64(a-b)) <= float64(eps)
}
