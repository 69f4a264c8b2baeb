package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/vmap/pkg/math"
	"github.com/Faultbox/vmap/pkg/vmap"
)

var boxTriangles = []vmap.MeshTriangle{
	{Idx0: 0, Idx1: 2, Idx2: 1}, {Idx0: 1, Idx1: 2, Idx2: 3},
	{Idx0: 4, Idx1: 5, Idx2: 6}, {Idx0: 5, Idx1: 7, Idx2: 6},
	{Idx0: 0, Idx1: 1, Idx2: 5}, {Idx0: 0, Idx1: 5, Idx2: 4},
	{Idx0: 2, Idx1: 6, Idx2: 7}, {Idx0: 2, Idx1: 7, Idx2: 3},
	{Idx0: 0, Idx1: 4, Idx2: 6}, {Idx0: 0, Idx1: 6, Idx2: 2},
	{Idx0: 1, Idx1: 5, Idx2: 7}, {Idx0: 1, Idx1: 7, Idx2: 3},
}

func box(lx, ly, lz, hx, hy, hz float32) math.AABox {
	return math.NewAABox(math.Vec3{X: lx, Y: ly, Z: lz}, math.Vec3{X: hx, Y: hy, Z: hz})
}

// createTestModels writes into a fresh directory:
//
//	slab.vmo   solid block (0..10, 0..10, 0..1), root 1, group 10
//	pool.vmo   room (0..10)^3 with a floor (0..10, 0..10, 0..1) and a flat
//	           liquid of type 4 at 0.5, root 2, group 20
//	manifest   display 7 is pool.vmo
func createTestModels(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	group := func(id uint32, bound, block math.AABox, liquid *vmap.WmoLiquid) *vmap.GroupModel {
		vertices := make([]math.Vec3, 8)
		for i := range vertices {
			vertices[i] = block.Corner(i)
		}
		g, err := vmap.NewGroupModel(0x8, id, bound, vertices, boxTriangles, liquid)
		require.NoError(t, err)
		return g
	}

	slab := box(0, 0, 0, 10, 10, 1)
	require.NoError(t, vmap.NewWorldModel(1, []*vmap.GroupModel{
		group(10, slab, slab, nil),
	}).WriteFile(filepath.Join(dir, "slab.vmo")))

	require.NoError(t, vmap.NewWorldModel(2, []*vmap.GroupModel{
		group(20, box(0, 0, 0, 10, 10, 10), slab, vmap.NewFlatLiquid(0.5, 4)),
	}).WriteFile(filepath.Join(dir, "pool.vmo")))

	f, err := os.Create(filepath.Join(dir, "manifest"))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, vmap.WriteManifest(f, []vmap.ModelInfo{
		{DisplayID: 7, IsWMO: true, Name: "pool.vmo", Bound: box(0, 0, 0, 10, 10, 10)},
		{DisplayID: 3, Name: "slab.vmo", Bound: slab},
	}))

	return dir
}
