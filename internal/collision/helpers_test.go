package collision

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/vmap/internal/modelcache"
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

func vec(x, y, z float32) math.Vec3 {
	return math.Vec3{X: x, Y: y, Z: z}
}

// createTestGroup creates a group with bound whose mesh is the solid block.
func createTestGroup(t *testing.T, id uint32, bound, block math.AABox, liquid *vmap.WmoLiquid) *vmap.GroupModel {
	t.Helper()
	vertices := make([]math.Vec3, 8)
	for i := range vertices {
		vertices[i] = block.Corner(i)
	}
	g, err := vmap.NewGroupModel(0x8, id, bound, vertices, boxTriangles, liquid)
	require.NoError(t, err)
	return g
}

// testWorld is a model directory with a few prepared models:
//
//	slab.vmo   solid block (0..10, 0..10, 0..1)
//	wall.vmo   solid block (0..10, 0..1, 0..5)
//	house.vmo  room (0..10)^3 with a floor (0..5, 0..10, 0..1) and liquid at 0.5
//	empty.vmo  group without bounds
type testWorld struct {
	dir   string
	cache *modelcache.Cache
}

func newTestWorld(t *testing.T) *testWorld {
	t.Helper()
	dir := t.TempDir()

	write := func(name string, root uint32, groups ...*vmap.GroupModel) {
		require.NoError(t, vmap.NewWorldModel(root, groups).WriteFile(filepath.Join(dir, name)))
	}

	slab := box(0, 0, 0, 10, 10, 1)
	write("slab.vmo", 1, createTestGroup(t, 10, slab, slab, nil))

	wall := box(0, 0, 0, 10, 1, 5)
	write("wall.vmo", 2, createTestGroup(t, 20, wall, wall, nil))

	liquid := vmap.NewLiquid(3, 3, math.Vec3{}, 7)
	for y := uint32(0); y <= 3; y++ {
		for x := uint32(0); x <= 3; x++ {
			liquid.SetHeight(x, y, 0.5)
		}
	}
	write("house.vmo", 3, createTestGroup(t, 30, box(0, 0, 0, 10, 10, 10), box(0, 0, 0, 5, 10, 1), liquid))

	write("empty.vmo", 4, createTestGroup(t, 40, math.AABox{}, box(0, 0, 0, 1, 1, 1), nil))

	return &testWorld{dir: dir, cache: modelcache.New(dir)}
}

func (w *testWorld) static(t *testing.T, name string, pos, rot math.Vec3, scale float32) *StaticModel {
	t.Helper()
	s, err := NewStaticModel(vmap.ModelSpawn{
		Flags: vmap.ModWorldSpawn,
		AdtID: 5,
		ID:    1,
		Pos:   pos,
		Rot:   rot,
		Scale: scale,
		Name:  name,
	}, w.cache)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

type fakeOwner struct {
	display uint32
	pos     math.Vec3
	rot     math.Quat
	scale   float32
	spawned bool
	phase   uint32
	nameSet uint32
}

func newFakeOwner(display uint32, pos math.Vec3) *fakeOwner {
	return &fakeOwner{
		display: display,
		pos:     pos,
		rot:     math.QuatIdentity(),
		scale:   1,
		spawned: true,
		phase:   1,
		nameSet: 99,
	}
}

func (o *fakeOwner) DisplayID() uint32        { return o.display }
func (o *fakeOwner) Position() math.Vec3      { return o.pos }
func (o *fakeOwner) Rotation() math.Quat      { return o.rot }
func (o *fakeOwner) Scale() float32           { return o.scale }
func (o *fakeOwner) IsSpawned() bool          { return o.spawned }
func (o *fakeOwner) InPhase(mask uint32) bool { return o.phase&mask != 0 }
func (o *fakeOwner) NameSetID() uint32        { return o.nameSet }

var down = math.Vec3{Z: -1}

func castDown(c Collider, from math.Vec3, f Filter) (float32, bool) {
	dist := math.Inf()
	hit := c.IntersectRay(math.NewRay(from, down), &dist, false, f)
	return dist, hit
}
