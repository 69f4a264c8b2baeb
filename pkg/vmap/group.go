package vmap

import (
	"fmt"
	"io"

	"github.com/Faultbox/vmap/pkg/bih"
	"github.com/Faultbox/vmap/pkg/math"
)

// liftOffset lifts point-query rays off the surface they start on.
const liftOffset = 0.1

// GroupModel is one rigid triangle mesh of a world model, indexed by a BIH
// over its triangles, with an optional liquid surface.
type GroupModel struct {
	bound      math.AABox
	mogpFlags  uint32
	groupWMOID uint32
	vertices   []math.Vec3
	triangles  []MeshTriangle
	meshTree   *bih.Tree
	liquid     *WmoLiquid
}

// NewGroupModel validates the mesh and builds its triangle index. liquid may
// be nil.
func NewGroupModel(mogpFlags, groupWMOID uint32, bound math.AABox, vertices []math.Vec3,
	triangles []MeshTriangle, liquid *WmoLiquid) (*GroupModel, error) {
	g := &GroupModel{
		bound:      bound,
		mogpFlags:  mogpFlags,
		groupWMOID: groupWMOID,
		vertices:   vertices,
		triangles:  triangles,
		liquid:     liquid,
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	g.meshTree = bih.Build(len(triangles), func(i int) math.AABox {
		return triangleBounds(g.triangles[i], g.vertices)
	}, bih.DefaultLeafSize)
	return g, nil
}

func (g *GroupModel) validate() error {
	if len(g.vertices) == 0 {
		return ErrNoVertices
	}
	n := uint32(len(g.vertices))
	for i, t := range g.triangles {
		if t.Idx0 >= n || t.Idx1 >= n || t.Idx2 >= n {
			return fmt.Errorf("%w: triangle %d (%d, %d, %d) with %d vertices",
				ErrBadTriangle, i, t.Idx0, t.Idx1, t.Idx2, n)
		}
	}
	return nil
}

// Bound returns the group's bounding box in model space.
func (g *GroupModel) Bound() math.AABox { return g.bound }

// MogpFlags returns the group flags.
func (g *GroupModel) MogpFlags() uint32 { return g.mogpFlags }

// WMOID returns the group id.
func (g *GroupModel) WMOID() uint32 { return g.groupWMOID }

// Vertices returns the mesh vertices. The slice must not be modified.
func (g *GroupModel) Vertices() []math.Vec3 { return g.vertices }

// Triangles returns the mesh triangles. The slice must not be modified.
func (g *GroupModel) Triangles() []MeshTriangle { return g.triangles }

// Liquid returns the group's liquid surface or nil.
func (g *GroupModel) Liquid() *WmoLiquid { return g.liquid }

// MeshTree returns the triangle index.
func (g *GroupModel) MeshTree() *bih.Tree { return g.meshTree }

// IntersectRay finds the nearest triangle hit closer than *dist and stores
// its distance in *dist. With stopAtFirstHit any hit ends the search.
func (g *GroupModel) IntersectRay(r math.Ray, dist *float32, stopAtFirstHit bool) bool {
	if len(g.triangles) == 0 {
		return false
	}
	hit := false
	g.meshTree.IntersectRay(r, dist, stopAtFirstHit, func(r math.Ray, idx uint32, maxDist *float32, _ bool) bool {
		if intersectTriangle(g.triangles[idx], g.vertices, r, maxDist) {
			hit = true
		}
		return hit
	})
	return hit
}

// IsInsideObject casts along down from just behind pos and returns the
// distance from pos to the first surface hit.
func (g *GroupModel) IsInsideObject(pos, down math.Vec3) (float32, bool) {
	if len(g.triangles) == 0 || !g.bound.Contains(pos) {
		return 0, false
	}
	r := math.NewRay(pos.Sub(down.Scale(liftOffset)), down)
	dist := math.Inf()
	if !g.IntersectRay(r, &dist, false) {
		return 0, false
	}
	return dist - liftOffset, true
}

// LiquidLevel returns the liquid surface height at pos in model space.
func (g *GroupModel) LiquidLevel(pos math.Vec3) (float32, bool) {
	if g.liquid == nil {
		return 0, false
	}
	return g.liquid.GetLiquidHeight(pos)
}

// LiquidType returns the liquid type id, or 0 without liquid.
func (g *GroupModel) LiquidType() uint32 {
	if g.liquid == nil {
		return 0
	}
	return g.liquid.Type()
}

// WriteTo writes the group record.
func (g *GroupModel) WriteTo(w io.Writer) (int64, error) {
	bw := &writer{w: w}
	bw.put(g.bound)
	bw.put(g.mogpFlags)
	bw.put(g.groupWMOID)

	bw.tag(tagVertices)
	bw.put(uint32(4 + 12*len(g.vertices)))
	bw.put(uint32(len(g.vertices)))
	bw.put(g.vertices)

	bw.tag(tagTriangles)
	bw.put(uint32(4 + 12*len(g.triangles)))
	bw.put(uint32(len(g.triangles)))
	bw.put(g.triangles)

	bw.tag(tagMeshTree)
	bw.writeTo(g.meshTree)

	bw.tag(tagLiquid)
	if g.liquid == nil {
		bw.put(uint32(0))
	} else {
		bw.put(g.liquid.FileSize())
		bw.writeTo(g.liquid)
	}
	return bw.n, bw.err
}

// ReadGroupModel reads one group record. Nothing is returned on failure.
func ReadGroupModel(r io.Reader) (*GroupModel, error) {
	g := &GroupModel{}
	if err := read(r, &g.bound, "group bound"); err != nil {
		return nil, err
	}
	if err := read(r, &g.mogpFlags, "group flags"); err != nil {
		return nil, err
	}
	if err := read(r, &g.groupWMOID, "group id"); err != nil {
		return nil, err
	}

	if err := readChunk(r, tagVertices); err != nil {
		return nil, err
	}
	n, err := readSizedCount(r, "vertices")
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNoVertices
	}
	if g.vertices, err = readSlice[math.Vec3](r, n, "vertices"); err != nil {
		return nil, err
	}

	if err := readChunk(r, tagTriangles); err != nil {
		return nil, err
	}
	n, err = readSizedCount(r, "triangles")
	if err != nil {
		return nil, err
	}
	if g.triangles, err = readSlice[MeshTriangle](r, n, "triangles"); err != nil {
		return nil, err
	}
	if err := g.validate(); err != nil {
		return nil, err
	}

	if err := readChunk(r, tagMeshTree); err != nil {
		return nil, err
	}
	if g.meshTree, err = bih.ReadTree(r, len(g.triangles)); err != nil {
		return nil, fmt.Errorf("reading mesh tree: %w", err)
	}

	if err := readChunk(r, tagLiquid); err != nil {
		return nil, err
	}
	var size uint32
	if err := read(r, &size, "liquid size"); err != nil {
		return nil, err
	}
	if size > 0 {
		if g.liquid, err = readLiquid(r, size); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// readSizedCount reads a chunk size and element count for 12-byte elements
// and checks that they agree.
func readSizedCount(r io.Reader, what string) (uint32, error) {
	var size uint32
	if err := read(r, &size, what+" chunk size"); err != nil {
		return 0, err
	}
	n, err := readCount(r, what)
	if err != nil {
		return 0, err
	}
	if uint64(size) != 4+12*uint64(n) {
		return 0, fmt.Errorf("%w: %s chunk size %d for %d elements", ErrBadChunk, what, size, n)
	}
	return n, nil
}
