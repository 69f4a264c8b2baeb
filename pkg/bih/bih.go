// Package bih implements a bounding interval hierarchy: a binary tree that
// stores two scalar clip planes per node instead of full child boxes.
//
// Nodes occupy three uint32 words:
//
//	[0] axis<<30 | bvh2<<29 | offset
//	[1] float bits of the left clip (leaf: object count)
//	[2] float bits of the right clip
//
// Axis 3 marks a leaf whose offset indexes the object array. A normal inner
// node has its two children at offset and offset+3. A BVH2 node clips empty
// space on both sides of a single child stored at offset.
package bih

import (
	gomath "math"

	"github.com/Faultbox/vmap/pkg/math"
)

const (
	// DefaultLeafSize is the maximum number of primitives in a leaf.
	DefaultLeafSize = 3

	maxStackSize = 64
	leafAxis     = 3
	bvh2Flag     = uint32(1) << 29
	offsetMask   = ^(uint32(7) << 29)
)

// RayCallback tests primitive idx against the ray. It may shrink *maxDist to
// the distance of a closer hit and returns whether anything was hit so far.
type RayCallback func(r math.Ray, idx uint32, maxDist *float32, stopAtFirstHit bool) bool

// PointCallback is invoked for every primitive whose node contains p.
type PointCallback func(p math.Vec3, idx uint32)

// BoundsFunc returns the bounds of primitive i.
type BoundsFunc func(i int) math.AABox

// Tree is an immutable bounding interval hierarchy. Queries are safe for
// concurrent use.
type Tree struct {
	bounds  math.AABox
	tree    []uint32
	objects []uint32
	stats   Stats
}

// Empty returns a tree with no primitives.
func Empty() *Tree {
	t := &Tree{}
	t.initEmpty()
	return t
}

func (t *Tree) initEmpty() {
	t.bounds = math.AABox{}
	t.tree = []uint32{leafAxis << 30, 0, 0}
	t.objects = nil
}

// Bounds returns the union of all primitive bounds.
func (t *Tree) Bounds() math.AABox {
	return t.bounds
}

// PrimCount returns the number of indexed primitives.
func (t *Tree) PrimCount() int {
	return len(t.objects)
}

// NodeWords returns the size of the encoded tree in uint32 words.
func (t *Tree) NodeWords() int {
	return len(t.tree)
}

// Stats returns statistics collected while building. Trees read from disk
// report zero stats.
func (t *Tree) Stats() Stats {
	return t.stats
}

type stackNode struct {
	node  uint32
	tnear float32
	tfar  float32
}

func clip(word uint32) float32 {
	return gomath.Float32frombits(word)
}

// IntersectRay walks every subtree whose parametric interval overlaps
// [0, *maxDist] and invokes cb for each primitive in the visited leaves.
// Subtrees queued before cb shrank *maxDist are skipped once they lie beyond it.
func (t *Tree) IntersectRay(r math.Ray, maxDist *float32, stopAtFirstHit bool, cb RayCallback) {
	if len(t.objects) == 0 {
		return
	}

	intervalMin := float32(-1)
	intervalMax := float32(-1)
	org := r.Origin
	dir := r.Direction

	var invDir [3]float32
	var offsetFront, offsetBack, offsetFront3, offsetBack3 [3]uint32

	for i := 0; i < 3; i++ {
		d := dir.Axis(i)
		o := org.Axis(i)
		invDir[i] = 1 / d

		if gomath.Signbit(float64(d)) {
			offsetFront[i] = 1
		}
		offsetBack[i] = offsetFront[i] ^ 1
		offsetFront3[i] = offsetFront[i] * 3
		offsetBack3[i] = offsetBack[i] * 3
		// clip words live at node+1 and node+2
		offsetFront[i]++
		offsetBack[i]++

		if d == 0 {
			if o < t.bounds.Lo.Axis(i) || o > t.bounds.Hi.Axis(i) {
				return
			}
			continue
		}

		t1 := (t.bounds.Lo.Axis(i) - o) * invDir[i]
		t2 := (t.bounds.Hi.Axis(i) - o) * invDir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > intervalMin {
			intervalMin = t1
		}
		if t2 < intervalMax || intervalMax < 0 {
			intervalMax = t2
		}
		// intervalMax only shrinks and intervalMin only grows on later axes
		if intervalMax <= 0 || intervalMin >= *maxDist {
			return
		}
	}

	if intervalMin > intervalMax {
		return
	}
	intervalMin = max(intervalMin, 0)
	if intervalMax < 0 {
		// every axis had a zero direction component
		intervalMax = *maxDist
	}
	intervalMax = min(intervalMax, *maxDist)
	if intervalMin > intervalMax {
		return
	}

	var buf [maxStackSize]stackNode
	stack := buf[:0]
	node := uint32(0)

	for {
		for {
			tn := t.tree[node]
			axis := (tn >> 30) & 3
			isBVH2 := tn&bvh2Flag != 0
			offset := tn & offsetMask

			if !isBVH2 {
				if axis < leafAxis {
					o := org.Axis(int(axis))
					tf := (clip(t.tree[node+offsetFront[axis]]) - o) * invDir[axis]
					tb := (clip(t.tree[node+offsetBack[axis]]) - o) * invDir[axis]

					// ray passes between the clip zones
					if tf < intervalMin && tb > intervalMax {
						break
					}
					back := offset + offsetBack3[axis]
					node = back
					// far child only
					if tf < intervalMin {
						intervalMin = max(tb, intervalMin)
						if intervalMin > intervalMax {
							break
						}
						continue
					}
					node = offset + offsetFront3[axis]
					// near child only
					if tb > intervalMax {
						intervalMax = min(tf, intervalMax)
						if intervalMin > intervalMax {
							break
						}
						continue
					}
					// both children: queue the far one
					stack = append(stack, stackNode{
						node:  back,
						tnear: max(tb, intervalMin),
						tfar:  intervalMax,
					})
					intervalMax = min(tf, intervalMax)
					continue
				}

				for n := t.tree[node+1]; n > 0; n-- {
					hit := cb(r, t.objects[offset], maxDist, stopAtFirstHit)
					if stopAtFirstHit && hit {
						return
					}
					offset++
				}
				break
			}

			if axis > 2 {
				return
			}
			o := org.Axis(int(axis))
			tf := (clip(t.tree[node+offsetFront[axis]]) - o) * invDir[axis]
			tb := (clip(t.tree[node+offsetBack[axis]]) - o) * invDir[axis]
			node = offset
			intervalMin = max(tf, intervalMin)
			intervalMax = min(tb, intervalMax)
			if intervalMin > intervalMax {
				break
			}
		}

		for {
			if len(stack) == 0 {
				return
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			intervalMin = top.tnear
			if *maxDist < intervalMin {
				continue
			}
			node = top.node
			intervalMax = top.tfar
			break
		}
	}
}

// IntersectPoint invokes cb for every primitive stored in a leaf whose clip
// extents contain p.
func (t *Tree) IntersectPoint(p math.Vec3, cb PointCallback) {
	if len(t.objects) == 0 || !t.bounds.Contains(p) {
		return
	}

	var buf [maxStackSize]uint32
	stack := buf[:0]
	node := uint32(0)

	for {
		for {
			tn := t.tree[node]
			axis := (tn >> 30) & 3
			isBVH2 := tn&bvh2Flag != 0
			offset := tn & offsetMask

			if !isBVH2 {
				if axis < leafAxis {
					pa := p.Axis(int(axis))
					tl := clip(t.tree[node+1])
					tr := clip(t.tree[node+2])
					// point lies between the clip zones
					if tl < pa && tr > pa {
						break
					}
					right := offset + 3
					node = right
					if tl < pa {
						continue
					}
					node = offset
					if tr > pa {
						continue
					}
					stack = append(stack, right)
					continue
				}

				for n := t.tree[node+1]; n > 0; n-- {
					cb(p, t.objects[offset])
					offset++
				}
				break
			}

			if axis > 2 {
				return
			}
			pa := p.Axis(int(axis))
			tl := clip(t.tree[node+1])
			tr := clip(t.tree[node+2])
			node = offset
			if tl > pa || tr < pa {
				break
			}
		}

		if len(stack) == 0 {
			return
		}
		node = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
	}
}
