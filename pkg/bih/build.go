package bih

import (
	gomath "math"

	"github.com/Faultbox/vmap/pkg/math"
)

// Stats describes the shape of a built tree.
type Stats struct {
	Nodes      int
	Leaves     int
	BVH2Nodes  int
	EmptyLeafs int
	MaxDepth   int
	MaxObjects int
	// LeafSizes counts leaves holding 0..5 objects; the last bucket collects
	// everything larger.
	LeafSizes [6]int
}

func (s *Stats) updateInner() {
	s.Nodes++
}

func (s *Stats) updateBVH2() {
	s.BVH2Nodes++
}

func (s *Stats) updateLeaf(depth, n int) {
	s.Leaves++
	if n == 0 {
		s.EmptyLeafs++
	}
	s.MaxDepth = max(s.MaxDepth, depth)
	s.MaxObjects = max(s.MaxObjects, n)
	s.LeafSizes[min(n, len(s.LeafSizes)-1)]++
}

type builder struct {
	indices   []uint32
	primBound []math.AABox
	maxPrims  int
	tree      []uint32
	stats     Stats
}

// Build constructs a tree over n primitives. leafSize values below 1 fall
// back to DefaultLeafSize.
func Build(n int, boundsOf BoundsFunc, leafSize int) *Tree {
	t := &Tree{}
	if n == 0 {
		t.initEmpty()
		return t
	}
	if leafSize < 1 {
		leafSize = DefaultLeafSize
	}

	b := &builder{
		indices:   make([]uint32, n),
		primBound: make([]math.AABox, n),
		maxPrims:  leafSize,
		tree:      make([]uint32, 3, 3*(2*n/leafSize+4)),
	}

	bounds := math.EmptyAABox()
	for i := 0; i < n; i++ {
		b.indices[i] = uint32(i)
		b.primBound[i] = boundsOf(i)
		bounds = bounds.Union(b.primBound[i])
	}

	b.subdivide(0, n-1, bounds, bounds, 0, 1)

	t.bounds = bounds
	t.tree = b.tree
	t.objects = b.indices
	t.stats = b.stats
	return t
}

func (b *builder) alloc(words int) uint32 {
	idx := uint32(len(b.tree))
	b.tree = append(b.tree, make([]uint32, words)...)
	return idx
}

func (b *builder) createLeaf(nodeIndex uint32, left, right int) {
	b.tree[nodeIndex] = leafAxis<<30 | uint32(left)
	b.tree[nodeIndex+1] = uint32(right - left + 1)
	b.tree[nodeIndex+2] = 0
}

func (b *builder) createEmptyLeaf(nodeIndex uint32) {
	b.tree[nodeIndex] = leafAxis << 30
	b.tree[nodeIndex+1] = 0
	b.tree[nodeIndex+2] = 0
}

func (b *builder) writeInner(nodeIndex uint32, axis int, flags, offset uint32, clipL, clipR float32) {
	b.tree[nodeIndex] = uint32(axis)<<30 | flags | offset
	b.tree[nodeIndex+1] = gomath.Float32bits(clipL)
	b.tree[nodeIndex+2] = gomath.Float32bits(clipR)
}

func fuzzyEq(a, c float32) bool {
	if a == c {
		return true
	}
	scale := max(float32(1), max(abs(a), abs(c)))
	return abs(a-c) <= 1e-5*scale
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

// subdivide partitions indices[left..right] around the midpoint of the
// longest axis of gridBox. nodeBox is the tight box of the current node.
func (b *builder) subdivide(left, right int, gridBox, nodeBox math.AABox, nodeIndex uint32, depth int) {
	if right-left+1 <= b.maxPrims || depth >= maxStackSize {
		b.stats.updateLeaf(depth, right-left+1)
		b.createLeaf(nodeIndex, left, right)
		return
	}

	axis := -1
	rightOrig := right
	var clipL, clipR, split float32
	var prevClip float32
	hasPrevClip := false
	wasLeft := true

	for {
		prevAxis := axis
		prevSplit := split

		axis = gridBox.Extent().PrimaryAxis()
		split = 0.5 * (gridBox.Lo.Axis(axis) + gridBox.Hi.Axis(axis))

		clipL = math.NegInf()
		clipR = math.Inf()
		rightOrig = right
		nodeL := math.Inf()
		nodeR := math.NegInf()

		for i := left; i <= right; {
			obj := b.indices[i]
			minb := b.primBound[obj].Lo.Axis(axis)
			maxb := b.primBound[obj].Hi.Axis(axis)
			center := (minb + maxb) * 0.5
			if center <= split {
				i++
				if clipL < maxb {
					clipL = maxb
				}
			} else {
				b.indices[i], b.indices[right] = b.indices[right], b.indices[i]
				right--
				if clipR > minb {
					clipR = minb
				}
			}
			nodeL = min(nodeL, minb)
			nodeR = max(nodeR, maxb)
		}

		// empty space on both sides of the primitives
		if nodeL > nodeBox.Lo.Axis(axis) && nodeR < nodeBox.Hi.Axis(axis) {
			nodeBoxW := nodeBox.Hi.Axis(axis) - nodeBox.Lo.Axis(axis)
			nodeNewW := nodeR - nodeL
			if 1.3*nodeNewW < nodeBoxW {
				b.stats.updateBVH2()
				b.stats.updateInner()
				nextIndex := b.alloc(3)
				b.writeInner(nodeIndex, axis, bvh2Flag, nextIndex, nodeL, nodeR)
				nodeBox.Lo.SetAxis(axis, nodeL)
				nodeBox.Hi.SetAxis(axis, nodeR)
				b.subdivide(left, rightOrig, gridBox, nodeBox, nextIndex, depth+1)
				return
			}
		}

		switch {
		case right == rightOrig:
			// everything went left
			if prevAxis == axis && fuzzyEq(prevSplit, split) {
				b.stats.updateLeaf(depth, right-left+1)
				b.createLeaf(nodeIndex, left, right)
				return
			}
			gridBox.Hi.SetAxis(axis, split)
			if clipL <= split {
				prevClip = clipL
				hasPrevClip = true
				wasLeft = true
				continue
			}
			hasPrevClip = false
			continue

		case left > right:
			// everything went right
			right = rightOrig
			if prevAxis == axis && fuzzyEq(prevSplit, split) {
				b.stats.updateLeaf(depth, right-left+1)
				b.createLeaf(nodeIndex, left, right)
				return
			}
			gridBox.Lo.SetAxis(axis, split)
			if clipR >= split {
				prevClip = clipR
				hasPrevClip = true
				wasLeft = false
				continue
			}
			hasPrevClip = false
			continue
		}

		// a real split; first emit the node for the previous one-sided
		// split since it produced empty space
		if prevAxis != -1 && hasPrevClip {
			nextIndex := b.alloc(6)
			b.stats.updateInner()
			if wasLeft {
				b.writeInner(nodeIndex, prevAxis, 0, nextIndex, prevClip, math.Inf())
				b.createEmptyLeaf(nextIndex + 3)
			} else {
				b.writeInner(nodeIndex, prevAxis, 0, nextIndex, math.NegInf(), prevClip)
				b.createEmptyLeaf(nextIndex)
				nextIndex += 3
			}
			depth++
			b.stats.updateLeaf(depth, 0)
			nodeIndex = nextIndex
		}
		break
	}

	nextIndex := b.alloc(6)
	nl := right - left + 1
	nr := rightOrig - (right + 1) + 1

	b.stats.updateInner()
	b.writeInner(nodeIndex, axis, 0, nextIndex, clipL, clipR)

	gridBoxL, gridBoxR := gridBox, gridBox
	nodeBoxL, nodeBoxR := nodeBox, nodeBox
	gridBoxL.Hi.SetAxis(axis, split)
	gridBoxR.Lo.SetAxis(axis, split)
	nodeBoxL.Hi.SetAxis(axis, clipL)
	nodeBoxR.Lo.SetAxis(axis, clipR)

	if nl > 0 {
		b.subdivide(left, right, gridBoxL, nodeBoxL, nextIndex, depth+1)
	} else {
		b.createEmptyLeaf(nextIndex)
		b.stats.updateLeaf(depth+1, 0)
	}
	if nr > 0 {
		b.subdivide(right+1, rightOrig, gridBoxR, nodeBoxR, nextIndex+3, depth+1)
	} else {
		b.createEmptyLeaf(nextIndex + 3)
		b.stats.updateLeaf(depth+1, 0)
	}
}
