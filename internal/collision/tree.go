package collision

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/vmap/internal/logger"
	"github.com/Faultbox/vmap/pkg/bih"
	"github.com/Faultbox/vmap/pkg/math"
)

// DefaultRebalancePeriod is how often Update checks for pending changes.
const DefaultRebalancePeriod = 200 * time.Millisecond

// Tree indexes the placements of one map. Inserted and removed placements
// are visible to queries immediately; the index itself is rebuilt by Balance
// or periodically by Update.
//
// Queries take a read lock and may run concurrently. Structural changes take
// the write lock.
type Tree struct {
	mu sync.RWMutex

	leafSize int
	period   time.Duration
	elapsed  time.Duration

	tree *bih.Tree
	// indexed holds the primitives of tree; removed entries are nil
	indexed []Collider
	// pending holds placements inserted since the last Balance
	pending []Collider
	members map[Collider]struct{}
	changes int
}

// NewTree creates an empty tree. Zero arguments select the defaults.
func NewTree(leafSize int, rebalancePeriod time.Duration) *Tree {
	if leafSize < 1 {
		leafSize = bih.DefaultLeafSize
	}
	if rebalancePeriod <= 0 {
		rebalancePeriod = DefaultRebalancePeriod
	}
	return &Tree{
		leafSize: leafSize,
		period:   rebalancePeriod,
		tree:     bih.Empty(),
		members:  make(map[Collider]struct{}),
	}
}

// Insert adds c. Inserting a member again does nothing.
func (t *Tree) Insert(c Collider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insert(c)
}

func (t *Tree) insert(c Collider) {
	if _, ok := t.members[c]; ok {
		return
	}
	t.members[c] = struct{}{}
	t.pending = append(t.pending, c)
	t.changes++
}

// Remove drops c. Removing a non-member does nothing.
func (t *Tree) Remove(c Collider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remove(c)
}

func (t *Tree) remove(c Collider) {
	if _, ok := t.members[c]; !ok {
		return
	}
	delete(t.members, c)
	t.changes++

	for i, p := range t.pending {
		if p == c {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return
		}
	}
	for i, p := range t.indexed {
		if p == c {
			t.indexed[i] = nil
			return
		}
	}
}

// Relocate moves d to its owner's current transform.
func (t *Tree) Relocate(d *DynamicModel) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, member := t.members[d]
	if member {
		t.remove(d)
	}
	d.UpdatePosition()
	if member {
		t.insert(d)
	}
}

// Contains reports whether c is a member.
func (t *Tree) Contains(c Collider) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.members[c]
	return ok
}

// Size returns the number of members.
func (t *Tree) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members)
}

// Update advances the rebalance timer by diff and rebuilds the index when
// the period has passed and members changed.
func (t *Tree) Update(diff time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.members) == 0 && t.changes == 0 {
		return
	}
	t.elapsed += diff
	if t.elapsed < t.period {
		return
	}
	t.elapsed = 0
	if t.changes > 0 {
		t.balance()
	}
}

// Balance rebuilds the index over all members.
func (t *Tree) Balance() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balance()
}

func (t *Tree) balance() {
	objects := make([]Collider, 0, len(t.members))
	for _, c := range t.indexed {
		if c != nil {
			objects = append(objects, c)
		}
	}
	objects = append(objects, t.pending...)

	t.tree = bih.Build(len(objects), func(i int) math.AABox {
		return objects[i].Bounds()
	}, t.leafSize)
	t.indexed = objects
	t.pending = nil
	t.changes = 0

	stats := t.tree.Stats()
	logger.Debug("collision tree balanced",
		zap.Int("objects", len(objects)),
		zap.Int("nodes", stats.Nodes),
		zap.Int("leaves", stats.Leaves),
		zap.Int("max_depth", stats.MaxDepth))
}

// intersectRay requires the read lock.
func (t *Tree) intersectRay(r math.Ray, maxDist *float32, stopAtFirstHit bool, f Filter) bool {
	hit := false
	t.tree.IntersectRay(r, maxDist, stopAtFirstHit, func(r math.Ray, idx uint32, maxDist *float32, stop bool) bool {
		if c := t.indexed[idx]; c != nil && c.IntersectRay(r, maxDist, stop, f) {
			hit = true
		}
		return hit
	})
	if hit && stopAtFirstHit {
		return true
	}
	for _, c := range t.pending {
		if c.IntersectRay(r, maxDist, stopAtFirstHit, f) {
			hit = true
			if stopAtFirstHit {
				break
			}
		}
	}
	return hit
}

// forEachAt calls fn for every member whose leaf may contain p. It requires
// the read lock.
func (t *Tree) forEachAt(p math.Vec3, fn func(Collider)) {
	t.tree.IntersectPoint(p, func(_ math.Vec3, idx uint32) {
		if c := t.indexed[idx]; c != nil {
			fn(c)
		}
	})
	for _, c := range t.pending {
		fn(c)
	}
}

// IntersectionTime returns the distance to the nearest hit along r within
// maxDist.
func (t *Tree) IntersectionTime(r math.Ray, maxDist float32, stopAtFirstHit bool, f Filter) (float32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	dist := maxDist
	if !t.intersectRay(r, &dist, stopAtFirstHit, f) {
		return maxDist, false
	}
	return dist, true
}

// IsInLineOfSight reports whether nothing blocks the segment from a to b.
func (t *Tree) IsInLineOfSight(a, b math.Vec3, f Filter) bool {
	delta := b.Sub(a)
	maxDist := delta.Length()
	if !(maxDist > 1e-6) {
		return true
	}
	r := math.NewRay(a, delta.Div(maxDist))

	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.intersectRay(r, &maxDist, true, f)
}

// GetObjectHitPos returns the first hit on the segment from a to b, moved
// along the segment by modifyDist, and whether anything was hit. Without a
// hit it returns b. A negative modifyDist never moves the result behind a.
func (t *Tree) GetObjectHitPos(a, b math.Vec3, modifyDist float32, f Filter) (math.Vec3, bool) {
	delta := b.Sub(a)
	maxDist := delta.Length()
	if !(maxDist > 1e-6) {
		return b, false
	}
	dir := delta.Div(maxDist)

	dist, ok := t.IntersectionTime(math.NewRay(a, dir), maxDist, false, f)
	if !ok {
		return b, false
	}

	hit := a.Add(dir.Scale(dist))
	if modifyDist < 0 && hit.Sub(a).Length() <= -modifyDist {
		return a, true
	}
	return hit.Add(dir.Scale(modifyDist)), true
}

// GetHeight returns the height of the highest surface below pos within
// maxSearchDist, or -Inf when there is none.
func (t *Tree) GetHeight(pos math.Vec3, maxSearchDist float32, f Filter) float32 {
	dist, ok := t.IntersectionTime(math.NewRay(pos, math.Vec3{Z: -1}), maxSearchDist, false, f)
	if !ok {
		return math.NegInf()
	}
	return pos.Z - dist
}

// GetAreaInfo returns the area of the highest ground below pos.
func (t *Tree) GetAreaInfo(pos math.Vec3, f Filter) (AreaInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info := NewAreaInfo()
	t.forEachAt(pos, func(c Collider) {
		c.IntersectPoint(pos, &info, f)
	})
	return info, info.Found
}

// GetLocationInfo returns the placement and group of the highest ground
// below pos.
func (t *Tree) GetLocationInfo(pos math.Vec3, f Filter) (LocationInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info := NewLocationInfo()
	t.forEachAt(pos, func(c Collider) {
		c.GetLocationInfo(pos, &info, f)
	})
	return info, info.Hit != nil
}

// GetLiquidLevel returns the liquid surface of the group below pos.
func (t *Tree) GetLiquidLevel(pos math.Vec3, f Filter) (LiquidInfo, bool) {
	loc, ok := t.GetLocationInfo(pos, f)
	if !ok {
		return LiquidInfo{}, false
	}
	level, ok := loc.Hit.LiquidLevel(pos, loc.HitGroup)
	if !ok {
		return LiquidInfo{}, false
	}
	return LiquidInfo{Level: level, Type: loc.HitGroup.LiquidType(), GroundZ: loc.GroundZ}, true
}
