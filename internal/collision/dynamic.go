package collision

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/vmap/internal/logger"
	"github.com/Faultbox/vmap/internal/modelcache"
	"github.com/Faultbox/vmap/internal/modeltable"
	"github.com/Faultbox/vmap/pkg/math"
	"github.com/Faultbox/vmap/pkg/vmap"
)

// Owner is the spawned object a DynamicModel follows.
type Owner interface {
	DisplayID() uint32
	Position() math.Vec3
	Rotation() math.Quat
	Scale() float32
	IsSpawned() bool
	InPhase(mask uint32) bool
	// NameSetID is reported in area results of this placement.
	NameSetID() uint32
}

// DynamicModel is a model placed by a spawned game object. Its transform
// follows the owner on UpdatePosition, which must not run concurrently with
// queries on the same placement.
//
// A model that is a Tree member must be moved with Tree.Relocate. Calling
// UpdatePosition directly leaves the tree indexing it under its old bound.
type DynamicModel struct {
	placement
	owner     Owner
	info      vmap.ModelInfo
	collision atomic.Bool
}

// NewDynamicModel looks up the owner's display id and places its model.
// Collision starts enabled.
func NewDynamicModel(owner Owner, table *modeltable.Table, cache *modelcache.Cache) (*DynamicModel, error) {
	info, ok := table.Lookup(owner.DisplayID())
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDisplayID, owner.DisplayID())
	}
	if info.Bound.IsZero() {
		logger.Error("game object model has no bounds",
			zap.String("model", info.Name),
			zap.Uint32("display_id", info.DisplayID))
		return nil, fmt.Errorf("%w: %s", ErrZeroBounds, info.Name)
	}

	flags := vmap.ModM2
	if info.IsWMO {
		flags = vmap.ModWorldSpawn
	}
	handle, err := cache.Acquire(info.Name, flags)
	if err != nil {
		return nil, err
	}

	d := &DynamicModel{owner: owner, info: info}
	d.handle = handle
	d.collision.Store(true)
	d.UpdatePosition()
	return d, nil
}

// UpdatePosition recomputes the transform and world bound from the owner.
// It reports false once the model is released. Use Tree.Relocate instead
// while the model is in a Tree.
func (d *DynamicModel) UpdatePosition() bool {
	if d.model() == nil {
		return false
	}
	scale := d.owner.Scale()
	if scale == 0 {
		scale = 1
	}
	d.setTransform(d.owner.Position(), d.owner.Rotation().ToMat3(), scale, d.info.Bound)
	return true
}

// Owner returns the followed object.
func (d *DynamicModel) Owner() Owner { return d.owner }

// Name returns the model file name.
func (d *DynamicModel) Name() string { return d.info.Name }

// IsWMO reports whether the model is a world map object.
func (d *DynamicModel) IsWMO() bool { return d.info.IsWMO }

// EnableCollision switches ray and point queries on or off.
func (d *DynamicModel) EnableCollision(enabled bool) { d.collision.Store(enabled) }

// IsCollisionEnabled reports whether queries consider this placement.
func (d *DynamicModel) IsCollisionEnabled() bool { return d.collision.Load() }

func (d *DynamicModel) active(f Filter) bool {
	return d.collision.Load() && d.owner.IsSpawned() && d.owner.InPhase(f.PhaseMask)
}

// Bounds implements Collider.
func (d *DynamicModel) Bounds() math.AABox { return d.bound }

// IntersectRay implements Collider.
func (d *DynamicModel) IntersectRay(r math.Ray, maxDist *float32, stopAtFirstHit bool, f Filter) bool {
	if !d.active(f) {
		return false
	}
	return d.intersectRay(r, maxDist, stopAtFirstHit, f.Ignore)
}

// IntersectPoint implements Collider. Only world map objects report areas.
func (d *DynamicModel) IntersectPoint(p math.Vec3, info *AreaInfo, f Filter) {
	if !d.info.IsWMO || !d.active(f) {
		return
	}
	if d.intersectPoint(p, info) {
		info.AdtID = 0
		info.NameSetID = d.owner.NameSetID()
	}
}

// GetLocationInfo implements Collider.
func (d *DynamicModel) GetLocationInfo(p math.Vec3, info *LocationInfo, f Filter) bool {
	if !d.info.IsWMO || !d.active(f) {
		return false
	}
	if !d.getLocationInfo(p, info) {
		return false
	}
	info.Hit = d
	return true
}

// LiquidLevel implements Collider.
func (d *DynamicModel) LiquidLevel(p math.Vec3, group *vmap.GroupModel) (float32, bool) {
	return d.liquidLevel(p, group)
}

// Release drops the model reference. Later queries report no hit.
func (d *DynamicModel) Release() {
	d.release()
}
