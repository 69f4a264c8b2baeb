package collision

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/vmap/internal/logger"
	"github.com/Faultbox/vmap/internal/modelcache"
	"github.com/Faultbox/vmap/pkg/math"
	"github.com/Faultbox/vmap/pkg/vmap"
)

// StaticModel is a model placed as fixed map geometry.
type StaticModel struct {
	placement
	spawn vmap.ModelSpawn
}

// NewStaticModel acquires the spawn's model from cache and places it. When
// the spawn carries no bound, it is derived from the model's group bounds.
func NewStaticModel(spawn vmap.ModelSpawn, cache *modelcache.Cache) (*StaticModel, error) {
	handle, err := cache.Acquire(spawn.Name, spawn.Flags&(vmap.ModM2|vmap.ModWorldSpawn))
	if err != nil {
		return nil, err
	}

	scale := spawn.Scale
	if scale == 0 {
		scale = 1
	}
	rot := math.EulerZYX(math.DegToRad(spawn.Rot.Y), math.DegToRad(spawn.Rot.X), math.DegToRad(spawn.Rot.Z))

	s := &StaticModel{spawn: spawn}
	s.handle = handle

	local := handle.Model().Bound()
	s.setTransform(spawn.Pos, rot, scale, local)
	if spawn.Flags&vmap.ModHasBound != 0 {
		s.bound = spawn.Bound
	} else if local.IsZero() {
		s.bound = math.AABox{}
	}
	if s.bound.IsZero() {
		handle.Release()
		logger.Error("static model has no bounds", zap.String("model", spawn.Name), zap.Uint32("id", spawn.ID))
		return nil, fmt.Errorf("%w: %s", ErrZeroBounds, spawn.Name)
	}
	return s, nil
}

// Spawn returns the placement record.
func (s *StaticModel) Spawn() vmap.ModelSpawn { return s.spawn }

// Name returns the model file name.
func (s *StaticModel) Name() string { return s.spawn.Name }

// Bounds implements Collider.
func (s *StaticModel) Bounds() math.AABox { return s.bound }

// IntersectRay implements Collider. Static geometry is in every phase.
func (s *StaticModel) IntersectRay(r math.Ray, maxDist *float32, stopAtFirstHit bool, f Filter) bool {
	return s.intersectRay(r, maxDist, stopAtFirstHit, f.Ignore)
}

// IntersectPoint implements Collider. Doodads carry no area data.
func (s *StaticModel) IntersectPoint(p math.Vec3, info *AreaInfo, _ Filter) {
	if s.spawn.Flags&vmap.ModM2 != 0 {
		return
	}
	if s.intersectPoint(p, info) {
		info.AdtID = s.spawn.AdtID
		info.NameSetID = 0
	}
}

// GetLocationInfo implements Collider.
func (s *StaticModel) GetLocationInfo(p math.Vec3, info *LocationInfo, _ Filter) bool {
	if s.spawn.Flags&vmap.ModM2 != 0 {
		return false
	}
	if !s.getLocationInfo(p, info) {
		return false
	}
	info.Hit = s
	return true
}

// LiquidLevel implements Collider.
func (s *StaticModel) LiquidLevel(p math.Vec3, group *vmap.GroupModel) (float32, bool) {
	return s.liquidLevel(p, group)
}

// Release drops the model reference. Later queries report no hit.
func (s *StaticModel) Release() {
	s.release()
}
