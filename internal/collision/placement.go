package collision

import (
	"github.com/Faultbox/vmap/internal/modelcache"
	"github.com/Faultbox/vmap/pkg/math"
	"github.com/Faultbox/vmap/pkg/vmap"
)

// placement holds a model handle and the transform between world space and
// model space.
type placement struct {
	handle *modelcache.Handle

	pos      math.Vec3
	rot      math.Mat3
	invRot   math.Mat3
	scale    float32
	invScale float32
	bound    math.AABox
}

func (p *placement) model() *vmap.WorldModel {
	return p.handle.Model()
}

// setTransform updates the transform and the world bound of localBound.
func (p *placement) setTransform(pos math.Vec3, rot math.Mat3, scale float32, localBound math.AABox) {
	p.pos = pos
	p.rot = rot
	p.invRot = rot.Inverse()
	p.scale = scale
	p.invScale = 1 / scale
	p.bound = localBound.Transform(scale, rot, pos)
}

// toModel converts a world position into model space.
func (p *placement) toModel(v math.Vec3) math.Vec3 {
	return p.invRot.MulVec3(v.Sub(p.pos)).Scale(p.invScale)
}

// toWorld converts a model-space position into world space.
func (p *placement) toWorld(v math.Vec3) math.Vec3 {
	return p.rot.MulVec3(v.Scale(p.scale)).Add(p.pos)
}

func (p *placement) intersectRay(r math.Ray, maxDist *float32, stopAtFirstHit bool, ignore vmap.IgnoreFlags) bool {
	m := p.model()
	if m == nil {
		return false
	}
	t, ok := r.IntersectionTime(p.bound)
	if !ok || t > *maxDist {
		return false
	}

	modelRay := math.NewRay(p.toModel(r.Origin), p.invRot.MulVec3(r.Direction))
	distance := *maxDist * p.invScale
	if !m.IntersectRay(modelRay, &distance, stopAtFirstHit, ignore) {
		return false
	}
	*maxDist = distance * p.scale
	return true
}

// groundBelow finds the group below the world point pos and returns the
// world height of its surface.
func (p *placement) groundBelow(pos math.Vec3) (*vmap.WorldModel, *vmap.GroupModel, float32, bool) {
	m := p.model()
	if m == nil || !p.bound.Contains(pos) {
		return nil, nil, 0, false
	}
	modelPos := p.toModel(pos)
	modelDown := p.invRot.MulVec3(math.Vec3{Z: -1})

	group, zDist, ok := m.GetLocationInfo(modelPos, modelDown)
	if !ok {
		return nil, nil, 0, false
	}
	ground := modelPos.Add(modelDown.Scale(zDist))
	return m, group, p.toWorld(ground).Z, true
}

func (p *placement) intersectPoint(pos math.Vec3, info *AreaInfo) bool {
	m, group, worldZ, ok := p.groundBelow(pos)
	if !ok || !(worldZ > info.GroundZ) {
		return false
	}
	info.Found = true
	info.GroundZ = worldZ
	info.RootID = m.RootWMOID()
	info.GroupID = group.WMOID()
	info.MogpFlags = group.MogpFlags()
	return true
}

func (p *placement) getLocationInfo(pos math.Vec3, info *LocationInfo) bool {
	m, group, worldZ, ok := p.groundBelow(pos)
	if !ok || !(worldZ > info.GroundZ) {
		return false
	}
	info.GroundZ = worldZ
	info.RootID = m.RootWMOID()
	info.HitGroup = group
	return true
}

// liquidLevel assumes the model is not tilted.
func (p *placement) liquidLevel(pos math.Vec3, group *vmap.GroupModel) (float32, bool) {
	if group == nil || p.model() == nil {
		return 0, false
	}
	zDist, ok := group.LiquidLevel(p.toModel(pos))
	if !ok {
		return 0, false
	}
	return zDist*p.scale + p.pos.Z, true
}

// release drops the model. Later queries report no hit.
func (p *placement) release() {
	p.handle.Release()
}
