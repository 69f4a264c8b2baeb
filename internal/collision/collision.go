// Package collision places shared world models in the world and answers
// line of sight, height, area and liquid queries against them.
package collision

import (
	"errors"

	"github.com/Faultbox/vmap/pkg/math"
	"github.com/Faultbox/vmap/pkg/vmap"
)

// Placement errors.
var (
	ErrZeroBounds       = errors.New("model has zero bounds")
	ErrUnknownDisplayID = errors.New("display id not in model table")
)

// PhaseAll matches every phase.
const PhaseAll = ^uint32(0)

// Filter selects which placements take part in a query.
type Filter struct {
	PhaseMask uint32
	Ignore    vmap.IgnoreFlags
}

// DefaultFilter matches every phase and ignores nothing.
var DefaultFilter = Filter{PhaseMask: PhaseAll}

// Collider is a placed model that answers world-space queries.
type Collider interface {
	// Bounds returns the world bounding box.
	Bounds() math.AABox
	// IntersectRay shrinks *maxDist to the nearest hit and reports whether
	// anything was hit.
	IntersectRay(r math.Ray, maxDist *float32, stopAtFirstHit bool, f Filter) bool
	// IntersectPoint updates info when a surface below p lies above
	// info.GroundZ.
	IntersectPoint(p math.Vec3, info *AreaInfo, f Filter)
	// GetLocationInfo is IntersectPoint keeping the hit group.
	GetLocationInfo(p math.Vec3, info *LocationInfo, f Filter) bool
	// LiquidLevel returns the world liquid height of group at p.
	LiquidLevel(p math.Vec3, group *vmap.GroupModel) (float32, bool)
}

// AreaInfo describes the ground found below a point.
type AreaInfo struct {
	Found     bool
	GroundZ   float32
	RootID    uint32
	GroupID   uint32
	MogpFlags uint32
	AdtID     uint16
	// NameSetID tags results from dynamic placements.
	NameSetID uint32
}

// NewAreaInfo returns an empty result whose GroundZ is -Inf.
func NewAreaInfo() AreaInfo {
	return AreaInfo{GroundZ: math.NegInf()}
}

// LocationInfo describes the placement and group found below a point.
type LocationInfo struct {
	GroundZ  float32
	RootID   uint32
	Hit      Collider
	HitGroup *vmap.GroupModel
}

// NewLocationInfo returns an empty result whose GroundZ is -Inf.
func NewLocationInfo() LocationInfo {
	return LocationInfo{GroundZ: math.NegInf()}
}

// LiquidInfo describes the liquid surface at a point.
type LiquidInfo struct {
	Level   float32
	Type    uint32
	GroundZ float32
}
