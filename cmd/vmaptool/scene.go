package main

import (
	"errors"
	"io/fs"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/vmap/internal/collision"
	"github.com/Faultbox/vmap/internal/config"
	"github.com/Faultbox/vmap/internal/modelcache"
	"github.com/Faultbox/vmap/internal/modeltable"
	"github.com/Faultbox/vmap/pkg/math"
	"github.com/Faultbox/vmap/pkg/vmap"
)

// sceneObject is a game object spawned from the config.
type sceneObject struct {
	cfg config.ObjectConfig
}

func (o *sceneObject) DisplayID() uint32 { return o.cfg.DisplayID }

func (o *sceneObject) Position() math.Vec3 { return vecOf(o.cfg.Position) }

func (o *sceneObject) Rotation() math.Quat { return math.QuatFromOrientation(o.cfg.Orientation) }

func (o *sceneObject) Scale() float32 { return o.cfg.EffectiveScale() }

func (o *sceneObject) IsSpawned() bool { return true }

func (o *sceneObject) InPhase(mask uint32) bool {
	phase := o.cfg.PhaseMask
	if phase == 0 {
		phase = collision.PhaseAll
	}
	return phase&mask != 0
}

func (o *sceneObject) NameSetID() uint32 { return 0 }

func vecOf(v [3]float32) math.Vec3 {
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

// scene owns the placements loaded from the config.
type scene struct {
	cache    *modelcache.Cache
	table    *modeltable.Table
	tree     *collision.Tree
	statics  []*collision.StaticModel
	dynamics []*collision.DynamicModel
}

// loadScene places the configured spawns and objects. Placements that fail
// are logged and skipped.
func loadScene(cfg *config.Config, log *zap.Logger) *scene {
	s := &scene{
		cache: modelcache.New(cfg.Data.VMapsDir),
		table: loadTable(cfg, log),
		tree:  collision.NewTree(cfg.Collision.LeafSize, cfg.Collision.RebalanceInterval),
	}

	for _, sp := range cfg.Scene.Spawns {
		flags := vmap.ModWorldSpawn
		if sp.M2 {
			flags = vmap.ModM2
		}
		m, err := collision.NewStaticModel(vmap.ModelSpawn{
			Flags: flags,
			ID:    sp.ID,
			Pos:   vecOf(sp.Position),
			Rot:   vecOf(sp.Rotation),
			Scale: sp.EffectiveScale(),
			Name:  sp.Model,
		}, s.cache)
		if err != nil {
			log.Warn("skipping spawn", zap.String("model", sp.Model), zap.Uint32("id", sp.ID), zap.Error(err))
			continue
		}
		s.statics = append(s.statics, m)
		s.tree.Insert(m)
	}

	for _, oc := range cfg.Scene.Objects {
		d, err := collision.NewDynamicModel(&sceneObject{cfg: oc}, s.table, s.cache)
		if err != nil {
			log.Warn("skipping object", zap.Uint64("guid", oc.GUID), zap.Uint32("display_id", oc.DisplayID), zap.Error(err))
			continue
		}
		s.dynamics = append(s.dynamics, d)
		s.tree.Insert(d)
	}

	s.tree.Balance()
	log.Info("scene loaded",
		zap.Int("spawns", len(s.statics)),
		zap.Int("objects", len(s.dynamics)),
		zap.Int("models", s.cache.Len()))
	return s
}

// loadTable reads the manifest. A missing manifest yields an empty table.
func loadTable(cfg *config.Config, log *zap.Logger) *modeltable.Table {
	if cfg.Data.Manifest == "" {
		return modeltable.New(nil)
	}
	path := cfg.Data.Manifest
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Data.VMapsDir, path)
	}
	table, err := modeltable.Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("ignoring model manifest", zap.String("path", path), zap.Error(err))
		}
		return modeltable.New(nil)
	}
	return table
}

func (s *scene) release() {
	for _, m := range s.statics {
		s.tree.Remove(m)
		m.Release()
	}
	for _, d := range s.dynamics {
		s.tree.Remove(d)
		d.Release()
	}
	s.statics, s.dynamics = nil, nil
}
