// Package config handles collision service configuration loading and
// management.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalid is returned by Validate for unusable settings.
var ErrInvalid = errors.New("invalid config")

// Config holds all settings.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Collision CollisionConfig `yaml:"collision"`
	Server    ServerConfig    `yaml:"server"`
	Scene     SceneConfig     `yaml:"scene"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DataConfig holds collision data paths.
type DataConfig struct {
	VMapsDir string `yaml:"vmaps_dir"` // Directory holding model files
	Manifest string `yaml:"manifest"`  // Game object model manifest, relative to VMapsDir
}

// CollisionConfig holds query settings.
type CollisionConfig struct {
	EnableLineOfSight bool          `yaml:"enable_line_of_sight"`
	EnableHeight      bool          `yaml:"enable_height"`
	LeafSize          int           `yaml:"leaf_size"`          // Max placements per tree leaf
	RebalanceInterval time.Duration `yaml:"rebalance_interval"` // Delay before a changed tree is rebuilt
	MaxSearchDistance float32       `yaml:"max_search_distance"`
}

// ServerConfig holds query service settings.
type ServerConfig struct {
	Listen       string        `yaml:"listen"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// SceneConfig lists the placements the query service loads at startup.
type SceneConfig struct {
	Spawns  []SpawnConfig  `yaml:"spawns,omitempty"`
	Objects []ObjectConfig `yaml:"objects,omitempty"`
}

// SpawnConfig places a model file as static geometry.
type SpawnConfig struct {
	Model    string     `yaml:"model"`
	ID       uint32     `yaml:"id"`
	Position [3]float32 `yaml:"position"`
	Rotation [3]float32 `yaml:"rotation"` // Euler angles in degrees
	Scale    float32    `yaml:"scale"`    // 0 means 1
	M2       bool       `yaml:"m2"`
}

// ObjectConfig spawns a game object by display id.
type ObjectConfig struct {
	GUID        uint64     `yaml:"guid"`
	DisplayID   uint32     `yaml:"display_id"`
	Position    [3]float32 `yaml:"position"`
	Orientation float32    `yaml:"orientation"` // radians around Z
	Scale       float32    `yaml:"scale"`       // 0 means 1
	PhaseMask   uint32     `yaml:"phase_mask"`  // 0 means all phases
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			VMapsDir: "vmaps",
			Manifest: "temp_gameobject_models",
		},
		Collision: CollisionConfig{
			EnableLineOfSight: true,
			EnableHeight:      true,
			LeafSize:          3,
			RebalanceInterval: 200 * time.Millisecond,
			MaxSearchDistance: 100,
		},
		Server: ServerConfig{
			Listen:       "127.0.0.1:8085",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	if c.Data.VMapsDir == "" {
		return fmt.Errorf("%w: data.vmaps_dir is empty", ErrInvalid)
	}
	if c.Collision.LeafSize < 1 {
		return fmt.Errorf("%w: collision.leaf_size %d", ErrInvalid, c.Collision.LeafSize)
	}
	if c.Collision.RebalanceInterval < 0 {
		return fmt.Errorf("%w: collision.rebalance_interval %v", ErrInvalid, c.Collision.RebalanceInterval)
	}
	if !(c.Collision.MaxSearchDistance > 0) {
		return fmt.Errorf("%w: collision.max_search_distance %v", ErrInvalid, c.Collision.MaxSearchDistance)
	}
	for i, s := range c.Scene.Spawns {
		if s.Model == "" {
			return fmt.Errorf("%w: scene.spawns[%d] has no model", ErrInvalid, i)
		}
		if s.Scale < 0 {
			return fmt.Errorf("%w: scene.spawns[%d] scale %v", ErrInvalid, i, s.Scale)
		}
	}
	for i, o := range c.Scene.Objects {
		if o.Scale < 0 {
			return fmt.Errorf("%w: scene.objects[%d] scale %v", ErrInvalid, i, o.Scale)
		}
	}
	return nil
}

// EffectiveScale returns the spawn scale, treating 0 as 1.
func (s SpawnConfig) EffectiveScale() float32 {
	if s.Scale == 0 {
		return 1
	}
	return s.Scale
}

// EffectiveScale returns the object scale, treating 0 as 1.
func (o ObjectConfig) EffectiveScale() float32 {
	if o.Scale == 0 {
		return 1
	}
	return o.Scale
}
