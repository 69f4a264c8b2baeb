// Package modelcache shares loaded world models between placements and
// unloads a model when its last handle is released.
package modelcache

import (
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/vmap/internal/logger"
	"github.com/Faultbox/vmap/pkg/vmap"
)

// Cache loads world models by file name relative to a base directory.
// It is safe for concurrent use.
type Cache struct {
	dir string

	mu     sync.Mutex
	models map[string]*entry

	// loading holds one in-flight disk read per name
	loading singleflight.Group
	loads   atomic.Uint64

	readFile func(path string) (*vmap.WorldModel, error)
}

type entry struct {
	model *vmap.WorldModel
	refs  int
}

// Entry describes a cached model.
type Entry struct {
	Name   string `json:"name"`
	Refs   int    `json:"refs"`
	Groups int    `json:"groups"`
}

// New creates a cache reading models from dir.
func New(dir string) *Cache {
	return &Cache{
		dir:      dir,
		models:   make(map[string]*entry),
		readFile: vmap.ReadFile,
	}
}

// Dir returns the base directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Acquire returns a handle to the model stored under name, loading it on
// first use. flags are applied to a freshly loaded model only. Concurrent
// first requests for one name share a single load.
func (c *Cache) Acquire(name string, flags vmap.ModelFlags) (*Handle, error) {
	c.mu.Lock()
	if e, ok := c.models[name]; ok {
		e.refs++
		c.mu.Unlock()
		return newHandle(c, name, e.model), nil
	}
	c.mu.Unlock()

	v, err, _ := c.loading.Do(name, func() (any, error) {
		c.mu.Lock()
		if e, ok := c.models[name]; ok {
			c.mu.Unlock()
			return e.model, nil
		}
		c.mu.Unlock()

		model, err := c.load(name, flags)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.models[name]; ok {
			return e.model, nil
		}
		c.models[name] = &entry{model: model}
		return model, nil
	})
	if err != nil {
		return nil, err
	}

	model := v.(*vmap.WorldModel)
	c.mu.Lock()
	e, ok := c.models[name]
	if !ok {
		// every earlier holder released while this caller was waiting
		e = &entry{model: model}
		c.models[name] = e
	}
	e.refs++
	c.mu.Unlock()
	return newHandle(c, name, e.model), nil
}

func (c *Cache) load(name string, flags vmap.ModelFlags) (*vmap.WorldModel, error) {
	start := time.Now()
	model, err := c.readFile(filepath.Join(c.dir, name))
	if err != nil {
		logger.Error("failed to load model", zap.String("model", name), zap.Error(err))
		return nil, err
	}
	model.SetFlags(flags)
	c.loads.Add(1)

	logger.Debug("loaded model",
		zap.String("model", name),
		zap.Int("groups", len(model.Groups())),
		zap.Duration("took", time.Since(start)))
	return model, nil
}

func (c *Cache) release(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.models[name]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(c.models, name)
		logger.Debug("unloaded model", zap.String("model", name))
	}
}

// Len returns the number of loaded models.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.models)
}

// RefCount returns the number of live handles for name.
func (c *Cache) RefCount(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.models[name]; ok {
		return e.refs
	}
	return 0
}

// Loads returns the number of models read from disk so far.
func (c *Cache) Loads() uint64 {
	return c.loads.Load()
}

// Entries lists the loaded models sorted by name.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	entries := make([]Entry, 0, len(c.models))
	for name, e := range c.models {
		entries = append(entries, Entry{Name: name, Refs: e.refs, Groups: len(e.model.Groups())})
	}
	c.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Handle is one reference to a cached model.
type Handle struct {
	cache *Cache
	name  string
	model atomic.Pointer[vmap.WorldModel]
}

func newHandle(c *Cache, name string, model *vmap.WorldModel) *Handle {
	h := &Handle{cache: c, name: name}
	h.model.Store(model)
	return h
}

// Name returns the model file name.
func (h *Handle) Name() string {
	return h.name
}

// Model returns the shared model, or nil once the handle is released.
func (h *Handle) Model() *vmap.WorldModel {
	if h == nil {
		return nil
	}
	return h.model.Load()
}

// Release drops the reference. Further calls do nothing.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	if h.model.Swap(nil) != nil {
		h.cache.release(h.name)
	}
}
