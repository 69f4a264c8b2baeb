// Package modeltable maps game object display ids to their collision model
// files and local bounds.
package modeltable

import (
	"go.uber.org/zap"

	"github.com/Faultbox/vmap/internal/logger"
	"github.com/Faultbox/vmap/pkg/vmap"
)

// Table is a read-only display id lookup. It is safe for concurrent use.
type Table struct {
	models map[uint32]vmap.ModelInfo
}

// New builds a table from manifest records. A duplicate id replaces the
// earlier record.
func New(infos []vmap.ModelInfo) *Table {
	t := &Table{models: make(map[uint32]vmap.ModelInfo, len(infos))}
	for _, info := range infos {
		if prev, ok := t.models[info.DisplayID]; ok {
			logger.Warn("duplicate display id in model manifest",
				zap.Uint32("display_id", info.DisplayID),
				zap.String("previous", prev.Name),
				zap.String("model", info.Name))
		}
		t.models[info.DisplayID] = info
	}
	return t
}

// Load reads the manifest at path.
func Load(path string) (*Table, error) {
	infos, err := vmap.ReadManifestFile(path)
	if err != nil {
		logger.Error("failed to load model manifest", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	t := New(infos)
	logger.Info("loaded model manifest", zap.String("path", path), zap.Int("models", t.Len()))
	return t, nil
}

// Lookup returns the record for a display id.
func (t *Table) Lookup(displayID uint32) (vmap.ModelInfo, bool) {
	if t == nil {
		return vmap.ModelInfo{}, false
	}
	info, ok := t.models[displayID]
	return info, ok
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.models)
}
