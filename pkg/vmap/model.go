package vmap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/Faultbox/vmap/pkg/bih"
	"github.com/Faultbox/vmap/pkg/math"
)

// IgnoreFlags select model kinds a ray query skips.
type IgnoreFlags uint32

const (
	IgnoreNothing IgnoreFlags = 0
	// IgnoreM2 skips decorative doodad models.
	IgnoreM2 IgnoreFlags = 1 << 0
)

// AreaInfo identifies the group found below a point.
type AreaInfo struct {
	RootID    uint32
	GroupID   uint32
	MogpFlags uint32
}

// WorldModel is a set of group models sharing one model space, indexed by a
// BIH over the group bounds.
type WorldModel struct {
	rootWMOID uint32
	flags     ModelFlags
	groups    []*GroupModel
	groupTree *bih.Tree
}

// NewWorldModel builds the group index over groups.
func NewWorldModel(rootWMOID uint32, groups []*GroupModel) *WorldModel {
	m := &WorldModel{rootWMOID: rootWMOID, groups: groups}
	m.groupTree = bih.Build(len(groups), func(i int) math.AABox {
		return groups[i].Bound()
	}, bih.DefaultLeafSize)
	return m
}

// RootWMOID returns the root model id.
func (m *WorldModel) RootWMOID() uint32 { return m.rootWMOID }

// Groups returns the group models. The slice must not be modified.
func (m *WorldModel) Groups() []*GroupModel { return m.groups }

// GroupTree returns the group index.
func (m *WorldModel) GroupTree() *bih.Tree { return m.groupTree }

// Flags returns the model kind flags.
func (m *WorldModel) Flags() ModelFlags { return m.flags }

// SetFlags sets the model kind flags. It must only be called before the model
// is shared between goroutines.
func (m *WorldModel) SetFlags(flags ModelFlags) { m.flags = flags }

// Bound returns the union of the group bounds, or the zero box for a model
// without groups.
func (m *WorldModel) Bound() math.AABox {
	if len(m.groups) == 0 {
		return math.AABox{}
	}
	b := m.groups[0].Bound()
	for _, g := range m.groups[1:] {
		b = b.Union(g.Bound())
	}
	return b
}

// IntersectRay finds the nearest hit over all groups closer than *dist.
func (m *WorldModel) IntersectRay(r math.Ray, dist *float32, stopAtFirstHit bool, ignore IgnoreFlags) bool {
	if ignore&IgnoreM2 != 0 && m.flags&ModM2 != 0 {
		return false
	}
	switch len(m.groups) {
	case 0:
		return false
	case 1:
		return m.groups[0].IntersectRay(r, dist, stopAtFirstHit)
	}

	hit := false
	m.groupTree.IntersectRay(r, dist, stopAtFirstHit, func(r math.Ray, idx uint32, maxDist *float32, stop bool) bool {
		if m.groups[idx].IntersectRay(r, maxDist, stop) {
			hit = true
		}
		return hit
	})
	return hit
}

// findGroup returns the group with the closest surface along down from p.
func (m *WorldModel) findGroup(p, down math.Vec3) (*GroupModel, float32, bool) {
	var best *GroupModel
	zDist := math.Inf()
	check := func(_ math.Vec3, idx uint32) {
		g := m.groups[idx]
		if d, ok := g.IsInsideObject(p, down); ok && d < zDist {
			best, zDist = g, d
		}
	}

	switch len(m.groups) {
	case 0:
		return nil, 0, false
	case 1:
		check(p, 0)
	default:
		m.groupTree.IntersectPoint(p, check)
	}
	if best == nil {
		return nil, 0, false
	}
	return best, zDist, true
}

// IntersectPoint reports the group whose surface lies closest along down from
// p and the distance to it.
func (m *WorldModel) IntersectPoint(p, down math.Vec3) (AreaInfo, float32, bool) {
	g, zDist, ok := m.findGroup(p, down)
	if !ok {
		return AreaInfo{}, 0, false
	}
	return AreaInfo{RootID: m.rootWMOID, GroupID: g.WMOID(), MogpFlags: g.MogpFlags()}, zDist, true
}

// GetLocationInfo is IntersectPoint returning the hit group itself.
func (m *WorldModel) GetLocationInfo(p, down math.Vec3) (*GroupModel, float32, bool) {
	return m.findGroup(p, down)
}

// WriteTo writes the complete model file.
func (m *WorldModel) WriteTo(w io.Writer) (int64, error) {
	bw := &writer{w: w}
	bw.tag(Magic)

	bw.tag(tagWorldModel)
	bw.put(uint32(4))
	bw.put(m.rootWMOID)

	bw.tag(tagGroups)
	bw.put(uint32(len(m.groups)))
	for _, g := range m.groups {
		bw.writeTo(g)
	}

	bw.tag(tagGroupTree)
	bw.writeTo(m.groupTree)
	return bw.n, bw.err
}

// WriteFile writes the model to path.
func (m *WorldModel) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if _, err := m.WriteTo(bw); err != nil {
		f.Close()
		return fmt.Errorf("write model %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write model %s: %w", path, err)
	}
	return f.Close()
}

// ReadWorldModel reads a complete model file.
func ReadWorldModel(r io.Reader) (*WorldModel, error) {
	if err := readMagic(r); err != nil {
		return nil, err
	}

	if err := readChunk(r, tagWorldModel); err != nil {
		return nil, err
	}
	var size uint32
	if err := read(r, &size, "model header size"); err != nil {
		return nil, err
	}
	if size < 4 {
		return nil, fmt.Errorf("%w: model header size %d", ErrBadChunk, size)
	}
	m := &WorldModel{}
	if err := read(r, &m.rootWMOID, "root id"); err != nil {
		return nil, err
	}
	if _, err := io.CopyN(io.Discard, r, int64(size-4)); err != nil {
		return nil, fmt.Errorf("%w: reading model header", ErrTruncated)
	}

	if err := readChunk(r, tagGroups); err != nil {
		return nil, err
	}
	count, err := readCount(r, "groups")
	if err != nil {
		return nil, err
	}
	m.groups = make([]*GroupModel, 0, min(count, readBatch))
	for i := uint32(0); i < count; i++ {
		g, err := ReadGroupModel(r)
		if err != nil {
			return nil, fmt.Errorf("reading group %d: %w", i, err)
		}
		m.groups = append(m.groups, g)
	}

	if err := readChunk(r, tagGroupTree); err != nil {
		return nil, err
	}
	if m.groupTree, err = bih.ReadTree(r, len(m.groups)); err != nil {
		return nil, fmt.Errorf("reading group tree: %w", err)
	}
	return m, nil
}

// ReadFile loads a model from path, falling back to path+ModelExt when path
// does not exist.
func ReadFile(path string) (*WorldModel, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		f, err = os.Open(path + ModelExt)
	}
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	m, err := ReadWorldModel(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", f.Name(), err)
	}
	return m, nil
}
