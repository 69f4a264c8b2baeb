package vmap

import (
	"fmt"
	"io"

	"github.com/Faultbox/vmap/pkg/math"
)

// ModelFlags describe the kind of a model or spawn.
type ModelFlags uint32

const (
	// ModM2 marks a decorative doodad model.
	ModM2 ModelFlags = 1 << 0
	// ModWorldSpawn marks a world map object.
	ModWorldSpawn ModelFlags = 1 << 1
	// ModHasBound marks a spawn record carrying its world bound.
	ModHasBound ModelFlags = 1 << 2
)

// ModelSpawn is one static placement record of a map tile.
type ModelSpawn struct {
	Flags ModelFlags
	AdtID uint16
	ID    uint32
	Pos   math.Vec3
	// Rot holds Euler angles in degrees.
	Rot   math.Vec3
	Scale float32
	// Bound is the world bound, valid when Flags has ModHasBound.
	Bound math.AABox
	Name  string
}

// ReadModelSpawn reads one spawn record.
func ReadModelSpawn(r io.Reader) (ModelSpawn, error) {
	var s ModelSpawn
	var flags uint32
	if err := read(r, &flags, "spawn flags"); err != nil {
		return ModelSpawn{}, err
	}
	s.Flags = ModelFlags(flags)

	var header struct {
		AdtID uint16
		ID    uint32
		Pos   math.Vec3
		Rot   math.Vec3
		Scale float32
	}
	if err := read(r, &header, "spawn"); err != nil {
		return ModelSpawn{}, err
	}
	s.AdtID, s.ID, s.Pos, s.Rot, s.Scale = header.AdtID, header.ID, header.Pos, header.Rot, header.Scale

	if s.Flags&ModHasBound != 0 {
		if err := read(r, &s.Bound, "spawn bound"); err != nil {
			return ModelSpawn{}, err
		}
	}

	name, err := readName(r)
	if err != nil {
		return ModelSpawn{}, err
	}
	s.Name = name
	return s, nil
}

// WriteTo writes the spawn record.
func (s ModelSpawn) WriteTo(w io.Writer) (int64, error) {
	bw := &writer{w: w}
	bw.put(uint32(s.Flags))
	bw.put(s.AdtID)
	bw.put(s.ID)
	bw.put(s.Pos)
	bw.put(s.Rot)
	bw.put(s.Scale)
	if s.Flags&ModHasBound != 0 {
		bw.put(s.Bound)
	}
	bw.put(uint32(len(s.Name)))
	bw.tag(s.Name)
	return bw.n, bw.err
}

func readName(r io.Reader) (string, error) {
	var n uint32
	if err := read(r, &n, "name length"); err != nil {
		return "", err
	}
	if n > maxNameLength {
		return "", fmt.Errorf("%w: name length %d", ErrTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("%w: reading name", ErrTruncated)
	}
	return string(buf), nil
}
