package vmap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/vmap/pkg/math"
)

// ModelInfo is one manifest record describing a dynamic object model.
type ModelInfo struct {
	DisplayID uint32
	// IsWMO marks multi-group world map objects; others are doodads.
	IsWMO bool
	Name  string
	// Bound is the model-space bounding box.
	Bound math.AABox
}

// ReadManifest reads manifest records until end of input. A record cut short
// is an error; end of input between records is not.
func ReadManifest(r io.Reader) ([]ModelInfo, error) {
	if err := readMagic(r); err != nil {
		return nil, err
	}

	var infos []ModelInfo
	for {
		var id uint32
		if err := readFirst(r, &id); err == io.EOF {
			return infos, nil
		} else if err != nil {
			return nil, err
		}

		info := ModelInfo{DisplayID: id}
		var isWMO uint8
		if err := read(r, &isWMO, "manifest record"); err != nil {
			return nil, err
		}
		info.IsWMO = isWMO != 0

		var nameLen int32
		if err := read(r, &nameLen, "name length"); err != nil {
			return nil, err
		}
		if nameLen < 0 || nameLen > maxNameLength {
			return nil, fmt.Errorf("%w: record %d name length %d", ErrTooLarge, id, nameLen)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("%w: reading name of record %d", ErrTruncated, id)
		}
		info.Name = string(name)

		if err := read(r, &info.Bound, "record bound"); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
}

// readFirst reads the leading field of a record, reporting io.EOF when no
// byte at all is left.
func readFirst(r io.Reader, v *uint32) error {
	var buf [4]byte
	n, err := io.ReadFull(r, buf[:])
	if n == 0 && err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("%w: reading record id", ErrTruncated)
	}
	*v = binary.LittleEndian.Uint32(buf[:])
	return nil
}

// ReadManifestFile reads a manifest from path.
func ReadManifestFile(path string) ([]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	infos, err := ReadManifest(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return infos, nil
}

// WriteManifest writes infos as a manifest.
func WriteManifest(w io.Writer, infos []ModelInfo) error {
	bw := &writer{w: w}
	bw.tag(Magic)
	for _, info := range infos {
		bw.put(info.DisplayID)
		bw.put(info.IsWMO)
		bw.put(int32(len(info.Name)))
		bw.tag(info.Name)
		bw.put(info.Bound)
	}
	return bw.err
}
