// Package vmap reads, writes and queries pre-baked collision models:
// triangle mesh groups, the world models that aggregate them, and their
// liquid surfaces.
//
// All model types are immutable after construction and safe for concurrent
// queries.
package vmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// Magic starts every model and manifest file.
	Magic = "VMAP_4.8"

	// ModelExt is appended to a model name when the bare path does not exist.
	ModelExt = ".vmo"

	// maxElements bounds allocations for counts read from disk.
	maxElements = 1 << 24

	// maxNameLength is the longest model file name accepted.
	maxNameLength = 500

	// readBatch is how many elements are read per step, so memory grows
	// with the data actually present rather than with a declared count.
	readBatch = 1 << 12
)

// Chunk tags, in file order.
const (
	tagWorldModel = "WMOD"
	tagGroups     = "GMOD"
	tagGroupTree  = "GBIH"
	tagVertices   = "VERT"
	tagTriangles  = "TRIM"
	tagMeshTree   = "MBIH"
	tagLiquid     = "LIQU"
)

// Model format errors.
var (
	ErrInvalidMagic = errors.New("invalid vmap magic: expected '" + Magic + "'")
	ErrBadChunk     = errors.New("unexpected chunk")
	ErrTruncated    = errors.New("truncated vmap data")
	ErrNoVertices   = errors.New("group model has no vertices")
	ErrBadTriangle  = errors.New("triangle references missing vertex")
	ErrBadLiquid    = errors.New("invalid liquid data")
	ErrTooLarge     = errors.New("element count too large")
)

func readMagic(r io.Reader) error {
	var magic [len(Magic)]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("%w: reading magic", ErrTruncated)
	}
	if string(magic[:]) != Magic {
		return ErrInvalidMagic
	}
	return nil
}

func readChunk(r io.Reader, tag string) error {
	var got [4]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return fmt.Errorf("%w: reading %s tag", ErrTruncated, tag)
	}
	if string(got[:]) != tag {
		return fmt.Errorf("%w: expected %q, got %q", ErrBadChunk, tag, got[:])
	}
	return nil
}

func read(r io.Reader, v any, what string) error {
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("%w: reading %s", ErrTruncated, what)
	}
	return nil
}

func readCount(r io.Reader, what string) (uint32, error) {
	var n uint32
	if err := read(r, &n, what); err != nil {
		return 0, err
	}
	if n > maxElements {
		return 0, fmt.Errorf("%w: %s %d", ErrTooLarge, what, n)
	}
	return n, nil
}

// readSlice reads n fixed-size elements in batches.
func readSlice[T any](r io.Reader, n uint32, what string) ([]T, error) {
	out := make([]T, 0, min(n, readBatch))
	for len(out) < int(n) {
		k := min(int(n)-len(out), readBatch)
		start := len(out)
		out = append(out, make([]T, k)...)
		if err := read(r, out[start:], what); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// writer collects the first error of a sequence of writes.
type writer struct {
	w   io.Writer
	n   int64
	err error
}

func (w *writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(p)
	w.n += int64(n)
	w.err = err
	return n, err
}

func (w *writer) put(v any) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(w, binary.LittleEndian, v)
}

func (w *writer) tag(t string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w, t)
}

func (w *writer) writeTo(v io.WriterTo) {
	if w.err != nil {
		return
	}
	_, w.err = v.WriteTo(w)
}
