package bih

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// BIH format errors.
var (
	ErrTruncatedTree = errors.New("truncated BIH data")
	ErrCorruptTree   = errors.New("corrupt BIH data")
)

const (
	// maxTreeWords bounds the counts accepted from untrusted files.
	maxTreeWords = 1 << 26
	// readBatch is how many words are read per step, so memory grows with
	// the data actually present rather than with a declared count.
	readBatch = 1 << 14
)

// WriteTo writes the tree as: bounds (6 float32), word count, words,
// object count, object indices.
func (t *Tree) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if err := binary.Write(cw, binary.LittleEndian, t.bounds); err != nil {
		return cw.n, err
	}
	if err := binary.Write(cw, binary.LittleEndian, uint32(len(t.tree))); err != nil {
		return cw.n, err
	}
	if err := binary.Write(cw, binary.LittleEndian, t.tree); err != nil {
		return cw.n, err
	}
	if err := binary.Write(cw, binary.LittleEndian, uint32(len(t.objects))); err != nil {
		return cw.n, err
	}
	if len(t.objects) > 0 {
		if err := binary.Write(cw, binary.LittleEndian, t.objects); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

// ReadTree reads a tree written by WriteTo and validates it against the
// number of primitives it indexes.
func ReadTree(r io.Reader, primCount int) (*Tree, error) {
	t := &Tree{}

	if err := binary.Read(r, binary.LittleEndian, &t.bounds); err != nil {
		return nil, fmt.Errorf("%w: reading bounds", ErrTruncatedTree)
	}

	var treeSize uint32
	if err := binary.Read(r, binary.LittleEndian, &treeSize); err != nil {
		return nil, fmt.Errorf("%w: reading node count", ErrTruncatedTree)
	}
	if treeSize == 0 || treeSize%3 != 0 || treeSize > maxTreeWords {
		return nil, fmt.Errorf("%w: invalid node word count %d", ErrCorruptTree, treeSize)
	}
	var err error
	if t.tree, err = readWords(r, treeSize, "nodes"); err != nil {
		return nil, err
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: reading object count", ErrTruncatedTree)
	}
	if count > maxTreeWords {
		return nil, fmt.Errorf("%w: invalid object count %d", ErrCorruptTree, count)
	}
	if count > 0 {
		if t.objects, err = readWords(r, count, "objects"); err != nil {
			return nil, err
		}
	}

	if err := t.validate(primCount); err != nil {
		return nil, err
	}
	return t, nil
}

func readWords(r io.Reader, n uint32, what string) ([]uint32, error) {
	words := make([]uint32, 0, min(n, readBatch))
	for len(words) < int(n) {
		k := min(int(n)-len(words), readBatch)
		start := len(words)
		words = append(words, make([]uint32, k)...)
		if err := binary.Read(r, binary.LittleEndian, words[start:]); err != nil {
			return nil, fmt.Errorf("%w: reading %s", ErrTruncatedTree, what)
		}
	}
	return words, nil
}

// validate checks every reachable node so that queries never index out of
// range. Children are always stored after their parent and every node is
// reached once, so the walk is linear in the node count.
func (t *Tree) validate(primCount int) error {
	if len(t.objects) == 0 {
		return nil
	}
	if t.bounds.IsEmpty() {
		return fmt.Errorf("%w: inverted bounds", ErrCorruptTree)
	}
	for i, obj := range t.objects {
		if int(obj) >= primCount {
			return fmt.Errorf("%w: object %d references primitive %d of %d", ErrCorruptTree, i, obj, primCount)
		}
	}

	size := uint32(len(t.tree))
	visited := make([]bool, size/3)
	type item struct {
		node  uint32
		depth int
	}
	pending := []item{{0, 1}}
	for len(pending) > 0 {
		it := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if it.depth > 2*maxStackSize {
			return fmt.Errorf("%w: tree deeper than %d", ErrCorruptTree, 2*maxStackSize)
		}
		if visited[it.node/3] {
			return fmt.Errorf("%w: node at %d has more than one parent", ErrCorruptTree, it.node)
		}
		visited[it.node/3] = true

		tn := t.tree[it.node]
		axis := (tn >> 30) & 3
		isBVH2 := tn&bvh2Flag != 0
		offset := tn & offsetMask

		switch {
		case axis == leafAxis && !isBVH2:
			n := t.tree[it.node+1]
			if uint64(offset)+uint64(n) > uint64(len(t.objects)) {
				return fmt.Errorf("%w: leaf at %d spans objects [%d, %d)", ErrCorruptTree, it.node, offset, uint64(offset)+uint64(n))
			}
		case axis == leafAxis:
			return fmt.Errorf("%w: BVH2 node at %d has no axis", ErrCorruptTree, it.node)
		case isBVH2:
			if offset%3 != 0 || offset <= it.node || offset+2 >= size {
				return fmt.Errorf("%w: node at %d has child offset %d", ErrCorruptTree, it.node, offset)
			}
			pending = append(pending, item{offset, it.depth + 1})
		default:
			if offset%3 != 0 || offset <= it.node || offset+5 >= size {
				return fmt.Errorf("%w: node at %d has child offset %d", ErrCorruptTree, it.node, offset)
			}
			pending = append(pending, item{offset, it.depth + 1}, item{offset + 3, it.depth + 1})
		}
	}
	return nil
}

// Equal reports whether two trees encode the same structure.
func (t *Tree) Equal(other *Tree) bool {
	if t.bounds != other.bounds || len(t.tree) != len(other.tree) || len(t.objects) != len(other.objects) {
		return false
	}
	for i := range t.tree {
		if t.tree[i] != other.tree[i] {
			return false
		}
	}
	for i := range t.objects {
		if t.objects[i] != other.objects[i] {
			return false
		}
	}
	return true
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
