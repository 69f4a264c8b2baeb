package vmap

import (
	"fmt"
	"io"

	"github.com/Faultbox/vmap/pkg/math"
)

// LiquidTileSize is the edge length of one liquid tile in world units.
const LiquidTileSize = float32(533.333 / 128.0)

// liquidDisabled marks a tile without liquid when all four low bits are set.
const liquidDisabled = 0x0F

// WmoLiquid is a liquid surface over a regular grid of tiles. A liquid
// without tiles is a flat surface at a single height.
type WmoLiquid struct {
	tilesX     uint32
	tilesY     uint32
	corner     math.Vec3
	liquidType uint32
	// heights holds (tilesX+1)*(tilesY+1) samples, row-major in x.
	heights []float32
	// flags holds tilesX*tilesY tile flags; nil for a flat liquid.
	flags []uint8
}

// NewLiquid creates a tiled liquid with all heights zero and every tile
// enabled.
func NewLiquid(tilesX, tilesY uint32, corner math.Vec3, liquidType uint32) *WmoLiquid {
	if tilesX == 0 || tilesY == 0 {
		return NewFlatLiquid(corner.Z, liquidType)
	}
	return &WmoLiquid{
		tilesX:     tilesX,
		tilesY:     tilesY,
		corner:     corner,
		liquidType: liquidType,
		heights:    make([]float32, (tilesX+1)*(tilesY+1)),
		flags:      make([]uint8, tilesX*tilesY),
	}
}

// NewFlatLiquid creates a liquid reporting the same height everywhere.
func NewFlatLiquid(height float32, liquidType uint32) *WmoLiquid {
	return &WmoLiquid{
		liquidType: liquidType,
		heights:    []float32{height},
	}
}

// Type returns the liquid type id.
func (l *WmoLiquid) Type() uint32 {
	return l.liquidType
}

// Tiles returns the grid dimensions.
func (l *WmoLiquid) Tiles() (x, y uint32) {
	return l.tilesX, l.tilesY
}

// Corner returns the world position of sample (0, 0).
func (l *WmoLiquid) Corner() math.Vec3 {
	return l.corner
}

// IsFlat reports whether the liquid has no tile grid.
func (l *WmoLiquid) IsFlat() bool {
	return l.flags == nil
}

// Height returns sample (x, y). x and y range over [0, tiles].
func (l *WmoLiquid) Height(x, y uint32) float32 {
	if l.IsFlat() {
		return l.heights[0]
	}
	return l.heights[x+y*(l.tilesX+1)]
}

// SetHeight sets sample (x, y). On a flat liquid it sets the single height.
func (l *WmoLiquid) SetHeight(x, y uint32, h float32) {
	if l.IsFlat() {
		l.heights[0] = h
		return
	}
	l.heights[x+y*(l.tilesX+1)] = h
}

// Flag returns the flag byte of tile (x, y).
func (l *WmoLiquid) Flag(x, y uint32) uint8 {
	if l.IsFlat() {
		return 0
	}
	return l.flags[x+y*l.tilesX]
}

// SetFlag sets the flag byte of tile (x, y). It is a no-op on a flat liquid.
func (l *WmoLiquid) SetFlag(x, y uint32, flag uint8) {
	if l.IsFlat() {
		return
	}
	l.flags[x+y*l.tilesX] = flag
}

// GetLiquidHeight returns the surface height at pos, or false when pos is
// outside the grid or over a disabled tile. Each tile is split along its
// diagonal into two triangles; the one containing pos is interpolated.
func (l *WmoLiquid) GetLiquidHeight(pos math.Vec3) (float32, bool) {
	if l.IsFlat() {
		return l.heights[0], true
	}

	txf := (pos.X - l.corner.X) / LiquidTileSize
	// negated comparisons also reject NaN
	if !(txf >= 0) || !(txf < float32(l.tilesX)) {
		return 0, false
	}
	tyf := (pos.Y - l.corner.Y) / LiquidTileSize
	if !(tyf >= 0) || !(tyf < float32(l.tilesY)) {
		return 0, false
	}

	tx := uint32(txf)
	ty := uint32(tyf)
	// float rounding can land exactly on the far edge
	if tx >= l.tilesX || ty >= l.tilesY {
		return 0, false
	}
	if l.flags[tx+ty*l.tilesX]&liquidDisabled == liquidDisabled {
		return 0, false
	}

	dx := txf - float32(tx)
	dy := tyf - float32(ty)

	var sx, sy float32
	if dx > dy {
		// lower-right triangle: (tx,ty), (tx+1,ty), (tx+1,ty+1)
		sx = l.Height(tx+1, ty) - l.Height(tx, ty)
		sy = l.Height(tx+1, ty+1) - l.Height(tx+1, ty)
	} else {
		// upper-left triangle: (tx,ty), (tx,ty+1), (tx+1,ty+1)
		sx = l.Height(tx+1, ty+1) - l.Height(tx, ty+1)
		sy = l.Height(tx, ty+1) - l.Height(tx, ty)
	}
	return l.Height(tx, ty) + dx*sx + dy*sy, true
}

// FileSize returns the serialized size of the liquid payload in bytes.
func (l *WmoLiquid) FileSize() uint32 {
	size := uint32(2*4 + 3*4 + 4)
	if l.IsFlat() {
		return size + 4
	}
	return size + 4*uint32(len(l.heights)) + uint32(len(l.flags))
}

// WriteTo writes the liquid payload without its chunk header.
func (l *WmoLiquid) WriteTo(w io.Writer) (int64, error) {
	bw := &writer{w: w}
	bw.put(l.tilesX)
	bw.put(l.tilesY)
	bw.put(l.corner)
	bw.put(l.liquidType)
	if l.IsFlat() {
		bw.put(l.heights[0])
	} else {
		bw.put(l.heights)
		bw.put(l.flags)
	}
	return bw.n, bw.err
}

// readLiquid reads a liquid payload of the given size.
func readLiquid(r io.Reader, size uint32) (*WmoLiquid, error) {
	l := &WmoLiquid{}
	if err := read(r, &l.tilesX, "liquid tiles"); err != nil {
		return nil, err
	}
	if err := read(r, &l.tilesY, "liquid tiles"); err != nil {
		return nil, err
	}
	if l.tilesX > 1<<12 || l.tilesY > 1<<12 {
		return nil, fmt.Errorf("%w: %dx%d tiles", ErrBadLiquid, l.tilesX, l.tilesY)
	}
	if err := read(r, &l.corner, "liquid corner"); err != nil {
		return nil, err
	}
	if err := read(r, &l.liquidType, "liquid type"); err != nil {
		return nil, err
	}

	if l.tilesX == 0 || l.tilesY == 0 {
		l.tilesX, l.tilesY = 0, 0
		l.heights = make([]float32, 1)
	} else {
		l.heights = make([]float32, (l.tilesX+1)*(l.tilesY+1))
		l.flags = make([]uint8, l.tilesX*l.tilesY)
	}
	if err := read(r, l.heights, "liquid heights"); err != nil {
		return nil, err
	}
	if l.flags != nil {
		if err := read(r, l.flags, "liquid flags"); err != nil {
			return nil, err
		}
	}

	if l.FileSize() != size {
		return nil, fmt.Errorf("%w: chunk size %d, payload %d", ErrBadLiquid, size, l.FileSize())
	}
	return l, nil
}
