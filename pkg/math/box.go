package math

// AABox is an axis-aligned bounding box. Lo <= Hi componentwise.
// The box with Lo == Hi == origin is the "no bounds" sentinel.
type AABox struct {
	Lo Vec3
	Hi Vec3
}

// NewAABox creates a box from two corners, swapping components so Lo <= Hi.
func NewAABox(a, b Vec3) AABox {
	return AABox{Lo: a.Min(b), Hi: a.Max(b)}
}

// EmptyAABox returns an inverted box that any Merge call replaces.
func EmptyAABox() AABox {
	return AABox{
		Lo: Vec3{Inf(), Inf(), Inf()},
		Hi: Vec3{NegInf(), NegInf(), NegInf()},
	}
}

// IsZero reports whether the box is the zero sentinel.
func (b AABox) IsZero() bool {
	return b.Lo == Vec3{} && b.Hi == Vec3{}
}

// IsEmpty reports whether the box encloses nothing (Lo > Hi on some axis).
func (b AABox) IsEmpty() bool {
	return b.Lo.X > b.Hi.X || b.Lo.Y > b.Hi.Y || b.Lo.Z > b.Hi.Z
}

// Contains reports whether p lies inside the box, boundary included.
func (b AABox) Contains(p Vec3) bool {
	return p.X >= b.Lo.X && p.X <= b.Hi.X &&
		p.Y >= b.Lo.Y && p.Y <= b.Hi.Y &&
		p.Z >= b.Lo.Z && p.Z <= b.Hi.Z
}

// Merge returns the box grown to include p.
func (b AABox) Merge(p Vec3) AABox {
	return AABox{Lo: b.Lo.Min(p), Hi: b.Hi.Max(p)}
}

// Union returns the smallest box enclosing both boxes.
func (b AABox) Union(other AABox) AABox {
	return AABox{Lo: b.Lo.Min(other.Lo), Hi: b.Hi.Max(other.Hi)}
}

// Corner returns corner i in [0, 8). Bit 0 selects X, bit 1 Y, bit 2 Z.
func (b AABox) Corner(i int) Vec3 {
	c := b.Lo
	if i&1 != 0 {
		c.X = b.Hi.X
	}
	if i&2 != 0 {
		c.Y = b.Hi.Y
	}
	if i&4 != 0 {
		c.Z = b.Hi.Z
	}
	return c
}

// Extent returns Hi - Lo.
func (b AABox) Extent() Vec3 {
	return b.Hi.Sub(b.Lo)
}

// Center returns the midpoint of the box.
func (b AABox) Center() Vec3 {
	return b.Lo.Add(b.Hi).Scale(0.5)
}

// Translate returns the box moved by offset.
func (b AABox) Translate(offset Vec3) AABox {
	return AABox{Lo: b.Lo.Add(offset), Hi: b.Hi.Add(offset)}
}

// Scale returns the box with both corners multiplied by s.
func (b AABox) Scale(s float32) AABox {
	return NewAABox(b.Lo.Scale(s), b.Hi.Scale(s))
}

// Transform returns the world box enclosing the 8 corners of b after
// scaling, rotating and translating them.
func (b AABox) Transform(scale float32, rot Mat3, pos Vec3) AABox {
	out := EmptyAABox()
	for i := 0; i < 8; i++ {
		out = out.Merge(rot.MulVec3(b.Corner(i).Scale(scale)))
	}
	return out.Translate(pos)
}
