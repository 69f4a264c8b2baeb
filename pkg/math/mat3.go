package math

import "github.com/go-gl/mathgl/mgl32"

// Mat3 is a 3x3 rotation matrix in column-major order (mgl32 layout).
type Mat3 mgl32.Mat3

// Identity3 returns the identity rotation.
func Identity3() Mat3 {
	return Mat3(mgl32.Ident3())
}

// EulerZYX returns Rz(z) * Ry(y) * Rx(x). Angles are in radians.
func EulerZYX(z, y, x float32) Mat3 {
	m := mgl32.Rotate3DZ(z).Mul3(mgl32.Rotate3DY(y)).Mul3(mgl32.Rotate3DX(x))
	return Mat3(m)
}

// Mul returns m * other.
func (m Mat3) Mul(other Mat3) Mat3 {
	return Mat3(mgl32.Mat3(m).Mul3(mgl32.Mat3(other)))
}

// MulVec3 returns m * v.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return fromMgl(mgl32.Mat3(m).Mul3x1(v.mgl()))
}

// Transpose returns the transposed matrix.
func (m Mat3) Transpose() Mat3 {
	return Mat3(mgl32.Mat3(m).Transpose())
}

// Inverse returns the inverse matrix.
// A singular matrix yields the zero matrix.
func (m Mat3) Inverse() Mat3 {
	return Mat3(mgl32.Mat3(m).Inv())
}

// ApproxEqual reports whether every element differs by at most eps.
func (m Mat3) ApproxEqual(other Mat3, eps float32) bool {
	for i := range m {
		if abs32(m[i]-other[i]) > eps {
			return false
		}
	}
	return true
}
