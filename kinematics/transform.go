package kinematics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// Transform is a rigid transform between two named frames, stored as a
// 4x4 homogeneous matrix. The zero value is the all-zero matrix, which is
// not a valid transform; use NewTransform for identity.
type Transform struct {
	mat mgl64.Mat4
}

// NewTransform returns an identity transform.
func NewTransform() Transform {
	return Transform{mgl64.Ident4()}
}

// NewTransformFromMatrix wraps an existing homogeneous matrix.
func NewTransformFromMatrix(m mgl64.Mat4) Transform {
	return Transform{m}
}

// NewTransformFromTranslation returns a pure translation transform.
func NewTransformFromTranslation(x, y, z float64) Transform {
	return Transform{mgl64.Translate3D(x, y, z)}
}

// Matrix returns the underlying 4x4 matrix.
func (t Transform) Matrix() mgl64.Mat4 {
	return t.mat
}

// Rotation returns the top-left 3x3 rotation block.
func (t Transform) Rotation() mgl64.Mat3 {
	return t.mat.Mat3()
}

// Translation returns the xyz translation column.
func (t Transform) Translation() mgl64.Vec3 {
	return t.mat.Col(3).Vec3()
}

// Mul composes two transforms, applying o first.
func (t Transform) Mul(o Transform) Transform {
	return Transform{t.mat.Mul4(o.mat)}
}

// Inverse returns the inverse transform. The matrix must be rigid
// (orthonormal rotation block), which every transform built from a
// kinematic model is.
func (t Transform) Inverse() Transform {
	rt := t.mat.Mat3().Transpose()
	p := t.Translation()
	ip := rt.Mul3x1(p).Mul(-1)
	inv := rt.Mat4()
	inv.SetCol(3, mgl64.Vec4{ip.X(), ip.Y(), ip.Z(), 1})
	return Transform{inv}
}

// RotateVector applies only the rotation block to v. Twists rotate at the
// origin, so frame changes of velocity commands go through here rather
// than through the full transform.
func (t Transform) RotateVector(v r3.Vector) r3.Vector {
	out := t.mat.Mat3().Mul3x1(mgl64.Vec3{v.X, v.Y, v.Z})
	return r3.Vector{X: out.X(), Y: out.Y(), Z: out.Z()}
}

// IsZero reports whether the transform is the all-zero matrix, i.e. was
// never populated.
func (t Transform) IsZero() bool {
	for _, v := range t.mat {
		if v != 0 {
			return false
		}
	}
	return true
}
