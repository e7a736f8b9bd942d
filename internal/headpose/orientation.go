package headpose

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Orientation maps the FLAME mesh frame into the viewer frame and folds in the
// estimated head pose.
type Orientation struct {
	// BaseYawDeg is a fixed rotation about Z.
	BaseYawDeg float64
	// BaseTiltDeg is a fixed rotation about X.
	BaseTiltDeg float64
	// YawSign flips estimated yaw between camera and model conventions.
	YawSign float64
}

// DefaultOrientation turns the model upright and tilts it toward the camera.
func DefaultOrientation() Orientation {
	return Orientation{BaseYawDeg: 180, BaseTiltDeg: -35, YawSign: -1}
}

// RotZ returns the rotation by theta radians about Z.
func RotZ(theta float64) *r3.Mat {
	c, s := math.Cos(theta), math.Sin(theta)
	return r3.NewMat([]float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
}

// RotX returns the rotation by theta radians about X.
func RotX(theta float64) *r3.Mat {
	c, s := math.Cos(theta), math.Sin(theta)
	return r3.NewMat([]float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	})
}

// RotY returns the rotation by theta radians about Y.
func RotY(theta float64) *r3.Mat {
	c, s := math.Cos(theta), math.Sin(theta)
	return r3.NewMat([]float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Matrix returns M such that a row-vector vertex v maps to v·M:
// M = Rz(base)ᵀ · Rx(tilt)ᵀ · Ry(sign·yaw)ᵀ · Rx(pitch)ᵀ.
func (o Orientation) Matrix(p Pose) *r3.Mat {
	rz := RotZ(radians(o.BaseYawDeg))
	rx := RotX(radians(o.BaseTiltDeg))
	ryaw := RotY(o.YawSign * p.Yaw)
	rpitch := RotX(p.Pitch)

	base := r3.NewMat(nil)
	base.Mul(rz.T(), rx.T())
	head := r3.NewMat(nil)
	head.Mul(ryaw.T(), rpitch.T())

	m := r3.NewMat(nil)
	m.Mul(base, head)
	return m
}

// Apply rotates vertices in place by Matrix(p) and subtracts their centroid.
func (o Orientation) Apply(vertices []r3.Vec, p Pose) {
	if len(vertices) == 0 {
		return
	}
	m := o.Matrix(p)

	xs := make([]float64, len(vertices))
	ys := make([]float64, len(vertices))
	zs := make([]float64, len(vertices))
	for i, v := range vertices {
		// v·M == Mᵀ·v
		r := m.MulVecTrans(v)
		vertices[i] = r
		xs[i], ys[i], zs[i] = r.X, r.Y, r.Z
	}

	n := float64(len(vertices))
	mean := r3.Vec{X: floats.Sum(xs) / n, Y: floats.Sum(ys) / n, Z: floats.Sum(zs) / n}
	for i := range vertices {
		vertices[i] = r3.Sub(vertices[i], mean)
	}
}
