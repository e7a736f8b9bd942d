package render

import (
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Camera is a pinhole camera looking from Eye towards Target.
type Camera struct {
	Eye    r3.Vec
	Target r3.Vec
	Up     r3.Vec
	// FOV is the vertical field of view in degrees.
	FOV float64
}

// DefaultCamera sits 1.2 units in front of the origin looking at it with +Y up.
func DefaultCamera() Camera {
	return Camera{
		Eye: r3.Vec{Z: 1.2},
		Up:  r3.Vec{Y: 1},
		FOV: 30,
	}
}

// ExplorerCamera is pulled back slightly for viewing single components.
func ExplorerCamera() Camera {
	c := DefaultCamera()
	c.Eye = r3.Vec{Z: 1.5}
	return c
}

// Projector maps world points onto an image of fixed size.
type Projector struct {
	eye                r3.Vec
	right, up, forward r3.Vec
	focal              float64
	cx, cy             float64
}

// NewProjector builds a projector for an image of width by height pixels.
func NewProjector(c Camera, width, height int) Projector {
	forward := r3.Unit(r3.Sub(c.Target, c.Eye))
	right := r3.Unit(r3.Cross(forward, c.Up))
	up := r3.Cross(right, forward)
	fov := c.FOV
	if fov <= 0 {
		fov = 30
	}
	return Projector{
		eye:     c.Eye,
		right:   right,
		up:      up,
		forward: forward,
		focal:   float64(height) / 2 / math.Tan(fov*math.Pi/360),
		cx:      float64(width) / 2,
		cy:      float64(height) / 2,
	}
}

// Project returns the pixel for p and whether p lies in front of the camera.
func (p Projector) Project(v r3.Vec) (image.Point, bool) {
	rel := r3.Sub(v, p.eye)
	z := r3.Dot(rel, p.forward)
	if z <= 1e-6 {
		return image.Point{}, false
	}
	x := r3.Dot(rel, p.right)
	y := r3.Dot(rel, p.up)
	return image.Point{
		X: int(math.Round(p.cx + p.focal*x/z)),
		Y: int(math.Round(p.cy - p.focal*y/z)),
	}, true
}
