// Package detector provides face tracking interfaces and types for blendshape retargeting.
package detector

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/abhinaya/internal/blendshape"
)

// Face mesh landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	NoseTip          = 1
	LeftEyeOuter     = 33
	RightEyeOuter    = 263
	NumFaceLandmarks = 478
)

// Point3D represents a 3D point in normalized image space.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec converts the point for geometry code.
func (p Point3D) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// Face is one tracked face: its mesh landmarks and blendshape scores.
type Face struct {
	Landmarks   []Point3D        `json:"landmarks"`
	Blendshapes blendshape.Frame `json:"blendshapes"`
}

// Vectors returns the landmarks as r3 vectors.
func (f *Face) Vectors() []r3.Vec {
	out := make([]r3.Vec, len(f.Landmarks))
	for i, p := range f.Landmarks {
		out[i] = p.Vec()
	}
	return out
}

// InterocularDistance returns the distance between the outer eye corners, or 0
// when the face has too few landmarks.
func (f *Face) InterocularDistance() float64 {
	if len(f.Landmarks) <= RightEyeOuter {
		return 0
	}
	return distance3D(f.Landmarks[LeftEyeOuter], f.Landmarks[RightEyeOuter])
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
