// Package headpose estimates head yaw and pitch from three face landmarks and
// orients a FLAME mesh for display.
package headpose

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrTooFewLandmarks is returned when the landmark slice does not reach the
// configured indices.
var ErrTooFewLandmarks = errors.New("too few landmarks for head pose")

// degenerateEps is the per-component threshold below which the forward vector
// is treated as zero.
const degenerateEps = 1e-12

// Pose is a head orientation in radians.
type Pose struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// Degrees returns yaw and pitch in degrees.
func (p Pose) Degrees() (yaw, pitch float64) {
	return p.Yaw * 180 / math.Pi, p.Pitch * 180 / math.Pi
}

// Indices selects the landmarks used for estimation.
type Indices struct {
	Nose     int
	LeftEye  int
	RightEye int
}

// DefaultIndices are the MediaPipe face mesh nose tip and outer eye corners.
var DefaultIndices = Indices{Nose: 1, LeftEye: 33, RightEye: 263}

func (idx Indices) max() int {
	return max(idx.Nose, idx.LeftEye, idx.RightEye)
}

// Estimate computes yaw and pitch from the vector pointing from the eye midpoint
// to the nose tip. A degenerate vector yields the zero pose.
func Estimate(landmarks []r3.Vec, idx Indices) (Pose, error) {
	if idx.Nose < 0 || idx.LeftEye < 0 || idx.RightEye < 0 || len(landmarks) <= idx.max() {
		return Pose{}, ErrTooFewLandmarks
	}

	nose := landmarks[idx.Nose]
	mid := r3.Scale(0.5, r3.Add(landmarks[idx.LeftEye], landmarks[idx.RightEye]))
	forward := r3.Sub(nose, mid)

	if math.Abs(forward.X) < degenerateEps && math.Abs(forward.Y) < degenerateEps && math.Abs(forward.Z) < degenerateEps {
		return Pose{}, nil
	}

	return Pose{
		Yaw:   math.Atan2(forward.X, forward.Z),
		Pitch: math.Atan2(forward.Y, forward.Z),
	}, nil
}
