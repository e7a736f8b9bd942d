// Package blendshape defines the MediaPipe face blendshape vocabulary and converts
// per-frame detector scores into the fixed-order vector used by the retargeting engine.
package blendshape

import "sort"

// Canonical blendshape indices following the MediaPipe Face Landmarker output order.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	Neutral             = 0
	BrowDownLeft        = 1
	BrowDownRight       = 2
	BrowInnerUp         = 3
	BrowOuterUpLeft     = 4
	BrowOuterUpRight    = 5
	CheekPuff           = 6
	CheekSquintLeft     = 7
	CheekSquintRight    = 8
	EyeBlinkLeft        = 9
	EyeBlinkRight       = 10
	EyeLookDownLeft     = 11
	EyeLookDownRight    = 12
	EyeLookInLeft       = 13
	EyeLookInRight      = 14
	EyeLookOutLeft      = 15
	EyeLookOutRight     = 16
	EyeLookUpLeft       = 17
	EyeLookUpRight      = 18
	EyeSquintLeft       = 19
	EyeSquintRight      = 20
	EyeWideLeft         = 21
	EyeWideRight        = 22
	JawForward          = 23
	JawLeft             = 24
	JawOpen             = 25
	JawRight            = 26
	MouthClose          = 27
	MouthDimpleLeft     = 28
	MouthDimpleRight    = 29
	MouthFrownLeft      = 30
	MouthFrownRight     = 31
	MouthFunnel         = 32
	MouthLeft           = 33
	MouthLowerDownLeft  = 34
	MouthLowerDownRight = 35
	MouthPressLeft      = 36
	MouthPressRight     = 37
	MouthPucker         = 38
	MouthRight          = 39
	MouthRollLower      = 40
	MouthRollUpper      = 41
	MouthShrugLower     = 42
	MouthShrugUpper     = 43
	MouthSmileLeft      = 44
	MouthSmileRight     = 45
	MouthStretchLeft    = 46
	MouthStretchRight   = 47
	MouthUpperUpLeft    = 48
	MouthUpperUpRight   = 49
	NoseSneerLeft       = 50
	NoseSneerRight      = 51
	NumBlendshapes      = 52
)

// Names holds the canonical blendshape names indexed by their vector position.
var Names = [NumBlendshapes]string{
	"_neutral", "browDownLeft", "browDownRight", "browInnerUp",
	"browOuterUpLeft", "browOuterUpRight", "cheekPuff", "cheekSquintLeft",
	"cheekSquintRight", "eyeBlinkLeft", "eyeBlinkRight", "eyeLookDownLeft",
	"eyeLookDownRight", "eyeLookInLeft", "eyeLookInRight", "eyeLookOutLeft",
	"eyeLookOutRight", "eyeLookUpLeft", "eyeLookUpRight", "eyeSquintLeft",
	"eyeSquintRight", "eyeWideLeft", "eyeWideRight", "jawForward",
	"jawLeft", "jawOpen", "jawRight", "mouthClose", "mouthDimpleLeft",
	"mouthDimpleRight", "mouthFrownLeft", "mouthFrownRight", "mouthFunnel",
	"mouthLeft", "mouthLowerDownLeft", "mouthLowerDownRight", "mouthPressLeft",
	"mouthPressRight", "mouthPucker", "mouthRight", "mouthRollLower",
	"mouthRollUpper", "mouthShrugLower", "mouthShrugUpper", "mouthSmileLeft",
	"mouthSmileRight", "mouthStretchLeft", "mouthStretchRight", "mouthUpperUpLeft",
	"mouthUpperUpRight", "noseSneerLeft", "noseSneerRight",
}

var nameIndex = func() map[string]int {
	m := make(map[string]int, NumBlendshapes)
	for i, name := range Names {
		m[name] = i
	}
	return m
}()

// Index returns the canonical vector index for name.
func Index(name string) (int, bool) {
	i, ok := nameIndex[name]
	return i, ok
}

// Category is a single named score reported by the face tracker.
type Category struct {
	Name  string  `json:"name" msgpack:"name"`
	Score float64 `json:"score" msgpack:"score"`
}

// Frame is the unordered set of blendshape scores reported for one video frame.
type Frame []Category

// Vector is the fixed-order blendshape intensity vector.
type Vector [NumBlendshapes]float64

// Score returns the score reported for name. When a name appears more than once
// the last entry wins.
func (f Frame) Score(name string) (float64, bool) {
	score, found := 0.0, false
	for _, c := range f {
		if c.Name == name {
			score, found = c.Score, true
		}
	}
	return score, found
}

// Active returns the categories scoring above threshold, highest first.
func (f Frame) Active(threshold float64) []Category {
	active := make([]Category, 0, len(f))
	for _, c := range f {
		if c.Score > threshold {
			active = append(active, c)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Score > active[j].Score
	})
	return active
}

// Vectorize converts a frame into the canonical vector. Unknown names are ignored
// and canonical names missing from the frame stay at zero.
func Vectorize(f Frame) Vector {
	var v Vector
	for _, c := range f {
		if i, ok := nameIndex[c.Name]; ok {
			v[i] = c.Score
		}
	}
	return v
}

// FromVector builds a frame holding every canonical entry of v, including zeros.
func FromVector(v Vector) Frame {
	f := make(Frame, NumBlendshapes)
	for i, name := range Names {
		f[i] = Category{Name: name, Score: v[i]}
	}
	return f
}
