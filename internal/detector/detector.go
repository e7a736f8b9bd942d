package detector

import "gocv.io/x/gocv"

// FaceDetector defines the interface for face tracking implementations.
type FaceDetector interface {
	// Detect analyzes a video frame and returns tracked faces with landmarks
	// and blendshape scores. Returns an empty slice if no face is found.
	Detect(frame *gocv.Mat) ([]Face, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face tracking.
type Config struct {
	// MaxFaces is the maximum number of faces to track (default: 1).
	MaxFaces int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ModelPath is the MediaPipe face landmarker task file passed to the sidecar.
	ModelPath string

	// ScriptPath overrides the sidecar script lookup when set.
	ScriptPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxFaces:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		ModelPath:       "face_landmarker.task",
	}
}
