package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/blendshape"
)

// MockDetector is a test implementation of the FaceDetector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	faces []Face
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.faces, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// baseLandmarks returns a full landmark set with the eyes level at y=0.4 and the
// nose tip at offset from the eye midpoint.
func baseLandmarks(noseOffset Point3D) []Point3D {
	lm := make([]Point3D, NumFaceLandmarks)
	for i := range lm {
		lm[i] = Point3D{X: 0.5, Y: 0.5, Z: 0}
	}
	lm[LeftEyeOuter] = Point3D{X: 0.4, Y: 0.4, Z: 0}
	lm[RightEyeOuter] = Point3D{X: 0.6, Y: 0.4, Z: 0}
	lm[NoseTip] = Point3D{
		X: 0.5 + noseOffset.X,
		Y: 0.4 + noseOffset.Y,
		Z: noseOffset.Z,
	}
	return lm
}

// NeutralFace returns a preset face looking straight at the camera with a
// neutral expression.
func NeutralFace() Face {
	return Face{
		Landmarks: baseLandmarks(Point3D{X: 0, Y: 0, Z: 0.1}),
		Blendshapes: blendshape.Frame{
			{Name: "_neutral", Score: 0.98},
			{Name: "eyeBlinkLeft", Score: 0.02},
			{Name: "eyeBlinkRight", Score: 0.03},
		},
	}
}

// JawOpenFace returns a preset face looking straight ahead with the mouth open.
func JawOpenFace() Face {
	return Face{
		Landmarks: baseLandmarks(Point3D{X: 0, Y: 0, Z: 0.1}),
		Blendshapes: blendshape.Frame{
			{Name: "_neutral", Score: 0.05},
			{Name: "jawOpen", Score: 0.8},
			{Name: "mouthFunnel", Score: 0.2},
			{Name: "mouthLowerDownLeft", Score: 0.4},
			{Name: "mouthLowerDownRight", Score: 0.4},
		},
	}
}

// TurnedFace returns a preset smiling face turned 45 degrees to the side.
func TurnedFace() Face {
	return Face{
		Landmarks: baseLandmarks(Point3D{X: 0.1, Y: 0, Z: 0.1}),
		Blendshapes: blendshape.Frame{
			{Name: "mouthSmileLeft", Score: 0.7},
			{Name: "mouthSmileRight", Score: 0.6},
			{Name: "cheekSquintLeft", Score: 0.3},
		},
	}
}
