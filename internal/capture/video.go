package capture

import (
	"fmt"
	"io"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// videoFile reads frames from a recorded clip.
type videoFile struct {
	path    string
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
}

// NewVideoFile creates a Source reading the video at path. FPS reports the
// container frame rate once opened.
func NewVideoFile(path string) Source {
	return &videoFile{path: path, fps: DefaultFPS}
}

func (v *videoFile) Open() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.running {
		return nil
	}

	capture, err := gocv.VideoCaptureFile(v.path)
	if err != nil {
		return fmt.Errorf("open video %s: %w", v.path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open video %s: unreadable", v.path)
	}

	if fps := capture.Get(gocv.VideoCaptureFPS); fps > 0 && !math.IsNaN(fps) {
		v.fps = int(math.Round(fps))
	}

	v.capture = capture
	v.running = true
	return nil
}

func (v *videoFile) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		v.running = false
		return nil
	}

	err := v.capture.Close()
	v.capture = nil
	v.running = false
	return err
}

// ReadFrame returns io.EOF at the end of the clip.
func (v *videoFile) ReadFrame() (*gocv.Mat, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		return nil, ErrNotOpen
	}

	mat := gocv.NewMat()
	if ok := v.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, io.EOF
	}
	return &mat, nil
}

// SetFPS is ignored: playback follows the file's own rate.
func (v *videoFile) SetFPS(fps int) {}

func (v *videoFile) FPS() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fps
}

func (v *videoFile) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.running
}
