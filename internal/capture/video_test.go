package capture

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

func TestVideoFile_Missing(t *testing.T) {
	src := NewVideoFile(filepath.Join(t.TempDir(), "missing.mov"))

	if err := src.Open(); err == nil {
		src.Close()
		t.Fatal("expected error opening missing video")
	}
	if src.IsOpen() {
		t.Error("source should not be open after failed Open()")
	}

	_, err := src.ReadFrame()
	if !errors.Is(err, ErrNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrNotOpen", err)
	}
}

func TestMockSource_Playback(t *testing.T) {
	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	src := NewMockSource([]*gocv.Mat{&frame1, &frame2}, false)

	if _, err := src.ReadFrame(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("ReadFrame() before Open() error = %v, want ErrNotOpen", err)
	}

	if err := src.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	for i := 0; i < 2; i++ {
		f, err := src.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		f.Close()
	}

	if _, err := src.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after all frames consumed, got %v", err)
	}

	src.Reset()
	f, err := src.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() after Reset() error = %v", err)
	}
	f.Close()
}

func TestMockSource_Loop(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	src := NewMockSource([]*gocv.Mat{&frame}, true)
	src.Open()
	defer src.Close()

	for i := 0; i < 5; i++ {
		f, err := src.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}
}

func TestMockSource_FPS(t *testing.T) {
	src := NewMockSource(nil, false)
	if src.FPS() != DefaultFPS {
		t.Errorf("FPS() = %d, want %d", src.FPS(), DefaultFPS)
	}
	src.SetFPS(12)
	if src.FPS() != 12 {
		t.Errorf("FPS() = %d, want 12", src.FPS())
	}
}
