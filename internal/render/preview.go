package render

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"
)

// Preview shows the raw camera feed with a frame rate overlay.
type Preview struct {
	window     *gocv.Window
	lastFrame  time.Time
	frameCount int
	fps        float64
}

// NewPreview opens a preview window.
func NewPreview(name string) *Preview {
	return &Preview{
		window:    gocv.NewWindow(name),
		lastFrame: time.Now(),
	}
}

// Show displays a frame and returns the key pressed, or -1.
func (p *Preview) Show(frame *gocv.Mat) int {
	p.frameCount++
	now := time.Now()

	elapsed := now.Sub(p.lastFrame)
	if elapsed >= time.Second {
		p.fps = float64(p.frameCount) / elapsed.Seconds()
		p.frameCount = 0
		p.lastFrame = now
	}

	gocv.PutText(frame, fmt.Sprintf("FPS: %.1f", p.fps), image.Pt(10, 30),
		gocv.FontHersheyPlain, 2, color.RGBA{G: 255, A: 255}, 2)

	p.window.IMShow(*frame)
	return p.window.WaitKey(1)
}

// FPS returns the measured display rate.
func (p *Preview) FPS() float64 {
	return p.fps
}

// Close closes the window.
func (p *Preview) Close() error {
	if p.window != nil {
		return p.window.Close()
	}
	return nil
}
