package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r3"
)

// WireframeConfig controls the wireframe window.
type WireframeConfig struct {
	Title  string
	Width  int
	Height int
	Camera Camera
	Color  color.RGBA
}

// DefaultWireframeConfig returns the settings used by the live driver.
func DefaultWireframeConfig() WireframeConfig {
	return WireframeConfig{
		Title:  "FLAME Avatar",
		Width:  640,
		Height: 640,
		Camera: DefaultCamera(),
		Color:  color.RGBA{R: 200, G: 200, B: 200, A: 255},
	}
}

// Wireframe draws mesh edges into an image and optionally shows it in a window.
type Wireframe struct {
	config      WireframeConfig
	edges       []Edge
	numVertices int
	projector   Projector
	canvas      gocv.Mat
	window      *gocv.Window
	points      []image.Point
	visible     []bool
	lastKey     int
}

// NewWireframe creates a wireframe renderer for a mesh with the given faces.
// When headless is false a window is opened and a zero placeholder mesh is shown
// until the first update arrives.
func NewWireframe(config WireframeConfig, faces [][3]int, numVertices int, headless bool) *Wireframe {
	w := &Wireframe{
		config:      config,
		edges:       Edges(faces),
		numVertices: numVertices,
		projector:   NewProjector(config.Camera, config.Width, config.Height),
		canvas:      gocv.NewMatWithSize(config.Height, config.Width, gocv.MatTypeCV8UC3),
		points:      make([]image.Point, numVertices),
		visible:     make([]bool, numVertices),
		lastKey:     -1,
	}
	if !headless {
		w.window = gocv.NewWindow(config.Title)
	}
	w.Update(make([]r3.Vec, numVertices))
	return w
}

// Update redraws the mesh.
func (w *Wireframe) Update(vertices []r3.Vec) error {
	if len(vertices) != w.numVertices {
		return fmt.Errorf("update wireframe: got %d vertices, want %d", len(vertices), w.numVertices)
	}

	w.Draw(vertices)
	if w.window != nil {
		w.window.IMShow(w.canvas)
		w.lastKey = w.window.WaitKey(1)
	}
	return nil
}

// Draw renders vertices into the canvas without touching the window.
func (w *Wireframe) Draw(vertices []r3.Vec) {
	w.canvas.SetTo(gocv.NewScalar(0, 0, 0, 0))
	for i, v := range vertices {
		w.points[i], w.visible[i] = w.projector.Project(v)
	}
	for _, e := range w.edges {
		if e.B >= len(vertices) || !w.visible[e.A] || !w.visible[e.B] {
			continue
		}
		gocv.Line(&w.canvas, w.points[e.A], w.points[e.B], w.config.Color, 1)
	}
}

// Canvas returns the last drawn image. The Mat is owned by the wireframe.
func (w *Wireframe) Canvas() *gocv.Mat {
	return &w.canvas
}

// LastKey returns the key pressed during the last update or -1.
func (w *Wireframe) LastKey() int {
	return w.lastKey
}

// WaitKey blocks for a key press in the window. A delay of 0 waits forever.
func (w *Wireframe) WaitKey(delayMs int) int {
	if w.window == nil {
		return -1
	}
	return w.window.WaitKey(delayMs)
}

// Close releases the window and canvas.
func (w *Wireframe) Close() error {
	var err error
	if w.window != nil {
		err = w.window.Close()
		w.window = nil
	}
	w.canvas.Close()
	return err
}
