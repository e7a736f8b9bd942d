// Package app drives the retargeting pipeline frame by frame.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/abhinaya/internal/blendshape"
	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/flame"
	"github.com/ayusman/abhinaya/internal/headpose"
	"github.com/ayusman/abhinaya/internal/render"
	"github.com/ayusman/abhinaya/internal/retarget"
	"github.com/ayusman/abhinaya/internal/store"
)

// Diagnostics thresholds for the periodic stats line.
const (
	ActiveThreshold   = 0.1
	ActiveLimit       = 5
	DefaultStatsEvery = 30
)

// Config holds the collaborators of a Driver.
type Config struct {
	Engine      *retarget.Engine
	Orientation headpose.Orientation
	Indices     headpose.Indices

	// PoseSmoothing is the head-pose EMA factor; 1 disables smoothing.
	PoseSmoothing float64

	// ExpressionSmoothing is the expression EMA factor applied between
	// retargeting and deformation; 1 disables smoothing.
	ExpressionSmoothing float64

	// StatsEvery logs a diagnostic line every N processed frames; 0 disables it.
	StatsEvery int

	Visualizer render.Visualizer
	Recorder   *Recorder
	MappingDir string
}

// KeyReader reports the last key pressed in a window, or -1.
type KeyReader interface {
	LastKey() int
}

// RunOptions configures a live run.
type RunOptions struct {
	Preview *render.Preview
	Keys    KeyReader
	// OnFrame sees every camera frame after detection. It must not keep the Mat.
	OnFrame func(frame *gocv.Mat)
}

// QuitKey stops a live run when pressed in any window.
const QuitKey = 'q'

// Driver owns the mesh buffers and runs the per-frame pipeline on a single goroutine.
type Driver struct {
	config    Config
	mesh      *flame.Mesh
	posed     *flame.Mesh
	smoother  *headpose.Smoother
	expr      *retarget.ExpressionSmoother

	mu     sync.RWMutex
	stats  Stats
	faces  []detector.Face
	paused bool
}

// NewDriver creates a driver for the given engine. The mesh starts at the mean shape.
func NewDriver(config Config) *Driver {
	if config.Visualizer == nil {
		config.Visualizer = render.Discard{}
	}
	if config.PoseSmoothing <= 0 {
		config.PoseSmoothing = 1
	}
	if config.ExpressionSmoothing <= 0 {
		config.ExpressionSmoothing = 1
	}
	if config.Indices == (headpose.Indices{}) {
		config.Indices = headpose.DefaultIndices
	}

	model := config.Engine.Model()
	d := &Driver{
		config:   config,
		mesh:     model.NewMesh(),
		posed:    model.NewMesh(),
		smoother: headpose.NewSmoother(config.PoseSmoothing),
		expr:     retarget.NewExpressionSmoother(config.ExpressionSmoothing),
	}
	d.stats.Mode = config.Engine.Mode().String()
	d.stats.MappingDir = config.MappingDir
	return d
}

// SetPaused pauses or resumes frame processing. Paused frames are read and dropped.
func (d *Driver) SetPaused(paused bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = paused
	d.stats.Paused = paused
}

// Paused reports whether processing is paused.
func (d *Driver) Paused() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.paused
}

// Stats returns a snapshot of the counters.
func (d *Driver) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

// Faces returns the faces reported for the last detected frame.
func (d *Driver) Faces() []detector.Face {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.faces
}

// Mesh returns the current deformed mesh before posing. It is only safe to read
// from the driver goroutine.
func (d *Driver) Mesh() *flame.Mesh {
	return d.mesh
}

// Posed returns the last posed vertices. It is only safe to read from the driver
// goroutine.
func (d *Driver) Posed() []r3.Vec {
	return d.posed.Vertices
}

// Run reads frames from src until it is exhausted, the context is cancelled or
// the quit key is pressed. Cancellation is checked between frames.
func (d *Driver) Run(ctx context.Context, src capture.Source, det detector.FaceDetector, opts RunOptions) error {
	if !src.IsOpen() {
		if err := src.Open(); err != nil {
			return fmt.Errorf("open source: %w", err)
		}
	}
	defer src.Close()

	fps := float64(src.FPS())
	if fps <= 0 {
		fps = capture.DefaultFPS
	}

	for seq := 0; ; seq++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := src.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		if d.Paused() {
			frame.Close()
			continue
		}

		faces, err := det.Detect(frame)
		if opts.OnFrame != nil {
			opts.OnFrame(frame)
		}
		key := -1
		if opts.Preview != nil {
			key = opts.Preview.Show(frame)
		}
		frame.Close()

		if err != nil {
			log.Printf("Error detecting face: %v", err)
			d.mu.Lock()
			d.stats.DetectErrors++
			d.mu.Unlock()
		} else {
			d.ProcessFaces(seq, capture.TimestampMs(seq, fps), faces)
		}

		if opts.Keys != nil && key < 0 {
			key = opts.Keys.LastKey()
		}
		if key == QuitKey {
			return nil
		}
	}
}

// ProcessFaces handles one detector result. Frames without a face are skipped.
func (d *Driver) ProcessFaces(seq int, timestampMs int64, faces []detector.Face) {
	d.mu.Lock()
	d.faces = faces
	d.mu.Unlock()

	if len(faces) == 0 {
		d.mu.Lock()
		d.stats.Skipped++
		d.mu.Unlock()
		return
	}

	face := faces[0]
	if err := d.Step(seq, timestampMs, face.Blendshapes, face.Vectors()); err != nil {
		log.Printf("Frame %d dropped: %v", seq, err)
	}
}

// Step runs one frame through the engine: retarget, deform, estimate and apply
// head pose, then publish. On a deformation error the mesh keeps its previous state.
func (d *Driver) Step(seq int, timestampMs int64, frame blendshape.Frame, landmarks []r3.Vec) error {
	pose, err := headpose.Estimate(landmarks, d.config.Indices)
	if err != nil {
		d.mu.Lock()
		d.stats.Skipped++
		d.mu.Unlock()
		return fmt.Errorf("estimate head pose: %w", err)
	}

	res := d.config.Engine.Retarget(frame)
	d.expr.Apply(res.Coefficients())
	if err := d.config.Engine.Deform(res, d.mesh); err != nil {
		d.mu.Lock()
		d.stats.DeformationErrors++
		d.mu.Unlock()
		return fmt.Errorf("deform mesh: %w", err)
	}

	pose = d.smoother.Update(pose)
	copy(d.posed.Vertices, d.mesh.Vertices)
	d.config.Orientation.Apply(d.posed.Vertices, pose)

	if err := d.config.Visualizer.Update(d.posed.Vertices); err != nil {
		log.Printf("Error updating visualizer: %v", err)
	}

	if d.config.Recorder != nil {
		if err := d.config.Recorder.Record(seq, timestampMs, frame, landmarks, pose, res.Coefficients()); err != nil {
			log.Printf("Error recording frame %d: %v", seq, err)
		}
	}

	d.mu.Lock()
	d.stats.Processed++
	d.stats.LastSeq = seq
	d.stats.YawDeg, d.stats.PitchDeg = pose.Degrees()
	processed := d.stats.Processed
	d.mu.Unlock()

	if d.config.StatsEvery > 0 && processed%d.config.StatsEvery == 0 {
		logFrameStats(seq, res, pose)
	}
	return nil
}

// Replay re-drives recorded frames through the engine without a detector.
// progress, if set, is called after every frame.
func (d *Driver) Replay(ctx context.Context, frames []*store.FrameRecord, progress func(done int)) error {
	for i, f := range frames {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := d.Step(f.Seq, f.TimestampMs, f.Blendshapes, f.LandmarkSlice()); err != nil {
			log.Printf("Frame %d dropped: %v", f.Seq, err)
		}
		if progress != nil {
			progress(i + 1)
		}
	}
	return nil
}

func logFrameStats(seq int, res retarget.Result, pose headpose.Pose) {
	expr := res.Coefficients()
	lo, hi := retarget.Range(expr)
	yaw, pitch := pose.Degrees()

	log.Printf("Frame %d: expression range [%.3f, %.3f]", seq, lo, hi)
	if p, ok := res.(*retarget.Pretrained); ok {
		log.Printf("  jaw pose %.3f, eye pose %.3f", p.JawPose, p.EyePose)
	}
	log.Printf("  head yaw %.1f°, pitch %.1f°", yaw, pitch)
	log.Printf("  active coefficients %v", retarget.ActiveIndices(expr, ActiveThreshold, ActiveLimit))
}
