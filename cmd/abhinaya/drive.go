package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/render"
	"github.com/ayusman/abhinaya/internal/server"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/ayusman/abhinaya/internal/tray"
)

// previewTitle is the window showing the raw camera feed.
const previewTitle = "Avatar Driver Pipeline"

type driveOptions struct {
	video         string
	camera        int
	window        bool
	preview       bool
	tray          bool
	record        bool
	addr          string
	landmarkModel string
	sidecar       string
}

var driveOpts driveOptions

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Drive the face mesh live from a camera or video file",
	Long: `Reads frames from a camera or video file, tracks the face with the MediaPipe
face landmarker, retargets its blendshapes onto the FLAME expression space and
shows the posed mesh. Press q in any window or Ctrl-C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDrive(cmd.Context(), driveOpts)
	},
}

func init() {
	f := driveCmd.Flags()
	f.StringVar(&driveOpts.video, "video", "", "video file to drive from instead of the camera")
	f.IntVar(&driveOpts.camera, "camera", 0, "camera device index")
	f.BoolVar(&driveOpts.window, "window", true, "show the wireframe mesh window")
	f.BoolVar(&driveOpts.preview, "preview", true, "show the camera feed window")
	f.BoolVar(&driveOpts.tray, "tray", false, "show a system tray menu")
	f.BoolVar(&driveOpts.record, "record", false, "record the session to the database")
	f.StringVar(&driveOpts.addr, "addr", "", "serve status and the live mesh on this address (e.g. :8080)")
	f.StringVar(&driveOpts.landmarkModel, "landmarker", detector.DefaultConfig().ModelPath, "MediaPipe face landmarker task file")
	f.StringVar(&driveOpts.sidecar, "sidecar", "", "path to the face landmarker service script")
	rootCmd.AddCommand(driveCmd)
}

// sourceLabel names the frame source for session records.
func sourceLabel(video string, camera int) string {
	if video != "" {
		return "video:" + video
	}
	return "camera:" + strconv.Itoa(camera)
}

func runDrive(ctx context.Context, opts driveOptions) error {
	tuning, err := loadTuning()
	if err != nil {
		return err
	}

	needStore := opts.record || opts.addr != ""
	var s *store.Store
	if needStore {
		if s, err = openStore(); err != nil {
			return err
		}
	}

	p, err := buildPipeline(tuning, resolveModelPath(s), mappingsDir)
	if err != nil {
		return err
	}
	if s != nil {
		if err := s.Settings().Set(store.SettingModelPath, p.modelPath); err != nil {
			log.Printf("Failed to remember model path: %v", err)
		}
	}

	detCfg := detector.DefaultConfig()
	detCfg.ModelPath = opts.landmarkModel
	detCfg.ScriptPath = opts.sidecar
	det, err := detector.NewMediaPipeDetector(detCfg)
	if err != nil {
		return fmt.Errorf("start face tracker: %w", err)
	}
	defer det.Close()

	var src capture.Source
	if opts.video != "" {
		src = capture.NewVideoFile(opts.video)
	} else {
		src = capture.NewCamera(opts.camera)
	}

	var (
		visualizers render.Multi
		runOpts     app.RunOptions
	)
	if opts.window {
		wf := render.NewWireframe(render.DefaultWireframeConfig(), p.model.Faces, p.model.NumVertices(), false)
		visualizers = append(visualizers, wf)
		runOpts.Keys = wf
	}
	if opts.preview {
		pv := render.NewPreview(previewTitle)
		defer pv.Close()
		runOpts.Preview = pv
	}

	var (
		hub    *server.MeshHub
		stream *server.FrameStream
	)
	if opts.addr != "" {
		hub = server.NewMeshHub()
		stream = server.NewFrameStream()
		visualizers = append(visualizers, hub)
		runOpts.OnFrame = func(frame *gocv.Mat) {
			if err := stream.Publish(frame); err != nil {
				log.Printf("Failed to publish frame: %v", err)
			}
		}
	}
	defer visualizers.Close()

	var rec *app.Recorder
	if opts.record {
		sess := &store.Session{
			Mode:       p.engine.Mode().String(),
			ModelPath:  p.modelPath,
			MappingDir: p.outcome.Dir,
			Source:     sourceLabel(opts.video, opts.camera),
		}
		rec, err = app.NewRecorder(s, sess, indices(tuning))
		if err != nil {
			return err
		}
		log.Printf("Recording session %s", sess.ID)
	}

	driver := app.NewDriver(app.Config{
		Engine:              p.engine,
		Orientation:         orientation(tuning),
		Indices:             indices(tuning),
		PoseSmoothing:       tuning.GetPoseSmoothing(),
		ExpressionSmoothing: tuning.GetExpressionSmoothing(),
		StatsEvery:          tuning.GetStatsEvery(),
		Visualizer:          visualizers,
		Recorder:            rec,
		MappingDir:          p.outcome.Dir,
	})

	if opts.addr != "" {
		srv := server.New(server.Config{
			StaticDir: findWebDir(),
			Store:     s,
			Pipeline:  driver,
			Mesh:      hub,
			Stream:    stream,
		})
		go func() {
			log.Printf("Starting server on %s", opts.addr)
			if err := srv.ListenAndServe(opts.addr); err != nil {
				log.Printf("Server failed: %v", err)
			}
		}()
	}

	log.Printf("Driving from %s", sourceLabel(opts.video, opts.camera))
	if opts.tray {
		err = runWithTray(ctx, driver, src, det, runOpts, opts.addr)
	} else {
		err = driver.Run(ctx, src, det, runOpts)
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if rec != nil {
		if ferr := rec.Finish(); ferr != nil {
			log.Printf("Failed to finish session: %v", ferr)
		} else {
			log.Printf("Recorded %d frames to session %s", rec.Session().Frames, rec.Session().ID)
		}
	}

	stats := driver.Stats()
	log.Printf("Processed %d frames, skipped %d, %d deformation errors, %d tracker errors",
		stats.Processed, stats.Skipped, stats.DeformationErrors, stats.DetectErrors)
	return err
}

// runWithTray runs the driver in the background while the tray owns the main thread.
func runWithTray(ctx context.Context, driver *app.Driver, src capture.Source, det detector.FaceDetector, runOpts app.RunOptions, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tr := tray.New()
	tr.SetMode(driver.Stats().Mode)
	tr.OnToggle(func(running bool) {
		driver.SetPaused(!running)
	})
	tr.OnOpenStatus(func() {
		if addr == "" {
			log.Println("Status server not running; start with --addr")
			return
		}
		log.Printf("Status: http://localhost%s/api/status", addr)
	})
	tr.OnQuit(cancel)

	done := make(chan error, 1)
	go func() {
		done <- driver.Run(ctx, src, det, runOpts)
		tr.Quit()
	}()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tr.SetFrames(driver.Stats().Processed)
			}
		}
	}()

	tr.Run()
	cancel()
	return <-done
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.abhinaya/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, dataDirName, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
