package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/render"
	"github.com/ayusman/abhinaya/internal/report"
)

type replayOptions struct {
	plots  string
	coeffs int
	window bool
}

var replayOpts replayOptions

var replayCmd = &cobra.Command{
	Use:   "replay <session-id>",
	Short: "Re-drive the mesh from a recorded session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(cmd.Context(), args[0], replayOpts)
	},
}

func init() {
	f := replayCmd.Flags()
	f.StringVar(&replayOpts.plots, "plots", "", "write expression and head pose plots into this directory")
	f.IntVar(&replayOpts.coeffs, "coeffs", 6, "number of most active coefficients to plot")
	f.BoolVar(&replayOpts.window, "window", false, "show the wireframe mesh window")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(ctx context.Context, id string, opts replayOptions) error {
	tuning, err := loadTuning()
	if err != nil {
		return err
	}
	s, err := openStore()
	if err != nil {
		return err
	}

	sess, err := s.Sessions().GetByID(id)
	if err != nil {
		return fmt.Errorf("get session %s: %w", id, err)
	}
	frames, err := s.Frames().ListBySession(sess.ID)
	if err != nil {
		return fmt.Errorf("list frames: %w", err)
	}
	if len(frames) == 0 {
		return fmt.Errorf("session %s has no recorded frames", sess.ID)
	}

	model := modelPath
	if model == "" {
		model = sess.ModelPath
	}
	mapDir := mappingsDir
	if mapDir == "" {
		mapDir = sess.MappingDir
	}
	p, err := buildPipeline(tuning, model, mapDir)
	if err != nil {
		return err
	}
	if mode := p.engine.Mode().String(); mode != sess.Mode {
		log.Printf("Session was recorded in %s mode, replaying in %s mode", sess.Mode, mode)
	}

	var vis render.Visualizer = render.Discard{}
	if opts.window {
		vis = render.NewWireframe(render.DefaultWireframeConfig(), p.model.Faces, p.model.NumVertices(), false)
	}
	defer vis.Close()

	driver := app.NewDriver(app.Config{
		Engine:              p.engine,
		Orientation:         orientation(tuning),
		Indices:             indices(tuning),
		PoseSmoothing:       tuning.GetPoseSmoothing(),
		ExpressionSmoothing: tuning.GetExpressionSmoothing(),
		Visualizer:          vis,
	})

	bar := progressbar.NewOptions(len(frames),
		progressbar.OptionSetDescription("Replaying "+shortID(sess.ID)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	err = driver.Replay(ctx, frames, func(done int) {
		bar.Set(done)
	})
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	stats := driver.Stats()
	fmt.Printf("Replayed %d of %d frames (%d skipped, %d deformation errors)\n",
		stats.Processed, len(frames), stats.Skipped, stats.DeformationErrors)

	if opts.plots != "" {
		if err := os.MkdirAll(opts.plots, 0o755); err != nil {
			return fmt.Errorf("create plot directory: %w", err)
		}
		exprPath := filepath.Join(opts.plots, sess.ID+"_expression.png")
		if err := report.PlotExpression(frames, report.TopCoefficients(frames, opts.coeffs), exprPath); err != nil {
			return err
		}
		posePath := filepath.Join(opts.plots, sess.ID+"_headpose.png")
		if err := report.PlotHeadPose(frames, posePath); err != nil {
			return err
		}
		fmt.Printf("Wrote %s and %s\n", exprPath, posePath)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
