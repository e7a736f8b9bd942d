package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/abhinaya/internal/flame"
	"github.com/ayusman/abhinaya/internal/render"
)

type exploreOptions struct {
	index     int
	intensity float64
	dump      bool
}

var exploreOpts exploreOptions

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Show what a single expression component does",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExplore(exploreOpts)
	},
}

func init() {
	f := exploreCmd.Flags()
	f.IntVar(&exploreOpts.index, "index", 0, "expression component to show")
	f.Float64Var(&exploreOpts.intensity, "intensity", 3.0, "coefficient value for the component")
	f.BoolVar(&exploreOpts.dump, "dump", false, "print the displacement norm of every component instead of showing one")
	rootCmd.AddCommand(exploreCmd)
}

// componentNorms returns the Frobenius norm of each component's displacement at
// the given intensity.
func componentNorms(m *flame.Model, intensity float64) []float64 {
	norms := make([]float64, m.NumCoefficients())
	for k := range norms {
		var sum float64
		for v := 0; v < m.NumVertices(); v++ {
			for axis := 0; axis < 3; axis++ {
				d := m.BasisAt(v, axis, k) * intensity
				sum += d * d
			}
		}
		norms[k] = math.Sqrt(sum)
	}
	return norms
}

// exploreMesh deforms the mean shape by a single component.
func exploreMesh(m *flame.Model, index int, intensity float64) (*flame.Mesh, error) {
	if index < 0 || index >= m.NumCoefficients() {
		return nil, fmt.Errorf("component %d out of range [0, %d)", index, m.NumCoefficients())
	}
	expr := make([]float64, m.NumCoefficients())
	expr[index] = intensity

	mesh := m.NewMesh()
	if err := m.Deform(flame.Params{Expression: expr}, mesh); err != nil {
		return nil, fmt.Errorf("deform mesh: %w", err)
	}
	return mesh, nil
}

func runExplore(opts exploreOptions) error {
	model, err := flame.Load(resolveModelPath(nil))
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	if opts.dump {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "COMPONENT\tNORM")
		fmt.Fprintln(w, "---------\t----")
		for k, n := range componentNorms(model, opts.intensity) {
			fmt.Fprintf(w, "%d\t%.6f\n", k, n)
		}
		return w.Flush()
	}

	mesh, err := exploreMesh(model, opts.index, opts.intensity)
	if err != nil {
		return err
	}

	cfg := render.DefaultWireframeConfig()
	cfg.Title = fmt.Sprintf("FLAME expression %d (x%.1f)", opts.index, opts.intensity)
	cfg.Camera = render.ExplorerCamera()
	wf := render.NewWireframe(cfg, model.Faces, model.NumVertices(), false)
	defer wf.Close()

	if err := wf.Update(mesh.Vertices); err != nil {
		return err
	}
	fmt.Println("Press any key in the window to close")
	wf.WaitKey(0)
	return nil
}
