package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/abhinaya/internal/mapping"
)

var fetchDir string

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Manage the pretrained blendshape-to-FLAME mapping matrices",
}

var mappingsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download bs2exp.npy, bs2pose.npy and bs2eye.npy",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := mapping.NewFetcher()
		f.Progress = func(name string, size int64) io.Writer {
			return progressbar.DefaultBytes(size, name)
		}

		results, err := f.FetchAll(cmd.Context(), fetchDir)
		failed := 0
		for _, r := range results {
			switch {
			case r.Err != nil:
				failed++
				fmt.Fprintf(os.Stderr, "%s: %v\n", r.Name, r.Err)
			case r.Skipped:
				fmt.Printf("%s: already present\n", r.Path)
			default:
				fmt.Printf("%s: %d bytes\n", r.Path, r.Bytes)
			}
		}
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d downloads failed", failed, len(mapping.Files))
		}
		return nil
	},
}

var mappingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run mapping discovery and report what would be used",
	RunE: func(cmd *cobra.Command, args []string) error {
		tuning, err := loadTuning()
		if err != nil {
			return err
		}
		out := mapping.Discover(mappingCandidates(tuning, mappingsDir), mappingOptions(tuning))
		return printOutcome(os.Stdout, out)
	},
}

func init() {
	mappingsFetchCmd.Flags().StringVar(&fetchDir, "dir", "./mappings", "destination directory")
	mappingsCmd.AddCommand(mappingsFetchCmd, mappingsCheckCmd)
	rootCmd.AddCommand(mappingsCmd)
}

func shape(m *mat.Dense) string {
	if m == nil {
		return "-"
	}
	r, c := m.Dims()
	return fmt.Sprintf("%dx%d", r, c)
}

// printOutcome writes the discovery result as a table.
func printOutcome(out io.Writer, o mapping.Outcome) error {
	fmt.Fprintf(out, "Mode: %s\n", o.Mode)
	if o.Dir != "" {
		fmt.Fprintf(out, "Directory: %s\n", o.Dir)
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CANDIDATE\tFOUND\tERROR")
	fmt.Fprintln(w, "---------\t-----\t-----")
	for _, a := range o.Attempts {
		msg := ""
		if a.Err != nil {
			msg = a.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%t\t%s\n", a.Dir, a.Found, msg)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if o.Set != nil {
		fmt.Fprintf(out, "%s: %s\n", mapping.ExpressionFile, shape(o.Set.Expression))
		fmt.Fprintf(out, "%s: %s (loaded=%t)\n", mapping.PoseFile, shape(o.Set.Pose), o.Set.PoseLoaded)
		fmt.Fprintf(out, "%s: %s (loaded=%t)\n", mapping.EyeFile, shape(o.Set.Eye), o.Set.EyeLoaded)
	}
	return nil
}
