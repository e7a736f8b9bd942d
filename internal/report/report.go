// Package report renders time-series plots of recorded sessions.
package report

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/ayusman/abhinaya/internal/store"
)

// ErrNoFrames is returned when there is nothing to plot.
var ErrNoFrames = errors.New("no frames to plot")

// Plot size.
var (
	Width  = 14 * vg.Inch
	Height = 6 * vg.Inch
)

func newPlot(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = ylabel
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p
}

func addLine(p *plot.Plot, pts plotter.XYs, label string, i int) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("line %s: %w", label, err)
	}
	line.Color = plotutil.Color(i)
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(label, line)
	return nil
}

// PlotExpression writes one line per expression coefficient over frame sequence.
// Coefficients a frame does not carry are skipped for that frame.
func PlotExpression(frames []*store.FrameRecord, coeffs []int, path string) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}

	p := newPlot("Expression coefficients", "Coefficient")
	for i, k := range coeffs {
		pts := make(plotter.XYs, 0, len(frames))
		for _, f := range frames {
			if k >= 0 && k < len(f.Expression) {
				pts = append(pts, plotter.XY{X: float64(f.Seq), Y: f.Expression[k]})
			}
		}
		if len(pts) == 0 {
			continue
		}
		if err := addLine(p, pts, fmt.Sprintf("e%d", k), i); err != nil {
			return err
		}
	}

	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("save expression plot: %w", err)
	}
	return nil
}

// PlotHeadPose writes yaw and pitch in degrees over frame sequence.
func PlotHeadPose(frames []*store.FrameRecord, path string) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}

	p := newPlot("Head pose", "Degrees")
	yaw := make(plotter.XYs, len(frames))
	pitch := make(plotter.XYs, len(frames))
	for i, f := range frames {
		yaw[i] = plotter.XY{X: float64(f.Seq), Y: f.Yaw * 180 / math.Pi}
		pitch[i] = plotter.XY{X: float64(f.Seq), Y: f.Pitch * 180 / math.Pi}
	}
	if err := addLine(p, yaw, "yaw", 0); err != nil {
		return err
	}
	if err := addLine(p, pitch, "pitch", 1); err != nil {
		return err
	}

	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("save head pose plot: %w", err)
	}
	return nil
}

// TopCoefficients returns up to n coefficient indices with the largest peak
// magnitude across frames, ordered by index. All-zero coefficients are left out.
func TopCoefficients(frames []*store.FrameRecord, n int) []int {
	peak := map[int]float64{}
	for _, f := range frames {
		for k, e := range f.Expression {
			if a := math.Abs(e); a > peak[k] {
				peak[k] = a
			}
		}
	}

	idx := make([]int, 0, len(peak))
	for k, v := range peak {
		if v > 0 {
			idx = append(idx, k)
		}
	}
	sort.Slice(idx, func(i, j int) bool {
		if peak[idx[i]] != peak[idx[j]] {
			return peak[idx[i]] > peak[idx[j]]
		}
		return idx[i] < idx[j]
	})
	if len(idx) > n {
		idx = idx[:n]
	}
	sort.Ints(idx)
	return idx
}
