package retarget

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Result is the outcome of retargeting one frame: either *Pretrained or *Manual.
type Result interface {
	// Coefficients returns the expression coefficients.
	Coefficients() []float64
	isResult()
}

// Pretrained carries the output of the learned linear maps.
type Pretrained struct {
	Expression []float64
	JawPose    [3]float64
	EyePose    [6]float64
}

// Manual carries the output of the hand-tuned rules. It has no pose.
type Manual struct {
	Expression []float64
}

func (p *Pretrained) Coefficients() []float64 { return p.Expression }
func (m *Manual) Coefficients() []float64     { return m.Expression }

func (*Pretrained) isResult() {}
func (*Manual) isResult()     {}

// Range returns the smallest and largest coefficient. An empty slice yields (0, 0).
func Range(expr []float64) (lo, hi float64) {
	if len(expr) == 0 {
		return 0, 0
	}
	return floats.Min(expr), floats.Max(expr)
}

// ActiveIndices returns up to limit coefficient indices whose magnitude exceeds
// threshold, in ascending index order. A limit of zero or less returns all.
func ActiveIndices(expr []float64, threshold float64, limit int) []int {
	var idx []int
	for i, v := range expr {
		if math.Abs(v) > threshold {
			idx = append(idx, i)
			if limit > 0 && len(idx) == limit {
				break
			}
		}
	}
	return idx
}
