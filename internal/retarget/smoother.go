package retarget

// ExpressionSmoother applies exponential moving average smoothing to expression
// coefficients. Alpha is the weight of the newest frame.
type ExpressionSmoother struct {
	alpha float64
	state []float64
}

// NewExpressionSmoother returns a smoother. Alpha outside (0, 1] is clamped to 1.
func NewExpressionSmoother(alpha float64) *ExpressionSmoother {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &ExpressionSmoother{alpha: alpha}
}

// Apply smooths expr in place. The first frame, or a frame whose length differs
// from the previous one, seeds the state.
func (s *ExpressionSmoother) Apply(expr []float64) {
	if len(s.state) != len(expr) {
		s.state = append(s.state[:0], expr...)
		return
	}
	for i, v := range expr {
		s.state[i] = s.alpha*v + (1-s.alpha)*s.state[i]
		expr[i] = s.state[i]
	}
}

// Reset forgets the running state.
func (s *ExpressionSmoother) Reset() {
	s.state = s.state[:0]
}
