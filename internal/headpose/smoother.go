package headpose

// Smoother applies exponential moving average smoothing to head poses.
// Alpha is the weight of the new reading: 1 disables smoothing.
type Smoother struct {
	alpha  float64
	state  Pose
	primed bool
}

// NewSmoother returns a Smoother. Alpha outside (0, 1] is clamped to 1.
func NewSmoother(alpha float64) *Smoother {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &Smoother{alpha: alpha}
}

// Update folds p into the running estimate and returns it. The first reading
// seeds the estimate.
func (s *Smoother) Update(p Pose) Pose {
	if !s.primed {
		s.state = p
		s.primed = true
		return p
	}
	s.state.Yaw = s.alpha*p.Yaw + (1-s.alpha)*s.state.Yaw
	s.state.Pitch = s.alpha*p.Pitch + (1-s.alpha)*s.state.Pitch
	return s.state
}

// Reset forgets the running estimate.
func (s *Smoother) Reset() {
	s.state = Pose{}
	s.primed = false
}
