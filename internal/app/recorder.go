package app

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/abhinaya/internal/blendshape"
	"github.com/ayusman/abhinaya/internal/headpose"
	"github.com/ayusman/abhinaya/internal/store"
)

// Recorder writes processed frames of one session to the store.
type Recorder struct {
	sessions *store.SessionRepository
	frames   *store.FrameRepository
	session  *store.Session
	indices  headpose.Indices
	count    int
}

// NewRecorder creates the session row and returns a recorder for it.
func NewRecorder(s *store.Store, session *store.Session, indices headpose.Indices) (*Recorder, error) {
	if err := s.Sessions().Create(session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Recorder{
		sessions: s.Sessions(),
		frames:   s.Frames(),
		session:  session,
		indices:  indices,
	}, nil
}

// Session returns the session being recorded.
func (r *Recorder) Session() *store.Session {
	return r.session
}

// Record appends one frame. Only the landmarks used for head pose are kept.
func (r *Recorder) Record(seq int, timestampMs int64, frame blendshape.Frame, landmarks []r3.Vec, pose headpose.Pose, expression []float64) error {
	lm := make(map[int]r3.Vec, 3)
	for _, idx := range []int{r.indices.Nose, r.indices.LeftEye, r.indices.RightEye} {
		if idx >= 0 && idx < len(landmarks) {
			lm[idx] = landmarks[idx]
		}
	}

	rec := &store.FrameRecord{
		SessionID:   r.session.ID,
		Seq:         seq,
		TimestampMs: timestampMs,
		Blendshapes: frame,
		Landmarks:   lm,
		Yaw:         pose.Yaw,
		Pitch:       pose.Pitch,
		Expression:  append([]float64(nil), expression...),
	}
	if err := r.frames.Append(rec); err != nil {
		return fmt.Errorf("append frame: %w", err)
	}
	r.count++
	return nil
}

// Finish closes the session with the number of recorded frames.
func (r *Recorder) Finish() error {
	if err := r.sessions.Finish(r.session.ID, r.count); err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	r.session.Frames = r.count
	return nil
}
