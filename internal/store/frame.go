package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/abhinaya/internal/blendshape"
)

// FrameRecord is one processed frame of a session.
type FrameRecord struct {
	ID          int64            `json:"id"`
	SessionID   string           `json:"session_id"`
	Seq         int              `json:"seq"`
	TimestampMs int64            `json:"timestamp_ms"`
	Blendshapes blendshape.Frame `json:"blendshapes"`
	Landmarks   map[int]r3.Vec   `json:"landmarks"`
	Yaw         float64          `json:"yaw"`
	Pitch       float64          `json:"pitch"`
	Expression  []float64        `json:"expression"`
}

// LandmarkSlice expands the sparse landmarks into a slice long enough to index
// every stored landmark. Missing entries are zero.
func (f *FrameRecord) LandmarkSlice() []r3.Vec {
	n := 0
	for idx := range f.Landmarks {
		if idx+1 > n {
			n = idx + 1
		}
	}
	out := make([]r3.Vec, n)
	for idx, v := range f.Landmarks {
		if idx >= 0 {
			out[idx] = v
		}
	}
	return out
}

// FrameRepository stores and retrieves session frames.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// Append inserts a frame and sets its ID.
func (r *FrameRepository) Append(f *FrameRecord) error {
	bs, err := json.Marshal(f.Blendshapes)
	if err != nil {
		return fmt.Errorf("marshal blendshapes: %w", err)
	}
	lm, err := json.Marshal(f.Landmarks)
	if err != nil {
		return fmt.Errorf("marshal landmarks: %w", err)
	}
	expr, err := json.Marshal(f.Expression)
	if err != nil {
		return fmt.Errorf("marshal expression: %w", err)
	}

	result, err := r.db.Exec(
		`INSERT INTO session_frames (session_id, seq, timestamp_ms, blendshapes, landmarks, yaw, pitch, expression)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.SessionID, f.Seq, f.TimestampMs, string(bs), string(lm), f.Yaw, f.Pitch, string(expr),
	)
	if err != nil {
		return err
	}

	f.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns the frames of a session in sequence order.
func (r *FrameRepository) ListBySession(sessionID string) ([]*FrameRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, seq, timestamp_ms, blendshapes, landmarks, yaw, pitch, expression
		 FROM session_frames WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []*FrameRecord
	for rows.Next() {
		f := &FrameRecord{}
		var bs, lm, expr string

		if err := rows.Scan(&f.ID, &f.SessionID, &f.Seq, &f.TimestampMs, &bs, &lm, &f.Yaw, &f.Pitch, &expr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(bs), &f.Blendshapes); err != nil {
			return nil, fmt.Errorf("frame %d blendshapes: %w", f.Seq, err)
		}
		if err := json.Unmarshal([]byte(lm), &f.Landmarks); err != nil {
			return nil, fmt.Errorf("frame %d landmarks: %w", f.Seq, err)
		}
		if err := json.Unmarshal([]byte(expr), &f.Expression); err != nil {
			return nil, fmt.Errorf("frame %d expression: %w", f.Seq, err)
		}
		frames = append(frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}

// Count returns the number of frames recorded for a session.
func (r *FrameRepository) Count(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM session_frames WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
