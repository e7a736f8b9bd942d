package headpose

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const epsilon = 1e-9

func landmarks(nose, left, right r3.Vec) []r3.Vec {
	lm := make([]r3.Vec, 478)
	lm[1] = nose
	lm[33] = left
	lm[263] = right
	return lm
}

func TestEstimate(t *testing.T) {
	t.Run("degenerate forward vector yields zero pose", func(t *testing.T) {
		p := r3.Vec{X: 0.5, Y: 0.5, Z: 0.1}
		// Nose sits exactly on the eye midpoint.
		lm := landmarks(p, r3.Vec{X: 0.4, Y: 0.5, Z: 0.1}, r3.Vec{X: 0.6, Y: 0.5, Z: 0.1})

		pose, err := Estimate(lm, DefaultIndices)
		require.NoError(t, err)
		assert.Equal(t, Pose{}, pose)
	})

	t.Run("straight on face", func(t *testing.T) {
		lm := landmarks(r3.Vec{X: 0.5, Y: 0.5, Z: 0.2}, r3.Vec{X: 0.4, Y: 0.5, Z: 0}, r3.Vec{X: 0.6, Y: 0.5, Z: 0})

		pose, err := Estimate(lm, DefaultIndices)
		require.NoError(t, err)
		assert.InDelta(t, 0, pose.Yaw, epsilon)
		assert.InDelta(t, 0, pose.Pitch, epsilon)
	})

	t.Run("turned face", func(t *testing.T) {
		// forward = (0.1, 0, 0.1) -> yaw 45°.
		lm := landmarks(r3.Vec{X: 0.6, Y: 0.5, Z: 0.1}, r3.Vec{X: 0.4, Y: 0.5, Z: 0}, r3.Vec{X: 0.6, Y: 0.5, Z: 0})

		pose, err := Estimate(lm, DefaultIndices)
		require.NoError(t, err)
		assert.InDelta(t, math.Pi/4, pose.Yaw, epsilon)
		assert.InDelta(t, 0, pose.Pitch, epsilon)

		yawDeg, _ := pose.Degrees()
		assert.InDelta(t, 45, yawDeg, 1e-6)
	})

	t.Run("tilted face", func(t *testing.T) {
		// forward = (0, -0.1, 0.1) -> pitch -45°.
		lm := landmarks(r3.Vec{X: 0.5, Y: 0.4, Z: 0.1}, r3.Vec{X: 0.4, Y: 0.5, Z: 0}, r3.Vec{X: 0.6, Y: 0.5, Z: 0})

		pose, err := Estimate(lm, DefaultIndices)
		require.NoError(t, err)
		assert.InDelta(t, -math.Pi/4, pose.Pitch, epsilon)
	})

	t.Run("too few landmarks", func(t *testing.T) {
		_, err := Estimate(make([]r3.Vec, 263), DefaultIndices)
		assert.True(t, errors.Is(err, ErrTooFewLandmarks))

		_, err = Estimate(nil, DefaultIndices)
		assert.True(t, errors.Is(err, ErrTooFewLandmarks))
	})

	t.Run("custom indices", func(t *testing.T) {
		lm := []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0.5, Y: 0, Z: 1}}

		pose, err := Estimate(lm, Indices{Nose: 2, LeftEye: 0, RightEye: 1})
		require.NoError(t, err)
		assert.InDelta(t, 0, pose.Yaw, epsilon)
	})
}

func TestRotations(t *testing.T) {
	t.Run("RotZ 180 negates x and y", func(t *testing.T) {
		v := RotZ(math.Pi).MulVec(r3.Vec{X: 1, Y: 2, Z: 3})
		assert.InDelta(t, -1, v.X, epsilon)
		assert.InDelta(t, -2, v.Y, epsilon)
		assert.InDelta(t, 3, v.Z, epsilon)
	})

	t.Run("RotY quarter turn maps z to x", func(t *testing.T) {
		v := RotY(math.Pi / 2).MulVec(r3.Vec{Z: 1})
		assert.InDelta(t, 1, v.X, epsilon)
		assert.InDelta(t, 0, v.Z, epsilon)
	})

	t.Run("RotX quarter turn maps y to z", func(t *testing.T) {
		v := RotX(math.Pi / 2).MulVec(r3.Vec{Y: 1})
		assert.InDelta(t, 1, v.Z, epsilon)
	})
}

func TestOrientation(t *testing.T) {
	t.Run("identity when base and pose are zero", func(t *testing.T) {
		o := Orientation{YawSign: -1}
		m := o.Matrix(Pose{})

		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				want := 0.0
				if i == j {
					want = 1
				}
				assert.InDelta(t, want, m.At(i, j), epsilon)
			}
		}
	})

	t.Run("zero pose applies only the base rotation", func(t *testing.T) {
		o := DefaultOrientation()
		m := o.Matrix(Pose{})

		// v·Rzᵀ·Rxᵀ == Rx·Rz·v
		v := r3.Vec{X: 0.1, Y: 0.2, Z: 0.3}
		want := RotX(radians(-35)).MulVec(RotZ(math.Pi).MulVec(v))
		got := m.MulVecTrans(v)
		assert.InDelta(t, 0, r3.Norm(r3.Sub(want, got)), epsilon)
	})

	t.Run("yaw sign flips the head rotation", func(t *testing.T) {
		pose := Pose{Yaw: 0.3}
		neg := Orientation{YawSign: -1}.Matrix(pose)
		pos := Orientation{YawSign: 1}.Matrix(Pose{Yaw: -0.3})

		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				assert.InDelta(t, pos.At(i, j), neg.At(i, j), epsilon)
			}
		}
	})

	t.Run("matrix stays orthonormal", func(t *testing.T) {
		m := DefaultOrientation().Matrix(Pose{Yaw: 0.4, Pitch: -0.2})
		assert.InDelta(t, 1, m.Det(), 1e-9)
	})

	t.Run("apply recenters the mesh", func(t *testing.T) {
		verts := []r3.Vec{{X: 1, Y: 1, Z: 1}, {X: 2, Y: 3, Z: 4}, {X: -1, Y: 0, Z: 5}}
		DefaultOrientation().Apply(verts, Pose{Yaw: 0.2, Pitch: 0.1})

		var sum r3.Vec
		for _, v := range verts {
			sum = r3.Add(sum, v)
		}
		assert.InDelta(t, 0, r3.Norm(sum), 1e-9)
	})

	t.Run("apply preserves pairwise distances", func(t *testing.T) {
		verts := []r3.Vec{{X: 1, Y: 0, Z: 0}, {X: 0, Y: 2, Z: 0}}
		before := r3.Norm(r3.Sub(verts[0], verts[1]))

		DefaultOrientation().Apply(verts, Pose{Yaw: 1, Pitch: 0.5})

		assert.InDelta(t, before, r3.Norm(r3.Sub(verts[0], verts[1])), 1e-9)
	})

	t.Run("apply on empty mesh is a no-op", func(t *testing.T) {
		DefaultOrientation().Apply(nil, Pose{Yaw: 1})
	})
}

func TestSmoother(t *testing.T) {
	t.Run("alpha one passes readings through", func(t *testing.T) {
		s := NewSmoother(1)
		s.Update(Pose{Yaw: 1})
		assert.Equal(t, Pose{Yaw: 2, Pitch: -1}, s.Update(Pose{Yaw: 2, Pitch: -1}))
	})

	t.Run("first reading seeds the estimate", func(t *testing.T) {
		s := NewSmoother(0.5)
		assert.Equal(t, Pose{Yaw: 1, Pitch: 1}, s.Update(Pose{Yaw: 1, Pitch: 1}))
	})

	t.Run("blends toward new readings", func(t *testing.T) {
		s := NewSmoother(0.25)
		s.Update(Pose{Yaw: 0})
		got := s.Update(Pose{Yaw: 1, Pitch: 4})
		assert.InDelta(t, 0.25, got.Yaw, epsilon)
		assert.InDelta(t, 1, got.Pitch, epsilon)
	})

	t.Run("reset forgets history", func(t *testing.T) {
		s := NewSmoother(0.25)
		s.Update(Pose{Yaw: 10})
		s.Reset()
		assert.Equal(t, Pose{Yaw: 1}, s.Update(Pose{Yaw: 1}))
	})

	t.Run("invalid alpha disables smoothing", func(t *testing.T) {
		s := NewSmoother(0)
		s.Update(Pose{Yaw: 5})
		assert.Equal(t, Pose{Yaw: 1}, s.Update(Pose{Yaw: 1}))
	})
}
