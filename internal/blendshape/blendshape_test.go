package blendshape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	t.Run("index constants match names", func(t *testing.T) {
		cases := map[int]string{
			Neutral:         "_neutral",
			BrowInnerUp:     "browInnerUp",
			EyeBlinkLeft:    "eyeBlinkLeft",
			EyeBlinkRight:   "eyeBlinkRight",
			JawOpen:         "jawOpen",
			MouthFunnel:     "mouthFunnel",
			MouthPucker:     "mouthPucker",
			MouthSmileLeft:  "mouthSmileLeft",
			MouthSmileRight: "mouthSmileRight",
			NoseSneerRight:  "noseSneerRight",
		}
		for idx, name := range cases {
			assert.Equal(t, name, Names[idx], "index %d", idx)
		}
	})

	t.Run("names are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, name := range Names {
			assert.False(t, seen[name], "duplicate name %q", name)
			seen[name] = true
		}
		assert.Len(t, seen, NumBlendshapes)
	})

	t.Run("Index round trips", func(t *testing.T) {
		for i, name := range Names {
			got, ok := Index(name)
			require.True(t, ok)
			assert.Equal(t, i, got)
		}
		_, ok := Index("tongueOut")
		assert.False(t, ok)
	})
}

func TestVectorize(t *testing.T) {
	t.Run("single jawOpen score", func(t *testing.T) {
		v := Vectorize(Frame{{Name: "jawOpen", Score: 0.8}})

		for i, got := range v {
			if i == JawOpen {
				assert.Equal(t, 0.8, got)
				continue
			}
			assert.Zero(t, got, "index %d (%s)", i, Names[i])
		}
	})

	t.Run("unknown names are ignored", func(t *testing.T) {
		v := Vectorize(Frame{
			{Name: "tongueOut", Score: 0.9},
			{Name: "mouthPucker", Score: 0.3},
		})

		var want Vector
		want[MouthPucker] = 0.3
		assert.Equal(t, want, v)
	})

	t.Run("empty frame yields zero vector", func(t *testing.T) {
		assert.Equal(t, Vector{}, Vectorize(nil))
	})

	t.Run("full frame keeps order independent of input order", func(t *testing.T) {
		frame := make(Frame, 0, NumBlendshapes)
		for i := NumBlendshapes - 1; i >= 0; i-- {
			frame = append(frame, Category{Name: Names[i], Score: float64(i) / 100})
		}

		v := Vectorize(frame)
		for i := range v {
			assert.InDelta(t, float64(i)/100, v[i], 1e-12)
		}
	})
}

func TestFrame_Score(t *testing.T) {
	f := Frame{
		{Name: "jawOpen", Score: 0.2},
		{Name: "eyeBlinkLeft", Score: 0.7},
		{Name: "jawOpen", Score: 0.4},
	}

	score, ok := f.Score("jawOpen")
	require.True(t, ok)
	assert.Equal(t, 0.4, score, "last duplicate wins")

	_, ok = f.Score("cheekPuff")
	assert.False(t, ok)
}

func TestFrame_Active(t *testing.T) {
	f := Frame{
		{Name: "jawOpen", Score: 0.3},
		{Name: "eyeBlinkLeft", Score: 0.05},
		{Name: "mouthSmileLeft", Score: 0.9},
		{Name: "browInnerUp", Score: 0.1},
	}

	active := f.Active(0.1)

	require.Len(t, active, 2)
	assert.Equal(t, "mouthSmileLeft", active[0].Name)
	assert.Equal(t, "jawOpen", active[1].Name)
}

func TestFromVector(t *testing.T) {
	var v Vector
	v[JawOpen] = 0.5
	v[NoseSneerLeft] = 0.25

	f := FromVector(v)

	require.Len(t, f, NumBlendshapes)
	assert.Equal(t, v, Vectorize(f))
}
