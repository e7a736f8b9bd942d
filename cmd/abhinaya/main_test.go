package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/flame"
	"github.com/ayusman/abhinaya/internal/mapping"
	"github.com/ayusman/abhinaya/internal/monitoring"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/ayusman/abhinaya/testdata"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func loadTestModel(t *testing.T) *flame.Model {
	t.Helper()
	path, err := testdata.WriteModel(t.TempDir())
	require.NoError(t, err)
	model, err := flame.Load(path)
	require.NoError(t, err)
	return model
}

func TestComponentNorms(t *testing.T) {
	model := loadTestModel(t)

	norms := componentNorms(model, 3.0)

	require.Len(t, norms, flame.ExpressionCoefficients)
	for k, n := range norms {
		assert.InDelta(t, 3.0*testdata.ExpressionStep, n, 1e-12, "component %d", k)
	}
}

func TestExploreMesh(t *testing.T) {
	model := loadTestModel(t)

	t.Run("moves one vertex", func(t *testing.T) {
		mesh, err := exploreMesh(model, 5, 3.0)
		require.NoError(t, err)

		// component 5 moves vertex 1 along z
		assert.InDelta(t, testdata.TetraVertices[1][2]+3*testdata.ExpressionStep, mesh.Vertices[1].Z, 1e-12)
		assert.Equal(t, testdata.TetraVertices[0][0], mesh.Vertices[0].X)
	})

	t.Run("index out of range", func(t *testing.T) {
		_, err := exploreMesh(model, flame.ExpressionCoefficients, 1)
		assert.Error(t, err)
		_, err = exploreMesh(model, -1, 1)
		assert.Error(t, err)
	})
}

func TestBuildPipeline(t *testing.T) {
	dir := t.TempDir()
	modelFile, err := testdata.WriteModel(dir)
	require.NoError(t, err)
	mapDir := filepath.Join(dir, "maps")
	require.NoError(t, testdata.WriteMappings(mapDir))

	t.Run("pretrained with mappings", func(t *testing.T) {
		p, err := buildPipeline(config.EmptyTuningConfig(), modelFile, mapDir)
		require.NoError(t, err)
		assert.Equal(t, mapping.ModePretrained, p.engine.Mode())
		assert.Equal(t, modelFile, p.modelPath)
	})

	t.Run("missing model is fatal", func(t *testing.T) {
		_, err := buildPipeline(config.EmptyTuningConfig(), filepath.Join(dir, "nope.npz"), mapDir)
		var mle *flame.ModelLoadError
		assert.ErrorAs(t, err, &mle)
	})
}

func TestEngineConfig(t *testing.T) {
	tuning, err := config.ParseTuningConfig([]byte(`{
		// louder
		"amplification": 3.5,
		"manual_rules": [{"name": "jawOpen", "slot": 2, "multiplier": 4}],
	}`))
	require.NoError(t, err)

	cfg := engineConfig(tuning)

	assert.Equal(t, 3.5, cfg.Amplification)
	require.Len(t, cfg.ManualRules, 1)
	assert.Equal(t, 2, cfg.ManualRules[0].Slot)

	o := orientation(config.EmptyTuningConfig())
	assert.Equal(t, 180.0, o.BaseYawDeg)
	assert.Equal(t, -35.0, o.BaseTiltDeg)
	assert.Equal(t, -1.0, o.YawSign)
}

func TestMappingCandidates(t *testing.T) {
	tuning, err := config.ParseTuningConfig([]byte(`{"mapping_candidates": ["/opt/maps"]}`))
	require.NoError(t, err)

	got := mappingCandidates(tuning, "custom")

	defaults := mapping.DefaultCandidates("custom")
	require.Len(t, got, len(defaults)+1)
	assert.Equal(t, defaults, got[:len(defaults)])
	assert.Equal(t, "custom", got[0])
	assert.Equal(t, "/opt/maps", got[len(got)-1])
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "video:clip.mp4", sourceLabel("clip.mp4", 2))
	assert.Equal(t, "camera:2", sourceLabel("", 2))
}

func TestModelCandidates(t *testing.T) {
	got := modelCandidates("a.npz", "b.npz")
	require.GreaterOrEqual(t, len(got), 4)
	assert.Equal(t, []string{"a.npz", "b.npz", "flame.npz", filepath.Join("assets", "flame.npz")}, got[:4])

	got = modelCandidates("", "")
	assert.Equal(t, "flame.npz", got[0])
}

func TestPrintOutcome(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, testdata.WriteMappings(dir))
	out := mapping.Discover([]string{filepath.Join(dir, "missing"), dir}, mapping.DefaultOptions())

	var buf bytes.Buffer
	require.NoError(t, printOutcome(&buf, out))

	text := buf.String()
	assert.Contains(t, text, "Mode: pretrained")
	assert.Contains(t, text, "bs2exp.npy: 52x100")
	assert.Contains(t, text, "bs2pose.npy: 52x3 (loaded=true)")
	assert.Contains(t, text, "bs2eye.npy: 52x6 (loaded=true)")
	assert.Contains(t, text, "false")
}

func TestPrintSessions(t *testing.T) {
	ended := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	sessions := []*store.Session{
		{ID: "abc", Mode: "manual", Source: "camera:0", Frames: 10, StartedAt: ended, EndedAt: &ended},
		{ID: "def", Mode: "pretrained", Source: "video:x.mp4", StartedAt: ended},
	}

	var buf bytes.Buffer
	require.NoError(t, printSessions(&buf, sessions))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[2], "abc")
	assert.Contains(t, lines[3], "-")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "12345678", shortID("1234567890"))
	assert.Equal(t, "abc", shortID("abc"))
}
