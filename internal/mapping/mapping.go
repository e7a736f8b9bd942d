// Package mapping locates and loads the pretrained linear maps from MediaPipe
// blendshapes to FLAME expression, jaw pose and eye pose parameters.
package mapping

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/abhinaya/internal/blendshape"
	"github.com/ayusman/abhinaya/internal/monitoring"
	"github.com/ayusman/abhinaya/internal/npy"
)

// Mapping file names inside a candidate directory.
const (
	ExpressionFile = "bs2exp.npy"
	PoseFile       = "bs2pose.npy"
	EyeFile        = "bs2eye.npy"
)

// Fixed widths of the pose matrices.
const (
	PoseChannels = 3
	EyeChannels  = 6
)

// Fallback jaw mapping used when bs2pose.npy is absent or unusable: jawOpen drives
// jaw rotation channel 0.
const (
	DefaultJawOpenIndex  = blendshape.JawOpen
	DefaultJawOpenWeight = 0.5
)

// Mode is the retargeting strategy selected at startup.
type Mode int

const (
	// ModeManual uses hand-tuned per-blendshape rules.
	ModeManual Mode = iota
	// ModePretrained uses the loaded linear maps.
	ModePretrained
)

func (m Mode) String() string {
	switch m {
	case ModePretrained:
		return "pretrained"
	case ModeManual:
		return "manual"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Set holds the loaded mapping matrices. It is immutable after Discover returns.
type Set struct {
	// Expression is 52×K.
	Expression *mat.Dense
	// Pose is 52×3.
	Pose *mat.Dense
	// Eye is 52×6.
	Eye *mat.Dense

	// PoseLoaded and EyeLoaded report whether the matrix came from disk
	// rather than the fallback.
	PoseLoaded bool
	EyeLoaded  bool

	// Dir is the absolute directory the set was loaded from.
	Dir string
}

// NumCoefficients returns the expression width K.
func (s *Set) NumCoefficients() int {
	_, k := s.Expression.Dims()
	return k
}

// Options controls how mapping files are validated and which fallback is used.
type Options struct {
	// Coefficients is the expected expression width. Zero accepts any width.
	Coefficients int

	JawOpenIndex  int
	JawOpenWeight float64
}

// DefaultOptions returns Options for a 100-coefficient model and the standard
// jaw fallback.
func DefaultOptions() Options {
	return Options{
		Coefficients:  100,
		JawOpenIndex:  DefaultJawOpenIndex,
		JawOpenWeight: DefaultJawOpenWeight,
	}
}

// Attempt records what happened when one candidate directory was probed.
type Attempt struct {
	Dir   string
	Found bool
	Err   error
}

// Outcome is the result of mapping discovery.
type Outcome struct {
	Mode     Mode
	Set      *Set
	Dir      string
	Attempts []Attempt
}

// Searched returns the candidate directories in probe order.
func (o Outcome) Searched() []string {
	dirs := make([]string, len(o.Attempts))
	for i, a := range o.Attempts {
		dirs[i] = a.Dir
	}
	return dirs
}

// LoadError reports a mapping file that exists but cannot be used.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load mapping %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("load mapping %s: %s", e.Path, e.Reason)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// DefaultCandidates returns the probe order used by the command line: the configured
// path, its absolute form, ./mappings and the working directory's mappings folder.
// An empty configured path is skipped.
func DefaultCandidates(configured string) []string {
	var candidates []string
	if configured != "" {
		candidates = append(candidates, configured)
		if abs, err := filepath.Abs(configured); err == nil {
			candidates = append(candidates, abs)
		}
	}
	candidates = append(candidates, "./mappings")
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, "mappings"))
	}
	return candidates
}

// Discover probes candidates in order and loads the first directory holding a
// usable bs2exp.npy. When none does, the outcome is ModeManual.
func Discover(candidates []string, opts Options) Outcome {
	out := Outcome{Mode: ModeManual}

	for _, dir := range candidates {
		set, err := LoadDir(dir, opts)
		if errors.Is(err, os.ErrNotExist) {
			out.Attempts = append(out.Attempts, Attempt{Dir: dir})
			continue
		}
		if err != nil {
			monitoring.Logf("mapping: skipping %s: %v", dir, err)
			out.Attempts = append(out.Attempts, Attempt{Dir: dir, Found: true, Err: err})
			continue
		}

		out.Attempts = append(out.Attempts, Attempt{Dir: dir, Found: true})
		out.Mode = ModePretrained
		out.Set = set
		out.Dir = set.Dir
		monitoring.Logf("mapping: loaded expression map from %s (52x%d, pose=%t, eye=%t)",
			set.Dir, set.NumCoefficients(), set.PoseLoaded, set.EyeLoaded)
		return out
	}

	monitoring.Logf("mapping: pretrained maps not found, using manual rules; searched %v", out.Searched())
	return out
}

// LoadDir loads a mapping set from dir. It returns an error wrapping os.ErrNotExist
// when dir holds no bs2exp.npy, and a *LoadError when the file is unusable.
// Missing or malformed pose and eye matrices fall back to their defaults.
func LoadDir(dir string, opts Options) (*Set, error) {
	expPath := filepath.Join(dir, ExpressionFile)
	if _, err := os.Stat(expPath); err != nil {
		return nil, fmt.Errorf("stat %s: %w", expPath, err)
	}

	expr, err := readMatrix(expPath, opts.Coefficients)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	set := &Set{Expression: expr, Dir: abs}

	set.Pose, set.PoseLoaded = loadOptional(filepath.Join(dir, PoseFile), PoseChannels, func() *mat.Dense {
		return FallbackPose(opts.JawOpenIndex, opts.JawOpenWeight)
	})
	set.Eye, set.EyeLoaded = loadOptional(filepath.Join(dir, EyeFile), EyeChannels, FallbackEye)

	return set, nil
}

// FallbackPose returns a zero 52×3 matrix with weight at [index][0].
func FallbackPose(index int, weight float64) *mat.Dense {
	m := mat.NewDense(blendshape.NumBlendshapes, PoseChannels, nil)
	if index >= 0 && index < blendshape.NumBlendshapes {
		m.Set(index, 0, weight)
	}
	return m
}

// FallbackEye returns a zero 52×6 matrix.
func FallbackEye() *mat.Dense {
	return mat.NewDense(blendshape.NumBlendshapes, EyeChannels, nil)
}

func loadOptional(path string, cols int, fallback func() *mat.Dense) (*mat.Dense, bool) {
	if _, err := os.Stat(path); err != nil {
		monitoring.Logf("mapping: %s not found, using fallback", filepath.Base(path))
		return fallback(), false
	}
	m, err := readMatrix(path, cols)
	if err != nil {
		monitoring.Logf("mapping: %v; using fallback", err)
		return fallback(), false
	}
	return m, true
}

// readMatrix decodes a 52×cols matrix. cols of zero accepts any positive width.
func readMatrix(path string, cols int) (*mat.Dense, error) {
	t, err := npy.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "malformed array", Err: err}
	}

	shape := t.Shape()
	if len(shape) != 2 || shape[0] != blendshape.NumBlendshapes || shape[1] <= 0 {
		return nil, &LoadError{Path: path, Reason: fmt.Sprintf("shape %v is not 52xN", shape)}
	}
	if cols > 0 && shape[1] != cols {
		return nil, &LoadError{Path: path, Reason: fmt.Sprintf("shape %v, want 52x%d", shape, cols)}
	}

	data, err := npy.Float64s(t)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "unsupported element type", Err: err}
	}
	return mat.NewDense(shape[0], shape[1], data), nil
}
