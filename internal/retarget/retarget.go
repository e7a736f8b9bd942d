// Package retarget converts per-frame blendshape scores into FLAME expression and
// pose parameters and evaluates the deformed mesh.
package retarget

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/abhinaya/internal/blendshape"
	"github.com/ayusman/abhinaya/internal/flame"
	"github.com/ayusman/abhinaya/internal/mapping"
	"github.com/ayusman/abhinaya/internal/monitoring"
)

// Rule drives one expression slot from one blendshape score in manual mode.
type Rule struct {
	Name       string
	Slot       int
	Multiplier float64
}

// DefaultRules are the hand-tuned manual mode rules.
var DefaultRules = []Rule{
	{Name: "jawOpen", Slot: 0, Multiplier: 8.0},
	{Name: "mouthSmileLeft", Slot: 1, Multiplier: 6.0},
	{Name: "mouthSmileRight", Slot: 2, Multiplier: 6.0},
	{Name: "browInnerUp", Slot: 3, Multiplier: 5.0},
	{Name: "eyeBlinkLeft", Slot: 4, Multiplier: 8.0},
	{Name: "eyeBlinkRight", Slot: 5, Multiplier: 8.0},
	{Name: "mouthFunnel", Slot: 6, Multiplier: 6.0},
	{Name: "mouthPucker", Slot: 7, Multiplier: 6.0},
}

// Config holds engine options.
type Config struct {
	// Amplification scales pretrained expression coefficients (default: 2.0).
	Amplification float64

	// ManualRules replaces DefaultRules when non-empty.
	ManualRules []Rule
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Amplification: 2.0,
		ManualRules:   DefaultRules,
	}
}

// Engine maps blendshape frames to FLAME parameters. The mode is fixed at
// construction and an Engine keeps no per-frame state.
type Engine struct {
	model *flame.Model
	mode  mapping.Mode
	set   *mapping.Set
	cfg   Config
	rules []Rule
}

// New builds an engine for model using the discovered mappings. A pretrained
// set whose width does not match the model is dropped in favour of manual mode.
func New(model *flame.Model, outcome mapping.Outcome, cfg Config) *Engine {
	e := &Engine{model: model, mode: mapping.ModeManual, cfg: cfg}

	k := model.NumCoefficients()
	if outcome.Mode == mapping.ModePretrained && outcome.Set != nil {
		if outcome.Set.NumCoefficients() == k {
			e.mode = mapping.ModePretrained
			e.set = outcome.Set
		} else {
			monitoring.Logf("retarget: mapping has %d coefficients, model has %d; using manual rules",
				outcome.Set.NumCoefficients(), k)
		}
	}

	rules := cfg.ManualRules
	if len(rules) == 0 {
		rules = DefaultRules
	}
	for _, r := range rules {
		if r.Slot < 0 || r.Slot >= k {
			monitoring.Logf("retarget: ignoring rule %s -> slot %d (model has %d coefficients)", r.Name, r.Slot, k)
			continue
		}
		e.rules = append(e.rules, r)
	}
	return e
}

// Mode returns the active retargeting mode.
func (e *Engine) Mode() mapping.Mode {
	return e.mode
}

// Model returns the face model the engine deforms.
func (e *Engine) Model() *flame.Model {
	return e.model
}

// Retarget converts one frame of blendshape scores into FLAME parameters. The
// result depends on frame alone.
func (e *Engine) Retarget(frame blendshape.Frame) Result {
	if e.mode == mapping.ModePretrained {
		return e.pretrained(frame)
	}
	return e.manual(frame)
}

func (e *Engine) pretrained(frame blendshape.Frame) *Pretrained {
	v := blendshape.Vectorize(frame)
	bs := mat.NewVecDense(blendshape.NumBlendshapes, v[:])

	var expr, jaw, eye mat.VecDense
	expr.MulVec(e.set.Expression.T(), bs)
	jaw.MulVec(e.set.Pose.T(), bs)
	eye.MulVec(e.set.Eye.T(), bs)

	res := &Pretrained{Expression: append([]float64(nil), expr.RawVector().Data...)}
	floats.Scale(e.cfg.Amplification, res.Expression)
	copy(res.JawPose[:], jaw.RawVector().Data)
	copy(res.EyePose[:], eye.RawVector().Data)
	return res
}

func (e *Engine) manual(frame blendshape.Frame) *Manual {
	expr := make([]float64, e.model.NumCoefficients())
	for _, r := range e.rules {
		if score, ok := frame.Score(r.Name); ok {
			expr[r.Slot] = score * r.Multiplier
		}
	}
	return &Manual{Expression: expr}
}

// Deform evaluates the mesh for res into dst in place.
func (e *Engine) Deform(res Result, dst *flame.Mesh) error {
	params := flame.Params{Expression: res.Coefficients()}
	if p, ok := res.(*Pretrained); ok {
		params.JawPose = p.JawPose
	}
	return e.model.Deform(params, dst)
}
