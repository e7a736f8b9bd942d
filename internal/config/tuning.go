// Package config loads the retargeting tuning file. Every field is optional; the
// Get* accessors return the built-in default for any field the file omits.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/ayusman/abhinaya/internal/blendshape"
	"github.com/ayusman/abhinaya/internal/retarget"
)

// DefaultConfigPath is where the command line looks for a tuning file when none is given.
const DefaultConfigPath = "config/tuning.json"

const maxFileSize = 1 * 1024 * 1024

// ManualRule drives one expression slot from one blendshape in manual mode.
type ManualRule struct {
	Name       string  `json:"name"`
	Slot       int     `json:"slot"`
	Multiplier float64 `json:"multiplier"`
}

// DefaultManualRules are the engine's built-in manual rules in tuning file form.
var DefaultManualRules = FromRules(retarget.DefaultRules)

// FromRules converts engine rules into their tuning file form.
func FromRules(rules []retarget.Rule) []ManualRule {
	out := make([]ManualRule, len(rules))
	for i, r := range rules {
		out[i] = ManualRule{Name: r.Name, Slot: r.Slot, Multiplier: r.Multiplier}
	}
	return out
}

// Rule converts r into an engine rule.
func (r ManualRule) Rule() retarget.Rule {
	return retarget.Rule{Name: r.Name, Slot: r.Slot, Multiplier: r.Multiplier}
}

// TuningConfig is the root of the tuning file.
type TuningConfig struct {
	// Retargeting
	Amplification *float64     `json:"amplification,omitempty"`
	ManualRules   []ManualRule `json:"manual_rules,omitempty"`
	JawOpenIndex  *int         `json:"jaw_open_index,omitempty"`
	JawOpenWeight *float64     `json:"jaw_open_weight,omitempty"`

	// Orientation
	BaseYawDeg  *float64 `json:"base_yaw_deg,omitempty"`
	BaseTiltDeg *float64 `json:"base_tilt_deg,omitempty"`
	YawSign     *float64 `json:"yaw_sign,omitempty"`

	// Head pose landmarks
	NoseIndex     *int `json:"nose_index,omitempty"`
	LeftEyeIndex  *int `json:"left_eye_index,omitempty"`
	RightEyeIndex *int `json:"right_eye_index,omitempty"`

	// Smoothing factors in (0, 1]; 1 disables smoothing.
	PoseSmoothing       *float64 `json:"pose_smoothing,omitempty"`
	ExpressionSmoothing *float64 `json:"expression_smoothing,omitempty"`

	// Diagnostics
	StatsEvery *int `json:"stats_every,omitempty"`

	// Extra mapping directories probed after the configured path and the
	// ./mappings defaults.
	MappingCandidates []string `json:"mapping_candidates,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with every field unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its default.
func DefaultTuningConfig() *TuningConfig {
	c := EmptyTuningConfig()
	return &TuningConfig{
		Amplification:       ptrFloat64(c.GetAmplification()),
		ManualRules:         c.GetManualRules(),
		JawOpenIndex:        ptrInt(c.GetJawOpenIndex()),
		JawOpenWeight:       ptrFloat64(c.GetJawOpenWeight()),
		BaseYawDeg:          ptrFloat64(c.GetBaseYawDeg()),
		BaseTiltDeg:         ptrFloat64(c.GetBaseTiltDeg()),
		YawSign:             ptrFloat64(c.GetYawSign()),
		NoseIndex:           ptrInt(c.GetNoseIndex()),
		LeftEyeIndex:        ptrInt(c.GetLeftEyeIndex()),
		RightEyeIndex:       ptrInt(c.GetRightEyeIndex()),
		PoseSmoothing:       ptrFloat64(c.GetPoseSmoothing()),
		ExpressionSmoothing: ptrFloat64(c.GetExpressionSmoothing()),
		StatsEvery:          ptrInt(c.GetStatsEvery()),
	}
}

// LoadTuningConfig reads a tuning file. Comments and trailing commas are accepted.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" && ext != ".jsonc" && ext != ".hujson" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return ParseTuningConfig(data)
}

// ParseTuningConfig decodes and validates tuning JSON.
func ParseTuningConfig(data []byte) (*TuningConfig, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(std, cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *TuningConfig) Validate() error {
	if c.Amplification != nil && *c.Amplification < 0 {
		return fmt.Errorf("amplification must be non-negative, got %f", *c.Amplification)
	}

	for i, r := range c.ManualRules {
		if _, ok := blendshape.Index(r.Name); !ok {
			return fmt.Errorf("manual_rules[%d]: unknown blendshape %q", i, r.Name)
		}
		if r.Slot < 0 {
			return fmt.Errorf("manual_rules[%d]: slot must be non-negative, got %d", i, r.Slot)
		}
	}

	if c.JawOpenIndex != nil && (*c.JawOpenIndex < 0 || *c.JawOpenIndex >= blendshape.NumBlendshapes) {
		return fmt.Errorf("jaw_open_index must be in [0, %d), got %d", blendshape.NumBlendshapes, *c.JawOpenIndex)
	}

	if c.YawSign != nil && *c.YawSign != 1 && *c.YawSign != -1 {
		return fmt.Errorf("yaw_sign must be 1 or -1, got %f", *c.YawSign)
	}

	for name, idx := range map[string]*int{
		"nose_index":      c.NoseIndex,
		"left_eye_index":  c.LeftEyeIndex,
		"right_eye_index": c.RightEyeIndex,
	} {
		if idx != nil && *idx < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, *idx)
		}
	}

	for name, alpha := range map[string]*float64{
		"pose_smoothing":       c.PoseSmoothing,
		"expression_smoothing": c.ExpressionSmoothing,
	} {
		if alpha != nil && (*alpha <= 0 || *alpha > 1) {
			return fmt.Errorf("%s must be in (0, 1], got %f", name, *alpha)
		}
	}

	if c.StatsEvery != nil && *c.StatsEvery < 0 {
		return fmt.Errorf("stats_every must be non-negative, got %d", *c.StatsEvery)
	}

	return nil
}

// GetAmplification returns the pretrained expression gain.
func (c *TuningConfig) GetAmplification() float64 {
	if c.Amplification == nil {
		return 2.0
	}
	return *c.Amplification
}

// GetManualRules returns a copy of the manual rules or the defaults.
func (c *TuningConfig) GetManualRules() []ManualRule {
	if len(c.ManualRules) == 0 {
		return append([]ManualRule(nil), DefaultManualRules...)
	}
	return append([]ManualRule(nil), c.ManualRules...)
}

// GetJawOpenIndex returns the blendshape index used by the fallback jaw mapping.
func (c *TuningConfig) GetJawOpenIndex() int {
	if c.JawOpenIndex == nil {
		return blendshape.JawOpen
	}
	return *c.JawOpenIndex
}

// GetJawOpenWeight returns the fallback jaw mapping weight.
func (c *TuningConfig) GetJawOpenWeight() float64 {
	if c.JawOpenWeight == nil {
		return 0.5
	}
	return *c.JawOpenWeight
}

// GetBaseYawDeg returns the fixed rotation about Z applied before head pose.
func (c *TuningConfig) GetBaseYawDeg() float64 {
	if c.BaseYawDeg == nil {
		return 180
	}
	return *c.BaseYawDeg
}

// GetBaseTiltDeg returns the fixed rotation about X applied before head pose.
func (c *TuningConfig) GetBaseTiltDeg() float64 {
	if c.BaseTiltDeg == nil {
		return -35
	}
	return *c.BaseTiltDeg
}

// GetYawSign returns the sign applied to the estimated yaw.
func (c *TuningConfig) GetYawSign() float64 {
	if c.YawSign == nil {
		return -1
	}
	return *c.YawSign
}

// GetNoseIndex returns the nose tip landmark index.
func (c *TuningConfig) GetNoseIndex() int {
	if c.NoseIndex == nil {
		return 1
	}
	return *c.NoseIndex
}

// GetLeftEyeIndex returns the left eye corner landmark index.
func (c *TuningConfig) GetLeftEyeIndex() int {
	if c.LeftEyeIndex == nil {
		return 33
	}
	return *c.LeftEyeIndex
}

// GetRightEyeIndex returns the right eye corner landmark index.
func (c *TuningConfig) GetRightEyeIndex() int {
	if c.RightEyeIndex == nil {
		return 263
	}
	return *c.RightEyeIndex
}

// GetPoseSmoothing returns the head pose smoothing factor.
func (c *TuningConfig) GetPoseSmoothing() float64 {
	if c.PoseSmoothing == nil {
		return 1
	}
	return *c.PoseSmoothing
}

// GetExpressionSmoothing returns the expression smoothing factor.
func (c *TuningConfig) GetExpressionSmoothing() float64 {
	if c.ExpressionSmoothing == nil {
		return 1
	}
	return *c.ExpressionSmoothing
}

// GetStatsEvery returns the diagnostic interval in frames. Zero disables it.
func (c *TuningConfig) GetStatsEvery() int {
	if c.StatsEvery == nil {
		return 30
	}
	return *c.StatsEvery
}

// GetMappingCandidates returns the extra mapping directories.
func (c *TuningConfig) GetMappingCandidates() []string {
	return append([]string(nil), c.MappingCandidates...)
}
