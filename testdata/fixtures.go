// Package testdata builds small synthetic model and mapping assets for tests.
package testdata

import (
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
	"gorgonia.org/tensor"

	"github.com/ayusman/abhinaya/internal/blendshape"
	"github.com/ayusman/abhinaya/internal/flame"
	"github.com/ayusman/abhinaya/internal/mapping"
	"github.com/ayusman/abhinaya/internal/npy"
)

// ShapeComponents is the number of shape directions in the synthetic model,
// enough to cover the expression range.
const ShapeComponents = flame.ExpressionOffset + flame.ExpressionCoefficients

// Tetrahedron vertices and faces used by the synthetic model.
var (
	TetraVertices = [][3]float64{
		{0, 0.1, 0},
		{-0.1, -0.05, 0},
		{0.1, -0.05, 0},
		{0, 0, 0.1},
	}
	TetraFaces = [][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}
)

// ExpressionStep is how far expression coefficient k moves vertex k%4 along
// axis k%3 per unit.
const ExpressionStep = 0.01

// WriteModel writes a tetrahedron FLAME archive into dir and returns its path.
func WriteModel(dir string) (string, error) {
	v := len(TetraVertices)
	tmpl := make([]float64, 0, v*3)
	for _, p := range TetraVertices {
		tmpl = append(tmpl, p[0], p[1], p[2])
	}

	dirs := make([]float64, v*3*ShapeComponents)
	for k := 0; k < flame.ExpressionCoefficients; k++ {
		vert, axis := k%v, k%3
		dirs[(vert*3+axis)*ShapeComponents+flame.ExpressionOffset+k] = ExpressionStep
	}

	faces := make([]int64, 0, len(TetraFaces)*3)
	for _, f := range TetraFaces {
		faces = append(faces, int64(f[0]), int64(f[1]), int64(f[2]))
	}

	path := filepath.Join(dir, "flame.npz")
	err := npy.WriteArchive(path, map[string]*tensor.Dense{
		"v_template": npy.Matrix(tmpl, v, 3),
		"shapedirs":  npy.Matrix(dirs, v, 3, ShapeComponents),
		"f":          tensor.New(tensor.WithShape(len(TetraFaces), 3), tensor.WithBacking(faces)),
	})
	if err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}
	return path, nil
}

// WriteMappings writes bs2exp, bs2pose and bs2eye into dir. bs2exp maps
// jawOpen to expression coefficient 0 with weight 1 and is zero elsewhere.
func WriteMappings(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create mapping dir: %w", err)
	}

	exp := make([]float64, blendshape.NumBlendshapes*flame.ExpressionCoefficients)
	exp[blendshape.JawOpen*flame.ExpressionCoefficients] = 1

	pose := make([]float64, blendshape.NumBlendshapes*mapping.PoseChannels)
	pose[blendshape.JawOpen*mapping.PoseChannels] = 0.5

	eye := make([]float64, blendshape.NumBlendshapes*mapping.EyeChannels)

	files := map[string]*tensor.Dense{
		mapping.ExpressionFile: npy.Matrix(exp, blendshape.NumBlendshapes, flame.ExpressionCoefficients),
		mapping.PoseFile:       npy.Matrix(pose, blendshape.NumBlendshapes, mapping.PoseChannels),
		mapping.EyeFile:        npy.Matrix(eye, blendshape.NumBlendshapes, mapping.EyeChannels),
	}
	for name, t := range files {
		if err := npy.WriteFile(filepath.Join(dir, name), t); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// BlankFrames returns n black camera frames. The caller owns them.
func BlankFrames(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	return frames
}
