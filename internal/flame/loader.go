package flame

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gorgonia.org/tensor"

	"github.com/ayusman/abhinaya/internal/npy"
)

// Archive member names.
const (
	memberTemplate  = "v_template"
	memberShapeDirs = "shapedirs"
	memberFaces     = "f"
)

// Load reads a FLAME model from a .npz archive holding v_template [V×3],
// shapedirs [V×3×N] with N ≥ ExpressionOffset+ExpressionCoefficients and f [F×3].
func Load(path string) (*Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &ModelLoadError{Path: path, Reason: "model file not found", Err: err}
	}

	arrays, err := npy.ReadArchive(path)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Reason: "malformed archive", Err: err}
	}

	fail := func(reason string, err error) (*Model, error) {
		return nil, &ModelLoadError{Path: path, Reason: reason, Err: err}
	}

	tmpl, ok := arrays[memberTemplate]
	if !ok {
		return fail("missing field "+memberTemplate, nil)
	}
	dirs, ok := arrays[memberShapeDirs]
	if !ok {
		return fail("missing field "+memberShapeDirs, nil)
	}
	faces, ok := arrays[memberFaces]
	if !ok {
		return fail("missing field "+memberFaces, nil)
	}

	ts := tmpl.Shape()
	if len(ts) != 2 || ts[1] != 3 {
		return fail(fmt.Sprintf("v_template shape %v is not V×3", ts), nil)
	}
	v := ts[0]

	ds := dirs.Shape()
	if len(ds) != 3 || ds[1] != 3 {
		return fail(fmt.Sprintf("shapedirs shape %v is not V×3×N", ds), nil)
	}
	if ds[0] != v {
		return fail("shapedirs vertex count does not match v_template", nil)
	}
	if ds[2] < ExpressionOffset+ExpressionCoefficients {
		return fail("shapedirs has too few components for the expression basis", nil)
	}

	fs := faces.Shape()
	if len(fs) != 2 || fs[1] != 3 {
		return fail(fmt.Sprintf("faces shape %v is not F×3", fs), nil)
	}

	meanData, err := npy.Float64s(tmpl)
	if err != nil {
		return fail("decode v_template", err)
	}
	basis, err := expressionBasis(dirs)
	if err != nil {
		return fail("decode shapedirs", err)
	}
	idx, err := npy.Ints(faces)
	if err != nil {
		return fail("decode faces", err)
	}

	mean := make([]r3.Vec, v)
	for i := range mean {
		mean[i] = r3.Vec{X: meanData[3*i], Y: meanData[3*i+1], Z: meanData[3*i+2]}
	}
	tris := make([][3]int, fs[0])
	for i := range tris {
		tris[i] = [3]int{idx[3*i], idx[3*i+1], idx[3*i+2]}
	}

	m, err := NewModel(mean, basis, ExpressionCoefficients, tris)
	if err != nil {
		return fail("inconsistent model", err)
	}
	return m, nil
}

// expressionBasis cuts shapedirs[:, :, 300:400] and returns it row-major.
func expressionBasis(dirs *tensor.Dense) ([]float64, error) {
	view, err := dirs.Slice(nil, nil, tensor.S(ExpressionOffset, ExpressionOffset+ExpressionCoefficients))
	if err != nil {
		return nil, err
	}
	sliced, ok := view.Materialize().(*tensor.Dense)
	if !ok {
		return nil, npy.ErrUnsupportedDtype
	}
	return npy.Float64s(sliced)
}
