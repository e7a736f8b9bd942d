// Package flame holds the FLAME statistical face model: a mean mesh plus a linear
// expression basis, and the evaluation that turns expression coefficients into a mesh.
package flame

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// The expression basis is the slice [ExpressionOffset, ExpressionOffset+ExpressionCoefficients)
// of the model's shape directions. These are fixed by the FLAME release, not tunables.
const (
	ExpressionOffset       = 300
	ExpressionCoefficients = 100
)

// Model is an immutable statistical face model.
type Model struct {
	// MeanVertices is the neutral template mesh.
	MeanVertices []r3.Vec

	// Faces lists triangles as vertex index triplets.
	Faces [][3]int

	// basis is the expression basis flattened to 3V rows by K columns,
	// row 3*v+axis.
	basis *mat.Dense
	mean  *mat.VecDense
}

// Params are the per-frame inputs to Deform.
type Params struct {
	// Expression holds one coefficient per basis component.
	Expression []float64

	// JawPose is accepted for completeness but not applied: the linear
	// model carries no articulated jaw.
	JawPose [3]float64
}

// Mesh is a deformed vertex buffer. Deform overwrites it in place.
type Mesh struct {
	Vertices []r3.Vec
}

// NewModel builds a model from a mean mesh, a row-major [V][3][K] expression basis
// and the triangle list.
func NewModel(mean []r3.Vec, basis []float64, k int, faces [][3]int) (*Model, error) {
	v := len(mean)
	if v == 0 {
		return nil, fmt.Errorf("empty mean mesh")
	}
	if k <= 0 {
		return nil, fmt.Errorf("expression basis has %d components", k)
	}
	if len(basis) != v*3*k {
		return nil, fmt.Errorf("expression basis has %d values, want %d", len(basis), v*3*k)
	}
	for i, f := range faces {
		for _, idx := range f {
			if idx < 0 || idx >= v {
				return nil, fmt.Errorf("face %d references vertex %d of %d", i, idx, v)
			}
		}
	}

	flat := make([]float64, 3*v)
	for i, p := range mean {
		flat[3*i], flat[3*i+1], flat[3*i+2] = p.X, p.Y, p.Z
	}

	return &Model{
		MeanVertices: append([]r3.Vec(nil), mean...),
		Faces:        append([][3]int(nil), faces...),
		basis:        mat.NewDense(3*v, k, append([]float64(nil), basis...)),
		mean:         mat.NewVecDense(3*v, flat),
	}, nil
}

// NumVertices returns V.
func (m *Model) NumVertices() int {
	return len(m.MeanVertices)
}

// NumCoefficients returns K, the expression basis width.
func (m *Model) NumCoefficients() int {
	_, k := m.basis.Dims()
	return k
}

// BasisAt returns the displacement of vertex v along axis (0..2) for component k.
func (m *Model) BasisAt(v, axis, k int) float64 {
	return m.basis.At(3*v+axis, k)
}

// NewMesh returns a mesh initialised to the mean vertices.
func (m *Model) NewMesh() *Mesh {
	return &Mesh{Vertices: append([]r3.Vec(nil), m.MeanVertices...)}
}

// Deform evaluates mean + basis·expression into dst. dst must already hold V vertices
// and is left untouched when an error is returned.
func (m *Model) Deform(p Params, dst *Mesh) error {
	k := m.NumCoefficients()
	if len(p.Expression) != k {
		return &DeformationError{Field: "expression", Got: len(p.Expression), Want: k}
	}
	if dst == nil {
		return &DeformationError{Field: "destination", Got: 0, Want: m.NumVertices()}
	}
	if len(dst.Vertices) != m.NumVertices() {
		return &DeformationError{Field: "destination", Got: len(dst.Vertices), Want: m.NumVertices()}
	}

	var out mat.VecDense
	out.MulVec(m.basis, mat.NewVecDense(k, append([]float64(nil), p.Expression...)))
	out.AddVec(&out, m.mean)

	raw := out.RawVector().Data
	for i := range dst.Vertices {
		dst.Vertices[i] = r3.Vec{X: raw[3*i], Y: raw[3*i+1], Z: raw[3*i+2]}
	}
	return nil
}

// Len returns the number of vertices.
func (m *Mesh) Len() int {
	return len(m.Vertices)
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{Vertices: append([]r3.Vec(nil), m.Vertices...)}
}
