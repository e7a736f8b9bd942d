package npy

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestReadWrite(t *testing.T) {
	t.Run("float64 matrix round trip", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, Matrix([]float64{1, 2, 3, 4, 5, 6}, 2, 3)))

		got, err := Read(&buf)
		require.NoError(t, err)

		assert.Equal(t, tensor.Shape{2, 3}, got.Shape())
		data, err := Float64s(got)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, data)
	})

	t.Run("float32 converts to float64", func(t *testing.T) {
		src := tensor.New(tensor.WithShape(3), tensor.WithBacking([]float32{0.5, -1, 2}))
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, src))

		got, err := Read(&buf)
		require.NoError(t, err)

		data, err := Float64s(got)
		require.NoError(t, err)
		assert.Equal(t, []float64{0.5, -1, 2}, data)
	})

	t.Run("uint32 faces convert to int", func(t *testing.T) {
		src := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking([]uint32{0, 1, 2, 2, 1, 3}))
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, src))

		got, err := Read(&buf)
		require.NoError(t, err)

		idx, err := Ints(got)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 2, 1, 3}, idx)

		_, err = Float64s(got)
		assert.True(t, errors.Is(err, ErrUnsupportedDtype))
	})

	t.Run("int64 faces convert to int", func(t *testing.T) {
		src := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking([]int64{0, 1, 2, 2, 1, 3}))
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, src))

		got, err := Read(&buf)
		require.NoError(t, err)

		assert.Equal(t, tensor.Shape{2, 3}, got.Shape())
		idx, err := Ints(got)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 2, 1, 3}, idx)
	})

	t.Run("uint64 faces convert to int", func(t *testing.T) {
		src := tensor.New(tensor.WithShape(1, 3), tensor.WithBacking([]uint64{4, 5, 6}))
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, src))

		got, err := Read(&buf)
		require.NoError(t, err)

		idx, err := Ints(got)
		require.NoError(t, err)
		assert.Equal(t, []int{4, 5, 6}, idx)
	})

	t.Run("big endian int64 written by numpy", func(t *testing.T) {
		got, err := Read(bytes.NewReader(rawNpy(t, ">i8", "(3,)", binary.BigEndian, []int64{7, -1, 300})))
		require.NoError(t, err)

		assert.Equal(t, tensor.Shape{3}, got.Shape())
		idx, err := Ints(got)
		require.NoError(t, err)
		assert.Equal(t, []int{7, -1, 300}, idx)
	})

	t.Run("truncated int64 data", func(t *testing.T) {
		data := rawNpy(t, "<i8", "(2, 3)", binary.LittleEndian, []int64{0, 1, 2})
		_, err := Read(bytes.NewReader(data))
		assert.Error(t, err)
	})

	t.Run("garbage input is rejected", func(t *testing.T) {
		_, err := Read(bytes.NewReader([]byte("not a numpy file at all")))
		assert.Error(t, err)
	})
}

// rawNpy builds a version 1.0 .npy file by hand, the way numpy.save lays it out.
func rawNpy(t *testing.T, descr, shape string, order binary.ByteOrder, data []int64) []byte {
	t.Helper()
	dict := "{'descr': '" + descr + "', 'fortran_order': False, 'shape': " + shape + ", }"
	for (10+len(dict)+1)%64 != 0 {
		dict += " "
	}
	dict += "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(dict))))
	buf.WriteString(dict)
	require.NoError(t, binary.Write(&buf, order, data))
	return buf.Bytes()
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()

	t.Run("single array file", func(t *testing.T) {
		p := filepath.Join(dir, "m.npy")
		require.NoError(t, WriteFile(p, Matrix([]float64{7, 8}, 1, 2)))

		got, err := ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{1, 2}, got.Shape())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(dir, "missing.npy"))
		assert.Error(t, err)
	})

	t.Run("archive with int64 faces", func(t *testing.T) {
		p := filepath.Join(dir, "faces.npz")
		require.NoError(t, WriteArchive(p, map[string]*tensor.Dense{
			"f": tensor.New(tensor.WithShape(2, 3), tensor.WithBacking([]int64{0, 1, 2, 1, 2, 3})),
		}))

		arrays, err := ReadArchive(p)
		require.NoError(t, err)
		idx, err := Ints(arrays["f"])
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 1, 2, 3}, idx)
	})

	t.Run("archive round trip", func(t *testing.T) {
		p := filepath.Join(dir, "model.npz")
		require.NoError(t, WriteArchive(p, map[string]*tensor.Dense{
			"a": Matrix([]float64{1, 2, 3}, 3),
			"b": Matrix([]float64{4, 5, 6, 7}, 2, 2),
		}))

		arrays, err := ReadArchive(p)
		require.NoError(t, err)
		require.Len(t, arrays, 2)
		assert.Equal(t, tensor.Shape{3}, arrays["a"].Shape())
		assert.Equal(t, tensor.Shape{2, 2}, arrays["b"].Shape())
	})
}
