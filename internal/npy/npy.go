// Package npy reads and writes NumPy .npy arrays and .npz archives as gorgonia tensors.
package npy

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gorgonia.org/tensor"
)

// ErrUnsupportedDtype is returned when an array's element type cannot be converted.
var ErrUnsupportedDtype = errors.New("unsupported dtype")

var (
	magic = []byte("\x93NUMPY")

	descrRe   = regexp.MustCompile(`'descr':\s*'([<>|=]?[a-zA-Z]\d*)'`)
	fortranRe = regexp.MustCompile(`'fortran_order':\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)
)

// header is the parsed dictionary of a .npy preamble.
type header struct {
	descr   string
	fortran bool
	shape   []int
}

// Read decodes a single .npy array. Eight-byte integer arrays (numpy's default
// int) are decoded here into []int64 or []uint64 backing; everything else goes
// through gorgonia's ReadNpy.
func Read(r io.Reader) (*tensor.Dense, error) {
	br := bufio.NewReader(r)
	raw, hdr, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	switch hdr.descr[1:] {
	case "i8", "u8":
		return readWideInts(br, hdr)
	}

	t := new(tensor.Dense)
	if err := t.ReadNpy(io.MultiReader(bytes.NewReader(raw), br)); err != nil {
		return nil, err
	}
	return t, nil
}

// readHeader consumes the preamble and returns its raw bytes with the parsed
// dictionary.
func readHeader(r io.Reader) ([]byte, header, error) {
	var hdr header

	prefix := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, hdr, fmt.Errorf("read npy magic: %w", err)
	}
	if !bytes.Equal(prefix[:len(magic)], magic) {
		return nil, hdr, errors.New("not a npy array")
	}

	var size int
	var sizeBytes []byte
	switch major := prefix[len(magic)]; major {
	case 1:
		sizeBytes = make([]byte, 2)
		if _, err := io.ReadFull(r, sizeBytes); err != nil {
			return nil, hdr, fmt.Errorf("read npy header length: %w", err)
		}
		size = int(binary.LittleEndian.Uint16(sizeBytes))
	case 2, 3:
		sizeBytes = make([]byte, 4)
		if _, err := io.ReadFull(r, sizeBytes); err != nil {
			return nil, hdr, fmt.Errorf("read npy header length: %w", err)
		}
		size = int(binary.LittleEndian.Uint32(sizeBytes))
	default:
		return nil, hdr, fmt.Errorf("unsupported npy version %d", major)
	}

	dict := make([]byte, size)
	if _, err := io.ReadFull(r, dict); err != nil {
		return nil, hdr, fmt.Errorf("read npy header: %w", err)
	}

	m := descrRe.FindSubmatch(dict)
	if m == nil {
		return nil, hdr, errors.New("npy header has no descr")
	}
	hdr.descr = string(m[1])
	if c := hdr.descr[0]; c != '<' && c != '>' && c != '|' && c != '=' {
		hdr.descr = "=" + hdr.descr
	}
	if m := fortranRe.FindSubmatch(dict); m != nil {
		hdr.fortran = string(m[1]) == "True"
	}
	m = shapeRe.FindSubmatch(dict)
	if m == nil {
		return nil, hdr, errors.New("npy header has no shape")
	}
	for _, dim := range strings.Split(string(m[1]), ",") {
		dim = strings.TrimSpace(dim)
		if dim == "" {
			continue
		}
		n, err := strconv.Atoi(dim)
		if err != nil || n < 0 {
			return nil, hdr, fmt.Errorf("npy shape dimension %q", dim)
		}
		hdr.shape = append(hdr.shape, n)
	}

	raw := make([]byte, 0, len(prefix)+len(sizeBytes)+len(dict))
	raw = append(raw, prefix...)
	raw = append(raw, sizeBytes...)
	raw = append(raw, dict...)
	return raw, hdr, nil
}

func readWideInts(r io.Reader, hdr header) (*tensor.Dense, error) {
	if hdr.fortran {
		return nil, fmt.Errorf("%w: fortran-ordered %s", ErrUnsupportedDtype, hdr.descr)
	}

	var order binary.ByteOrder = binary.LittleEndian
	if hdr.descr[0] == '>' {
		order = binary.BigEndian
	}

	shape := hdr.shape
	if len(shape) == 0 {
		shape = []int{1}
	}
	n := 1
	for _, d := range shape {
		n *= d
	}

	var backing interface{}
	if hdr.descr[1] == 'u' {
		backing = make([]uint64, n)
	} else {
		backing = make([]int64, n)
	}
	if err := binary.Read(r, order, backing); err != nil {
		return nil, fmt.Errorf("read %s data: %w", hdr.descr, err)
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing)), nil
}

// ReadFile decodes the .npy file at p.
func ReadFile(p string) (*tensor.Dense, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(p), err)
	}
	return t, nil
}

// ReadArchive decodes every .npy member of the .npz archive at p, keyed by member
// name without the extension.
func ReadArchive(p string) (map[string]*tensor.Dense, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	arrays := make(map[string]*tensor.Dense, len(zr.File))
	for _, zf := range zr.File {
		if !strings.HasSuffix(zf.Name, ".npy") {
			continue
		}
		name := strings.TrimSuffix(path.Base(zf.Name), ".npy")

		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("open member %s: %w", zf.Name, err)
		}
		t, err := Read(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("decode member %s: %w", zf.Name, err)
		}
		arrays[name] = t
	}
	return arrays, nil
}

// Write encodes t as a .npy array.
func Write(w io.Writer, t *tensor.Dense) error {
	return t.WriteNpy(w)
}

// WriteFile encodes t into a .npy file at p.
func WriteFile(p string, t *tensor.Dense) error {
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if err := t.WriteNpy(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteArchive stores arrays as members of a .npz archive at p.
func WriteArchive(p string, arrays map[string]*tensor.Dense) error {
	f, err := os.Create(p)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(arrays))
	for name := range arrays {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name + ".npy")
		if err != nil {
			f.Close()
			return err
		}
		if err := arrays[name].WriteNpy(w); err != nil {
			f.Close()
			return fmt.Errorf("encode member %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Float64s returns a float64 copy of t's elements in row-major order.
func Float64s(t *tensor.Dense) ([]float64, error) {
	switch data := t.Data().(type) {
	case []float64:
		out := make([]float64, len(data))
		copy(out, data)
		return out, nil
	case []float32:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDtype, t.Dtype())
	}
}

// Ints returns an int copy of t's elements in row-major order.
func Ints(t *tensor.Dense) ([]int, error) {
	switch data := t.Data().(type) {
	case []int:
		out := make([]int, len(data))
		copy(out, data)
		return out, nil
	case []int32:
		return convertInts(data), nil
	case []int64:
		return convertInts(data), nil
	case []uint32:
		return convertInts(data), nil
	case []uint64:
		return convertInts(data), nil
	case []uint:
		return convertInts(data), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDtype, t.Dtype())
	}
}

func convertInts[T int32 | int64 | uint32 | uint64 | uint](data []T) []int {
	out := make([]int, len(data))
	for i, v := range data {
		out[i] = int(v)
	}
	return out
}

// Matrix builds a float64 tensor of the given shape over data.
func Matrix(data []float64, shape ...int) *tensor.Dense {
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
}
