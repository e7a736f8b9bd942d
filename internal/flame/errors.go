package flame

import "fmt"

// ModelLoadError reports why a statistical face model asset could not be loaded.
type ModelLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ModelLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load face model %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("load face model %s: %s", e.Path, e.Reason)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// DeformationError reports a dimension mismatch during mesh evaluation.
type DeformationError struct {
	Field string
	Got   int
	Want  int
}

func (e *DeformationError) Error() string {
	return fmt.Sprintf("deform mesh: %s has length %d, want %d", e.Field, e.Got, e.Want)
}
