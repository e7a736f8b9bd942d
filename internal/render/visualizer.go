// Package render draws deformed face meshes.
package render

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"
)

// Visualizer receives the posed mesh once per processed frame. Every call
// carries the same number of vertices.
type Visualizer interface {
	Update(vertices []r3.Vec) error
	Close() error
}

// Multi fans an update out to several visualizers in order.
type Multi []Visualizer

// Update forwards vertices to every visualizer and joins their errors.
func (m Multi) Update(vertices []r3.Vec) error {
	var errs []error
	for _, v := range m {
		if err := v.Update(vertices); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every visualizer.
func (m Multi) Close() error {
	var errs []error
	for _, v := range m {
		if err := v.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a Visualizer that drops every update.
type Discard struct{}

func (Discard) Update([]r3.Vec) error { return nil }
func (Discard) Close() error          { return nil }
