// Package kernel is the coordinate/array layer: a labelled 2-D field
// (latitude, longitude, values) supporting nearest-neighbour point
// extraction and regrid-to-regular-grid, over either a 1-D monotonic
// axis grid or a 2-D projected auxiliary-coordinate grid.
//
// Adapted from the grib2hrrr decoder's Lambert lookup math, generalized
// into a grid-shape-agnostic kernel that both Lambert-projected
// (NAM/HRRR) and regular lat/lon (GFS/ECMWF) fetchers feed into.
package kernel

import (
	"errors"
	"fmt"
)

// ErrInvalidGrid is returned when a field is neither Regular nor Projected.
var ErrInvalidGrid = errors.New("kernel: invalid grid")

// Shape distinguishes the two coordinate representations a Field may carry.
type Shape int

const (
	// Regular fields have independent 1-D monotonic lat/lon axes.
	Regular Shape = iota
	// Projected fields carry 2-D auxiliary lat/lon coordinate arrays of the
	// same shape as Values (e.g. Lambert Conformal grids).
	Projected
)

// Field is a 2-D floating-point array indexed by latitude and longitude,
// one of two coordinate shapes. Values is row-major [nj][ni] flattened to
// [nj*ni]: index j*ni+i, i eastward; j runs northward for projected
// fields and in LatAxis order (which may descend) for regular fields.
// Missing cells are NaN.
type Field struct {
	Shape Shape

	// Regular fields only.
	LatAxis []float64 // length Nj, strictly monotonic
	LonAxis []float64 // length Ni, strictly monotonic

	// Projected fields only.
	Lat2D []float64 // length Ni*Nj, same indexing as Values
	Lon2D []float64

	Ni, Nj int
	Values []float64
}

func (f *Field) valid() bool {
	if f.Ni <= 0 || f.Nj <= 0 || len(f.Values) != f.Ni*f.Nj {
		return false
	}
	switch f.Shape {
	case Regular:
		return len(f.LatAxis) == f.Nj && len(f.LonAxis) == f.Ni
	case Projected:
		return len(f.Lat2D) == f.Ni*f.Nj && len(f.Lon2D) == f.Ni*f.Nj
	default:
		return false
	}
}

// NewRegular constructs a Regular-shape field. Returns ErrInvalidGrid if the
// axis lengths don't match values.
func NewRegular(latAxis, lonAxis, values []float64) (*Field, error) {
	nj, ni := len(latAxis), len(lonAxis)
	f := &Field{
		Shape:   Regular,
		LatAxis: latAxis,
		LonAxis: lonAxis,
		Ni:      ni,
		Nj:      nj,
		Values:  values,
	}
	if !f.valid() {
		return nil, fmt.Errorf("%w: regular field dims ni=%d nj=%d len(values)=%d", ErrInvalidGrid, ni, nj, len(values))
	}
	return f, nil
}

// NewProjected constructs a Projected-shape field.
func NewProjected(lat2d, lon2d, values []float64, ni, nj int) (*Field, error) {
	f := &Field{
		Shape:  Projected,
		Lat2D:  lat2d,
		Lon2D:  lon2d,
		Ni:     ni,
		Nj:     nj,
		Values: values,
	}
	if !f.valid() {
		return nil, fmt.Errorf("%w: projected field dims ni=%d nj=%d", ErrInvalidGrid, ni, nj)
	}
	return f, nil
}
