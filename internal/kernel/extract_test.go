package kernel

import (
	"math"
	"testing"
)

func TestExtractPointRegular(t *testing.T) {
	lat := []float64{10, 11, 12}
	lon := []float64{100, 101, 102, 103}
	vals := make([]float64, 12)
	for j := 0; j < 3; j++ {
		for i := 0; i < 4; i++ {
			vals[j*4+i] = float64(j*10 + i)
		}
	}
	f, err := NewRegular(lat, lon, vals)
	if err != nil {
		t.Fatal(err)
	}

	got, err := ExtractPoint(f, 11.1, 101.9)
	if err != nil {
		t.Fatal(err)
	}
	if got != 12 { // j=1 (lat 11), i=2 (lon 102) -> 10+2=12
		t.Fatalf("got %v, want 12", got)
	}
}

// TestExtractPointLambertCell mirrors the spec's S6 scenario: a projected
// field queried at the exact centre of cell (i=5, j=7) returns that cell's
// value.
func TestExtractPointLambertCell(t *testing.T) {
	const ni, nj = 10, 10
	lat2d := make([]float64, ni*nj)
	lon2d := make([]float64, ni*nj)
	vals := make([]float64, ni*nj)
	for j := 0; j < nj; j++ {
		for i := 0; i < ni; i++ {
			idx := j*ni + i
			lat2d[idx] = 30.0 + float64(j)*0.1
			lon2d[idx] = -100.0 + float64(i)*0.1
			vals[idx] = float64(idx)
		}
	}
	f, err := NewProjected(lat2d, lon2d, vals, ni, nj)
	if err != nil {
		t.Fatal(err)
	}

	const i, j = 5, 7
	cellLat := lat2d[j*ni+i]
	cellLon := lon2d[j*ni+i]
	got, err := ExtractPoint(f, cellLat, cellLon)
	if err != nil {
		t.Fatal(err)
	}
	want := vals[j*ni+i]
	if got != want {
		t.Fatalf("got %v, want %v (cell %d,%d)", got, want, i, j)
	}
}

func TestExtractPointPrefersNonNaN(t *testing.T) {
	lat2d := []float64{0, 0}
	lon2d := []float64{0, 1}
	vals := []float64{math.NaN(), 5}
	f, err := NewProjected(lat2d, lon2d, vals, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ExtractPoint(f, 0, 0.5) // equidistant from the NaN cell and the non-NaN cell
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Fatalf("got %v, want 5 (non-NaN cell, since not strictly closer NaN)", got)
	}
}

func TestExtractPointNaNWhenStrictlyCloser(t *testing.T) {
	lat2d := []float64{0, 0}
	lon2d := []float64{0, 10}
	vals := []float64{math.NaN(), 5}
	f, err := NewProjected(lat2d, lon2d, vals, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ExtractPoint(f, 0, 0.1) // strictly closer to the NaN cell
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(got) {
		t.Fatalf("got %v, want NaN", got)
	}
}

func TestExtractPointInvalidGrid(t *testing.T) {
	f := &Field{Shape: Shape(99)}
	if _, err := ExtractPoint(f, 0, 0); err != ErrInvalidGrid {
		t.Fatalf("err = %v, want ErrInvalidGrid", err)
	}
}
