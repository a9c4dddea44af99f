package kernel

import (
	"math"
	"testing"
)

func regularField(t *testing.T, lat, lon []float64) *Field {
	t.Helper()
	vals := make([]float64, len(lat)*len(lon))
	for j := range lat {
		for i := range lon {
			vals[j*len(lon)+i] = float64(j*100 + i)
		}
	}
	f, err := NewRegular(lat, lon, vals)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestCommonBBox(t *testing.T) {
	a := regularField(t, []float64{10, 11, 12}, []float64{100, 101})
	b := regularField(t, []float64{10.5, 11.5}, []float64{100.5, 101.5, 102.5})

	minLat, maxLat, minLon, maxLon, err := CommonBBox([]*Field{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if minLat != 10.5 || maxLat != 11.5 || minLon != 100.5 || maxLon != 101 {
		t.Fatalf("bbox = [%v,%v]x[%v,%v]", minLat, maxLat, minLon, maxLon)
	}
}

func TestCommonBBoxEmpty(t *testing.T) {
	if _, _, _, _, err := CommonBBox(nil); err != ErrInvalidGrid {
		t.Fatalf("err = %v, want ErrInvalidGrid", err)
	}
}

func TestRegridToRegularSameAxes(t *testing.T) {
	lat := []float64{10, 11, 12}
	lon := []float64{100, 101}
	f := regularField(t, lat, lon)

	out, err := RegridToRegular(f, lat, lon)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out.Values {
		if v != f.Values[i] {
			t.Fatalf("out[%d] = %v, want %v", i, v, f.Values[i])
		}
	}
}

func TestRegridProjectedToRegular(t *testing.T) {
	lat2d := []float64{10, 10, 12, 12}
	lon2d := []float64{100, 102, 100, 102}
	vals := []float64{1, 2, 3, 4}
	f, err := NewProjected(lat2d, lon2d, vals, 2, 2)
	if err != nil {
		t.Fatal(err)
	}

	out, err := RegridToRegular(f, []float64{10, 12}, []float64{100, 102})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 2, 3, 4}
	for i, w := range want {
		if out.Values[i] != w {
			t.Errorf("out[%d] = %v, want %v", i, out.Values[i], w)
		}
	}
}

func TestNearestScatteredEmpty(t *testing.T) {
	got := nearestScattered(nil, nil, nil, 0, 0)
	if !math.IsNaN(got) {
		t.Fatalf("got %v, want NaN", got)
	}
}
