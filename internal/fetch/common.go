package fetch

import (
	"fmt"
	"math"

	"github.com/synopticspread/spread/internal/domain"
	"github.com/synopticspread/spread/internal/grib2"
	"github.com/synopticspread/spread/internal/kernel"
)

// toKernelField converts a decoded GRIB2 message into the kernel's
// coordinate-tagged Field, materializing the 2-D auxiliary lat/lon arrays
// for projected (Lambert) grids and the 1-D axes for regular grids.
func toKernelField(msg *grib2.Message) (*kernel.Field, error) {
	switch msg.Kind {
	case grib2.GridRegular:
		return kernel.NewRegular(msg.Regular.LatAxis(), msg.Regular.LonAxis(), msg.Vals)
	case grib2.GridLambert:
		ni, nj := msg.Lambert.Ni, msg.Lambert.Nj
		lat2d := make([]float64, ni*nj)
		lon2d := make([]float64, ni*nj)
		for j := 0; j < nj; j++ {
			for i := 0; i < ni; i++ {
				lat, lon := msg.Lambert.IjToLatLon(i, j)
				idx := j*ni + i
				lat2d[idx] = lat
				lon2d[idx] = lon
			}
		}
		return kernel.NewProjected(lat2d, lon2d, msg.Vals, ni, nj)
	default:
		return nil, fmt.Errorf("%w: unknown grid kind", domain.ErrInvalidGrid)
	}
}

// deriveWindSpeed computes sqrt(u^2+v^2) cell-wise. u and v must share
// identical coordinate shape — the caller decoded them from the same
// model run, so this always holds.
func deriveWindSpeed(u, v *kernel.Field) (*kernel.Field, error) {
	if len(u.Values) != len(v.Values) {
		return nil, fmt.Errorf("%w: U/V grid size mismatch (%d vs %d)", domain.ErrUnexpectedSchema, len(u.Values), len(v.Values))
	}
	out := make([]float64, len(u.Values))
	for i := range out {
		out[i] = math.Sqrt(u.Values[i]*u.Values[i] + v.Values[i]*v.Values[i])
	}
	speed := *u
	speed.Values = out
	return &speed, nil
}

// ascendingMultiplesOf6 reports whether hours is strictly ascending and
// every element is a multiple of 6, per the ModelRun.forecast_hours
// invariant.
func ascendingMultiplesOf6(hours []int) bool {
	prev := -1
	for _, h := range hours {
		if h <= prev || h%6 != 0 {
			return false
		}
		prev = h
	}
	return true
}
