package kernel

import "math"

// ExtractPoint returns the value at the grid cell nearest to (lat, lon).
//
// Regular grids: independent nearest-index search on each axis.
// Projected grids: squared Euclidean distance in degrees across the full
// (lat, lon) 2-D coordinate arrays; argmin, ties broken by lowest flat
// index. A NaN cell is only returned if it is strictly closer than every
// non-NaN cell — otherwise the nearest non-NaN cell wins even when a NaN
// cell ties it.
func ExtractPoint(f *Field, lat, lon float64) (float64, error) {
	if f == nil || !f.valid() {
		return 0, ErrInvalidGrid
	}
	switch f.Shape {
	case Regular:
		j := nearestAxisIndex(f.LatAxis, lat)
		i := nearestAxisIndex(f.LonAxis, lon)
		return f.Values[j*f.Ni+i], nil
	case Projected:
		return extractProjected(f, lat, lon), nil
	default:
		return 0, ErrInvalidGrid
	}
}

func nearestAxisIndex(axis []float64, target float64) int {
	best := 0
	bestDist := math.Abs(axis[0] - target)
	for k := 1; k < len(axis); k++ {
		d := math.Abs(axis[k] - target)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}
	return best
}

func extractProjected(f *Field, lat, lon float64) float64 {
	bestAnyDist := math.Inf(1)
	bestAnyIdx := -1
	bestNonNaNDist := math.Inf(1)
	bestNonNaNIdx := -1

	for idx := 0; idx < len(f.Values); idx++ {
		dlat := f.Lat2D[idx] - lat
		dlon := f.Lon2D[idx] - lon
		d := dlat*dlat + dlon*dlon
		if d < bestAnyDist {
			bestAnyDist = d
			bestAnyIdx = idx
		}
		if !math.IsNaN(f.Values[idx]) && d < bestNonNaNDist {
			bestNonNaNDist = d
			bestNonNaNIdx = idx
		}
	}

	if bestNonNaNIdx == -1 {
		return f.Values[bestAnyIdx]
	}
	if bestAnyDist < bestNonNaNDist {
		return f.Values[bestAnyIdx]
	}
	return f.Values[bestNonNaNIdx]
}
