package kernel

import "math"

// MakeAxis produces cell centres at low, low+step, ... while < high.
func MakeAxis(low, high, step float64) []float64 {
	if step <= 0 {
		return nil
	}
	var axis []float64
	for v := low; v < high; v += step {
		axis = append(axis, v)
	}
	return axis
}

// CommonBBox returns the intersection of every input field's axis-aligned
// lat/lon extent: the tightest box contained in all inputs.
func CommonBBox(fields []*Field) (minLat, maxLat, minLon, maxLon float64, err error) {
	if len(fields) == 0 {
		return 0, 0, 0, 0, ErrInvalidGrid
	}
	minLat, maxLat = math.Inf(1), math.Inf(-1)
	minLon, maxLon = math.Inf(1), math.Inf(-1)

	first := true
	for _, f := range fields {
		flo, fhi, glo, ghi, ferr := fieldExtent(f)
		if ferr != nil {
			return 0, 0, 0, 0, ferr
		}
		if first {
			minLat, maxLat, minLon, maxLon = flo, fhi, glo, ghi
			first = false
			continue
		}
		minLat = math.Max(minLat, flo)
		maxLat = math.Min(maxLat, fhi)
		minLon = math.Max(minLon, glo)
		maxLon = math.Min(maxLon, ghi)
	}
	return minLat, maxLat, minLon, maxLon, nil
}

func fieldExtent(f *Field) (minLat, maxLat, minLon, maxLon float64, err error) {
	if f == nil || !f.valid() {
		return 0, 0, 0, 0, ErrInvalidGrid
	}
	switch f.Shape {
	case Regular:
		return extent(f.LatAxis), extentHi(f.LatAxis), extent(f.LonAxis), extentHi(f.LonAxis), nil
	case Projected:
		return extent(f.Lat2D), extentHi(f.Lat2D), extent(f.Lon2D), extentHi(f.Lon2D), nil
	default:
		return 0, 0, 0, 0, ErrInvalidGrid
	}
}

func extent(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func extentHi(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// RegridToRegular nearest-neighbour-interpolates f onto the target axes.
// For Regular sources this resolves to an independent per-axis nearest
// lookup; for Projected sources it flattens the source, drops NaN cells,
// then performs a nearest lookup from each target point (linear scan —
// fine at the grid sizes this pipeline regrids to, a common 0.25° bbox).
func RegridToRegular(f *Field, targetLat, targetLon []float64) (*Field, error) {
	if f == nil || !f.valid() {
		return nil, ErrInvalidGrid
	}
	ni, nj := len(targetLon), len(targetLat)
	out := make([]float64, ni*nj)

	switch f.Shape {
	case Regular:
		for j, lat := range targetLat {
			sj := nearestAxisIndex(f.LatAxis, lat)
			for i, lon := range targetLon {
				si := nearestAxisIndex(f.LonAxis, lon)
				out[j*ni+i] = f.Values[sj*f.Ni+si]
			}
		}
	case Projected:
		var srcLat, srcLon, srcVal []float64
		for idx, v := range f.Values {
			if math.IsNaN(v) {
				continue
			}
			srcLat = append(srcLat, f.Lat2D[idx])
			srcLon = append(srcLon, f.Lon2D[idx])
			srcVal = append(srcVal, v)
		}
		for j, lat := range targetLat {
			for i, lon := range targetLon {
				out[j*ni+i] = nearestScattered(srcLat, srcLon, srcVal, lat, lon)
			}
		}
	default:
		return nil, ErrInvalidGrid
	}

	return NewRegular(targetLat, targetLon, out)
}

func nearestScattered(lats, lons, vals []float64, lat, lon float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	best := 0
	bestDist := math.Inf(1)
	for k := range vals {
		dlat := lats[k] - lat
		dlon := lons[k] - lon
		d := dlat*dlat + dlon*dlon
		if d < bestDist {
			bestDist = d
			best = k
		}
	}
	return vals[best]
}
