// Package metric computes pairwise RMSE/bias, ensemble spread, and
// per-grid-cell divergence across the models holding a variable at a
// given lead hour. All functions are stateless: callers own fetching the
// per-model fields and persisting the results.
package metric

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/synopticspread/spread/internal/domain"
	"github.com/synopticspread/spread/internal/kernel"
)

// SampleStdDev returns the sample standard deviation (ddof=1) of vals, or
// 0 when fewer than two values are present.
func SampleStdDev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	var sumSq float64
	for _, v := range vals {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(vals)-1))
}

// PointMetrics computes, for a single variable/point/lead_hour, the
// ensemble spread and every pairwise (A, B) RMSE/bias row with A < B
// lexicographically by model name. runIDs maps each model to the
// ModelRun.ID its value came from. Emits zero rows when fewer than two
// models hold the variable.
func PointMetrics(
	values map[domain.ModelName]float64,
	runIDs map[domain.ModelName]uuid.UUID,
	variable domain.Variable,
	point domain.MonitorPoint,
	leadHour int,
) []domain.PointMetric {
	models := make([]domain.ModelName, 0, len(values))
	for m := range values {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i] < models[j] })

	if len(models) < 2 {
		return nil
	}

	flat := make([]float64, len(models))
	for i, m := range models {
		flat[i] = values[m]
	}
	spread := SampleStdDev(flat)

	rows := make([]domain.PointMetric, 0, len(models)*(len(models)-1)/2)
	for i := 0; i < len(models); i++ {
		for j := i + 1; j < len(models); j++ {
			a, b := models[i], models[j]
			va, vb := values[a], values[b]
			rows = append(rows, domain.PointMetric{
				RunAID:   runIDs[a],
				RunBID:   runIDs[b],
				Variable: variable,
				Lat:      point.Lat,
				Lon:      point.Lon,
				LeadHour: leadHour,
				RMSE:     math.Abs(va - vb),
				Bias:     va - vb,
				Spread:   spread,
			})
		}
	}
	return rows
}

// GridStep is the resolution of the regular axis grid divergence is
// computed on.
const GridStep = 0.25

// GridDivergence computes the per-cell sample std-dev (ddof=1) across the
// fields in models, on the common bounding box regridded to a 0.25° axis.
// Cells where fewer than two models have non-NaN data become NaN. Requires
// at least two fields; callers are responsible for that precondition.
func GridDivergence(models map[domain.ModelName]*kernel.Field) (values, latAxis, lonAxis []float64, bbox domain.BBox, err error) {
	fields := make([]*kernel.Field, 0, len(models))
	for _, f := range models {
		fields = append(fields, f)
	}

	minLat, maxLat, minLon, maxLon, err := kernel.CommonBBox(fields)
	if err != nil {
		return nil, nil, nil, domain.BBox{}, err
	}
	bbox = domain.BBox{MinLat: minLat, MaxLat: maxLat, MinLon: minLon, MaxLon: maxLon}

	latAxis = kernel.MakeAxis(minLat, maxLat, GridStep)
	lonAxis = kernel.MakeAxis(minLon, maxLon, GridStep)

	regridded := make([]*kernel.Field, 0, len(fields))
	for _, f := range fields {
		rg, rerr := kernel.RegridToRegular(f, latAxis, lonAxis)
		if rerr != nil {
			return nil, nil, nil, domain.BBox{}, rerr
		}
		regridded = append(regridded, rg)
	}

	n := len(latAxis) * len(lonAxis)
	values = make([]float64, n)
	sample := make([]float64, 0, len(regridded))
	for idx := 0; idx < n; idx++ {
		sample = sample[:0]
		for _, rg := range regridded {
			v := rg.Values[idx]
			if !math.IsNaN(v) {
				sample = append(sample, v)
			}
		}
		if len(sample) < 2 {
			values[idx] = math.NaN()
			continue
		}
		values[idx] = SampleStdDev(sample)
	}

	return values, latAxis, lonAxis, bbox, nil
}
