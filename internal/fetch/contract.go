// Package fetch implements the per-model ModelFetcher capability: given an
// initialization time and a requested set of variables/lead hours, it
// returns the lead hours that decoded successfully along with their
// canonical FieldSet. Concrete fetchers live one per file (gfs.go,
// nam.go, ecmwf.go, hrrr.go); all share the byte-range HTTP client in
// httpidx.go, adapted from the grib2hrrr decoder's HRRR client.
package fetch

import (
	"context"
	"time"

	"github.com/synopticspread/spread/internal/domain"
)

// LeadHourFields is one (lead_hour, FieldSet) pair a fetcher emits.
type LeadHourFields struct {
	LeadHour int
	Fields   domain.FieldSet
}

// ModelFetcher is the single-method capability every model-specific
// fetcher implements. init_time is timezone-stripped UTC before being
// passed to the external source. Returned lead hours are ascending and
// only include hours that decoded successfully — per-hour failures are
// caught, logged, and skipped rather than propagated.
type ModelFetcher interface {
	Model() domain.ModelName
	Fetch(ctx context.Context, initTime time.Time, variables []domain.Variable, leadHours []int) ([]LeadHourFields, error)
}
