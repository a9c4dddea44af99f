package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/synopticspread/spread/internal/domain"
	"github.com/synopticspread/spread/internal/grib2"
	"github.com/synopticspread/spread/internal/kernel"
)

// hrrrVarLevels maps the canonical variables HRRR publishes to their
// GRIB2 .idx search strings. wind_speed is synthesized from u/v below.
var hrrrVarLevels = map[domain.Variable]string{
	domain.Precip: "APCP:surface",
	domain.MSLP:   "MSLMA:mean sea level",
	domain.Hgt500: "HGT:500 mb",
}

const (
	hrrrWindU = "UGRD:10 m above ground"
	hrrrWindV = "VGRD:10 m above ground"
)

// HRRRFetcher fetches the 3-km CONUS Lambert Conformal grid NOAA
// publishes to its S3 bucket. Grounded on the grib2hrrr decoder's
// HRRRClient, generalized to the ModelFetcher contract and extended to
// the full canonical variable set.
type HRRRFetcher struct {
	client  *idxRangeClient
	baseURL string
	logger  zerolog.Logger
}

// NewHRRRFetcher returns a fetcher against NOAA's public HRRR bucket.
func NewHRRRFetcher(timeout time.Duration, logger zerolog.Logger) *HRRRFetcher {
	return &HRRRFetcher{
		client:  newIdxRangeClient(timeout),
		baseURL: "https://noaa-hrrr-bdp-pds.s3.amazonaws.com",
		logger:  logger.With().Str("fetcher", "hrrr").Logger(),
	}
}

func (f *HRRRFetcher) Model() domain.ModelName { return domain.HRRR }

func (f *HRRRFetcher) urls(initTime time.Time, leadHour int) (idxURL, gribURL string) {
	t := initTime.UTC()
	base := fmt.Sprintf("%s/hrrr.%s/conus/hrrr.t%02dz.wrfsfcf%02d",
		f.baseURL, t.Format("20060102"), t.Hour(), leadHour)
	return base + ".grib2.idx", base + ".grib2"
}

func (f *HRRRFetcher) Fetch(ctx context.Context, initTime time.Time, variables []domain.Variable, leadHours []int) ([]LeadHourFields, error) {
	initTime = initTime.UTC()
	dir, cleanup, err := newScratchDir("hrrr")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStorageFailure, err)
	}
	defer cleanup()

	var out []LeadHourFields
	for _, lh := range leadHours {
		fields, err := f.fetchHour(ctx, dir, initTime, variables, lh)
		if err != nil {
			f.logger.Warn().Err(err).Int("lead_hour", lh).Msg("skipping lead hour")
			continue
		}
		out = append(out, LeadHourFields{LeadHour: lh, Fields: fields})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: HRRR: no lead hour decoded for init_time %s", domain.ErrSourceUnavailable, initTime)
	}
	return out, nil
}

func (f *HRRRFetcher) fetchHour(ctx context.Context, dir string, initTime time.Time, variables []domain.Variable, leadHour int) (domain.FieldSet, error) {
	idxURL, gribURL := f.urls(initTime, leadHour)
	fs := make(domain.FieldSet)

	needWind := false
	for _, v := range variables {
		if v == domain.WindSpeed {
			needWind = true
			continue
		}
		level, ok := hrrrVarLevels[v]
		if !ok {
			return nil, fmt.Errorf("%w: HRRR does not publish %s", domain.ErrUnexpectedSchema, v)
		}
		field, err := f.fetchVariable(ctx, dir, idxURL, gribURL, level)
		if err != nil {
			return nil, err
		}
		fs[v] = field
	}

	if needWind {
		uField, err := f.fetchVariable(ctx, dir, idxURL, gribURL, hrrrWindU)
		if err != nil {
			return nil, err
		}
		vField, err := f.fetchVariable(ctx, dir, idxURL, gribURL, hrrrWindV)
		if err != nil {
			return nil, err
		}
		speed, err := deriveWindSpeed(uField, vField)
		if err != nil {
			return nil, err
		}
		fs[domain.WindSpeed] = speed
	}

	return fs, nil
}

func (f *HRRRFetcher) fetchVariable(ctx context.Context, dir, idxURL, gribURL, level string) (*kernel.Field, error) {
	raw, err := f.client.fetchMessage(ctx, dir, idxURL, gribURL, level)
	if err != nil {
		return nil, err
	}
	msg, err := grib2.DecodeMessage(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDecodeFailure, err)
	}
	return toKernelField(msg)
}
