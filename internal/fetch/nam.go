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

var namVarLevels = map[domain.Variable]string{
	domain.Precip: "APCP:surface",
	domain.MSLP:   "MSLMA:mean sea level",
	domain.Hgt500: "HGT:500 mb",
}

const (
	namWindU = "UGRD:10 m above ground"
	namWindV = "VGRD:10 m above ground"
)

// NAMFetcher fetches the NAM CONUS nest, a 3-km Lambert Conformal grid
// published to NOMADS. Grounded on HRRRFetcher (same projection, same
// idx/byte-range mechanics); unlike HRRR, NAM's U/V components sit in the
// same byte range of the encoded message on NOMADS, so both are pulled
// out of a single merged HTTP range request (see fetchWindPair) instead
// of two independent ones.
type NAMFetcher struct {
	client  *idxRangeClient
	baseURL string
	logger  zerolog.Logger
}

func NewNAMFetcher(timeout time.Duration, logger zerolog.Logger) *NAMFetcher {
	return &NAMFetcher{
		client:  newIdxRangeClient(timeout),
		baseURL: "https://nomads.ncep.noaa.gov/pub/data/nccf/com/nam/prod",
		logger:  logger.With().Str("fetcher", "nam").Logger(),
	}
}

func (f *NAMFetcher) Model() domain.ModelName { return domain.NAM }

func (f *NAMFetcher) urls(initTime time.Time, leadHour int) (idxURL, gribURL string) {
	t := initTime.UTC()
	base := fmt.Sprintf("%s/nam.%s/nam.t%02dz.conusnest.hiresf%02d.tm00",
		f.baseURL, t.Format("20060102"), t.Hour(), leadHour)
	return base + ".grib2.idx", base + ".grib2"
}

func (f *NAMFetcher) Fetch(ctx context.Context, initTime time.Time, variables []domain.Variable, leadHours []int) ([]LeadHourFields, error) {
	initTime = initTime.UTC()
	dir, cleanup, err := newScratchDir("nam")
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
		return nil, fmt.Errorf("%w: NAM: no lead hour decoded for init_time %s", domain.ErrSourceUnavailable, initTime)
	}
	return out, nil
}

func (f *NAMFetcher) fetchHour(ctx context.Context, dir string, initTime time.Time, variables []domain.Variable, leadHour int) (domain.FieldSet, error) {
	idxURL, gribURL := f.urls(initTime, leadHour)
	fs := make(domain.FieldSet)

	needWind := false
	for _, v := range variables {
		if v == domain.WindSpeed {
			needWind = true
			continue
		}
		level, ok := namVarLevels[v]
		if !ok {
			return nil, fmt.Errorf("%w: NAM does not publish %s", domain.ErrUnexpectedSchema, v)
		}
		field, err := f.fetchVariable(ctx, dir, idxURL, gribURL, level)
		if err != nil {
			return nil, err
		}
		fs[v] = field
	}

	if needWind {
		// U and V share the same byte range of the encoded message on
		// NOMADS, so both are pulled in a single range request rather than
		// two independent fetches; a failure on either half fails the
		// whole derived variable for this hour, same as any other field.
		uField, vField, err := f.fetchWindPair(ctx, dir, idxURL, gribURL)
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

func (f *NAMFetcher) fetchVariable(ctx context.Context, dir, idxURL, gribURL, level string) (*kernel.Field, error) {
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

func (f *NAMFetcher) fetchWindPair(ctx context.Context, dir, idxURL, gribURL string) (u, v *kernel.Field, err error) {
	rawU, rawV, err := f.client.fetchMessagePair(ctx, dir, idxURL, gribURL, namWindU, namWindV)
	if err != nil {
		return nil, nil, err
	}
	msgU, err := grib2.DecodeMessage(rawU)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrDecodeFailure, err)
	}
	msgV, err := grib2.DecodeMessage(rawV)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrDecodeFailure, err)
	}
	u, err = toKernelField(msgU)
	if err != nil {
		return nil, nil, err
	}
	v, err = toKernelField(msgV)
	if err != nil {
		return nil, nil, err
	}
	return u, v, nil
}
