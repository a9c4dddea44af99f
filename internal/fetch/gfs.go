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

// gfsVarLevels maps canonical variables to GFS's 0.25° pgrb2 .idx search
// strings. precip is APCP, a surface accumulation field valid over the
// window ending at the requested lead hour.
var gfsVarLevels = map[domain.Variable]string{
	domain.Precip: "APCP:surface",
	domain.MSLP:   "PRMSL:mean sea level",
	domain.Hgt500: "HGT:500 mb",
}

const (
	gfsWindU = "UGRD:10 m above ground"
	gfsWindV = "VGRD:10 m above ground"
)

// GFSFetcher fetches NOAA's 0.25° global regular lat/lon grid from
// NOMADS. Grounded on HRRRFetcher's idx/byte-range mechanics, adapted to
// the GDT 3.0 regular grid decode path instead of Lambert.
type GFSFetcher struct {
	client  *idxRangeClient
	baseURL string
	logger  zerolog.Logger
}

func NewGFSFetcher(timeout time.Duration, logger zerolog.Logger) *GFSFetcher {
	return &GFSFetcher{
		client:  newIdxRangeClient(timeout),
		baseURL: "https://nomads.ncep.noaa.gov/pub/data/nccf/com/gfs/prod",
		logger:  logger.With().Str("fetcher", "gfs").Logger(),
	}
}

func (f *GFSFetcher) Model() domain.ModelName { return domain.GFS }

func (f *GFSFetcher) urls(initTime time.Time, leadHour int) (idxURL, gribURL string) {
	t := initTime.UTC()
	base := fmt.Sprintf("%s/gfs.%s/%02d/atmos/gfs.t%02dz.pgrb2.0p25.f%03d",
		f.baseURL, t.Format("20060102"), t.Hour(), t.Hour(), leadHour)
	return base + ".idx", base
}

func (f *GFSFetcher) Fetch(ctx context.Context, initTime time.Time, variables []domain.Variable, leadHours []int) ([]LeadHourFields, error) {
	initTime = initTime.UTC()
	dir, cleanup, err := newScratchDir("gfs")
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
		return nil, fmt.Errorf("%w: GFS: no lead hour decoded for init_time %s", domain.ErrSourceUnavailable, initTime)
	}
	return out, nil
}

func (f *GFSFetcher) fetchHour(ctx context.Context, dir string, initTime time.Time, variables []domain.Variable, leadHour int) (domain.FieldSet, error) {
	idxURL, gribURL := f.urls(initTime, leadHour)
	fs := make(domain.FieldSet)

	needWind := false
	for _, v := range variables {
		if v == domain.WindSpeed {
			needWind = true
			continue
		}
		level, ok := gfsVarLevels[v]
		if !ok {
			return nil, fmt.Errorf("%w: GFS does not publish %s", domain.ErrUnexpectedSchema, v)
		}
		field, err := f.fetchVariable(ctx, dir, idxURL, gribURL, level)
		if err != nil {
			return nil, err
		}
		fs[v] = field
	}

	if needWind {
		uField, err := f.fetchVariable(ctx, dir, idxURL, gribURL, gfsWindU)
		if err != nil {
			return nil, err
		}
		vField, err := f.fetchVariable(ctx, dir, idxURL, gribURL, gfsWindV)
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

func (f *GFSFetcher) fetchVariable(ctx context.Context, dir, idxURL, gribURL, level string) (*kernel.Field, error) {
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
