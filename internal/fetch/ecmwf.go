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

// ecmwfSurfaceVarLevels are the surface variables looked up in the "oper"
// stream's .idx file. hgt_500 is looked up by its own z:500 entry in a
// separate request against the same "oper" file and merged in by fetchHour.
var ecmwfSurfaceVarLevels = map[domain.Variable]string{
	domain.Precip: "tp:sfc",
	domain.MSLP:   "msl:sfc",
}

const (
	ecmwfWindU  = "10u:sfc"
	ecmwfWindV  = "10v:sfc"
	ecmwfHgt500 = "z:500"
)

// ECMWFIFSFetcher fetches ECMWF's open-data 0.25° global regular grid.
// Surface variables and the 500-hPa geopotential height come from
// separate requests and are merged into one FieldSet per lead hour.
// geopotential (m^2/s^2) is converted to geopotential height (m) by
// dividing by standard gravity, per the unit-normalization requirement —
// relying on the decoder to already produce metres would be fragile.
type ECMWFIFSFetcher struct {
	client  *idxRangeClient
	baseURL string
	logger  zerolog.Logger
}

const standardGravity = 9.80665 // m/s^2

func NewECMWFIFSFetcher(timeout time.Duration, logger zerolog.Logger) *ECMWFIFSFetcher {
	return &ECMWFIFSFetcher{
		client:  newIdxRangeClient(timeout),
		baseURL: "https://data.ecmwf.int/forecasts",
		logger:  logger.With().Str("fetcher", "ecmwf_ifs").Logger(),
	}
}

func (f *ECMWFIFSFetcher) Model() domain.ModelName { return domain.ECMWFIFS }

func (f *ECMWFIFSFetcher) urls(initTime time.Time, leadHour int, stream string) (idxURL, gribURL string) {
	t := initTime.UTC()
	base := fmt.Sprintf("%s/%s/%02dz/ifs/0p25/%s/%s%02d%02d%02d000000-%dh-%s-fc",
		f.baseURL, t.Format("20060102"), t.Hour(), stream,
		t.Format("20060102"), t.Hour(), 0, 0, leadHour, stream)
	return base + ".idx", base + ".grib2"
}

func (f *ECMWFIFSFetcher) Fetch(ctx context.Context, initTime time.Time, variables []domain.Variable, leadHours []int) ([]LeadHourFields, error) {
	initTime = initTime.UTC()
	dir, cleanup, err := newScratchDir("ecmwf")
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
		return nil, fmt.Errorf("%w: ECMWF_IFS: no lead hour decoded for init_time %s", domain.ErrSourceUnavailable, initTime)
	}
	return out, nil
}

func (f *ECMWFIFSFetcher) fetchHour(ctx context.Context, dir string, initTime time.Time, variables []domain.Variable, leadHour int) (domain.FieldSet, error) {
	sfcIdx, sfcGrib := f.urls(initTime, leadHour, "oper")
	plIdx, plGrib := f.urls(initTime, leadHour, "oper")
	fs := make(domain.FieldSet)

	needWind := false
	for _, v := range variables {
		switch v {
		case domain.WindSpeed:
			needWind = true
		case domain.Hgt500:
			field, err := f.fetchVariable(ctx, dir, plIdx, plGrib, ecmwfHgt500)
			if err != nil {
				return nil, err
			}
			fs[domain.Hgt500] = toGeopotentialHeight(field)
		default:
			level, ok := ecmwfSurfaceVarLevels[v]
			if !ok {
				return nil, fmt.Errorf("%w: ECMWF_IFS does not publish %s", domain.ErrUnexpectedSchema, v)
			}
			field, err := f.fetchVariable(ctx, dir, sfcIdx, sfcGrib, level)
			if err != nil {
				return nil, err
			}
			fs[v] = field
		}
	}

	if needWind {
		uField, err := f.fetchVariable(ctx, dir, sfcIdx, sfcGrib, ecmwfWindU)
		if err != nil {
			return nil, err
		}
		vField, err := f.fetchVariable(ctx, dir, sfcIdx, sfcGrib, ecmwfWindV)
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

func (f *ECMWFIFSFetcher) fetchVariable(ctx context.Context, dir, idxURL, gribURL, level string) (*kernel.Field, error) {
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

func toGeopotentialHeight(f *kernel.Field) *kernel.Field {
	out := make([]float64, len(f.Values))
	for i, v := range f.Values {
		out[i] = v / standardGravity
	}
	height := *f
	height.Values = out
	return &height
}
