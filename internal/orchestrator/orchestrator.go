// Package orchestrator drives the per-(model, init_time) ingestion
// workflow: idempotency check, fetch, regrid, compute, persist,
// finalize. Grounded on the teacher's cmd/hrrr channel-and-semaphore
// concurrency idiom and on the two-stage fetch/process pipeline shown
// in the wxingest HRRR ingest loop, generalized from "print one value"
// to "persist divergence across an ensemble."
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/synopticspread/spread/internal/domain"
	"github.com/synopticspread/spread/internal/fetch"
	"github.com/synopticspread/spread/internal/kernel"
	"github.com/synopticspread/spread/internal/metric"
	"github.com/synopticspread/spread/internal/storage"
)

// maxCompanionConcurrency bounds how many companion-model re-fetches run
// at once.
const maxCompanionConcurrency = 4

// relationalStore is the slice of *storage.RelationalStore the
// orchestrator depends on, narrowed to an interface so tests can supply
// an in-memory fake instead of a live Postgres instance.
type relationalStore interface {
	FindRun(ctx context.Context, modelName domain.ModelName, initTime time.Time) (*domain.ModelRun, error)
	InsertRun(ctx context.Context, modelName domain.ModelName, initTime time.Time) (uuid.UUID, error)
	UpdateRunStatus(ctx context.Context, runID uuid.UUID, status domain.RunStatus, forecastHours []int) error
	InsertPointMetrics(ctx context.Context, rows []domain.PointMetric) error
	InsertGridSnapshot(ctx context.Context, snap domain.GridSnapshot) error
}

// arrayStore is the slice of *storage.ArrayStore the orchestrator needs.
type arrayStore interface {
	Put(ctx context.Context, handle string, field storage.ArrayField) error
}

// Orchestrator wires the fetch, kernel/metric, and storage packages
// together into the ingest-and-process workflow.
type Orchestrator struct {
	Relational    relationalStore
	Array         arrayStore
	Fetchers      map[domain.ModelName]fetch.ModelFetcher
	MonitorPoints []domain.MonitorPoint
	FetchTimeout  time.Duration
	JobDeadline   time.Duration
	Hook          Hook
	Logger        zerolog.Logger
}

func New(
	rel relationalStore,
	arr arrayStore,
	fetchers map[domain.ModelName]fetch.ModelFetcher,
	monitorPoints []domain.MonitorPoint,
	fetchTimeout, jobDeadline time.Duration,
	hook Hook,
	logger zerolog.Logger,
) *Orchestrator {
	if hook == nil {
		hook = NoopHook{}
	}
	return &Orchestrator{
		Relational: rel, Array: arr, Fetchers: fetchers, MonitorPoints: monitorPoints,
		FetchTimeout: fetchTimeout, JobDeadline: jobDeadline, Hook: hook, Logger: logger,
	}
}

// resolveInitTime returns the latest wall-clock 6-hour cycle boundary at
// or before now, in UTC.
func resolveInitTime(now time.Time) time.Time {
	now = now.UTC()
	hour := (now.Hour() / 6) * 6
	return time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
}

// IngestAndProcess runs the full pipeline for one (modelName, init_time).
// initTime nil resolves to the latest 6-hour cycle boundary at or before
// now. Re-invoking with a (model, init_time) that already has a complete
// run returns that run immediately with no new rows written.
func (o *Orchestrator) IngestAndProcess(ctx context.Context, modelName domain.ModelName, initTime *time.Time) (domain.ModelRun, error) {
	resolved := resolveInitTime(time.Now())
	if initTime != nil {
		resolved = initTime.UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, o.JobDeadline)
	defer cancel()

	existing, err := o.Relational.FindRun(ctx, modelName, resolved)
	if err != nil {
		return domain.ModelRun{}, err
	}
	if existing != nil {
		switch existing.Status {
		case domain.StatusComplete:
			return *existing, nil
		case domain.StatusPending:
			return domain.ModelRun{}, domain.ErrConcurrentRunInProgress
		}
	}

	runID, err := o.Relational.InsertRun(ctx, modelName, resolved)
	if err != nil {
		return domain.ModelRun{}, err
	}
	run := domain.ModelRun{ID: runID, ModelName: modelName, InitTime: resolved, Status: domain.StatusPending}

	fetcher, ok := o.Fetchers[modelName]
	if !ok {
		return o.fail(ctx, run, fmt.Errorf("%w: no fetcher registered for %s", domain.ErrUnexpectedSchema, modelName))
	}

	primaryHours, err := o.fetchPrimary(ctx, fetcher, modelName, resolved)
	if err != nil {
		return o.fail(ctx, run, err)
	}
	if len(primaryHours) == 0 {
		return o.fail(ctx, run, fmt.Errorf("%w: %s produced zero lead hours", domain.ErrSourceUnavailable, modelName))
	}

	hours := make([]int, 0, len(primaryHours))
	for _, lh := range primaryHours {
		hours = append(hours, lh.LeadHour)
	}
	sort.Ints(hours)
	run.ForecastHours = hours
	if err := o.Relational.UpdateRunStatus(ctx, runID, domain.StatusPending, hours); err != nil {
		return o.fail(ctx, run, err)
	}

	modelFields := map[domain.ModelName]map[int]domain.FieldSet{modelName: fieldsByHour(primaryHours)}
	runIDs := map[domain.ModelName]uuid.UUID{modelName: runID}

	companions, err := o.gatherCompanions(ctx, modelName, resolved)
	if err != nil {
		o.Logger.Warn().Err(err).Msg("companion gathering failed, continuing with primary model only")
	}
	for name, c := range companions {
		modelFields[name] = c.fields
		runIDs[name] = c.runID
	}

	var allMetrics []domain.PointMetric
	var allSnapshots []domain.GridSnapshot
	for _, lh := range hours {
		metrics, snapshots := o.processLeadHour(ctx, run, runIDs, modelFields, lh)
		allMetrics = append(allMetrics, metrics...)
		allSnapshots = append(allSnapshots, snapshots...)
	}

	if err := o.Relational.UpdateRunStatus(ctx, runID, domain.StatusComplete, hours); err != nil {
		return o.fail(ctx, run, err)
	}
	run.Status = domain.StatusComplete

	o.Hook.AfterIngest(ctx, run, allMetrics, allSnapshots)
	return run, nil
}

// fail records the run as errored and re-raises cause, per the
// propagation policy: a fatal condition transitions the row to error
// and the scheduler is told about it via the returned error.
func (o *Orchestrator) fail(ctx context.Context, run domain.ModelRun, cause error) (domain.ModelRun, error) {
	run.Status = domain.StatusError
	if err := o.Relational.UpdateRunStatus(ctx, run.ID, domain.StatusError, run.ForecastHours); err != nil {
		o.Logger.Error().Err(err).Str("run_id", run.ID.String()).Msg("failed to record error status")
	}
	o.Hook.AfterIngest(ctx, run, nil, nil)
	return run, cause
}

// fetchPrimary requests modelName's own published forecast horizon
// (domain.ModelName.LeadHours), not a fixed range shared across models —
// GFS and ECMWF IFS publish to 120h, NAM to 72h, HRRR only to 48h.
func (o *Orchestrator) fetchPrimary(ctx context.Context, fetcher fetch.ModelFetcher, modelName domain.ModelName, initTime time.Time) ([]fetch.LeadHourFields, error) {
	leadHours := modelName.LeadHours()
	fctx, cancel := context.WithTimeout(ctx, o.FetchTimeout*time.Duration(len(leadHours)))
	defer cancel()
	return fetcher.Fetch(fctx, initTime, domain.Variables, leadHours)
}

type companionResult struct {
	runID  uuid.UUID
	fields map[int]domain.FieldSet
}

// gatherCompanions probes every other registered model for a complete
// run at initTime and re-fetches its data — restartability over speed,
// per the design note this implements — up to maxCompanionConcurrency
// at once.
func (o *Orchestrator) gatherCompanions(ctx context.Context, primary domain.ModelName, initTime time.Time) (map[domain.ModelName]companionResult, error) {
	type candidate struct {
		name    domain.ModelName
		run     domain.ModelRun
		fetcher fetch.ModelFetcher
	}
	var candidates []candidate
	for name, fetcher := range o.Fetchers {
		if name == primary {
			continue
		}
		run, err := o.Relational.FindRun(ctx, name, initTime)
		if err != nil {
			return nil, err
		}
		if run != nil && run.Status == domain.StatusComplete {
			candidates = append(candidates, candidate{name: name, run: *run, fetcher: fetcher})
		}
	}

	results := make(map[domain.ModelName]companionResult, len(candidates))
	if len(candidates) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	sem := semaphore.NewWeighted(maxCompanionConcurrency)
	eg, egCtx := errgroup.WithContext(ctx)
	for _, c := range candidates {
		c := c
		eg.Go(func() error {
			if err := sem.Acquire(egCtx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			fctx, cancel := context.WithTimeout(egCtx, o.FetchTimeout*time.Duration(len(c.run.ForecastHours)+1))
			defer cancel()
			lhFields, err := c.fetcher.Fetch(fctx, initTime, domain.Variables, c.run.ForecastHours)
			if err != nil {
				o.Logger.Warn().Err(err).Str("model", c.name.String()).Msg("companion re-fetch failed")
				return nil
			}
			mu.Lock()
			results[c.name] = companionResult{runID: c.run.ID, fields: fieldsByHour(lhFields)}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func fieldsByHour(lhFields []fetch.LeadHourFields) map[int]domain.FieldSet {
	out := make(map[int]domain.FieldSet, len(lhFields))
	for _, lh := range lhFields {
		out[lh.LeadHour] = lh.Fields
	}
	return out
}

// processLeadHour computes and persists point metrics and grid
// divergence for every variable present in >= 2 models at leadHour, in
// the canonical variable order. Per-(lead_hour, variable) failures are
// caught, logged, and skipped; all inserts for this lead hour commit
// before the caller moves to the next one.
func (o *Orchestrator) processLeadHour(
	ctx context.Context,
	run domain.ModelRun,
	runIDs map[domain.ModelName]uuid.UUID,
	modelFields map[domain.ModelName]map[int]domain.FieldSet,
	leadHour int,
) ([]domain.PointMetric, []domain.GridSnapshot) {
	var metrics []domain.PointMetric
	var snapshots []domain.GridSnapshot

	for _, variable := range domain.Variables {
		fields := make(map[domain.ModelName]*kernel.Field)
		for name, hours := range modelFields {
			fs, ok := hours[leadHour]
			if !ok {
				continue
			}
			if f, ok := fs[variable]; ok {
				fields[name] = f
			}
		}
		if len(fields) < 2 {
			continue
		}

		pointRows := o.computePointMetrics(fields, runIDs, variable, leadHour)
		if len(pointRows) > 0 {
			if err := o.Relational.InsertPointMetrics(ctx, pointRows); err != nil {
				o.Logger.Warn().Err(err).Str("variable", variable.String()).Int("lead_hour", leadHour).Msg("persisting point metrics failed")
			} else {
				metrics = append(metrics, pointRows...)
			}
		}

		snapshot, err := o.computeGridDivergence(ctx, fields, run.InitTime, variable, leadHour)
		if err != nil {
			o.Logger.Warn().Err(err).Str("variable", variable.String()).Int("lead_hour", leadHour).Msg("grid divergence failed")
			continue
		}
		if snapshot != nil {
			snapshots = append(snapshots, *snapshot)
		}
	}
	return metrics, snapshots
}

func (o *Orchestrator) computePointMetrics(
	fields map[domain.ModelName]*kernel.Field,
	runIDs map[domain.ModelName]uuid.UUID,
	variable domain.Variable,
	leadHour int,
) []domain.PointMetric {
	var rows []domain.PointMetric
	for _, point := range o.MonitorPoints {
		values := make(map[domain.ModelName]float64)
		for name, f := range fields {
			v, err := kernel.ExtractPoint(f, point.Lat, point.Lon)
			if err != nil {
				continue
			}
			values[name] = v
		}
		for _, row := range metric.PointMetrics(values, runIDs, variable, point, leadHour) {
			row.ID = uuid.New()
			rows = append(rows, row)
		}
	}
	return rows
}

// computeGridDivergence regrids fields onto their common bbox, puts the
// resulting array to the array store, and catalogs it. The array-store
// put always completes before the catalog row is inserted, per the
// durability rule: a crash between the two leaves an orphan object,
// which the reset path sweeps.
func (o *Orchestrator) computeGridDivergence(
	ctx context.Context,
	fields map[domain.ModelName]*kernel.Field,
	initTime time.Time,
	variable domain.Variable,
	leadHour int,
) (*domain.GridSnapshot, error) {
	values, latAxis, lonAxis, bbox, err := metric.GridDivergence(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidGrid, err)
	}

	handle := storage.HandleKey(initTime, variable, leadHour)
	if err := o.Array.Put(ctx, handle, storage.ArrayField{LatAxis: latAxis, LonAxis: lonAxis, Values: values}); err != nil {
		return nil, err
	}

	snap := domain.GridSnapshot{
		ID:          uuid.New(),
		InitTime:    initTime,
		Variable:    variable,
		LeadHour:    leadHour,
		BBox:        bbox,
		ArrayHandle: handle,
	}
	if err := o.Relational.InsertGridSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
