package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/synopticspread/spread/internal/domain"
	"github.com/synopticspread/spread/internal/fetch"
	"github.com/synopticspread/spread/internal/kernel"
	"github.com/synopticspread/spread/internal/storage"
)

type fakeRelationalStore struct {
	mu        sync.Mutex
	runs      map[string]*domain.ModelRun
	metrics   []domain.PointMetric
	snapshots []domain.GridSnapshot
}

func newFakeRelationalStore() *fakeRelationalStore {
	return &fakeRelationalStore{runs: make(map[string]*domain.ModelRun)}
}

func runKey(modelName domain.ModelName, initTime time.Time) string {
	return modelName.String() + "|" + initTime.UTC().Format(time.RFC3339)
}

func (f *fakeRelationalStore) FindRun(_ context.Context, modelName domain.ModelName, initTime time.Time) (*domain.ModelRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runKey(modelName, initTime)]
	if !ok {
		return nil, nil
	}
	cp := *run
	return &cp, nil
}

func (f *fakeRelationalStore) InsertRun(_ context.Context, modelName domain.ModelName, initTime time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := runKey(modelName, initTime)
	if existing, ok := f.runs[key]; ok && existing.Status != domain.StatusError {
		return uuid.Nil, domain.ErrDuplicateRun
	}
	id := uuid.New()
	f.runs[key] = &domain.ModelRun{ID: id, ModelName: modelName, InitTime: initTime, Status: domain.StatusPending}
	return id, nil
}

func (f *fakeRelationalStore) UpdateRunStatus(_ context.Context, runID uuid.UUID, status domain.RunStatus, forecastHours []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, run := range f.runs {
		if run.ID == runID {
			run.Status = status
			run.ForecastHours = forecastHours
			return nil
		}
	}
	return nil
}

func (f *fakeRelationalStore) InsertPointMetrics(_ context.Context, rows []domain.PointMetric) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics = append(f.metrics, rows...)
	return nil
}

func (f *fakeRelationalStore) InsertGridSnapshot(_ context.Context, snap domain.GridSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, snap)
	return nil
}

type fakeArrayStore struct {
	mu   sync.Mutex
	puts map[string]storage.ArrayField
}

func newFakeArrayStore() *fakeArrayStore {
	return &fakeArrayStore{puts: make(map[string]storage.ArrayField)}
}

func (f *fakeArrayStore) Put(_ context.Context, handle string, field storage.ArrayField) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts[handle] = field
	return nil
}

// fakeFetcher returns a fixed FieldSet for every requested lead hour, or
// for its own leadHours instead when that is set.
type fakeFetcher struct {
	model       domain.ModelName
	fieldValues map[domain.Variable]float64
	leadHours   []int
	err         error
}

func (f *fakeFetcher) Model() domain.ModelName { return f.model }

func (f *fakeFetcher) Fetch(_ context.Context, _ time.Time, variables []domain.Variable, leadHours []int) ([]fetch.LeadHourFields, error) {
	if f.err != nil {
		return nil, f.err
	}
	hours := leadHours
	if f.leadHours != nil {
		hours = f.leadHours
	}
	out := make([]fetch.LeadHourFields, 0, len(hours))
	for _, lh := range hours {
		fs := make(domain.FieldSet)
		for _, v := range variables {
			val, ok := f.fieldValues[v]
			if !ok {
				continue
			}
			field, err := kernel.NewRegular([]float64{10, 10.25}, []float64{-100, -99.75}, []float64{val, val, val, val})
			if err != nil {
				return nil, err
			}
			fs[v] = field
		}
		out = append(out, fetch.LeadHourFields{LeadHour: lh, Fields: fs})
	}
	return out, nil
}

func testLogger() zerolog.Logger { return zerolog.Nop() }

func TestResolveInitTime(t *testing.T) {
	got := resolveInitTime(time.Date(2024, 1, 15, 13, 45, 0, 0, time.UTC))
	want := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestIngestAndProcessSingleModelNoDivergence(t *testing.T) {
	rel := newFakeRelationalStore()
	arr := newFakeArrayStore()
	hrrr := &fakeFetcher{model: domain.HRRR, fieldValues: map[domain.Variable]float64{domain.Precip: 1}, leadHours: []int{0, 6}}
	o := New(rel, arr, map[domain.ModelName]fetch.ModelFetcher{domain.HRRR: hrrr}, nil, time.Minute, time.Minute, nil, testLogger())

	run, err := o.IngestAndProcess(context.Background(), domain.HRRR, nil)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != domain.StatusComplete {
		t.Fatalf("status = %v, want complete", run.Status)
	}
	if len(rel.metrics) != 0 || len(rel.snapshots) != 0 {
		t.Fatalf("expected no metrics/snapshots with a single model, got %d/%d", len(rel.metrics), len(rel.snapshots))
	}
}

func TestIngestAndProcessIdempotentOnComplete(t *testing.T) {
	rel := newFakeRelationalStore()
	arr := newFakeArrayStore()
	hrrr := &fakeFetcher{model: domain.HRRR, fieldValues: map[domain.Variable]float64{domain.Precip: 1}, leadHours: []int{0}}
	o := New(rel, arr, map[domain.ModelName]fetch.ModelFetcher{domain.HRRR: hrrr}, nil, time.Minute, time.Minute, nil, testLogger())

	first, err := o.IngestAndProcess(context.Background(), domain.HRRR, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := o.IngestAndProcess(context.Background(), domain.HRRR, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same run returned on re-invocation, got %v and %v", first.ID, second.ID)
	}
}

func TestIngestAndProcessZeroHoursErrors(t *testing.T) {
	rel := newFakeRelationalStore()
	arr := newFakeArrayStore()
	hrrr := &fakeFetcher{model: domain.HRRR, leadHours: []int{}}
	o := New(rel, arr, map[domain.ModelName]fetch.ModelFetcher{domain.HRRR: hrrr}, nil, time.Minute, time.Minute, nil, testLogger())

	run, err := o.IngestAndProcess(context.Background(), domain.HRRR, nil)
	if err == nil {
		t.Fatal("expected error for zero lead hours")
	}
	if run.Status != domain.StatusError {
		t.Fatalf("status = %v, want error", run.Status)
	}
}

func TestIngestAndProcessWithCompanionComputesDivergence(t *testing.T) {
	rel := newFakeRelationalStore()
	arr := newFakeArrayStore()
	initTime := resolveInitTime(time.Now())

	gfs := &fakeFetcher{model: domain.GFS, fieldValues: map[domain.Variable]float64{domain.Precip: 2}, leadHours: []int{0, 6}}
	gfsOrc := New(rel, arr, map[domain.ModelName]fetch.ModelFetcher{domain.GFS: gfs}, nil, time.Minute, time.Minute, nil, testLogger())
	if _, err := gfsOrc.IngestAndProcess(context.Background(), domain.GFS, &initTime); err != nil {
		t.Fatal(err)
	}

	hrrr := &fakeFetcher{model: domain.HRRR, fieldValues: map[domain.Variable]float64{domain.Precip: 3}, leadHours: []int{0, 6}}
	points := []domain.MonitorPoint{{Lat: 10, Lon: -100, Label: "test"}}
	hrrrOrc := New(rel, arr, map[domain.ModelName]fetch.ModelFetcher{
		domain.HRRR: hrrr,
		domain.GFS:  gfs,
	}, points, time.Minute, time.Minute, nil, testLogger())

	run, err := hrrrOrc.IngestAndProcess(context.Background(), domain.HRRR, &initTime)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != domain.StatusComplete {
		t.Fatalf("status = %v, want complete", run.Status)
	}
	if len(rel.metrics) == 0 {
		t.Fatal("expected point metrics once a companion model's complete run exists")
	}
	if len(rel.snapshots) == 0 {
		t.Fatal("expected grid snapshots once a companion model's complete run exists")
	}
	for _, m := range rel.metrics {
		if m.RMSE != 1 || m.Bias != 1 && m.Bias != -1 {
			t.Errorf("unexpected metric row %+v", m)
		}
	}
}

func TestNoopHookAndLoggingHookDoNotPanic(t *testing.T) {
	NoopHook{}.AfterIngest(context.Background(), domain.ModelRun{}, nil, nil)
	LoggingHook{Logger: testLogger()}.AfterIngest(context.Background(), domain.ModelRun{}, nil, nil)
}
