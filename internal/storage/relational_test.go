package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/synopticspread/spread/internal/domain"
)

func TestEncodeDecodeForecastHoursRoundtrip(t *testing.T) {
	hours := []int{0, 6, 12, 18}
	got := decodeForecastHours(encodeForecastHours(hours))
	if len(got) != len(hours) {
		t.Fatalf("got %v, want %v", got, hours)
	}
	for i := range hours {
		if got[i] != hours[i] {
			t.Errorf("hour[%d] = %d, want %d", i, got[i], hours[i])
		}
	}
}

func TestDecodeForecastHoursEmpty(t *testing.T) {
	if got := decodeForecastHours(""); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

// TestRelationalStoreLiveIntegration exercises the full insert_run /
// find_run / insert_point_metrics / insert_grid_snapshot cycle against a
// real Postgres instance. It is skipped unless SYNOPTICSPREAD_TEST_DATABASE_URL
// is set, since this module does not stand up a database container itself.
func TestRelationalStoreLiveIntegration(t *testing.T) {
	url := os.Getenv("SYNOPTICSPREAD_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("set SYNOPTICSPREAD_TEST_DATABASE_URL to run relational store integration tests")
	}

	ctx := context.Background()
	store, err := OpenRelationalStore(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	initTime := time.Now().UTC().Truncate(time.Hour)
	runID, err := store.InsertRun(ctx, domain.HRRR, initTime)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.InsertRun(ctx, domain.HRRR, initTime); !errors.Is(err, domain.ErrDuplicateRun) {
		t.Fatalf("expected ErrDuplicateRun, got %v", err)
	}

	if err := store.UpdateRunStatus(ctx, runID, domain.StatusComplete, []int{0, 6, 12}); err != nil {
		t.Fatal(err)
	}

	run, err := store.FindRun(ctx, domain.HRRR, initTime)
	if err != nil {
		t.Fatal(err)
	}
	if run == nil || run.Status != domain.StatusComplete || len(run.ForecastHours) != 3 {
		t.Fatalf("unexpected run state: %+v", run)
	}

	otherRunID, err := store.InsertRun(ctx, domain.NAM, initTime)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.InsertPointMetrics(ctx, []domain.PointMetric{
		{ID: uuid.New(), RunAID: runID, RunBID: otherRunID, Variable: domain.Hgt500, Lat: 40, Lon: -100, LeadHour: 6, RMSE: 1, Bias: 0.1, Spread: 2},
	}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteRunMetrics(ctx, runID); err != nil {
		t.Fatal(err)
	}
	rows, err := store.NearbyPointMetrics(ctx, 40, -100, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range rows {
		if row.RunAID == runID || row.RunBID == runID {
			t.Fatalf("DeleteRunMetrics left a row referencing %s: %+v", runID, row)
		}
	}
}
