package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/synopticspread/spread/internal/domain"
)

// Schema is the DDL applied once at startup. The partial unique index
// covers only non-error rows, so a prior failed attempt at
// (model_name, init_time) never blocks a fresh one — only a pending or
// complete run does. That index is what makes insert_run's duplicate
// check atomic with the insert: InsertRun relies on
// "INSERT ... ON CONFLICT DO NOTHING" against it instead of a
// separate probe-then-insert round trip.
const Schema = `
CREATE TABLE IF NOT EXISTS model_runs (
	id             uuid PRIMARY KEY,
	model_name     text NOT NULL,
	init_time      timestamptz NOT NULL,
	forecast_hours text NOT NULL DEFAULT '',
	status         text NOT NULL,
	created_at     timestamptz NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS model_runs_active_idx
	ON model_runs (model_name, init_time) WHERE status <> 'error';

CREATE TABLE IF NOT EXISTS point_metrics (
	id          uuid PRIMARY KEY,
	run_a_id    uuid NOT NULL REFERENCES model_runs(id),
	run_b_id    uuid NOT NULL REFERENCES model_runs(id),
	variable    text NOT NULL,
	lat         double precision NOT NULL,
	lon         double precision NOT NULL,
	lead_hour   integer NOT NULL,
	rmse        double precision NOT NULL,
	bias        double precision NOT NULL,
	spread      double precision NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS point_metrics_proximity_idx ON point_metrics (lat, lon);

CREATE TABLE IF NOT EXISTS grid_snapshots (
	id           uuid PRIMARY KEY,
	init_time    timestamptz NOT NULL,
	variable     text NOT NULL,
	lead_hour    integer NOT NULL,
	min_lat      double precision NOT NULL,
	max_lat      double precision NOT NULL,
	min_lon      double precision NOT NULL,
	max_lon      double precision NOT NULL,
	array_handle text NOT NULL,
	created_at   timestamptz NOT NULL DEFAULT now()
);
`

// RelationalStore is the catalog of runs, point metrics, and grid
// snapshots. The array data a GridSnapshot references lives in an
// ArrayStore, addressed by ArrayHandle.
type RelationalStore struct {
	db *sqlx.DB
}

func OpenRelationalStore(ctx context.Context, databaseURL string) (*RelationalStore, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %s", domain.ErrStorageFailure, err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: pinging database: %s", domain.ErrStorageFailure, err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, fmt.Errorf("%w: applying schema: %s", domain.ErrStorageFailure, err)
	}
	return &RelationalStore{db: db}, nil
}

func (s *RelationalStore) Close() error {
	return s.db.Close()
}

// InsertRun creates a pending run row for (modelName, initTime). The
// partial unique index on active (non-error) rows makes this atomic
// with the duplicate check via ON CONFLICT DO NOTHING: a concurrent
// caller racing the same pair simply inserts zero rows and learns that
// from RowsAffected, rather than racing a separate probe-then-insert.
func (s *RelationalStore) InsertRun(ctx context.Context, modelName domain.ModelName, initTime time.Time) (uuid.UUID, error) {
	id := uuid.New()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO model_runs (id, model_name, init_time, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (model_name, init_time) WHERE status <> 'error' DO NOTHING`,
		id, modelName.String(), initTime.UTC(), domain.StatusPending,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: insert_run: %s", domain.ErrStorageFailure, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: insert_run: %s", domain.ErrStorageFailure, err)
	}
	if n == 0 {
		return uuid.Nil, domain.ErrDuplicateRun
	}
	return id, nil
}

// FindRun probes for an existing run at (modelName, initTime), used both
// for the idempotency check and to locate companion-model runs. Returns
// nil, nil when no row exists.
func (s *RelationalStore) FindRun(ctx context.Context, modelName domain.ModelName, initTime time.Time) (*domain.ModelRun, error) {
	var row modelRunRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, model_name, init_time, forecast_hours, status, created_at
		 FROM model_runs WHERE model_name = $1 AND init_time = $2`,
		modelName.String(), initTime.UTC(),
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find_run: %s", domain.ErrStorageFailure, err)
	}
	run := row.toDomain()
	return &run, nil
}

func (s *RelationalStore) UpdateRunStatus(ctx context.Context, runID uuid.UUID, status domain.RunStatus, forecastHours []int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE model_runs SET status = $1, forecast_hours = $2 WHERE id = $3`,
		status, encodeForecastHours(forecastHours), runID,
	)
	if err != nil {
		return fmt.Errorf("%w: update_run_status: %s", domain.ErrStorageFailure, err)
	}
	return nil
}

func encodeForecastHours(hours []int) string {
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = strconv.Itoa(h)
	}
	return strings.Join(parts, ",")
}

func decodeForecastHours(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	hours := make([]int, 0, len(parts))
	for _, p := range parts {
		if h, err := strconv.Atoi(p); err == nil {
			hours = append(hours, h)
		}
	}
	return hours
}

// InsertPointMetrics batch-inserts rows in a single transaction, one
// prepared-statement execution per row.
func (s *RelationalStore) InsertPointMetrics(ctx context.Context, rows []domain.PointMetric) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrStorageFailure, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO point_metrics (id, run_a_id, run_b_id, variable, lat, lon, lead_hour, rmse, bias, spread)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrStorageFailure, err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.ID, r.RunAID, r.RunBID, r.Variable.String(), r.Lat, r.Lon, r.LeadHour, r.RMSE, r.Bias, r.Spread); err != nil {
			return fmt.Errorf("%w: insert_point_metrics: %s", domain.ErrStorageFailure, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrStorageFailure, err)
	}
	return nil
}

// InsertGridSnapshot catalogs a snapshot whose field data has already
// been written to the array store; callers MUST complete the array
// store Put before calling this, since the catalog row is the
// durability boundary.
func (s *RelationalStore) InsertGridSnapshot(ctx context.Context, snap domain.GridSnapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO grid_snapshots (id, init_time, variable, lead_hour, min_lat, max_lat, min_lon, max_lon, array_handle)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		snap.ID, snap.InitTime.UTC(), snap.Variable.String(), snap.LeadHour,
		snap.BBox.MinLat, snap.BBox.MaxLat, snap.BBox.MinLon, snap.BBox.MaxLon, snap.ArrayHandle,
	)
	if err != nil {
		return fmt.Errorf("%w: insert_grid_snapshot: %s", domain.ErrStorageFailure, err)
	}
	return nil
}

// DeleteRunMetrics deletes every point_metrics row naming runID as
// either side of the pair. Used by Reset to undo a partially-ingested
// run without touching the run row itself or other runs' rows.
func (s *RelationalStore) DeleteRunMetrics(ctx context.Context, runID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM point_metrics WHERE run_a_id = $1 OR run_b_id = $1`,
		runID,
	)
	if err != nil {
		return fmt.Errorf("%w: delete_run_metrics: %s", domain.ErrStorageFailure, err)
	}
	return nil
}

// NearbyPointMetrics returns point metrics within the spec's proximity
// box (|lat-qLat| <= 0.5 and |lon-qLon| <= 0.5), newest first.
func (s *RelationalStore) NearbyPointMetrics(ctx context.Context, qLat, qLon float64, limit int) ([]domain.PointMetric, error) {
	var rows []pointMetricRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, run_a_id, run_b_id, variable, lat, lon, lead_hour, rmse, bias, spread, created_at
		 FROM point_metrics
		 WHERE abs(lat - $1) <= 0.5 AND abs(lon - $2) <= 0.5
		 ORDER BY created_at DESC
		 LIMIT $3`,
		qLat, qLon, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: nearby_point_metrics: %s", domain.ErrStorageFailure, err)
	}
	out := make([]domain.PointMetric, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// LatestGridSnapshot returns the newest snapshot for (variable, leadHour), if any.
func (s *RelationalStore) LatestGridSnapshot(ctx context.Context, variable domain.Variable, leadHour int) (*domain.GridSnapshot, error) {
	var row gridSnapshotRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, init_time, variable, lead_hour, min_lat, max_lat, min_lon, max_lon, array_handle, created_at
		 FROM grid_snapshots
		 WHERE variable = $1 AND lead_hour = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		variable.String(), leadHour,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: latest_grid_snapshot: %s", domain.ErrStorageFailure, err)
	}
	snap := row.toDomain()
	return &snap, nil
}

type modelRunRow struct {
	ID            uuid.UUID `db:"id"`
	ModelName     string    `db:"model_name"`
	InitTime      time.Time `db:"init_time"`
	ForecastHours string    `db:"forecast_hours"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r modelRunRow) toDomain() domain.ModelRun {
	modelName, _ := domain.ParseModelName(r.ModelName)
	return domain.ModelRun{
		ID:            r.ID,
		ModelName:     modelName,
		InitTime:      r.InitTime,
		ForecastHours: decodeForecastHours(r.ForecastHours),
		Status:        domain.RunStatus(r.Status),
		CreatedAt:     r.CreatedAt,
	}
}

type pointMetricRow struct {
	ID        uuid.UUID `db:"id"`
	RunAID    uuid.UUID `db:"run_a_id"`
	RunBID    uuid.UUID `db:"run_b_id"`
	Variable  string    `db:"variable"`
	Lat       float64   `db:"lat"`
	Lon       float64   `db:"lon"`
	LeadHour  int       `db:"lead_hour"`
	RMSE      float64   `db:"rmse"`
	Bias      float64   `db:"bias"`
	Spread    float64   `db:"spread"`
	CreatedAt time.Time `db:"created_at"`
}

func (r pointMetricRow) toDomain() domain.PointMetric {
	variable, _ := domain.ParseVariable(r.Variable)
	return domain.PointMetric{
		ID: r.ID, RunAID: r.RunAID, RunBID: r.RunBID,
		Variable: variable, Lat: r.Lat, Lon: r.Lon, LeadHour: r.LeadHour,
		RMSE: r.RMSE, Bias: r.Bias, Spread: r.Spread, CreatedAt: r.CreatedAt,
	}
}

type gridSnapshotRow struct {
	ID          uuid.UUID `db:"id"`
	InitTime    time.Time `db:"init_time"`
	Variable    string    `db:"variable"`
	LeadHour    int       `db:"lead_hour"`
	MinLat      float64   `db:"min_lat"`
	MaxLat      float64   `db:"max_lat"`
	MinLon      float64   `db:"min_lon"`
	MaxLon      float64   `db:"max_lon"`
	ArrayHandle string    `db:"array_handle"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r gridSnapshotRow) toDomain() domain.GridSnapshot {
	variable, _ := domain.ParseVariable(r.Variable)
	return domain.GridSnapshot{
		ID: r.ID, InitTime: r.InitTime, Variable: variable, LeadHour: r.LeadHour,
		BBox:        domain.BBox{MinLat: r.MinLat, MaxLat: r.MaxLat, MinLon: r.MinLon, MaxLon: r.MaxLon},
		ArrayHandle: r.ArrayHandle, CreatedAt: r.CreatedAt,
	}
}
