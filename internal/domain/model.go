package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/synopticspread/spread/internal/kernel"
)

// RunStatus is the model_runs lifecycle: pending -> complete | error.
// Neither terminal state is re-entered.
type RunStatus string

const (
	StatusPending  RunStatus = "pending"
	StatusComplete RunStatus = "complete"
	StatusError    RunStatus = "error"
)

// ModelRun is one row of the model_runs table.
type ModelRun struct {
	ID            uuid.UUID
	ModelName     ModelName
	InitTime      time.Time
	ForecastHours []int
	Status        RunStatus
	CreatedAt     time.Time
}

// PointMetric is one row of the point_metrics table: pairwise RMSE/bias
// plus the ensemble-level spread, for a single variable/point/lead_hour.
type PointMetric struct {
	ID        uuid.UUID
	RunAID    uuid.UUID
	RunBID    uuid.UUID
	Variable  Variable
	Lat       float64
	Lon       float64
	LeadHour  int
	RMSE      float64
	Bias      float64
	Spread    float64
	CreatedAt time.Time
}

// BBox is an axis-aligned lat/lon bounding box.
type BBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// GridSnapshot is one row of the grid_snapshots table: a catalog entry
// pointing at an array-store object.
type GridSnapshot struct {
	ID          uuid.UUID
	InitTime    time.Time
	Variable    Variable
	LeadHour    int
	BBox        BBox
	ArrayHandle string
	CreatedAt   time.Time
}

// MonitorPoint is a fixed (lat, lon, label) the metric engine evaluates on
// every run, sourced from configuration.
type MonitorPoint struct {
	Lat   float64
	Lon   float64
	Label string
}

// FieldSet maps a canonical variable to its decoded field for a single
// (model, init_time, lead_hour).
type FieldSet map[Variable]*kernel.Field
