package orchestrator

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/synopticspread/spread/internal/domain"
)

// Hook is the post-ingest event interface an orchestrator run notifies
// once it reaches a terminal status. It stands in for the alerting
// system named as out of scope: a default no-op and a logging
// implementation are provided, and a caller wanting real alerting
// supplies its own Hook.
type Hook interface {
	AfterIngest(ctx context.Context, run domain.ModelRun, metrics []domain.PointMetric, snapshots []domain.GridSnapshot)
}

// NoopHook discards the event.
type NoopHook struct{}

func (NoopHook) AfterIngest(context.Context, domain.ModelRun, []domain.PointMetric, []domain.GridSnapshot) {}

// LoggingHook records a one-line summary of the run at info level.
type LoggingHook struct {
	Logger zerolog.Logger
}

func (h LoggingHook) AfterIngest(_ context.Context, run domain.ModelRun, metrics []domain.PointMetric, snapshots []domain.GridSnapshot) {
	h.Logger.Info().
		Str("model", run.ModelName.String()).
		Time("init_time", run.InitTime).
		Str("status", string(run.Status)).
		Int("point_metrics", len(metrics)).
		Int("grid_snapshots", len(snapshots)).
		Msg("ingest run finished")
}
