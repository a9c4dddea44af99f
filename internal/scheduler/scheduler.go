// Package scheduler runs one gocron job per model, offset from the
// nominal 00/06/12/18 UTC cycle by that provider's typical publication
// latency. Jobs run in singleton mode so a job's next firing is skipped
// rather than overlapped if the previous invocation of the same model
// hasn't finished — the coalesce-or-skip guarantee.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/synopticspread/spread/internal/domain"
	"github.com/synopticspread/spread/internal/metrics"
)

// Orchestrator is the slice of orchestrator.Orchestrator the scheduler
// depends on, narrowed to an interface to keep this package free of an
// import cycle and independently testable.
type Orchestrator interface {
	IngestAndProcess(ctx context.Context, modelName domain.ModelName, initTime *time.Time) (domain.ModelRun, error)
}

// ModelSchedule is one model's offset from the nominal 6-hour cycle
// boundary, matching the publisher latencies named in the component
// design (NOMADS models ~5h, ECMWF open data ~7-9h).
type ModelSchedule struct {
	Model      domain.ModelName
	OffsetFrom time.Duration
}

// DefaultSchedules returns the recommended per-model offsets.
func DefaultSchedules() []ModelSchedule {
	return []ModelSchedule{
		{Model: domain.HRRR, OffsetFrom: 1 * time.Hour},
		{Model: domain.NAM, OffsetFrom: 5 * time.Hour},
		{Model: domain.GFS, OffsetFrom: 5 * time.Hour},
		{Model: domain.ECMWFIFS, OffsetFrom: 8 * time.Hour},
	}
}

// Scheduler owns the gocron instance and the orchestrator jobs
// registered against it.
type Scheduler struct {
	gocron       gocron.Scheduler
	orchestrator Orchestrator
	jobDeadline  time.Duration
	logger       zerolog.Logger
}

// New constructs a Scheduler. jobDeadline bounds how long any one job
// invocation is allowed to run before the orchestrator is told to
// finalize as error.
func New(orchestrator Orchestrator, jobDeadline time.Duration, logger zerolog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	return &Scheduler{gocron: s, orchestrator: orchestrator, jobDeadline: jobDeadline, logger: logger}, nil
}

// cronHoursOfDay converts an offset from the 00/06/12/18 cycle
// boundary into the four absolute hours-of-day a cron expression fires
// at, wrapping past 24h.
func cronHoursOfDay(offset time.Duration) []int {
	offsetHours := int(offset.Hours())
	hours := make([]int, 0, 4)
	for _, base := range []int{0, 6, 12, 18} {
		hours = append(hours, (base+offsetHours)%24)
	}
	return hours
}

// RegisterModel adds a cron job for one model, running in singleton
// mode (LimitModeReschedule) so overlapping invocations are skipped
// rather than run concurrently.
func (s *Scheduler) RegisterModel(sched ModelSchedule) error {
	hours := cronHoursOfDay(sched.OffsetFrom)
	cronExpr := fmt.Sprintf("0 %d,%d,%d,%d * * *", hours[0], hours[1], hours[2], hours[3])

	_, err := s.gocron.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(s.runModel, sched.Model),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("ingest_"+sched.Model.String()),
	)
	if err != nil {
		return fmt.Errorf("scheduler: registering %s: %w", sched.Model, err)
	}
	return nil
}

func (s *Scheduler) runModel(modelName domain.ModelName) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobDeadline)
	defer cancel()

	start := time.Now()
	run, err := s.orchestrator.IngestAndProcess(ctx, modelName, nil)
	metrics.ObserveJobDuration(modelName, time.Since(start).Seconds())
	metrics.RecordOutcome(modelName, run.Status)

	logEvent := s.logger.Info()
	if err != nil {
		logEvent = s.logger.Error().Err(err)
	}
	logEvent.Str("model", modelName.String()).Str("status", string(run.Status)).Msg("scheduled ingest finished")
}

// Start begins dispatching jobs.
func (s *Scheduler) Start() {
	s.gocron.Start()
}

// Shutdown stops dispatching new jobs and waits for in-flight
// invocations to reach a safe checkpoint (their run row resolved to
// complete or error) before returning. No mid-fetch cancellation of
// external requests happens here; gocron's shutdown just stops the
// dispatch loop, while each already-running job's own job-deadline
// context bounds how long that wait can take.
func (s *Scheduler) Shutdown() error {
	return s.gocron.Shutdown()
}
