// Command spread runs the SynopticSpread ingestion service: it loads
// configuration, opens the relational and array stores, registers one
// fetcher per supported model, and either starts the cron scheduler or
// runs a single ingest_and_process invocation, depending on flags.
//
// Usage:
//
//	spread -config /etc/synopticspread/spread.toml
//	spread -config spread.toml -once HRRR
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/synopticspread/spread/internal/config"
	"github.com/synopticspread/spread/internal/domain"
	"github.com/synopticspread/spread/internal/fetch"
	"github.com/synopticspread/spread/internal/metrics"
	"github.com/synopticspread/spread/internal/orchestrator"
	"github.com/synopticspread/spread/internal/scheduler"
	"github.com/synopticspread/spread/internal/storage"
)

func main() {
	configPath := flag.String("config", "spread.toml", "path to the TOML configuration file")
	once := flag.String("once", "", "run a single ingest_and_process for this model name and exit, instead of starting the scheduler")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	log.Logger = logger

	if err := run(*configPath, *once, logger); err != nil {
		logger.Fatal().Err(err).Msg("spread exited with an error")
	}
}

func run(configPath, once string, logger zerolog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	rel, err := storage.OpenRelationalStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening relational store: %w", err)
	}
	defer rel.Close()

	arr, err := storage.OpenArrayStore(ctx, cfg.DataStorePath)
	if err != nil {
		return fmt.Errorf("opening array store: %w", err)
	}
	defer arr.Close()

	fetchTimeout := time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	jobDeadline := time.Duration(cfg.JobDeadlineSeconds) * time.Second

	fetchers := map[domain.ModelName]fetch.ModelFetcher{
		domain.HRRR:     fetch.NewHRRRFetcher(fetchTimeout, logger),
		domain.NAM:      fetch.NewNAMFetcher(fetchTimeout, logger),
		domain.GFS:      fetch.NewGFSFetcher(fetchTimeout, logger),
		domain.ECMWFIFS: fetch.NewECMWFIFSFetcher(fetchTimeout, logger),
	}

	orc := orchestrator.New(
		rel, arr, fetchers, cfg.DomainMonitorPoints(),
		fetchTimeout, jobDeadline,
		orchestrator.LoggingHook{Logger: logger},
		logger,
	)

	if once != "" {
		modelName, err := domain.ParseModelName(once)
		if err != nil {
			return fmt.Errorf("invalid -once model name %q: %w", once, err)
		}
		runCtx, cancel := context.WithTimeout(ctx, jobDeadline)
		defer cancel()
		start := time.Now()
		result, err := orc.IngestAndProcess(runCtx, modelName, nil)
		metrics.ObserveJobDuration(modelName, time.Since(start).Seconds())
		metrics.RecordOutcome(modelName, result.Status)
		if err != nil {
			return fmt.Errorf("ingest_and_process(%s): %w", modelName, err)
		}
		logger.Info().Str("model", modelName.String()).Str("status", string(result.Status)).Msg("one-shot ingest finished")
		return nil
	}

	if !cfg.SchedulerEnabled {
		logger.Info().Msg("scheduler_enabled is false; exiting without starting the scheduler")
		return nil
	}

	sched, err := scheduler.New(orc, jobDeadline, logger)
	if err != nil {
		return fmt.Errorf("building scheduler: %w", err)
	}
	for _, modelSchedule := range scheduler.DefaultSchedules() {
		if err := sched.RegisterModel(modelSchedule); err != nil {
			return fmt.Errorf("registering schedule: %w", err)
		}
	}
	sched.Start()
	logger.Info().Msg("scheduler started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down, waiting for in-flight runs to reach a safe checkpoint")
	return sched.Shutdown()
}
