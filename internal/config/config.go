// Package config loads the Config struct the core consumes from a TOML
// file, with environment variables overriding individual fields. This
// is ambient scaffolding that constructs the core's dependencies, not
// part of the core itself.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/synopticspread/spread/internal/domain"
)

// MonitorPoint is the TOML representation of one configured point,
// decoded into domain.MonitorPoint by Load.
type MonitorPoint struct {
	Lat   float64 `toml:"lat"`
	Lon   float64 `toml:"lon"`
	Label string  `toml:"label"`
}

// Config is the full configuration surface enumerated in the external
// interfaces: the relational and array store locations, the scheduler
// master switch, the monitor-point catalog, CORS origins for the
// (out-of-scope) HTTP API, and the per-fetch/per-job timeouts.
type Config struct {
	DatabaseURL         string         `toml:"database_url"`
	DataStorePath       string         `toml:"data_store_path"`
	SchedulerEnabled    bool           `toml:"scheduler_enabled"`
	MonitorPoints       []MonitorPoint `toml:"monitor_points"`
	AllowedOrigins      []string       `toml:"allowed_origins"`
	FetchTimeoutSeconds int            `toml:"fetch_timeout_seconds"`
	JobDeadlineSeconds  int            `toml:"job_deadline_seconds"`
}

// defaults mirror a conservative production posture: scheduler on,
// fetch timeout generous enough for large GRIB2 downloads over a slow
// link, job deadline of one hour for the whole primary fetch, companion
// re-fetch and compute.
func defaults() Config {
	return Config{
		DataStorePath:       "file:///var/lib/synopticspread/arrays",
		SchedulerEnabled:    true,
		FetchTimeoutSeconds: 600,
		JobDeadlineSeconds:  3600,
	}
}

// Load reads path as TOML into Config, starting from defaults(), then
// applies environment variable overrides for the options most commonly
// adjusted per-deployment (database credentials and the scheduler
// switch, kept out of version-controlled TOML).
func Load(path string) (Config, error) {
	cfg := defaults()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SYNOPTICSPREAD_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("SYNOPTICSPREAD_DATA_STORE_PATH"); v != "" {
		cfg.DataStorePath = v
	}
	if v := os.Getenv("SYNOPTICSPREAD_SCHEDULER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SchedulerEnabled = b
		}
	}
}

// DomainMonitorPoints converts the TOML-shaped monitor points into the
// domain type the metric engine consumes.
func (c Config) DomainMonitorPoints() []domain.MonitorPoint {
	out := make([]domain.MonitorPoint, len(c.MonitorPoints))
	for i, p := range c.MonitorPoints {
		out[i] = domain.MonitorPoint{Lat: p.Lat, Lon: p.Lon, Label: p.Label}
	}
	return out
}
