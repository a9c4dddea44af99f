package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleTOML = `
database_url = "postgres://localhost/synopticspread"
data_store_path = "file:///tmp/synopticspread-arrays"
scheduler_enabled = false
fetch_timeout_seconds = 120
job_deadline_seconds = 900
allowed_origins = ["https://example.com"]

[[monitor_points]]
lat = 39.74
lon = -104.99
label = "Denver"

[[monitor_points]]
lat = 47.61
lon = -122.33
label = "Seattle"
`

func writeSampleConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "spread.toml")
	if err := os.WriteFile(path, []byte(sampleTOML), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesFields(t *testing.T) {
	cfg, err := Load(writeSampleConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL != "postgres://localhost/synopticspread" {
		t.Errorf("database_url = %q", cfg.DatabaseURL)
	}
	if cfg.SchedulerEnabled {
		t.Error("expected scheduler_enabled = false")
	}
	if cfg.FetchTimeoutSeconds != 120 || cfg.JobDeadlineSeconds != 900 {
		t.Errorf("unexpected timeouts: %+v", cfg)
	}
	if len(cfg.MonitorPoints) != 2 || cfg.MonitorPoints[1].Label != "Seattle" {
		t.Errorf("unexpected monitor points: %+v", cfg.MonitorPoints)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://example.com" {
		t.Errorf("unexpected allowed_origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal.toml")
	if err := os.WriteFile(path, []byte(`database_url = "postgres://localhost/x"`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.SchedulerEnabled {
		t.Error("expected scheduler_enabled to default to true")
	}
	if cfg.FetchTimeoutSeconds != 600 {
		t.Errorf("fetch_timeout_seconds = %d, want default 600", cfg.FetchTimeoutSeconds)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SYNOPTICSPREAD_DATABASE_URL", "postgres://override/db")
	t.Setenv("SYNOPTICSPREAD_SCHEDULER_ENABLED", "false")

	cfg, err := Load(writeSampleConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL != "postgres://override/db" {
		t.Errorf("database_url = %q, want env override applied", cfg.DatabaseURL)
	}
	if cfg.SchedulerEnabled {
		t.Error("expected scheduler_enabled overridden to false")
	}
}

func TestDomainMonitorPointsConversion(t *testing.T) {
	cfg, err := Load(writeSampleConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	points := cfg.DomainMonitorPoints()
	if len(points) != 2 || points[0].Label != "Denver" {
		t.Fatalf("unexpected conversion: %+v", points)
	}
}
