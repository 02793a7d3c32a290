package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cephstor/pgautoscaler/internal/decide"
	"github.com/cephstor/pgautoscaler/pkg/placement"
)

// Config is the top-level configuration for the PG autoscaler.
type Config struct {
	SleepInterval      time.Duration     `yaml:"sleepInterval"`
	AutoscaleProfile   placement.Profile `yaml:"autoscaleProfile"`
	MonTargetPGPerOSD  int               `yaml:"monTargetPgPerOsd"`
	MonMaxPGPerOSD     int               `yaml:"monMaxPgPerOsd"`
	Threshold          float64           `yaml:"threshold"`

	PoolDefaults PoolDefaultsConfig `yaml:"poolDefaults"`
	APIServer    APIServerConfig    `yaml:"apiServer"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Database     DatabaseConfig     `yaml:"database"`
	Report       ReportConfig       `yaml:"report"`
}

// PoolDefaultsConfig holds default per-pool options (spec §3). Validate
// checks these values, but the control loop does not read them: a pool
// that leaves pg_num_min or pg_autoscale_bias unset falls back to
// placement.DefaultPGNumMin and 1.0 (placement.PoolOptions.Normalized).
type PoolDefaultsConfig struct {
	PGNumMin        int     `yaml:"pgNumMin"`
	PGAutoscaleBias float64 `yaml:"pgAutoscaleBias"`
}

type APIServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retentionDays"`
}

// ReportConfig selects the collaborator backend used to publish progress
// and health-check state (spec §6): "mock" for the in-memory fake, "k8s"
// for the CRD-status-backed one.
type ReportConfig struct {
	Backend string `yaml:"backend"`
}

// DefaultConfig returns a Config with sensible defaults. Profile and
// target PGs per OSD can be overridden via PGAUTOSCALER_PROFILE and
// PGAUTOSCALER_MON_TARGET_PG_PER_OSD env vars.
func DefaultConfig() *Config {
	cfg := &Config{
		SleepInterval:     60 * time.Second,
		AutoscaleProfile:  placement.ProfileScaleUp,
		MonTargetPGPerOSD: 100,
		MonMaxPGPerOSD:    250,
		Threshold:         decide.DefaultThreshold,
		PoolDefaults: PoolDefaultsConfig{
			PGNumMin:        placement.DefaultPGNumMin,
			PGAutoscaleBias: 1.0,
		},
		APIServer: APIServerConfig{
			Enabled: true,
			Address: "0.0.0.0",
			Port:    8080,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: "0.0.0.0",
			Port:    9090,
		},
		Database: DatabaseConfig{
			Path:          "/data/pgautoscaler.db",
			RetentionDays: 90,
		},
		Report: ReportConfig{
			Backend: "mock",
		},
	}

	cfg.applyEnvOverrides()
	return cfg
}

// LoadFromFile loads config from a YAML file, overlaying on defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides fills in fields from environment variables, taking
// precedence over file/default values. This covers the common case of a
// container image with a baked-in config file but per-deployment tuning
// supplied through the environment.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PGAUTOSCALER_PROFILE"); v != "" {
		c.AutoscaleProfile = placement.Profile(v)
	}
	if v := os.Getenv("PGAUTOSCALER_MON_TARGET_PG_PER_OSD"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			c.MonTargetPGPerOSD = n
		}
	}
	if v := os.Getenv("PGAUTOSCALER_SLEEP_INTERVAL_SECONDS"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			c.SleepInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("PGAUTOSCALER_REPORT_BACKEND"); v != "" {
		c.Report.Backend = v
	}
}

func parsePositiveInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value %q must be positive", s)
	}
	return n, nil
}

// Validate checks the config for errors (spec §4.4, §6).
func (c *Config) Validate() error {
	switch c.AutoscaleProfile {
	case placement.ProfileScaleUp, placement.ProfileScaleDown:
	default:
		return fmt.Errorf("invalid autoscaleProfile %q: must be %s or %s", c.AutoscaleProfile, placement.ProfileScaleUp, placement.ProfileScaleDown)
	}

	if c.SleepInterval <= 0 {
		return fmt.Errorf("sleepInterval must be positive, got %s", c.SleepInterval)
	}

	if c.MonTargetPGPerOSD <= 0 {
		return fmt.Errorf("monTargetPgPerOsd must be positive, got %d", c.MonTargetPGPerOSD)
	}
	if c.MonMaxPGPerOSD > 0 && c.MonMaxPGPerOSD < c.MonTargetPGPerOSD {
		return fmt.Errorf("monMaxPgPerOsd (%d) must be >= monTargetPgPerOsd (%d)", c.MonMaxPGPerOSD, c.MonTargetPGPerOSD)
	}

	if c.Threshold < decide.MinThreshold {
		return fmt.Errorf("threshold must be >= %.1f, got %.2f", decide.MinThreshold, c.Threshold)
	}

	if c.PoolDefaults.PGNumMin < 1 {
		return fmt.Errorf("poolDefaults.pgNumMin must be >= 1, got %d", c.PoolDefaults.PGNumMin)
	}
	if c.PoolDefaults.PGAutoscaleBias <= 0 {
		return fmt.Errorf("poolDefaults.pgAutoscaleBias must be > 0, got %.2f", c.PoolDefaults.PGAutoscaleBias)
	}

	switch c.Report.Backend {
	case "mock", "k8s":
	default:
		return fmt.Errorf("invalid report.backend %q: must be mock or k8s", c.Report.Backend)
	}

	return nil
}
