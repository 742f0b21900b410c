package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds all runtime settings. It is built once in cmd/server and passed
// into constructors; there is no ambient settings singleton.
type Config struct {
	Port      string `koanf:"port"`
	DBPath    string `koanf:"db_path"`
	JWTSecret string `koanf:"jwt_secret"`

	ExportDir string `koanf:"export_dir"`

	Ingest    IngestConfig    `koanf:"ingest"`
	AntiCheat AntiCheatConfig `koanf:"anti_cheat"`
	Stay      StayConfig      `koanf:"stay"`
	Weather   WeatherConfig   `koanf:"weather"`
	Export    ExportConfig    `koanf:"export"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
}

// IngestConfig bounds the track point query surface.
type IngestConfig struct {
	QueryDefaultLimit int `koanf:"query_default_limit"`
	QueryMaxLimit     int `koanf:"query_max_limit"`
}

// AntiCheatConfig holds the hard-rule thresholds for the track auditor.
type AntiCheatConfig struct {
	MaxStepRatePerSec float64 `koanf:"max_step_rate_per_sec"`
	MinStepLengthM    float64 `koanf:"min_step_length_m"`
	MaxStepLengthM    float64 `koanf:"max_step_length_m"`
	TeleportSpeedMPS  float64 `koanf:"teleport_speed_mps"`
	AccuracyFudgeM    float64 `koanf:"accuracy_fudge_m"`
}

// StayConfig holds the stay-detection thresholds.
type StayConfig struct {
	DistanceThresholdM float64 `koanf:"distance_threshold_m"`
	TimeThresholdS     float64 `koanf:"time_threshold_s"`
}

// WeatherConfig configures the Open-Meteo archive client and cache.
type WeatherConfig struct {
	BaseURL          string        `koanf:"base_url"`
	Timeout          time.Duration `koanf:"timeout"`
	MaxRetries       int           `koanf:"max_retries"`
	BackoffBase      time.Duration `koanf:"backoff_base"`
	GeohashPrecision int           `koanf:"geohash_precision"`
}

// ExportConfig bounds export jobs.
type ExportConfig struct {
	SyncThresholdPoints  int `koanf:"sync_threshold_points"`
	MaxPoints            int `koanf:"max_points"`
	MaxConcurrentPerUser int `koanf:"max_concurrent_per_user"`
}

// SchedulerConfig sizes the background worker pool.
type SchedulerConfig struct {
	Workers   int `koanf:"workers"`
	QueueSize int `koanf:"queue_size"`
}

func defaultConfig() *Config {
	return &Config{
		Port:      ":8080",
		DBPath:    "./data/wayfarer.db",
		JWTSecret: "change-me-in-production",
		ExportDir: "./data/exports",
		Ingest: IngestConfig{
			QueryDefaultLimit: 1000,
			QueryMaxLimit:     5000,
		},
		AntiCheat: AntiCheatConfig{
			MaxStepRatePerSec: 4.0,
			MinStepLengthM:    0.3,
			MaxStepLengthM:    2.5,
			TeleportSpeedMPS:  120.0,
			AccuracyFudgeM:    5.0,
		},
		Stay: StayConfig{
			DistanceThresholdM: 200.0,
			TimeThresholdS:     300.0,
		},
		Weather: WeatherConfig{
			BaseURL:          "https://archive-api.open-meteo.com/v1/archive",
			Timeout:          10 * time.Second,
			MaxRetries:       3,
			BackoffBase:      500 * time.Millisecond,
			GeohashPrecision: 5,
		},
		Export: ExportConfig{
			SyncThresholdPoints:  1000,
			MaxPoints:            100000,
			MaxConcurrentPerUser: 3,
		},
		Scheduler: SchedulerConfig{
			Workers:   2,
			QueueSize: 64,
		},
	}
}

// Load builds the configuration from built-in defaults overridden by WAYFARER_*
// environment variables. Nested keys use a double underscore:
// WAYFARER_EXPORT__MAX_POINTS -> export.max_points.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}

	envProvider := env.Provider("WAYFARER_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "WAYFARER_")), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}
