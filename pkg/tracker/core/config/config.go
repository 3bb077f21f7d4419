// Package config loads the process tracker configuration once at startup.
// Values are resolved per key from the process environment, then a .env file,
// then the INI file at ~/.process_tracker/process_tracker_config.ini.
package config

import (
	dbconfig "github.com/tigerroll/processtracker/pkg/tracker/adapter/database/config"
)

// Metrics backend names accepted by process_tracking_metrics_backend.
const (
	MetricsBackendNone       = "none"
	MetricsBackendPrometheus = "prometheus"
	MetricsBackendOtel       = "otel"
)

// Config is the immutable configuration handed to the tracker components.
type Config struct {
	// Database holds the metadata store connection settings.
	Database dbconfig.DatabaseConfig
	// LogLevel is the level name applied to the package logger.
	LogLevel string
	// Metrics selects where run and extract events are recorded.
	Metrics MetricsConfig
}

// MetricsConfig holds observability settings.
type MetricsConfig struct {
	Backend  string // none, prometheus or otel.
	Textfile string // Prometheus textfile written when a CLI command exits.
}

// NewConfig returns a Config holding default values.
func NewConfig() *Config {
	return &Config{
		Database: dbconfig.DatabaseConfig{
			Schema:  DefaultSchema,
			Sslmode: "prefer",
			Pool: dbconfig.PoolConfig{
				MaxOpenConns: 10,
				MaxIdleConns: 5,
			},
		},
		LogLevel: "INFO",
		Metrics:  MetricsConfig{Backend: MetricsBackendNone},
	}
}
