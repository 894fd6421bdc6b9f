package pulseguard

import (
	"github.com/civitasgov/pulseguard/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// SamplingConfig tunes the sampling worker.
	SamplingConfig = config.SamplingConfig
	// AnalysisConfig tunes the analysis worker.
	AnalysisConfig = config.AnalysisConfig
	// QueueConfig bounds the analysis request queue.
	QueueConfig = config.QueueConfig
	// IngestConfig shapes inbound event admission.
	IngestConfig = config.IngestConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// ReportsConfig enables the optional Postgres report sink.
	ReportsConfig = config.ReportsConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a fully defaulted configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}
