package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	adapterqueue "github.com/civitasgov/pulseguard/internal/adapters/queue"
)

type Config struct {
	Sampling SamplingConfig `yaml:"sampling"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Queue    QueueConfig    `yaml:"queue"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Reports  ReportsConfig  `yaml:"reports"`
}

// SamplingConfig is fixed for a worker's lifetime except via explicit
// reconfiguration (stop, rebuild, start).
type SamplingConfig struct {
	TargetHz         float64       `yaml:"target_hz"`
	MaxOverhead      float64       `yaml:"max_overhead"` // fraction of the pacing interval
	BatchEvery       int           `yaml:"batch_every"`
	OverheadWindow   int           `yaml:"overhead_window"`
	ValidationWindow time.Duration `yaml:"validation_window"`
	Adaptive         *bool         `yaml:"adaptive"`
	Validation       *bool         `yaml:"validation"`
}

type AnalysisConfig struct {
	LatencyBudget      time.Duration `yaml:"latency_budget"`
	MaxConcurrent      int           `yaml:"max_concurrent"`
	EmergencyThreshold float64       `yaml:"emergency_threshold"`
	DrainInterval      time.Duration `yaml:"drain_interval"`
	HistorySize        int           `yaml:"history_size"`
	AdjustWindow       int           `yaml:"adjust_window"`
	Adaptive           *bool         `yaml:"adaptive"`
}

type QueueConfig struct {
	Capacity int    `yaml:"capacity"`
	OnFull   string `yaml:"on_full"` // reject | drop_oldest | drop_newest
}

// IngestConfig shapes inbound event admission ahead of the bounded queue.
// RateLimit 0 disables the limiter.
type IngestConfig struct {
	RateLimit float64 `yaml:"rate_limit"` // events/second
	Burst     int     `yaml:"burst"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// ReportsConfig enables the optional Postgres report sink when ConnString is
// set.
type ReportsConfig struct {
	ConnString  string        `yaml:"conn_string"`
	SampleTable string        `yaml:"sample_table"`
	ReportTable string        `yaml:"report_table"`
	Interval    time.Duration `yaml:"interval"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Sampling.TargetHz == 0 {
		c.Sampling.TargetHz = 1000
	}
	if c.Sampling.MaxOverhead == 0 {
		c.Sampling.MaxOverhead = 0.1
	}
	if c.Sampling.BatchEvery == 0 {
		c.Sampling.BatchEvery = 100
	}
	if c.Sampling.OverheadWindow == 0 {
		c.Sampling.OverheadWindow = 100
	}
	if c.Sampling.ValidationWindow == 0 {
		c.Sampling.ValidationWindow = time.Second
	}

	if c.Analysis.LatencyBudget == 0 {
		c.Analysis.LatencyBudget = 100 * time.Millisecond
	}
	if c.Analysis.MaxConcurrent == 0 {
		c.Analysis.MaxConcurrent = 10
	}
	if c.Analysis.EmergencyThreshold == 0 {
		c.Analysis.EmergencyThreshold = 0.8
	}
	if c.Analysis.DrainInterval == 0 {
		c.Analysis.DrainInterval = 10 * time.Millisecond
	}
	if c.Analysis.HistorySize == 0 {
		c.Analysis.HistorySize = 1000
	}
	if c.Analysis.AdjustWindow == 0 {
		c.Analysis.AdjustWindow = 100
	}

	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = 1024
	}
	if c.Queue.OnFull == "" {
		c.Queue.OnFull = adapterqueue.PolicyReject
	}

	if c.Ingest.Burst == 0 && c.Ingest.RateLimit > 0 {
		c.Ingest.Burst = int(c.Ingest.RateLimit)
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}

	if c.Reports.SampleTable == "" {
		c.Reports.SampleTable = "metric_samples"
	}
	if c.Reports.ReportTable == "" {
		c.Reports.ReportTable = "performance_reports"
	}
	if c.Reports.Interval == 0 {
		c.Reports.Interval = 10 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Sampling.TargetHz <= 0 {
		return fmt.Errorf("sampling.target_hz must be > 0")
	}
	if c.Sampling.MaxOverhead <= 0 || c.Sampling.MaxOverhead > 1 {
		return fmt.Errorf("sampling.max_overhead must be in (0,1]")
	}
	if c.Sampling.BatchEvery <= 0 {
		return fmt.Errorf("sampling.batch_every must be > 0")
	}
	if c.Analysis.LatencyBudget <= 0 {
		return fmt.Errorf("analysis.latency_budget must be > 0")
	}
	if c.Analysis.MaxConcurrent < 1 {
		return fmt.Errorf("analysis.max_concurrent must be >= 1")
	}
	if c.Analysis.EmergencyThreshold <= 0 || c.Analysis.EmergencyThreshold > 1 {
		return fmt.Errorf("analysis.emergency_threshold must be in (0,1]")
	}
	switch c.Queue.OnFull {
	case adapterqueue.PolicyReject, adapterqueue.PolicyDropOldest, adapterqueue.PolicyDropNewest:
	default:
		return fmt.Errorf("queue.on_full must be reject, drop_oldest, or drop_newest; got %q", c.Queue.OnFull)
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	return nil
}

// SamplingAdaptive reports whether adaptive interval tuning is enabled
// (default on).
func (c *Config) SamplingAdaptive() bool { return boolOr(c.Sampling.Adaptive, true) }

// SamplingValidation reports whether wall-clock validation is enabled
// (default on).
func (c *Config) SamplingValidation() bool { return boolOr(c.Sampling.Validation, true) }

// AnalysisAdaptive reports whether adaptive concurrency is enabled
// (default on).
func (c *Config) AnalysisAdaptive() bool { return boolOr(c.Analysis.Adaptive, true) }

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
