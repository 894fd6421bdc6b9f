package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := `
sampling:
  target_hz: 500
analysis:
  max_concurrent: 4
queue:
  capacity: 64
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Sampling.TargetHz != 500 {
		t.Fatalf("expected target_hz 500, got %f", cfg.Sampling.TargetHz)
	}
	if cfg.Sampling.MaxOverhead != 0.1 {
		t.Fatalf("expected max_overhead default 0.1, got %f", cfg.Sampling.MaxOverhead)
	}
	if cfg.Sampling.BatchEvery != 100 {
		t.Fatalf("expected batch_every default 100, got %d", cfg.Sampling.BatchEvery)
	}
	if cfg.Analysis.LatencyBudget != 100*time.Millisecond {
		t.Fatalf("expected latency budget default 100ms, got %s", cfg.Analysis.LatencyBudget)
	}
	if cfg.Analysis.EmergencyThreshold != 0.8 {
		t.Fatalf("expected emergency threshold default 0.8, got %f", cfg.Analysis.EmergencyThreshold)
	}
	if cfg.Queue.OnFull != "reject" {
		t.Fatalf("expected queue policy default reject, got %s", cfg.Queue.OnFull)
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Fatalf("expected default metrics addr :9100, got %s", cfg.Metrics.Addr)
	}
	if !cfg.SamplingAdaptive() || !cfg.SamplingValidation() || !cfg.AnalysisAdaptive() {
		t.Fatalf("adaptive and validation must default on")
	}
}

func TestLoadHonorsExplicitToggles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := `
sampling:
  adaptive: false
  validation: false
analysis:
  adaptive: false
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SamplingAdaptive() || cfg.SamplingValidation() || cfg.AnalysisAdaptive() {
		t.Fatalf("explicit false toggles must be honored")
	}
}

func TestValidateRejectsBadPolicy(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.Queue.OnFull = "explode"

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for bad queue policy")
	}
}

func TestValidateRejectsBadOverhead(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.Sampling.MaxOverhead = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for max_overhead > 1")
	}
}
