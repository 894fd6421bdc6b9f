package supervisor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/civitasgov/pulseguard/internal/adapters/procstat"
	"github.com/civitasgov/pulseguard/internal/app/config"
	"github.com/civitasgov/pulseguard/internal/domain"
)

type stubResultSink struct {
	mu      sync.Mutex
	results []domain.AnalysisResult
}

func (s *stubResultSink) DeliverResult(res domain.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
	return nil
}

func (s *stubResultSink) Name() string { return "stub-results" }

func (s *stubResultSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func (s *stubResultSink) last() domain.AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[len(s.results)-1]
}

type stubAlertSink struct {
	mu          sync.Mutex
	emergencies []domain.EmergencyThreat
	failures    []domain.ValidationFailed
}

func (s *stubAlertSink) DeliverEmergency(alert domain.EmergencyThreat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emergencies = append(s.emergencies, alert)
	return nil
}

func (s *stubAlertSink) DeliverValidationFailure(fail domain.ValidationFailed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, fail)
	return nil
}

func (s *stubAlertSink) Name() string { return "stub-alerts" }

func (s *stubAlertSink) emergencyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.emergencies)
}

func (s *stubAlertSink) failureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failures)
}

type stubReportSink struct {
	mu      sync.Mutex
	samples int
	reports []domain.PerformanceReport
}

func (s *stubReportSink) WriteSamples(samples []domain.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples += len(samples)
	return nil
}

func (s *stubReportSink) WriteReport(report domain.PerformanceReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

func (s *stubReportSink) Name() string { return "stub-reports" }

func (s *stubReportSink) sampleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

func (s *stubReportSink) reportCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

func (s *stubReportSink) lastReport() domain.PerformanceReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports[len(s.reports)-1]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Sampling.TargetHz = 500
	cfg.Sampling.BatchEvery = 50
	cfg.Reports.Interval = 100 * time.Millisecond
	return cfg
}

func TestSupervisorRequiresConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestSupervisorStartStopIdempotent(t *testing.T) {
	sup, err := New(testConfig(), WithStatSource(procstat.NewSimulated(0)))
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}

	if err := sup.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if !sup.Running() {
		t.Fatalf("expected running")
	}

	if err := sup.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := sup.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if sup.Running() {
		t.Fatalf("expected stopped")
	}
}

func TestSupervisorSubmitBeforeStart(t *testing.T) {
	sup, err := New(testConfig(), WithStatSource(procstat.NewSimulated(0)))
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	if _, err := sup.SubmitEvent(domain.ThreatFeatures{}, domain.PriorityNormal); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestSupervisorRoutesResultsToSink(t *testing.T) {
	results := &stubResultSink{}
	sup, err := New(testConfig(),
		WithStatSource(procstat.NewSimulated(0)),
		WithResultSink(results))
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sup.Stop()

	id, err := sup.SubmitEvent(domain.ThreatFeatures{Origin: "10.0.0.1"}, domain.PriorityNormal)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a minted request id")
	}

	waitFor(t, 3*time.Second, func() bool { return results.count() >= 1 })
	if got := results.last().RequestID; got != id {
		t.Fatalf("result id %s does not match minted id %s", got, id)
	}
}

func TestSupervisorRoutesEmergencyToAlertSink(t *testing.T) {
	results := &stubResultSink{}
	alerts := &stubAlertSink{}
	sup, err := New(testConfig(),
		WithStatSource(procstat.NewSimulated(0)),
		WithResultSink(results),
		WithAlertSink(alerts))
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sup.Stop()

	_, err = sup.SubmitEvent(domain.ThreatFeatures{
		Origin:           "203.0.113.7",
		OriginReputation: 0.95,
		RequestRate:      600,
		FailedLogins:     12,
		TokenReuse:       true,
		GeoVelocityKmh:   1500,
	}, domain.PriorityHigh)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		return alerts.emergencyCount() >= 1 && results.count() >= 1
	})
}

func TestSupervisorRoutesValidationFailures(t *testing.T) {
	alerts := &stubAlertSink{}
	cfg := testConfig()
	cfg.Sampling.TargetHz = 1000
	cfg.Sampling.BatchEvery = 10
	cfg.Sampling.ValidationWindow = 200 * time.Millisecond

	// 5ms capture cost makes 1000 Hz unreachable.
	sup, err := New(cfg,
		WithStatSource(procstat.NewSimulated(5*time.Millisecond)),
		WithAlertSink(alerts))
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sup.Stop()

	waitFor(t, 5*time.Second, func() bool { return alerts.failureCount() >= 1 })
}

func TestSupervisorDeliversMetricsBatches(t *testing.T) {
	reports := &stubReportSink{}
	sup, err := New(testConfig(),
		WithStatSource(procstat.NewSimulated(0)),
		WithReportSink(reports))
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sup.Stop()

	waitFor(t, 3*time.Second, func() bool { return reports.sampleCount() >= 100 })
}

func TestSupervisorEmitsPeriodicReports(t *testing.T) {
	reports := &stubReportSink{}
	sup, err := New(testConfig(),
		WithStatSource(procstat.NewSimulated(0)),
		WithReportSink(reports))
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sup.Stop()

	waitFor(t, 3*time.Second, func() bool { return reports.reportCount() >= 2 })

	rep := reports.lastReport()
	if rep.SamplingTarget != 500 {
		t.Fatalf("expected target 500 Hz in report, got %f", rep.SamplingTarget)
	}
	if rep.SamplingAchieved <= 0 {
		t.Fatalf("expected nonzero achieved frequency")
	}
}

func TestSupervisorRateLimitsIngest(t *testing.T) {
	cfg := testConfig()
	cfg.Ingest.RateLimit = 1
	cfg.Ingest.Burst = 1

	sup, err := New(cfg, WithStatSource(procstat.NewSimulated(0)))
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sup.Stop()

	if _, err := sup.SubmitEvent(domain.ThreatFeatures{}, domain.PriorityNormal); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := sup.SubmitEvent(domain.ThreatFeatures{}, domain.PriorityNormal); !errors.Is(err, ErrAdmissionDenied) {
		t.Fatalf("expected ErrAdmissionDenied, got %v", err)
	}
}

func TestSupervisorSnapshotAggregates(t *testing.T) {
	sup, err := New(testConfig(), WithStatSource(procstat.NewSimulated(0)))
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	if err := sup.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sup.Stop()

	waitFor(t, 3*time.Second, func() bool {
		return sup.Stats().Buffer.SampleCount >= 100
	})

	snap := sup.Stats()
	if !snap.Running || !snap.Sampling.Running || !snap.Analysis.Running {
		t.Fatalf("expected all components running: %+v", snap)
	}
	if snap.Analysis.ConcurrencyLimit != 10 {
		t.Fatalf("expected default concurrency limit 10, got %d", snap.Analysis.ConcurrencyLimit)
	}
}
