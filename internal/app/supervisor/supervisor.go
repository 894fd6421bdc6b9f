// Package supervisor owns the worker pair: it starts and stops both workers,
// mints analysis requests from inbound events, routes worker messages to the
// configured sinks, and publishes the periodic performance report.
package supervisor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/civitasgov/pulseguard/internal/adapters/procstat"
	"github.com/civitasgov/pulseguard/internal/adapters/queue"
	"github.com/civitasgov/pulseguard/internal/app/analysis"
	"github.com/civitasgov/pulseguard/internal/app/config"
	"github.com/civitasgov/pulseguard/internal/app/sampling"
	"github.com/civitasgov/pulseguard/internal/domain"
	"github.com/civitasgov/pulseguard/internal/ports"
	"github.com/civitasgov/pulseguard/internal/shm"
)

// ErrAdmissionDenied is returned when the inbound rate limiter refuses an
// event before it ever reaches the analysis queue.
var ErrAdmissionDenied = errors.New("supervisor: inbound rate limit exceeded")

// ErrNotRunning is returned for submissions against a stopped supervisor.
var ErrNotRunning = errors.New("supervisor: not running")

// maxRestarts bounds the crash watchdog. A worker that keeps dying takes the
// whole process down with it rather than flapping forever.
const maxRestarts = 3

const eventBuffer = 1024

// Option overrides a supervisor dependency.
type Option func(*overrides)

type overrides struct {
	source     ports.StatSource
	queue      ports.RequestQueue
	scorer     analysis.Scorer
	obs        ports.Observability
	resultSink ports.ResultSink
	alertSink  ports.AlertSink
	reportSink ports.ReportSink
}

// WithStatSource injects a custom process-stat source (e.g. the simulated one).
func WithStatSource(s ports.StatSource) Option {
	return func(o *overrides) { o.source = s }
}

// WithQueue injects a custom analysis request queue.
func WithQueue(q ports.RequestQueue) Option {
	return func(o *overrides) { o.queue = q }
}

// WithScorer overrides the default heuristic pipeline.
func WithScorer(s analysis.Scorer) Option {
	return func(o *overrides) { o.scorer = s }
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs ports.Observability) Option {
	return func(o *overrides) { o.obs = obs }
}

// WithResultSink receives the exactly-one result per admitted request.
func WithResultSink(s ports.ResultSink) Option {
	return func(o *overrides) { o.resultSink = s }
}

// WithAlertSink receives emergency escalations and validation failures.
func WithAlertSink(s ports.AlertSink) Option {
	return func(o *overrides) { o.alertSink = s }
}

// WithReportSink receives metrics batches and periodic performance reports.
func WithReportSink(s ports.ReportSink) Option {
	return func(o *overrides) { o.reportSink = s }
}

// Snapshot aggregates both workers and the shared buffer into one view.
// Float fields read from the shared buffer may be torn relative to the
// counters.
type Snapshot struct {
	Running bool

	Sampling sampling.Stats
	Analysis analysis.Stats
	Buffer   shm.Snapshot

	SamplingRestarts int
	AnalysisRestarts int
}

// Supervisor is the single owner of worker lifecycle and event routing.
// Everything a worker reports flows through one events channel; the fan-out
// loop is the only consumer.
type Supervisor struct {
	cfg *config.Config
	obs ports.Observability

	buffer   *shm.MetricsBuffer
	sampler  *sampling.Worker
	analyzer *analysis.Worker
	limiter  *rate.Limiter

	resultSink ports.ResultSink
	alertSink  ports.AlertSink
	reportSink ports.ReportSink

	events chan domain.Message

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	samplingRestarts atomic.Int64
	analysisRestarts atomic.Int64
}

// New wires the default adapters: real procstat source, bounded in-memory
// queue per the configured admission policy, heuristic pipeline, nop
// observability. Options override any of them.
func New(cfg *config.Config, opts ...Option) (*Supervisor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("supervisor: config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	obs := o.obs
	if obs == nil {
		obs = ports.Nop()
	}

	src := o.source
	if src == nil {
		src = procstat.NewReal()
	}

	q := o.queue
	if q == nil {
		q = queue.NewMemQueue(cfg.Queue.Capacity, cfg.Queue.OnFull)
	}

	events := make(chan domain.Message, eventBuffer)
	buffer := shm.NewMetricsBuffer()

	sampler, err := sampling.New(sampling.Config{
		TargetHz:         cfg.Sampling.TargetHz,
		MaxOverhead:      cfg.Sampling.MaxOverhead,
		BatchEvery:       cfg.Sampling.BatchEvery,
		OverheadWindow:   cfg.Sampling.OverheadWindow,
		ValidationWindow: cfg.Sampling.ValidationWindow,
		Adaptive:         cfg.SamplingAdaptive(),
		Validation:       cfg.SamplingValidation(),
	}, src, buffer, events, obs)
	if err != nil {
		return nil, err
	}

	analyzer, err := analysis.New(analysis.Config{
		LatencyBudget:      cfg.Analysis.LatencyBudget,
		MaxConcurrent:      cfg.Analysis.MaxConcurrent,
		EmergencyThreshold: cfg.Analysis.EmergencyThreshold,
		DrainInterval:      cfg.Analysis.DrainInterval,
		HistorySize:        cfg.Analysis.HistorySize,
		AdjustWindow:       cfg.Analysis.AdjustWindow,
		Adaptive:           cfg.AnalysisAdaptive(),
	}, q, o.scorer, events, obs)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.Ingest.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Ingest.RateLimit), cfg.Ingest.Burst)
	}

	return &Supervisor{
		cfg:        cfg,
		obs:        obs,
		buffer:     buffer,
		sampler:    sampler,
		analyzer:   analyzer,
		limiter:    limiter,
		resultSink: o.resultSink,
		alertSink:  o.alertSink,
		reportSink: o.reportSink,
		events:     events,
	}, nil
}

// Start launches both workers and the fan-out loop. Idempotent.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if err := s.sampler.Start(); err != nil {
		return err
	}
	if err := s.analyzer.Start(); err != nil {
		_ = s.sampler.Stop()
		return err
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.running = true
	go s.run(s.stopCh, s.doneCh)

	s.obs.LogInfo("supervisor_started",
		ports.Field{Key: "target_hz", Value: s.cfg.Sampling.TargetHz},
		ports.Field{Key: "max_concurrent", Value: s.cfg.Analysis.MaxConcurrent})
	return nil
}

// Stop halts the workers first so no new messages are produced, then drains
// the fan-out loop. Idempotent.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	err := errors.Join(s.sampler.Stop(), s.analyzer.Stop())
	close(stopCh)
	<-doneCh

	s.obs.LogInfo("supervisor_stopped")
	return err
}

// Running reports whether the supervisor loop is active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SubmitEvent mints an analysis request for an inbound event and hands it to
// the analysis worker. The rate limiter, when configured, refuses before the
// queue ever sees the event.
func (s *Supervisor) SubmitEvent(features domain.ThreatFeatures, priority domain.Priority) (string, error) {
	if !s.Running() {
		return "", ErrNotRunning
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.obs.IncCounter("pulse_ingest_denied_total", 1)
		return "", ErrAdmissionDenied
	}

	req := &domain.AnalysisRequest{
		ID:        uuid.NewString(),
		Submitted: time.Now(),
		Features:  features,
		Priority:  priority,
	}
	if err := s.analyzer.Submit(req); err != nil {
		return "", err
	}
	return req.ID, nil
}

// Submit hands a caller-constructed request to the analysis worker,
// bypassing the id mint but not the rate limiter.
func (s *Supervisor) Submit(req *domain.AnalysisRequest) error {
	if !s.Running() {
		return ErrNotRunning
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.obs.IncCounter("pulse_ingest_denied_total", 1)
		return ErrAdmissionDenied
	}
	return s.analyzer.Submit(req)
}

// Stats aggregates both workers and the shared buffer.
func (s *Supervisor) Stats() Snapshot {
	return Snapshot{
		Running:          s.Running(),
		Sampling:         s.sampler.Stats(),
		Analysis:         s.analyzer.Stats(),
		Buffer:           s.buffer.Read(),
		SamplingRestarts: int(s.samplingRestarts.Load()),
		AnalysisRestarts: int(s.analysisRestarts.Load()),
	}
}

// Buffer exposes the shared metrics buffer for read-only polling.
func (s *Supervisor) Buffer() *shm.MetricsBuffer { return s.buffer }

func (s *Supervisor) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	reportTicker := time.NewTicker(s.cfg.Reports.Interval)
	defer reportTicker.Stop()

	watchdog := time.NewTicker(time.Second)
	defer watchdog.Stop()

	for {
		select {
		case <-stopCh:
			s.drainEvents()
			return
		case msg := <-s.events:
			s.route(msg)
		case <-reportTicker.C:
			s.route(s.buildReport())
		case <-watchdog.C:
			s.checkWorkers()
		}
	}
}

// drainEvents flushes whatever the workers emitted before they stopped.
func (s *Supervisor) drainEvents() {
	for {
		select {
		case msg := <-s.events:
			s.route(msg)
		default:
			return
		}
	}
}

// route fans one worker message out to the matching sink. Sink errors are
// logged and counted, never propagated back into a worker loop.
func (s *Supervisor) route(msg domain.Message) {
	switch m := msg.(type) {
	case domain.MetricsBatch:
		if s.reportSink != nil {
			s.sinkErr(s.reportSink.Name(), s.reportSink.WriteSamples(m.Samples))
		}
	case domain.PerformanceReport:
		if s.reportSink != nil {
			s.sinkErr(s.reportSink.Name(), s.reportSink.WriteReport(m))
		}
	case domain.ValidationFailed:
		s.obs.LogError("sampling_validation_failed", fmt.Errorf("achieved %.1f Hz of %.1f Hz target", m.ActualHz, m.TargetHz))
		if s.alertSink != nil {
			s.sinkErr(s.alertSink.Name(), s.alertSink.DeliverValidationFailure(m))
		}
	case domain.EmergencyThreat:
		s.obs.LogCritical("emergency_threat", fmt.Errorf("threat score %.2f at or above threshold", m.Score),
			ports.Field{Key: "request_id", Value: m.RequestID},
			ports.Field{Key: "origin", Value: m.Origin})
		if s.alertSink != nil {
			s.sinkErr(s.alertSink.Name(), s.alertSink.DeliverEmergency(m))
		}
	case domain.AnalysisComplete:
		if s.resultSink != nil {
			s.sinkErr(s.resultSink.Name(), s.resultSink.DeliverResult(m.Result))
		}
	case domain.AnalysisError:
		if s.resultSink != nil {
			res := domain.AnalysisResult{RequestID: m.RequestID, Severity: domain.SeverityLow, Err: m.Err}
			s.sinkErr(s.resultSink.Name(), s.resultSink.DeliverResult(res))
		}
	case domain.WorkerStarted, domain.WorkerStopped:
		// Lifecycle markers are informational only.
	}
}

func (s *Supervisor) sinkErr(name string, err error) {
	if err == nil {
		return
	}
	s.obs.IncCounter("pulse_sink_errors_total", 1)
	s.obs.LogError("sink_delivery_failed", fmt.Errorf("%s: %w", name, err))
}

// buildReport reads the shared buffer and both worker counters into one
// periodic aggregate. Torn float reads are tolerated here.
func (s *Supervisor) buildReport() domain.PerformanceReport {
	snap := s.buffer.Read()
	an := s.analyzer.Stats()
	return domain.PerformanceReport{
		At:                time.Now(),
		SamplingAchieved:  snap.AchievedHz,
		SamplingTarget:    s.cfg.Sampling.TargetHz,
		ValidationPassed:  snap.ValidationPassed,
		MeanOverheadMs:    snap.MeanOverheadMs,
		AnalysesCompleted: an.Completed,
		BudgetViolations:  an.BudgetViolations,
		QueueLength:       an.QueueLength,
		ConcurrencyLimit:  an.ConcurrencyLimit,
		ThrottleLevel:     an.ThrottleLevel,
	}
}

// checkWorkers restarts a worker whose loop died while the supervisor is
// still running. Restart attempts are bounded.
func (s *Supervisor) checkWorkers() {
	if !s.Running() {
		return
	}

	if !s.sampler.Running() {
		if n := s.samplingRestarts.Add(1); n <= maxRestarts {
			s.obs.LogError("worker_restart", fmt.Errorf("sampling worker down, restart %d of %d", n, maxRestarts))
			if err := s.sampler.Start(); err != nil {
				s.obs.LogCritical("worker_restart_failed", err,
					ports.Field{Key: "worker", Value: sampling.WorkerName})
			}
		}
	}
	if !s.analyzer.Running() {
		if n := s.analysisRestarts.Add(1); n <= maxRestarts {
			s.obs.LogError("worker_restart", fmt.Errorf("analysis worker down, restart %d of %d", n, maxRestarts))
			if err := s.analyzer.Start(); err != nil {
				s.obs.LogCritical("worker_restart_failed", err,
					ports.Field{Key: "worker", Value: analysis.WorkerName})
			}
		}
	}
}
