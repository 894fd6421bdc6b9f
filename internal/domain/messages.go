package domain

import "time"

// Message is the envelope for everything a worker reports back to the
// supervisor. Delivery is best-effort: a slow consumer drops messages rather
// than stalling a worker loop.
type Message interface {
	Kind() string
}

// WorkerStarted signals a successful Start on the named worker.
type WorkerStarted struct {
	Worker string
	At     time.Time
}

func (WorkerStarted) Kind() string { return "started" }

// WorkerStopped signals that a worker loop has honored Stop.
type WorkerStopped struct {
	Worker string
	At     time.Time
}

func (WorkerStopped) Kind() string { return "stopped" }

// MetricsBatch carries every Kth sample plus the samples captured since the
// previous batch boundary. Batching bounds message-passing overhead; it never
// gates shared-buffer updates.
type MetricsBatch struct {
	Worker  string
	Samples []Sample
}

func (MetricsBatch) Kind() string { return "metrics_sample" }

// ValidationFailed is emitted when the wall-clock window frequency falls
// below 90% of target. Recovery is automatic; no reset message exists.
type ValidationFailed struct {
	Worker     string
	TargetHz   float64
	ActualHz   float64
	OverheadMs float64
	At         time.Time
}

func (ValidationFailed) Kind() string { return "validation_failed" }

// AnalysisComplete carries the single normal result for a request.
type AnalysisComplete struct {
	Result AnalysisResult
}

func (AnalysisComplete) Kind() string { return "threat_analysis_complete" }

// AnalysisError is the typed failure result for a request that could not be
// scored (queue eviction, pipeline panic).
type AnalysisError struct {
	RequestID string
	Err       string
}

func (AnalysisError) Kind() string { return "threat_analysis_error" }

// EmergencyThreat is the out-of-band escalation path. It may arrive before
// the normal result for the same request id; no ordering is guaranteed for
// consumers beyond the supervisor.
type EmergencyThreat struct {
	RequestID string
	Score     float64
	Origin    string
	At        time.Time
}

func (EmergencyThreat) Kind() string { return "emergency_threat" }

// PerformanceReport is the periodic aggregate the supervisor publishes to
// dashboard/persistence collaborators.
type PerformanceReport struct {
	At                time.Time
	SamplingAchieved  float64
	SamplingTarget    float64
	ValidationPassed  bool
	MeanOverheadMs    float64
	AnalysesCompleted uint64
	BudgetViolations  uint64
	QueueLength       int
	ConcurrencyLimit  int
	ThrottleLevel     float64
}

func (PerformanceReport) Kind() string { return "performance_report" }
