package pulseguard

import (
	base "github.com/civitasgov/pulseguard/pkg/pulseguard"
)

// Re-exported errors for convenience.
var (
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/civitasgov/pulseguard
// directly.
type (
	Config             = base.Config
	SamplingConfig     = base.SamplingConfig
	AnalysisConfig     = base.AnalysisConfig
	QueueConfig        = base.QueueConfig
	IngestConfig       = base.IngestConfig
	MetricsConfig      = base.MetricsConfig
	ReportsConfig      = base.ReportsConfig
	AgentRuntime       = base.AgentRuntime
	AgentRuntimeOption = base.AgentRuntimeOption
	ThreatFeatures     = base.ThreatFeatures
	AnalysisRequest    = base.AnalysisRequest
	AnalysisResult     = base.AnalysisResult
	Sample             = base.Sample
	Severity           = base.Severity
	Priority           = base.Priority
	EmergencyThreat    = base.EmergencyThreat
	ValidationFailed   = base.ValidationFailed
	PerformanceReport  = base.PerformanceReport
	ResultHandler      = base.ResultHandler
	StatSource         = base.StatSource
	RequestQueue       = base.RequestQueue
	ResultSink         = base.ResultSink
	AlertSink          = base.AlertSink
	ReportSink         = base.ReportSink
	Observability      = base.Observability
	Field              = base.Field
)

// Severity and priority constants.
const (
	SeverityLow       = base.SeverityLow
	SeverityMedium    = base.SeverityMedium
	SeverityHigh      = base.SeverityHigh
	SeverityCritical  = base.SeverityCritical
	SeverityEmergency = base.SeverityEmergency

	PriorityNormal = base.PriorityNormal
	PriorityHigh   = base.PriorityHigh
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Agent runtime and options.
func NewAgentRuntime(cfg *Config, opts ...AgentRuntimeOption) (*AgentRuntime, error) {
	return base.NewAgentRuntime(cfg, opts...)
}

func WithStatSource(s StatSource) AgentRuntimeOption {
	return base.WithStatSource(s)
}

func WithQueue(q RequestQueue) AgentRuntimeOption {
	return base.WithQueue(q)
}

func WithObservability(obs Observability) AgentRuntimeOption {
	return base.WithObservability(obs)
}

func WithResultSink(s ResultSink) AgentRuntimeOption {
	return base.WithResultSink(s)
}

func WithAlertSink(s AlertSink) AgentRuntimeOption {
	return base.WithAlertSink(s)
}

func WithReportSink(s ReportSink) AgentRuntimeOption {
	return base.WithReportSink(s)
}

// Sink adapters.
func NewCallbackResultSink(name string, fn ResultHandler) ResultSink {
	return base.NewCallbackResultSink(name, fn)
}

func NewChannelResultSink(name string, buffer int) (ResultSink, <-chan AnalysisResult, func()) {
	return base.NewChannelResultSink(name, buffer)
}
