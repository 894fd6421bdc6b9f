package ports

import "github.com/civitasgov/pulseguard/internal/domain"

// ResultSink consumes the exactly-one normal result per analysis request.
type ResultSink interface {
	DeliverResult(res domain.AnalysisResult) error
	Name() string
}

// AlertSink consumes the out-of-band alert stream: emergency escalations and
// wall-clock validation failures.
type AlertSink interface {
	DeliverEmergency(alert domain.EmergencyThreat) error
	DeliverValidationFailure(fail domain.ValidationFailed) error
	Name() string
}

// ReportSink consumes batched metrics samples and periodic performance
// reports, typically a dashboard or persistence collaborator.
type ReportSink interface {
	WriteSamples(samples []domain.Sample) error
	WriteReport(report domain.PerformanceReport) error
	Name() string
}
