package pulseguard

import (
	"github.com/civitasgov/pulseguard/internal/domain"
	"github.com/civitasgov/pulseguard/internal/ports"
)

// ThreatFeatures is the feature payload scored per inbound event.
type ThreatFeatures = domain.ThreatFeatures

// AnalysisRequest is created once per inbound event and consumed at most once.
type AnalysisRequest = domain.AnalysisRequest

// AnalysisResult is the exactly-one outcome per admitted request.
type AnalysisResult = domain.AnalysisResult

// Sample is one captured metrics sample.
type Sample = domain.Sample

// Severity bands an analysis score for downstream alerting.
type Severity = domain.Severity

// Priority orders requests for reporting purposes only.
type Priority = domain.Priority

// EmergencyThreat is the out-of-band escalation for scores at or above the
// configured threshold.
type EmergencyThreat = domain.EmergencyThreat

// ValidationFailed reports a wall-clock window below 90% of target frequency.
type ValidationFailed = domain.ValidationFailed

// PerformanceReport is the periodic aggregate published to report sinks.
type PerformanceReport = domain.PerformanceReport

// StatSource provides raw CPU and memory readings for the sampling worker.
type StatSource = ports.StatSource

// RequestQueue buffers admitted analysis requests awaiting a free slot.
type RequestQueue = ports.RequestQueue

// ResultSink consumes analysis results.
type ResultSink = ports.ResultSink

// AlertSink consumes emergency escalations and validation failures.
type AlertSink = ports.AlertSink

// ReportSink consumes metrics batches and performance reports.
type ReportSink = ports.ReportSink

// Observability emits structured logs and metrics for the runtime.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

const (
	SeverityLow       = domain.SeverityLow
	SeverityMedium    = domain.SeverityMedium
	SeverityHigh      = domain.SeverityHigh
	SeverityCritical  = domain.SeverityCritical
	SeverityEmergency = domain.SeverityEmergency

	PriorityNormal = domain.PriorityNormal
	PriorityHigh   = domain.PriorityHigh
)
