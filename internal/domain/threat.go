package domain

import "time"

// Severity bands an analysis score into the escalation ladder used by
// downstream alerting.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
	SeverityEmergency
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	case SeverityEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// SeverityForScore maps a score in [0,1] onto a Severity band.
func SeverityForScore(score float64) Severity {
	switch {
	case score < 0.2:
		return SeverityLow
	case score < 0.4:
		return SeverityMedium
	case score < 0.6:
		return SeverityHigh
	case score < 0.8:
		return SeverityCritical
	default:
		return SeverityEmergency
	}
}

// Priority orders queued analysis requests for reporting purposes only;
// admission and dispatch remain FIFO.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

// ThreatFeatures is the deterministic feature payload scored by the
// analysis pipeline. Values are extracted upstream from live traffic.
type ThreatFeatures struct {
	Origin           string  `json:"origin"`
	OriginReputation float64 `json:"origin_reputation"` // 0 clean .. 1 hostile
	RequestRate      float64 `json:"request_rate"`      // requests/min from origin
	UniquePaths      int     `json:"unique_paths"`      // distinct paths in window
	FailedLogins     int     `json:"failed_logins"`
	TokenReuse       bool    `json:"token_reuse"`
	MissingUserAgent bool    `json:"missing_user_agent"`
	GeoVelocityKmh   float64 `json:"geo_velocity_kmh"`
	SessionAge       float64 `json:"session_age_seconds"`
}

// AnalysisRequest is created once per inbound event and consumed at most once.
type AnalysisRequest struct {
	ID        string         `json:"id"`
	Submitted time.Time      `json:"submitted"`
	Features  ThreatFeatures `json:"features"`
	Priority  Priority       `json:"priority"`
}

// AnalysisResult is immutable once produced. Every admitted request yields
// exactly one result, successful or not.
type AnalysisResult struct {
	RequestID      string        `json:"request_id"`
	Score          float64       `json:"score"`
	Tags           []string      `json:"tags"`
	Severity       Severity      `json:"severity"`
	ResponseTime   time.Duration `json:"response_time"`
	Mitigations    []string      `json:"mitigations"`
	Confidence     float64       `json:"confidence"`
	Confident      bool          `json:"confident"`
	Err            string        `json:"error,omitempty"`
	BudgetExceeded bool          `json:"budget_exceeded"`
}

// LatencyMeasurement records one completed analysis for throttle decisions.
type LatencyMeasurement struct {
	RequestID string
	Start     time.Time
	End       time.Time
	Latency   time.Duration
	BudgetMet bool
	OverrunMs float64
}
