package analysis

import (
	"github.com/civitasgov/pulseguard/internal/domain"
)

// Scorer produces the analysis result for one request. The default
// implementation is the deterministic heuristic pipeline below; tests and
// callers may substitute their own.
type Scorer interface {
	Score(req *domain.AnalysisRequest) domain.AnalysisResult
}

// Signal weights. Determinism is chosen over model sophistication so results
// are reproducible and the pipeline stays testable.
const (
	weightOriginStrong   = 0.30
	weightOriginWeak     = 0.15
	weightPattern        = 0.25
	weightAuth           = 0.25
	weightBehaviorStrong = 0.20
	weightBehaviorWeak   = 0.10

	baseConfidence    = 0.55
	confidencePerHit  = 0.10
	confidenceCeiling = 0.95
)

// Heuristic thresholds for the individual signal checks.
const (
	hostileReputation    = 0.7
	suspectReputation    = 0.4
	anomalousRequestRate = 240 // requests/min
	anomalousPathSpread  = 40  // distinct paths per window
	failedLoginLimit     = 5
	impossibleTravelKmh  = 800
	freshSessionSeconds  = 30
)

// Pipeline is the deterministic heuristic scorer: four independent signal
// checks, each contributing a fixed weight, classification tags, and
// mitigation suggestions.
type Pipeline struct{}

func NewPipeline() *Pipeline { return &Pipeline{} }

func (p *Pipeline) Score(req *domain.AnalysisRequest) domain.AnalysisResult {
	f := req.Features

	var (
		score       float64
		hits        int
		tags        []string
		mitigations []string
	)

	// Origin reputation.
	switch {
	case f.OriginReputation >= hostileReputation:
		score += weightOriginStrong
		hits++
		tags = append(tags, "origin_reputation")
		mitigations = append(mitigations, "block_origin")
	case f.OriginReputation >= suspectReputation:
		score += weightOriginWeak
		hits++
		tags = append(tags, "origin_reputation")
		mitigations = append(mitigations, "challenge_origin")
	}

	// Request-pattern anomaly.
	if f.RequestRate > anomalousRequestRate || f.UniquePaths > anomalousPathSpread {
		score += weightPattern
		hits++
		tags = append(tags, "request_pattern_anomaly")
		mitigations = append(mitigations, "rate_limit_origin")
	}

	// Authentication anomaly.
	if f.FailedLogins >= failedLoginLimit || f.TokenReuse {
		score += weightAuth
		hits++
		tags = append(tags, "auth_anomaly")
		mitigations = append(mitigations, "require_mfa")
		if f.TokenReuse {
			mitigations = append(mitigations, "revoke_tokens")
		}
	}

	// Behavioral anomaly: impossible travel is a strong hit, a headless or
	// seconds-old session only a weak one.
	switch {
	case f.GeoVelocityKmh > impossibleTravelKmh:
		score += weightBehaviorStrong
		hits++
		tags = append(tags, "behavioral_anomaly")
		mitigations = append(mitigations, "terminate_session")
	case f.MissingUserAgent || (f.SessionAge > 0 && f.SessionAge < freshSessionSeconds):
		score += weightBehaviorWeak
		hits++
		tags = append(tags, "behavioral_anomaly")
		mitigations = append(mitigations, "monitor_session")
	}

	if score > 1 {
		score = 1
	}

	confidence := baseConfidence + confidencePerHit*float64(hits)
	if confidence > confidenceCeiling {
		confidence = confidenceCeiling
	}

	return domain.AnalysisResult{
		RequestID:   req.ID,
		Score:       score,
		Tags:        tags,
		Severity:    domain.SeverityForScore(score),
		Mitigations: mitigations,
		Confidence:  confidence,
		Confident:   true,
	}
}

var _ Scorer = (*Pipeline)(nil)
