package pulseguard

import (
	"context"
	"testing"
	"time"

	"github.com/civitasgov/pulseguard/internal/adapters/procstat"
)

func TestNewAgentRuntimeRequiresConfig(t *testing.T) {
	if _, err := NewAgentRuntime(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestNewAgentRuntimeWithCustomAdapters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Addr = ":0"

	sourceStub := procstat.NewSimulated(0)
	queueStub := &stubRequestQueue{}
	obsStub := &stubObservability{}
	resultStub := &stubResultSink{}

	rt, err := NewAgentRuntime(
		cfg,
		WithStatSource(sourceStub),
		WithQueue(queueStub),
		WithObservability(obsStub),
		WithResultSink(resultStub),
	)
	if err != nil {
		t.Fatalf("NewAgentRuntime returned error: %v", err)
	}

	if rt.db != nil {
		t.Fatalf("expected db to be nil when no conn string is configured")
	}
	if rt.obs != obsStub {
		t.Fatalf("expected custom observability to be used")
	}
}

func TestAgentRuntimeDeliversResults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Addr = "127.0.0.1:0"
	cfg.Sampling.TargetHz = 200

	resultSink, results, closeFn := NewChannelResultSink("test", 16)
	defer closeFn()

	rt, err := NewAgentRuntime(cfg,
		WithStatSource(procstat.NewSimulated(0)),
		WithObservability(&stubObservability{}),
		WithResultSink(resultSink),
	)
	if err != nil {
		t.Fatalf("NewAgentRuntime returned error: %v", err)
	}
	if err := rt.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rt.Shutdown(ctx); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	}()

	id, err := rt.SubmitEvent(ThreatFeatures{Origin: "10.1.1.1"}, PriorityNormal)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case res := <-results:
		if res.RequestID != id {
			t.Fatalf("result id %s does not match %s", res.RequestID, id)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for analysis result")
	}

	snap := rt.Stats()
	if !snap.Running {
		t.Fatalf("expected running runtime")
	}
	if snap.Analysis.Completed < 1 {
		t.Fatalf("expected at least one completed analysis")
	}
}

type stubRequestQueue struct{}

func (s *stubRequestQueue) Enqueue(req *AnalysisRequest) (*AnalysisRequest, error) {
	return nil, nil
}
func (s *stubRequestQueue) Dequeue() (*AnalysisRequest, bool) { return nil, false }
func (s *stubRequestQueue) Contains(id string) bool           { return false }
func (s *stubRequestQueue) Len() int                          { return 0 }

type stubResultSink struct{}

func (s *stubResultSink) DeliverResult(res AnalysisResult) error { return nil }
func (s *stubResultSink) Name() string                           { return "stub" }

type stubObservability struct{}

func (s *stubObservability) LogInfo(string, ...Field)            {}
func (s *stubObservability) LogError(string, error, ...Field)    {}
func (s *stubObservability) LogCritical(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) SetGauge(string, float64)            {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
