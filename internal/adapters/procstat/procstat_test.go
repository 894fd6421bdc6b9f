package procstat

import (
	"testing"
	"time"
)

func TestRealSnapshot(t *testing.T) {
	src := NewReal()

	cpu, mem, err := src.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if cpu.User < 0 || cpu.System < 0 {
		t.Fatalf("negative cpu times: %+v", cpu)
	}
	if mem.HeapUsed == 0 || mem.HeapTotal == 0 {
		t.Fatalf("expected non-zero heap counters: %+v", mem)
	}
	if mem.HeapUsed > mem.HeapTotal {
		t.Fatalf("heap used %d exceeds heap total %d", mem.HeapUsed, mem.HeapTotal)
	}
}

func TestSimulatedBurnsOverhead(t *testing.T) {
	src := NewSimulated(2 * time.Millisecond)

	start := time.Now()
	if _, _, err := src.Snapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 2*time.Millisecond {
		t.Fatalf("expected at least 2ms of capture cost, took %s", elapsed)
	}
	if src.Calls() != 1 {
		t.Fatalf("expected 1 call, got %d", src.Calls())
	}
}

func TestSimulatedInjectsFailures(t *testing.T) {
	src := NewSimulated(0)
	src.FailEvery = 3

	var failures int
	for i := 0; i < 9; i++ {
		if _, _, err := src.Snapshot(); err != nil {
			failures++
		}
	}
	if failures != 3 {
		t.Fatalf("expected 3 injected failures, got %d", failures)
	}
}
