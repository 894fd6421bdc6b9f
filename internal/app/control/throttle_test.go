package control

import (
	"testing"
	"time"

	"github.com/civitasgov/pulseguard/internal/domain"
)

func TestOverheadWindowRollingMean(t *testing.T) {
	w := NewOverheadWindow(4)

	for _, d := range []time.Duration{2 * time.Millisecond, 4 * time.Millisecond} {
		w.Push(d)
	}
	if got := w.Mean(); got != 3*time.Millisecond {
		t.Fatalf("expected mean 3ms, got %s", got)
	}

	// Fill past capacity; the first two entries must be evicted.
	for i := 0; i < 4; i++ {
		w.Push(10 * time.Millisecond)
	}
	if got := w.Mean(); got != 10*time.Millisecond {
		t.Fatalf("expected mean 10ms after eviction, got %s", got)
	}
	if w.Len() != 4 {
		t.Fatalf("expected window length 4, got %d", w.Len())
	}
}

func TestNextIntervalGrowsUnderOverheadPressure(t *testing.T) {
	// Overhead stays above budget: interval must never decrease across ten
	// consecutive adjustments and must never exceed the 100ms cap.
	interval := time.Millisecond
	for i := 0; i < 10; i++ {
		next := NextInterval(interval, 0.2, 0.1)
		if next < interval {
			t.Fatalf("cycle %d: interval decreased from %s to %s", i, interval, next)
		}
		if next > MaxInterval {
			t.Fatalf("cycle %d: interval %s exceeds cap %s", i, next, MaxInterval)
		}
		interval = next
	}
}

func TestNextIntervalCapAndFloor(t *testing.T) {
	if got := NextInterval(99*time.Millisecond, 0.5, 0.1); got != MaxInterval {
		t.Fatalf("expected cap %s, got %s", MaxInterval, got)
	}
	if got := NextInterval(MinInterval, 0.01, 0.1); got != MinInterval {
		t.Fatalf("expected floor %s, got %s", MinInterval, got)
	}
}

func TestNextIntervalHoldsInDeadband(t *testing.T) {
	// Between half the budget and the budget, no adjustment happens.
	interval := 10 * time.Millisecond
	if got := NextInterval(interval, 0.07, 0.1); got != interval {
		t.Fatalf("expected interval unchanged in deadband, got %s", got)
	}
}

func TestNextThrottleTightensAndRelaxes(t *testing.T) {
	state := ThrottleState{ConcurrencyLimit: 10}

	state = NextThrottle(state, 0.2, 10)
	if state.ThrottleLevel != 0.1 {
		t.Fatalf("expected throttle level 0.1, got %f", state.ThrottleLevel)
	}
	if state.ConcurrencyLimit != 9 {
		t.Fatalf("expected limit 9, got %d", state.ConcurrencyLimit)
	}

	state = NextThrottle(state, 0.01, 10)
	if state.ThrottleLevel != 0 {
		t.Fatalf("expected throttle level back to 0, got %f", state.ThrottleLevel)
	}
	if state.ConcurrencyLimit != 10 {
		t.Fatalf("expected limit restored to 10, got %d", state.ConcurrencyLimit)
	}
}

func TestNextThrottleFloorsAtOneSlot(t *testing.T) {
	state := ThrottleState{ConcurrencyLimit: 4}
	for i := 0; i < 20; i++ {
		state = NextThrottle(state, 1.0, 4)
	}
	if state.ConcurrencyLimit != 1 {
		t.Fatalf("expected floor of 1 slot, got %d", state.ConcurrencyLimit)
	}
	if state.ThrottleLevel != 1 {
		t.Fatalf("expected throttle level clamped to 1, got %f", state.ThrottleLevel)
	}
}

func TestNextThrottleHoldsBetweenThresholds(t *testing.T) {
	state := ThrottleState{ConcurrencyLimit: 8, ThrottleLevel: 0.2}
	next := NextThrottle(state, 0.07, 10)
	if next.ThrottleLevel != 0.2 {
		t.Fatalf("expected throttle level held at 0.2, got %f", next.ThrottleLevel)
	}
}

func TestLatencyHistoryViolationRate(t *testing.T) {
	h := NewLatencyHistory(1000)

	for i := 0; i < 90; i++ {
		h.Push(domain.LatencyMeasurement{BudgetMet: true})
	}
	for i := 0; i < 10; i++ {
		h.Push(domain.LatencyMeasurement{BudgetMet: false})
	}

	if got := h.ViolationRate(100); got != 0.1 {
		t.Fatalf("expected violation rate 0.1, got %f", got)
	}
}

func TestLatencyHistoryEvictsOldest(t *testing.T) {
	h := NewLatencyHistory(10)

	for i := 0; i < 10; i++ {
		h.Push(domain.LatencyMeasurement{BudgetMet: false})
	}
	// Overwrite the whole ring with passing entries.
	for i := 0; i < 10; i++ {
		h.Push(domain.LatencyMeasurement{BudgetMet: true})
	}

	if h.Len() != 10 {
		t.Fatalf("expected bounded length 10, got %d", h.Len())
	}
	if got := h.ViolationRate(10); got != 0 {
		t.Fatalf("expected zero violations after eviction, got %f", got)
	}
}

func TestLatencyHistoryEmpty(t *testing.T) {
	h := NewLatencyHistory(10)
	if got := h.ViolationRate(100); got != 0 {
		t.Fatalf("expected zero rate on empty history, got %f", got)
	}
}
