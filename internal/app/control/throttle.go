// Package control holds the pure feedback logic shared by both workers:
// rolling overhead accounting, adaptive interval and concurrency adjustment,
// and wall-clock throughput validation. Everything here is side-effect free
// over measurement history so it can be tested without clocks or goroutines.
package control

import (
	"math"
	"time"

	"github.com/civitasgov/pulseguard/internal/domain"
)

const (
	// Interval bounds: never pace slower than 10 Hz, never faster than 10 kHz.
	MaxInterval = 100 * time.Millisecond
	MinInterval = 100 * time.Microsecond

	growFactor   = 1.1
	shrinkFactor = 0.95

	throttleStep = 0.1

	tightenViolationRate = 0.10
	relaxViolationRate   = 0.05
)

// ThrottleState is read before every scheduling decision and mutated only by
// the adjustment functions below.
type ThrottleState struct {
	ConcurrencyLimit int
	ThrottleLevel    float64 // 0 relaxed .. 1 fully throttled
	SamplingInterval time.Duration
}

// OverheadWindow is a fixed-size rolling window of per-sample capture
// overhead.
type OverheadWindow struct {
	buf  []time.Duration
	next int
	n    int
	sum  time.Duration
}

func NewOverheadWindow(size int) *OverheadWindow {
	if size <= 0 {
		size = 100
	}
	return &OverheadWindow{buf: make([]time.Duration, size)}
}

func (w *OverheadWindow) Push(d time.Duration) {
	if w.n == len(w.buf) {
		w.sum -= w.buf[w.next]
	} else {
		w.n++
	}
	w.buf[w.next] = d
	w.sum += d
	w.next = (w.next + 1) % len(w.buf)
}

func (w *OverheadWindow) Mean() time.Duration {
	if w.n == 0 {
		return 0
	}
	return w.sum / time.Duration(w.n)
}

func (w *OverheadWindow) Len() int { return w.n }

// OverheadFraction is the share of the pacing interval spent capturing.
func OverheadFraction(meanOverhead, interval time.Duration) float64 {
	if interval <= 0 {
		return 0
	}
	return float64(meanOverhead) / float64(interval)
}

// NextInterval applies the asymmetric adjustment rule: grow by 10% when the
// overhead budget is exceeded, shrink by 5% when usage is comfortably under
// half the budget, hold otherwise. The asymmetry damps oscillation.
func NextInterval(current time.Duration, overheadFrac, maxOverhead float64) time.Duration {
	switch {
	case overheadFrac > maxOverhead:
		current = time.Duration(float64(current) * growFactor)
	case overheadFrac < maxOverhead/2:
		current = time.Duration(float64(current) * shrinkFactor)
	}
	if current > MaxInterval {
		current = MaxInterval
	}
	if current < MinInterval {
		current = MinInterval
	}
	return current
}

// NextThrottle adjusts the concurrency limit from the recent budget-violation
// rate. More than 10% violations tightens by one 0.1 step (floor: one slot);
// fewer than 5% relaxes by the same step up to the configured maximum.
func NextThrottle(state ThrottleState, violationRate float64, maxConcurrent int) ThrottleState {
	switch {
	case violationRate > tightenViolationRate:
		state.ThrottleLevel += throttleStep
	case violationRate < relaxViolationRate:
		state.ThrottleLevel -= throttleStep
	}
	if state.ThrottleLevel < 0 {
		state.ThrottleLevel = 0
	}
	if state.ThrottleLevel > 1 {
		state.ThrottleLevel = 1
	}

	limit := int(math.Round(float64(maxConcurrent) * (1 - state.ThrottleLevel)))
	if limit < 1 {
		limit = 1
	}
	if limit > maxConcurrent {
		limit = maxConcurrent
	}
	state.ConcurrencyLimit = limit
	return state
}

// LatencyHistory is a bounded ring of completed-analysis measurements. Oldest
// entries are evicted once capacity is reached.
type LatencyHistory struct {
	buf  []domain.LatencyMeasurement
	next int
	n    int
}

func NewLatencyHistory(size int) *LatencyHistory {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistory{buf: make([]domain.LatencyMeasurement, size)}
}

func (h *LatencyHistory) Push(m domain.LatencyMeasurement) {
	h.buf[h.next] = m
	h.next = (h.next + 1) % len(h.buf)
	if h.n < len(h.buf) {
		h.n++
	}
}

func (h *LatencyHistory) Len() int { return h.n }

// ViolationRate reports the fraction of the most recent `window` measurements
// that missed their budget. With fewer than `window` entries it uses what it
// has; with none it reports zero.
func (h *LatencyHistory) ViolationRate(window int) float64 {
	if h.n == 0 {
		return 0
	}
	if window <= 0 || window > h.n {
		window = h.n
	}
	violations := 0
	for i := 0; i < window; i++ {
		idx := (h.next - 1 - i + len(h.buf)) % len(h.buf)
		if !h.buf[idx].BudgetMet {
			violations++
		}
	}
	return float64(violations) / float64(window)
}
