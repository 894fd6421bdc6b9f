package control

import "time"

// shortfallRatio is the fraction of target throughput below which a
// wall-clock window counts as failed.
const shortfallRatio = 0.9

// WindowValidator recomputes achieved throughput from real elapsed time over
// fixed wall-clock windows, never from the nominal schedule. One instance is
// owned by one worker loop; it is not safe for concurrent use.
type WindowValidator struct {
	targetHz    float64
	window      time.Duration
	windowStart time.Time
	startCount  uint64
}

// ValidationOutcome is the verdict for one completed window.
type ValidationOutcome struct {
	ActualHz float64
	TargetHz float64
	Passed   bool
}

func NewWindowValidator(targetHz float64, window time.Duration) *WindowValidator {
	if window <= 0 {
		window = time.Second
	}
	return &WindowValidator{targetHz: targetHz, window: window}
}

// Observe is called once per sample with the current wall-clock time and the
// lifetime sample count. It returns a non-nil outcome exactly once per
// elapsed window.
func (v *WindowValidator) Observe(now time.Time, sampleCount uint64) *ValidationOutcome {
	if v.windowStart.IsZero() {
		v.windowStart = now
		v.startCount = sampleCount
		return nil
	}

	elapsed := now.Sub(v.windowStart)
	if elapsed < v.window {
		return nil
	}

	actual := float64(sampleCount-v.startCount) / elapsed.Seconds()
	out := &ValidationOutcome{
		ActualHz: actual,
		TargetHz: v.targetHz,
		Passed:   actual >= shortfallRatio*v.targetHz,
	}

	v.windowStart = now
	v.startCount = sampleCount
	return out
}

// AchievedHz derives lifetime throughput from wall-clock elapsed time.
func AchievedHz(samples uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(samples) / elapsed.Seconds()
}
