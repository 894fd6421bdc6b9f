package shm

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/civitasgov/pulseguard/internal/domain"
)

// MetricsBuffer is the latest-value-wins telemetry region shared between the
// sampling worker (single writer) and the supervisor (any number of readers).
// Every field is an individual atomic; float gauges are stored as their bit
// patterns. A reader may still observe a mix of older and newer fields since
// there is no cross-field snapshot. That drift is accepted in exchange for a
// hot write path with no locks.
type MetricsBuffer struct {
	seq              atomic.Uint64
	sampleCount      atomic.Uint64
	captureFailures  atomic.Uint64
	validationPassed atomic.Uint32 // 1 passing, 0 failing
	lastSampleNanos  atomic.Int64

	heapUsed  atomic.Uint64
	heapTotal atomic.Uint64
	rss       atomic.Uint64

	// Float gauges as math.Float64bits patterns.
	achievedHzBits     atomic.Uint64
	meanOverheadMsBits atomic.Uint64
	cpuUserMsBits      atomic.Uint64
	cpuSystemMsBits    atomic.Uint64
}

// Snapshot is a point-in-time read of the buffer. Individual fields are read
// atomically but carry no consistency guarantee relative to each other.
type Snapshot struct {
	Seq              uint64
	SampleCount      uint64
	CaptureFailures  uint64
	ValidationPassed bool
	LastSample       time.Time

	HeapUsed  uint64
	HeapTotal uint64
	RSS       uint64

	AchievedHz     float64
	MeanOverheadMs float64
	CPUUserMs      float64
	CPUSystemMs    float64
}

func NewMetricsBuffer() *MetricsBuffer {
	b := &MetricsBuffer{}
	b.validationPassed.Store(1)
	return b
}

// WriteSample publishes one capture. Must only ever be called from the
// sampling worker loop.
func (b *MetricsBuffer) WriteSample(s domain.Sample, meanOverheadMs, achievedHz float64) {
	b.seq.Store(s.Seq)
	b.sampleCount.Add(1)
	b.lastSampleNanos.Store(s.Timestamp.UnixNano())
	b.heapUsed.Store(s.Memory.HeapUsed)
	b.heapTotal.Store(s.Memory.HeapTotal)
	b.rss.Store(s.Memory.RSS)

	b.achievedHzBits.Store(math.Float64bits(achievedHz))
	b.meanOverheadMsBits.Store(math.Float64bits(meanOverheadMs))
	b.cpuUserMsBits.Store(math.Float64bits(float64(s.CPU.User) / float64(time.Millisecond)))
	b.cpuSystemMsBits.Store(math.Float64bits(float64(s.CPU.System) / float64(time.Millisecond)))
}

// RecordCaptureFailure counts a transient capture error.
func (b *MetricsBuffer) RecordCaptureFailure() {
	b.captureFailures.Add(1)
}

// SetValidation flips the wall-clock validation flag.
func (b *MetricsBuffer) SetValidation(ok bool) {
	if ok {
		b.validationPassed.Store(1)
	} else {
		b.validationPassed.Store(0)
	}
}

// Read returns the current buffer contents. Safe to call from any goroutine;
// fields may be inconsistent with each other mid-update.
func (b *MetricsBuffer) Read() Snapshot {
	snap := Snapshot{
		Seq:              b.seq.Load(),
		SampleCount:      b.sampleCount.Load(),
		CaptureFailures:  b.captureFailures.Load(),
		ValidationPassed: b.validationPassed.Load() == 1,
		HeapUsed:         b.heapUsed.Load(),
		HeapTotal:        b.heapTotal.Load(),
		RSS:              b.rss.Load(),
		AchievedHz:       math.Float64frombits(b.achievedHzBits.Load()),
		MeanOverheadMs:   math.Float64frombits(b.meanOverheadMsBits.Load()),
		CPUUserMs:        math.Float64frombits(b.cpuUserMsBits.Load()),
		CPUSystemMs:      math.Float64frombits(b.cpuSystemMsBits.Load()),
	}
	if ns := b.lastSampleNanos.Load(); ns > 0 {
		snap.LastSample = time.Unix(0, ns)
	}
	return snap
}
