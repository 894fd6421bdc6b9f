// Package sampling implements the isolated metrics-sampling worker: adaptive
// high-frequency capture of process counters into a shared buffer, with
// wall-clock validation of achieved throughput.
package sampling

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/civitasgov/pulseguard/internal/app/control"
	"github.com/civitasgov/pulseguard/internal/domain"
	"github.com/civitasgov/pulseguard/internal/ports"
	"github.com/civitasgov/pulseguard/internal/shm"
)

// WorkerName identifies this worker in messages and logs.
const WorkerName = "sampling"

var (
	ErrNilSource = errors.New("sampling: stat source is required")
	ErrNilBuffer = errors.New("sampling: shared metrics buffer is required")
)

// Config is fixed for the worker's lifetime.
type Config struct {
	TargetHz         float64
	MaxOverhead      float64 // fraction of the pacing interval
	BatchEvery       int
	OverheadWindow   int
	ValidationWindow time.Duration
	Adaptive         bool
	Validation       bool
}

func (c *Config) applyDefaults() {
	if c.TargetHz <= 0 {
		c.TargetHz = 1000
	}
	if c.MaxOverhead <= 0 {
		c.MaxOverhead = 0.1
	}
	if c.BatchEvery <= 0 {
		c.BatchEvery = 100
	}
	if c.OverheadWindow <= 0 {
		c.OverheadWindow = 100
	}
	if c.ValidationWindow <= 0 {
		c.ValidationWindow = time.Second
	}
}

// Stats is a point-in-time view of the worker.
type Stats struct {
	Running          bool
	Samples          uint64
	Failures         uint64
	AchievedHz       float64
	MeanOverheadMs   float64
	CurrentInterval  time.Duration
	ValidationPassed bool
}

// Worker captures process metrics on its own goroutine. The only intentional
// suspension point is the per-cycle scheduling decision: immediate
// continuation while overhead is comfortably under budget, a timed delay of
// the current interval otherwise.
type Worker struct {
	cfg    Config
	source ports.StatSource
	buffer *shm.MetricsBuffer
	events chan<- domain.Message
	obs    ports.Observability

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	intervalNanos atomic.Int64
}

// New validates the worker's wiring. A nil source or buffer is a setup error
// and fails construction; everything past this point is non-fatal.
func New(cfg Config, source ports.StatSource, buffer *shm.MetricsBuffer, events chan<- domain.Message, obs ports.Observability) (*Worker, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if buffer == nil {
		return nil, ErrNilBuffer
	}
	if obs == nil {
		obs = ports.Nop()
	}
	cfg.applyDefaults()

	w := &Worker{
		cfg:    cfg,
		source: source,
		buffer: buffer,
		events: events,
		obs:    obs,
	}
	w.intervalNanos.Store(int64(initialInterval(cfg.TargetHz)))
	return w, nil
}

// Start is idempotent: starting a running worker is a no-op.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.run(w.stopCh, w.doneCh)
	w.emit(domain.WorkerStarted{Worker: WorkerName, At: time.Now()})
	return nil
}

// Stop is cooperative: the loop observes it at the next scheduling decision,
// so one extra sample may be written after the call. Idempotent.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
	w.emit(domain.WorkerStopped{Worker: WorkerName, At: time.Now()})
	return nil
}

// Running reports whether the loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Stats reads the shared buffer and the worker's own pacing state.
func (w *Worker) Stats() Stats {
	snap := w.buffer.Read()
	return Stats{
		Running:          w.Running(),
		Samples:          snap.SampleCount,
		Failures:         snap.CaptureFailures,
		AchievedHz:       snap.AchievedHz,
		MeanOverheadMs:   snap.MeanOverheadMs,
		CurrentInterval:  time.Duration(w.intervalNanos.Load()),
		ValidationPassed: snap.ValidationPassed,
	}
}

func (w *Worker) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	var (
		seq       uint64
		window    = control.NewOverheadWindow(w.cfg.OverheadWindow)
		validator = control.NewWindowValidator(w.cfg.TargetHz, w.cfg.ValidationWindow)
		interval  = time.Duration(w.intervalNanos.Load())
		started   = time.Now()
		batch     = make([]domain.Sample, 0, w.cfg.BatchEvery)
	)

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		captureStart := time.Now()
		cpu, mem, err := w.source.Snapshot()
		overhead := time.Since(captureStart)

		if err != nil {
			// Transient: log, count, keep sampling.
			w.buffer.RecordCaptureFailure()
			w.obs.IncCounter("pulse_sample_failures_total", 1)
			w.obs.LogError("sample_capture_failed", err)
			if !w.pause(stopCh, interval) {
				return
			}
			continue
		}

		seq++
		window.Push(overhead)
		meanOverhead := window.Mean()

		now := time.Now()
		achieved := control.AchievedHz(seq, now.Sub(started))
		meanOverheadMs := float64(meanOverhead) / float64(time.Millisecond)

		sample := domain.Sample{
			Timestamp:  captureStart,
			Seq:        seq,
			CPU:        cpu,
			Memory:     mem,
			Overhead:   overhead,
			AchievedHz: achieved,
		}
		w.buffer.WriteSample(sample, meanOverheadMs, achieved)

		batch = append(batch, sample)
		if len(batch) >= w.cfg.BatchEvery {
			out := make([]domain.Sample, len(batch))
			copy(out, batch)
			batch = batch[:0]
			w.emit(domain.MetricsBatch{Worker: WorkerName, Samples: out})

			// Gauges and bulk counters move on batch boundaries to keep the
			// per-sample path lean.
			w.obs.IncCounter("pulse_samples_total", float64(len(out)))
			w.obs.IncCounter("pulse_metrics_batches_total", 1)
			w.obs.SetGauge("pulse_achieved_hz", achieved)
			w.obs.SetGauge("pulse_mean_overhead_ms", meanOverheadMs)
			w.obs.SetGauge("pulse_sampling_interval_ms", float64(interval)/float64(time.Millisecond))
		}

		if w.cfg.Validation {
			if out := validator.Observe(now, seq); out != nil {
				w.buffer.SetValidation(out.Passed)
				if !out.Passed {
					w.obs.IncCounter("pulse_validation_failures_total", 1)
					w.emit(domain.ValidationFailed{
						Worker:     WorkerName,
						TargetHz:   out.TargetHz,
						ActualHz:   out.ActualHz,
						OverheadMs: meanOverheadMs,
						At:         now,
					})
				}
			}
		}

		frac := control.OverheadFraction(meanOverhead, interval)
		if w.cfg.Adaptive {
			interval = control.NextInterval(interval, frac, w.cfg.MaxOverhead)
			w.intervalNanos.Store(int64(interval))
		}

		if frac < w.cfg.MaxOverhead/2 {
			// Comfortably under budget: run again as soon as the scheduler
			// lets us.
			runtime.Gosched()
			continue
		}
		if !w.pause(stopCh, interval) {
			return
		}
	}
}

// pause sleeps for the current interval unless stopped first.
func (w *Worker) pause(stopCh <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stopCh:
		return false
	case <-t.C:
		return true
	}
}

// emit delivers a message without ever blocking the sampling loop.
func (w *Worker) emit(msg domain.Message) {
	if w.events == nil {
		return
	}
	select {
	case w.events <- msg:
	default:
		w.obs.IncCounter("pulse_dropped_messages_total", 1)
	}
}

func initialInterval(targetHz float64) time.Duration {
	d := time.Duration(float64(time.Second) / targetHz)
	if d > control.MaxInterval {
		d = control.MaxInterval
	}
	if d < control.MinInterval {
		d = control.MinInterval
	}
	return d
}
