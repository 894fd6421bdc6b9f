// Package analysis implements the threat-analysis worker: a bounded-latency
// heuristic scoring loop with a bounded FIFO queue and a self-adjusting
// concurrency limit.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/civitasgov/pulseguard/internal/app/control"
	"github.com/civitasgov/pulseguard/internal/domain"
	"github.com/civitasgov/pulseguard/internal/ports"
)

// WorkerName identifies this worker in messages and logs.
const WorkerName = "analysis"

// BudgetExceededTag marks results produced by the budget timer instead of the
// pipeline.
const BudgetExceededTag = "analysis_error"

var (
	ErrNilQueue         = errors.New("analysis: request queue is required")
	ErrNotRunning       = errors.New("analysis: worker not running")
	ErrInvalidRequest   = errors.New("analysis: request must carry an id")
	ErrDuplicateRequest = errors.New("analysis: request id already in flight or queued")
)

// Config is fixed for the worker's lifetime.
type Config struct {
	LatencyBudget      time.Duration
	MaxConcurrent      int
	EmergencyThreshold float64
	DrainInterval      time.Duration
	HistorySize        int
	AdjustWindow       int
	Adaptive           bool
}

func (c *Config) applyDefaults() {
	if c.LatencyBudget <= 0 {
		c.LatencyBudget = 100 * time.Millisecond
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 10
	}
	if c.EmergencyThreshold <= 0 {
		c.EmergencyThreshold = 0.8
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = 10 * time.Millisecond
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 1000
	}
	if c.AdjustWindow <= 0 {
		c.AdjustWindow = 100
	}
}

// Stats is a point-in-time view of the worker.
type Stats struct {
	Running          bool
	Completed        uint64
	BudgetViolations uint64
	Emergencies      uint64
	QueueLength      int
	InFlight         int
	ConcurrencyLimit int
	ThrottleLevel    float64
}

type submission struct {
	req   *domain.AnalysisRequest
	reply chan error
}

type completion struct {
	measurement domain.LatencyMeasurement
}

// Worker runs a single event loop that owns the queue, the in-flight set,
// and the throttle state. Scoring itself happens on short-lived goroutines
// racing the budget timer; their completions funnel back into the loop.
type Worker struct {
	cfg    Config
	queue  ports.RequestQueue
	scorer Scorer
	events chan<- domain.Message
	obs    ports.Observability

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	submitCh   chan submission
	completeCh chan completion

	completed   atomic.Uint64
	violations  atomic.Uint64
	emergencies atomic.Uint64
	inflightN   atomic.Int64
	limitN      atomic.Int64
	levelBits   atomic.Uint64
}

// New validates the wiring; a nil queue is a setup error. A nil scorer gets
// the default heuristic pipeline.
func New(cfg Config, q ports.RequestQueue, scorer Scorer, events chan<- domain.Message, obs ports.Observability) (*Worker, error) {
	if q == nil {
		return nil, ErrNilQueue
	}
	if scorer == nil {
		scorer = NewPipeline()
	}
	if obs == nil {
		obs = ports.Nop()
	}
	cfg.applyDefaults()

	w := &Worker{
		cfg:    cfg,
		queue:  q,
		scorer: scorer,
		events: events,
		obs:    obs,
	}
	w.limitN.Store(int64(cfg.MaxConcurrent))
	return w, nil
}

// Start is idempotent.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.submitCh = make(chan submission)
	w.completeCh = make(chan completion, w.cfg.MaxConcurrent)
	w.running = true

	go w.run(w.stopCh, w.doneCh)
	w.emit(domain.WorkerStarted{Worker: WorkerName, At: time.Now()})
	return nil
}

// Stop is cooperative and idempotent. In-flight pipelines may finish after
// the loop exits; their completions are discarded.
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

// Running reports whether the event loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Submit hands a request to the event loop. The returned error is the
// admission verdict: nil means the request was dispatched or queued and will
// resolve with exactly one result; ErrDuplicateRequest and queue saturation
// mean the request was not admitted and no result is owed.
func (w *Worker) Submit(req *domain.AnalysisRequest) error {
	if req == nil || req.ID == "" {
		return ErrInvalidRequest
	}

	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return ErrNotRunning
	}
	submitCh, stopCh := w.submitCh, w.stopCh
	w.mu.Unlock()

	sub := submission{req: req, reply: make(chan error, 1)}
	select {
	case submitCh <- sub:
	case <-stopCh:
		return ErrNotRunning
	}

	select {
	case err := <-sub.reply:
		return err
	case <-stopCh:
		return ErrNotRunning
	}
}

// Stats reads the worker's counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Running:          w.Running(),
		Completed:        w.completed.Load(),
		BudgetViolations: w.violations.Load(),
		Emergencies:      w.emergencies.Load(),
		QueueLength:      w.queue.Len(),
		InFlight:         int(w.inflightN.Load()),
		ConcurrencyLimit: int(w.limitN.Load()),
		ThrottleLevel:    math.Float64frombits(w.levelBits.Load()),
	}
}

func (w *Worker) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	inflight := make(map[string]struct{}, w.cfg.MaxConcurrent)
	history := control.NewLatencyHistory(w.cfg.HistorySize)
	state := control.ThrottleState{ConcurrencyLimit: w.cfg.MaxConcurrent}

	ticker := time.NewTicker(w.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return

		case sub := <-w.submitCh:
			sub.reply <- w.admit(sub.req, inflight, state, stopCh)

		case c := <-w.completeCh:
			delete(inflight, c.measurement.RequestID)
			w.inflightN.Store(int64(len(inflight)))

			history.Push(c.measurement)
			w.completed.Add(1)
			w.obs.IncCounter("pulse_analyses_total", 1)
			w.obs.ObserveLatency("pulse_analysis_latency_seconds", c.measurement.Latency.Seconds())
			if !c.measurement.BudgetMet {
				w.violations.Add(1)
				w.obs.IncCounter("pulse_budget_violations_total", 1)
			}

			if w.cfg.Adaptive {
				state = control.NextThrottle(state, history.ViolationRate(w.cfg.AdjustWindow), w.cfg.MaxConcurrent)
				w.limitN.Store(int64(state.ConcurrencyLimit))
				w.levelBits.Store(math.Float64bits(state.ThrottleLevel))
				w.obs.SetGauge("pulse_concurrency_limit", float64(state.ConcurrencyLimit))
				w.obs.SetGauge("pulse_throttle_level", state.ThrottleLevel)
			}

			w.drain(inflight, state, stopCh)

		case <-ticker.C:
			w.drain(inflight, state, stopCh)
			w.obs.SetGauge("pulse_queue_length", float64(w.queue.Len()))
			w.obs.SetGauge("pulse_inflight_analyses", float64(len(inflight)))
		}
	}
}

// admit runs on the event loop. A duplicate of an in-flight or queued id is
// rejected outright so a request id is only ever analyzed once.
func (w *Worker) admit(req *domain.AnalysisRequest, inflight map[string]struct{}, state control.ThrottleState, stopCh <-chan struct{}) error {
	if _, busy := inflight[req.ID]; busy || w.queue.Contains(req.ID) {
		return ErrDuplicateRequest
	}

	if len(inflight) < state.ConcurrencyLimit {
		w.dispatch(req, inflight, stopCh)
		return nil
	}

	evicted, err := w.queue.Enqueue(req)
	if err != nil {
		w.obs.IncCounter("pulse_queue_rejected_total", 1)
		return err
	}
	if evicted != nil {
		// The evicted request was admitted earlier and is still owed its one
		// result: resolve it as a typed error.
		w.obs.IncCounter("pulse_queue_evicted_total", 1)
		w.emitResult(domain.AnalysisError{RequestID: evicted.ID, Err: "evicted from saturated queue"}, stopCh)
	}
	return nil
}

func (w *Worker) drain(inflight map[string]struct{}, state control.ThrottleState, stopCh <-chan struct{}) {
	for len(inflight) < state.ConcurrencyLimit {
		req, ok := w.queue.Dequeue()
		if !ok {
			return
		}
		w.dispatch(req, inflight, stopCh)
	}
}

func (w *Worker) dispatch(req *domain.AnalysisRequest, inflight map[string]struct{}, stopCh <-chan struct{}) {
	inflight[req.ID] = struct{}{}
	w.inflightN.Store(int64(len(inflight)))
	go w.runOne(req, stopCh)
}

// runOne races the scoring pipeline against the latency budget. Whichever
// side finishes first wins the single-resolution result; a losing pipeline
// may still run to completion with no externally visible effect.
func (w *Worker) runOne(req *domain.AnalysisRequest, stopCh <-chan struct{}) {
	start := time.Now()

	resCh := make(chan domain.AnalysisResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resCh <- domain.AnalysisResult{
					RequestID: req.ID,
					Tags:      []string{BudgetExceededTag},
					Severity:  domain.SeverityLow,
					Err:       fmt.Sprintf("pipeline panic: %v", r),
				}
			}
		}()
		resCh <- w.scorer.Score(req)
	}()

	timer := time.NewTimer(w.cfg.LatencyBudget)
	var res domain.AnalysisResult
	select {
	case res = <-resCh:
		timer.Stop()
	case <-timer.C:
		res = domain.AnalysisResult{
			RequestID:      req.ID,
			Score:          0,
			Tags:           []string{BudgetExceededTag},
			Severity:       domain.SeverityLow,
			Confident:      false,
			BudgetExceeded: true,
			Err:            fmt.Sprintf("latency budget %s exceeded", w.cfg.LatencyBudget),
		}
	}

	elapsed := time.Since(start)
	res.RequestID = req.ID
	res.ResponseTime = elapsed

	// Emergency escalation fires before the normal result for the same id.
	if !res.BudgetExceeded && res.Err == "" && res.Score >= w.cfg.EmergencyThreshold {
		w.emergencies.Add(1)
		w.obs.IncCounter("pulse_emergency_total", 1)
		w.emitResult(domain.EmergencyThreat{
			RequestID: req.ID,
			Score:     res.Score,
			Origin:    req.Features.Origin,
			At:        time.Now(),
		}, stopCh)
	}

	if res.Err != "" && !res.BudgetExceeded {
		w.emitResult(domain.AnalysisError{RequestID: req.ID, Err: res.Err}, stopCh)
	} else {
		w.emitResult(domain.AnalysisComplete{Result: res}, stopCh)
	}

	m := domain.LatencyMeasurement{
		RequestID: req.ID,
		Start:     start,
		End:       start.Add(elapsed),
		Latency:   elapsed,
		BudgetMet: elapsed <= w.cfg.LatencyBudget,
	}
	if !m.BudgetMet {
		m.OverrunMs = float64(elapsed-w.cfg.LatencyBudget) / float64(time.Millisecond)
	}

	select {
	case w.completeCh <- completion{measurement: m}:
	case <-stopCh:
	}
}

// emit delivers a lifecycle marker best-effort; a slow consumer drops it.
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

// emitResult delivers a result-class message: every admitted request owes the
// supervisor exactly one result, so backpressure stalls the sender instead of
// losing the message. Only a stop releases the send.
func (w *Worker) emitResult(msg domain.Message, stopCh <-chan struct{}) {
	if w.events == nil {
		return
	}
	select {
	case w.events <- msg:
	case <-stopCh:
	}
}
