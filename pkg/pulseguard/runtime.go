package pulseguard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civitasgov/pulseguard/internal/adapters/observability"
	"github.com/civitasgov/pulseguard/internal/adapters/sink"
	"github.com/civitasgov/pulseguard/internal/app/supervisor"
)

// AgentRuntimeOption customizes the dependencies used by AgentRuntime.
type AgentRuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	source     StatSource
	queue      RequestQueue
	obs        Observability
	resultSink ResultSink
	alertSink  AlertSink
	reportSink ReportSink
}

// WithStatSource injects a custom process-stat source (simulators, cgroup
// readers, etc.).
func WithStatSource(s StatSource) AgentRuntimeOption {
	return func(o *runtimeOverrides) { o.source = s }
}

// WithQueue injects a custom analysis request queue.
func WithQueue(q RequestQueue) AgentRuntimeOption {
	return func(o *runtimeOverrides) { o.queue = q }
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) AgentRuntimeOption {
	return func(o *runtimeOverrides) { o.obs = obs }
}

// WithResultSink receives every analysis result.
func WithResultSink(s ResultSink) AgentRuntimeOption {
	return func(o *runtimeOverrides) { o.resultSink = s }
}

// WithAlertSink receives emergency escalations and validation failures.
func WithAlertSink(s AlertSink) AgentRuntimeOption {
	return func(o *runtimeOverrides) { o.alertSink = s }
}

// WithReportSink receives metrics batches and performance reports, replacing
// the config-driven Postgres sink.
func WithReportSink(s ReportSink) AgentRuntimeOption {
	return func(o *runtimeOverrides) { o.reportSink = s }
}

// AgentRuntime wires the supervisor, the Prometheus endpoint, and the
// optional Postgres report sink into one embeddable unit.
type AgentRuntime struct {
	cfg *Config
	sup *supervisor.Supervisor
	obs Observability

	db          *sql.DB
	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
}

// NewAgentRuntime bootstraps the default adapters: real process-stat source,
// bounded in-memory queue, Prometheus observability, and a Postgres report
// sink when reports.conn_string is configured. Options override any
// dependency.
func NewAgentRuntime(cfg *Config, opts ...AgentRuntimeOption) (*AgentRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var o runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	obs := o.obs
	if obs == nil {
		obs = observability.NewPromObs()
	}

	var (
		db         *sql.DB
		reportSink ReportSink
		err        error
	)
	if o.reportSink != nil {
		reportSink = o.reportSink
	} else if cfg.Reports.ConnString != "" {
		db, err = sql.Open("postgres", cfg.Reports.ConnString)
		if err != nil {
			return nil, err
		}
		reportSink = sink.NewPostgresSink(db, cfg.Reports.SampleTable, cfg.Reports.ReportTable)
	}

	supOpts := []supervisor.Option{
		supervisor.WithObservability(obs),
	}
	if o.source != nil {
		supOpts = append(supOpts, supervisor.WithStatSource(o.source))
	}
	if o.queue != nil {
		supOpts = append(supOpts, supervisor.WithQueue(o.queue))
	}
	if o.resultSink != nil {
		supOpts = append(supOpts, supervisor.WithResultSink(o.resultSink))
	}
	if o.alertSink != nil {
		supOpts = append(supOpts, supervisor.WithAlertSink(o.alertSink))
	}
	if reportSink != nil {
		supOpts = append(supOpts, supervisor.WithReportSink(reportSink))
	}

	sup, err := supervisor.New(cfg, supOpts...)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}

	return &AgentRuntime{
		cfg: cfg,
		sup: sup,
		obs: obs,
		db:  db,
	}, nil
}

// Start launches the supervisor and the observability stack. It returns
// immediately; call Run to block on a context instead.
func (a *AgentRuntime) Start() error {
	if a == nil {
		return fmt.Errorf("agent runtime is nil")
	}
	if err := a.sup.Start(); err != nil {
		return err
	}
	a.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled,
// then attempts a graceful shutdown.
func (a *AgentRuntime) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops the supervisor, the metrics server, and the DB connection.
func (a *AgentRuntime) Shutdown(ctx context.Context) error {
	var errs []error

	if a.gaugeStopCh != nil {
		close(a.gaugeStopCh)
		a.gaugeStopCh = nil
	}

	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if err := a.sup.Stop(); err != nil {
		errs = append(errs, err)
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// SubmitEvent mints a request for the inbound event and returns its id.
func (a *AgentRuntime) SubmitEvent(features ThreatFeatures, priority Priority) (string, error) {
	return a.sup.SubmitEvent(features, priority)
}

// Submit hands a caller-constructed request to the analysis worker.
func (a *AgentRuntime) Submit(req *AnalysisRequest) error {
	return a.sup.Submit(req)
}

// Stats aggregates both workers and the shared buffer.
func (a *AgentRuntime) Stats() supervisor.Snapshot {
	return a.sup.Stats()
}

func (a *AgentRuntime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	a.metricsSrv = &http.Server{
		Addr:    a.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	a.gaugeStopCh = make(chan struct{})
	go a.recordRuntimeGauges(a.gaugeStopCh, time.Second)
}

func (a *AgentRuntime) recordRuntimeGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			snap := a.sup.Stats()
			a.obs.SetGauge("pulse_achieved_hz", snap.Buffer.AchievedHz)
			a.obs.SetGauge("pulse_queue_length", float64(snap.Analysis.QueueLength))
			a.obs.SetGauge("pulse_throttle_level", snap.Analysis.ThrottleLevel)
		}
	}
}
