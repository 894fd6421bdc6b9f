package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/civitasgov/pulseguard/internal/ports"
)

// PromObs implements the Observability port with Prometheus metrics and
// logrus structured logging.
type PromObs struct {
	log      *logrus.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	samples := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_samples_total",
		Help: "Total process-metrics samples captured.",
	})
	sampleFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_sample_failures_total",
		Help: "Transient sample-capture failures (loop continues).",
	})
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_metrics_batches_total",
		Help: "Batched metrics_sample messages emitted.",
	})
	validationFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_validation_failures_total",
		Help: "Wall-clock validation windows below 90% of target.",
	})
	analyses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_analyses_total",
		Help: "Threat analyses resolved (success or typed error).",
	})
	budgetViolations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_budget_violations_total",
		Help: "Analyses that missed the per-request latency budget.",
	})
	emergencies := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_emergency_total",
		Help: "Emergency escalations fired.",
	})
	queueRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_queue_rejected_total",
		Help: "Requests refused by the bounded queue admission policy.",
	})
	queueEvicted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_queue_evicted_total",
		Help: "Queued requests evicted under drop_oldest policy.",
	})
	droppedMessages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_dropped_messages_total",
		Help: "Worker messages dropped because the supervisor lagged.",
	})
	ingestDenied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_ingest_denied_total",
		Help: "Inbound events refused by the supervisor rate limiter.",
	})
	sinkErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulse_sink_errors_total",
		Help: "Sink delivery failures during fan-out.",
	})

	achievedHz := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_achieved_hz",
		Help: "Sampling frequency achieved over wall-clock time.",
	})
	samplingInterval := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_sampling_interval_ms",
		Help: "Current adaptive sampling interval.",
	})
	meanOverhead := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_mean_overhead_ms",
		Help: "Rolling mean per-sample capture overhead.",
	})
	queueLength := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_queue_length",
		Help: "Analysis requests waiting in the bounded queue.",
	})
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_inflight_analyses",
		Help: "Analyses currently dispatched.",
	})
	concurrencyLimit := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_concurrency_limit",
		Help: "Adaptive concurrency limit of the analysis worker.",
	})
	throttleLevel := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_throttle_level",
		Help: "Throttle level in [0,1]; 0 means unthrottled.",
	})

	analysisLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulse_analysis_latency_seconds",
		Help:    "Wall-clock latency per analysis request.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	prometheus.MustRegister(
		samples, sampleFailures, batches, validationFailures,
		analyses, budgetViolations, emergencies,
		queueRejected, queueEvicted, droppedMessages,
		ingestDenied, sinkErrors,
		achievedHz, samplingInterval, meanOverhead,
		queueLength, inflight, concurrencyLimit, throttleLevel,
		analysisLatency,
	)

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	return &PromObs{
		log: log,
		counters: map[string]prometheus.Counter{
			"pulse_samples_total":             samples,
			"pulse_sample_failures_total":     sampleFailures,
			"pulse_metrics_batches_total":     batches,
			"pulse_validation_failures_total": validationFailures,
			"pulse_analyses_total":            analyses,
			"pulse_budget_violations_total":   budgetViolations,
			"pulse_emergency_total":           emergencies,
			"pulse_queue_rejected_total":      queueRejected,
			"pulse_queue_evicted_total":       queueEvicted,
			"pulse_dropped_messages_total":    droppedMessages,
			"pulse_ingest_denied_total":       ingestDenied,
			"pulse_sink_errors_total":         sinkErrors,
		},
		gauges: map[string]prometheus.Gauge{
			"pulse_achieved_hz":          achievedHz,
			"pulse_sampling_interval_ms": samplingInterval,
			"pulse_mean_overhead_ms":     meanOverhead,
			"pulse_queue_length":         queueLength,
			"pulse_inflight_analyses":    inflight,
			"pulse_concurrency_limit":    concurrencyLimit,
			"pulse_throttle_level":       throttleLevel,
		},
		histos: map[string]prometheus.Observer{
			"pulse_analysis_latency_seconds": analysisLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.WithFields(toLogrus(fields)).Info(msg)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	entry := p.log.WithFields(toLogrus(fields))
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	entry := p.log.WithFields(toLogrus(fields))
	if err != nil {
		entry = entry.WithError(err)
	}
	// Fatal would os.Exit; critical conditions are surfaced, not fatal here.
	entry.WithField("critical", true).Error(msg)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func toLogrus(fields []ports.Field) logrus.Fields {
	if len(fields) == 0 {
		return nil
	}
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
