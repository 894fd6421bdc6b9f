package sink

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/civitasgov/pulseguard/internal/domain"
	"github.com/civitasgov/pulseguard/internal/ports"
)

// PostgresSink is the reference persistence/dashboard collaborator: it stores
// batched samples and periodic performance reports. The core never depends on
// it; wiring is optional via configuration.
type PostgresSink struct {
	db          *sql.DB
	sampleTable string
	reportTable string
}

func NewPostgresSink(db *sql.DB, sampleTable, reportTable string) *PostgresSink {
	if sampleTable == "" {
		sampleTable = "metric_samples"
	}
	if reportTable == "" {
		reportTable = "performance_reports"
	}
	return &PostgresSink{db: db, sampleTable: sampleTable, reportTable: reportTable}
}

func (p *PostgresSink) Name() string { return "postgres" }

func (p *PostgresSink) WriteSamples(samples []domain.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(p.sampleTable)
	b.WriteString(" (ts, seq, cpu_user_ms, cpu_system_ms, heap_used, heap_total, rss, overhead_ms, achieved_hz) VALUES ")

	args := make([]any, 0, len(samples)*9)
	for i, s := range samples {
		if i > 0 {
			b.WriteString(",")
		}
		base := len(args)
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))
		args = append(args,
			s.Timestamp,
			s.Seq,
			s.CPU.User.Seconds()*1000,
			s.CPU.System.Seconds()*1000,
			s.Memory.HeapUsed,
			s.Memory.HeapTotal,
			s.Memory.RSS,
			s.Overhead.Seconds()*1000,
			s.AchievedHz,
		)
	}

	b.WriteString(" ON CONFLICT (seq) DO NOTHING")

	_, err := p.db.Exec(b.String(), args...)
	return err
}

func (p *PostgresSink) WriteReport(r domain.PerformanceReport) error {
	query := "INSERT INTO " + p.reportTable +
		" (ts, sampling_achieved_hz, sampling_target_hz, validation_passed, mean_overhead_ms," +
		" analyses_completed, budget_violations, queue_length, concurrency_limit, throttle_level)" +
		" VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)"

	_, err := p.db.Exec(query,
		r.At,
		r.SamplingAchieved,
		r.SamplingTarget,
		r.ValidationPassed,
		r.MeanOverheadMs,
		r.AnalysesCompleted,
		r.BudgetViolations,
		r.QueueLength,
		r.ConcurrencyLimit,
		r.ThrottleLevel,
	)
	return err
}

var _ ports.ReportSink = (*PostgresSink)(nil)
