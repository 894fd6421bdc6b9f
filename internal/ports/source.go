package ports

import "github.com/civitasgov/pulseguard/internal/domain"

// StatSource reads the process counters captured by the sampling worker.
// Implementations must be cheap: capture cost is charged to the worker's
// overhead budget.
type StatSource interface {
	Snapshot() (domain.CPUTimes, domain.MemoryStats, error)
}
