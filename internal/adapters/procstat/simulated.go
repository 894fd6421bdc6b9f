package procstat

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/civitasgov/pulseguard/internal/domain"
	"github.com/civitasgov/pulseguard/internal/ports"
)

// Simulated is a StatSource with deterministic counters and a configurable
// per-capture cost, spent as a spin wait so it shows up as real wall time.
type Simulated struct {
	// Overhead is burned on every Snapshot call.
	Overhead time.Duration
	// FailEvery injects a transient error on every Nth call when > 0.
	FailEvery int

	calls atomic.Uint64
}

func NewSimulated(overhead time.Duration) *Simulated {
	return &Simulated{Overhead: overhead}
}

func (s *Simulated) Snapshot() (domain.CPUTimes, domain.MemoryStats, error) {
	n := s.calls.Add(1)

	if s.Overhead > 0 {
		deadline := time.Now().Add(s.Overhead)
		for time.Now().Before(deadline) {
		}
	}

	if s.FailEvery > 0 && n%uint64(s.FailEvery) == 0 {
		return domain.CPUTimes{}, domain.MemoryStats{}, fmt.Errorf("simulated capture failure at call %d", n)
	}

	cpu := domain.CPUTimes{
		User:   time.Duration(n) * s.Overhead,
		System: time.Duration(n) * s.Overhead / 4,
	}
	mem := domain.MemoryStats{
		HeapUsed:  4096 * n,
		HeapTotal: 1 << 26,
		RSS:       1 << 27,
	}
	return cpu, mem, nil
}

// Calls reports how many snapshots have been taken.
func (s *Simulated) Calls() uint64 { return s.calls.Load() }

var _ ports.StatSource = (*Simulated)(nil)
