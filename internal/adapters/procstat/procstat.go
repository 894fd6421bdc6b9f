// Package procstat provides StatSource implementations: a real source backed
// by getrusage + runtime.MemStats, and a simulated source for load shaping
// and tests.
package procstat

import (
	"fmt"
	"runtime"
	"syscall"
	"time"

	"github.com/civitasgov/pulseguard/internal/domain"
	"github.com/civitasgov/pulseguard/internal/ports"
)

// Real reads live counters for the current process.
type Real struct{}

func NewReal() *Real { return &Real{} }

func (r *Real) Snapshot() (domain.CPUTimes, domain.MemoryStats, error) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return domain.CPUTimes{}, domain.MemoryStats{}, fmt.Errorf("getrusage: %w", err)
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	cpu := domain.CPUTimes{
		User:   timevalDuration(ru.Utime),
		System: timevalDuration(ru.Stime),
	}
	mem := domain.MemoryStats{
		HeapUsed:  ms.HeapAlloc,
		HeapTotal: ms.HeapSys,
		// Maxrss is reported in kilobytes on Linux.
		RSS: uint64(ru.Maxrss) * 1024,
	}
	return cpu, mem, nil
}

func timevalDuration(tv syscall.Timeval) time.Duration {
	return time.Duration(tv.Sec)*time.Second + time.Duration(tv.Usec)*time.Microsecond
}

var _ ports.StatSource = (*Real)(nil)
