package domain

import "time"

// CPUTimes holds cumulative process CPU time split by mode.
type CPUTimes struct {
	User   time.Duration `json:"user"`
	System time.Duration `json:"system"`
}

// MemoryStats holds the process memory counters captured per sample.
type MemoryStats struct {
	HeapUsed  uint64 `json:"heap_used"`
	HeapTotal uint64 `json:"heap_total"`
	RSS       uint64 `json:"rss"`
}

// Sample is one process-metrics capture produced by the sampling worker.
// Samples are transient: each cycle overwrites the shared buffer and only
// every Kth sample leaves the worker as part of a batch message.
type Sample struct {
	Timestamp  time.Time     `json:"ts"`
	Seq        uint64        `json:"seq"`
	CPU        CPUTimes      `json:"cpu"`
	Memory     MemoryStats   `json:"memory"`
	Overhead   time.Duration `json:"overhead"`
	AchievedHz float64       `json:"achieved_hz"`
}
