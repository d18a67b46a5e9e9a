package unit

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats holds resource usage of the unit's main process.
type ProcessStats struct {
	PID           int     `json:"pid"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemRSS        uint64  `json:"mem_rss"`
	MemPercent    float32 `json:"mem_percent"`
	NumThreads    int32   `json:"num_threads"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// Stats returns best-effort resource usage for the unit's main process.
// A pid of zero means the unit has no main process and yields nil without
// error.
func Stats(pid int) (*ProcessStats, error) {
	if pid <= 0 {
		return nil, nil
	}

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("failed to open process %d: %w", pid, err)
	}

	stats := &ProcessStats{PID: pid}
	if cpu, err := p.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		stats.MemRSS = mem.RSS
	}
	if pct, err := p.MemoryPercent(); err == nil {
		stats.MemPercent = pct
	}
	if threads, err := p.NumThreads(); err == nil {
		stats.NumThreads = threads
	}
	if created, err := p.CreateTime(); err == nil && created > 0 {
		stats.UptimeSeconds = (time.Now().UnixMilli() - created) / 1000
	}
	return stats, nil
}
