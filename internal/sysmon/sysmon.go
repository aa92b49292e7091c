// Package sysmon provides system-wide CPU and memory usage sampling, used to
// annotate long-running search and scan logs with resource pressure.
package sysmon

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/agbru/consort/internal/logging"
)

// Stats holds a single snapshot of system-wide resource usage.
type Stats struct {
	CPUPercent float64 // 0.0 .. 100.0
	MemPercent float64 // 0.0 .. 100.0
	Goroutines int
}

// Sample collects a single system-wide CPU and memory snapshot.
// CPU uses interval=0 (delta since last call). Returns zero values on error.
func Sample() Stats {
	var s Stats
	cpuPcts, err := cpu.Percent(0, false)
	if err == nil && len(cpuPcts) > 0 {
		s.CPUPercent = cpuPcts[0]
	}
	vmem, err := mem.VirtualMemory()
	if err == nil && vmem != nil {
		s.MemPercent = vmem.UsedPercent
	}
	s.Goroutines = runtime.NumGoroutine()
	return s
}

// LogFields renders the snapshot as structured logging fields.
func (s Stats) LogFields() []logging.Field {
	return []logging.Field{
		logging.Float64("cpu_pct", s.CPUPercent),
		logging.Float64("mem_pct", s.MemPercent),
		logging.Int("goroutines", s.Goroutines),
	}
}
