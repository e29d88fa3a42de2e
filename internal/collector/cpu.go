// CPU usage collector: overall and per-core busy percentages over the
// interval since the previous collection.
package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/Guliveer/vitalis/harvester/internal/harvest"
	"github.com/Guliveer/vitalis/harvester/internal/models"
)

type cpuTimesFunc func(ctx context.Context, percpu bool) ([]cpu.TimesStat, error)

// CPUCollector collects CPU usage metrics. The first collection reports the
// average since boot.
type CPUCollector struct {
	times   cpuTimesFunc
	overall harvest.GlobalCPUState
	cores   []harvest.GlobalCPUState
}

// NewCPUCollector creates a new CPU collector.
func NewCPUCollector() *CPUCollector {
	return &CPUCollector{times: cpu.TimesWithContext}
}

// Name returns the collector identifier.
func (c *CPUCollector) Name() string { return "cpu" }

// Collect differences the aggregate and per-core tick counters against the
// previous call. Per-core readings are omitted if they cannot be read.
func (c *CPUCollector) Collect(ctx context.Context) (interface{}, error) {
	overall, err := c.times(ctx, false)
	if err != nil {
		return nil, err
	}
	if len(overall) == 0 {
		return nil, harvest.ErrCPUUsage
	}

	result := models.CPUInfo{Overall: busyPercent(&c.overall, overall[0])}

	cores, err := c.times(ctx, true)
	if err != nil {
		return result, nil
	}
	if len(cores) != len(c.cores) {
		// Core set changed (hotplug); start over.
		c.cores = make([]harvest.GlobalCPUState, len(cores))
	}
	result.Cores = make([]float64, len(cores))
	for i, t := range cores {
		result.Cores[i] = busyPercent(&c.cores[i], t)
	}
	return result, nil
}

// IsAvailable returns true; CPU metrics are available on all platforms.
func (c *CPUCollector) IsAvailable() bool { return true }

// busyPercent returns the busy share of the interval and advances prev.
// A non-positive interval or a counter reset reports 0.
func busyPercent(prev *harvest.GlobalCPUState, t cpu.TimesStat) float64 {
	idle := t.Idle + t.Iowait
	nonIdle := t.User + t.Nice + t.System + t.Irq + t.Softirq + t.Steal

	totalDelta := (idle + nonIdle) - (prev.PrevIdle + prev.PrevNonIdle)
	busyDelta := nonIdle - prev.PrevNonIdle
	prev.PrevIdle, prev.PrevNonIdle = idle, nonIdle

	if totalDelta <= 0 || busyDelta < 0 {
		return 0
	}
	return busyDelta / totalDelta * 100
}
