// Process collector: per-process rates from the differential sampler,
// trimmed to the top N by CPU.
package collector

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/Guliveer/vitalis/harvester/internal/harvest"
	"github.com/Guliveer/vitalis/harvester/internal/models"
)

// ProcessResult is one tick of process samples.
type ProcessResult struct {
	// Processes holds at most the configured top N samples, busiest first.
	Processes []models.ProcessSample `json:"processes"`
	// Count is the number of processes sampled before trimming.
	Count int `json:"count"`
}

// ProcessCollector runs one sampler tick per collection. Elapsed time is
// measured from the previous successful tick, or from construction for the
// first one. Not safe for concurrent use.
type ProcessCollector struct {
	sampler *harvest.Sampler
	opts    harvest.SampleOptions
	topN    int
	last    time.Time
	now     func() time.Time
}

// NewProcessCollector creates a process collector. topN <= 0 keeps every process.
func NewProcessCollector(sampler *harvest.Sampler, opts harvest.SampleOptions, topN int) *ProcessCollector {
	return &ProcessCollector{
		sampler: sampler,
		opts:    opts,
		topN:    topN,
		last:    time.Now(),
		now:     time.Now,
	}
}

// Name returns the collector identifier.
func (c *ProcessCollector) Name() string { return "processes" }

// Collect samples every live process. A failed tick leaves the elapsed-time
// baseline where it was, so the next tick covers both intervals.
func (c *ProcessCollector) Collect(ctx context.Context) (interface{}, error) {
	now := c.now()
	samples, err := c.sampler.Sample(ctx, now.Sub(c.last), c.opts)
	if err != nil {
		return nil, err
	}
	c.last = now

	return ProcessResult{Processes: topByCPU(samples, c.topN), Count: len(samples)}, nil
}

// IsAvailable returns true; a process provider exists for every platform.
func (c *ProcessCollector) IsAvailable() bool { return true }

// topByCPU sorts samples by CPU descending, breaking ties by memory and then
// PID, and returns the first n. n <= 0 returns all of them.
func topByCPU(samples []models.ProcessSample, n int) []models.ProcessSample {
	sort.Slice(samples, func(i, j int) bool {
		a, b := samples[i], samples[j]
		if a.CPUPercent != b.CPUPercent {
			return a.CPUPercent > b.CPUPercent
		}
		if a.MemBytes != b.MemBytes {
			return a.MemBytes > b.MemBytes
		}
		return a.PID < b.PID
	})
	if n <= 0 {
		return samples
	}
	return lo.Subset(samples, 0, uint(n))
}
