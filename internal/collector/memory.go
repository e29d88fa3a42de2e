// Memory collector: RAM, swap and, where present, the ZFS ARC.
// Uses gopsutil for cross-platform memory metrics.
package collector

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/harvester/internal/models"
)

// DefaultARCStatsPath is where ZFS on Linux publishes ARC statistics.
const DefaultARCStatsPath = "/proc/spl/kstat/zfs/arcstats"

// MemoryCollector collects RAM, swap and ARC usage.
type MemoryCollector struct {
	arcPath string
	logger  *zap.Logger
}

// NewMemoryCollector creates a new memory collector. An empty arcPath disables
// the ARC reading.
func NewMemoryCollector(arcPath string, logger *zap.Logger) *MemoryCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryCollector{arcPath: arcPath, logger: logger}
}

// Name returns the collector identifier.
func (c *MemoryCollector) Name() string { return "memory" }

// Collect gathers RAM and swap usage. Swap and ARC failures are not fatal.
func (c *MemoryCollector) Collect(ctx context.Context) (interface{}, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	result := models.MemoryInfo{RAM: models.NewMemHarvest(v.Total, v.Used)}

	if s, err := mem.SwapMemoryWithContext(ctx); err == nil {
		result.Swap = models.NewMemHarvest(s.Total, s.Used)
	} else {
		c.logger.Debug("Swap usage not available", zap.Error(err))
	}

	if c.arcPath != "" {
		arc, err := readARC(c.arcPath)
		switch {
		case err == nil:
			result.ARC = &arc
		case !errors.Is(err, os.ErrNotExist):
			c.logger.Debug("ARC stats not readable", zap.String("path", c.arcPath), zap.Error(err))
		}
	}

	return result, nil
}

// IsAvailable returns true; memory metrics are available on all platforms.
func (c *MemoryCollector) IsAvailable() bool { return true }

// readARC reports the ARC's current size against the memory ZFS considers
// available to it.
func readARC(path string) (models.MemHarvest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.MemHarvest{}, err
	}
	stats := parseKstat(data)
	size, _ := strconv.ParseUint(stats["size"], 10, 64)
	total, _ := strconv.ParseUint(stats["memory_all_bytes"], 10, 64)
	return models.NewMemHarvest(total, size), nil
}
