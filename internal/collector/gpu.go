// GPU collector: utilization, memory, temperature and power per device.
package collector

import (
	"context"

	"github.com/Guliveer/vitalis/harvester/internal/models"
)

// GPUSource lists the host's GPUs.
type GPUSource interface {
	Devices(ctx context.Context) ([]models.GPUInfo, error)
}

// GPUCollector collects per-device GPU state.
type GPUCollector struct {
	source GPUSource
}

// NewGPUCollector creates a GPU collector. A nil source makes the collector
// unavailable.
func NewGPUCollector(source GPUSource) *GPUCollector {
	return &GPUCollector{source: source}
}

// Name returns the collector identifier.
func (c *GPUCollector) Name() string { return "gpu" }

// Collect returns the state of every readable GPU.
func (c *GPUCollector) Collect(ctx context.Context) (interface{}, error) {
	return c.source.Devices(ctx)
}

// IsAvailable reports whether a GPU source was opened.
func (c *GPUCollector) IsAvailable() bool { return c.source != nil }
