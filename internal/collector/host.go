// Host collector: hostname, OS identity, uptime and boot time.
// Uses gopsutil for cross-platform host information.
package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/Guliveer/vitalis/harvester/internal/models"
)

// HostCollector collects host identity and uptime.
type HostCollector struct{}

// NewHostCollector creates a new host collector.
func NewHostCollector() *HostCollector {
	return &HostCollector{}
}

// Name returns the collector identifier.
func (c *HostCollector) Name() string { return "host" }

// Collect gathers host information.
func (c *HostCollector) Collect(ctx context.Context) (interface{}, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return models.HostInfo{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		UptimeSeconds:   info.Uptime,
		BootTime:        info.BootTime,
	}, nil
}

// IsAvailable returns true; host information is available on all platforms.
func (c *HostCollector) IsAvailable() bool { return true }
