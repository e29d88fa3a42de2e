// Network I/O collector: aggregate RX/TX byte rates across all interfaces.
// Uses gopsutil for cross-platform network metrics.
package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/Guliveer/vitalis/harvester/internal/models"
)

const allInterfaces = "all"

// NetworkCollector collects network I/O rates. It tracks previous readings to
// compute rates between collections.
type NetworkCollector struct {
	tracker *rateTracker
}

// NewNetworkCollector creates a new network collector.
func NewNetworkCollector() *NetworkCollector {
	return &NetworkCollector{tracker: newRateTracker()}
}

// Name returns the collector identifier.
func (c *NetworkCollector) Name() string { return "network" }

// Collect gathers RX/TX rates since the last collection. The first collection
// reports zero rates while establishing a baseline.
func (c *NetworkCollector) Collect(ctx context.Context) (interface{}, error) {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	if len(counters) == 0 {
		return models.NetworkRates{}, nil
	}

	rates := c.tracker.update(map[string]ioCounters{
		allInterfaces: {read: counters[0].BytesRecv, write: counters[0].BytesSent},
	})
	r := rates[0]
	return models.NetworkRates{
		RxPerSec: r.readPerSec,
		TxPerSec: r.writePerSec,
		TotalRx:  r.totalRead,
		TotalTx:  r.totalWrite,
	}, nil
}

// IsAvailable returns true; network metrics are available on all platforms.
func (c *NetworkCollector) IsAvailable() bool { return true }
