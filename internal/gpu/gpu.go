// Package gpu reads NVIDIA device state and per-process GPU usage via NVML.
// On hosts without the driver library Open returns ErrUnavailable.
package gpu

import (
	"errors"

	"github.com/Guliveer/vitalis/harvester/internal/harvest"
)

// ErrUnavailable is returned by Open when NVML cannot be used on this host.
var ErrUnavailable = errors.New("gpu: NVML unavailable")

// processSample is one PID's footprint on a single device.
type processSample struct {
	pid         uint32
	memBytes    uint64
	utilPercent uint32
}

// deviceUsage merges one device's utilization samples with its running
// process lists. utilization contributes sm+enc+dec; a PID listed as both a
// compute and a graphics process keeps the memory of the later list.
func deviceUsage(util, running []processSample) map[int32]harvest.GPUUsage {
	out := make(map[int32]harvest.GPUUsage, len(util)+len(running))
	for _, s := range util {
		u := out[int32(s.pid)]
		u.UtilPercent = s.utilPercent
		out[int32(s.pid)] = u
	}
	for _, s := range running {
		u := out[int32(s.pid)]
		u.MemBytes = s.memBytes
		out[int32(s.pid)] = u
	}
	return out
}

// sumDevices adds per-device usage into one map keyed by PID.
func sumDevices(devices []map[int32]harvest.GPUUsage) map[int32]harvest.GPUUsage {
	out := make(map[int32]harvest.GPUUsage)
	for _, d := range devices {
		for pid, u := range d {
			acc := out[pid]
			acc.MemBytes += u.MemBytes
			acc.UtilPercent += u.UtilPercent
			out[pid] = acc
		}
	}
	return out
}
