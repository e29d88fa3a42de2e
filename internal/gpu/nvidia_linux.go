//go:build linux

package gpu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/harvester/internal/harvest"
	"github.com/Guliveer/vitalis/harvester/internal/models"
)

// NVIDIA queries every NVML device on the host. It is safe for concurrent use.
type NVIDIA struct {
	mu     sync.Mutex
	closed bool
	logger *zap.Logger
}

// Open initializes NVML.
func Open(logger *zap.Logger) (*NVIDIA, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ret := nvml.Init(); !errors.Is(ret, nvml.SUCCESS) {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, nvml.ErrorString(ret))
	}
	return &NVIDIA{logger: logger}, nil
}

func (n *NVIDIA) devices() []nvml.Device {
	count, ret := nvml.DeviceGetCount()
	if !errors.Is(ret, nvml.SUCCESS) {
		n.logger.Debug("NVML device count failed", zap.String("error", nvml.ErrorString(ret)))
		return nil
	}
	out := make([]nvml.Device, 0, count)
	for i := 0; i < count; i++ {
		if device, ret := nvml.DeviceGetHandleByIndex(i); errors.Is(ret, nvml.SUCCESS) {
			out = append(out, device)
		}
	}
	return out
}

// Devices returns the current state of every GPU. Readings a device does not
// support are left nil.
func (n *NVIDIA) Devices(ctx context.Context) ([]models.GPUInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, ErrUnavailable
	}

	devices := n.devices()
	infos := make([]models.GPUInfo, 0, len(devices))
	for i, device := range devices {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		name, ret := device.GetName()
		if !errors.Is(ret, nvml.SUCCESS) {
			continue
		}
		info := models.GPUInfo{Index: i, Name: name}

		if mem, ret := device.GetMemoryInfo(); errors.Is(ret, nvml.SUCCESS) {
			info.Memory = models.NewMemHarvest(mem.Total, mem.Used)
		}
		if util, ret := device.GetUtilizationRates(); errors.Is(ret, nvml.SUCCESS) {
			v := float64(util.Gpu)
			info.Utilization = &v
		}
		if temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU); errors.Is(ret, nvml.SUCCESS) {
			v := float64(temp)
			info.TemperatureC = &v
		}
		if power, ret := device.GetPowerUsage(); errors.Is(ret, nvml.SUCCESS) {
			info.PowerMilliW = &power
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ProcessUsage returns per-PID GPU memory and utilization summed over all
// devices. Processes with no GPU footprint are absent.
func (n *NVIDIA) ProcessUsage(ctx context.Context) map[int32]harvest.GPUUsage {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}

	devices := n.devices()
	perDevice := make([]map[int32]harvest.GPUUsage, 0, len(devices))
	for _, device := range devices {
		if ctx.Err() != nil {
			return nil
		}

		var util []processSample
		if samples, ret := device.GetProcessUtilization(0); errors.Is(ret, nvml.SUCCESS) {
			for _, s := range samples {
				util = append(util, processSample{pid: s.Pid, utilPercent: s.SmUtil + s.EncUtil + s.DecUtil})
			}
		}

		var running []processSample
		for _, list := range []func() ([]nvml.ProcessInfo, nvml.Return){
			device.GetComputeRunningProcesses,
			device.GetGraphicsRunningProcesses,
		} {
			procs, ret := list()
			if !errors.Is(ret, nvml.SUCCESS) {
				continue
			}
			for _, p := range procs {
				running = append(running, processSample{pid: p.Pid, memBytes: p.UsedGpuMemory})
			}
		}

		if u := deviceUsage(util, running); len(u) > 0 {
			perDevice = append(perDevice, u)
		}
	}
	return sumDevices(perDevice)
}

// Close shuts NVML down. Further calls report no data.
func (n *NVIDIA) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	if ret := nvml.Shutdown(); !errors.Is(ret, nvml.SUCCESS) {
		return fmt.Errorf("nvml shutdown: %s", nvml.ErrorString(ret))
	}
	return nil
}
