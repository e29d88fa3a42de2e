//go:build !linux

package platform

import (
	"fmt"
	"runtime"

	"github.com/Guliveer/vitalis/harvester/internal/harvest"
)

// NewProvider returns the gopsutil provider. procfs is only available on Linux.
func NewProvider(opts Options) (harvest.Provider, error) {
	switch opts.Backend {
	case "", BackendAuto, BackendGopsutil:
		return NewGopsutil(opts), nil
	default:
		return nil, fmt.Errorf("process backend %q is not supported on %s", opts.Backend, runtime.GOOS)
	}
}

// ClockTicks returns the tick rate the gopsutil provider scales to.
func ClockTicks() uint64 { return defaultClockTicks }

// Name returns the platform identifier.
func Name() string { return runtime.GOOS }
