// Package platform supplies the raw per-OS inputs consumed by the harvest
// sampler: aggregate CPU counters, the live process set, clock ticks, core
// count, total memory and owner name lookup.
//
// On Linux the default provider reads procfs directly. Everywhere else, and on
// Linux when requested, gopsutil is used instead.
package platform

import (
	"errors"

	"go.uber.org/zap"
)

// Backend names accepted by NewProvider.
const (
	BackendAuto     = "auto"
	BackendProcfs   = "procfs"
	BackendGopsutil = "gopsutil"
)

// defaultClockTicks is USER_HZ on every mainstream Linux build.
const defaultClockTicks = 100

var (
	// ErrNoCPULine indicates /proc/stat did not start with an aggregate cpu line.
	ErrNoCPULine = errors.New("platform: no aggregate cpu line")

	// ErrMalformedStat indicates a stat record could not be parsed.
	ErrMalformedStat = errors.New("platform: malformed stat record")
)

// Options configures a process provider.
type Options struct {
	// Backend is one of BackendAuto, BackendProcfs or BackendGopsutil.
	Backend string
	// ProcRoot is the procfs mount point. Empty means /proc.
	ProcRoot string
	// ConcurrentReads is the number of workers reading per-process files.
	// Values below 2 read sequentially.
	ConcurrentReads int
	Logger          *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) procRoot() string {
	if o.ProcRoot == "" {
		return "/proc"
	}
	return o.ProcRoot
}
