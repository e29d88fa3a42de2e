// Package harvest implements the stateful differential process sampler.
//
// Each tick the Sampler reads the whole-machine CPU counters, enumerates the
// live process set, turns every process's cumulative counters into
// per-interval rates against the values recorded on the previous tick, and
// evicts the state of processes that have exited. The package is platform
// agnostic: raw counters come from a Provider implemented per OS in
// internal/platform.
package harvest

import (
	"context"
	"iter"
)

// IOCounters holds cumulative byte counters for one process.
type IOCounters struct {
	ReadBytes  uint64
	WriteBytes uint64
}

// RawProcess is one process record as read from the OS for the current tick.
// Counters are cumulative over the life of the process.
type RawProcess struct {
	PID       int32
	ParentPID int32
	// OwnerID is nil when the owner could not be determined.
	OwnerID *uint32
	// Name is the short OS label (comm on Linux), possibly truncated.
	Name string
	// Cmdline is the argument vector. CmdlineErr is set when it could not be read.
	Cmdline    []string
	CmdlineErr error
	// StateCode is a one-letter state as used by ps(1).
	StateCode string
	CPUTicks  uint64
	RSSBytes  uint64
	IO        IOCounters
	// IOErr is set when the I/O counters could not be read (usually EACCES).
	IOErr error
}

// CounterProvider reads the aggregate CPU counters of the machine.
type CounterProvider interface {
	// GlobalCPU returns cumulative idle and non-idle tick totals.
	GlobalCPU(ctx context.Context) (idle, nonIdle float64, err error)
}

// SnapshotProvider enumerates the live process set.
type SnapshotProvider interface {
	// Processes returns a single-pass sequence of per-process results. The
	// error is returned only when the process list itself cannot be obtained;
	// failures reading one process are yielded alongside that entry.
	Processes(ctx context.Context) (iter.Seq2[RawProcess, error], error)
}

// Provider is the full set of raw inputs for one platform.
type Provider interface {
	CounterProvider
	SnapshotProvider
	// ClockTicks returns the number of CPU ticks per second used by CPUTicks.
	ClockTicks() uint64
}

// System supplies machine-wide scalars.
type System interface {
	ActiveCores() int
	TotalMemoryBytes(ctx context.Context) uint64
}

// GPUUsage is the GPU footprint of one process summed over all devices.
type GPUUsage struct {
	MemBytes    uint64
	UtilPercent uint32
}

// GPUAttributor reports per-process GPU usage keyed by PID.
type GPUAttributor interface {
	ProcessUsage(ctx context.Context) map[int32]GPUUsage
}

// LookupFunc resolves a numeric owner id to a display name.
type LookupFunc func(uid uint32) (string, error)
