package harvest

import "time"

// EntityCounters are the last cumulative values observed for one process.
type EntityCounters struct {
	CPUTicks   uint64
	ReadBytes  uint64
	WriteBytes uint64
}

// EntityRates is the result of differencing one process against its previous
// counters.
type EntityRates struct {
	CPUPercent       float64
	ReadBytesPerSec  uint64
	WriteBytesPerSec uint64
	TotalReadBytes   uint64
	TotalWriteBytes  uint64
	// Next replaces the process's EntityCounters once the tick commits.
	Next EntityCounters
}

// SaturatingSub returns cur-prev, or 0 when the counter went backwards.
func SaturatingSub(cur, prev uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	return 0
}

// PerSecond divides delta by the elapsed wall time. A non-positive elapsed
// time yields 0.
func PerSecond(delta uint64, elapsed time.Duration) uint64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return uint64(float64(delta) / secs)
}

// ProcessCPUPercent converts a process's tick delta into a percentage of the
// interval's machine-wide busy ticks.
func ProcessCPUPercent(ticksDelta uint64, usage CPUUsage, useCurrentCPUTotal bool) float64 {
	if usage.Usage == 0 {
		return 0
	}
	pct := float64(ticksDelta) / usage.Usage * 100
	if useCurrentCPUTotal {
		return pct
	}
	return pct * usage.Fraction
}

// MemPercent returns used as a percentage of total, or 0 when total is 0.
func MemPercent(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}

// ComputeEntityRates differences raw against prev. A zero prev (first
// sighting) counts the full cumulative ticks as this interval's delta.
//
// When the I/O counters could not be read the I/O fields are reported as 0
// and the previous I/O baseline is carried forward unchanged.
func ComputeEntityRates(raw *RawProcess, prev EntityCounters, usage CPUUsage, elapsed time.Duration, useCurrentCPUTotal bool) EntityRates {
	r := EntityRates{
		CPUPercent: ProcessCPUPercent(SaturatingSub(raw.CPUTicks, prev.CPUTicks), usage, useCurrentCPUTotal),
		Next: EntityCounters{
			CPUTicks:   raw.CPUTicks,
			ReadBytes:  prev.ReadBytes,
			WriteBytes: prev.WriteBytes,
		},
	}

	if raw.IOErr != nil {
		return r
	}

	r.TotalReadBytes = raw.IO.ReadBytes
	r.TotalWriteBytes = raw.IO.WriteBytes
	r.ReadBytesPerSec = PerSecond(SaturatingSub(raw.IO.ReadBytes, prev.ReadBytes), elapsed)
	r.WriteBytesPerSec = PerSecond(SaturatingSub(raw.IO.WriteBytes, prev.WriteBytes), elapsed)
	r.Next.ReadBytes = raw.IO.ReadBytes
	r.Next.WriteBytes = raw.IO.WriteBytes
	return r
}

// CPUTime converts cumulative ticks into a duration. It returns 0 when the
// tick rate is unknown.
func CPUTime(ticks, ticksPerSec uint64) time.Duration {
	if ticksPerSec == 0 {
		return 0
	}
	secs := ticks / ticksPerSec
	rem := ticks % ticksPerSec
	return time.Duration(secs)*time.Second + time.Duration(rem)*time.Second/time.Duration(ticksPerSec)
}
