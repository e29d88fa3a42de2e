package harvest

// GlobalCPUState holds the aggregate tick totals seen on the previous tick.
// The zero value is the state before the first tick.
type GlobalCPUState struct {
	PrevIdle    float64
	PrevNonIdle float64
}

// CPUUsage describes the machine-wide CPU activity of one interval.
type CPUUsage struct {
	// Usage is the number of busy ticks in the interval (total minus idle).
	Usage float64
	// Fraction is the busy share of all ticks in the interval, without the x100.
	Fraction float64
}

// ComputeGlobalCPU derives the interval's CPU usage from freshly read idle and
// non-idle totals and advances prev to them. Counters that went backwards
// (for example after a reset) produce odd values for one tick but never panic.
func ComputeGlobalCPU(prev *GlobalCPUState, idle, nonIdle float64) CPUUsage {
	total := idle + nonIdle
	prevTotal := prev.PrevIdle + prev.PrevNonIdle

	totalDelta := total - prevTotal
	idleDelta := idle - prev.PrevIdle

	prev.PrevIdle = idle
	prev.PrevNonIdle = nonIdle

	// Known quirk: a zero busy delta is reported as one tick so it can never
	// become a zero denominator in the per-process formula.
	usage := totalDelta - idleDelta
	if usage == 0 {
		usage = 1.0
	}

	fraction := 0.0
	if totalDelta != 0 {
		fraction = usage / totalDelta
	}

	return CPUUsage{Usage: usage, Fraction: fraction}
}

// PerCore divides the busy ticks by the core count for unnormalized
// reporting, which scales every per-process percentage up by that count.
func (u CPUUsage) PerCore(cores int) CPUUsage {
	if cores < 1 {
		return u
	}
	u.Usage /= float64(cores)
	return u
}
