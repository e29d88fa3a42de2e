package platform

import (
	"context"
	"errors"
	"iter"
	"math"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/harvester/internal/harvest"
)

// gopsutilStates maps gopsutil status strings to ps(1) state letters.
var gopsutilStates = map[string]string{
	process.Running: "R",
	process.Sleep:   "S",
	process.Blocked: "D",
	process.Lock:    "D",
	process.Stop:    "T",
	process.Zombie:  "Z",
	process.Idle:    "I",
	process.Wait:    "W",
}

// Gopsutil is a portable provider built on gopsutil. gopsutil reports CPU
// time in seconds, which are scaled back to ticks at defaultClockTicks.
type Gopsutil struct {
	logger *zap.Logger
}

// NewGopsutil creates a gopsutil-backed provider.
func NewGopsutil(opts Options) *Gopsutil {
	return &Gopsutil{logger: opts.logger()}
}

// GlobalCPU returns the machine-wide idle and non-idle totals in ticks.
func (g *Gopsutil) GlobalCPU(ctx context.Context) (idle, nonIdle float64, err error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return 0, 0, err
	}
	if len(times) == 0 {
		return 0, 0, ErrNoCPULine
	}
	t := times[0]
	idle = (t.Idle + t.Iowait) * defaultClockTicks
	nonIdle = (t.User + t.Nice + t.System + t.Irq + t.Softirq + t.Steal) * defaultClockTicks
	return idle, nonIdle, nil
}

// ClockTicks returns the scale applied to gopsutil's CPU seconds.
func (g *Gopsutil) ClockTicks() uint64 { return defaultClockTicks }

// Processes lists the live processes through gopsutil.
func (g *Gopsutil) Processes(ctx context.Context) (iter.Seq2[harvest.RawProcess, error], error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("Listed processes", zap.Int("pids", len(procs)))

	return func(yield func(harvest.RawProcess, error) bool) {
		for _, p := range procs {
			if ctx.Err() != nil {
				return
			}
			if !yield(g.readProcess(ctx, p)) {
				return
			}
		}
	}, nil
}

func (g *Gopsutil) readProcess(ctx context.Context, p *process.Process) (harvest.RawProcess, error) {
	raw := harvest.RawProcess{PID: p.Pid}

	times, err := p.TimesWithContext(ctx)
	if err != nil {
		return raw, err
	}
	raw.CPUTicks = uint64(math.Round((times.User + times.System) * defaultClockTicks))

	raw.Name, err = p.NameWithContext(ctx)
	if err != nil {
		return raw, err
	}
	raw.ParentPID, _ = p.PpidWithContext(ctx)

	raw.Cmdline, raw.CmdlineErr = p.CmdlineSliceWithContext(ctx)
	if raw.CmdlineErr == nil && raw.Cmdline == nil {
		raw.Cmdline = []string{}
	}

	if status, err := p.StatusWithContext(ctx); err == nil && len(status) > 0 {
		raw.StateCode = gopsutilStates[status[0]]
	}

	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		raw.RSSBytes = mem.RSS
	}

	io, err := p.IOCountersWithContext(ctx)
	switch {
	case err != nil:
		raw.IOErr = err
	case io == nil:
		raw.IOErr = errors.New("no io counters")
	default:
		raw.IO = harvest.IOCounters{ReadBytes: io.ReadBytes, WriteBytes: io.WriteBytes}
	}

	if uids, err := p.UidsWithContext(ctx); err == nil && len(uids) > 0 && uids[0] >= 0 {
		uid := uint32(uids[0])
		raw.OwnerID = &uid
	}

	return raw, nil
}
