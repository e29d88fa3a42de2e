package harvest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/harvester/internal/models"
)

// SampleOptions selects how per-process CPU percentages are scaled.
type SampleOptions struct {
	// Unnormalized reports CPU relative to a single core instead of the whole machine.
	Unnormalized bool
	// UseCurrentCPUTotal reports CPU against the interval's busy ticks only,
	// without weighting by the machine's busy fraction.
	UseCurrentCPUTotal bool
}

// Sampler produces one process snapshot per tick. It exclusively owns the
// per-process state table and the global CPU state.
//
// Reads from the provider happen outside the sampler's lock, so concurrent
// calls to Sample may overlap while reading. State is reconciled in the order
// the calls started: a call waits for every earlier call to finish before it
// touches the state table or the global CPU state.
type Sampler struct {
	provider Provider
	system   System
	owners   *IdentityCache
	gpu      GPUAttributor
	logger   *zap.Logger

	mu    sync.Mutex
	turn  *sync.Cond
	cpu   GlobalCPUState
	table *StateTable
	// issued is the next ticket handed out; next is the ticket allowed to
	// reconcile state.
	issued uint64
	next   uint64
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithLogger sets the logger used for per-tick diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Sampler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGPU attributes per-process GPU usage from a.
func WithGPU(a GPUAttributor) Option {
	return func(s *Sampler) { s.gpu = a }
}

// NewSampler creates a Sampler. owners may be nil, in which case every
// process reports UnknownOwner.
func NewSampler(provider Provider, system System, owners *IdentityCache, opts ...Option) *Sampler {
	if owners == nil {
		owners = NewIdentityCache(nil, 0)
	}
	s := &Sampler{
		provider: provider,
		system:   system,
		owners:   owners,
		logger:   zap.NewNop(),
		table:    NewStateTable(),
	}
	s.turn = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sample runs one tick. elapsed must be the wall time since the previous
// successful call; it is only used for I/O rates.
//
// A failure to read the global CPU counters or the process list aborts the
// tick with no state changed. Processes that cannot be read are left out.
// The order of the returned samples is unspecified.
func (s *Sampler) Sample(ctx context.Context, elapsed time.Duration, opts SampleOptions) ([]models.ProcessSample, error) {
	s.mu.Lock()
	ticket := s.issued
	s.issued++
	hint := s.table.Len()
	s.mu.Unlock()

	in, err := s.read(ctx, hint)

	s.mu.Lock()
	defer s.mu.Unlock()
	for s.next != ticket {
		s.turn.Wait()
	}
	defer func() {
		s.next++
		s.turn.Broadcast()
	}()

	if err != nil {
		return nil, err
	}
	return s.reconcile(in, elapsed, opts), nil
}

// tickInput is everything one tick reads before it touches state.
type tickInput struct {
	idle, nonIdle float64
	raws          []RawProcess
	skipped       int
	totalMem      uint64
	clk           uint64
	gpuUsage      map[int32]GPUUsage
}

func (s *Sampler) read(ctx context.Context, hint int) (tickInput, error) {
	var in tickInput
	var err error
	in.idle, in.nonIdle, err = s.provider.GlobalCPU(ctx)
	if err != nil {
		return in, fmt.Errorf("%w: %w", ErrCPUUsage, err)
	}

	procs, err := s.provider.Processes(ctx)
	if err != nil {
		return in, fmt.Errorf("%w: %w", ErrEnumerate, err)
	}

	in.raws = make([]RawProcess, 0, hint)
	for raw, err := range procs {
		if err != nil {
			// Usually the process exited between listing and reading.
			in.skipped++
			continue
		}
		in.raws = append(in.raws, raw)
	}
	if err := ctx.Err(); err != nil {
		// A partial enumeration would evict live processes.
		return in, err
	}

	in.totalMem = s.system.TotalMemoryBytes(ctx)
	in.clk = s.provider.ClockTicks()
	if s.gpu != nil {
		in.gpuUsage = s.gpu.ProcessUsage(ctx)
	}
	return in, nil
}

// reconcile must be called with s.mu held and the caller's turn reached.
func (s *Sampler) reconcile(in tickInput, elapsed time.Duration, opts SampleOptions) []models.ProcessSample {
	raws := in.raws
	usage := ComputeGlobalCPU(&s.cpu, in.idle, in.nonIdle)
	if opts.Unnormalized {
		usage = usage.PerCore(s.system.ActiveCores())
	}

	s.table.Begin()
	samples := make([]models.ProcessSample, 0, len(raws))
	for i := range raws {
		raw := &raws[i]
		counters := s.table.Touch(raw.PID)
		rates := ComputeEntityRates(raw, *counters, usage, elapsed, opts.UseCurrentCPUTotal)
		*counters = rates.Next

		sample := s.buildSample(raw, rates, in.totalMem, in.clk)
		if g, ok := in.gpuUsage[raw.PID]; ok {
			sample.GPUMemBytes = g.MemBytes
			sample.GPUUtilPercent = g.UtilPercent
		}
		samples = append(samples, sample)
	}
	evicted := s.table.Sweep()

	s.logger.Debug("Process tick complete",
		zap.Int("processes", len(samples)),
		zap.Int("skipped", in.skipped),
		zap.Int("evicted", evicted),
		zap.Float64("cpu_fraction", usage.Fraction))

	return samples
}

func (s *Sampler) buildSample(raw *RawProcess, rates EntityRates, totalMem, clk uint64) models.ProcessSample {
	name, command := processNames(raw)
	return models.ProcessSample{
		PID:              raw.PID,
		ParentPID:        raw.ParentPID,
		Name:             name,
		Command:          command,
		CPUPercent:       rates.CPUPercent,
		MemPercent:       MemPercent(raw.RSSBytes, totalMem),
		MemBytes:         raw.RSSBytes,
		ReadBytesPerSec:  rates.ReadBytesPerSec,
		WriteBytesPerSec: rates.WriteBytesPerSec,
		TotalReadBytes:   rates.TotalReadBytes,
		TotalWriteBytes:  rates.TotalWriteBytes,
		UID:              raw.OwnerID,
		User:             s.owners.ResolveOwner(raw.OwnerID),
		State:            StateLabel(raw.StateCode),
		StateCode:        raw.StateCode,
		CPUTime:          CPUTime(raw.CPUTicks, clk),
	}
}

// Tracked returns the number of processes carried over from the last tick.
func (s *Sampler) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Len()
}

// Counters returns the counters recorded for pid on the last tick.
func (s *Sampler) Counters(pid int32) (EntityCounters, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Get(pid)
}

// CPUState returns the global CPU totals recorded on the last tick.
func (s *Sampler) CPUState() GlobalCPUState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cpu
}
