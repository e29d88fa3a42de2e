//go:build linux

package platform

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/Guliveer/vitalis/harvester/internal/harvest"
)

// Procfs reads process and CPU counters straight from a procfs mount.
type Procfs struct {
	root     string
	pageSize uint64
	clk      uint64
	workers  int
	logger   *zap.Logger
}

// NewProcfs creates a procfs-backed provider.
func NewProcfs(opts Options) *Procfs {
	return &Procfs{
		root:     opts.procRoot(),
		pageSize: uint64(os.Getpagesize()),
		clk:      ClockTicks(),
		workers:  opts.ConcurrentReads,
		logger:   opts.logger(),
	}
}

// GlobalCPU reads the aggregate cpu line of /proc/stat.
func (p *Procfs) GlobalCPU(ctx context.Context) (idle, nonIdle float64, err error) {
	f, err := os.Open(filepath.Join(p.root, "stat"))
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, 0, err
		}
		return 0, 0, ErrNoCPULine
	}
	return parseCPULine(sc.Text())
}

// ClockTicks returns the tick rate used by /proc/<pid>/stat.
func (p *Procfs) ClockTicks() uint64 { return p.clk }

// Processes lists the numeric entries of the procfs root. Each process is
// read when the returned sequence reaches it.
func (p *Procfs) Processes(ctx context.Context) (iter.Seq2[harvest.RawProcess, error], error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, err
	}

	pids := make([]int32, 0, len(entries)/2)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.ParseInt(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		pids = append(pids, int32(pid))
	}
	p.logger.Debug("Listed procfs", zap.String("root", p.root), zap.Int("pids", len(pids)))

	if p.workers > 1 {
		return p.readConcurrent(ctx, pids), nil
	}
	return p.readSequential(ctx, pids), nil
}

func (p *Procfs) readSequential(ctx context.Context, pids []int32) iter.Seq2[harvest.RawProcess, error] {
	return func(yield func(harvest.RawProcess, error) bool) {
		for _, pid := range pids {
			if ctx.Err() != nil {
				return
			}
			if !yield(p.readProcess(pid)) {
				return
			}
		}
	}
}

type readResult struct {
	raw harvest.RawProcess
	err error
}

// readConcurrent fans the per-PID reads out to a fixed worker pool. Results
// arrive in completion order. Stopping early cancels the pool and waits for
// the workers to exit.
func (p *Procfs) readConcurrent(ctx context.Context, pids []int32) iter.Seq2[harvest.RawProcess, error] {
	return func(yield func(harvest.RawProcess, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		jobs := make(chan int32)
		results := make(chan readResult, p.workers)

		var wg sync.WaitGroup
		for range p.workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for pid := range jobs {
					raw, err := p.readProcess(pid)
					select {
					case results <- readResult{raw: raw, err: err}:
					case <-ctx.Done():
						return
					}
				}
			}()
		}

		go func() {
			defer close(jobs)
			for _, pid := range pids {
				select {
				case jobs <- pid:
				case <-ctx.Done():
					return
				}
			}
		}()

		go func() {
			wg.Wait()
			close(results)
		}()

		for r := range results {
			if !yield(r.raw, r.err) {
				cancel()
				break
			}
		}
		for range results {
		}
	}
}

// readProcess reads one /proc/<pid> directory. Only a failure to read or parse
// stat is an error; cmdline and io failures are recorded on the result.
func (p *Procfs) readProcess(pid int32) (harvest.RawProcess, error) {
	raw := harvest.RawProcess{PID: pid}
	dir := filepath.Join(p.root, strconv.Itoa(int(pid)))

	data, err := os.ReadFile(filepath.Join(dir, "stat"))
	if err != nil {
		return raw, err
	}
	st, err := parseStat(data)
	if err != nil {
		return raw, fmt.Errorf("pid %d: %w", pid, err)
	}

	raw.ParentPID = st.ppid
	raw.Name = st.comm
	raw.StateCode = st.state
	raw.CPUTicks = st.utime + st.stime
	raw.RSSBytes = st.rssPages * p.pageSize

	if data, err := os.ReadFile(filepath.Join(dir, "cmdline")); err != nil {
		raw.CmdlineErr = err
	} else {
		raw.Cmdline = parseCmdline(data)
	}

	if data, err := os.ReadFile(filepath.Join(dir, "io")); err != nil {
		raw.IOErr = err
	} else {
		raw.IO, raw.IOErr = parseIO(data)
	}

	var sb unix.Stat_t
	if err := unix.Stat(dir, &sb); err == nil {
		uid := sb.Uid
		raw.OwnerID = &uid
	}

	return raw, nil
}
