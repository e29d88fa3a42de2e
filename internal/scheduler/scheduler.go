// Package scheduler implements a tick-based periodic collection scheduler.
// It runs the collector registry at a configurable interval, assembles one
// Snapshot per tick and batches snapshots for storage. The scheduler does not
// persist data itself; it invokes a callback when a batch is ready.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/harvester/internal/collector"
	"github.com/Guliveer/vitalis/harvester/internal/config"
	"github.com/Guliveer/vitalis/harvester/internal/models"
)

// collectTimeout bounds a single tick.
const collectTimeout = 10 * time.Second

// Scheduler manages periodic collection and batching.
type Scheduler struct {
	registry      *collector.Registry
	id            string
	interval      time.Duration
	batchInterval time.Duration
	logger        *zap.Logger
	now           func() time.Time

	busy     atomic.Bool
	inflight sync.WaitGroup

	mu       sync.Mutex
	batch    []models.Snapshot
	last     models.Snapshot
	haveLast bool

	onBatchReady func([]models.Snapshot)
}

// New creates a Scheduler that stamps every snapshot with id.
func New(registry *collector.Registry, id string, cfg config.CollectionConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		registry:      registry,
		id:            id,
		interval:      cfg.Interval.Duration,
		batchInterval: cfg.BatchInterval.Duration,
		logger:        logger,
		now:           time.Now,
		batch:         make([]models.Snapshot, 0),
	}
}

// OnBatchReady sets the callback invoked when a batch of snapshots is ready.
// The callback owns the slice it receives.
func (s *Scheduler) OnBatchReady(fn func([]models.Snapshot)) {
	s.onBatchReady = fn
}

// Start begins the collection and batching loops. It blocks until the context
// is cancelled, then waits for an in-flight tick and flushes the remaining batch.
func (s *Scheduler) Start(ctx context.Context) {
	collectTicker := time.NewTicker(s.interval)
	batchTicker := time.NewTicker(s.batchInterval)

	defer collectTicker.Stop()
	defer batchTicker.Stop()

	s.spawnTick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.inflight.Wait()
			s.flushBatch()
			return
		case <-collectTicker.C:
			s.spawnTick(ctx)
		case <-batchTicker.C:
			s.flushBatch()
		}
	}
}

func (s *Scheduler) spawnTick(ctx context.Context) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.Tick(ctx)
	}()
}

// Tick runs one collection round and records the snapshot. It reports false
// without collecting when the previous tick is still running.
func (s *Scheduler) Tick(ctx context.Context) (models.Snapshot, bool) {
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Debug("Previous tick still running, skipping")
		return models.Snapshot{}, false
	}
	defer s.busy.Store(false)

	collectCtx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	results := s.registry.CollectAll(collectCtx)
	snapshot := s.assembleSnapshot(results)

	s.mu.Lock()
	s.batch = append(s.batch, snapshot)
	if _, failed := results.Errors[processesKey]; !failed {
		s.last = snapshot
		s.haveLast = true
	}
	s.mu.Unlock()

	s.logger.Debug("Collected snapshot",
		zap.Time("timestamp", snapshot.Timestamp),
		zap.Int("sections", len(results.Data)),
		zap.Int("failed", len(results.Errors)))
	return snapshot, true
}

// Last returns the most recent snapshot whose process sample succeeded.
func (s *Scheduler) Last() (models.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.haveLast
}

// Pending returns the number of snapshots waiting for the next flush.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batch)
}

// flushBatch hands the current batch to the callback and resets it.
func (s *Scheduler) flushBatch() {
	s.mu.Lock()
	if len(s.batch) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.batch
	s.batch = make([]models.Snapshot, 0)
	s.mu.Unlock()

	s.logger.Info("Flushing batch", zap.Int("count", len(batch)))

	if s.onBatchReady != nil {
		s.onBatchReady(batch)
	}
}

const processesKey = "processes"

// assembleSnapshot maps collector results into a Snapshot.
func (s *Scheduler) assembleSnapshot(results collector.Results) models.Snapshot {
	snapshot := models.Snapshot{
		HarvesterID: s.id,
		Timestamp:   s.now().UTC(),
	}

	for name, data := range results.Data {
		switch v := data.(type) {
		case models.CPUInfo:
			snapshot.CPU = &v
		case models.MemoryInfo:
			snapshot.Memory = &v
		case models.NetworkRates:
			snapshot.Network = &v
		case models.HostInfo:
			snapshot.Host = &v
		case []models.DiskIO:
			snapshot.Disks = v
		case []models.DatasetIO:
			snapshot.ZFS = v
		case []models.GPUInfo:
			snapshot.GPUs = v
		case []models.TempReading:
			snapshot.Temperatures = v
		case collector.ProcessResult:
			snapshot.Processes = v.Processes
			snapshot.ProcessCount = v.Count
		default:
			s.logger.Debug("Unknown collector result", zap.String("collector", name))
		}
	}

	return snapshot
}
