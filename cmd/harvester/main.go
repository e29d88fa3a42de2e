// Package main is the entry point for the harvester.
// It loads configuration, wires the platform provider, the process sampler
// and the collectors, and runs the scheduler in the foreground.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Guliveer/vitalis/harvester/internal/buffer"
	"github.com/Guliveer/vitalis/harvester/internal/collector"
	"github.com/Guliveer/vitalis/harvester/internal/config"
	"github.com/Guliveer/vitalis/harvester/internal/gpu"
	"github.com/Guliveer/vitalis/harvester/internal/harvest"
	"github.com/Guliveer/vitalis/harvester/internal/models"
	"github.com/Guliveer/vitalis/harvester/internal/platform"
	"github.com/Guliveer/vitalis/harvester/internal/scheduler"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", "", "Path to configuration file (default: search standard locations)")
	showVersion = flag.Bool("version", false, "Show version and exit")
	once        = flag.Bool("once", false, "Sample twice, print the busiest processes and exit")
	interval    = flag.Duration("interval", 0, "Collection interval, overrides config")
	logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
	writeConfig = flag.String("write-config", "", "Write the effective configuration to this path and exit")
	drain       = flag.Bool("drain", false, "Print buffered snapshots as JSON lines, remove them and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("harvester %s (%s)\n", version, platform.Name())
		os.Exit(0)
	}

	cli := config.CLIOverrides{Interval: *interval, LogLevel: *logLevel}
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadLayered(cli, *configPath)
	} else {
		cfg, err = config.LoadLayered(cli)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	if *writeConfig != "" {
		if err := config.WriteConfig(cfg, *writeConfig); err != nil {
			logger.Fatal("Failed to write config", zap.Error(err))
		}
		logger.Info("Wrote config", zap.String("path", *writeConfig), zap.String("id", cfg.ID))
		return
	}

	if *drain {
		buf, err := buffer.New(cfg.Buffer.Dir, 0, logger)
		if err != nil {
			logger.Fatal("Failed to open buffer", zap.Error(err))
		}
		n, err := drainBuffer(buf, os.Stdout)
		if err != nil {
			logger.Fatal("Failed to drain buffer", zap.Error(err))
		}
		logger.Info("Drained buffer", zap.Int("snapshots", n))
		return
	}

	logger.Info("Starting harvester",
		zap.String("version", version),
		zap.String("id", cfg.ID),
		zap.String("platform", platform.Name()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Harvester failed", zap.Error(err))
	}
	logger.Info("Harvester stopped")
}

// run wires all components and blocks until the context is cancelled, or
// until the one-shot sample is printed.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	provider, err := platform.NewProvider(platform.Options{
		Backend:         cfg.Processes.Backend,
		ConcurrentReads: cfg.Processes.ConcurrentReads,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("creating process provider: %w", err)
	}

	samplerOpts := []harvest.Option{harvest.WithLogger(logger)}

	var gpuSource collector.GPUSource
	if cfg.Features.GPU {
		nv, err := gpu.Open(logger)
		if err != nil {
			logger.Info("NVIDIA GPU not available, GPU metrics disabled", zap.Error(err))
		} else {
			defer nv.Close()
			gpuSource = nv
			samplerOpts = append(samplerOpts, harvest.WithGPU(nv))
		}
	}

	owners := harvest.NewIdentityCache(platform.LookupUser, cfg.Processes.IdentityRetry.Duration)
	sampler := harvest.NewSampler(provider, platform.NewSystem(), owners, samplerOpts...)
	sampleOpts := harvest.SampleOptions{
		Unnormalized:       cfg.Processes.UnnormalizedCPU,
		UseCurrentCPUTotal: cfg.Processes.CurrentCPUTotal,
	}

	registry := collector.NewRegistry(logger)
	registry.Register(collector.NewProcessCollector(sampler, sampleOpts, cfg.Collection.TopProcesses))
	registry.Register(collector.NewCPUCollector())
	registry.Register(collector.NewMemoryCollector(collector.DefaultARCStatsPath, logger))
	registry.Register(collector.NewHostCollector())
	if cfg.Features.Network {
		registry.Register(collector.NewNetworkCollector())
	}
	if cfg.Features.Disk {
		registry.Register(collector.NewDiskCollector(logger))
	}
	if cfg.Features.ZFS {
		registry.Register(collector.NewZFSCollector(collector.DefaultZFSKstatRoot, logger))
	}
	if cfg.Features.Temperature {
		registry.Register(collector.NewTemperatureCollector(logger))
	}
	if gpuSource != nil {
		registry.Register(collector.NewGPUCollector(gpuSource))
	}

	sched := scheduler.New(registry, cfg.ID, cfg.Collection, logger)

	if *once {
		return sampleOnce(ctx, sched, cfg.Collection.Interval.Duration, os.Stdout)
	}

	if cfg.Buffer.Enabled {
		buf, err := buffer.New(cfg.Buffer.Dir, cfg.Buffer.MaxSizeMB, logger)
		if err != nil {
			return fmt.Errorf("initializing buffer: %w", err)
		}
		if n := buf.Count(); n > 0 {
			logger.Info("Buffered batches from previous runs",
				zap.Int("batches", n),
				zap.String("size", humanize.Bytes(uint64(buf.Size()))))
		}
		sched.OnBatchReady(func(batch []models.Snapshot) {
			if err := buf.Store(batch); err != nil {
				logger.Error("Failed to store batch", zap.Error(err))
			}
		})
	}

	logger.Info("Harvester running",
		zap.Duration("collect_interval", cfg.Collection.Interval.Duration),
		zap.Duration("batch_interval", cfg.Collection.BatchInterval.Duration),
		zap.Int("collectors", len(registry.Collectors())))
	sched.Start(ctx)
	return nil
}

// sampleOnce runs a baseline tick and a measured tick one interval apart,
// then prints the measured process table.
func sampleOnce(ctx context.Context, sched *scheduler.Scheduler, wait time.Duration, w io.Writer) error {
	sched.Tick(ctx)
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(wait):
	}
	sched.Tick(ctx)

	snap, ok := sched.Last()
	if !ok {
		return errors.New("no successful process sample")
	}
	return printProcesses(w, snap)
}

func printProcesses(w io.Writer, snap models.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PID\tUSER\tSTATE\tCPU%\tMEM\tREAD/s\tWRITE/s\tTIME\tNAME\t")
	for _, p := range snap.Processes {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%s\t%s\t%s\t%s\t%s\t\n",
			p.PID,
			p.User,
			p.StateCode,
			p.CPUPercent,
			humanize.IBytes(p.MemBytes),
			humanize.IBytes(p.ReadBytesPerSec),
			humanize.IBytes(p.WriteBytesPerSec),
			p.CPUTime.Truncate(time.Second),
			p.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s processes sampled\n", humanize.Comma(int64(snap.ProcessCount)))
	return err
}

// drainBuffer writes every buffered snapshot to w as one JSON object per line,
// oldest first, and returns how many were written. Batches are removed from
// the buffer as they are read.
func drainBuffer(buf *buffer.Buffer, w io.Writer) (int, error) {
	batches, err := buf.RetrieveAll()
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	n := 0
	for _, batch := range batches {
		for _, snap := range batch {
			if err := enc.Encode(snap); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// initLogger creates a zap logger based on the configuration.
// It outputs to both console (human-readable) and optionally a JSON log file.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// -once and -drain keep stdout for their output.
	out := zapcore.AddSync(os.Stdout)
	if *once || *drain {
		out = zapcore.AddSync(os.Stderr)
	}
	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), out, level)}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			cores = append(cores, zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			))
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
