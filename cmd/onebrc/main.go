package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jittakal/onebrc/internal/config"
	"github.com/jittakal/onebrc/internal/config/dto"
	"github.com/jittakal/onebrc/internal/observability"
	"github.com/jittakal/onebrc/internal/pipeline"
	"github.com/jittakal/onebrc/internal/server"
	"github.com/jittakal/onebrc/internal/source"
	"github.com/jittakal/onebrc/internal/storage"
	"github.com/jittakal/onebrc/internal/validator"
)

// errMismatch reports a verification failure; main exits with status 2.
var errMismatch = stderrors.New("results do not match")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		if stderrors.Is(err, errMismatch) {
			fmt.Fprintf(os.Stderr, "onebrc: %v\n", err)
			os.Exit(2)
		}
		log.Fatalf("application error: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("onebrc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	verify := fs.Bool("verify", false, "re-aggregate with the reference implementation and compare")
	expected := fs.String("expected", "", "compare text output with an expected results file")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: onebrc [flags] [measurements-file]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Priority: CLI flag > CONFIG_PATH env var > default path
	cfg, err := config.NewLoader().Load(config.ResolvePath(*configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	inputPath := cfg.Input.Path
	if fs.NArg() > 0 {
		inputPath = fs.Arg(0)
	}
	if inputPath == "" {
		fs.Usage()
		return fmt.Errorf("no measurements file given")
	}

	logger := newLogger(cfg.Observability.Logging, stderr)
	logger.Info("starting onebrc",
		"version", cfg.Application.Version,
		"environment", cfg.Application.Environment,
		"input", inputPath,
	)

	if p := profileOption(cfg.Observability.Profile.Mode); p != nil {
		defer profile.Start(p, profile.ProfilePath(cfg.Observability.Profile.Path), profile.Quiet, profile.NoShutdownHook).Stop()
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Track cleanup functions
	var cleanupFuncs []func() error
	addCleanup := func(name string, fn func() error) {
		cleanupFuncs = append(cleanupFuncs, fn)
		logger.Debug("registered cleanup", "component", name)
	}
	defer func() {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			if err := cleanupFuncs[i](); err != nil {
				logger.Error("cleanup failed", "error", err)
			}
		}
	}()

	pc, err := config.PipelineConfig(cfg)
	if err != nil {
		return err
	}

	src, err := source.Open(inputPath, source.Kind(cfg.Input.Source))
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	addCleanup("source", src.Close)

	progress := pipeline.NewProgress(src.Size())

	if cfg.Observability.Metrics.Enabled {
		httpServer := server.NewServer(server.Config{
			HealthPort:    cfg.Observability.Health.Port,
			MetricsPort:   cfg.Observability.Metrics.Port,
			MetricsPath:   cfg.Observability.Metrics.Path,
			LivenessPath:  cfg.Observability.Health.LivenessPath,
			ReadinessPath: cfg.Observability.Health.ReadinessPath,
		}, server.NewProgressChecker(progress), registry, logger)

		if err := httpServer.Start(); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		addCleanup("http-server", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(ctx)
		})
	}

	table, err := pipeline.Run(ctx, src, pc,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(metrics),
		pipeline.WithProgress(progress),
	)
	if err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}

	rows := table.Sorted()
	if err := validator.ValidateRows(validator.NewSummaryValidator(), rows); err != nil {
		return err
	}

	writer, err := newWriter(cfg, stdout, logger, metrics)
	if err != nil {
		return err
	}
	addCleanup("storage-writer", writer.Close)

	router := storage.NewRouter(getStorageProtocol(cfg.Storage.Backend), getStorageBucket(cfg), getStorageBasePath(cfg))
	path := router.Route(storage.InputName(inputPath), time.Now())

	n, err := writer.Write(ctx, rows, path)
	if err != nil {
		return fmt.Errorf("failed to export results: %w", err)
	}
	logger.Info("results exported",
		"backend", cfg.Storage.Backend,
		"stations", len(rows),
		"records", table.Records(),
		"bytes", n,
		"path", path,
	)

	if *verify {
		if err := verifyReference(table, src, src.Size(), logger); err != nil {
			return err
		}
	}
	if *expected != "" {
		if err := verifyExpected(rows, *expected, logger); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(cfg dto.LoggingConfig, stderr io.Writer) *slog.Logger {
	lc := observability.LoggingConfig{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: cfg.Output,
	}
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		return observability.NewLoggerWithWriter(lc, stderr)
	}
	return observability.NewLogger(lc)
}

func profileOption(mode string) func(*profile.Profile) {
	switch mode {
	case "cpu":
		return profile.CPUProfile
	case "mem":
		return profile.MemProfile
	case "trace":
		return profile.TraceProfile
	case "block":
		return profile.BlockProfile
	case "mutex":
		return profile.MutexProfile
	default:
		return nil
	}
}
