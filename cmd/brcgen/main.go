package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jittakal/onebrc/internal/generator"
	"github.com/jittakal/onebrc/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		log.Fatalf("application error: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("brcgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	rows := fs.Int64("rows", 1_000_000, "number of measurement lines")
	stations := fs.Int("stations", 413, "number of distinct stations")
	seed := fs.Int64("seed", 0, "random seed")
	out := fs.String("out", "measurements.txt", `output file, "-" for stdout`)
	logLevel := fs.String("log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := observability.NewLoggerWithWriter(observability.LoggingConfig{
		Level:  *logLevel,
		Format: "text",
	}, stderr)

	g, err := generator.NewGenerator(generator.Config{
		Rows:     *rows,
		Stations: *stations,
		Seed:     *seed,
	}, logger)
	if err != nil {
		return err
	}

	if *out == "-" {
		_, err := g.WriteTo(ctx, stdout)
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if _, err := g.WriteTo(ctx, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	logger.Info("measurements written", "path", *out)
	return nil
}
