// Package pipeline aggregates a measurements input with one reader goroutine
// and a fixed set of worker goroutines.
//
// The reader fills preallocated buffers from the input and hands them to the
// workers through a buffer.Pool. Each worker scans its buffers, parses values
// as integer tenths and folds them into a map no other goroutine touches.
// Synchronization happens once per buffer, never per record. When the input
// is exhausted the per-worker maps are merged into one table.
package pipeline

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jittakal/onebrc/internal/aggregate"
	"github.com/jittakal/onebrc/internal/buffer"
	"github.com/jittakal/onebrc/internal/errors"
	"github.com/jittakal/onebrc/pkg/station"
)

// Run aggregates every record of src.
//
// It fails with a ConfigError before reading when cfg cannot run, with an
// IOError when a read fails, with a ParseError on a malformed record and
// with the context's error when ctx is cancelled. The first failure stops
// every goroutine; no partial table is returned.
func Run(ctx context.Context, src io.ReaderAt, cfg Config, opts ...Option) (station.Table, error) {
	o := options{logger: slog.Default(), metrics: noopMetrics{}}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	pool, err := buffer.NewPool(cfg.BufferCount, cfg.BufferSize)
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, pool.Abort)
	defer stop()

	start := time.Now()
	o.progress.start()
	defer o.progress.finish()

	o.logger.Info("starting aggregation",
		"workers", cfg.Workers,
		"buffers", cfg.BufferCount,
		"buffer_size", cfg.BufferSize,
		"table_size", cfg.TableSize)

	// An aborted pool means another goroutine failed or ctx was cancelled;
	// that goroutine's error, or ctx.Err, is the one reported.
	guard := func(fn func() error) func() error {
		return func() error {
			err := fn()
			if stderrors.Is(err, errors.ErrPoolAborted) {
				return nil
			}
			if err != nil {
				pool.Abort()
			}
			return err
		}
	}

	var g errgroup.Group

	workers := make([]*Worker, cfg.Workers)
	for i := range workers {
		w := NewWorker(i, pool, aggregate.New(cfg.TableSize, cfg.Hash), o.logger, o.metrics)
		workers[i] = w
		g.Go(guard(w.Run))
	}

	reader := NewReader(src, pool, cfg.BufferSize, o.logger, o.metrics, o.progress)
	g.Go(guard(func() error { return reader.Run(ctx) }))

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mergeStart := time.Now()
	parts := make([]*aggregate.Map, len(workers))
	for i, w := range workers {
		parts[i] = w.Table()
	}
	final := aggregate.New(cfg.TableSize, cfg.Hash)
	table := Merge(final, parts...)

	o.metrics.RecordRun(time.Since(start), len(table), final.Collisions())
	o.logger.Info("aggregation complete",
		"stations", len(table),
		"collisions", final.Collisions(),
		"merge_duration", time.Since(mergeStart),
		"duration", time.Since(start))
	if final.Collisions() > 0 {
		o.logger.Debug("aggregate table has keys outside their home slot",
			"collisions", final.Collisions(),
			"table_size", cfg.TableSize)
	}

	return table, nil
}
