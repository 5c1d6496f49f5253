package pipeline

import (
	"log/slog"
	"time"

	"github.com/jittakal/onebrc/internal/aggregate"
	"github.com/jittakal/onebrc/internal/buffer"
	"github.com/jittakal/onebrc/internal/errors"
	"github.com/jittakal/onebrc/internal/fixedpoint"
	"github.com/jittakal/onebrc/internal/scanner"
)

// Worker aggregates filled buffers into a map only it touches.
type Worker struct {
	id      int
	pool    *buffer.Pool
	table   *aggregate.Map
	scanner scanner.Scanner
	metrics MetricsCollector
	logger  *slog.Logger

	buffers int
	records int
}

// NewWorker creates a worker that aggregates into table.
func NewWorker(id int, pool *buffer.Pool, table *aggregate.Map, logger *slog.Logger, metrics MetricsCollector) *Worker {
	return &Worker{
		id:      id,
		pool:    pool,
		table:   table,
		metrics: metrics,
		logger:  logger,
	}
}

// Table returns the worker's map. It must not be read while Run is active.
func (w *Worker) Table() *aggregate.Map { return w.table }

// Run processes buffers until the pool is drained or aborted. A malformed
// record stops the worker with a ParseError.
func (w *Worker) Run() error {
	for {
		waitStart := time.Now()
		b, ok := w.pool.AcquireFilled()
		w.metrics.RecordWorkerWait(time.Since(waitStart))
		if !ok {
			break
		}

		n, err := w.process(b)
		w.pool.ReleaseFree(b)
		w.buffers++
		w.records += n
		w.metrics.RecordRecordsProcessed(n)
		if err != nil {
			return err
		}
	}

	w.logger.Debug("worker finished",
		"worker", w.id,
		"buffers", w.buffers,
		"records", w.records,
		"stations", w.table.Len())
	return nil
}

func (w *Worker) process(b *buffer.Buffer) (int, error) {
	s := &w.scanner
	s.Reset(b.Records(), b.Offset())

	n := 0
	for s.Next() {
		v, err := fixedpoint.Parse(s.Value())
		if err != nil {
			return n, errors.NewParseError(s.Offset(), s.Line(), err)
		}
		w.table.Upsert(s.Key(), v)
		n++
	}
	return n, s.Err()
}
