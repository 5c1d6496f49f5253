package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jittakal/onebrc/internal/encoder"
	"github.com/jittakal/onebrc/internal/errors"
	"github.com/jittakal/onebrc/pkg/station"
	"github.com/jittakal/onebrc/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Writer = (*StreamWriter)(nil)

// StreamWriter implements storage.Writer by rendering the text result to a
// stream, normally os.Stdout. The routed path is ignored.
type StreamWriter struct {
	out     io.Writer
	enc     *encoder.TextEncoder
	logger  *slog.Logger
	metrics MetricsCollector
	mu      sync.Mutex
	closed  bool
}

// NewStreamWriter creates a writer that renders results to out.
func NewStreamWriter(out io.Writer, logger *slog.Logger, metrics MetricsCollector) *StreamWriter {
	return &StreamWriter{
		out:     out,
		enc:     encoder.NewTextEncoder(),
		logger:  logger,
		metrics: metrics,
	}
}

// Write renders rows as one line.
func (w *StreamWriter) Write(ctx context.Context, rows []station.Summary, path string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, errors.ErrWriterClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	startTime := time.Now()

	var buf bytes.Buffer
	if err := w.enc.EncodeTo(&buf, rows); err != nil {
		return 0, recordFailure(w.metrics, "stdout", station.FormatText, "encode", path, err)
	}
	n, err := w.out.Write(buf.Bytes())
	if err != nil {
		return int64(n), recordFailure(w.metrics, "stdout", station.FormatText, "write", path, err)
	}

	duration := time.Since(startTime)
	w.logger.Debug("wrote results to stream", "stations", len(rows), "bytes", n)
	recordSuccess(w.metrics, "stdout", station.FormatText, int64(n), duration)

	return int64(n), nil
}

// Close marks the writer closed. The stream itself is left open.
func (w *StreamWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}
