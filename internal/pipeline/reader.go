package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jittakal/onebrc/internal/buffer"
	"github.com/jittakal/onebrc/internal/errors"
)

// Reader fills buffers from src with positioned reads. Each published
// buffer ends on a record boundary; the bytes of a record cut by the end of
// a buffer are carried to the front of the next one.
type Reader struct {
	src      io.ReaderAt
	pool     *buffer.Pool
	carry    []byte
	metrics  MetricsCollector
	progress *Progress
	logger   *slog.Logger

	bytesRead int64
	published int
}

// NewReader creates a reader over src. carryCap should be the buffer capacity.
func NewReader(src io.ReaderAt, pool *buffer.Pool, carryCap int, logger *slog.Logger, metrics MetricsCollector, progress *Progress) *Reader {
	return &Reader{
		src:      src,
		pool:     pool,
		carry:    make([]byte, 0, carryCap),
		metrics:  metrics,
		progress: progress,
		logger:   logger,
	}
}

// readAt fills p from off until p is full or the source ends.
func readAt(src io.ReaderAt, p []byte, off int64) (int, error) {
	n := 0
	for n < len(p) {
		m, err := src.ReadAt(p[n:], off+int64(n))
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, io.ErrNoProgress
		}
	}
	return n, nil
}

// Run reads src to the end and marks the pool finished. A non-empty last
// line without a newline is published as a record.
func (r *Reader) Run(ctx context.Context) error {
	var offset int64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		waitStart := time.Now()
		b, err := r.pool.AcquireFree()
		r.metrics.RecordReaderWait(time.Since(waitStart))
		if err != nil {
			return err
		}

		b.Reset(offset - int64(len(r.carry)))
		b.Append(r.carry)
		r.carry = r.carry[:0]

		n, err := readAt(r.src, b.Free(), offset)
		b.Grow(n)
		offset += int64(n)
		r.bytesRead += int64(n)
		r.metrics.RecordBytesRead(n)
		r.progress.add(n)

		eof := err == io.EOF
		if err != nil && !eof {
			r.pool.ReleaseFree(b)
			return &errors.IOError{Op: "pread", Offset: offset, Err: err}
		}

		if eof {
			if len(b.Filled()) == 0 {
				r.pool.ReleaseFree(b)
				break
			}
			b.SetEnd(len(b.Filled()))
			if err := r.publish(b); err != nil {
				return err
			}
			break
		}

		end := bytes.LastIndexByte(b.Filled(), '\n') + 1
		if end == 0 {
			r.pool.ReleaseFree(b)
			return &errors.ConfigError{
				Field:  "pipeline.buffer_size_kb",
				Reason: fmt.Sprintf("record at offset %d is longer than the %d byte buffer", b.Offset(), b.Cap()),
				Err:    errors.ErrRecordTooLong,
			}
		}
		b.SetEnd(end)
		r.carry = append(r.carry, b.Remainder()...)

		if err := r.publish(b); err != nil {
			return err
		}
	}

	r.pool.MarkFinished()
	r.logger.Info("reader finished",
		"bytes", r.bytesRead,
		"buffers", r.published)
	return nil
}

func (r *Reader) publish(b *buffer.Buffer) error {
	if err := r.pool.PublishFilled(b); err != nil {
		return err
	}
	r.published++
	r.metrics.RecordBufferPublished()
	return nil
}
