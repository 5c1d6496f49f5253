package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jittakal/onebrc/internal/aggregate"
	"github.com/jittakal/onebrc/internal/errors"
)

const (
	// DefaultMaxRecordLength is the longest line of a well-formed input:
	// a 100 byte name, ';', "-99.9" and '\n'.
	DefaultMaxRecordLength = 107

	// DefaultTableSize fits a few thousand stations without growing.
	DefaultTableSize = 32768
)

// Config sizes a run.
type Config struct {
	// Workers is the number of parsing goroutines. It must be positive.
	Workers int

	// BufferSize is the capacity of each buffer in bytes.
	BufferSize int

	// BufferCount is the number of buffers; 0 means two per worker.
	BufferCount int

	// MaxRecordLength is the longest line the input may hold, newline
	// included. 0 disables the check.
	MaxRecordLength int

	// TableSize is the initial slot count of each aggregate map.
	TableSize int

	// Hash keys the aggregate maps; nil means Fingerprint with seed 0.
	Hash aggregate.HashFunc
}

// Validate reports a configuration that cannot run.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return &errors.ConfigError{
			Field:  "pipeline.workers",
			Reason: fmt.Sprintf("got %d", c.Workers),
			Err:    errors.ErrInvalidWorkers,
		}
	}
	if c.BufferSize <= 0 {
		return &errors.ConfigError{Field: "pipeline.buffer_size_kb", Reason: fmt.Sprintf("must be positive, got %d bytes", c.BufferSize)}
	}
	if c.BufferCount < 0 {
		return &errors.ConfigError{Field: "pipeline.buffer_count", Reason: fmt.Sprintf("must not be negative, got %d", c.BufferCount)}
	}
	if c.MaxRecordLength > 0 && c.BufferSize < c.MaxRecordLength {
		return &errors.ConfigError{
			Field:  "pipeline.buffer_size_kb",
			Reason: fmt.Sprintf("buffer of %d bytes is smaller than the longest record (%d bytes)", c.BufferSize, c.MaxRecordLength),
			Err:    errors.ErrRecordTooLong,
		}
	}
	if c.TableSize < 0 {
		return &errors.ConfigError{Field: "aggregate.table_size", Reason: fmt.Sprintf("must not be negative, got %d", c.TableSize)}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.BufferCount == 0 {
		c.BufferCount = c.Workers * 2
	}
	if c.TableSize == 0 {
		c.TableSize = DefaultTableSize
	}
	if c.Hash == nil {
		c.Hash = aggregate.Fingerprint(0)
	}
	return c
}

// MetricsCollector receives pipeline measurements. Calls happen once per
// buffer, never per record.
type MetricsCollector interface {
	RecordBytesRead(n int)
	RecordBufferPublished()
	RecordRecordsProcessed(n int)
	RecordReaderWait(d time.Duration)
	RecordWorkerWait(d time.Duration)
	RecordRun(d time.Duration, stations, collisions int)
}

type noopMetrics struct{}

func (noopMetrics) RecordBytesRead(int)               {}
func (noopMetrics) RecordBufferPublished()            {}
func (noopMetrics) RecordRecordsProcessed(int)        {}
func (noopMetrics) RecordReaderWait(time.Duration)    {}
func (noopMetrics) RecordWorkerWait(time.Duration)    {}
func (noopMetrics) RecordRun(time.Duration, int, int) {}

type options struct {
	logger   *slog.Logger
	metrics  MetricsCollector
	progress *Progress
}

// Option customizes Run.
type Option func(*options)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) { o.metrics = m }
}

// WithProgress makes Run report bytes read to p.
func WithProgress(p *Progress) Option {
	return func(o *options) { o.progress = p }
}
