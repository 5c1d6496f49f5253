package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jittakal/onebrc/internal/encoder"
	"github.com/jittakal/onebrc/pkg/station"
	"github.com/jittakal/onebrc/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Writer = (*FileWriter)(nil)

// FileConfig contains local filesystem configuration.
type FileConfig struct {
	BasePath string
}

// FileWriter implements storage.Writer for local filesystem storage.
// Results land under BasePath in the directory named by the routed path.
type FileWriter struct {
	basePath       string
	format         station.FileFormat
	encoderFactory *encoder.Factory
	logger         *slog.Logger
	metrics        MetricsCollector
	mu             sync.Mutex
	fileSequence   int    // Sequence counter for files created in the same second
	lastTimestamp  string // Last timestamp used for filename generation
}

// NewFileWriter creates a new filesystem storage writer.
func NewFileWriter(
	config FileConfig,
	format station.FileFormat,
	compression string,
	logger *slog.Logger,
	metrics MetricsCollector,
) (*FileWriter, error) {
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	encoderFactory := encoder.NewFactory(format, compression)
	if _, err := encoderFactory.CreateEncoder(); err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	logger.Info("filesystem writer created",
		"base_path", config.BasePath,
		"format", format,
		"compression", compression,
	)

	return &FileWriter{
		basePath:       config.BasePath,
		format:         format,
		encoderFactory: encoderFactory,
		logger:         logger,
		metrics:        metrics,
	}, nil
}

// Write encodes rows into a new file under the routed directory.
func (w *FileWriter) Write(ctx context.Context, rows []station.Summary, path string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	startTime := time.Now()

	fileEncoder, err := w.encoderFactory.CreateEncoder()
	if err != nil {
		return 0, recordFailure(w.metrics, "file", w.format, "encoder_create", path, err)
	}

	cleanPath := strings.TrimPrefix(path, "file://")

	// results_YYYYMMDD_HHMMSS_NNN.{ext}, NNN counting files within one second
	timestamp := startTime.Format("20060102_150405")
	if timestamp == w.lastTimestamp {
		w.fileSequence++
	} else {
		w.fileSequence = 1
		w.lastTimestamp = timestamp
	}
	filename := fmt.Sprintf("results_%s_%03d%s", timestamp, w.fileSequence, fileEncoder.FileExtension())

	dir := filepath.Join(w.basePath, cleanPath)
	fullPath := filepath.Join(dir, filename)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, recordFailure(w.metrics, "file", w.format, "mkdir", dir, err)
	}

	stats, err := fileEncoder.Encode(fullPath, rows)
	if err != nil {
		return 0, recordFailure(w.metrics, "file", w.format, "encode", fullPath, err)
	}

	duration := time.Since(startTime)
	w.logger.Info("wrote results to file",
		"path", fullPath,
		"stations", stats.RecordCount,
		"file_size", stats.SizeBytes,
		"format", w.format,
		"total_duration_ms", duration.Milliseconds(),
	)
	recordSuccess(w.metrics, "file", w.format, stats.SizeBytes, duration)

	return stats.SizeBytes, nil
}

// Close closes the writer.
func (w *FileWriter) Close() error {
	w.logger.Info("closing filesystem writer")
	return nil
}
