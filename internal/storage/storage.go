// Package storage implements the writers that export an aggregation result.
package storage

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jittakal/onebrc/internal/errors"
	"github.com/jittakal/onebrc/pkg/encoder"
	"github.com/jittakal/onebrc/pkg/station"
)

// MetricsCollector defines metrics operations for storage.
type MetricsCollector interface {
	IncResultsWritten(backend, format, status string)
	ObserveResultSize(backend, format string, size float64)
	ObserveStorageWriteDuration(backend string, duration float64)
	IncStorageErrors(backend string, operation string)
}

// resultFileName returns results_YYYYMMDD_HHMMSS_NNN{ext}, NNN being the
// millisecond.
func resultFileName(now time.Time, ext string) string {
	return fmt.Sprintf("results_%s_%03d%s", now.Format("20060102_150405"), now.Nanosecond()/1000000, ext)
}

// objectKey strips "scheme://bucket/" from a routed path, leaving the key
// prefix inside the bucket. Paths without the scheme are returned as is.
func objectKey(path, scheme string) string {
	prefix := scheme + "://"
	if !strings.HasPrefix(path, prefix) {
		return strings.TrimPrefix(path, "/")
	}
	_, key, _ := strings.Cut(strings.TrimPrefix(path, prefix), "/")
	return key
}

// encodeTemp encodes rows into a temporary file and reopens it for upload.
// The returned cleanup closes and removes the file.
func encodeTemp(enc encoder.Encoder, backend string, rows []station.Summary) (*os.File, *station.FileStats, func(), error) {
	tmp, err := os.CreateTemp("", backend+"-upload-*"+enc.FileExtension())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempFile := tmp.Name()
	tmp.Close()

	stats, err := enc.Encode(tempFile, rows)
	if err != nil {
		os.Remove(tempFile)
		return nil, nil, nil, fmt.Errorf("failed to encode rows: %w", err)
	}

	file, err := os.Open(tempFile)
	if err != nil {
		os.Remove(tempFile)
		return nil, nil, nil, fmt.Errorf("failed to open encoded file: %w", err)
	}

	cleanup := func() {
		file.Close()
		os.Remove(tempFile)
	}
	return file, stats, cleanup, nil
}

// recordFailure counts a failed operation and wraps err as a StorageError.
func recordFailure(metrics MetricsCollector, backend string, format station.FileFormat, operation, path string, err error) error {
	if metrics != nil {
		metrics.IncStorageErrors(backend, operation)
		metrics.IncResultsWritten(backend, string(format), "error")
	}
	return &errors.StorageError{Operation: backend + " " + operation, Path: path, Err: err}
}

// recordSuccess reports a completed write.
func recordSuccess(metrics MetricsCollector, backend string, format station.FileFormat, size int64, duration time.Duration) {
	if metrics == nil {
		return
	}
	metrics.IncResultsWritten(backend, string(format), "success")
	metrics.ObserveResultSize(backend, string(format), float64(size))
	metrics.ObserveStorageWriteDuration(backend, duration.Seconds())
}
