// Package storage defines interfaces for result storage operations.
//
// This package provides abstractions for writing an aggregation result to
// various storage backends (stdout, local filesystem, S3, GCS, Azure Blob,
// Kafka).
package storage

import (
	"context"
	"time"

	"github.com/jittakal/onebrc/pkg/station"
)

// Writer writes station summaries to storage.
type Writer interface {
	// Write writes rows to storage at the specified path.
	// Returns the number of bytes written.
	Write(ctx context.Context, rows []station.Summary, path string) (int64, error)

	// Close closes the writer and releases resources.
	Close() error
}

// Router determines where the result of a run is stored.
type Router interface {
	// Route returns the storage directory for the result of inputName
	// produced at runTime.
	Route(inputName string, runTime time.Time) string
}
