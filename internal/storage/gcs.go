package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/jittakal/onebrc/internal/encoder"
	"github.com/jittakal/onebrc/pkg/station"
	pkgstorage "github.com/jittakal/onebrc/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ pkgstorage.Writer = (*GCSWriter)(nil)

// GCSConfig contains Google Cloud Storage configuration.
type GCSConfig struct {
	Bucket               string
	ProjectID            string
	CredentialsFile      string
	CredentialsJSON      string
	Endpoint             string
	UseDefaultCredential bool
}

// clientOptions picks the endpoint and credential source.
func (c GCSConfig) clientOptions(logger *slog.Logger) []option.ClientOption {
	var opts []option.ClientOption
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}

	switch {
	case c.UseDefaultCredential:
		logger.Info("using default GCP credentials")
	case c.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(c.CredentialsJSON)))
		logger.Info("using GCP credentials from JSON string")
	case c.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
		logger.Info("using GCP credentials from file", "file", c.CredentialsFile)
	default:
		logger.Info("no explicit credentials provided, using default GCP credentials")
	}
	return opts
}

// GCSWriter implements storage.Writer for Google Cloud Storage.
type GCSWriter struct {
	client         *storage.Client
	bucket         string
	format         station.FileFormat
	encoderFactory *encoder.Factory
	logger         *slog.Logger
	metrics        MetricsCollector
	mu             sync.Mutex
}

// NewGCSWriter creates a new Google Cloud Storage writer.
func NewGCSWriter(
	cfg GCSConfig,
	format station.FileFormat,
	compression string,
	logger *slog.Logger,
	metrics MetricsCollector,
) (*GCSWriter, error) {
	client, err := storage.NewClient(context.Background(), cfg.clientOptions(logger)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	encoderFactory := encoder.NewFactory(format, compression)
	if _, err := encoderFactory.CreateEncoder(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	logger.Info("GCS writer created",
		"bucket", cfg.Bucket,
		"project_id", cfg.ProjectID,
		"format", format,
		"compression", compression,
	)

	return &GCSWriter{
		client:         client,
		bucket:         cfg.Bucket,
		format:         format,
		encoderFactory: encoderFactory,
		logger:         logger,
		metrics:        metrics,
	}, nil
}

// contentType returns the object content type for a format.
func contentType(format station.FileFormat) string {
	switch format {
	case station.FormatAvro:
		return "application/avro"
	case station.FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Write uploads rows to GCS under the object prefix of path
// (gs://bucket/prefix/ or prefix/).
func (w *GCSWriter) Write(ctx context.Context, rows []station.Summary, path string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	startTime := time.Now()

	enc, err := w.encoderFactory.CreateEncoder()
	if err != nil {
		return 0, recordFailure(w.metrics, "gcs", w.format, "encoder_create", path, err)
	}

	objectPath := objectKey(path, "gs") + resultFileName(startTime, enc.FileExtension())

	file, stats, cleanup, err := encodeTemp(enc, "gcs", rows)
	if err != nil {
		return 0, recordFailure(w.metrics, "gcs", w.format, "encode", objectPath, err)
	}
	defer cleanup()

	gcsWriter := w.client.Bucket(w.bucket).Object(objectPath).NewWriter(ctx)
	gcsWriter.ContentType = contentType(w.format)

	bytesWritten, err := io.Copy(gcsWriter, file)
	if err != nil {
		gcsWriter.Close()
		return 0, recordFailure(w.metrics, "gcs", w.format, "upload", objectPath, err)
	}

	// Close finalizes the upload
	if err := gcsWriter.Close(); err != nil {
		return 0, recordFailure(w.metrics, "gcs", w.format, "close", objectPath, err)
	}

	duration := time.Since(startTime)
	w.logger.Info("wrote results to GCS",
		"bucket", w.bucket,
		"object", objectPath,
		"stations", stats.RecordCount,
		"bytes_written", bytesWritten,
		"format", w.format,
		"total_duration_ms", duration.Milliseconds(),
	)
	recordSuccess(w.metrics, "gcs", w.format, stats.SizeBytes, duration)

	return stats.SizeBytes, nil
}

// Close closes the GCS writer.
func (w *GCSWriter) Close() error {
	w.logger.Info("closing GCS writer")
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}
