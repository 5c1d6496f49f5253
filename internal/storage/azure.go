package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/jittakal/onebrc/internal/encoder"
	"github.com/jittakal/onebrc/pkg/station"
	"github.com/jittakal/onebrc/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Writer = (*AzureWriter)(nil)

// AzureConfig contains Azure Blob Storage configuration.
type AzureConfig struct {
	AccountName   string
	AccountKey    string
	ContainerName string
	Endpoint      string
}

// connectionString builds a shared key connection string. Endpoint, when
// set, replaces the public blob endpoint (Azurite, sovereign clouds).
func (c AzureConfig) connectionString() string {
	if c.Endpoint != "" {
		return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;BlobEndpoint=%s",
			c.AccountName, c.AccountKey, c.Endpoint)
	}
	return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;EndpointSuffix=core.windows.net",
		c.AccountName, c.AccountKey)
}

// AzureWriter implements storage.Writer for Azure Blob Storage.
type AzureWriter struct {
	client         *azblob.Client
	containerName  string
	format         station.FileFormat
	encoderFactory *encoder.Factory
	logger         *slog.Logger
	metrics        MetricsCollector
	mu             sync.Mutex
}

// NewAzureWriter creates a new Azure Blob storage writer.
func NewAzureWriter(
	cfg AzureConfig,
	format station.FileFormat,
	compression string,
	logger *slog.Logger,
	metrics MetricsCollector,
) (*AzureWriter, error) {
	client, err := azblob.NewClientFromConnectionString(cfg.connectionString(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	encoderFactory := encoder.NewFactory(format, compression)
	if _, err := encoderFactory.CreateEncoder(); err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	logger.Info("Azure writer created",
		"container", cfg.ContainerName,
		"account", cfg.AccountName,
		"format", format,
		"compression", compression,
	)

	return &AzureWriter{
		client:         client,
		containerName:  cfg.ContainerName,
		format:         format,
		encoderFactory: encoderFactory,
		logger:         logger,
		metrics:        metrics,
	}, nil
}

// Write uploads rows to Azure Blob Storage under the blob prefix of path
// (wasbs://container/prefix/ or prefix/).
func (w *AzureWriter) Write(ctx context.Context, rows []station.Summary, path string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	startTime := time.Now()

	enc, err := w.encoderFactory.CreateEncoder()
	if err != nil {
		return 0, recordFailure(w.metrics, "azure", w.format, "encoder_create", path, err)
	}

	blobPath := objectKey(path, "wasbs") + resultFileName(startTime, enc.FileExtension())

	file, stats, cleanup, err := encodeTemp(enc, "azure", rows)
	if err != nil {
		return 0, recordFailure(w.metrics, "azure", w.format, "encode", blobPath, err)
	}
	defer cleanup()

	if _, err := w.client.UploadFile(ctx, w.containerName, blobPath, file, nil); err != nil {
		return 0, recordFailure(w.metrics, "azure", w.format, "upload", blobPath, err)
	}

	duration := time.Since(startTime)
	w.logger.Info("wrote results to Azure Blob",
		"container", w.containerName,
		"blob", blobPath,
		"stations", stats.RecordCount,
		"file_size", stats.SizeBytes,
		"format", w.format,
		"total_duration_ms", duration.Milliseconds(),
	)
	recordSuccess(w.metrics, "azure", w.format, stats.SizeBytes, duration)

	return stats.SizeBytes, nil
}

// Close closes the Azure writer.
func (w *AzureWriter) Close() error {
	w.logger.Info("Azure writer closed")
	return nil
}
