package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jittakal/onebrc/internal/config/dto"
	"github.com/jittakal/onebrc/internal/kafka"
	"github.com/jittakal/onebrc/internal/observability"
	"github.com/jittakal/onebrc/internal/storage"
	"github.com/jittakal/onebrc/pkg/station"
	pkgstorage "github.com/jittakal/onebrc/pkg/storage"
)

// newWriter creates the storage writer for the configured backend.
func newWriter(cfg *dto.ApplicationConfig, stdout io.Writer, logger *slog.Logger, metrics *observability.Metrics) (pkgstorage.Writer, error) {
	format := station.FileFormat(cfg.Output.Format)
	compression := cfg.Output.Compression

	switch cfg.Storage.Backend {
	case "stdout":
		return storage.NewStreamWriter(stdout, logger, metrics), nil
	case "file":
		fileConfig := storage.FileConfig{
			BasePath: cfg.Storage.File.BasePath,
		}
		writer, err := storage.NewFileWriter(fileConfig, format, compression, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create filesystem writer: %w", err)
		}
		return writer, nil
	case "s3":
		s3Config := storage.S3Config{
			Bucket:       cfg.Storage.S3.Bucket,
			Region:       cfg.Storage.S3.Region,
			Endpoint:     cfg.Storage.S3.Endpoint,
			UsePathStyle: cfg.Storage.S3.UsePathStyle,
			SSEEnabled:   cfg.Storage.S3.SSEEnabled,
			SSEKMSKeyID:  cfg.Storage.S3.SSEKMSKeyID,
		}
		writer, err := storage.NewS3Writer(s3Config, format, compression, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 writer: %w", err)
		}
		return writer, nil
	case "azure":
		azureConfig := storage.AzureConfig{
			AccountName:   cfg.Storage.Azure.AccountName,
			AccountKey:    os.Getenv("AZURE_STORAGE_ACCOUNT_KEY"),
			ContainerName: cfg.Storage.Azure.Container,
			Endpoint:      cfg.Storage.Azure.Endpoint,
		}
		writer, err := storage.NewAzureWriter(azureConfig, format, compression, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Blob writer: %w", err)
		}
		return writer, nil
	case "gcs":
		gcsConfig := storage.GCSConfig{
			Bucket:               cfg.Storage.GCS.Bucket,
			ProjectID:            cfg.Storage.GCS.ProjectID,
			CredentialsFile:      cfg.Storage.GCS.CredentialsFile,
			CredentialsJSON:      gcsCredentialsJSON(cfg.Storage.GCS),
			Endpoint:             cfg.Storage.GCS.Endpoint,
			UseDefaultCredential: cfg.Storage.GCS.UseDefaultCredential,
		}
		writer, err := storage.NewGCSWriter(gcsConfig, format, compression, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS writer: %w", err)
		}
		return writer, nil
	case "kafka":
		publisherConfig := kafka.PublisherConfig{
			BootstrapServers: cfg.Kafka.BootstrapServers,
			Topic:            cfg.Kafka.Topic,
			Source:           cfg.Application.Name,
			Security: kafka.SecurityConfig{
				SecurityProtocol: cfg.Kafka.SecurityProtocol,
				SASLMechanism:    cfg.Kafka.SASLMechanism,
				SASLUsername:     cfg.Kafka.SASLUsername,
				SASLPassword:     cfg.Kafka.SASLPassword,
				AWSRegion:        cfg.Kafka.AWSRegion,
			},
		}
		writer, err := kafka.NewResultPublisher(publisherConfig, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create result publisher: %w", err)
		}
		return writer, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (supported: stdout, file, s3, azure, gcs, kafka)", cfg.Storage.Backend)
	}
}

// gcsCredentialsJSON prefers the config value over GCP_CREDENTIALS_JSON.
func gcsCredentialsJSON(cfg dto.GCSConfig) string {
	if cfg.CredentialsJSON != "" {
		return cfg.CredentialsJSON
	}
	return os.Getenv("GCP_CREDENTIALS_JSON")
}

func getStorageProtocol(backend string) string {
	switch backend {
	case "s3":
		return "s3"
	case "azure":
		return "wasbs"
	case "gcs":
		return "gs"
	case "kafka":
		return "kafka"
	default:
		return "file"
	}
}

func getStorageBucket(cfg *dto.ApplicationConfig) string {
	switch cfg.Storage.Backend {
	case "s3":
		return cfg.Storage.S3.Bucket
	case "azure":
		return cfg.Storage.Azure.Container
	case "gcs":
		return cfg.Storage.GCS.Bucket
	case "kafka":
		return cfg.Kafka.Topic
	default:
		return "" // File backend uses basePath only, no bucket
	}
}

func getStorageBasePath(cfg *dto.ApplicationConfig) string {
	switch cfg.Storage.Backend {
	case "s3":
		return cfg.Storage.S3.BasePath
	case "gcs":
		return cfg.Storage.GCS.BasePath
	case "azure":
		return cfg.Storage.Azure.BasePath
	default:
		return "" // File backend: basePath is handled by FileWriter
	}
}
