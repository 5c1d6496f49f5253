package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/jittakal/onebrc/internal/config/dto"
	"github.com/jittakal/onebrc/internal/errors"
	"github.com/spf13/viper"
)

// DefaultPath is read when neither -config nor CONFIG_PATH names a file.
const DefaultPath = "config/onebrc.yaml"

// Loader handles configuration loading and validation
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BRC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// ResolvePath picks the config file: the flag value, then CONFIG_PATH, then
// DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return DefaultPath
}

// Load loads configuration from file and environment variables. A missing
// file is not an error.
func (l *Loader) Load(path string) (*dto.ApplicationConfig, error) {
	l.setDefaults()

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			if !stderrors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Expand ${VAR} references in string values
	for _, key := range l.v.AllKeys() {
		value := l.v.GetString(key)
		if strings.Contains(value, "${") {
			l.v.Set(key, os.ExpandEnv(value))
		}
	}

	var config dto.ApplicationConfig
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func (l *Loader) setDefaults() {
	// Application defaults
	l.v.SetDefault("application.name", "onebrc")
	l.v.SetDefault("application.version", "1.0.0")
	l.v.SetDefault("application.environment", "development")

	// Input defaults
	l.v.SetDefault("input.path", "")
	l.v.SetDefault("input.source", "pread")

	// Pipeline defaults
	l.v.SetDefault("pipeline.workers", 0)
	l.v.SetDefault("pipeline.buffer_size_kb", 16384)
	l.v.SetDefault("pipeline.buffer_count", 0)
	l.v.SetDefault("pipeline.max_record_length", 107)

	// Aggregate defaults
	l.v.SetDefault("aggregate.table_size", 32768)
	l.v.SetDefault("aggregate.hash", "fingerprint")
	l.v.SetDefault("aggregate.seed", 0)

	// Output defaults
	l.v.SetDefault("output.format", "text")
	l.v.SetDefault("output.compression", "")

	// Storage defaults
	l.v.SetDefault("storage.backend", "stdout")
	l.v.SetDefault("storage.s3.use_path_style", false)
	l.v.SetDefault("storage.s3.sse_enabled", true)

	// Kafka defaults
	l.v.SetDefault("kafka.security_protocol", "PLAINTEXT")
	l.v.SetDefault("kafka.sasl_mechanism", "PLAIN")

	// Observability defaults
	l.v.SetDefault("observability.logging.level", "info")
	l.v.SetDefault("observability.logging.format", "json")
	l.v.SetDefault("observability.logging.output", "stderr")
	l.v.SetDefault("observability.metrics.enabled", false)
	l.v.SetDefault("observability.metrics.port", 9090)
	l.v.SetDefault("observability.metrics.path", "/metrics")
	l.v.SetDefault("observability.health.port", 8080)
	l.v.SetDefault("observability.health.liveness_path", "/health/live")
	l.v.SetDefault("observability.health.readiness_path", "/health/ready")
	l.v.SetDefault("observability.profile.mode", "")
	l.v.SetDefault("observability.profile.path", ".")
}

func invalid(field, format string, args ...any) error {
	return &errors.ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate validates the configuration. Failures are *errors.ConfigError.
func (l *Loader) Validate(config *dto.ApplicationConfig) error {
	switch config.Input.Source {
	case "", "pread", "mmap":
	default:
		return invalid("input.source", "unsupported source: %s", config.Input.Source)
	}

	// Pipeline validation
	p := config.Pipeline
	if p.Workers < 0 {
		return &errors.ConfigError{
			Field:  "pipeline.workers",
			Reason: fmt.Sprintf("must not be negative, got %d", p.Workers),
			Err:    errors.ErrInvalidWorkers,
		}
	}
	if p.BufferSizeKB <= 0 {
		return invalid("pipeline.buffer_size_kb", "must be positive, got %d", p.BufferSizeKB)
	}
	if p.BufferCount < 0 {
		return invalid("pipeline.buffer_count", "must not be negative, got %d", p.BufferCount)
	}
	if p.MaxRecordLength < 0 {
		return invalid("pipeline.max_record_length", "must not be negative, got %d", p.MaxRecordLength)
	}
	if p.BufferSizeKB*1024 < p.MaxRecordLength {
		return &errors.ConfigError{
			Field:  "pipeline.buffer_size_kb",
			Reason: fmt.Sprintf("%d KiB cannot hold a %d byte record", p.BufferSizeKB, p.MaxRecordLength),
			Err:    errors.ErrRecordTooLong,
		}
	}

	// Aggregate validation
	if config.Aggregate.TableSize < 0 {
		return invalid("aggregate.table_size", "must not be negative, got %d", config.Aggregate.TableSize)
	}
	switch config.Aggregate.Hash {
	case "", "fingerprint", "xxhash":
	default:
		return invalid("aggregate.hash", "unsupported hash: %s", config.Aggregate.Hash)
	}

	// Output validation
	switch config.Output.Format {
	case "text", "parquet", "avro":
	default:
		return invalid("output.format", "unsupported format: %s", config.Output.Format)
	}

	// Storage validation
	var err error
	switch config.Storage.Backend {
	case "stdout":
		if config.Output.Format != "text" {
			return invalid("output.format", "stdout backend writes text only, got %s", config.Output.Format)
		}
	case "file":
		err = config.Storage.File.Validate()
	case "s3":
		err = config.Storage.S3.Validate()
	case "gcs":
		err = config.Storage.GCS.Validate()
	case "azure":
		err = config.Storage.Azure.Validate()
	case "kafka":
		err = config.Kafka.Validate()
	default:
		return invalid("storage.backend", "unsupported storage backend: %s", config.Storage.Backend)
	}
	if err != nil {
		return &errors.ConfigError{Field: "storage." + config.Storage.Backend, Reason: "incomplete backend settings", Err: err}
	}

	// Port validation
	if config.Observability.Metrics.Enabled {
		if port := config.Observability.Metrics.Port; port < 1 || port > 65535 {
			return invalid("observability.metrics.port", "invalid port: %d", port)
		}
		if port := config.Observability.Health.Port; port < 1 || port > 65535 {
			return invalid("observability.health.port", "invalid port: %d", port)
		}
	}

	switch config.Observability.Profile.Mode {
	case "", "cpu", "mem", "trace", "block", "mutex":
	default:
		return invalid("observability.profile.mode", "unsupported profile: %s", config.Observability.Profile.Mode)
	}

	return nil
}
