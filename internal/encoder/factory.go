// Package encoder implements encoder factory for creating result encoders.
package encoder

import (
	"fmt"

	"github.com/jittakal/onebrc/pkg/encoder"
	"github.com/jittakal/onebrc/pkg/station"
)

// Factory creates encoders based on format and configuration.
type Factory struct {
	format      station.FileFormat
	compression string
}

// NewFactory creates a new encoder factory. An empty compression selects
// DefaultCompression for the format.
func NewFactory(format station.FileFormat, compression string) *Factory {
	if compression == "" {
		compression = DefaultCompression(format)
	}
	return &Factory{
		format:      format,
		compression: compression,
	}
}

// CreateEncoder creates an encoder based on the configured format.
func (f *Factory) CreateEncoder() (encoder.Encoder, error) {
	switch f.format {
	case station.FormatText:
		return NewTextEncoder(), nil
	case station.FormatParquet:
		return NewParquetEncoder(f.compression), nil
	case station.FormatAvro:
		return NewAvroEncoder(f.compression)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", f.format)
	}
}

// SupportedFormats returns a list of supported file formats.
func SupportedFormats() []station.FileFormat {
	return []station.FileFormat{
		station.FormatText,
		station.FormatParquet,
		station.FormatAvro,
	}
}

// SupportedCompressions returns supported compression codecs for a given format.
func SupportedCompressions(format station.FileFormat) []string {
	switch format {
	case station.FormatText:
		return []string{"uncompressed"}
	case station.FormatParquet:
		return []string{"uncompressed", "snappy", "gzip", "lz4", "zstd"}
	case station.FormatAvro:
		return []string{"uncompressed", "gzip"}
	default:
		return []string{}
	}
}

// DefaultCompression returns the default compression for a format.
func DefaultCompression(format station.FileFormat) string {
	switch format {
	case station.FormatParquet:
		return "snappy"
	case station.FormatAvro:
		return "gzip"
	default:
		return "uncompressed"
	}
}
