package encoder

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/jittakal/onebrc/pkg/encoder"
	"github.com/jittakal/onebrc/pkg/station"
	"github.com/linkedin/goavro/v2"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*AvroEncoder)(nil)

// AvroEncoder implements encoder.Encoder for Avro OCF (Object Container
// File) output with optional gzip compression of the whole file.
type AvroEncoder struct {
	codec       *goavro.Codec
	compression string
}

// NewAvroEncoder creates a new Avro encoder with specified compression.
func NewAvroEncoder(compression string) (*AvroEncoder, error) {
	codec, err := goavro.NewCodec(avroSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to create avro codec: %w", err)
	}

	return &AvroEncoder{
		codec:       codec,
		compression: compression,
	}, nil
}

// avroSchema returns the Avro schema for station rows.
func avroSchema() string {
	return `{
		"type": "record",
		"name": "StationSummary",
		"namespace": "com.onebrc.result",
		"fields": [
			{"name": "station", "type": "string"},
			{"name": "min", "type": "double"},
			{"name": "mean", "type": "double"},
			{"name": "max", "type": "double"},
			{"name": "count", "type": "long"},
			{"name": "min_tenths", "type": "long"},
			{"name": "max_tenths", "type": "long"},
			{"name": "sum_tenths", "type": "long"}
		]
	}`
}

func (e *AvroEncoder) gzipped() bool {
	return e.compression == "gzip" || e.compression == "GZIP"
}

// convertToAvroMap converts a summary to its Avro map representation.
func convertToAvroMap(s station.Summary) map[string]interface{} {
	return map[string]interface{}{
		"station":    s.Name,
		"min":        float64(s.Min) / 10,
		"mean":       float64(s.Mean()) / 10,
		"max":        float64(s.Max) / 10,
		"count":      int64(s.Count),
		"min_tenths": s.Min,
		"max_tenths": s.Max,
		"sum_tenths": s.Sum,
	}
}

// EncodeTo writes rows to w as an Avro OCF.
func (e *AvroEncoder) EncodeTo(w io.Writer, rows []station.Summary) error {
	var gzipWriter *gzip.Writer
	if e.gzipped() {
		gzipWriter = gzip.NewWriter(w)
		w = gzipWriter
	}

	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:     w,
		Codec: e.codec,
	})
	if err != nil {
		return fmt.Errorf("failed to create OCF writer: %w", err)
	}

	if len(rows) > 0 {
		batch := make([]interface{}, len(rows))
		for i, row := range rows {
			batch[i] = convertToAvroMap(row)
		}
		if err := ocfWriter.Append(batch); err != nil {
			return fmt.Errorf("failed to write rows: %w", err)
		}
	}

	if gzipWriter != nil {
		if err := gzipWriter.Close(); err != nil {
			return fmt.Errorf("failed to close gzip writer: %w", err)
		}
	}
	return nil
}

// Encode writes rows to an Avro file.
func (e *AvroEncoder) Encode(filePath string, rows []station.Summary) (*station.FileStats, error) {
	return encodeFile(e, filePath, rows)
}

// EncodeToBytes encodes rows to bytes.
func (e *AvroEncoder) EncodeToBytes(rows []station.Summary) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.EncodeTo(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Format returns the file format.
func (e *AvroEncoder) Format() station.FileFormat {
	return station.FormatAvro
}

// FileExtension returns the file extension.
func (e *AvroEncoder) FileExtension() string {
	if e.gzipped() {
		return ".avro.gz"
	}
	return ".avro"
}
