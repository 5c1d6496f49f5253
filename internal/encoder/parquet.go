package encoder

import (
	"fmt"
	"io"

	"github.com/jittakal/onebrc/pkg/encoder"
	"github.com/jittakal/onebrc/pkg/station"
	"github.com/parquet-go/parquet-go"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*ParquetEncoder)(nil)

// StationParquet is the Parquet row of one station. Temperatures are
// written both as degrees and as exact tenths.
type StationParquet struct {
	Station   string  `parquet:"station,dict"`
	Min       float64 `parquet:"min"`
	Mean      float64 `parquet:"mean"`
	Max       float64 `parquet:"max"`
	Count     int64   `parquet:"count"`
	MinTenths int64   `parquet:"min_tenths"`
	MaxTenths int64   `parquet:"max_tenths"`
	SumTenths int64   `parquet:"sum_tenths"`
}

// ParquetEncoder implements encoder.Encoder for Apache Parquet columnar format.
// Supports SNAPPY (default), GZIP, LZ4 and ZSTD compression.
type ParquetEncoder struct {
	compressionName string
}

// NewParquetEncoder creates a new Parquet encoder with specified compression.
func NewParquetEncoder(compression string) *ParquetEncoder {
	return &ParquetEncoder{
		compressionName: compression,
	}
}

// compressionCodec converts string compression name to parquet WriterOption.
func compressionCodec(compression string) parquet.WriterOption {
	switch compression {
	case "snappy", "SNAPPY":
		return parquet.Compression(&parquet.Snappy)
	case "gzip", "GZIP":
		return parquet.Compression(&parquet.Gzip)
	case "lz4", "LZ4":
		return parquet.Compression(&parquet.Lz4Raw)
	case "zstd", "ZSTD":
		return parquet.Compression(&parquet.Zstd)
	case "uncompressed", "UNCOMPRESSED", "none", "NONE":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Snappy)
	}
}

// toParquet converts a summary to its Parquet row.
func toParquet(s station.Summary) StationParquet {
	return StationParquet{
		Station:   s.Name,
		Min:       float64(s.Min) / 10,
		Mean:      float64(s.Mean()) / 10,
		Max:       float64(s.Max) / 10,
		Count:     int64(s.Count),
		MinTenths: s.Min,
		MaxTenths: s.Max,
		SumTenths: s.Sum,
	}
}

// EncodeTo writes rows to w as a Parquet file.
func (e *ParquetEncoder) EncodeTo(w io.Writer, rows []station.Summary) error {
	parquetRows := make([]StationParquet, len(rows))
	for i, row := range rows {
		parquetRows[i] = toParquet(row)
	}

	writer := parquet.NewGenericWriter[StationParquet](
		w,
		parquet.SchemaOf(new(StationParquet)),
		compressionCodec(e.compressionName),
		parquet.CreatedBy("onebrc", "1.0", "0"),
	)

	if _, err := writer.Write(parquetRows); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write rows: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

// Encode writes rows to a Parquet file.
func (e *ParquetEncoder) Encode(filePath string, rows []station.Summary) (*station.FileStats, error) {
	return encodeFile(e, filePath, rows)
}

// Format returns the file format.
func (e *ParquetEncoder) Format() station.FileFormat {
	return station.FormatParquet
}

// FileExtension returns the file extension.
func (e *ParquetEncoder) FileExtension() string {
	return ".parquet"
}
