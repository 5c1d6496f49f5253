// Package encoder renders an aggregation result in one of several formats.
//
// # Supported Formats
//
//   - Text: the canonical one-line {name=min/mean/max, ...} rendering
//   - Parquet: one row per station, for analytics engines
//   - Avro: OCF with an embedded schema, optionally gzip compressed
//
// # Encoder Factory
//
//	factory := encoder.NewFactory(station.FormatParquet, "snappy")
//	enc, err := factory.CreateEncoder()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Encoding Rows
//
// All encoders implement pkg/encoder.Encoder. Rows are written in the order
// given, so pass station.Table.Sorted for the canonical ordering:
//
//	stats, err := enc.Encode(filePath, table.Sorted())
//	err = enc.EncodeTo(os.Stdout, table.Sorted())
//
// # Parquet and Avro Schema
//
// Each station becomes one row with min, mean and max in degrees plus the
// exact integer columns count, min_tenths, max_tenths and sum_tenths, from
// which any consumer can recompute the mean without floating point error.
//
// # Compression Options
//
//	Parquet: "snappy" (default), "gzip", "lz4", "zstd", "uncompressed"
//	Avro:    "gzip" (default), "uncompressed"
//	Text:    "uncompressed"
package encoder
