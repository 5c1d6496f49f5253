// Package encoder defines interfaces for encoding station results to various formats.
package encoder

import (
	"io"

	"github.com/jittakal/onebrc/pkg/station"
)

// Encoder encodes station summaries to a specific format.
type Encoder interface {
	// Encode writes rows to a file and returns file statistics.
	Encode(filePath string, rows []station.Summary) (*station.FileStats, error)

	// EncodeTo writes rows to w.
	EncodeTo(w io.Writer, rows []station.Summary) error

	// Format returns the format this encoder produces.
	Format() station.FileFormat

	// FileExtension returns the file extension (e.g., ".parquet", ".avro").
	FileExtension() string
}
