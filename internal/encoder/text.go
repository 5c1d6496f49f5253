package encoder

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/jittakal/onebrc/pkg/encoder"
	"github.com/jittakal/onebrc/pkg/station"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*TextEncoder)(nil)

// TextEncoder renders the canonical one-line result:
//
//	{Abha=-23.0/18.0/59.2, Abidjan=-16.2/26.0/67.3, ...}
//
// Rows are written in the order given; callers pass station.Table.Sorted.
type TextEncoder struct{}

// NewTextEncoder creates a text encoder.
func NewTextEncoder() *TextEncoder {
	return &TextEncoder{}
}

// EncodeTo writes rows to w followed by a newline.
func (e *TextEncoder) EncodeTo(w io.Writer, rows []station.Summary) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 128)

	buf = append(buf, '{')
	for i, row := range rows {
		if i > 0 {
			buf = append(buf, ", "...)
		}
		buf = row.AppendText(buf)
		if len(buf) >= 4096 {
			if _, err := bw.Write(buf); err != nil {
				return fmt.Errorf("failed to write results: %w", err)
			}
			buf = buf[:0]
		}
	}
	buf = append(buf, '}', '\n')

	if _, err := bw.Write(buf); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush results: %w", err)
	}
	return nil
}

// Encode writes rows to a text file.
func (e *TextEncoder) Encode(filePath string, rows []station.Summary) (*station.FileStats, error) {
	return encodeFile(e, filePath, rows)
}

// Format returns the file format.
func (e *TextEncoder) Format() station.FileFormat {
	return station.FormatText
}

// FileExtension returns the file extension.
func (e *TextEncoder) FileExtension() string {
	return ".txt"
}

// encodeFile creates filePath, encodes rows into it and reports its size.
func encodeFile(enc encoder.Encoder, filePath string, rows []station.Summary) (*station.FileStats, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	if err := enc.EncodeTo(file, rows); err != nil {
		file.Close()
		return nil, err
	}

	// Close file before getting stats to ensure all data is flushed
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &station.FileStats{
		RecordCount: len(rows),
		SizeBytes:   fileInfo.Size(),
	}, nil
}
