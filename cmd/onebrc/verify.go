package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jittakal/onebrc/internal/encoder"
	"github.com/jittakal/onebrc/internal/reference"
	"github.com/jittakal/onebrc/pkg/station"
)

// verifyReference aggregates src again with the reference implementation and
// reports every station that differs.
func verifyReference(got station.Table, src io.ReaderAt, size int64, logger *slog.Logger) error {
	want, err := reference.Aggregate(io.NewSectionReader(src, 0, size))
	if err != nil {
		return fmt.Errorf("reference aggregation failed: %w", err)
	}

	diffs := got.Diff(want)
	for _, d := range diffs {
		logger.Error("station mismatch", "diff", d)
	}
	if len(diffs) > 0 {
		return fmt.Errorf("%w: %d stations differ from the reference", errMismatch, len(diffs))
	}
	logger.Info("results match the reference", "stations", len(want))
	return nil
}

// verifyExpected compares the text rendering of rows with the file at path,
// ignoring surrounding whitespace.
func verifyExpected(rows []station.Summary, path string, logger *slog.Logger) error {
	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read expected results: %w", err)
	}

	var got bytes.Buffer
	if err := encoder.NewTextEncoder().EncodeTo(&got, rows); err != nil {
		return fmt.Errorf("failed to render results: %w", err)
	}

	if !bytes.Equal(bytes.TrimSpace(got.Bytes()), bytes.TrimSpace(want)) {
		logger.Error("output differs from expected", "expected", path)
		return fmt.Errorf("%w: output differs from %s", errMismatch, path)
	}
	logger.Info("results match the expected output", "expected", path)
	return nil
}
