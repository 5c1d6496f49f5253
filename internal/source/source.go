// Package source opens measurement files for positioned reads.
package source

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/mmap"
)

// Kind selects how the input is read.
type Kind string

const (
	// KindPread reads with pread(2) on an open file.
	KindPread Kind = "pread"
	// KindMmap maps the whole file into memory.
	KindMmap Kind = "mmap"
)

// Source is an open input.
type Source struct {
	io.ReaderAt
	size   int64
	closer io.Closer
	kind   Kind
}

// Size returns the input length in bytes.
func (s *Source) Size() int64 { return s.size }

// Kind returns how the input is read.
func (s *Source) Kind() Kind { return s.kind }

// Close releases the file or mapping.
func (s *Source) Close() error { return s.closer.Close() }

// Open opens path for reading with the given kind.
func Open(path string, kind Kind) (*Source, error) {
	switch kind {
	case KindPread, "":
		return openFile(path)
	case KindMmap:
		return openMmap(path)
	default:
		return nil, fmt.Errorf("unknown input source: %s", kind)
	}
}

func openFile(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("input %s is a directory", path)
	}
	if err := adviseSequential(f, info.Size()); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to advise kernel: %w", err)
	}
	return &Source{ReaderAt: f, size: info.Size(), closer: f, kind: KindPread}, nil
}

func openMmap(path string) (*Source, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to map input: %w", err)
	}
	return &Source{ReaderAt: r, size: int64(r.Len()), closer: r, kind: KindMmap}, nil
}
