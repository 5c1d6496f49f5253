// Package scanner splits a block of "key;value\n" records into key and value
// slices without copying.
//
// Delimiters are located eight bytes at a time: each little-endian word is
// compared against ';' and '\n' in every lane at once and the lowest
// matching lane gives the next delimiter. The tail shorter than a word is
// scanned byte by byte.
package scanner

import (
	"bytes"
	"encoding/binary"
	"iter"
	"math/bits"

	"github.com/jittakal/onebrc/internal/errors"
)

const (
	lo = 0x0101010101010101
	hi = 0x8080808080808080

	semicolons = ';' * lo
	newlines   = '\n' * lo
)

// zeroLanes sets the high bit of the lowest zero byte of x. Bits above the
// lowest zero byte may be set spuriously, so only the lowest set bit is
// meaningful.
func zeroLanes(x uint64) uint64 {
	return (x - lo) &^ x & hi
}

func delimiters(w uint64) uint64 {
	return zeroLanes(w^semicolons) | zeroLanes(w^newlines)
}

// Scanner iterates the records of one buffer. A Scanner holds no heap state
// beyond the slice it was given; scanning again means calling New again.
type Scanner struct {
	buf   []byte
	base  int64
	pos   int
	start int
	key   []byte
	value []byte
	err   error
}

// New returns a Scanner over buf. base is the input offset of buf[0] and is
// only used to position errors. A final record without a trailing newline
// runs to the end of buf.
func New(buf []byte, base int64) *Scanner {
	return &Scanner{buf: buf, base: base}
}

// Reset rewinds s onto a new buffer so a worker can reuse one Scanner.
func (s *Scanner) Reset(buf []byte, base int64) {
	*s = Scanner{buf: buf, base: base}
}

func (s *Scanner) index(from int) int {
	b := s.buf
	i := from
	for ; i+8 <= len(b); i += 8 {
		if m := delimiters(binary.LittleEndian.Uint64(b[i:])); m != 0 {
			return i + bits.TrailingZeros64(m)>>3
		}
	}
	for ; i < len(b); i++ {
		if c := b[i]; c == ';' || c == '\n' {
			return i
		}
	}
	return -1
}

// Next advances to the next record. It returns false at the end of the
// buffer or on a malformed line, which Err then reports.
func (s *Scanner) Next() bool {
	if s.err != nil || s.pos >= len(s.buf) {
		return false
	}

	start := s.pos
	semi := s.index(start)
	if semi < 0 || s.buf[semi] != ';' {
		s.fail(start, errors.ErrMissingDelimiter)
		return false
	}

	end := s.index(semi + 1)
	next := end + 1
	switch {
	case end < 0:
		end = len(s.buf)
		next = end
	case s.buf[end] != '\n':
		s.fail(start, errors.ErrMissingDelimiter)
		return false
	}

	s.start = start
	s.key = s.buf[start:semi]
	s.value = s.buf[semi+1 : end]
	s.pos = next
	return true
}

func (s *Scanner) fail(start int, err error) {
	line := s.buf[start:]
	if nl := bytes.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	s.err = errors.NewParseError(s.base+int64(start), line, err)
	s.key, s.value = nil, nil
}

// Key returns the key of the current record. It aliases the buffer.
func (s *Scanner) Key() []byte { return s.key }

// Value returns the unparsed value of the current record. It aliases the buffer.
func (s *Scanner) Value() []byte { return s.value }

// Offset returns the input offset of the start of the current record.
func (s *Scanner) Offset() int64 { return s.base + int64(s.start) }

// Line returns the whole current record without its newline.
func (s *Scanner) Line() []byte {
	return s.buf[s.start : s.start+len(s.key)+1+len(s.value)]
}

// Err returns the first error encountered, if any.
func (s *Scanner) Err() error { return s.err }

// All yields every remaining (key, value) pair in order. Check Err after
// the loop.
func (s *Scanner) All() iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		for s.Next() {
			if !yield(s.key, s.value) {
				return
			}
		}
	}
}
