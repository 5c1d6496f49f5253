// Package reference aggregates measurements the plain way: one goroutine,
// one line at a time, a general purpose map. Its results are the yardstick
// for the concurrent pipeline.
package reference

import (
	"bufio"
	"bytes"
	"io"

	"github.com/dolthub/swiss"

	"github.com/jittakal/onebrc/internal/errors"
	"github.com/jittakal/onebrc/internal/fixedpoint"
	"github.com/jittakal/onebrc/pkg/station"
)

const maxLine = 1 << 20

// Aggregate reads r to the end and returns the per-station summary.
func Aggregate(r io.Reader) (station.Table, error) {
	stats := swiss.NewMap[string, *station.Summary](1024)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var offset int64
	for sc.Scan() {
		line := sc.Bytes()
		lineOffset := offset
		offset += int64(len(line)) + 1

		name, value, ok := bytes.Cut(line, []byte{';'})
		if !ok || bytes.IndexByte(value, ';') >= 0 {
			return nil, errors.NewParseError(lineOffset, line, errors.ErrMissingDelimiter)
		}
		v, err := fixedpoint.Parse(value)
		if err != nil {
			return nil, errors.NewParseError(lineOffset, line, err)
		}

		if s, ok := stats.Get(string(name)); ok {
			s.Min = min(s.Min, v)
			s.Max = max(s.Max, v)
			s.Sum += v
			s.Count++
			continue
		}
		key := string(name)
		stats.Put(key, &station.Summary{Name: key, Min: v, Max: v, Sum: v, Count: 1})
	}
	if err := sc.Err(); err != nil {
		return nil, &errors.IOError{Op: "scan", Offset: offset, Err: err}
	}

	table := make(station.Table, stats.Count())
	stats.Iter(func(name string, s *station.Summary) bool {
		table[name] = *s
		return false
	})
	return table, nil
}
