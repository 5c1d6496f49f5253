// Package station defines the result types produced by an aggregation run.
//
// Values are kept in tenths of a degree, the unit of the input, so results
// are exact and independent of the order records were aggregated in.
package station

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/jittakal/onebrc/internal/fixedpoint"
)

// Summary is the aggregate of one station. Min, Max and Sum are in tenths.
type Summary struct {
	Name  string
	Min   int64
	Max   int64
	Sum   int64
	Count uint64
}

// Mean returns the average in tenths, rounded half toward positive infinity.
func (s Summary) Mean() int64 {
	if s.Count == 0 {
		return 0
	}
	n := int64(s.Count)
	return floorDiv(2*s.Sum+n, 2*n)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// AppendText appends "name=min/mean/max" to dst.
func (s Summary) AppendText(dst []byte) []byte {
	dst = append(dst, s.Name...)
	dst = append(dst, '=')
	dst = fixedpoint.AppendTenths(dst, s.Min)
	dst = append(dst, '/')
	dst = fixedpoint.AppendTenths(dst, s.Mean())
	dst = append(dst, '/')
	return fixedpoint.AppendTenths(dst, s.Max)
}

// String returns "name=min/mean/max".
func (s Summary) String() string {
	return string(s.AppendText(nil))
}

// Table maps station name to its summary.
type Table map[string]Summary

// Names returns the station names in byte order.
func (t Table) Names() []string {
	names := maps.Keys(t)
	slices.Sort(names)
	return names
}

// Sorted returns the summaries in byte order of their names.
func (t Table) Sorted() []Summary {
	names := t.Names()
	rows := make([]Summary, len(names))
	for i, name := range names {
		rows[i] = t[name]
	}
	return rows
}

// Records returns the number of records aggregated into t.
func (t Table) Records() uint64 {
	var n uint64
	for _, s := range t {
		n += s.Count
	}
	return n
}

// Diff compares t with want and returns one line per station that is
// missing, unexpected or different. It returns nil when they are equal.
func (t Table) Diff(want Table) []string {
	var diffs []string
	for _, name := range want.Names() {
		got, ok := t[name]
		switch {
		case !ok:
			diffs = append(diffs, "missing "+want[name].String())
		case got != want[name]:
			diffs = append(diffs, "got "+got.String()+" want "+want[name].String())
		}
	}
	for _, name := range t.Names() {
		if _, ok := want[name]; !ok {
			diffs = append(diffs, "unexpected "+t[name].String())
		}
	}
	return diffs
}

// FileFormat represents an output encoding.
type FileFormat string

const (
	FormatText    FileFormat = "text"
	FormatParquet FileFormat = "parquet"
	FormatAvro    FileFormat = "avro"
)

// FileStats describes an encoded result file.
type FileStats struct {
	RecordCount int
	SizeBytes   int64
}

// Validator checks a summary before it is exported.
type Validator interface {
	Validate(s Summary) error
}
