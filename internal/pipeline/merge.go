package pipeline

import (
	"github.com/jittakal/onebrc/internal/aggregate"
	"github.com/jittakal/onebrc/pkg/station"
)

// Merge folds every part into into and returns the combined table. The
// result does not depend on the order of parts or of their entries.
func Merge(into *aggregate.Map, parts ...*aggregate.Map) station.Table {
	for _, part := range parts {
		for key, e := range part.All() {
			into.MergeEntry(key, e)
		}
	}

	table := make(station.Table, into.Len())
	for key, e := range into.All() {
		name := string(key)
		table[name] = station.Summary{
			Name:  name,
			Min:   e.Min,
			Max:   e.Max,
			Sum:   e.Sum,
			Count: e.Count,
		}
	}
	return table
}
