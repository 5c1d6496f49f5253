// Package aggregate implements the per-key min/max/sum/count table used by
// workers and by the final merge.
//
// The table is open addressed with linear probing. Slots hold an index into
// a dense record slice; records keep the full hash and the key bytes, which
// live in a single arena owned by the map. Two keys are the same key only
// when their bytes are equal, so hash collisions cost a probe and never
// merge stations.
package aggregate

import (
	"bytes"
	"iter"
	"math"
	"math/bits"
)

const minSlots = 16

// Entry is the running aggregate of one key, in tenths.
type Entry struct {
	Min   int64
	Max   int64
	Sum   int64
	Count uint64
}

func newEntry(v int64) Entry {
	return Entry{Min: v, Max: v, Sum: v, Count: 1}
}

// Add folds one value into e.
func (e *Entry) Add(v int64) {
	if v < e.Min {
		e.Min = v
	}
	if v > e.Max {
		e.Max = v
	}
	e.Sum += v
	e.Count++
}

// Merge folds another aggregate into e. Merge is commutative and associative.
func (e *Entry) Merge(o Entry) {
	if o.Min < e.Min {
		e.Min = o.Min
	}
	if o.Max > e.Max {
		e.Max = o.Max
	}
	e.Sum += o.Sum
	e.Count += o.Count
}

type record struct {
	hash uint64
	off  uint32
	n    uint32
	Entry
}

// Map maps key bytes to an Entry. A Map is not safe for concurrent use;
// each worker owns one.
type Map struct {
	hash       HashFunc
	slots      []uint32 // record index + 1, 0 is empty
	mask       uint64
	records    []record
	arena      []byte
	collisions int
}

// New returns a Map with at least size slots, rounded up to a power of two.
// The table doubles once more than half of the slots are in use, so sizing
// it at twice the expected key count keeps the hot path allocation free.
func New(size int, hash HashFunc) *Map {
	if size < minSlots {
		size = minSlots
	}
	n := 1 << bits.Len(uint(size-1))
	return &Map{
		hash:    hash,
		slots:   make([]uint32, n),
		mask:    uint64(n - 1),
		records: make([]record, 0, n/2),
		arena:   make([]byte, 0, n/2*16),
	}
}

func (m *Map) key(r *record) []byte {
	return m.arena[r.off : r.off+r.n]
}

// find returns the record for key, or the empty slot where it belongs.
func (m *Map) find(key []byte, h uint64) (*record, uint64) {
	i := h & m.mask
	for {
		idx := m.slots[i]
		if idx == 0 {
			return nil, i
		}
		r := &m.records[idx-1]
		if r.hash == h && bytes.Equal(m.key(r), key) {
			return r, i
		}
		i = (i + 1) & m.mask
	}
}

func (m *Map) insert(slot uint64, key []byte, h uint64, e Entry) {
	if slot != h&m.mask {
		m.collisions++
	}
	m.records = append(m.records, record{
		hash:  h,
		off:   uint32(len(m.arena)),
		n:     uint32(len(key)),
		Entry: e,
	})
	m.arena = append(m.arena, key...)
	m.slots[slot] = uint32(len(m.records))

	if len(m.records)*2 > len(m.slots) {
		m.grow()
	}
}

func (m *Map) grow() {
	if len(m.slots) > math.MaxUint32/2 {
		return
	}
	m.slots = make([]uint32, len(m.slots)*2)
	m.mask = uint64(len(m.slots) - 1)
	m.collisions = 0
	for idx := range m.records {
		h := m.records[idx].hash
		i := h & m.mask
		for m.slots[i] != 0 {
			i = (i + 1) & m.mask
		}
		if i != h&m.mask {
			m.collisions++
		}
		m.slots[i] = uint32(idx + 1)
	}
}

// Upsert folds v into the entry for key, creating it on first sight. The key
// bytes are copied, so key may alias a recycled buffer.
func (m *Map) Upsert(key []byte, v int64) {
	h := m.hash(key)
	r, slot := m.find(key, h)
	if r != nil {
		r.Add(v)
		return
	}
	m.insert(slot, key, h, newEntry(v))
}

// MergeEntry folds a whole aggregate into the entry for key.
func (m *Map) MergeEntry(key []byte, e Entry) {
	h := m.hash(key)
	r, slot := m.find(key, h)
	if r != nil {
		r.Merge(e)
		return
	}
	m.insert(slot, key, h, e)
}

// Get returns the entry for key.
func (m *Map) Get(key []byte) (Entry, bool) {
	r, _ := m.find(key, m.hash(key))
	if r == nil {
		return Entry{}, false
	}
	return r.Entry, true
}

// Len returns the number of distinct keys.
func (m *Map) Len() int { return len(m.records) }

// Collisions returns how many keys sit outside their home slot.
func (m *Map) Collisions() int { return m.collisions }

// All yields every key and entry in insertion order. Keys alias the map's
// arena and must be copied if retained past the next Upsert.
func (m *Map) All() iter.Seq2[[]byte, Entry] {
	return func(yield func([]byte, Entry) bool) {
		for i := range m.records {
			r := &m.records[i]
			if !yield(m.key(r), r.Entry) {
				return
			}
		}
	}
}
