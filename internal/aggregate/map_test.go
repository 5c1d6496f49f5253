package aggregate

import (
	"fmt"
	"math/rand/v2"
	"testing"
)

func constantHash(seed uint64) HashFunc {
	return func([]byte) uint64 { return seed }
}

func TestMapUpsert(t *testing.T) {
	m := New(64, Fingerprint(0))
	m.Upsert([]byte("Hamburg"), 120)
	m.Upsert([]byte("Berlin"), -35)
	m.Upsert([]byte("Hamburg"), 82)

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}

	tests := []struct {
		key  string
		want Entry
	}{
		{"Hamburg", Entry{Min: 82, Max: 120, Sum: 202, Count: 2}},
		{"Berlin", Entry{Min: -35, Max: -35, Sum: -35, Count: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := m.Get([]byte(tt.key))
			if !ok {
				t.Fatalf("Get(%q) not found", tt.key)
			}
			if got != tt.want {
				t.Errorf("Get(%q) = %+v, want %+v", tt.key, got, tt.want)
			}
		})
	}

	if _, ok := m.Get([]byte("Hamburger")); ok {
		t.Error("Get(Hamburger) should not be found")
	}
}

func TestMapCopiesKeys(t *testing.T) {
	m := New(16, XXHash(0))
	buf := []byte("Oslo")
	m.Upsert(buf, 10)
	copy(buf, "Rome")
	m.Upsert(buf, 20)

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if e, ok := m.Get([]byte("Oslo")); !ok || e.Sum != 10 {
		t.Errorf("Get(Oslo) = %+v, %v", e, ok)
	}
}

// Every key hashes to the same slot, so correctness rests on probing and
// full key comparison alone.
func TestMapResolvesCollisions(t *testing.T) {
	m := New(16, constantHash(7))
	for i := range 100 {
		key := []byte(fmt.Sprintf("station-%02d", i%10))
		m.Upsert(key, int64(i))
	}

	if m.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", m.Len())
	}
	if m.Collisions() != 9 {
		t.Errorf("Collisions() = %d, want 9", m.Collisions())
	}
	for k := range 10 {
		e, ok := m.Get([]byte(fmt.Sprintf("station-%02d", k)))
		if !ok {
			t.Fatalf("station-%02d missing", k)
		}
		if e.Count != 10 || e.Min != int64(k) || e.Max != int64(90+k) {
			t.Errorf("station-%02d = %+v", k, e)
		}
	}
}

// Keys sharing first three bytes, last three bytes and length share a
// fingerprint and therefore a hash.
func TestMapFingerprintTwins(t *testing.T) {
	m := New(64, Fingerprint(0))
	m.Upsert([]byte("Sanxxxosé"), 10)
	m.Upsert([]byte("Sanyyyosé"), 20)

	a, _ := m.Get([]byte("Sanxxxosé"))
	b, _ := m.Get([]byte("Sanyyyosé"))
	if m.Len() != 2 || a.Sum != 10 || b.Sum != 20 {
		t.Errorf("twins merged: len=%d a=%+v b=%+v", m.Len(), a, b)
	}
}

func TestMapGrows(t *testing.T) {
	m := New(16, Fingerprint(0))
	for i := range 1000 {
		m.Upsert([]byte(fmt.Sprintf("k%d", i)), int64(i))
	}
	if m.Len() != 1000 {
		t.Fatalf("Len() = %d, want 1000", m.Len())
	}
	if len(m.slots) < 2000 {
		t.Errorf("slots = %d, want at least twice the key count", len(m.slots))
	}
	for i := range 1000 {
		if e, ok := m.Get([]byte(fmt.Sprintf("k%d", i))); !ok || e.Sum != int64(i) {
			t.Fatalf("k%d = %+v, %v", i, e, ok)
		}
	}
}

func TestNewRoundsSize(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{0, 16},
		{1, 16},
		{16, 16},
		{17, 32},
		{32768, 32768},
		{40000, 65536},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.size), func(t *testing.T) {
			if got := len(New(tt.size, XXHash(0)).slots); got != tt.want {
				t.Errorf("New(%d) slots = %d, want %d", tt.size, got, tt.want)
			}
		})
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	parts := make([]*Map, 4)
	for i := range parts {
		parts[i] = New(64, Fingerprint(0))
	}
	for range 5000 {
		key := []byte(fmt.Sprintf("s%d", rng.IntN(40)))
		parts[rng.IntN(len(parts))].Upsert(key, rng.Int64N(1999)-999)
	}

	merge := func(order []int) *Map {
		out := New(64, XXHash(0))
		for _, i := range order {
			for k, e := range parts[i].All() {
				out.MergeEntry(k, e)
			}
		}
		return out
	}

	a := merge([]int{0, 1, 2, 3})
	b := merge([]int{3, 1, 0, 2})
	if a.Len() != b.Len() {
		t.Fatalf("Len() %d != %d", a.Len(), b.Len())
	}
	for k, ea := range a.All() {
		eb, ok := b.Get(k)
		if !ok || ea != eb {
			t.Errorf("%s: %+v != %+v", k, ea, eb)
		}
	}
}

func TestAllStopsEarly(t *testing.T) {
	m := New(16, Fingerprint(0))
	for _, k := range []string{"a", "b", "c"} {
		m.Upsert([]byte(k), 1)
	}
	n := 0
	for range m.All() {
		n++
		break
	}
	if n != 1 {
		t.Errorf("iterations = %d, want 1", n)
	}
}

func BenchmarkUpsert(b *testing.B) {
	keys := make([][]byte, 413)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("Station number %d", i))
	}
	m := New(32768, Fingerprint(0))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Upsert(keys[i%len(keys)], int64(i&1023))
	}
}
