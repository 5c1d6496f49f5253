package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	apperrors "github.com/jittakal/onebrc/internal/errors"
)

type pair struct {
	key, value string
}

func collect(t *testing.T, input string) ([]pair, error) {
	t.Helper()
	var got []pair
	s := New([]byte(input), 0)
	for k, v := range s.All() {
		got = append(got, pair{string(k), string(v)})
	}
	return got, s.Err()
}

func TestScanner(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []pair
	}{
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
		{
			name:  "single record",
			input: "Hamburg;12.0\n",
			want:  []pair{{"Hamburg", "12.0"}},
		},
		{
			name:  "three records",
			input: "Hamburg;12.0\nBerlin;-3.5\nHamburg;8.2\n",
			want:  []pair{{"Hamburg", "12.0"}, {"Berlin", "-3.5"}, {"Hamburg", "8.2"}},
		},
		{
			name:  "unterminated tail",
			input: "Oslo;1.0\nRome;2.0",
			want:  []pair{{"Oslo", "1.0"}, {"Rome", "2.0"}},
		},
		{
			name:  "short keys shorter than a word",
			input: "a;1.0\nb;-2.0\n",
			want:  []pair{{"a", "1.0"}, {"b", "-2.0"}},
		},
		{
			name:  "long key spanning words",
			input: "Llanfairpwllgwyngyllgogerychwyrndrobwllllantysiliogogogoch;-10.5\n",
			want:  []pair{{"Llanfairpwllgwyngyllgogerychwyrndrobwllllantysiliogogogoch", "-10.5"}},
		},
		{
			name:  "multibyte utf8 key",
			input: "São Paulo;25.1\nZürich;-0.4\n",
			want:  []pair{{"São Paulo", "25.1"}, {"Zürich", "-0.4"}},
		},
		{
			name:  "empty value is left to the parser",
			input: "Oslo;\n",
			want:  []pair{{"Oslo", ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collect(t, tt.input)
			if err != nil {
				t.Fatalf("Scan error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records %v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("record %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestScannerMalformed(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantOffset int64
		wantGood   int
	}{
		{name: "no delimiter", input: "Hamburg 12.0\n", wantOffset: 100},
		{name: "blank line", input: "Oslo;1.0\n\nRome;2.0\n", wantOffset: 109, wantGood: 1},
		{name: "second delimiter", input: "Oslo;1.0\nRome;2;0\n", wantOffset: 109, wantGood: 1},
		{name: "tail without delimiter", input: "Oslo;1.0\nRome", wantOffset: 109, wantGood: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New([]byte(tt.input), 100)
			good := 0
			for s.Next() {
				good++
			}
			if good != tt.wantGood {
				t.Errorf("good records = %d, want %d", good, tt.wantGood)
			}

			var perr *apperrors.ParseError
			if !errors.As(s.Err(), &perr) {
				t.Fatalf("Err() = %v, want ParseError", s.Err())
			}
			if !errors.Is(perr, apperrors.ErrMissingDelimiter) {
				t.Errorf("Err() = %v, want ErrMissingDelimiter", perr)
			}
			if perr.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", perr.Offset, tt.wantOffset)
			}
			if s.Next() {
				t.Error("Next() after error should return false")
			}
		})
	}
}

// Every newline in a well-formed block yields exactly one record.
func TestScannerCountsNewlines(t *testing.T) {
	var b strings.Builder
	for i := range 1000 {
		fmt.Fprintf(&b, "%s;%d.%d\n", strings.Repeat("k", 1+i%37), i%100-50, i%10)
	}
	input := []byte(b.String())

	// Every prefix ending on a line boundary must also scan cleanly.
	for end := 0; end <= len(input); end++ {
		if end > 0 && input[end-1] != '\n' {
			continue
		}
		s := New(input[:end], 0)
		n := 0
		for s.Next() {
			n++
		}
		if err := s.Err(); err != nil {
			t.Fatalf("prefix %d: Err() = %v", end, err)
		}
		if want := bytes.Count(input[:end], []byte{'\n'}); n != want {
			t.Fatalf("prefix %d: records = %d, want %d", end, n, want)
		}
	}
}

func TestScannerOffsetAndLine(t *testing.T) {
	s := New([]byte("Oslo;1.0\nRome;2.0\n"), 1000)
	if !s.Next() || s.Offset() != 1000 || string(s.Line()) != "Oslo;1.0" {
		t.Fatalf("first record offset=%d line=%q", s.Offset(), s.Line())
	}
	if !s.Next() || s.Offset() != 1009 || string(s.Line()) != "Rome;2.0" {
		t.Fatalf("second record offset=%d line=%q", s.Offset(), s.Line())
	}
}

func TestScannerAllStopsEarly(t *testing.T) {
	s := New([]byte("a;1.0\nb;2.0\nc;3.0\n"), 0)
	n := 0
	for range s.All() {
		n++
		if n == 2 {
			break
		}
	}
	if !s.Next() || string(s.Key()) != "c" {
		t.Errorf("Next() after break = %q, want c", s.Key())
	}
}

func TestScannerReset(t *testing.T) {
	s := New([]byte("bad\n"), 0)
	for s.Next() {
	}
	if s.Err() == nil {
		t.Fatal("expected error before Reset")
	}
	s.Reset([]byte("ok;1.0\n"), 0)
	if !s.Next() || string(s.Key()) != "ok" || s.Err() != nil {
		t.Errorf("after Reset key=%q err=%v", s.Key(), s.Err())
	}
}

func BenchmarkScanner(b *testing.B) {
	block := bytes.Repeat([]byte("Hamburg;12.0\nBulawayo;8.9\nPalembang;38.8\nSt. John's;15.2\n"), 4096)
	b.SetBytes(int64(len(block)))
	b.ReportAllocs()
	s := New(nil, 0)
	for i := 0; i < b.N; i++ {
		s.Reset(block, 0)
		for s.Next() {
		}
	}
}
