package generator

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jittakal/onebrc/internal/fixedpoint"
	"github.com/jittakal/onebrc/internal/reference"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func generate(t *testing.T, cfg Config) []byte {
	t.Helper()
	g, err := NewGenerator(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	var buf bytes.Buffer
	n, err := g.WriteTo(context.Background(), &buf)
	if err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo() = %d, wrote %d", n, buf.Len())
	}
	return buf.Bytes()
}

func TestNewGenerator_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no stations", Config{Rows: 10}},
		{"negative rows", Config{Rows: -1, Stations: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGenerator(tt.cfg, testLogger()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGenerator_DistinctStations(t *testing.T) {
	for _, n := range []int{1, 50, 2000} {
		g, err := NewGenerator(Config{Stations: n, Seed: 42}, testLogger())
		if err != nil {
			t.Fatalf("NewGenerator() error = %v", err)
		}
		seen := make(map[string]bool)
		for _, s := range g.Stations() {
			if seen[s.Name] {
				t.Errorf("duplicate station %q", s.Name)
			}
			seen[s.Name] = true
			if len(s.Name) == 0 || len(s.Name) > 100 || strings.ContainsAny(s.Name, ";\n") {
				t.Errorf("bad station name %q", s.Name)
			}
		}
		if len(seen) != n {
			t.Errorf("stations = %d, want %d", len(seen), n)
		}
	}
}

func TestGenerator_Lines(t *testing.T) {
	out := generate(t, Config{Rows: 5000, Stations: 40, Seed: 1})

	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
	if len(lines) != 5000 {
		t.Fatalf("lines = %d, want 5000", len(lines))
	}
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ";")
		if !ok || name == "" {
			t.Fatalf("malformed line %q", line)
		}
		v, err := fixedpoint.Parse([]byte(value))
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", value, err)
		}
		if v < -999 || v > 999 {
			t.Fatalf("value %d out of range", v)
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	cfg := Config{Rows: 1000, Stations: 10, Seed: 7}
	if !bytes.Equal(generate(t, cfg), generate(t, cfg)) {
		t.Error("equal seeds should produce equal output")
	}
	cfg.Seed = 8
	if bytes.Equal(generate(t, Config{Rows: 1000, Stations: 10, Seed: 7}), generate(t, cfg)) {
		t.Error("different seeds should produce different output")
	}
}

func TestGenerator_Aggregates(t *testing.T) {
	out := generate(t, Config{Rows: 20000, Stations: 25, Seed: 3})

	table, err := reference.Aggregate(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got := table.Records(); got != 20000 {
		t.Errorf("Records() = %d, want 20000", got)
	}
	if len(table) > 25 {
		t.Errorf("stations = %d, want at most 25", len(table))
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want int64
	}{
		{-5000, -999},
		{-999, -999},
		{0, 0},
		{999, 999},
		{1000, 999},
	}
	for _, tt := range tests {
		if got := clamp(tt.in); got != tt.want {
			t.Errorf("clamp(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestGenerator_Canceled(t *testing.T) {
	g, err := NewGenerator(Config{Rows: 10, Stations: 2}, testLogger())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.WriteTo(ctx, io.Discard); !stderrors.Is(err, context.Canceled) {
		t.Errorf("WriteTo() error = %v, want context.Canceled", err)
	}
}
