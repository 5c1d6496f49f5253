package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jittakal/onebrc/internal/aggregate"
	"github.com/jittakal/onebrc/internal/errors"
	"github.com/jittakal/onebrc/internal/fixedpoint"
	"github.com/jittakal/onebrc/internal/reference"
	"github.com/jittakal/onebrc/pkg/station"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type mockMetricsCollector struct {
	mu         sync.Mutex
	bytesRead  int
	published  int
	records    int
	runs       int
	stations   int
	readerWait int
	workerWait int
}

func (m *mockMetricsCollector) RecordBytesRead(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytesRead += n
}

func (m *mockMetricsCollector) RecordBufferPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published++
}

func (m *mockMetricsCollector) RecordRecordsProcessed(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records += n
}

func (m *mockMetricsCollector) RecordReaderWait(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readerWait++
}

func (m *mockMetricsCollector) RecordWorkerWait(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workerWait++
}

func (m *mockMetricsCollector) RecordRun(_ time.Duration, stations, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	m.stations = stations
}

func run(t *testing.T, input string, cfg Config, opts ...Option) (station.Table, error) {
	t.Helper()
	opts = append([]Option{WithLogger(discard)}, opts...)
	return Run(context.Background(), strings.NewReader(input), cfg, opts...)
}

func generate(rng *rand.Rand, lines, stations int, trailingNewline bool) string {
	names := make([]string, stations)
	for i := range names {
		names[i] = fmt.Sprintf("%s-%d", strings.Repeat("ab", 1+rng.IntN(20)), i)
	}
	var b strings.Builder
	for i := range lines {
		b.WriteString(names[rng.IntN(stations)])
		b.WriteByte(';')
		b.WriteString(fixedpoint.Format(rng.Int64N(1999) - 999))
		if i < lines-1 || trailingNewline {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func TestRun_Example(t *testing.T) {
	got, err := run(t, "Hamburg;12.0\nBerlin;-3.5\nHamburg;8.2\n", Config{Workers: 2, BufferSize: 1024})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var lines []string
	for _, s := range got.Sorted() {
		lines = append(lines, s.String())
	}
	if out := strings.Join(lines, ", "); out != "Berlin=-3.5/-3.5/-3.5, Hamburg=8.2/10.1/12.0" {
		t.Errorf("Run() = %s", out)
	}
}

// A buffer smaller than the input forces records to be split across reads.
func TestRun_SplitBoundaries(t *testing.T) {
	input := "Hamburg;12.0\nBerlin;-3.5\nHamburg;8.2\n"

	want, err := run(t, input, Config{Workers: 1, BufferSize: len(input) * 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for size := 14; size < len(input)+2; size++ {
		t.Run(fmt.Sprintf("buffer=%d", size), func(t *testing.T) {
			got, err := run(t, input, Config{Workers: 3, BufferSize: size, BufferCount: 2})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if diffs := got.Diff(want); diffs != nil {
				t.Errorf("diff: %v", diffs)
			}
		})
	}
}

func TestRun_MatchesReference(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	tests := []struct {
		name            string
		lines           int
		stations        int
		trailingNewline bool
		cfg             Config
	}{
		{name: "tiny buffers", lines: 2000, stations: 30, trailingNewline: true, cfg: Config{Workers: 4, BufferSize: 64, BufferCount: 3}},
		{name: "one buffer", lines: 2000, stations: 30, trailingNewline: true, cfg: Config{Workers: 1, BufferSize: 64, BufferCount: 1}},
		{name: "many workers", lines: 20000, stations: 400, trailingNewline: true, cfg: Config{Workers: 8, BufferSize: 4096}},
		{name: "unterminated tail", lines: 5000, stations: 50, cfg: Config{Workers: 3, BufferSize: 128}},
		{name: "small table grows", lines: 5000, stations: 400, trailingNewline: true, cfg: Config{Workers: 2, BufferSize: 512, TableSize: 16}},
		{name: "xxhash", lines: 5000, stations: 100, trailingNewline: true, cfg: Config{Workers: 2, BufferSize: 256, Hash: aggregate.XXHash(0)}},
		{name: "colliding hash", lines: 3000, stations: 40, trailingNewline: true, cfg: Config{Workers: 2, BufferSize: 256, Hash: func([]byte) uint64 { return 1 }}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := generate(rng, tt.lines, tt.stations, tt.trailingNewline)
			want, err := reference.Aggregate(strings.NewReader(input))
			if err != nil {
				t.Fatalf("reference.Aggregate() error = %v", err)
			}

			got, err := run(t, input, tt.cfg)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if diffs := got.Diff(want); diffs != nil {
				t.Errorf("diff against reference (%d): %v", len(diffs), diffs[:min(len(diffs), 5)])
			}
			if got.Records() != uint64(tt.lines) {
				t.Errorf("Records() = %d, want %d", got.Records(), tt.lines)
			}
		})
	}
}

func TestRun_EdgeInputs(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNames int
		wantCount uint64
	}{
		{name: "empty", input: "", wantNames: 0},
		{name: "single unterminated", input: "Oslo;1.0", wantNames: 1, wantCount: 1},
		{name: "exactly one buffer", input: "abcdefghi;1.0\n", wantNames: 1, wantCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.input, Config{Workers: 2, BufferSize: 14})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if len(got) != tt.wantNames || got.Records() != tt.wantCount {
				t.Errorf("Run() = %v", got)
			}
		})
	}
}

func TestRun_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "zero workers", cfg: Config{Workers: 0, BufferSize: 1024}, wantErr: errors.ErrInvalidWorkers},
		{name: "negative workers", cfg: Config{Workers: -1, BufferSize: 1024}, wantErr: errors.ErrInvalidWorkers},
		{name: "buffer below max record", cfg: Config{Workers: 1, BufferSize: 64, MaxRecordLength: DefaultMaxRecordLength}, wantErr: errors.ErrRecordTooLong},
		{name: "zero buffer", cfg: Config{Workers: 1}},
		{name: "negative count", cfg: Config{Workers: 1, BufferSize: 64, BufferCount: -1}},
		{name: "negative table", cfg: Config{Workers: 1, BufferSize: 64, TableSize: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "Oslo;1.0\n", tt.cfg)
			if !errors.IsConfigError(err) {
				t.Fatalf("Run() error = %v, want ConfigError", err)
			}
			if tt.wantErr != nil && !stderrors.Is(err, tt.wantErr) {
				t.Errorf("Run() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRun_RecordLongerThanBuffer(t *testing.T) {
	input := "Oslo;1.0\n" + strings.Repeat("x", 40) + ";1.0\nRome;2.0\n"
	_, err := run(t, input, Config{Workers: 2, BufferSize: 16})
	if !stderrors.Is(err, errors.ErrRecordTooLong) {
		t.Fatalf("Run() error = %v, want ErrRecordTooLong", err)
	}
	if !errors.IsConfigError(err) {
		t.Errorf("Run() error = %T, want ConfigError", err)
	}
}

func TestRun_ParseErrorOffset(t *testing.T) {
	var b strings.Builder
	for range 100 {
		b.WriteString("Oslo;1.0\n")
	}
	badOffset := int64(b.Len())
	b.WriteString("Rome;x.0\n")
	for range 100 {
		b.WriteString("Lima;2.0\n")
	}

	_, err := run(t, b.String(), Config{Workers: 3, BufferSize: 32})

	var perr *errors.ParseError
	if !stderrors.As(err, &perr) {
		t.Fatalf("Run() error = %v, want ParseError", err)
	}
	if perr.Offset != badOffset {
		t.Errorf("ParseError.Offset = %d, want %d", perr.Offset, badOffset)
	}
	if perr.Line != "Rome;x.0" {
		t.Errorf("ParseError.Line = %q", perr.Line)
	}
	if !stderrors.Is(err, errors.ErrMalformedValue) {
		t.Errorf("Run() error = %v, want ErrMalformedValue", err)
	}
}

func TestRun_MissingDelimiter(t *testing.T) {
	_, err := run(t, "Oslo;1.0\nRome 2.0\n", Config{Workers: 1, BufferSize: 64})
	if !stderrors.Is(err, errors.ErrMissingDelimiter) {
		t.Errorf("Run() error = %v, want ErrMissingDelimiter", err)
	}
}

type failingReaderAt struct {
	data   []byte
	failAt int64
}

func (f *failingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= f.failAt {
		return 0, stderrors.New("device error")
	}
	return bytes.NewReader(f.data).ReadAt(p[:min(int64(len(p)), f.failAt-off)], off)
}

func TestRun_IOError(t *testing.T) {
	data := []byte(strings.Repeat("Oslo;1.0\n", 100))
	src := &failingReaderAt{data: data, failAt: 300}

	_, err := Run(context.Background(), src, Config{Workers: 2, BufferSize: 64}, WithLogger(discard))
	if !errors.IsIOError(err) {
		t.Fatalf("Run() error = %v, want IOError", err)
	}
}

type cancellingReaderAt struct {
	r      *strings.Reader
	cancel context.CancelFunc
	reads  int
}

func (c *cancellingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	c.reads++
	if c.reads == 3 {
		c.cancel()
	}
	return c.r.ReadAt(p, off)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &cancellingReaderAt{r: strings.NewReader(strings.Repeat("Oslo;1.0\n", 1000)), cancel: cancel}

	_, err := Run(ctx, src, Config{Workers: 2, BufferSize: 64}, WithLogger(discard))
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRun_MetricsAndProgress(t *testing.T) {
	input := strings.Repeat("Oslo;1.0\nRome;-2.0\n", 50)
	metrics := &mockMetricsCollector{}
	progress := NewProgress(int64(len(input)))

	_, err := run(t, input, Config{Workers: 2, BufferSize: 64}, WithMetrics(metrics), WithProgress(progress))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if metrics.bytesRead != len(input) {
		t.Errorf("bytesRead = %d, want %d", metrics.bytesRead, len(input))
	}
	if metrics.records != 100 {
		t.Errorf("records = %d, want 100", metrics.records)
	}
	if metrics.published < len(input)/64 {
		t.Errorf("published = %d, want at least %d", metrics.published, len(input)/64)
	}
	if metrics.runs != 1 || metrics.stations != 2 {
		t.Errorf("runs = %d stations = %d", metrics.runs, metrics.stations)
	}
	if progress.BytesRead() != int64(len(input)) || progress.Fraction() != 1 {
		t.Errorf("progress = %d/%d", progress.BytesRead(), progress.Total())
	}
	if !progress.Done() || progress.Running() {
		t.Error("progress should be done after Run")
	}
}

func TestMerge_OrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	parts := make([]*aggregate.Map, 5)
	for i := range parts {
		parts[i] = aggregate.New(16, aggregate.Fingerprint(0))
		for range 500 {
			parts[i].Upsert([]byte(fmt.Sprintf("s%d", rng.IntN(25))), rng.Int64N(1999)-999)
		}
	}

	a := Merge(aggregate.New(16, aggregate.Fingerprint(0)), parts...)
	b := Merge(aggregate.New(64, aggregate.XXHash(0)), parts[4], parts[2], parts[0], parts[3], parts[1])
	if diffs := a.Diff(b); diffs != nil {
		t.Errorf("merge order changed the result: %v", diffs)
	}
	if a.Records() != 2500 {
		t.Errorf("Records() = %d, want 2500", a.Records())
	}
}

func TestProgress_Fraction(t *testing.T) {
	p := NewProgress(0)
	if p.Fraction() != 0 {
		t.Errorf("Fraction() = %v, want 0", p.Fraction())
	}
	p.finish()
	if p.Fraction() != 1 {
		t.Errorf("Fraction() after finish = %v, want 1", p.Fraction())
	}

	var nilProgress *Progress
	nilProgress.add(10)
	nilProgress.start()
	nilProgress.finish()
}
