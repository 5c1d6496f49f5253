// Package buffer implements the fixed set of reusable input buffers shared by
// the reader and the workers.
package buffer

import (
	"fmt"
	"sync"

	"github.com/jittakal/onebrc/internal/errors"
)

type state uint8

const (
	stateFree state = iota
	stateReader
	stateFilled
	stateWorker
)

func (s state) String() string {
	switch s {
	case stateFree:
		return "free"
	case stateReader:
		return "reader"
	case stateFilled:
		return "filled"
	case stateWorker:
		return "worker"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Buffer is a fixed-capacity byte region. Bytes [0, Filled) hold input data
// read from Offset; bytes [0, End) hold whole records.
type Buffer struct {
	data   []byte
	filled int
	end    int
	offset int64
	id     int
	state  state
}

// ID identifies the buffer within its pool.
func (b *Buffer) ID() int { return b.id }

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Offset returns the input offset of the first byte.
func (b *Buffer) Offset() int64 { return b.offset }

// Records returns the complete records held by the buffer.
func (b *Buffer) Records() []byte { return b.data[:b.end] }

// Filled returns every byte written so far, including a trailing partial record.
func (b *Buffer) Filled() []byte { return b.data[:b.filled] }

// Free returns the unwritten tail of the buffer.
func (b *Buffer) Free() []byte { return b.data[b.filled:] }

// Reset empties the buffer and positions it at offset.
func (b *Buffer) Reset(offset int64) {
	b.filled = 0
	b.end = 0
	b.offset = offset
}

// Append copies p after the filled region. It panics if p does not fit.
func (b *Buffer) Append(p []byte) {
	if len(p) > len(b.data)-b.filled {
		panic("buffer: append beyond capacity")
	}
	b.filled += copy(b.data[b.filled:], p)
}

// Grow marks n more bytes of Free as filled.
func (b *Buffer) Grow(n int) {
	if n < 0 || n > len(b.data)-b.filled {
		panic("buffer: grow beyond capacity")
	}
	b.filled += n
}

// SetEnd marks [0, end) as whole records.
func (b *Buffer) SetEnd(end int) {
	if end < 0 || end > b.filled {
		panic("buffer: record end outside filled region")
	}
	b.end = end
}

// Remainder returns the bytes after the record end: the start of a record
// split across two buffers.
func (b *Buffer) Remainder() []byte { return b.data[b.end:b.filled] }

// Counts is a snapshot of where the pool's buffers are.
type Counts struct {
	Free    int
	Reader  int
	Filled  int
	Workers int
	Total   int
}

// Sum returns the number of buffers accounted for. It always equals Total.
func (c Counts) Sum() int { return c.Free + c.Reader + c.Filled + c.Workers }

// Pool coordinates one producer and many consumers over a fixed set of
// buffers. A single mutex guards both queues; one condition variable per
// queue wakes the side waiting on it. Buffers are allocated once by NewPool.
type Pool struct {
	mu         sync.Mutex
	freeCond   sync.Cond
	filledCond sync.Cond

	free []*Buffer

	// filled is a ring of capacity len(all).
	filled []*Buffer
	head   int
	queued int

	all      []*Buffer
	reader   int
	workers  int
	finished bool
	aborted  bool
}

// NewPool allocates count buffers of capacity bytes each.
func NewPool(count, capacity int) (*Pool, error) {
	if count <= 0 {
		return nil, &errors.ConfigError{Field: "pipeline.buffer_count", Reason: fmt.Sprintf("must be positive, got %d", count)}
	}
	if capacity <= 0 {
		return nil, &errors.ConfigError{Field: "pipeline.buffer_size_kb", Reason: fmt.Sprintf("must be positive, got %d bytes", capacity)}
	}

	p := &Pool{
		free:   make([]*Buffer, 0, count),
		filled: make([]*Buffer, count),
		all:    make([]*Buffer, count),
	}
	p.freeCond.L = &p.mu
	p.filledCond.L = &p.mu

	for i := range count {
		b := &Buffer{data: make([]byte, capacity), id: i}
		p.all[i] = b
		p.free = append(p.free, b)
	}
	return p, nil
}

func (p *Pool) move(b *Buffer, from, to state) {
	if b.state != from {
		panic(fmt.Sprintf("buffer: buffer %d is %s, want %s", b.id, b.state, from))
	}
	b.state = to
}

// AcquireFree blocks until a free buffer is available and hands it to the
// reader. It returns ErrPoolAborted once the pool is aborted.
func (p *Pool) AcquireFree() (*Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.free) == 0 && !p.aborted {
		p.freeCond.Wait()
	}
	if p.aborted {
		return nil, errors.ErrPoolAborted
	}

	b := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.move(b, stateFree, stateReader)
	p.reader++
	return b, nil
}

// PublishFilled queues a buffer held by the reader for the workers and wakes
// one of them. On an aborted pool the buffer goes back to the free list and
// ErrPoolAborted is returned.
func (p *Pool) PublishFilled(b *Buffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.aborted {
		p.move(b, stateReader, stateFree)
		p.reader--
		p.free = append(p.free, b)
		return errors.ErrPoolAborted
	}
	if p.finished {
		panic("buffer: publish after MarkFinished")
	}

	p.move(b, stateReader, stateFilled)
	p.reader--
	p.filled[(p.head+p.queued)%len(p.filled)] = b
	p.queued++
	p.filledCond.Signal()
	return nil
}

// AcquireFilled blocks until a filled buffer is available and hands it to a
// worker. It returns false once the pool is finished and drained, or aborted.
func (p *Pool) AcquireFilled() (*Buffer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.queued == 0 && !p.finished && !p.aborted {
		p.filledCond.Wait()
	}
	if p.aborted || p.queued == 0 {
		return nil, false
	}

	b := p.filled[p.head]
	p.filled[p.head] = nil
	p.head = (p.head + 1) % len(p.filled)
	p.queued--
	p.move(b, stateFilled, stateWorker)
	p.workers++
	return b, true
}

// ReleaseFree returns a buffer held by the reader or by a worker to the free
// list and wakes the reader.
func (p *Pool) ReleaseFree(b *Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch b.state {
	case stateReader:
		p.reader--
	case stateWorker:
		p.workers--
	default:
		panic(fmt.Sprintf("buffer: release of buffer %d in state %s", b.id, b.state))
	}
	b.state = stateFree
	p.free = append(p.free, b)
	p.freeCond.Signal()
}

// MarkFinished records that nothing more will be published. Workers drain
// the filled queue and then see AcquireFilled return false.
func (p *Pool) MarkFinished() {
	p.mu.Lock()
	p.finished = true
	p.mu.Unlock()
	p.filledCond.Broadcast()
}

// Abort wakes every waiter on both queues and makes all further acquires
// fail. It is safe to call more than once and from any goroutine.
func (p *Pool) Abort() {
	p.mu.Lock()
	p.aborted = true
	p.mu.Unlock()
	p.freeCond.Broadcast()
	p.filledCond.Broadcast()
}

// Counts returns where the buffers are right now.
func (p *Pool) Counts() Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Counts{
		Free:    len(p.free),
		Reader:  p.reader,
		Filled:  p.queued,
		Workers: p.workers,
		Total:   len(p.all),
	}
}
