package pipeline

import "sync/atomic"

// Progress tracks how far a run has read. It is safe for concurrent use.
type Progress struct {
	total   atomic.Int64
	read    atomic.Int64
	running atomic.Bool
	done    atomic.Bool
}

// NewProgress returns a Progress for an input of total bytes.
func NewProgress(total int64) *Progress {
	p := &Progress{}
	p.total.Store(total)
	return p
}

func (p *Progress) add(n int) {
	if p != nil {
		p.read.Add(int64(n))
	}
}

func (p *Progress) start() {
	if p != nil {
		p.running.Store(true)
	}
}

func (p *Progress) finish() {
	if p != nil {
		p.running.Store(false)
		p.done.Store(true)
	}
}

// BytesRead returns the bytes read so far.
func (p *Progress) BytesRead() int64 { return p.read.Load() }

// Total returns the input size given to NewProgress.
func (p *Progress) Total() int64 { return p.total.Load() }

// Running reports whether a run is in progress.
func (p *Progress) Running() bool { return p.running.Load() }

// Done reports whether the run has ended, successfully or not.
func (p *Progress) Done() bool { return p.done.Load() }

// Fraction returns the share of the input read, in [0, 1].
func (p *Progress) Fraction() float64 {
	total := p.Total()
	if total <= 0 {
		if p.Done() {
			return 1
		}
		return 0
	}
	return min(float64(p.BytesRead())/float64(total), 1)
}
