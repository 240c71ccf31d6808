package buffer

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// Pool is a free list of fixed size buffers shared by every connection.
// Acquire and Release may be called from any goroutine.
type Pool struct {
	size      int
	mu        sync.Mutex
	free      *queue.Queue
	allocated atomic.Int64
}

type Stats struct {
	Size      int
	Allocated int64
	Idle      int
}

func NewPool(size int) *Pool {
	if size < 1 {
		panic("buffer: pool size must be positive")
	}
	return &Pool{
		size: size,
		free: queue.New(),
	}
}

func (p *Pool) Size() int { return p.size }

// Acquire hands out a buffer in write mode, allocating when the free list
// is empty.
func (p *Pool) Acquire() *Buffer {
	var b *Buffer
	p.mu.Lock()
	if p.free.Length() > 0 {
		b = p.free.Remove().(*Buffer)
		b.pooled = false
	}
	p.mu.Unlock()

	if b == nil {
		p.allocated.Add(1)
		return New(p.size)
	}
	return b.Clear()
}

// Release puts b back on the free list. b must already be in write mode
// and must not be touched by the caller afterwards.
func (p *Pool) Release(b *Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b.pooled {
		panic("buffer: released twice")
	}
	b.pooled = true
	p.free.Add(b)
}

// Recycle resets b to write mode and releases it.
func (p *Pool) Recycle(b *Buffer) {
	p.Release(b.Clear())
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	idle := p.free.Length()
	p.mu.Unlock()
	return Stats{
		Size:      p.size,
		Allocated: p.allocated.Load(),
		Idle:      idle,
	}
}
