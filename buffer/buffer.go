package buffer

import "fmt"

// Buffer is a fixed capacity byte region with a pos/limit window.
//
// In write mode a socket read appends at pos and limit equals the capacity.
// In read mode pos is 0 and limit is the number of bytes previously read,
// so Bytes is exactly what has to be written back out.
type Buffer struct {
	b      []byte
	pos    int
	limit  int
	pooled bool
}

func New(size int) *Buffer {
	return &Buffer{
		b:     make([]byte, size),
		limit: size,
	}
}

func (b *Buffer) Cap() int      { return len(b.b) }
func (b *Buffer) Position() int { return b.pos }
func (b *Buffer) Limit() int    { return b.limit }
func (b *Buffer) Remaining() int {
	return b.limit - b.pos
}

// Free returns the unfilled part of the window for a read to fill.
func (b *Buffer) Free() []byte {
	return b.b[b.pos:b.limit]
}

// Bytes returns the pending part of the window for a write to drain.
func (b *Buffer) Bytes() []byte {
	return b.b[b.pos:b.limit]
}

// Advance moves pos forward after n bytes were read into or written from
// the window.
func (b *Buffer) Advance(n int) {
	if n < 0 || n > b.Remaining() {
		panic(fmt.Sprintf("buffer: advance %d out of range, remaining %d", n, b.Remaining()))
	}
	b.pos += n
}

// Flip switches to read mode.
func (b *Buffer) Flip() *Buffer {
	b.limit = b.pos
	b.pos = 0
	return b
}

// Clear switches to write mode. Content is left as is.
func (b *Buffer) Clear() *Buffer {
	b.pos = 0
	b.limit = len(b.b)
	return b
}

func (b *Buffer) String() string {
	return fmt.Sprintf("buffer[pos=%d lim=%d cap=%d]", b.pos, b.limit, len(b.b))
}
