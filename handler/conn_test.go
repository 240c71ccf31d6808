package handler

import (
	"echoloop/buffer"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type result struct {
	n          int
	err        error
	attachment any
}

type chanHandler chan result

func (h chanHandler) Completed(n int, attachment any) { h <- result{n: n, attachment: attachment} }
func (h chanHandler) Failed(err error, attachment any) {
	h <- result{n: -2, err: err, attachment: attachment}
}

func (h chanHandler) next(t *testing.T) result {
	t.Helper()
	select {
	case r := <-h:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no completion")
		return result{}
	}
}

func TestConnReadAdvancesBuffer(t *testing.T) {
	f := newFakeConn()
	c := startFakeConn(t, f)
	h := make(chanHandler, 4)

	b := buffer.New(8)
	c.Read(b, "r1", h)
	f.feed("abc")

	r := h.next(t)
	require.Equal(t, 3, r.n)
	require.Equal(t, "r1", r.attachment)
	require.Equal(t, 3, b.Position())

	// the next read appends after what is already there
	c.Read(b, "r2", h)
	f.feed("de")
	require.Equal(t, 2, h.next(t).n)
	b.Flip()
	require.Equal(t, []byte("abcde"), b.Bytes())
}

func TestConnReadEOF(t *testing.T) {
	f := newFakeConn()
	c := startFakeConn(t, f)
	h := make(chanHandler, 1)

	c.Read(buffer.New(8), nil, h)
	f.reads <- readResult{err: io.EOF}
	r := h.next(t)
	require.Equal(t, EOF, r.n)
	require.NoError(t, r.err)
}

func TestConnWritesInOrder(t *testing.T) {
	f := newFakeConn()
	c := startFakeConn(t, f)
	h := make(chanHandler, 100)

	for i := range 100 {
		b := buffer.New(8)
		n := copy(b.Free(), fmt.Sprint(i))
		b.Advance(n)
		c.Write(b.Flip(), i, h)
	}
	for i := range 100 {
		require.Equal(t, []byte(fmt.Sprint(i)), f.nextWrite(t))
		require.Equal(t, i, h.next(t).attachment)
	}
}

func TestConnWriteDrainsBuffer(t *testing.T) {
	f := newFakeConn()
	c := startFakeConn(t, f)
	h := make(chanHandler, 1)

	b := buffer.New(4)
	b.Advance(4)
	c.Write(b.Flip(), nil, h)

	require.Equal(t, 4, h.next(t).n)
	require.Zero(t, b.Remaining())
}

func TestConnClosed(t *testing.T) {
	f := newFakeConn()
	c := startFakeConn(t, f)
	h := make(chanHandler, 2)

	c.Close()
	require.True(t, c.Closed())

	c.Read(buffer.New(4), "read", h)
	c.Write(buffer.New(4), "write", h)
	r := h.next(t)
	require.ErrorIs(t, r.err, ErrConnClosed)
	require.Equal(t, "read", r.attachment)
	require.ErrorIs(t, h.next(t).err, ErrConnClosed)
}

func TestConnCloseStopsLoops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFakeConn()
	c := newConn(f, nil)
	closed := make(chan *Conn, 1)
	c.onClose = func(c *Conn) { closed <- c }
	c.run()

	h := make(chanHandler, 1)
	c.Read(buffer.New(4), nil, h)

	c.Close()
	c.Close()
	require.Same(t, c, <-closed)
	<-c.readLoop.Done()
	<-c.writeLoop.Done()

	// a read cut short by Close completes silently
	require.Empty(t, h)
}
