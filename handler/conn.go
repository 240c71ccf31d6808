package handler

import (
	"echoloop/buffer"
	"echoloop/ds"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
)

// EOF is the byte count a read completes with when the peer closed its
// side of the stream.
const EOF = -1

var ErrConnClosed = errors.New("connection closed")

// CompletionHandler receives the outcome of an asynchronous Read or Write.
// It runs on the connection's read or write event loop goroutine.
type CompletionHandler interface {
	Completed(n int, attachment any)
	Failed(err error, attachment any)
}

type ioRequest struct {
	buf        *buffer.Buffer
	attachment any
	handler    CompletionHandler
}

type ConnConfig struct {
	// ReadQueueSize and WriteQueueSize bound the requests a connection
	// accepts before Read or Write block the caller.
	ReadQueueSize  int
	WriteQueueSize int
}

func newConnConfig() *ConnConfig {
	return &ConnConfig{
		ReadQueueSize:  2,
		WriteQueueSize: 64,
	}
}

var connSeq atomic.Int64

// Conn issues reads and writes on a net.Conn without blocking the caller.
// Reads are served one at a time in issue order by the read loop, writes
// in issue order by the write loop, so a read and a write may be in
// flight at the same time.
type Conn struct {
	Id        int
	conn      net.Conn
	config    *ConnConfig
	closed    atomic.Bool
	readLoop  *ds.Eventloop[ioRequest]
	writeLoop *ds.Eventloop[ioRequest]
	onClose   func(*Conn)
}

func newConn(conn net.Conn, config *ConnConfig) *Conn {
	if config == nil {
		config = newConnConfig()
	}
	c := &Conn{
		Id:     int(connSeq.Add(1)),
		conn:   conn,
		config: config,
	}
	c.readLoop = ds.NewEventloop(config.ReadQueueSize, 1, c.onRead)
	c.writeLoop = ds.NewEventloop(config.WriteQueueSize, 1, c.onWrite)
	return c
}

func (c *Conn) run() {
	go c.readLoop.Run()
	go c.writeLoop.Run()
}

// Read fills the free part of b and reports the byte count, or EOF.
func (c *Conn) Read(b *buffer.Buffer, attachment any, h CompletionHandler) {
	if err := c.readLoop.Send(ioRequest{buf: b, attachment: attachment, handler: h}); err != nil {
		h.Failed(fmt.Errorf("read: %w", ErrConnClosed), attachment)
	}
}

// Write drains the pending part of b completely before completing.
func (c *Conn) Write(b *buffer.Buffer, attachment any, h CompletionHandler) {
	if err := c.writeLoop.Send(ioRequest{buf: b, attachment: attachment, handler: h}); err != nil {
		h.Failed(fmt.Errorf("write: %w", ErrConnClosed), attachment)
	}
}

func (c *Conn) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	c.readLoop.Close()
	c.writeLoop.Close()
	c.conn.Close()
	if c.onClose != nil {
		c.onClose(c)
	}
}

func (c *Conn) Closed() bool {
	return c.closed.Load()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Conn) String() string {
	return fmt.Sprintf("conn %d %s", c.Id, c.conn.RemoteAddr())
}

func (c *Conn) onRead(r ioRequest) {
	if c.closed.Load() {
		return
	}

	n, err := c.conn.Read(r.buf.Free())
	if n > 0 {
		r.buf.Advance(n)
		r.handler.Completed(n, r.attachment)
		return
	}
	if err == nil {
		r.handler.Completed(0, r.attachment)
		return
	}
	if errors.Is(err, io.EOF) {
		r.handler.Completed(EOF, r.attachment)
		return
	}
	if c.closed.Load() {
		return
	}
	r.handler.Failed(err, r.attachment)
}

func (c *Conn) onWrite(r ioRequest) {
	var err error
	p := 0
	write := 0
	for r.buf.Remaining() > 0 {
		p, err = c.conn.Write(r.buf.Bytes())
		r.buf.Advance(p)
		write += p
		if err != nil {
			if c.closed.Load() {
				return
			}
			r.handler.Failed(err, r.attachment)
			return
		}
	}
	r.handler.Completed(write, r.attachment)
}
