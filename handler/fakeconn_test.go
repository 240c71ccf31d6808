package handler

import (
	"bytes"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type readResult struct {
	data []byte
	err  error
}

// fakeConn serves reads from a channel and records writes.
type fakeConn struct {
	reads     chan readResult
	writes    chan []byte
	writeErr  error
	writeGate chan struct{}

	readCalls  atomic.Int64
	writeCalls atomic.Int64
	closed     chan struct{}
	closeOnce  sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		reads:  make(chan readResult, 16),
		writes: make(chan []byte, 1024),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) Read(b []byte) (int, error) {
	f.readCalls.Add(1)
	select {
	case r := <-f.reads:
		return copy(b, r.data), r.err
	case <-f.closed:
		return 0, net.ErrClosed
	}
}

func (f *fakeConn) Write(b []byte) (int, error) {
	f.writeCalls.Add(1)
	if f.writeGate != nil {
		select {
		case <-f.writeGate:
		case <-f.closed:
			return 0, net.ErrClosed
		}
	}
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.writes <- append([]byte(nil), b...)
	return len(b), nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 63790}
}

func (f *fakeConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}
}

func (f *fakeConn) SetDeadline(t time.Time) error      { return nil }
func (f *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (f *fakeConn) feed(data string) {
	f.reads <- readResult{data: []byte(data)}
}

func (f *fakeConn) nextWrite(t *testing.T) []byte {
	t.Helper()
	select {
	case b := <-f.writes:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("no write")
		return nil
	}
}

// startFakeConn runs a Conn over f and closes it when the test ends.
func startFakeConn(t *testing.T, f *fakeConn) *Conn {
	c := newConn(f, nil)
	c.run()
	t.Cleanup(func() {
		c.Close()
		<-c.readLoop.Done()
		<-c.writeLoop.Done()
	})
	return c
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

// captureLog sends the global logger to a buffer for the rest of the test.
func captureLog(t *testing.T) *syncBuffer {
	out := &syncBuffer{}
	prev := log.Logger
	log.Logger = zerolog.New(out)
	t.Cleanup(func() { log.Logger = prev })
	return out
}
