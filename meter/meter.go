// Package meter accumulates echoed traffic and prints the request and
// byte rate once per reporting window.
package meter

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

const DefaultInterval = 100000

// Meter is shared by every connection of a process. The window reset is
// not linearized with concurrent Record calls, so a report may miss a few
// messages that land across the boundary.
type Meter struct {
	bufferSize int64
	interval   int64
	out        io.Writer
	now        func() time.Time

	messages atomic.Int64
	bytes    atomic.Int64
	startMs  atomic.Int64
}

func New(bufferSize int, interval int64, out io.Writer) *Meter {
	if bufferSize < 1 {
		bufferSize = 1
	}
	if interval < 1 {
		interval = DefaultInterval
	}
	return &Meter{
		bufferSize: int64(bufferSize),
		interval:   interval,
		out:        out,
		now:        time.Now,
	}
}

// Start opens a new window at the current time.
func (m *Meter) Start() {
	m.startMs.Store(m.nowMs())
}

// StartOnce opens the first window unless one is already open.
func (m *Meter) StartOnce() {
	m.startMs.CompareAndSwap(0, m.nowMs())
}

// Record accounts one completed read of n bytes and reports when the
// window is full. It returns true if a line was printed.
func (m *Meter) Record(n int) bool {
	m.StartOnce()
	current := m.messages.Add(1)
	m.bytes.Add(int64(n))
	if current%m.interval != 0 {
		return false
	}
	m.report()
	return true
}

func (m *Meter) report() {
	end := m.nowMs()
	elapsed := end - m.startMs.Load()
	if elapsed < 1 {
		elapsed = 1
	}

	total := m.bytes.Load()
	rps := total / m.bufferSize * 1000 / elapsed
	mbps := float64(total) * 1000 / float64(elapsed) / 1024 / 1024
	fmt.Fprintf(m.out, "RPS: %d MB/s: %2.6g\n", rps, mbps)

	m.messages.Store(0)
	m.bytes.Store(0)
	m.startMs.Store(end)
}

// Snapshot returns the counters of the current window.
func (m *Meter) Snapshot() (messages, bytes int64) {
	return m.messages.Load(), m.bytes.Load()
}

func (m *Meter) StartMs() int64 {
	return m.startMs.Load()
}

func (m *Meter) nowMs() int64 {
	return m.now().UnixMilli()
}
