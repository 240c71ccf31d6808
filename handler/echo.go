package handler

import (
	"echoloop/buffer"
	"echoloop/meter"
	"errors"

	"github.com/rs/zerolog/log"
)

// Echo writes every byte read from a connection back to it. All
// connections of a process share one Echo, and with it the buffer pool and
// the meter.
type Echo struct {
	pool  *buffer.Pool
	meter *meter.Meter
}

func NewEcho(pool *buffer.Pool, meter *meter.Meter) *Echo {
	return &Echo{pool: pool, meter: meter}
}

func (e *Echo) Pool() *buffer.Pool   { return e.pool }
func (e *Echo) Meter() *meter.Meter { return e.meter }

// Start arms a read on reader. When it completes, the bytes are written to
// writer and the next read is armed right away, without waiting for the
// write.
func (e *Echo) Start(reader, writer *Conn) {
	b := e.pool.Acquire()
	reader.Read(b, writer, &readCompletion{echo: e, reader: reader, writer: writer, buf: b})
}

type readCompletion struct {
	echo   *Echo
	reader *Conn
	writer *Conn
	buf    *buffer.Buffer
}

func (r *readCompletion) Completed(n int, attachment any) {
	if n == EOF {
		// the in-flight buffer is not recycled
		r.reader.Close()
		return
	}

	r.echo.meter.Record(n)
	r.buf.Flip()
	r.writer.Write(r.buf, r.buf, &writeCompletion{echo: r.echo, conn: r.writer})
	r.echo.Start(r.reader, r.writer)
}

func (r *readCompletion) Failed(err error, attachment any) {
	ioFailure(err, attachment)
	r.reader.Close()
}

type writeCompletion struct {
	echo *Echo
	conn *Conn
}

func (w *writeCompletion) Completed(n int, attachment any) {
	w.echo.pool.Recycle(attachment.(*buffer.Buffer))
}

func (w *writeCompletion) Failed(err error, attachment any) {
	ioFailure(err, attachment)
	w.conn.Close()
}

func ioFailure(err error, attachment any) {
	if errors.Is(err, ErrConnClosed) {
		return
	}
	log.Warn().Err(err).Msgf("IO failure in %v", attachment)
}
