package handler

import (
	"echoloop/buffer"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

type ClientConfig struct {
	*ConnConfig
	Host string
	Port int
	// OnFatal is called when the seed write fails. The benchmark cannot
	// recover from that, so the process driver exits.
	OnFatal func(err error)
}

func NewClientConfig() *ClientConfig {
	return &ClientConfig{
		ConnConfig: newConnConfig(),
		Host:       "localhost",
		Port:       DefaultPort,
	}
}

// Client is the single connection of the client role. After the seed
// write, the same bytes bounce between client and server indefinitely.
type Client struct {
	Conn   *Conn
	echo   *Echo
	config *ClientConfig
	seeded atomic.Bool
}

// DialConn connects synchronously to the configured server and starts
// echoing on the new connection. It does not seed it.
func DialConn(echo *Echo, config *ClientConfig) (*Client, error) {
	if config == nil {
		config = NewClientConfig()
	}

	d := net.Dialer{Control: dialControl}
	c, err := d.Dial("tcp", net.JoinHostPort(config.Host, fmt.Sprint(config.Port)))
	if err != nil {
		return nil, &ConnectError{Port: config.Port, Err: err}
	}

	conn := newConn(c, config.ConnConfig)
	conn.run()
	log.Debug().Int("conn", conn.Id).Str("local", c.LocalAddr().String()).Msg("client connected")

	cl := &Client{
		Conn:   conn,
		echo:   echo,
		config: config,
	}
	echo.Start(conn, conn)
	return cl, nil
}

// Dial connects and writes one full buffer to bootstrap the echo loop.
func Dial(echo *Echo, config *ClientConfig) (*Client, error) {
	cl, err := DialConn(echo, config)
	if err != nil {
		return nil, err
	}
	cl.Seed()
	return cl, nil
}

// Seed writes one buffer of the pool's size, whatever it contains. Only the
// first call on a client writes.
func (cl *Client) Seed() {
	if !cl.seeded.CompareAndSwap(false, true) {
		return
	}
	b := cl.echo.Pool().Acquire()
	cl.Conn.Write(b, "write", &seedCompletion{client: cl, buf: b})
}

func (cl *Client) Close() {
	cl.Conn.Close()
}

type seedCompletion struct {
	client *Client
	buf    *buffer.Buffer
}

func (s *seedCompletion) Completed(n int, attachment any) {
	s.client.echo.Meter().Start()
	s.client.echo.Pool().Recycle(s.buf)
}

func (s *seedCompletion) Failed(err error, attachment any) {
	log.Warn().Err(err).Msgf("IO failure in %v", attachment)
	if s.client.config.OnFatal != nil {
		s.client.config.OnFatal(err)
	}
}

// ConnectError reports a failed connect to the benchmark server.
type ConnectError struct {
	Port int
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect failed: %d: %v", e.Port, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
