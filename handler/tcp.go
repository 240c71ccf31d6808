package handler

import (
	"context"
	"echoloop/ds"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

const DefaultPort = 63790

type TCPServer struct {
	ConnMap  *ds.Map[int, *Conn]
	listener net.Listener
	echo     *Echo
	config   *TCPServerConfig
	closed   atomic.Bool
}

type TCPServerConfig struct {
	*ConnConfig
	Port int
}

func NewTCPServerConfig() *TCPServerConfig {
	return &TCPServerConfig{
		ConnConfig: newConnConfig(),
		Port:       DefaultPort,
	}
}

func NewTCPServer(echo *Echo, config *TCPServerConfig) *TCPServer {
	if config == nil {
		config = NewTCPServerConfig()
	}
	return &TCPServer{
		ConnMap: ds.NewMap[int, *Conn](1024),
		echo:    echo,
		config:  config,
	}
}

// Listen binds all interfaces on the configured port.
func (s *TCPServer) Listen() error {
	lc := net.ListenConfig{Control: listenControl}
	l, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("bind failed: %d: %w", s.config.Port, err)
	}
	s.listener = l
	return nil
}

func (s *TCPServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Run accepts connections until the listener fails or the server is
// closed. Every accepted connection echoes to itself. Run listens first if
// Listen has not been called.
func (s *TCPServer) Run() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	for {
		c, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.echo.Meter().StartOnce()
		s.serve(c)
	}
}

func (s *TCPServer) serve(c net.Conn) {
	if tc, ok := c.(*net.TCPConn); ok {
		if raw, err := tc.SyscallConn(); err == nil {
			if err := setNoDelay(raw); err != nil {
				log.Debug().Err(err).Str("remote", c.RemoteAddr().String()).Msg("set socket option")
			}
		}
	}

	conn := newConn(c, s.config.ConnConfig)
	conn.onClose = func(conn *Conn) {
		s.ConnMap.Delete(conn.Id)
		log.Debug().Int("conn", conn.Id).Int("live", s.ConnMap.Len()).Msg("server connection closed")
	}
	s.ConnMap.Store(conn.Id, conn)
	log.Debug().Int("conn", conn.Id).Str("remote", c.RemoteAddr().String()).Msg("server accepted")

	conn.run()
	s.echo.Start(conn, conn)
}

// Close stops accepting and closes every live connection.
func (s *TCPServer) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if s.listener != nil {
		err = s.listener.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	}
	s.ConnMap.Range(func(id int, c *Conn) bool {
		c.Close()
		return true
	})
	return err
}
