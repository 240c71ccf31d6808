package main

import (
	"echoloop/buffer"
	"echoloop/config"
	"echoloop/handler"
	"echoloop/logger"
	"echoloop/meter"
	"errors"
	"fmt"
	"os"

	"github.com/labstack/gommon/bytes"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	logger.Setup(os.Stderr, zerolog.InfoLevel)

	c, err := config.Parse(os.Args[1:], func(usage string) {
		fmt.Println(usage)
		os.Exit(0)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, config.Usage)
		os.Exit(1)
	}

	pool := buffer.NewPool(c.BufferSize)
	echo := handler.NewEcho(pool, meter.New(c.BufferSize, c.Interval, os.Stdout))

	log.Info().
		Str("role", c.Role()).
		Int("port", c.Port).
		Str("buffer", bytes.Format(int64(c.BufferSize))).
		Msg("starting echo loopback")

	if c.Client {
		runClient(c, echo)
	} else {
		runServer(c, echo)
	}

	// never signaled; the process runs until it is killed
	done := make(chan struct{})
	<-done
}

func runServer(c *config.Config, echo *handler.Echo) {
	sc := handler.NewTCPServerConfig()
	sc.Port = c.Port
	s := handler.NewTCPServer(echo, sc)
	if err := s.Listen(); err != nil {
		fatal(err, "bind")
	}

	go func() {
		if err := s.Run(); err != nil {
			fatal(err, "accept")
		}
	}()
}

func runClient(c *config.Config, echo *handler.Echo) {
	cc := handler.NewClientConfig()
	cc.Host = c.Host
	cc.Port = c.Port
	cc.OnFatal = func(err error) { os.Exit(1) }

	if _, err := handler.Dial(echo, cc); err != nil {
		var ce *handler.ConnectError
		if errors.As(err, &ce) {
			fatal(ce.Err, fmt.Sprintf("connect failed: %d", ce.Port))
		}
		fatal(err, "connect")
	}
}

func fatal(err error, attachment string) {
	log.Warn().Err(err).Msgf("IO failure in %s", attachment)
	os.Exit(1)
}
