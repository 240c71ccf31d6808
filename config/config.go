package config

import (
	"errors"
	"fmt"

	"github.com/docopt/docopt-go"
)

const Usage = `Asynchronous TCP echo loopback benchmark.

Usage:
  echoloop [-c] [-b <size>]
  echoloop -h | --help

Options:
  -c, --client               Use as client.
  -b <size>, --buffer <size>  Buffer size [default: 768].
  -h, --help                 Show this screen.
`

const (
	DefaultBufferSize = 768
	DefaultPort       = 63790
	DefaultHost       = "localhost"
	DefaultInterval   = 100000
)

var ErrUsage = errors.New("usage")

type Config struct {
	Client     bool
	BufferSize int
	Host       string
	Port       int
	// Interval is the number of reads between two throughput reports.
	Interval int64
}

func NewConfig() *Config {
	return &Config{
		BufferSize: DefaultBufferSize,
		Host:       DefaultHost,
		Port:       DefaultPort,
		Interval:   DefaultInterval,
	}
}

func (c *Config) Role() string {
	if c.Client {
		return "client"
	}
	return "server"
}

// Parse reads the command line arguments (without the program name). help
// is called with the usage text when -h is given; it normally exits.
func Parse(argv []string, help func(usage string)) (*Config, error) {
	p := &docopt.Parser{
		HelpHandler: func(err error, usage string) {
			if err == nil && help != nil {
				help(usage)
			}
		},
	}
	opts, err := p.ParseArgs(Usage, argv, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if opts == nil {
		// help was requested and the handler returned
		return nil, ErrUsage
	}

	c := NewConfig()
	if c.Client, err = opts.Bool("--client"); err != nil {
		return nil, fmt.Errorf("%w: --client: %v", ErrUsage, err)
	}
	if c.BufferSize, err = opts.Int("--buffer"); err != nil {
		return nil, fmt.Errorf("%w: --buffer: %v", ErrUsage, err)
	}
	if c.BufferSize < 1 {
		return nil, fmt.Errorf("%w: --buffer must be positive, got %d", ErrUsage, c.BufferSize)
	}
	return c, nil
}
