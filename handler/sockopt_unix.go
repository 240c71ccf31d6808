//go:build unix

package handler

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func listenControl(network, address string, c syscall.RawConn) error {
	return setsockopt(c, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

func dialControl(network, address string, c syscall.RawConn) error {
	return setNoDelay(c)
}

func setNoDelay(c syscall.RawConn) error {
	return setsockopt(c, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
}

func setsockopt(c syscall.RawConn, level, opt, value int) error {
	var serr error
	err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), level, opt, value)
	})
	if err != nil {
		return err
	}
	return serr
}
