//go:build !unix

package handler

import "syscall"

func listenControl(network, address string, c syscall.RawConn) error { return nil }

func dialControl(network, address string, c syscall.RawConn) error { return nil }

func setNoDelay(c syscall.RawConn) error { return nil }
