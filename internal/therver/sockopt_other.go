//go:build !unix

package therver

import "net"

// tuneListener and tuneConn are no-ops on non-unix platforms: the raw
// socket option tuning in sockopt_unix.go has no portable equivalent here,
// and Go's defaults are acceptable without it.
func tuneListener(net.Listener) error { return nil }
func tuneConn(net.Conn)               {}
