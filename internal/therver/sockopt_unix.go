//go:build unix

package therver

import (
	"net"

	"golang.org/x/sys/unix"
)

// tuneListener sets SO_REUSEADDR on the listening socket, matching
// original_source/src/therver.c's setsockopt call (Go's net package
// already sets this by default on most platforms, but we set it
// explicitly for parity). The raw fd is reached through the bound
// listener's SyscallConn, so the option is applied after bind.
func tuneListener(ln net.Listener) error {
	tl, ok := ln.(*net.TCPListener)
	if !ok {
		return nil
	}
	sc, err := tl.SyscallConn()
	if err != nil {
		return err
	}
	var setErr error
	err = sc.Control(func(fd uintptr) {
		setErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return setErr
}

// tuneConn sets TCP_NODELAY on an accepted connection, matching
// original_source/src/osrv.c's do_process setsockopt call.
func tuneConn(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	sc, err := tc.SyscallConn()
	if err != nil {
		return
	}
	_ = sc.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
}
