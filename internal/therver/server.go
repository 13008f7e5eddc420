// Package therver implements the server runtime of §4.E: an accept
// goroutine feeding a bounded worker pool, process-wide introspection
// registry, and graceful shutdown bookkeeping grounded on
// xact/xs/tcb.go's WaitGroup/refcount shutdown idiom.
package therver

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/teris-io/shortid"

	"github.com/s-u/osrv/internal/cmn/nlog"
)

// Conn is the per-connection record handed to a ProcessFunc. Scratch is an
// opaque per-worker pointer preserved across successive connections
// serviced by the same worker goroutine, mirroring the original's conn_t
// "data" field reuse.
type Conn struct {
	net.Conn
	Scratch interface{}
}

// ProcessFunc services one accepted connection to completion. It owns Conn
// for the duration of the call but must not retain it afterward.
type ProcessFunc func(*Conn)

// Server binds a TCP listener and dispatches accepted connections to a
// fixed pool of worker goroutines pulling from an internal queue.
type Server struct {
	id       string
	ln       net.Listener
	process  ProcessFunc
	workers  int

	taskCh chan net.Conn
	active atomic.Bool

	wg       sync.WaitGroup // tracks live worker goroutines for Shutdown
	acceptWg sync.WaitGroup
}

// New binds host:port (host == "" means any interface) and prepares a pool
// of `workers` goroutines (1..1000, matching the original's validated
// range) to service accepted connections via process. Call Start to begin
// accepting.
func New(host string, port, workers int, process ProcessFunc) (*Server, error) {
	if workers < 1 || workers > 1000 {
		return nil, errors.Errorf("therver: invalid worker count %d (must be 1..1000)", workers)
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(host, itoa(port)))
	if err != nil {
		return nil, errors.Wrap(err, "therver: listen")
	}
	if err := tuneListener(ln); err != nil {
		nlog.Warnf("therver: could not tune listener socket options: %v", err)
	}

	id, _ := shortid.Generate()
	s := &Server{
		id:      id,
		ln:      ln,
		process: process,
		workers: workers,
		taskCh:  make(chan net.Conn, workers),
	}
	s.active.Store(true)
	register(s)
	return s, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Start launches the worker pool and the accept loop. It returns
// immediately; the loops run until Shutdown is called.
func (s *Server) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.workerLoop()
	}
	s.acceptWg.Add(1)
	go s.acceptLoop()
}

func (s *Server) acceptLoop() {
	defer s.acceptWg.Done()
	for s.active.Load() {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.active.Load() {
				nlog.Warnf("therver[%s]: accept: %v", s.id, err)
			}
			return
		}
		tuneConn(conn)
		select {
		case s.taskCh <- conn:
		default:
			// queue momentarily full: block until a worker takes a
			// connection rather than drop it; the channel buffer already
			// matches the worker count so this is rare, and blocking keeps
			// backpressure on slow clients.
			s.taskCh <- conn
		}
	}
}

func (s *Server) workerLoop() {
	defer s.wg.Done()
	var scratch interface{}
	for conn := range s.taskCh {
		if !s.active.Load() {
			_ = conn.Close()
			continue
		}
		c := &Conn{Conn: conn, Scratch: scratch}
		s.process(c)
		scratch = c.Scratch
		_ = conn.Close()
	}
}

// Shutdown marks the server inactive, stops accepting new connections, and
// waits (bounded by ctx) for in-flight workers to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	s.active.Store(false)
	unregister(s.id)
	_ = s.ln.Close()

	done := make(chan struct{})
	go func() {
		s.acceptWg.Wait()
		close(s.taskCh)
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
