package therver_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/s-u/osrv/internal/therver"
)

func TestEchoServerAndShutdown(t *testing.T) {
	received := make(chan []byte, 1)
	srv, err := therver.New("127.0.0.1", 0, 4, func(c *therver.Conn) {
		buf := make([]byte, 64)
		n, _ := c.Read(buf)
		if n > 0 {
			received <- append([]byte(nil), buf[:n]...)
		}
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv.Start()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := conn.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.Close()

	select {
	case got := <-received:
		if string(got) != "hello" {
			t.Fatalf("got %q, want %q", got, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for worker to process connection")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if _, err := net.Dial("tcp", srv.Addr().String()); err == nil {
		t.Fatal("expected dial to fail after shutdown")
	}
}

func TestRejectsInvalidWorkerCount(t *testing.T) {
	if _, err := therver.New("127.0.0.1", 0, 0, func(*therver.Conn) {}); err == nil {
		t.Fatal("expected error for 0 workers")
	}
	if _, err := therver.New("127.0.0.1", 0, 1001, func(*therver.Conn) {}); err == nil {
		t.Fatal("expected error for 1001 workers")
	}
}
