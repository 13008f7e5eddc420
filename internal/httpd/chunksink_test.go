package httpd_test

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/s-u/osrv/internal/httpd"
	"github.com/s-u/osrv/internal/sfs"
)

func TestChunkSinkRoundTripsThroughRealConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	value := sfs.Ints([]int32{1, 2, 3, 4, 5})

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		go httpd.Serve(c, func(req *httpd.Request, conn *httpd.Conn) {
			_ = conn.Respond(200, "OK", "application/octet-stream", -1, "")
			sink := httpd.NewChunkSink(conn)
			_ = sfs.Encode(sink, value)
			_ = sink.Close()
		})
	}()

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET /data/k HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := bufio.NewReader(conn)
	if _, err := r.ReadString('\n'); err != nil { // status line
		t.Fatalf("read status: %v", err)
	}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read headers: %v", err)
		}
		if line == "\r\n" {
			break
		}
	}

	// Read dechunked body: a minimal chunk-decoder is enough for this test.
	var body []byte
	for {
		sizeLine, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read chunk size: %v", err)
		}
		size, err := strconv.ParseInt(strings.TrimSpace(sizeLine), 16, 64)
		if err != nil {
			t.Fatalf("parse chunk size %q: %v", sizeLine, err)
		}
		if size == 0 {
			break
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			t.Fatalf("read chunk body: %v", err)
		}
		body = append(body, buf...)
		if _, err := r.ReadString('\n'); err != nil { // trailing CRLF
			t.Fatalf("read chunk trailer: %v", err)
		}
	}

	got, err := sfs.Decode(sfs.NewMemSource(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Ints) != 5 || got.Ints[0] != 1 || got.Ints[4] != 5 {
		t.Fatalf("decoded value mismatch: %+v", got)
	}
}
