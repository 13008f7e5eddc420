package httpd

import (
	"fmt"
	"io"
)

var statusText = map[int]string{
	200: "OK",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	411: "Length Required",
	413: "Request Entity Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
}

func reason(code int, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if s, ok := statusText[code]; ok {
		return s
	}
	return "Unknown"
}

// Respond writes the status line and headers. contentLength == -1 omits
// the Content-Length header (used together with chunked transfer via
// SendChunk). extraHeaders, if non-empty, must be complete "Name: value\r\n"
// lines.
func (c *Conn) Respond(code int, text, contentType string, contentLength int64, extraHeaders string) error {
	if contentType == "" {
		contentType = "text/plain"
	}
	if _, err := fmt.Fprintf(c.nc, "HTTP/1.1 %d %s\r\n", code, reason(code, text)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.nc, "Content-Type: %s\r\n", contentType); err != nil {
		return err
	}
	if contentLength >= 0 {
		if _, err := fmt.Fprintf(c.nc, "Content-Length: %d\r\n", contentLength); err != nil {
			return err
		}
	} else {
		if _, err := io.WriteString(c.nc, "Transfer-Encoding: chunked\r\n"); err != nil {
			return err
		}
	}
	if extraHeaders != "" {
		if _, err := io.WriteString(c.nc, extraHeaders); err != nil {
			return err
		}
	}
	_, err := io.WriteString(c.nc, "\r\n")
	return err
}

// sendChunkSize caps a single underlying Write call, matching the
// original's MAX_SEND per-syscall chunking for large bodies.
const sendChunkSize = 1024 * 1024

// Send writes len(buf) raw body bytes, splitting large writes into
// sendChunkSize pieces.
func (c *Conn) Send(buf []byte) error {
	for len(buf) > 0 {
		n := len(buf)
		if n > sendChunkSize {
			n = sendChunkSize
		}
		if _, err := c.nc.Write(buf[:n]); err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// SendChunk writes a single HTTP chunked-transfer frame. len(buf) == 0
// sends the terminating zero-length chunk.
func (c *Conn) SendChunk(buf []byte) error {
	if _, err := fmt.Fprintf(c.nc, "%x\r\n", len(buf)); err != nil {
		return err
	}
	if len(buf) > 0 {
		if _, err := c.nc.Write(buf); err != nil {
			return err
		}
	}
	_, err := io.WriteString(c.nc, "\r\n")
	return err
}
