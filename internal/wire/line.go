// Package wire implements the two external protocols of §6: the "osrv"
// TCP line protocol (§6.1) and the "ohsrv" HTTP routes (§6.2), both built
// atop internal/objstore, internal/depsvc, internal/evqueue and
// internal/sfs.
package wire

import (
	"bufio"
	"net"
	"strconv"
	"strings"

	"github.com/s-u/osrv/internal/cmn/nlog"
	"github.com/s-u/osrv/internal/depsvc"
	"github.com/s-u/osrv/internal/httpd"
	"github.com/s-u/osrv/internal/objstore"
	"github.com/s-u/osrv/internal/sfs"
	"github.com/s-u/osrv/internal/therver"
)

// LineProtocol implements the GET/HAS/DEL/PUT commands of §6.1 against a
// Store, as a therver.ProcessFunc. Deps is optional; when set, a successful
// PUT triggers dependency completion for that key after the store's own
// mutex has been released, matching deps.c's documented (if, in the
// original, never actually wired) "used by object store to notify dep_queue
// on completion of requirements" contract.
type LineProtocol struct {
	Store *objstore.Store
	Deps  *depsvc.Tracker
}

// Serve is a therver.ProcessFunc driving the command loop for one
// connection, grounded on original_source/src/osrv.c's do_process.
func (p *LineProtocol) Serve(c *therver.Conn) {
	r := bufio.NewReaderSize(c, 64*1024)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		cmd, arg := splitCommand(line)
		switch cmd {
		case "GET":
			if !p.handleGet(c, arg) {
				return
			}
		case "HAS":
			p.handleHas(c, arg)
		case "DEL":
			p.handleDel(c, arg)
		case "PUT":
			if !p.handlePut(c, r, arg) {
				return
			}
		default:
			if writeLine(c, "UNSUPP\n") != nil {
				return
			}
		}
	}
}

func splitCommand(line string) (cmd, arg string) {
	i := 0
	for i < len(line) && line[i] >= 'A' && line[i] <= 'Z' {
		i++
	}
	cmd = line[:i]
	arg = strings.TrimLeft(line[i:], " \t")
	return
}

func writeLine(c net.Conn, s string) error {
	_, err := c.Write([]byte(s))
	return err
}

// handleGet returns false when the connection must be closed after this
// call: a structured artifact is sent as "OK ?\n" followed by a raw SFS
// stream that, per §6.1, runs until the socket closes rather than being
// framed by a length prefix.
func (p *LineProtocol) handleGet(c *therver.Conn, key string) bool {
	art, ok := p.Store.Get(key, false)
	if !ok {
		_ = writeLine(c, "NF\n")
		return true
	}
	if art.Structured != nil {
		if writeLine(c, "OK ?\n") != nil {
			return false
		}
		sink := newLineSink(c)
		_ = sfs.Encode(sink, *art.Structured)
		return false
	}
	_ = writeLine(c, "OK "+strconv.FormatUint(uint64(len(art.Raw)), 10)+"\n")
	_ = p.write(c, art.Raw)
	return true
}

// lineSink adapts a line-protocol connection into an sfs.Sink: each
// record's header and payload are written straight onto the socket with no
// additional framing, since the stream's end is the connection closing
// (unlike httpd.ChunkSink, which frames records as HTTP chunks).
type lineSink struct {
	conn net.Conn
	err  error
}

func newLineSink(conn net.Conn) *lineSink { return &lineSink{conn: conn} }

var _ sfs.Sink = (*lineSink)(nil)

func (s *lineSink) Store(tag sfs.Tag, elemSize, length uint64, payload []byte) error {
	if s.err != nil {
		return s.err
	}
	hdr := (length << 8) | uint64(tag)
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(hdr >> (8 * i))
	}
	if _, err := s.conn.Write(b[:]); err != nil {
		s.err = err
		return err
	}
	if payload != nil {
		if _, err := s.conn.Write(payload); err != nil {
			s.err = err
			return err
		}
	}
	return nil
}

func (p *LineProtocol) write(c net.Conn, buf []byte) error {
	const maxSend = 1024 * 1024
	for len(buf) > 0 {
		n := len(buf)
		if n > maxSend {
			n = maxSend
		}
		if _, err := c.Write(buf[:n]); err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

func (p *LineProtocol) handleHas(c *therver.Conn, key string) {
	if _, ok := p.Store.Get(key, false); ok {
		_ = writeLine(c, "OK\n")
	} else {
		_ = writeLine(c, "NF\n")
	}
}

func (p *LineProtocol) handleDel(c *therver.Conn, key string) {
	if _, ok := p.Store.Get(key, true); ok {
		_ = writeLine(c, "OK\n")
	} else {
		_ = writeLine(c, "NF\n")
	}
}

// handlePut parses "<key>\n<N>\n" (key arrives as the command's argument;
// N is read here from the *next* line per the wire grammar) followed by
// exactly N raw bytes. Returns false if the connection must be closed
// (short body before EOF, per SPEC_FULL.md §9's resolution of Open
// Question 4).
func (p *LineProtocol) handlePut(c *therver.Conn, r *bufio.Reader, key string) bool {
	lenLine, err := r.ReadString('\n')
	if err != nil {
		return false
	}
	lenLine = strings.TrimRight(lenLine, "\r\n")

	if lenLine == "?" {
		// Unknown-size streamed PUT is not supported yet.
		_ = writeLine(c, "UNSUPP\n")
		return true
	}

	n, err := strconv.ParseInt(lenLine, 10, 64)
	if err != nil || n < 0 {
		_ = writeLine(c, "INV\n")
		return true
	}
	if n > httpd.MaxContentLength {
		// Declared length is parseable but unreasonably large: reject
		// with ERR (OOM) per §6.1 rather than attempting the allocation.
		_ = writeLine(c, "ERR\n")
		return true
	}
	if n == 0 {
		p.Store.Put(key, nil, nil)
		p.completeDep(key)
		_ = writeLine(c, "OK\n")
		return true
	}

	buf := make([]byte, n)
	if _, err := readFullFrom(r, buf); err != nil {
		nlog.Debugf("wire: short PUT body for key=%q, closing connection", key)
		return false
	}
	p.Store.Put(key, buf, nil)
	p.completeDep(key)
	_ = writeLine(c, "OK\n")
	return true
}

func (p *LineProtocol) completeDep(key string) {
	if p.Deps != nil {
		p.Deps.Complete(key)
	}
}

func readFullFrom(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
