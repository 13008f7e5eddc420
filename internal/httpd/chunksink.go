package httpd

import "github.com/s-u/osrv/internal/sfs"

// chunkBufSize is the staging buffer's cap (≤16MiB), matching §4.G.
const chunkBufSize = 16 * 1024 * 1024

// directSendThreshold: an empty buffer receiving a payload at or above this
// size is sent directly as its own chunk rather than copied in first.
const directSendThreshold = 2 * 1024 * 1024

// ChunkSink adapts an HTTP connection into an sfs.Sink, implementing the
// flush-threshold policy of §4.G: flush when the incoming payload exceeds
// free space AND the buffer is at least half full or the payload itself is
// at least 2MiB; send directly, bypassing the buffer, when it is empty and
// the payload is at least 2MiB; otherwise copy into the buffer. Any send
// error latches and is returned by every subsequent call.
type ChunkSink struct {
	conn *Conn
	buf  []byte
	err  error
}

// NewChunkSink wraps conn as an sfs.Sink that writes HTTP chunked frames.
func NewChunkSink(conn *Conn) *ChunkSink {
	return &ChunkSink{conn: conn, buf: make([]byte, 0, chunkBufSize)}
}

var _ sfs.Sink = (*ChunkSink)(nil)

func (s *ChunkSink) Store(tag sfs.Tag, elemSize, length uint64, payload []byte) error {
	if s.err != nil {
		return s.err
	}
	header := encodeHeader(tag, length)
	if err := s.write(header); err != nil {
		return err
	}
	if payload != nil {
		if err := s.write(payload); err != nil {
			return err
		}
	}
	return nil
}

func encodeHeader(tag sfs.Tag, length uint64) []byte {
	hdr := (length << 8) | uint64(tag)
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(hdr >> (8 * i))
	}
	return b[:]
}

func (s *ChunkSink) write(data []byte) error {
	free := cap(s.buf) - len(s.buf)
	half := cap(s.buf) / 2

	if len(data) > free && (len(s.buf) >= half || len(data) >= directSendThreshold) {
		if err := s.flush(); err != nil {
			return err
		}
		free = cap(s.buf)
	}

	if len(s.buf) == 0 && len(data) >= directSendThreshold {
		if err := s.conn.SendChunk(data); err != nil {
			s.err = err
			return err
		}
		return nil
	}

	if len(data) > free {
		// Still doesn't fit: flush whatever is buffered (if any) then send
		// this payload directly rather than growing the staging buffer
		// past its configured cap.
		if err := s.flush(); err != nil {
			return err
		}
		if err := s.conn.SendChunk(data); err != nil {
			s.err = err
			return err
		}
		return nil
	}

	s.buf = append(s.buf, data...)
	return nil
}

func (s *ChunkSink) flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	if err := s.conn.SendChunk(s.buf); err != nil {
		s.err = err
		return err
	}
	s.buf = s.buf[:0]
	return nil
}

// Close flushes any remaining buffered bytes and sends the terminating
// zero-length chunk.
func (s *ChunkSink) Close() error {
	if s.err != nil {
		return s.err
	}
	if err := s.flush(); err != nil {
		return err
	}
	return s.conn.SendChunk(nil)
}
