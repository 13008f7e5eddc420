package sfs

import (
	"encoding/binary"
	"io"
)

// WriterSink writes the flattened SFS stream directly to an io.Writer (a
// file, a raw TCP socket, ...). Grounded on
// original_source/src/fd_store.c's fd-backed store_api_t.
type WriterSink struct {
	w io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink { return &WriterSink{w: w} }

func (s *WriterSink) Store(tag Tag, elemSize, length uint64, payload []byte) error {
	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], (length<<8)|uint64(tag))
	if _, err := s.w.Write(hdr[:]); err != nil {
		return err
	}
	if payload != nil {
		if _, err := s.w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

// ReaderSource reads the SFS stream from an io.Reader, treating any short
// read as fatal (io.ReadFull already enforces this).
type ReaderSource struct {
	r io.Reader
}

func NewReaderSource(r io.Reader) *ReaderSource { return &ReaderSource{r: r} }

func (s *ReaderSource) Fetch(buf []byte) error {
	_, err := io.ReadFull(s.r, buf)
	if err != nil {
		return err
	}
	return nil
}
