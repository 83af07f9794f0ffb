package tiff

import (
	"encoding/binary"
	"errors"
	"io"
)

// reader is a random-access view over the TIFF input with the byte order
// declared by the file header. The order is latched once during the header
// parse and stays fixed for the session.
type reader struct {
	rs    io.ReadSeeker
	order binary.ByteOrder
}

func newReader(rs io.ReadSeeker) *reader {
	return &reader{rs: rs, order: binary.BigEndian}
}

func (r *reader) seek(offset int64) error {
	_, err := r.rs.Seek(offset, io.SeekStart)
	return err
}

func (r *reader) pos() (int64, error) {
	return r.rs.Seek(0, io.SeekCurrent)
}

func (r *reader) readFull(p []byte) error {
	_, err := io.ReadFull(r.rs, p)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}

// readAt reads len(p) bytes starting at offset, leaving the position after
// the read.
func (r *reader) readAt(p []byte, offset int64) error {
	if err := r.seek(offset); err != nil {
		return err
	}
	return r.readFull(p)
}

func (r *reader) u16() (uint16, error) {
	var b [2]byte
	if err := r.readFull(b[:]); err != nil {
		return 0, err
	}
	return r.order.Uint16(b[:]), nil
}

func (r *reader) u32() (uint32, error) {
	var b [4]byte
	if err := r.readFull(b[:]); err != nil {
		return 0, err
	}
	return r.order.Uint32(b[:]), nil
}

// section returns a reader over n bytes starting at offset. A negative n
// yields an unbounded view from offset to EOF (used when byte counts are
// missing and the codec is stream-bounded).
func (r *reader) section(offset, n int64) (io.Reader, error) {
	if err := r.seek(offset); err != nil {
		return nil, err
	}
	if n < 0 {
		return r.rs, nil
	}
	return io.LimitReader(r.rs, n), nil
}
