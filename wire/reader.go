package wire

import (
	"encoding/binary"
	"errors"
)

// ErrShortBuffer is returned when a Get* call would read past the end of
// the Reader's buffer — a malformed or truncated message.
var ErrShortBuffer = errors.New("wire: short buffer")

// Reader consumes a message body in the same order a Writer produced it:
// callers pull fixed-width fields for each operation record, then pull
// bulk payload bytes (for writes and read replies) as needed. There is no
// implicit boundary between the op-record region and the payload region;
// callers must know, from Header.Type and Header.Count, how many fixed
// bytes each operation record consumes before trailing bulk data starts.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential consumption.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Remaining returns the number of unconsumed bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// GetU8 consumes one byte.
func (r *Reader) GetU8() (uint8, error) {
	if r.pos+1 > len(r.buf) {
		return 0, ErrShortBuffer
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// GetU32 consumes a little-endian uint32.
func (r *Reader) GetU32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

// GetU64 consumes a little-endian uint64.
func (r *Reader) GetU64() (uint64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

// GetI64 consumes a little-endian int64.
func (r *Reader) GetI64() (int64, error) {
	v, err := r.GetU64()
	return int64(v), err
}

// GetCString consumes a NUL-terminated string (not including the
// terminator in the returned value).
func (r *Reader) GetCString() (string, error) {
	start := r.pos
	for i := r.pos; i < len(r.buf); i++ {
		if r.buf[i] == 0 {
			s := string(r.buf[start:i])
			r.pos = i + 1
			return s, nil
		}
	}
	return "", ErrShortBuffer
}

// GetBytes consumes and returns the next n raw bytes (bulk data region).
// The returned slice aliases the Reader's backing array; callers that
// retain it across further Reader use should copy it.
func (r *Reader) GetBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}
