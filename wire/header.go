// Package wire implements the julea binary request/reply protocol (§4.1):
// a fixed header, an operation-count array of fixed-width per-type
// records, and a trailing append-only byte region for strings and bulk
// data. Writers append in order; readers consume in the same order.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/julea-project/julea/cmn"
)

// HeaderSize is the encoded size of Header in bytes.
const HeaderSize = 4 + 4 + 1 + 1 + 2

// Header is the fixed, little-endian message header (§4.1).
type Header struct {
	Length uint32      // total payload bytes following the header
	ID     uint32      // monotonic per-connection message id
	Flags  cmn.Flags   // bitfield: reply / safety bits
	Type   cmn.MsgType // message kind
	Count  uint16      // number of logical operations in this message
}

// Encode writes the header's wire representation into buf, which must be
// at least HeaderSize bytes.
func (h Header) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Length)
	binary.LittleEndian.PutUint32(buf[4:8], h.ID)
	buf[8] = byte(h.Flags)
	buf[9] = byte(h.Type)
	binary.LittleEndian.PutUint16(buf[10:12], h.Count)
}

// DecodeHeader parses a HeaderSize-byte buffer into a Header.
func DecodeHeader(buf []byte) Header {
	return Header{
		Length: binary.LittleEndian.Uint32(buf[0:4]),
		ID:     binary.LittleEndian.Uint32(buf[4:8]),
		Flags:  cmn.Flags(buf[8]),
		Type:   cmn.MsgType(buf[9]),
		Count:  binary.LittleEndian.Uint16(buf[10:12]),
	}
}

// IsReply reports whether the reply bit is set.
func (h Header) IsReply() bool { return h.Flags&cmn.FlagReply != 0 }

// Safety decodes the safety bits carried in Flags.
func (h Header) Safety() cmn.Safety {
	switch {
	case h.Flags&cmn.FlagSafetyStorage != 0:
		return cmn.SafetyStorage
	case h.Flags&cmn.FlagSafetyNetwork != 0:
		return cmn.SafetyNetwork
	default:
		return cmn.SafetyNone
	}
}

// ReadHeader reads and decodes one Header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	return DecodeHeader(buf[:]), nil
}

// WriteHeader encodes and writes h to w.
func WriteHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	h.Encode(buf[:])
	_, err := w.Write(buf[:])
	return err
}
