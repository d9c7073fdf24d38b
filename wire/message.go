package wire

import (
	"io"

	"github.com/julea-project/julea/cmn"
)

// Message is one framed request or reply: a Header plus the body bytes
// described by Header.Length/Header.Count.
type Message struct {
	Header Header
	Body   []byte
}

// NewRequest builds a request Message from a Writer, the next message id,
// and the semantics that determine the safety bits (§4.1). The reply bit
// is never set on a request.
func NewRequest(id uint32, typ cmn.MsgType, safety cmn.Safety, w *Writer) *Message {
	body := w.Bytes()
	return &Message{
		Header: Header{
			Length: uint32(len(body)),
			ID:     id,
			Flags:  safety.Flags(),
			Type:   typ,
			Count:  w.Count(),
		},
		Body: body,
	}
}

// NewReply builds a reply Message that copies the originator's id and
// sets the reply bit, per §4.1 ("A reply message copies the originator's
// id; its flags has the reply bit set").
func NewReply(req Header, w *Writer) *Message {
	body := w.Bytes()
	return &Message{
		Header: Header{
			Length: uint32(len(body)),
			ID:     req.ID,
			Flags:  req.Flags | cmn.FlagReply,
			Type:   req.Type,
			Count:  w.Count(),
		},
		Body: body,
	}
}

// WriteTo frames and writes the message to w.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	var hdr [HeaderSize]byte
	m.Header.Encode(hdr[:])
	n1, err := w.Write(hdr[:])
	if err != nil {
		return int64(n1), err
	}
	n2, err := w.Write(m.Body)
	return int64(n1 + n2), err
}

// ReadMessage reads one framed message from r.
func ReadMessage(r io.Reader) (*Message, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	body := make([]byte, hdr.Length)
	if hdr.Length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, err
		}
	}
	return &Message{Header: hdr, Body: body}, nil
}

// Reader returns a Reader positioned at the start of the message body.
func (m *Message) Reader() *Reader { return NewReader(m.Body) }
