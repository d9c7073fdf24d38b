package chunked

import (
	"github.com/tinylib/msgp/msgp"

	"github.com/julea-project/julea/cmn"
)

// Meta is the chunked transformation-object KV record of §6: "{type,
// mode, chunk_count, chunk_size}", msgp array-encoded like object.Meta.
type Meta struct {
	Type       cmn.TransformType
	Mode       cmn.TransformMode
	ChunkCount uint32
	ChunkSize  uint64
}

func (m *Meta) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.AppendArrayHeader(b, 4)
	o = msgp.AppendUint8(o, uint8(m.Type))
	o = msgp.AppendUint8(o, uint8(m.Mode))
	o = msgp.AppendUint32(o, m.ChunkCount)
	o = msgp.AppendUint64(o, m.ChunkSize)
	return o, nil
}

func (m *Meta) UnmarshalMsg(bts []byte) ([]byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, cmn.Wrap(err, "chunked meta: array header")
	}
	if sz != 4 {
		return nil, cmn.Wrapf(cmn.ErrInputInvalid, "chunked meta: array size %d, want 4", sz)
	}
	var typ, mode uint8
	typ, bts, err = msgp.ReadUint8Bytes(bts)
	if err != nil {
		return nil, cmn.Wrap(err, "chunked meta: type")
	}
	mode, bts, err = msgp.ReadUint8Bytes(bts)
	if err != nil {
		return nil, cmn.Wrap(err, "chunked meta: mode")
	}
	m.Type = cmn.TransformType(typ)
	m.Mode = cmn.TransformMode(mode)
	m.ChunkCount, bts, err = msgp.ReadUint32Bytes(bts)
	if err != nil {
		return nil, cmn.Wrap(err, "chunked meta: chunk_count")
	}
	m.ChunkSize, bts, err = msgp.ReadUint64Bytes(bts)
	if err != nil {
		return nil, cmn.Wrap(err, "chunked meta: chunk_size")
	}
	return bts, nil
}

// EncodeMeta/DecodeMeta mirror object.EncodeMeta/DecodeMeta.
func EncodeMeta(m Meta) ([]byte, error) { return m.MarshalMsg(nil) }

func DecodeMeta(b []byte) (Meta, error) {
	var m Meta
	rest, err := m.UnmarshalMsg(b)
	if err != nil {
		return Meta{}, err
	}
	if len(rest) != 0 {
		return Meta{}, cmn.Wrapf(cmn.ErrInputInvalid, "chunked meta: %d trailing bytes", len(rest))
	}
	return m, nil
}
