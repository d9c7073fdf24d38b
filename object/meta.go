package object

import (
	"github.com/tinylib/msgp/msgp"

	"github.com/julea-project/julea/cmn"
)

// Meta is the flat transformation-object KV record of §6: "{type, mode,
// original_size, transformed_size}". It is encoded with msgp using the
// array (not map) form — msgp's `as:array` option — since the field set
// is fixed and ordered, trading self-description for a smaller record.
type Meta struct {
	Type           cmn.TransformType
	Mode           cmn.TransformMode
	OriginalSize   uint64
	TransformedSize uint64
}

// MarshalMsg appends m's msgp encoding to b.
func (m *Meta) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.AppendArrayHeader(b, 4)
	o = msgp.AppendUint8(o, uint8(m.Type))
	o = msgp.AppendUint8(o, uint8(m.Mode))
	o = msgp.AppendUint64(o, m.OriginalSize)
	o = msgp.AppendUint64(o, m.TransformedSize)
	return o, nil
}

// UnmarshalMsg decodes m from the front of bts, returning the remainder.
func (m *Meta) UnmarshalMsg(bts []byte) ([]byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, cmn.Wrap(err, "meta: array header")
	}
	if sz != 4 {
		return nil, cmn.Wrapf(cmn.ErrInputInvalid, "meta: array size %d, want 4", sz)
	}
	var typ, mode uint8
	typ, bts, err = msgp.ReadUint8Bytes(bts)
	if err != nil {
		return nil, cmn.Wrap(err, "meta: type")
	}
	mode, bts, err = msgp.ReadUint8Bytes(bts)
	if err != nil {
		return nil, cmn.Wrap(err, "meta: mode")
	}
	m.Type = cmn.TransformType(typ)
	m.Mode = cmn.TransformMode(mode)
	m.OriginalSize, bts, err = msgp.ReadUint64Bytes(bts)
	if err != nil {
		return nil, cmn.Wrap(err, "meta: original_size")
	}
	m.TransformedSize, bts, err = msgp.ReadUint64Bytes(bts)
	if err != nil {
		return nil, cmn.Wrap(err, "meta: transformed_size")
	}
	return bts, nil
}

// EncodeMeta is a convenience wrapper returning the encoded KV value.
func EncodeMeta(m Meta) ([]byte, error) { return m.MarshalMsg(nil) }

// DecodeMeta is a convenience wrapper parsing a KV value into a Meta.
func DecodeMeta(b []byte) (Meta, error) {
	var m Meta
	rest, err := m.UnmarshalMsg(b)
	if err != nil {
		return Meta{}, err
	}
	if len(rest) != 0 {
		return Meta{}, cmn.Wrapf(cmn.ErrInputInvalid, "meta: %d trailing bytes", len(rest))
	}
	return m, nil
}
