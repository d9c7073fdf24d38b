package wire

import "encoding/binary"

// Writer accumulates a message body: a sequence of fixed-width operation
// records followed by an append-only region of bulk/string data. Callers
// write operation records with Put* and register bulk payloads with
// AppendBytes; both regions are concatenated by Bytes().
//
// Primitives are appended in the order the caller calls them, matching
// the spec's "Writers APPEND in order" rule; readers must Get them back
// in the same order (see Reader).
type Writer struct {
	ops     []byte
	payload []byte
	count   uint16
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Count returns the number of operations recorded so far (incremented by
// BeginOp).
func (w *Writer) Count() uint16 { return w.count }

// BeginOp marks the start of one logical operation record; callers must
// call it once per operation before writing that operation's fields.
func (w *Writer) BeginOp() { w.count++ }

// PutU8 appends a single byte to the operation-record region.
func (w *Writer) PutU8(v uint8) { w.ops = append(w.ops, v) }

// PutU32 appends a little-endian uint32 to the operation-record region.
func (w *Writer) PutU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.ops = append(w.ops, b[:]...)
}

// PutU64 appends a little-endian uint64 to the operation-record region.
func (w *Writer) PutU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.ops = append(w.ops, b[:]...)
}

// PutI64 appends a little-endian int64 to the operation-record region.
func (w *Writer) PutI64(v int64) { w.PutU64(uint64(v)) }

// PutCString appends a NUL-terminated string to the operation-record
// region (length on the wire includes the terminator, per §4.1).
func (w *Writer) PutCString(s string) {
	w.ops = append(w.ops, s...)
	w.ops = append(w.ops, 0)
}

// AppendBytes appends raw bulk bytes to the trailing payload region
// (used for write payloads and read-reply bodies, per §4.1).
func (w *Writer) AppendBytes(b []byte) { w.payload = append(w.payload, b...) }

// Bytes returns the concatenated operation-record region followed by the
// payload region — the message body that Header.Length measures.
func (w *Writer) Bytes() []byte {
	out := make([]byte, 0, len(w.ops)+len(w.payload))
	out = append(out, w.ops...)
	out = append(out, w.payload...)
	return out
}

// Len returns len(Bytes()) without allocating.
func (w *Writer) Len() int { return len(w.ops) + len(w.payload) }
