// Package object implements the transformation object of §4.6: an
// object-store object paired with a KV-stored metadata record and a
// transformation policy (type, mode). Every public operation enqueues one
// or more batch.Op values; the actual I/O and transformation happen when
// the batch executes.
package object

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/julea-project/julea/batch"
	"github.com/julea-project/julea/client"
	"github.com/julea-project/julea/cmn"
	"github.com/julea-project/julea/transform"
	"github.com/julea-project/julea/wire"
	"github.com/julea-project/julea/xxhash"
)

// Object is the client-side handle of §3/§4.6.
type Object struct {
	Namespace string
	Name      string
	Index     int // hash(name) mod object server count

	refcount int32

	mu      sync.Mutex
	haveMeta bool
	meta    Meta
}

// New is the pure allocation of §4.6: "index = hash(name) mod S; no I/O."
func New(cl *client.Client, ns, name string) *Object {
	return &Object{
		Namespace: ns,
		Name:      name,
		Index:     xxhash.ServerIndex(name, cl.ServerCount(cmn.BackendObject)),
		refcount:  1,
	}
}

// String renders a short human-readable identity, e.g. "bench/o#3".
func (o *Object) String() string {
	return o.Namespace + "/" + o.Name + "#" + itoa(o.Index)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// IncRef/DecRef track the per-object reference count of §5 ("atomic
// increment/decrement").
func (o *Object) IncRef() { atomic.AddInt32(&o.refcount, 1) }
func (o *Object) DecRef() int32 { return atomic.AddInt32(&o.refcount, -1) }

// Stat groups the fields Status reports. Status itself does not return a
// Stat: it fills the caller-supplied pointers, any of which may be nil.
type Stat struct {
	MTime          time.Time
	OriginalSize   uint64
	TransformedSize uint64
	Type           cmn.TransformType
}

func metaKey(ns, name string) string { return ns + "\x00" + name }

// runKey groups pipeline operations into the same batch run (§4.5): same
// client, backend kind, server index, namespace and message type share one
// wire message.
type runKey struct {
	cl      *client.Client
	kind    cmn.BackendKind
	index   int
	ns      string
	msgType cmn.MsgType
}

// --- Create ---------------------------------------------------------------

type createData struct {
	obj  *Object
	typ  cmn.TransformType
	mode cmn.TransformMode
}

// Create establishes the transformation, writes the metadata KV record,
// and enqueues a create against the object store (§4.6).
func Create(cl *client.Client, o *Object, b *batch.Batch, typ cmn.TransformType, mode cmn.TransformMode) {
	o.mu.Lock()
	o.meta = Meta{Type: typ, Mode: mode}
	o.haveMeta = true
	o.mu.Unlock()

	b.Enqueue(&batch.Op{
		Key:  runKey{cl, cmn.BackendObject, o.Index, o.Namespace, cmn.MsgTransformationObjectCreate},
		Exec: execCreateRun,
		Data: createData{o, typ, mode},
	})
}

func execCreateRun(ops []*batch.Op, sem cmn.Semantics) bool {
	cl := ops[0].Key.(runKey).cl
	ns := ops[0].Key.(runKey).ns

	ok := true
	// Metadata KV record, one put per object, independent of the object
	// store round trip ("in parallel" per §4.6 — done synchronously here
	// since the client has no asynchrony, but before/alongside the create).
	for _, op := range ops {
		d := op.Data.(createData)
		val, err := EncodeMeta(Meta{Type: d.typ, Mode: d.mode})
		if err != nil {
			ok = false
			continue
		}
		if err := putKV(cl, ns, d.obj.Name, val); err != nil {
			ok = false
		}
	}

	if cl.HasLocalObjectBackend() {
		for _, op := range ops {
			d := op.Data.(createData)
			h, err := cl.ObjectBackend.Create(ns, d.obj.Name)
			if err != nil {
				ok = false
				continue
			}
			if err := cl.ObjectBackend.Close(h); err != nil {
				ok = false
			}
		}
		return ok
	}

	w := wire.NewWriter()
	w.PutCString(ns)
	for _, op := range ops {
		d := op.Data.(createData)
		w.BeginOp()
		w.PutCString(d.obj.Name)
	}
	req := cl.NextMessage(cmn.MsgTransformationObjectCreate, sem.Safety, w)
	reply, err := cl.SendRecv(cmn.BackendObject, ops[0].Key.(runKey).index, req, sem.Safety.RequiresReply())
	if err != nil {
		return false
	}
	if reply != nil && int(reply.Header.Count) != len(ops) {
		return false
	}
	return ok
}

// --- Delete -----------------------------------------------------------------

type deleteData struct{ obj *Object }

// Delete enqueues a KV delete of the metadata record and an object delete
// (§4.6).
func Delete(cl *client.Client, o *Object, b *batch.Batch) {
	b.Enqueue(&batch.Op{
		Key:  runKey{cl, cmn.BackendObject, o.Index, o.Namespace, cmn.MsgTransformationObjectDelete},
		Exec: execDeleteRun,
		Data: deleteData{o},
	})
}

func execDeleteRun(ops []*batch.Op, sem cmn.Semantics) bool {
	cl := ops[0].Key.(runKey).cl
	ns := ops[0].Key.(runKey).ns

	ok := true
	for _, op := range ops {
		d := op.Data.(deleteData)
		if err := deleteKV(cl, ns, d.obj.Name); err != nil {
			ok = false
		}
	}

	if cl.HasLocalObjectBackend() {
		for _, op := range ops {
			d := op.Data.(deleteData)
			h, err := cl.ObjectBackend.Open(ns, d.obj.Name)
			if err != nil {
				ok = false
				continue
			}
			if err := cl.ObjectBackend.Delete(h); err != nil {
				ok = false
			}
		}
		return ok
	}

	w := wire.NewWriter()
	w.PutCString(ns)
	for _, op := range ops {
		d := op.Data.(deleteData)
		w.BeginOp()
		w.PutCString(d.obj.Name)
	}
	req := cl.NextMessage(cmn.MsgTransformationObjectDelete, sem.Safety, w)
	reply, err := cl.SendRecv(cmn.BackendObject, ops[0].Key.(runKey).index, req, sem.Safety.RequiresReply())
	if err != nil {
		return false
	}
	if reply != nil && int(reply.Header.Count) != len(ops) {
		return false
	}
	return ok
}

// --- Status -------------------------------------------------------------

type statusData struct {
	obj          *Object
	mtime        *time.Time
	origSize     *uint64
	transSize    *uint64
	typ          *cmn.TransformType
}

// Status enqueues a status read; on completion it copies the reply's
// mtime and the memoised logical sizes from the KV metadata record (§4.6:
// "physical size from the backend is NOT a trustworthy proxy").
func Status(cl *client.Client, o *Object, b *batch.Batch, mtime *time.Time, origSize *uint64, transSize *uint64, typ *cmn.TransformType) {
	b.Enqueue(&batch.Op{
		Key:  runKey{cl, cmn.BackendObject, o.Index, o.Namespace, cmn.MsgTransformationObjectStatus},
		Exec: execStatusRun,
		Data: statusData{o, mtime, origSize, transSize, typ},
	})
}

func execStatusRun(ops []*batch.Op, sem cmn.Semantics) bool {
	cl := ops[0].Key.(runKey).cl
	ns := ops[0].Key.(runKey).ns
	ok := true

	mtimes := make([]time.Time, len(ops))

	if cl.HasLocalObjectBackend() {
		for i, op := range ops {
			d := op.Data.(statusData)
			h, err := cl.ObjectBackend.Open(ns, d.obj.Name)
			if err != nil {
				ok = false
				continue
			}
			mt, _, err := cl.ObjectBackend.Status(h)
			_ = cl.ObjectBackend.Close(h)
			if err != nil {
				ok = false
				continue
			}
			mtimes[i] = mt
		}
	} else {
		w := wire.NewWriter()
		w.PutCString(ns)
		for _, op := range ops {
			d := op.Data.(statusData)
			w.BeginOp()
			w.PutCString(d.obj.Name)
		}
		req := cl.NextMessage(cmn.MsgTransformationObjectStatus, sem.Safety, w)
		reply, err := cl.SendRecv(cmn.BackendObject, ops[0].Key.(runKey).index, req, true)
		if err != nil {
			return false
		}
		r := reply.Reader()
		for i := range ops {
			mt, err := r.GetI64()
			if err != nil {
				ok = false
				break
			}
			if _, err := r.GetU64(); err != nil { // physical size, unused here
				ok = false
				break
			}
			mtimes[i] = time.Unix(0, mt)
		}
	}

	for i, op := range ops {
		d := op.Data.(statusData)
		if err := ensureMeta(cl, ns, d.obj); err != nil {
			ok = false
			continue
		}
		if d.mtime != nil {
			*d.mtime = mtimes[i]
		}
		d.obj.mu.Lock()
		m := d.obj.meta
		d.obj.mu.Unlock()
		if d.origSize != nil {
			*d.origSize = m.OriginalSize
		}
		if d.transSize != nil {
			*d.transSize = m.TransformedSize
		}
		if d.typ != nil {
			*d.typ = m.Type
		}
	}
	return ok
}

// --- Read -----------------------------------------------------------------

type readData struct {
	obj       *Object
	buf       []byte
	off, length uint64
	bytesRead *uint64
}

// Read chunks the request by max_operation_size and enqueues one pipeline
// read per chunk (§4.6).
func Read(cl *client.Client, o *Object, buf []byte, length, off uint64, bytesRead *uint64, b *batch.Batch) {
	for _, rng := range batch.ChunkRange(off, length, cl.Config.MaxOperationSize) {
		chunkOff, chunkLen := rng[0], rng[1]
		relOff := chunkOff - off
		b.Enqueue(&batch.Op{
			Key:  runKey{cl, cmn.BackendObject, o.Index, o.Namespace, cmn.MsgTransformationObjectRead},
			Exec: execReadRun,
			Data: readData{o, buf[relOff : relOff+chunkLen], chunkOff, chunkLen, bytesRead},
		})
	}
}

func execReadRun(ops []*batch.Op, sem cmn.Semantics) bool {
	cl := ops[0].Key.(runKey).cl
	ns := ops[0].Key.(runKey).ns
	ok := true

	var batched []*batch.Op
	for _, op := range ops {
		d := op.Data.(readData)
		if err := ensureMeta(cl, ns, d.obj); err != nil {
			ok = false
			continue
		}
		d.obj.mu.Lock()
		mode, typ := d.obj.meta.Mode, d.obj.meta.Type
		d.obj.mu.Unlock()

		if mode == cmn.ModeClient && transform.NeedWholeObject(typ, cmn.CallerClientRead) {
			if err := readWholeObjectClient(cl, ns, d); err != nil {
				ok = false
			}
			continue
		}
		batched = append(batched, op)
	}

	if len(batched) == 0 {
		return ok
	}
	if !execReadBatched(cl, ns, batched, sem) {
		ok = false
	}
	return ok
}

// readWholeObjectClient implements §4.6 read-execution case 1: fetch the
// whole encoded object, decode it, and copy out the requested window.
func readWholeObjectClient(cl *client.Client, ns string, d readData) error {
	d.obj.mu.Lock()
	transSize := d.obj.meta.TransformedSize
	origSize := d.obj.meta.OriginalSize
	typ := d.obj.meta.Type
	d.obj.mu.Unlock()

	encoded := make([]byte, transSize)
	if err := readRaw(cl, ns, d.obj, cmn.BackendObject, encoded, 0); err != nil {
		return err
	}
	decoded, err := transform.Apply(typ, true, encoded, int(origSize))
	if err != nil {
		return err
	}
	n := copy(d.buf, decoded[d.off:d.off+d.length])
	transform.Cleanup(encoded)
	transform.Cleanup(decoded)
	batch.AddUint64(d.bytesRead, uint64(n))
	return nil
}

// execReadBatched handles the partial-codec and SERVER-mode branches of
// §4.6: issue the read(s) directly (batched into one wire message) and
// apply the CLIENT-mode inverse transform in place where needed.
func execReadBatched(cl *client.Client, ns string, ops []*batch.Op, sem cmn.Semantics) bool {
	index := ops[0].Key.(runKey).index

	if cl.HasLocalObjectBackend() {
		ok := true
		for _, op := range ops {
			d := op.Data.(readData)
			h, err := cl.ObjectBackend.Open(ns, d.obj.Name)
			if err != nil {
				ok = false
				continue
			}
			n, err := cl.ObjectBackend.Read(h, d.buf, d.length, d.off)
			_ = cl.ObjectBackend.Close(h)
			if err != nil {
				ok = false
				continue
			}
			if err := applyInverseIfClientMode(d.obj, d.buf[:n]); err != nil {
				ok = false
				continue
			}
			batch.AddUint64(d.bytesRead, uint64(n))
		}
		return ok
	}

	w := wire.NewWriter()
	w.PutCString(ns)
	for _, op := range ops {
		d := op.Data.(readData)
		w.BeginOp()
		d.obj.mu.Lock()
		w.PutU8(uint8(d.obj.meta.Mode))
		w.PutU8(uint8(d.obj.meta.Type))
		d.obj.mu.Unlock()
		w.PutCString(d.obj.Name)
		w.PutU64(d.length)
		w.PutU64(d.off)
	}
	req := cl.NextMessage(cmn.MsgTransformationObjectRead, sem.Safety, w)
	reply, err := cl.SendRecv(cmn.BackendObject, index, req, true)
	if err != nil {
		return false
	}

	// A Writer always places every operation's fixed-width fields before
	// the trailing payload region (see wire.Writer.Bytes): read every
	// op's byte count first, then every payload, in the same order.
	ok := true
	r := reply.Reader()
	lengths := make([]uint64, len(ops))
	for i := range ops {
		n, err := r.GetU64()
		if err != nil {
			return false
		}
		lengths[i] = n
	}
	for i, op := range ops {
		d := op.Data.(readData)
		n := lengths[i]
		payload, err := r.GetBytes(int(n))
		if err != nil {
			ok = false
			break
		}
		copy(d.buf, payload)
		if err := applyInverseIfClientMode(d.obj, d.buf[:n]); err != nil {
			ok = false
			continue
		}
		batch.AddUint64(d.bytesRead, n)
	}
	return ok
}

// applyInverseIfClientMode runs the partial-codec inverse transform in
// place for CLIENT mode (§4.6 case 2) and for TRANSPORT mode, whose
// CLIENT_READ row in §4.4 is also ActionInverse. SERVER mode needs no
// client-side step: the server has already decoded the bytes.
func applyInverseIfClientMode(o *Object, buf []byte) error {
	o.mu.Lock()
	mode, typ := o.meta.Mode, o.meta.Type
	o.mu.Unlock()
	if mode == cmn.ModeServer {
		return nil
	}
	if transform.Direction(mode, cmn.CallerClientRead) != transform.ActionInverse {
		return nil
	}
	out, err := transform.Apply(typ, true, buf, len(buf))
	if err != nil {
		return err
	}
	copy(buf, out)
	return nil
}

// --- Write ------------------------------------------------------------------

type writeData struct {
	obj          *Object
	buf          []byte
	off, length  uint64
	bytesWritten *uint64
}

// Write chunks and enqueues pipeline writes (§4.6).
func Write(cl *client.Client, o *Object, buf []byte, length, off uint64, bytesWritten *uint64, b *batch.Batch) {
	for _, rng := range batch.ChunkRange(off, length, cl.Config.MaxOperationSize) {
		chunkOff, chunkLen := rng[0], rng[1]
		relOff := chunkOff - off
		b.Enqueue(&batch.Op{
			Key:  runKey{cl, cmn.BackendObject, o.Index, o.Namespace, cmn.MsgTransformationObjectWrite},
			Exec: execWriteRun,
			Data: writeData{o, buf[relOff : relOff+chunkLen], chunkOff, chunkLen, bytesWritten},
		})
	}
}

func execWriteRun(ops []*batch.Op, sem cmn.Semantics) bool {
	cl := ops[0].Key.(runKey).cl
	ns := ops[0].Key.(runKey).ns
	ok := true

	var batched []*batch.Op
	for _, op := range ops {
		d := op.Data.(writeData)
		if err := ensureMeta(cl, ns, d.obj); err != nil {
			ok = false
			continue
		}
		d.obj.mu.Lock()
		mode, typ := d.obj.meta.Mode, d.obj.meta.Type
		d.obj.mu.Unlock()

		if sem.Safety == cmn.SafetyNone {
			// §4.6: "the write path MUST fake bytes_written locally ...
			// rather than awaiting a reply". The op still executes; only
			// the reply-count observation is skipped downstream.
			batch.AddUint64(d.bytesWritten, d.length)
		}

		if mode == cmn.ModeClient && transform.NeedWholeObject(typ, cmn.CallerClientWrite) {
			if err := writeWholeObjectClient(cl, ns, d, sem); err != nil {
				ok = false
			}
			continue
		}
		batched = append(batched, op)
	}

	if len(batched) == 0 {
		return ok
	}
	if !execWriteBatched(cl, ns, batched, sem) {
		ok = false
	}
	return ok
}

// writeWholeObjectClient implements §4.6 write-execution case 1.
func writeWholeObjectClient(cl *client.Client, ns string, d writeData, sem cmn.Semantics) error {
	d.obj.mu.Lock()
	origSize := d.obj.meta.OriginalSize
	transSize := d.obj.meta.TransformedSize
	typ := d.obj.meta.Type
	d.obj.mu.Unlock()

	var decoded []byte
	if origSize > 0 {
		encoded := make([]byte, transSize)
		if err := readRaw(cl, ns, d.obj, cmn.BackendObject, encoded, 0); err != nil {
			return err
		}
		dec, err := transform.Apply(typ, true, encoded, int(origSize))
		if err != nil {
			return err
		}
		decoded = dec
	}

	newSize := origSize
	if end := d.off + d.length; end > newSize {
		newSize = end
	}
	if uint64(len(decoded)) < newSize {
		grown := make([]byte, newSize)
		copy(grown, decoded)
		decoded = grown
	}
	copy(decoded[d.off:d.off+d.length], d.buf)

	encoded, err := transform.Apply(typ, false, decoded, 0)
	if err != nil {
		return err
	}

	if err := writeRaw(cl, ns, d.obj, cmn.BackendObject, encoded, 0, sem); err != nil {
		return err
	}

	d.obj.mu.Lock()
	d.obj.meta.OriginalSize = newSize
	d.obj.meta.TransformedSize = uint64(len(encoded))
	m := d.obj.meta
	d.obj.mu.Unlock()
	val, err := EncodeMeta(m)
	if err != nil {
		return err
	}
	if err := putKV(cl, ns, d.obj.Name, val); err != nil {
		return err
	}

	if sem.Safety != cmn.SafetyNone {
		batch.AddUint64(d.bytesWritten, d.length)
	}
	return nil
}

func execWriteBatched(cl *client.Client, ns string, ops []*batch.Op, sem cmn.Semantics) bool {
	index := ops[0].Key.(runKey).index
	ok := true

	// Encode (CLIENT and TRANSPORT modes, whose CLIENT_WRITE action is
	// forward) or pass through (SERVER mode) before sending.
	wireBufs := make([][]byte, len(ops))
	for i, op := range ops {
		d := op.Data.(writeData)
		d.obj.mu.Lock()
		mode, typ := d.obj.meta.Mode, d.obj.meta.Type
		d.obj.mu.Unlock()
		if mode == cmn.ModeServer {
			wireBufs[i] = d.buf
			continue
		}
		if transform.Direction(mode, cmn.CallerClientWrite) == transform.ActionForward {
			enc, err := transform.Apply(typ, false, d.buf, 0)
			if err != nil {
				return false
			}
			wireBufs[i] = enc
		} else {
			wireBufs[i] = d.buf
		}
	}

	if cl.HasLocalObjectBackend() {
		for i, op := range ops {
			d := op.Data.(writeData)
			h, err := cl.ObjectBackend.Open(ns, d.obj.Name)
			if err != nil {
				ok = false
				continue
			}
			n, err := cl.ObjectBackend.Write(h, wireBufs[i], uint64(len(wireBufs[i])), d.off)
			_ = cl.ObjectBackend.Close(h)
			if err != nil {
				ok = false
				continue
			}
			bumpMetaAfterWrite(d.obj, d.off, uint64(n))
			if sem.Safety != cmn.SafetyNone {
				batch.AddUint64(d.bytesWritten, d.length)
			}
		}
		return ok
	}

	w := wire.NewWriter()
	w.PutCString(ns)
	for i, op := range ops {
		d := op.Data.(writeData)
		w.BeginOp()
		d.obj.mu.Lock()
		w.PutU8(uint8(d.obj.meta.Mode))
		w.PutU8(uint8(d.obj.meta.Type))
		d.obj.mu.Unlock()
		w.PutCString(d.obj.Name)
		w.PutU64(uint64(len(wireBufs[i])))
		w.PutU64(d.off)
		w.AppendBytes(wireBufs[i])
	}
	req := cl.NextMessage(cmn.MsgTransformationObjectWrite, sem.Safety, w)
	reply, err := cl.SendRecv(cmn.BackendObject, index, req, sem.Safety.RequiresReply())
	if err != nil {
		return false
	}

	if reply != nil {
		r := reply.Reader()
		for _, op := range ops {
			d := op.Data.(writeData)
			n, err := r.GetU64()
			if err != nil {
				ok = false
				break
			}
			bumpMetaAfterWrite(d.obj, d.off, n)
			if sem.Safety != cmn.SafetyNone {
				batch.AddUint64(d.bytesWritten, d.length)
			}
		}
	} else {
		for i, op := range ops {
			d := op.Data.(writeData)
			bumpMetaAfterWrite(d.obj, d.off, uint64(len(wireBufs[i])))
		}
	}
	return ok
}

func bumpMetaAfterWrite(o *Object, off, n uint64) {
	o.mu.Lock()
	if end := off + n; end > o.meta.OriginalSize {
		o.meta.OriginalSize = end
		o.meta.TransformedSize = end
	}
	o.mu.Unlock()
}

// --- shared helpers used by chunked too -------------------------------------

// ensureMeta loads and caches o's metadata record from the KV store if not
// already present (§4.6: "Load transformation and sizes from the KV
// metadata if not already cached").
func ensureMeta(cl *client.Client, ns string, o *Object) error {
	o.mu.Lock()
	if o.haveMeta {
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	val, err := getKV(cl, ns, o.Name)
	if err != nil {
		return err
	}
	m, err := DecodeMeta(val)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.meta = m
	o.haveMeta = true
	o.mu.Unlock()
	return nil
}

// putKV/deleteKV/getKV take name — bare, unprefixed by namespace — for the
// local KV backend, which scopes keys to ns via BatchStart/Get's own ns
// argument. Over the wire there is no separate namespace field on a KV
// operation (§6), so the fully qualified metaKey(ns, name) is sent as the
// key_cstr instead.

func putKV(cl *client.Client, ns, name string, value []byte) error {
	if cl.HasLocalKVBackend() {
		b, err := cl.KVBackend.BatchStart(ns, cmn.SafetyNetwork)
		if err != nil {
			return err
		}
		if err := cl.KVBackend.Put(b, name, value); err != nil {
			return err
		}
		return cl.KVBackend.BatchExecute(b)
	}
	key := metaKey(ns, name)
	w := wire.NewWriter()
	w.BeginOp()
	w.PutCString(key)
	w.PutU32(uint32(len(value)))
	w.AppendBytes(value)
	req := cl.NextMessage(cmn.MsgKVPut, cmn.DefaultSemantics().Safety, w)
	index := xxhash.ServerIndex(key, cl.ServerCount(cmn.BackendKV))
	_, err := cl.SendRecv(cmn.BackendKV, index, req, true)
	return err
}

func deleteKV(cl *client.Client, ns, name string) error {
	if cl.HasLocalKVBackend() {
		b, err := cl.KVBackend.BatchStart(ns, cmn.SafetyNetwork)
		if err != nil {
			return err
		}
		if err := cl.KVBackend.Delete(b, name); err != nil {
			return err
		}
		return cl.KVBackend.BatchExecute(b)
	}
	key := metaKey(ns, name)
	w := wire.NewWriter()
	w.BeginOp()
	w.PutCString(key)
	req := cl.NextMessage(cmn.MsgKVDelete, cmn.DefaultSemantics().Safety, w)
	index := xxhash.ServerIndex(key, cl.ServerCount(cmn.BackendKV))
	_, err := cl.SendRecv(cmn.BackendKV, index, req, true)
	return err
}

func getKV(cl *client.Client, ns, name string) ([]byte, error) {
	if cl.HasLocalKVBackend() {
		return cl.KVBackend.Get(ns, name)
	}
	key := metaKey(ns, name)
	w := wire.NewWriter()
	w.BeginOp()
	w.PutCString(key)
	req := cl.NextMessage(cmn.MsgKVGet, cmn.SafetyNone, w)
	index := xxhash.ServerIndex(key, cl.ServerCount(cmn.BackendKV))
	reply, err := cl.SendRecv(cmn.BackendKV, index, req, true)
	if err != nil {
		return nil, err
	}
	r := reply.Reader()
	n, err := r.GetU32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, cmn.ErrNotFound
	}
	return r.GetBytes(int(n))
}

// readRaw performs a single, unbatched read of the stored (encoded) bytes
// of o at (off, length), either from the local backend or via one network
// round trip.
func readRaw(cl *client.Client, ns string, o *Object, kind cmn.BackendKind, buf []byte, off uint64) error {
	if cl.HasLocalObjectBackend() {
		h, err := cl.ObjectBackend.Open(ns, o.Name)
		if err != nil {
			return err
		}
		defer cl.ObjectBackend.Close(h)
		_, err = cl.ObjectBackend.Read(h, buf, uint64(len(buf)), off)
		return err
	}
	w := wire.NewWriter()
	w.PutCString(ns)
	w.BeginOp()
	w.PutCString(o.Name)
	w.PutU64(uint64(len(buf)))
	w.PutU64(off)
	req := cl.NextMessage(cmn.MsgObjectRead, cmn.SafetyNone, w)
	reply, err := cl.SendRecv(kind, o.Index, req, true)
	if err != nil {
		return err
	}
	r := reply.Reader()
	n, err := r.GetU64()
	if err != nil {
		return err
	}
	payload, err := r.GetBytes(int(n))
	if err != nil {
		return err
	}
	copy(buf, payload)
	return nil
}

// writeRaw performs a single, unbatched whole-object-replacing write.
func writeRaw(cl *client.Client, ns string, o *Object, kind cmn.BackendKind, buf []byte, off uint64, sem cmn.Semantics) error {
	if cl.HasLocalObjectBackend() {
		h, err := cl.ObjectBackend.Open(ns, o.Name)
		if err != nil {
			return err
		}
		defer cl.ObjectBackend.Close(h)
		_, err = cl.ObjectBackend.Write(h, buf, uint64(len(buf)), off)
		return err
	}
	w := wire.NewWriter()
	w.PutCString(ns)
	w.BeginOp()
	w.PutCString(o.Name)
	w.PutU64(uint64(len(buf)))
	w.PutU64(off)
	w.AppendBytes(buf)
	req := cl.NextMessage(cmn.MsgObjectWrite, sem.Safety, w)
	_, err := cl.SendRecv(kind, o.Index, req, sem.Safety.RequiresReply())
	return err
}
