// Package chunked implements the chunked transformation object of §4.7: a
// fan-out wrapper tiling a logical byte range over many flat
// transformation objects of fixed chunk_size.
package chunked

import (
	"time"

	"github.com/julea-project/julea/batch"
	"github.com/julea-project/julea/client"
	"github.com/julea-project/julea/cmn"
	"github.com/julea-project/julea/object"
	"github.com/julea-project/julea/wire"
	"github.com/julea-project/julea/xxhash"
)

// Chunked is the client-side handle for a chunked transformation object.
type Chunked struct {
	Namespace string
	Name      string
	ChunkSize uint64

	haveMeta   bool
	ChunkCount uint32
	Type       cmn.TransformType
	Mode       cmn.TransformMode
}

// New allocates a Chunked handle; no I/O (mirrors object.New).
func New(ns, name string, chunkSize uint64) *Chunked {
	return &Chunked{Namespace: ns, Name: name, ChunkSize: chunkSize}
}

func chunkName(name string, id uint32) string {
	return name + "_" + uitoa(uint64(id))
}

func uitoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func metaKey(ns, name string) string { return ns + "\x00" + name + "#chunked" }

func (c *Chunked) chunk(cl *client.Client, id uint32) *object.Object {
	return object.New(cl, c.Namespace, chunkName(c.Name, id))
}

// Create establishes chunk_size, creates the zeroth chunk, and writes the
// {type, mode, chunk_count, chunk_size} KV record (§4.7).
func Create(cl *client.Client, c *Chunked, b *batch.Batch, typ cmn.TransformType, mode cmn.TransformMode) {
	c.Type, c.Mode, c.ChunkCount, c.haveMeta = typ, mode, 1, true
	object.Create(cl, c.chunk(cl, 0), b, typ, mode)

	b.Enqueue(&batch.Op{
		Key:  chunkedMetaKey{cl, c},
		Exec: execCreateMeta,
		Data: c,
	})
}

type chunkedMetaKey struct {
	cl *client.Client
	c  *Chunked
}

func execCreateMeta(ops []*batch.Op, _ cmn.Semantics) bool {
	op := ops[0]
	k := op.Key.(chunkedMetaKey)
	c := op.Data.(*Chunked)
	return putMeta(k.cl, c) == nil
}

func putMeta(cl *client.Client, c *Chunked) error {
	val, err := EncodeMeta(Meta{Type: c.Type, Mode: c.Mode, ChunkCount: c.ChunkCount, ChunkSize: c.ChunkSize})
	if err != nil {
		return err
	}
	if cl.HasLocalKVBackend() {
		b, err := cl.KVBackend.BatchStart(c.Namespace, cmn.SafetyNetwork)
		if err != nil {
			return err
		}
		if err := cl.KVBackend.Put(b, c.Name+"#chunked", val); err != nil {
			return err
		}
		return cl.KVBackend.BatchExecute(b)
	}
	key := metaKey(c.Namespace, c.Name)
	w := wire.NewWriter()
	w.BeginOp()
	w.PutCString(key)
	w.PutU32(uint32(len(val)))
	w.AppendBytes(val)
	req := cl.NextMessage(cmn.MsgKVPut, cmn.DefaultSemantics().Safety, w)
	index := xxhash.ServerIndex(key, cl.ServerCount(cmn.BackendKV))
	_, err = cl.SendRecv(cmn.BackendKV, index, req, true)
	return err
}

func ensureMeta(cl *client.Client, c *Chunked) error {
	if c.haveMeta {
		return nil
	}
	var val []byte
	var err error
	if cl.HasLocalKVBackend() {
		val, err = cl.KVBackend.Get(c.Namespace, c.Name+"#chunked")
	} else {
		key := metaKey(c.Namespace, c.Name)
		w := wire.NewWriter()
		w.BeginOp()
		w.PutCString(key)
		req := cl.NextMessage(cmn.MsgKVGet, cmn.SafetyNone, w)
		index := xxhash.ServerIndex(key, cl.ServerCount(cmn.BackendKV))
		var reply *wire.Message
		reply, err = cl.SendRecv(cmn.BackendKV, index, req, true)
		if err == nil {
			r := reply.Reader()
			var n uint32
			n, err = r.GetU32()
			if err == nil {
				if n == 0 {
					err = cmn.ErrNotFound
				} else {
					val, err = r.GetBytes(int(n))
				}
			}
		}
	}
	if err != nil {
		return err
	}
	m, err := DecodeMeta(val)
	if err != nil {
		return err
	}
	c.Type, c.Mode, c.ChunkCount, c.ChunkSize = m.Type, m.Mode, m.ChunkCount, m.ChunkSize
	c.haveMeta = true
	return nil
}

// Delete loads the metadata, deletes chunks 0..chunk_count-1 and the
// metadata record (§4.7).
func Delete(cl *client.Client, c *Chunked, b *batch.Batch) error {
	if err := ensureMeta(cl, c); err != nil {
		return err
	}
	for id := uint32(0); id < c.ChunkCount; id++ {
		object.Delete(cl, c.chunk(cl, id), b)
	}
	b.Enqueue(&batch.Op{
		Key:  chunkedMetaKey{cl, c},
		Exec: execDeleteMeta,
		Data: c,
	})
	return nil
}

func execDeleteMeta(ops []*batch.Op, _ cmn.Semantics) bool {
	op := ops[0]
	k := op.Key.(chunkedMetaKey)
	c := op.Data.(*Chunked)
	if k.cl.HasLocalKVBackend() {
		b, err := k.cl.KVBackend.BatchStart(c.Namespace, cmn.SafetyNetwork)
		if err != nil {
			return false
		}
		if err := k.cl.KVBackend.Delete(b, c.Name+"#chunked"); err != nil {
			return false
		}
		return k.cl.KVBackend.BatchExecute(b) == nil
	}
	key := metaKey(c.Namespace, c.Name)
	w := wire.NewWriter()
	w.BeginOp()
	w.PutCString(key)
	req := k.cl.NextMessage(cmn.MsgKVDelete, cmn.DefaultSemantics().Safety, w)
	index := xxhash.ServerIndex(key, k.cl.ServerCount(cmn.BackendKV))
	_, err := k.cl.SendRecv(cmn.BackendKV, index, req, true)
	return err == nil
}

// chunkSpan describes the portion of one chunk touched by a logical
// (off, len) request.
type chunkSpan struct {
	id       uint32
	localOff uint64
	localLen uint64
	bufOff   uint64
}

// plan splits a logical [off, off+length) span into per-chunk spans (§4.7,
// illustrated by scenario S4).
func (c *Chunked) plan(off, length uint64) []chunkSpan {
	if length == 0 {
		return nil
	}
	var spans []chunkSpan
	end := off + length
	for pos := off; pos < end; {
		id := uint32(pos / c.ChunkSize)
		localOff := pos % c.ChunkSize
		avail := c.ChunkSize - localOff
		remaining := end - pos
		n := avail
		if n > remaining {
			n = remaining
		}
		spans = append(spans, chunkSpan{id: id, localOff: localOff, localLen: n, bufOff: pos - off})
		pos += n
	}
	return spans
}

// Read walks the requested span, enqueuing a transformation-object read
// per touched chunk into b; bytesRead is the sum of per-chunk returns
// (§4.7).
func Read(cl *client.Client, c *Chunked, buf []byte, length, off uint64, bytesRead *uint64, b *batch.Batch) error {
	if err := ensureMeta(cl, c); err != nil {
		return err
	}
	for _, sp := range c.plan(off, length) {
		if sp.id >= c.ChunkCount {
			continue // chunk not created yet: that part of buf is left as it was
		}
		object.Read(cl, c.chunk(cl, sp.id), buf[sp.bufOff:sp.bufOff+sp.localLen], sp.localLen, sp.localOff, bytesRead, b)
	}
	return nil
}

// Write does the same walk, creating new chunks when chunk_id >=
// chunk_count and bumping chunk_count before the per-chunk write (§4.7).
func Write(cl *client.Client, c *Chunked, buf []byte, length, off uint64, bytesWritten *uint64, b *batch.Batch) error {
	if err := ensureMeta(cl, c); err != nil {
		return err
	}
	spans := c.plan(off, length)

	maxID := c.ChunkCount
	for _, sp := range spans {
		if sp.id+1 > maxID {
			maxID = sp.id + 1
		}
	}
	for id := c.ChunkCount; id < maxID; id++ {
		object.Create(cl, c.chunk(cl, id), b, c.Type, c.Mode)
	}
	if maxID > c.ChunkCount {
		c.ChunkCount = maxID
		b.Enqueue(&batch.Op{Key: chunkedMetaKey{cl, c}, Exec: execCreateMeta, Data: c})
	}

	for _, sp := range spans {
		object.Write(cl, c.chunk(cl, sp.id), buf[sp.bufOff:sp.bufOff+sp.localLen], sp.localLen, sp.localOff, bytesWritten, b)
	}
	return nil
}

// Stat is the chunked-object status snapshot (§4.7: "the sum of chunk
// sizes, the maximum chunk mtime, and the shared transformation type").
type Stat struct {
	MTime        time.Time
	OriginalSize uint64
	Type         cmn.TransformType
}

// Status returns the sum of chunk sizes, the maximum chunk mtime, and the
// shared transformation type (§4.7).
func Status(cl *client.Client, c *Chunked, b *batch.Batch, out *Stat) error {
	if err := ensureMeta(cl, c); err != nil {
		return err
	}
	out.Type = c.Type
	mtimes := make([]time.Time, c.ChunkCount)
	sizes := make([]uint64, c.ChunkCount)
	for id := uint32(0); id < c.ChunkCount; id++ {
		id := id
		object.Status(cl, c.chunk(cl, id), b, &mtimes[id], &sizes[id], nil, nil)
	}
	b.Enqueue(&batch.Op{
		Key: chunkedMetaKey{cl, c},
		Exec: func(ops []*batch.Op, _ cmn.Semantics) bool {
			var total uint64
			var max time.Time
			for i := range sizes {
				total += sizes[i]
				if mtimes[i].After(max) {
					max = mtimes[i]
				}
			}
			out.OriginalSize = total
			out.MTime = max
			return true
		},
		Data: c,
	})
	return nil
}
