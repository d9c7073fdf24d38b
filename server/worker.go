package server

import (
	"net"

	"github.com/julea-project/julea/backend"
	"github.com/julea-project/julea/cmn"
	"github.com/julea-project/julea/cmn/nlog"
	"github.com/julea-project/julea/transform"
	"github.com/julea-project/julea/wire"
)

// worker owns one accepted connection: a reusable message buffer plus a
// STRIPE_SIZE scratch region it allocates read/write payloads from (§4.8).
type worker struct {
	s       *Server
	conn    net.Conn
	scratch []byte
	pos     int
}

func newWorker(s *Server, conn net.Conn) *worker {
	return &worker{s: s, conn: conn, scratch: make([]byte, s.StripeSize)}
}

func (w *worker) resetScratch() { w.pos = 0 }

// alloc returns an n-byte window of the scratch region, signalling via ok
// == false that the caller must flush and retry (§4.8: "if that would
// exceed capacity, first flush the current reply and then reset the
// scratch pointer").
func (w *worker) alloc(n int) (buf []byte, ok bool) {
	if w.pos+n > len(w.scratch) {
		return nil, false
	}
	buf = w.scratch[w.pos : w.pos+n]
	w.pos += n
	return buf, true
}

func (w *worker) run() {
	defer w.conn.Close()
	log := nlog.WithComponent("server.worker")
	for {
		req, err := wire.ReadMessage(w.conn)
		if err != nil {
			return
		}
		if err := w.dispatch(req); err != nil {
			log.Error().Err(err).Str("type", req.Header.Type.String()).Msg("dispatch failed")
			return
		}
	}
}

func (w *worker) dispatch(req *wire.Message) error {
	switch req.Header.Type {
	case cmn.MsgObjectCreate, cmn.MsgTransformationObjectCreate:
		return w.handleCreate(req)
	case cmn.MsgObjectDelete, cmn.MsgTransformationObjectDelete:
		return w.handleDelete(req)
	case cmn.MsgObjectStatus, cmn.MsgTransformationObjectStatus:
		return w.handleStatus(req)
	case cmn.MsgObjectRead:
		return w.handleRead(req, false)
	case cmn.MsgTransformationObjectRead:
		return w.handleRead(req, true)
	case cmn.MsgObjectWrite:
		return w.handleWrite(req, false)
	case cmn.MsgTransformationObjectWrite:
		return w.handleWrite(req, true)
	case cmn.MsgKVPut:
		return w.handleKVPut(req)
	case cmn.MsgKVDelete:
		return w.handleKVDelete(req)
	case cmn.MsgKVGet:
		return w.handleKVGet(req)
	case cmn.MsgKVGetAll:
		return w.handleKVIterate(req, true)
	case cmn.MsgKVGetByPrefix:
		return w.handleKVIterate(req, false)
	case cmn.MsgPing:
		return w.handlePing(req)
	default:
		return cmn.Wrapf(cmn.ErrProtocolMismatch, "unknown message type %v", req.Header.Type)
	}
}

func (w *worker) handlePing(req *wire.Message) error {
	reply := wire.NewReply(req.Header, wire.NewWriter())
	_, err := reply.WriteTo(w.conn)
	return err
}

// --- Create/Delete ----------------------------------------------------------

func (w *worker) handleCreate(req *wire.Message) error {
	r := req.Reader()
	ns, err := r.GetCString()
	if err != nil {
		return err
	}
	safety := req.Header.Safety()

	out := wire.NewWriter()
	for i := uint16(0); i < req.Header.Count; i++ {
		name, err := r.GetCString()
		if err != nil {
			return err
		}
		h, err := w.s.ObjectBackend.Create(ns, name)
		if err != nil {
			continue
		}
		if safety == cmn.SafetyStorage {
			_ = w.s.ObjectBackend.Sync(h)
		}
		_ = w.s.ObjectBackend.Close(h)
		if safety.RequiresReply() {
			out.BeginOp()
		}
	}
	return w.maybeReply(req, safety, out)
}

func (w *worker) handleDelete(req *wire.Message) error {
	r := req.Reader()
	ns, err := r.GetCString()
	if err != nil {
		return err
	}
	safety := req.Header.Safety()

	out := wire.NewWriter()
	for i := uint16(0); i < req.Header.Count; i++ {
		name, err := r.GetCString()
		if err != nil {
			return err
		}
		h, err := w.s.ObjectBackend.Open(ns, name)
		if err == nil {
			_ = w.s.ObjectBackend.Delete(h)
		}
		if safety.RequiresReply() {
			out.BeginOp()
		}
	}
	return w.maybeReply(req, safety, out)
}

func (w *worker) handleStatus(req *wire.Message) error {
	r := req.Reader()
	ns, err := r.GetCString()
	if err != nil {
		return err
	}

	out := wire.NewWriter()
	for i := uint16(0); i < req.Header.Count; i++ {
		name, err := r.GetCString()
		if err != nil {
			return err
		}
		out.BeginOp()
		h, err := w.s.ObjectBackend.Open(ns, name)
		if err != nil {
			out.PutI64(0)
			out.PutU64(0)
			continue
		}
		mtime, size, err := w.s.ObjectBackend.Status(h)
		_ = w.s.ObjectBackend.Close(h)
		if err != nil {
			out.PutI64(0)
			out.PutU64(0)
			continue
		}
		out.PutI64(mtime.UnixNano())
		out.PutU64(uint64(size))
	}
	reply := wire.NewReply(req.Header, out)
	_, err = reply.WriteTo(w.conn)
	return err
}

// --- Read ---------------------------------------------------------------

// handleRead implements §4.8's Read rule, including mid-reply flushing
// when the scratch region would overflow (scenario S6).
func (w *worker) handleRead(req *wire.Message, transformed bool) error {
	r := req.Reader()
	ns, err := r.GetCString()
	if err != nil {
		return err
	}

	w.resetScratch()
	out := wire.NewWriter()
	done := uint16(0)
	flush := func() error {
		reply := wire.NewReply(req.Header, out)
		reply.Header.Count = done
		if _, err := reply.WriteTo(w.conn); err != nil {
			return err
		}
		out = wire.NewWriter()
		done = 0
		w.resetScratch()
		return nil
	}

	for i := uint16(0); i < req.Header.Count; i++ {
		var mode cmn.TransformMode
		var typ cmn.TransformType
		if transformed {
			m, err := r.GetU8()
			if err != nil {
				return err
			}
			t, err := r.GetU8()
			if err != nil {
				return err
			}
			mode, typ = cmn.TransformMode(m), cmn.TransformType(t)
		}
		name, err := r.GetCString()
		if err != nil {
			return err
		}
		length, err := r.GetU64()
		if err != nil {
			return err
		}
		offset, err := r.GetU64()
		if err != nil {
			return err
		}

		buf, ok := w.alloc(int(length))
		if !ok {
			if err := flush(); err != nil {
				return err
			}
			buf, ok = w.alloc(int(length))
			if !ok {
				buf = make([]byte, length) // larger than the whole scratch region
			}
		}

		h, err := w.s.ObjectBackend.Open(ns, name)
		var n int
		if err == nil {
			n, err = w.s.ObjectBackend.Read(h, buf, length, offset)
			_ = w.s.ObjectBackend.Close(h)
		}
		if err != nil {
			n = 0
		}
		result := buf[:n]
		if transformed && mode == cmn.ModeServer && err == nil {
			if decoded, derr := transform.Apply(typ, true, result, n); derr == nil {
				result = decoded
			}
		}

		out.BeginOp()
		out.PutU64(uint64(len(result)))
		out.AppendBytes(result)
		done++
	}
	return flush()
}

// --- Write ----------------------------------------------------------------

// handleWrite implements §4.8's Write rule: receive bulk bytes on demand,
// coalesce adjacent contiguous operations into one backend write.
func (w *worker) handleWrite(req *wire.Message, transformed bool) error {
	r := req.Reader()
	ns, err := r.GetCString()
	if err != nil {
		return err
	}
	safety := req.Header.Safety()

	var name string
	var handle backend.ObjectHandle
	openFor := func(n string) error {
		if handle != nil && n == name {
			return nil
		}
		if handle != nil {
			_ = w.s.ObjectBackend.Close(handle)
			handle = nil
		}
		h, err := w.s.ObjectBackend.Open(ns, n)
		if err != nil {
			return err
		}
		name, handle = n, h
		return nil
	}
	defer func() {
		if handle != nil {
			_ = w.s.ObjectBackend.Close(handle)
		}
	}()

	out := wire.NewWriter()

	// One reply entry is owed per request operation (§4.1: reply Count
	// mirrors the request it answers) even though adjacent operations are
	// coalesced into a single backend write below — memberLens tracks the
	// per-op lengths making up the pending merge so flushMerge can report
	// one (success/0) entry per original op, not per merged write.
	var mergeOff, mergeLen uint64
	var mergeBuf []byte
	var memberLens []uint64
	haveMerge := false

	flushMerge := func() {
		if !haveMerge {
			return
		}
		haveMerge = false
		if handle == nil {
			for range memberLens {
				out.BeginOp()
				out.PutU64(0)
			}
			memberLens = nil
			return
		}
		n, werr := w.s.ObjectBackend.Write(handle, mergeBuf, mergeLen, mergeOff)
		ok := werr == nil && uint64(n) == mergeLen
		for _, l := range memberLens {
			out.BeginOp()
			if ok {
				out.PutU64(l)
			} else {
				out.PutU64(0)
			}
		}
		memberLens = nil
	}

	// A Writer always places every operation's fixed-width fields before
	// the trailing payload region (see wire.Writer.Bytes), regardless of
	// the order Put/AppendBytes were called in — so the fields for all
	// Count operations must be read first, then their payloads in the
	// same order.
	type writeOp struct {
		mode   cmn.TransformMode
		typ    cmn.TransformType
		name   string
		length uint64
		offset uint64
	}
	fields := make([]writeOp, req.Header.Count)
	for i := range fields {
		var f writeOp
		if transformed {
			m, err := r.GetU8()
			if err != nil {
				return err
			}
			t, err := r.GetU8()
			if err != nil {
				return err
			}
			f.mode, f.typ = cmn.TransformMode(m), cmn.TransformType(t)
		}
		name, err := r.GetCString()
		if err != nil {
			return err
		}
		length, err := r.GetU64()
		if err != nil {
			return err
		}
		offset, err := r.GetU64()
		if err != nil {
			return err
		}
		f.name, f.length, f.offset = name, length, offset
		fields[i] = f
	}

	for _, f := range fields {
		payload, err := r.GetBytes(int(f.length))
		if err != nil {
			return err
		}

		if haveMerge && f.name != name {
			flushMerge() // the pending merge belongs to the currently open object
		}
		if err := openFor(f.name); err != nil {
			flushMerge()
			out.BeginOp()
			out.PutU64(0)
			continue
		}

		body := payload
		if transformed && f.mode == cmn.ModeServer {
			if encoded, terr := transform.Apply(f.typ, false, payload, 0); terr == nil {
				body = encoded
			}
		}

		if haveMerge && f.offset == mergeOff+mergeLen && mergeLen+uint64(len(body)) <= uint64(len(w.scratch)) {
			mergeBuf = append(mergeBuf, body...)
			mergeLen += uint64(len(body))
			memberLens = append(memberLens, f.length)
			continue
		}

		flushMerge()
		mergeOff, mergeLen = f.offset, uint64(len(body))
		mergeBuf = append([]byte(nil), body...)
		memberLens = append(memberLens, f.length)
		haveMerge = true
	}
	flushMerge()

	if safety == cmn.SafetyStorage && handle != nil {
		_ = w.s.ObjectBackend.Sync(handle)
	}
	return w.maybeReply(req, safety, out)
}

// maybeReply sends out as a reply only when safety requires one (§4.8).
func (w *worker) maybeReply(req *wire.Message, safety cmn.Safety, out *wire.Writer) error {
	if !safety.RequiresReply() {
		return nil
	}
	reply := wire.NewReply(req.Header, out)
	_, err := reply.WriteTo(w.conn)
	return err
}

// --- KV ---------------------------------------------------------------

// getKVKey reads a KV wire key. The object and chunked packages send the
// fully qualified ns + "\x00" + name as one C-string, so on the wire it
// arrives as two consecutive NUL-terminated strings: ns, then name.
func getKVKey(r *wire.Reader) (string, error) {
	ns, err := r.GetCString()
	if err != nil {
		return "", err
	}
	name, err := r.GetCString()
	if err != nil {
		return "", err
	}
	return ns + "\x00" + name, nil
}

// splitKey recovers (ns, name) from a KV key as returned by getKVKey (KV
// messages carry no separate namespace field, unlike
// Object/TransformationObject messages).
func splitKey(key string) (ns, name string) {
	for i := 0; i < len(key); i++ {
		if key[i] == 0 {
			return key[:i], key[i+1:]
		}
	}
	return "", key
}

func (w *worker) handleKVPut(req *wire.Message) error {
	r := req.Reader()
	safety := req.Header.Safety()

	// Same region-ordering rule as Object/TransformationObject writes:
	// every op's key_cstr/value_len field precedes any op's value bytes.
	keys := make([]string, req.Header.Count)
	lens := make([]uint32, req.Header.Count)
	for i := range keys {
		key, err := getKVKey(r)
		if err != nil {
			return err
		}
		n, err := r.GetU32()
		if err != nil {
			return err
		}
		keys[i], lens[i] = key, n
	}

	var b backend.KVBatch
	for i, key := range keys {
		val, err := r.GetBytes(int(lens[i]))
		if err != nil {
			return err
		}
		if b == nil {
			ns, _ := splitKey(key)
			b, err = w.s.KVBackend.BatchStart(ns, safety)
			if err != nil {
				return err
			}
		}
		_, name := splitKey(key)
		if err := w.s.KVBackend.Put(b, name, val); err != nil {
			return err
		}
	}
	if b != nil {
		if err := w.s.KVBackend.BatchExecute(b); err != nil {
			return err
		}
	}
	return w.maybeReply(req, safety, wire.NewWriter())
}

func (w *worker) handleKVDelete(req *wire.Message) error {
	r := req.Reader()
	safety := req.Header.Safety()
	var b backend.KVBatch
	for i := uint16(0); i < req.Header.Count; i++ {
		key, err := getKVKey(r)
		if err != nil {
			return err
		}
		if b == nil {
			ns, _ := splitKey(key)
			var err error
			b, err = w.s.KVBackend.BatchStart(ns, safety)
			if err != nil {
				return err
			}
		}
		_, name := splitKey(key)
		if err := w.s.KVBackend.Delete(b, name); err != nil {
			return err
		}
	}
	if b != nil {
		if err := w.s.KVBackend.BatchExecute(b); err != nil {
			return err
		}
	}
	return w.maybeReply(req, safety, wire.NewWriter())
}

func (w *worker) handleKVGet(req *wire.Message) error {
	r := req.Reader()
	out := wire.NewWriter()
	for i := uint16(0); i < req.Header.Count; i++ {
		key, err := getKVKey(r)
		if err != nil {
			return err
		}
		ns, name := splitKey(key)
		out.BeginOp()
		val, err := w.s.KVBackend.Get(ns, name)
		if err != nil {
			out.PutU32(0)
			continue
		}
		out.PutU32(uint32(len(val)))
		out.AppendBytes(val)
	}
	reply := wire.NewReply(req.Header, out)
	_, err := reply.WriteTo(w.conn)
	return err
}

func (w *worker) handleKVIterate(req *wire.Message, all bool) error {
	r := req.Reader()
	ns, err := r.GetCString()
	if err != nil {
		return err
	}
	var prefix string
	if !all {
		prefix, err = r.GetCString()
		if err != nil {
			return err
		}
	}

	var it backend.KVIterator
	if all {
		it, err = w.s.KVBackend.GetAll(ns)
	} else {
		it, err = w.s.KVBackend.GetByPrefix(ns, prefix)
	}
	if err != nil {
		return err
	}
	defer it.Close()

	out := wire.NewWriter()
	for {
		_, val, ok := it.Next()
		if !ok {
			break
		}
		out.BeginOp()
		out.PutU32(uint32(len(val)))
		out.AppendBytes(val)
	}
	// zero-length signals end-of-iteration (§4.8).
	out.BeginOp()
	out.PutU32(0)

	reply := wire.NewReply(req.Header, out)
	_, err = reply.WriteTo(w.conn)
	return err
}
