// Package kvbunt implements backend.KV over an embedded
// github.com/tidwall/buntdb database. It is not one of the spec's named
// production KV backends (LevelDB/LMDB/SQLite/MongoDB, explicitly out of
// scope per §1); it is the minimal concrete backend needed to exercise
// the capability set of §4.3 and to run the round-trip properties of §8
// without a real network.
package kvbunt

import (
	"strings"

	"github.com/tidwall/buntdb"

	"github.com/julea-project/julea/backend"
	"github.com/julea-project/julea/cmn"
)

func init() {
	backend.RegisterKV("kvbunt", func(path string) (backend.KV, error) {
		b := &Backend{}
		if err := b.Init(path); err != nil {
			return nil, err
		}
		return b, nil
	})
}

// Backend is a backend.KV over a single buntdb database file (or
// ":memory:" for an in-process, non-persistent instance).
type Backend struct {
	db *buntdb.DB
}

func (b *Backend) Init(path string) error {
	if path == "" {
		path = ":memory:"
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return cmn.Wrap(err, "kvbunt: open")
	}
	b.db = db
	return nil
}

func (b *Backend) Fini() error {
	return b.db.Close()
}

// nsKey joins namespace and key the same way §3's metadata_key does, so
// every namespace occupies its own lexical range of the keyspace.
func nsKey(ns, key string) string { return ns + "\x00" + key }

func splitNS(ns, full string) string {
	return strings.TrimPrefix(full, ns+"\x00")
}

func escapeGlob(s string) string {
	r := strings.NewReplacer("*", "[*]", "?", "[?]", "[", "[[]")
	return r.Replace(s)
}

type kvOp struct {
	del   bool
	key   string
	value []byte
}

// Batch accumulates Put/Delete calls for one BatchStart/BatchExecute
// round; buntdb itself commits via a single callback-style transaction,
// so operations are buffered here and applied together in BatchExecute.
type Batch struct {
	ns     string
	safety cmn.Safety
	ops    []kvOp
}

func (b *Backend) BatchStart(ns string, safety cmn.Safety) (backend.KVBatch, error) {
	return &Batch{ns: ns, safety: safety}, nil
}

func (b *Backend) Put(bb backend.KVBatch, key string, value []byte) error {
	batch := bb.(*Batch)
	cp := make([]byte, len(value))
	copy(cp, value)
	batch.ops = append(batch.ops, kvOp{key: nsKey(batch.ns, key), value: cp})
	return nil
}

func (b *Backend) Delete(bb backend.KVBatch, key string) error {
	batch := bb.(*Batch)
	batch.ops = append(batch.ops, kvOp{del: true, key: nsKey(batch.ns, key)})
	return nil
}

func (b *Backend) BatchExecute(bb backend.KVBatch) error {
	batch := bb.(*Batch)
	err := b.db.Update(func(tx *buntdb.Tx) error {
		for _, op := range batch.ops {
			if op.del {
				if _, err := tx.Delete(op.key); err != nil && err != buntdb.ErrNotFound {
					return err
				}
				continue
			}
			if _, _, err := tx.Set(op.key, string(op.value), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return cmn.Wrapf(cmn.ErrBackendOpFailed, "kvbunt: batch execute: %v", err)
	}
	return nil
}

func (b *Backend) Get(ns, key string) ([]byte, error) {
	var val string
	err := b.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(nsKey(ns, key))
		if err != nil {
			return err
		}
		val = v
		return nil
	})
	if err == buntdb.ErrNotFound {
		return nil, cmn.ErrNotFound
	}
	if err != nil {
		return nil, cmn.Wrapf(cmn.ErrBackendOpFailed, "kvbunt: get: %v", err)
	}
	return []byte(val), nil
}

type sliceIterator struct {
	items []kvPair
	pos   int
}

type kvPair struct {
	key   string
	value []byte
}

func (it *sliceIterator) Next() (string, []byte, bool) {
	if it.pos >= len(it.items) {
		return "", nil, false
	}
	p := it.items[it.pos]
	it.pos++
	return p.key, p.value, true
}

func (it *sliceIterator) Close() error { return nil }

func (b *Backend) collect(ns, pattern string) (backend.KVIterator, error) {
	it := &sliceIterator{}
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(pattern, func(k, v string) bool {
			it.items = append(it.items, kvPair{key: splitNS(ns, k), value: []byte(v)})
			return true
		})
	})
	if err != nil {
		return nil, cmn.Wrapf(cmn.ErrBackendOpFailed, "kvbunt: iterate: %v", err)
	}
	return it, nil
}

func (b *Backend) GetAll(ns string) (backend.KVIterator, error) {
	return b.collect(ns, nsKey(ns, "")+"*")
}

func (b *Backend) GetByPrefix(ns, prefix string) (backend.KVIterator, error) {
	return b.collect(ns, nsKey(ns, escapeGlob(prefix))+"*")
}

var _ backend.KV = (*Backend)(nil)
