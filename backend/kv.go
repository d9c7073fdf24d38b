package backend

import "github.com/julea-project/julea/cmn"

// KVBatch is an opaque handle to a pending sequence of Put/Delete calls
// started by BatchStart and applied atomically by BatchExecute.
type KVBatch any

// KVIterator walks the results of GetAll/GetByPrefix. Next returns
// ok == false once exhausted, matching the spec's "iterate(iter) →
// (key, value) | end".
type KVIterator interface {
	Next() (key string, value []byte, ok bool)
	Close() error
}

// KV is the KV-backend capability set of §4.3.
type KV interface {
	Init(path string) error
	Fini() error

	BatchStart(ns string, safety cmn.Safety) (KVBatch, error)
	BatchExecute(b KVBatch) error
	Put(b KVBatch, key string, value []byte) error
	Delete(b KVBatch, key string) error

	Get(ns, key string) ([]byte, error)
	GetAll(ns string) (KVIterator, error)
	GetByPrefix(ns, prefix string) (KVIterator, error)
}
