package backend

import (
	"sync"

	"github.com/julea-project/julea/cmn"
)

// ObjectCtor constructs and Inits an Object backend from a path.
type ObjectCtor func(path string) (Object, error)

// KVCtor constructs and Inits a KV backend from a path.
type KVCtor func(path string) (KV, error)

var (
	mu         sync.Mutex
	objectCtor = map[string]ObjectCtor{}
	kvCtor     = map[string]KVCtor{}
)

// RegisterObject makes an Object backend constructor available under name
// (e.g. "posix"), for use by BackendSpec.Name (§6).
func RegisterObject(name string, ctor ObjectCtor) {
	mu.Lock()
	defer mu.Unlock()
	objectCtor[name] = ctor
}

// RegisterKV makes a KV backend constructor available under name (e.g.
// "kvbunt").
func RegisterKV(name string, ctor KVCtor) {
	mu.Lock()
	defer mu.Unlock()
	kvCtor[name] = ctor
}

// NewObject builds the named Object backend at path. Returns
// cmn.ErrBackendUnavailable, wrapped, if name is unregistered or Init
// fails — "fatal at process start" per §7.
func NewObject(name, path string) (Object, error) {
	mu.Lock()
	ctor, ok := objectCtor[name]
	mu.Unlock()
	if !ok {
		return nil, cmn.Wrapf(cmn.ErrBackendUnavailable, "object backend %q not registered", name)
	}
	b, err := ctor(path)
	if err != nil {
		return nil, cmn.Wrapf(cmn.ErrBackendUnavailable, "init object backend %q: %v", name, err)
	}
	return b, nil
}

// NewKV builds the named KV backend at path.
func NewKV(name, path string) (KV, error) {
	mu.Lock()
	ctor, ok := kvCtor[name]
	mu.Unlock()
	if !ok {
		return nil, cmn.Wrapf(cmn.ErrBackendUnavailable, "kv backend %q not registered", name)
	}
	b, err := ctor(path)
	if err != nil {
		return nil, cmn.Wrapf(cmn.ErrBackendUnavailable, "init kv backend %q: %v", name, err)
	}
	return b, nil
}

// Names lists currently registered backend names, for diagnostics.
func Names(kind cmn.BackendKind) []string {
	mu.Lock()
	defer mu.Unlock()
	var out []string
	if kind == cmn.BackendKV {
		for n := range kvCtor {
			out = append(out, n)
		}
	} else {
		for n := range objectCtor {
			out = append(out, n)
		}
	}
	return out
}
