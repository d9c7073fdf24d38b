// Package posix implements backend.Object over a plain directory tree.
// It is not one of the spec's named production object backends
// (POSIX/GIO/RADOS, explicitly out of scope per §1); it is the minimal
// concrete backend needed to exercise the capability set of §4.3 and to
// run the round-trip properties of §8 without a real network.
package posix

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/julea-project/julea/backend"
	"github.com/julea-project/julea/cmn"
)

func init() {
	backend.RegisterObject("posix", func(path string) (backend.Object, error) {
		b := &Backend{}
		if err := b.Init(path); err != nil {
			return nil, err
		}
		return b, nil
	})
}

// Backend is a backend.Object rooted at a directory.
type Backend struct {
	root string
}

// New returns a Backend rooted at path, creating it if necessary.
func New(path string) (*Backend, error) {
	b := &Backend{}
	if err := b.Init(path); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) Init(path string) error {
	b.root = path
	return os.MkdirAll(path, 0o755)
}

func (b *Backend) Fini() error { return nil }

func sanitize(s string) string { return url.QueryEscape(s) }

func (b *Backend) path(ns, name string) string {
	return filepath.Join(b.root, sanitize(ns), sanitize(name))
}

type handle struct {
	f *os.File
}

func (b *Backend) Create(ns, name string) (backend.ObjectHandle, error) {
	dir := filepath.Join(b.root, sanitize(ns))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, cmn.Wrap(err, "posix: mkdir namespace")
	}
	f, err := os.OpenFile(b.path(ns, name), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, cmn.Wrapf(cmn.ErrBackendOpFailed, "posix: create %s/%s: %v", ns, name, err)
	}
	return &handle{f: f}, nil
}

func (b *Backend) Open(ns, name string) (backend.ObjectHandle, error) {
	f, err := os.OpenFile(b.path(ns, name), os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cmn.ErrNotFound
		}
		return nil, cmn.Wrapf(cmn.ErrBackendOpFailed, "posix: open %s/%s: %v", ns, name, err)
	}
	return &handle{f: f}, nil
}

func (b *Backend) Close(h backend.ObjectHandle) error {
	return h.(*handle).f.Close()
}

func (b *Backend) Delete(h backend.ObjectHandle) error {
	hh := h.(*handle)
	name := hh.f.Name()
	if err := hh.f.Close(); err != nil {
		return cmn.Wrap(err, "posix: close before delete")
	}
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return cmn.Wrapf(cmn.ErrBackendOpFailed, "posix: delete: %v", err)
	}
	return nil
}

func (b *Backend) Status(h backend.ObjectHandle) (time.Time, int64, error) {
	fi, err := h.(*handle).f.Stat()
	if err != nil {
		return time.Time{}, 0, cmn.Wrap(err, "posix: stat")
	}
	return fi.ModTime(), fi.Size(), nil
}

func (b *Backend) Sync(h backend.ObjectHandle) error {
	return h.(*handle).f.Sync()
}

func (b *Backend) Read(h backend.ObjectHandle, buf []byte, length, offset uint64) (int, error) {
	n, err := h.(*handle).f.ReadAt(buf[:length], int64(offset))
	if err != nil && err != io.EOF {
		return n, cmn.Wrapf(cmn.ErrBackendOpFailed, "posix: read: %v", err)
	}
	return n, nil
}

func (b *Backend) Write(h backend.ObjectHandle, buf []byte, length, offset uint64) (int, error) {
	n, err := h.(*handle).f.WriteAt(buf[:length], int64(offset))
	if err != nil {
		return n, cmn.Wrapf(cmn.ErrBackendOpFailed, "posix: write: %v", err)
	}
	return n, nil
}

var _ backend.Object = (*Backend)(nil)
