package cmn

import "github.com/pkg/errors"

// Sentinel errors for the taxonomy of §7. Components compare against these
// with errors.Is and add context with errors.Wrapf as an error crosses a
// component boundary.
var (
	// ErrInputInvalid: null/zero arguments, offsets beyond addressable
	// range. Fail synchronously before any I/O.
	ErrInputInvalid = errors.New("julea: invalid input")

	// ErrBackendUnavailable: module load or init failed. Fatal at process
	// start for the affected backend kind.
	ErrBackendUnavailable = errors.New("julea: backend unavailable")

	// ErrNetworkTransient: send/receive failed mid-batch. The connection
	// is dropped rather than returned to the pool.
	ErrNetworkTransient = errors.New("julea: transient network error")

	// ErrBackendOpFailed: backend create/open/read/write/delete/status
	// returned false/failed.
	ErrBackendOpFailed = errors.New("julea: backend operation failed")

	// ErrProtocolMismatch: reply id or operation count did not match the
	// request. Fatal for that connection.
	ErrProtocolMismatch = errors.New("julea: protocol mismatch")

	// ErrNotFound is a finer-grained companion to ErrBackendOpFailed used
	// internally by the local backends and KV metadata lookups.
	ErrNotFound = errors.New("julea: not found")
)

// Wrap annotates err with a message, preserving errors.Is/As against the
// wrapped sentinel.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}
