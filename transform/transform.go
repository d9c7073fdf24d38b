// Package transform implements the transformation codec of §4.4: encode
// and decode a payload under NONE/XOR/RLE/LZ4, and the direction-policy
// state machine that decides, for a given (mode, caller), whether Apply
// runs at all and whether it inverts.
package transform

import (
	"github.com/julea-project/julea/cmn"
)

// Transformation is the {type, mode, partial_access} record of §3.
// PartialAccess is derived from Type alone, never set independently.
type Transformation struct {
	Type cmn.TransformType
	Mode cmn.TransformMode
}

// PartialAccess reports whether this transformation supports editing a
// sub-range of the stored object in place (NONE, XOR) as opposed to
// requiring the whole object to be read, decoded, modified and
// re-encoded (RLE, LZ4).
func (t Transformation) PartialAccess() bool { return t.Type.PartialAccess() }

// Action is the outcome of the direction-policy table for one (mode,
// caller) pair.
type Action uint8

const (
	ActionSkip Action = iota
	ActionForward
	ActionInverse
)

// Direction implements the table in §4.4.
func Direction(mode cmn.TransformMode, caller cmn.Caller) Action {
	switch mode {
	case cmn.ModeClient:
		switch caller {
		case cmn.CallerClientRead:
			return ActionInverse
		case cmn.CallerClientWrite:
			return ActionForward
		default:
			return ActionSkip
		}
	case cmn.ModeTransport:
		switch caller {
		case cmn.CallerClientRead:
			return ActionInverse
		case cmn.CallerClientWrite:
			return ActionForward
		case cmn.CallerServerRead:
			return ActionForward
		case cmn.CallerServerWrite:
			return ActionInverse
		}
	case cmn.ModeServer:
		switch caller {
		case cmn.CallerServerRead:
			return ActionInverse
		case cmn.CallerServerWrite:
			return ActionForward
		default:
			return ActionSkip
		}
	}
	return ActionSkip
}

// NeedWholeObject reports whether the transformation requires reading,
// decoding, modifying and re-encoding the entire stored object rather
// than editing the requested range in place (§4.4): true iff the
// transformation is not PartialAccess, for any CLIENT_READ or
// CLIENT_WRITE caller. SERVER_* callers never need this: the whole-object
// strategy is a client-side concern (the server backend always operates
// on the object it owns directly).
func NeedWholeObject(t cmn.TransformType, caller cmn.Caller) bool {
	if caller != cmn.CallerClientRead && caller != cmn.CallerClientWrite {
		return false
	}
	return !t.PartialAccess()
}

// Apply encodes (inverse=false) or decodes (inverse=true) input under t,
// allocating a fresh output buffer. hintSize is the expected decoded
// length and is required (non-zero, unless the expected length truly is
// zero) for LZ4's inverse direction, which cannot otherwise size its
// destination buffer; it is ignored by the other transformations. This
// is the allocating-buffer signature §9 commits to.
func Apply(t cmn.TransformType, inverse bool, input []byte, hintSize int) ([]byte, error) {
	switch t {
	case cmn.TransformNone:
		return applyNone(input)
	case cmn.TransformXOR:
		return applyXOR(input)
	case cmn.TransformRLE:
		if inverse {
			return decodeRLE(input)
		}
		return encodeRLE(input)
	case cmn.TransformLZ4:
		if inverse {
			return decodeLZ4(input, hintSize)
		}
		return encodeLZ4(input)
	default:
		return nil, cmn.Wrapf(cmn.ErrInputInvalid, "transform: unknown type %v", t)
	}
}

// Cleanup releases out_buf. Go buffers are garbage collected, so this is
// a documented no-op kept for parity with §4.4's cleanup(out_buf)
// operation and as the single place a future buffer pool would hook in.
func Cleanup(_ []byte) {}

func applyNone(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}
