// Package cmn holds constants, configuration, and error types shared by
// every julea component: the wire codec, the connection pool, the backend
// capability set, the transformation codec, the batch pipeline, the
// transformation object, and the server dispatcher.
package cmn

// MsgType is the `type` field of a wire message header (§6).
type MsgType uint8

const (
	MsgNone MsgType = iota
	MsgObjectCreate
	MsgObjectDelete
	MsgObjectRead
	MsgObjectWrite
	MsgObjectStatus
	MsgTransformationObjectCreate
	MsgTransformationObjectDelete
	MsgTransformationObjectRead
	MsgTransformationObjectWrite
	MsgTransformationObjectStatus
	MsgKVPut
	MsgKVDelete
	MsgKVGet
	MsgKVGetAll
	MsgKVGetByPrefix
	MsgStatistics
	MsgPing
)

func (t MsgType) String() string {
	switch t {
	case MsgNone:
		return "NONE"
	case MsgObjectCreate:
		return "OBJECT_CREATE"
	case MsgObjectDelete:
		return "OBJECT_DELETE"
	case MsgObjectRead:
		return "OBJECT_READ"
	case MsgObjectWrite:
		return "OBJECT_WRITE"
	case MsgObjectStatus:
		return "OBJECT_STATUS"
	case MsgTransformationObjectCreate:
		return "TRANSFORMATION_OBJECT_CREATE"
	case MsgTransformationObjectDelete:
		return "TRANSFORMATION_OBJECT_DELETE"
	case MsgTransformationObjectRead:
		return "TRANSFORMATION_OBJECT_READ"
	case MsgTransformationObjectWrite:
		return "TRANSFORMATION_OBJECT_WRITE"
	case MsgTransformationObjectStatus:
		return "TRANSFORMATION_OBJECT_STATUS"
	case MsgKVPut:
		return "KV_PUT"
	case MsgKVDelete:
		return "KV_DELETE"
	case MsgKVGet:
		return "KV_GET"
	case MsgKVGetAll:
		return "KV_GET_ALL"
	case MsgKVGetByPrefix:
		return "KV_GET_BY_PREFIX"
	case MsgStatistics:
		return "STATISTICS"
	case MsgPing:
		return "PING"
	default:
		return "UNKNOWN"
	}
}

// Flags is the wire header's bitfield (§4.1).
type Flags uint8

const (
	FlagReply        Flags = 0x01
	FlagSafetyStorage Flags = 0x02
	FlagSafetyNetwork Flags = 0x04
)

// Safety is the per-batch reply/durability knob (§3, §4.1).
type Safety uint8

const (
	SafetyNone Safety = iota
	SafetyNetwork
	SafetyStorage
)

// Flags returns the wire bitfield contribution of a safety level (the
// reply bit is ORed in separately by the caller once it knows whether
// this is a request or a reply).
func (s Safety) Flags() Flags {
	switch s {
	case SafetyStorage:
		return FlagSafetyStorage
	case SafetyNetwork:
		return FlagSafetyNetwork
	default:
		return 0
	}
}

// RequiresReply reports whether the server must reply after a
// write/create/delete group under this safety level (§4.1).
func (s Safety) RequiresReply() bool {
	return s != SafetyNone
}

// TransformType is the transformation codec's `type` field (§3, §4.4).
type TransformType uint8

const (
	TransformNone TransformType = iota
	TransformXOR
	TransformRLE
	TransformLZ4
)

func (t TransformType) String() string {
	switch t {
	case TransformNone:
		return "NONE"
	case TransformXOR:
		return "XOR"
	case TransformRLE:
		return "RLE"
	case TransformLZ4:
		return "LZ4"
	default:
		return "UNKNOWN"
	}
}

// PartialAccess is derived from TransformType alone (§3): NONE and XOR
// preserve both size and per-byte addressability; RLE and LZ4 do not.
func (t TransformType) PartialAccess() bool {
	return t == TransformNone || t == TransformXOR
}

// SizePreserving reports whether original_size == transformed_size always
// holds for this transformation (invariant 1, §3).
func (t TransformType) SizePreserving() bool {
	return t == TransformNone || t == TransformXOR
}

// TransformMode selects which side owns the encode/decode step (§3, §4.4).
type TransformMode uint8

const (
	ModeClient TransformMode = iota
	ModeTransport
	ModeServer
)

func (m TransformMode) String() string {
	switch m {
	case ModeClient:
		return "CLIENT"
	case ModeTransport:
		return "TRANSPORT"
	case ModeServer:
		return "SERVER"
	default:
		return "UNKNOWN"
	}
}

// BackendKind distinguishes the object and KV capability sets (§4.3).
type BackendKind uint8

const (
	BackendObject BackendKind = iota
	BackendKV
)

func (k BackendKind) String() string {
	if k == BackendKV {
		return "kv"
	}
	return "object"
}

// Caller identifies which direction-policy row/column of §4.4's table an
// `apply` invocation is being made for.
type Caller uint8

const (
	CallerClientRead Caller = iota
	CallerClientWrite
	CallerServerRead
	CallerServerWrite
)

// DefaultMaxOperationSize is the default chunk size (§4.5) above which a
// single user read/write is split into multiple pipeline operations.
const DefaultMaxOperationSize = 8 * 1024 * 1024

// DefaultStripeSize is the server's per-connection scratch region size (§4.8, §6).
const DefaultStripeSize = 1 << 20 // 1 MiB, per spec's STRIPE_SIZE
