// Package client is the application-facing half of julea: it wires
// configuration, the connection pool, and optional client-side backends
// together and gives the object and chunked packages a single handle
// (Client) through which to dispatch pipeline operations either locally
// or across the network (§4.6, §4.7).
package client

import (
	"github.com/julea-project/julea/backend"
	"github.com/julea-project/julea/cmn"
	"github.com/julea-project/julea/pool"
	"github.com/julea-project/julea/wire"
)

// Client holds the process-wide state an application uses to build
// batches of transformation-object operations.
type Client struct {
	Config *cmn.Config
	Pool   *pool.Pool

	// ObjectBackend / KVBackend are present only when this process is
	// configured with a local in-process backend (§4.3); when nil, the
	// corresponding operation kind is serviced over the network.
	ObjectBackend backend.Object
	KVBackend     backend.KV

	nextID uint32
}

// New returns a Client over cfg. If cfg.MaxConnsPerServer is zero, the
// default from cmn.DefaultConfig is not reapplied here — callers should
// start from cmn.DefaultConfig()/cmn.ConfigFromEnv().
func New(cfg *cmn.Config) *Client {
	return &Client{
		Config: cfg,
		Pool:   pool.New(maxInt(cfg.MaxConnsPerServer, 1), cfg.AllowOverflow),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (c *Client) nextMsgID() uint32 {
	c.nextID++
	return c.nextID
}

// HasLocalObjectBackend reports whether object operations can be
// serviced in-process rather than over the network.
func (c *Client) HasLocalObjectBackend() bool { return c.ObjectBackend != nil }

// HasLocalKVBackend reports whether KV operations can be serviced
// in-process rather than over the network.
func (c *Client) HasLocalKVBackend() bool { return c.KVBackend != nil }

// ServerAddr returns the hostname:port for the given backend kind and
// server index, as configured (§6).
func (c *Client) ServerAddr(kind cmn.BackendKind, index int) string {
	var servers []string
	if kind == cmn.BackendKV {
		servers = c.Config.KVServers
	} else {
		servers = c.Config.ObjectServers
	}
	if index < 0 || index >= len(servers) {
		return ""
	}
	return servers[index]
}

// ServerCount returns the configured server count for the given backend
// kind, used to compute index = hash(name) mod S (§3).
func (c *Client) ServerCount(kind cmn.BackendKind) int {
	return c.Config.ServerCountFor(kind)
}

// SendRecv leases a connection for (kind, index), writes req, and — if
// expectReply — reads back the reply, validating its id and returning
// ProtocolMismatch if it doesn't match (§7). A read reply is read as one
// or more frames until their counts add up to the request's; every other
// reply is a single frame. The
// connection is returned to the pool on success and dropped (closed, not
// returned) on any network error, per §7's ErrNetworkTransient policy.
func (c *Client) SendRecv(kind cmn.BackendKind, index int, req *wire.Message, expectReply bool) (*wire.Message, error) {
	addr := c.ServerAddr(kind, index)
	if addr == "" {
		return nil, cmn.Wrapf(cmn.ErrInputInvalid, "no server configured for %v index %d", kind, index)
	}
	conn, err := c.Pool.Pop(kind, index, addr)
	if err != nil {
		return nil, cmn.Wrap(err, "dial")
	}

	if _, err := req.WriteTo(conn); err != nil {
		c.Pool.Drop(kind, index, conn)
		return nil, cmn.Wrapf(cmn.ErrNetworkTransient, "send: %v", err)
	}

	if !expectReply {
		c.Pool.Push(kind, index, conn)
		return nil, nil
	}

	reply, err := wire.ReadMessage(conn)
	if err != nil {
		c.Pool.Drop(kind, index, conn)
		return nil, cmn.Wrapf(cmn.ErrNetworkTransient, "recv: %v", err)
	}
	if reply.Header.ID != req.Header.ID {
		c.Pool.Drop(kind, index, conn)
		return nil, cmn.Wrapf(cmn.ErrProtocolMismatch, "reply id %d != request id %d", reply.Header.ID, req.Header.ID)
	}

	// A read reply may arrive as several frames under the same message id
	// when the server's scratch region forces a mid-message flush (§4.8).
	// Each frame is itself a complete [op fields][payloads] message for
	// its share of the operations, so frames must be split and re-merged
	// region-by-region rather than concatenated directly.
	isRead := req.Header.Type == cmn.MsgObjectRead || req.Header.Type == cmn.MsgTransformationObjectRead
	if isRead && reply.Header.Count < req.Header.Count {
		frames := []*wire.Message{reply}
		total := reply.Header.Count
		for total < req.Header.Count {
			more, err := wire.ReadMessage(conn)
			if err != nil {
				c.Pool.Drop(kind, index, conn)
				return nil, cmn.Wrapf(cmn.ErrNetworkTransient, "recv: %v", err)
			}
			if more.Header.ID != req.Header.ID {
				c.Pool.Drop(kind, index, conn)
				return nil, cmn.Wrapf(cmn.ErrProtocolMismatch, "reply id %d != request id %d", more.Header.ID, req.Header.ID)
			}
			total += more.Header.Count
			frames = append(frames, more)
		}
		reply = mergeReadReplyFrames(reply.Header, frames)
	}

	c.Pool.Push(kind, index, conn)
	return reply, nil
}

// readReplyOpWidth is the fixed size of one read-reply operation record:
// a single little-endian uint64 byte count (§4.1, §4.6) preceding the
// bulk payload region.
const readReplyOpWidth = 8

// mergeReadReplyFrames reassembles a read reply the server split across
// several wire frames into one logical message: every frame's own
// [op-record region][payload region] split is undone and the regions are
// concatenated in frame order, matching the single-frame layout
// wire.Writer would have produced had the server not had to flush early.
func mergeReadReplyFrames(hdr wire.Header, frames []*wire.Message) *wire.Message {
	var opsRegion, payloadRegion []byte
	var count uint16
	for _, f := range frames {
		opsLen := int(f.Header.Count) * readReplyOpWidth
		opsRegion = append(opsRegion, f.Body[:opsLen]...)
		payloadRegion = append(payloadRegion, f.Body[opsLen:]...)
		count += f.Header.Count
	}
	body := append(opsRegion, payloadRegion...)
	hdr.Count = count
	hdr.Length = uint32(len(body))
	return &wire.Message{Header: hdr, Body: body}
}

// NextMessage allocates the next monotonic message id and builds a
// request Message (§4.1).
func (c *Client) NextMessage(typ cmn.MsgType, safety cmn.Safety, w *wire.Writer) *wire.Message {
	return wire.NewRequest(c.nextMsgID(), typ, safety, w)
}
