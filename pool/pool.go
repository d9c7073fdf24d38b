// Package pool implements the process-wide connection pool of §4.2: at
// most P TCP connections per (backend_kind, server_index) pair, leased
// with Pop and returned with Push. Leased connections are never shared
// concurrently.
package pool

import (
	"net"
	"sync"

	"github.com/julea-project/julea/cmn"
	"github.com/julea-project/julea/cmn/nlog"
)

type key struct {
	kind  cmn.BackendKind
	index int
}

// shard holds the connections for one (kind, index) pair.
type shard struct {
	mu            sync.Mutex
	cond          *sync.Cond
	idle          []net.Conn
	numOpen       int
	maxConns      int
	allowOverflow bool
}

func newShard(maxConns int, allowOverflow bool) *shard {
	s := &shard{maxConns: maxConns, allowOverflow: allowOverflow}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Pool is the process-wide, mutex-protected connection pool (§5: "The
// connection pool ... MUST be protected by a mutex").
type Pool struct {
	mu            sync.Mutex
	shards        map[key]*shard
	maxConns      int
	allowOverflow bool
}

// New returns a Pool allowing at most maxConns connections per
// (backend_kind, server_index) pair. If allowOverflow is true, Pop may
// dial beyond maxConns instead of blocking, per §4.2's "or allocating
// beyond P only if configured so".
func New(maxConns int, allowOverflow bool) *Pool {
	return &Pool{
		shards:        make(map[key]*shard),
		maxConns:      maxConns,
		allowOverflow: allowOverflow,
	}
}

func (p *Pool) shardFor(kind cmn.BackendKind, index int) *shard {
	k := key{kind, index}
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.shards[k]
	if !ok {
		s = newShard(p.maxConns, p.allowOverflow)
		p.shards[k] = s
	}
	return s
}

// Pop leases a connection to addr for the given (kind, index) pair,
// opening a new one (up to maxConns, or beyond if AllowOverflow) when the
// idle set is empty, and blocking otherwise until one is pushed back.
func (p *Pool) Pop(kind cmn.BackendKind, index int, addr string) (net.Conn, error) {
	s := p.shardFor(kind, index)

	s.mu.Lock()
	for {
		if n := len(s.idle); n > 0 {
			c := s.idle[n-1]
			s.idle = s.idle[:n-1]
			s.mu.Unlock()
			return c, nil
		}
		if s.numOpen < s.maxConns || s.allowOverflow {
			s.numOpen++
			s.mu.Unlock()
			c, err := dial(addr)
			if err != nil {
				s.mu.Lock()
				s.numOpen--
				s.mu.Unlock()
				return nil, err
			}
			return c, nil
		}
		s.cond.Wait()
	}
}

// Push returns a healthy connection to the pool so a future Pop can reuse
// it.
func (p *Pool) Push(kind cmn.BackendKind, index int, c net.Conn) {
	s := p.shardFor(kind, index)
	s.mu.Lock()
	s.idle = append(s.idle, c)
	s.mu.Unlock()
	s.cond.Signal()
}

// Drop closes a connection instead of returning it to the pool — the
// policy for ErrNetworkTransient (§7): "the connection is dropped (not
// returned to the pool)."
func (p *Pool) Drop(kind cmn.BackendKind, index int, c net.Conn) {
	if err := c.Close(); err != nil {
		nlog.WithComponent("pool").Debug().Err(err).Msg("close on drop")
	}
	s := p.shardFor(kind, index)
	s.mu.Lock()
	s.numOpen--
	s.mu.Unlock()
	s.cond.Signal()
}

func dial(addr string) (net.Conn, error) {
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	if tc, ok := c.(*net.TCPConn); ok {
		// Disable Nagle's algorithm on acceptance into the pool (§4.2).
		if err := tc.SetNoDelay(true); err != nil {
			nlog.WithComponent("pool").Debug().Err(err).Msg("set no delay")
		}
	}
	return c, nil
}
