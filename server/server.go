// Package server implements the julea server dispatcher of §4.8: a TCP
// listener that spawns one worker per accepted connection, each driving a
// backend directly from framed wire requests.
package server

import (
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/julea-project/julea/backend"
	"github.com/julea-project/julea/cmn"
	"github.com/julea-project/julea/cmn/nlog"
)

// Server owns the object and/or KV backends this process serves and the
// listeners accepting connections for them.
type Server struct {
	ObjectBackend backend.Object
	KVBackend     backend.KV
	StripeSize    uint32

	mu        sync.Mutex
	listeners []net.Listener
	conns     map[net.Conn]struct{}
	workers   errgroup.Group
}

// New returns a Server over the given backends. Either may be nil if this
// process serves only the other kind.
func New(objectBackend backend.Object, kvBackend backend.KV, stripeSize uint32) *Server {
	if stripeSize == 0 {
		stripeSize = cmn.DefaultStripeSize
	}
	return &Server{ObjectBackend: objectBackend, KVBackend: kvBackend, StripeSize: stripeSize}
}

// Serve listens on addr and spawns one worker per accepted connection,
// blocking until the listener is closed by Shutdown.
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return cmn.Wrapf(cmn.ErrBackendUnavailable, "listen %s: %v", addr, err)
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()

	log := nlog.WithComponent("server")
	log.Info().Str("addr", addr).Msg("listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			return nil // listener closed by Shutdown
		}
		s.trackConn(conn)
		s.workers.Go(func() error {
			w := newWorker(s, conn)
			w.run()
			s.untrackConn(conn)
			return nil
		})
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.mu.Lock()
	if s.conns == nil {
		s.conns = make(map[net.Conn]struct{})
	}
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// Shutdown closes every listener this Server opened, closes every
// accepted connection (including idle ones sitting in a client's pool,
// so workers blocked in wire.ReadMessage wake with an error rather than
// waiting on the far end), and waits for in-flight workers to return.
func (s *Server) Shutdown() {
	s.mu.Lock()
	for _, ln := range s.listeners {
		ln.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	_ = s.workers.Wait()
}
