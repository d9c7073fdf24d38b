package pool

import (
	"net"
	"testing"
	"time"

	"github.com/julea-project/julea/cmn"
)

func listenLocal(t *testing.T) net.Listener {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			go func() { _ = c }()
		}
	}()
	return l
}

func TestPopPushReusesConnection(t *testing.T) {
	l := listenLocal(t)
	defer l.Close()

	p := New(2, false)
	c1, err := p.Pop(cmn.BackendObject, 0, l.Addr().String())
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	p.Push(cmn.BackendObject, 0, c1)

	c2, err := p.Pop(cmn.BackendObject, 0, l.Addr().String())
	if err != nil {
		t.Fatalf("pop2: %v", err)
	}
	if c2 != c1 {
		t.Fatal("expected pooled connection to be reused")
	}
}

func TestPopBlocksUntilPush(t *testing.T) {
	l := listenLocal(t)
	defer l.Close()

	p := New(1, false)
	c1, err := p.Pop(cmn.BackendObject, 0, l.Addr().String())
	if err != nil {
		t.Fatalf("pop: %v", err)
	}

	done := make(chan struct{})
	go func() {
		c2, err := p.Pop(cmn.BackendObject, 0, l.Addr().String())
		if err != nil {
			t.Errorf("pop2: %v", err)
		}
		if c2 != c1 {
			t.Errorf("expected same connection back")
		}
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second Pop should have blocked")
	case <-time.After(100 * time.Millisecond):
	}

	p.Push(cmn.BackendObject, 0, c1)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Pop never unblocked after Push")
	}
}

func TestDropClosesAndDecrementsOpen(t *testing.T) {
	l := listenLocal(t)
	defer l.Close()

	p := New(1, false)
	c1, err := p.Pop(cmn.BackendObject, 0, l.Addr().String())
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	p.Drop(cmn.BackendObject, 0, c1)

	c2, err := p.Pop(cmn.BackendObject, 0, l.Addr().String())
	if err != nil {
		t.Fatalf("pop after drop: %v", err)
	}
	if c2 == c1 {
		t.Fatal("expected a fresh connection after drop")
	}
}

func TestAllowOverflowDoesNotBlock(t *testing.T) {
	l := listenLocal(t)
	defer l.Close()

	p := New(1, true)
	c1, err := p.Pop(cmn.BackendObject, 0, l.Addr().String())
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	defer c1.Close()

	done := make(chan struct{})
	go func() {
		c2, err := p.Pop(cmn.BackendObject, 0, l.Addr().String())
		if err != nil {
			t.Errorf("pop2: %v", err)
			return
		}
		defer c2.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("overflow Pop should not have blocked")
	}
}
