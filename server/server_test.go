package server_test

import (
	"net"
	"testing"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/julea-project/julea/backend"
	_ "github.com/julea-project/julea/backend/kvbunt"
	_ "github.com/julea-project/julea/backend/posix"
	"github.com/julea-project/julea/batch"
	"github.com/julea-project/julea/client"
	"github.com/julea-project/julea/cmn"
	"github.com/julea-project/julea/object"
	"github.com/julea-project/julea/server"
)

func TestServer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "server suite")
}

// freeAddr grabs an ephemeral port by binding and immediately releasing
// it; there is an inherent race against another process stealing it
// before srv.Serve rebinds, acceptable for this local test.
func freeAddr() string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	addr := ln.Addr().String()
	Expect(ln.Close()).To(Succeed())
	return addr
}

// newRemoteClient returns a Client with no local backends, forcing every
// object/KV operation over the network to srv (§4.6's remote path).
func newRemoteClient(addr string, stripeSize uint32) *client.Client {
	cfg := cmn.DefaultConfig()
	cfg.ObjectServers = []string{addr}
	cfg.KVServers = []string{addr}
	cfg.StripeSize = stripeSize
	return client.New(cfg)
}

func startServer(dir string, stripeSize uint32) (addr string, srv *server.Server) {
	objBackend, err := backend.NewObject("posix", dir+"/objects")
	Expect(err).NotTo(HaveOccurred())
	kvBackend, err := backend.NewKV("kvbunt", "")
	Expect(err).NotTo(HaveOccurred())

	addr = freeAddr()
	srv = server.New(objBackend, kvBackend, stripeSize)
	go func() {
		defer GinkgoRecover()
		_ = srv.Serve(addr)
	}()

	// Give the listener a moment to bind before dialing.
	for i := 0; i < 100; i++ {
		if c, err := net.Dial("tcp", addr); err == nil {
			c.Close()
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	return addr, srv
}

var _ = Describe("Server dispatch", func() {
	It("round trips create/write/read over a real TCP connection", func() {
		addr, srv := startServer(GinkgoT().TempDir(), cmn.DefaultStripeSize)
		defer srv.Shutdown()

		cl := newRemoteClient(addr, cmn.DefaultStripeSize)
		Expect(cl.HasLocalObjectBackend()).To(BeFalse())

		o := object.New(cl, "bench", "remote")
		b := batch.New(cmn.DefaultSemantics())
		object.Create(cl, o, b, cmn.TransformXOR, cmn.ModeClient)
		Expect(b.Execute()).To(BeTrue())

		input := []byte("hello, julea server")
		var written uint64
		b = batch.New(cmn.DefaultSemantics())
		object.Write(cl, o, input, uint64(len(input)), 0, &written, b)
		Expect(b.Execute()).To(BeTrue())
		Expect(written).To(Equal(uint64(len(input))))

		readBuf := make([]byte, len(input))
		var read uint64
		b = batch.New(cmn.DefaultSemantics())
		object.Read(cl, o, readBuf, uint64(len(input)), 0, &read, b)
		Expect(b.Execute()).To(BeTrue())
		Expect(read).To(Equal(uint64(len(input))))
		Expect(readBuf).To(Equal(input))
	})

	It("fakes bytes_written under SAFETY_NONE without waiting on a reply (S5)", func() {
		addr, srv := startServer(GinkgoT().TempDir(), cmn.DefaultStripeSize)
		defer srv.Shutdown()

		cl := newRemoteClient(addr, cmn.DefaultStripeSize)
		o := object.New(cl, "bench", "remote-none")
		b := batch.New(cmn.DefaultSemantics())
		object.Create(cl, o, b, cmn.TransformNone, cmn.ModeClient)
		Expect(b.Execute()).To(BeTrue())

		input := make([]byte, 4096)
		for i := range input {
			input[i] = byte(i)
		}
		var written uint64
		sem := cmn.Semantics{Safety: cmn.SafetyNone}
		b = batch.New(sem)
		object.Write(cl, o, input, uint64(len(input)), 0, &written, b)
		Expect(b.Execute()).To(BeTrue())
		Expect(written).To(Equal(uint64(len(input))))

		// Confirm the bytes actually landed despite no reply being read.
		readBuf := make([]byte, len(input))
		var read uint64
		b = batch.New(cmn.DefaultSemantics())
		object.Read(cl, o, readBuf, uint64(len(input)), 0, &read, b)
		Expect(b.Execute()).To(BeTrue())
		Expect(readBuf).To(Equal(input))
	})

	It("reassembles a read reply the server had to split across frames (S6)", func() {
		// A 1 KiB stripe forces handleRead to flush mid-message for two
		// 768-byte reads in one batch.
		addr, srv := startServer(GinkgoT().TempDir(), 1024)
		defer srv.Shutdown()

		cl := newRemoteClient(addr, 1024)
		o1 := object.New(cl, "bench", "big1")
		o2 := object.New(cl, "bench", "big2")
		b := batch.New(cmn.DefaultSemantics())
		object.Create(cl, o1, b, cmn.TransformNone, cmn.ModeClient)
		object.Create(cl, o2, b, cmn.TransformNone, cmn.ModeClient)
		Expect(b.Execute()).To(BeTrue())

		in1 := make([]byte, 768)
		in2 := make([]byte, 768)
		for i := range in1 {
			in1[i] = byte(i)
			in2[i] = byte(255 - i)
		}
		var w1, w2 uint64
		b = batch.New(cmn.DefaultSemantics())
		object.Write(cl, o1, in1, 768, 0, &w1, b)
		object.Write(cl, o2, in2, 768, 0, &w2, b)
		Expect(b.Execute()).To(BeTrue())

		out1 := make([]byte, 768)
		out2 := make([]byte, 768)
		var r1, r2 uint64
		b = batch.New(cmn.DefaultSemantics())
		object.Read(cl, o1, out1, 768, 0, &r1, b)
		object.Read(cl, o2, out2, 768, 0, &r2, b)
		Expect(b.Execute()).To(BeTrue())
		Expect(out1).To(Equal(in1))
		Expect(out2).To(Equal(in2))
	})
})
