package chunked_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/julea-project/julea/backend"
	_ "github.com/julea-project/julea/backend/kvbunt"
	_ "github.com/julea-project/julea/backend/posix"
	"github.com/julea-project/julea/batch"
	"github.com/julea-project/julea/chunked"
	"github.com/julea-project/julea/client"
	"github.com/julea-project/julea/cmn"
	"github.com/julea-project/julea/object"
)

func newLocalClient(dir string) *client.Client {
	cl := client.New(cmn.DefaultConfig())
	objBackend, err := backend.NewObject("posix", dir+"/objects")
	Expect(err).NotTo(HaveOccurred())
	kvBackend, err := backend.NewKV("kvbunt", "")
	Expect(err).NotTo(HaveOccurred())
	cl.ObjectBackend = objBackend
	cl.KVBackend = kvBackend
	return cl
}

var _ = Describe("Chunked transformation object", func() {
	It("tiles a write across chunk boundaries as in scenario S4", func() {
		cl := newLocalClient(GinkgoT().TempDir())
		c := chunked.New("bench", "big", 64)
		b := batch.New(cmn.DefaultSemantics())
		chunked.Create(cl, c, b, cmn.TransformNone, cmn.ModeClient)
		Expect(b.Execute()).To(BeTrue())

		input := make([]byte, 100)
		rand.New(rand.NewSource(7)).Read(input)

		var written uint64
		b = batch.New(cmn.DefaultSemantics())
		Expect(chunked.Write(cl, c, input, 100, 50, &written, b)).To(Succeed())
		Expect(b.Execute()).To(BeTrue())
		Expect(c.ChunkCount).To(Equal(uint32(3)))

		verify := func(id uint32, localOff, localLen uint64, want []byte) {
			o := object.New(cl, "bench", "big_"+itoa(id))
			buf := make([]byte, localLen)
			var read uint64
			rb := batch.New(cmn.DefaultSemantics())
			object.Read(cl, o, buf, localLen, localOff, &read, rb)
			Expect(rb.Execute()).To(BeTrue())
			Expect(buf).To(Equal(want))
		}
		verify(0, 50, 14, input[0:14])
		verify(1, 0, 64, input[14:78])
		verify(2, 0, 22, input[78:100])
	})

	It("returns byte-identical reads to a flat object of the same type/mode", func() {
		cl := newLocalClient(GinkgoT().TempDir())

		flat := object.New(cl, "bench", "flat")
		b := batch.New(cmn.DefaultSemantics())
		object.Create(cl, flat, b, cmn.TransformXOR, cmn.ModeClient)
		Expect(b.Execute()).To(BeTrue())

		ch := chunked.New("bench", "chunked", 32)
		b = batch.New(cmn.DefaultSemantics())
		chunked.Create(cl, ch, b, cmn.TransformXOR, cmn.ModeClient)
		Expect(b.Execute()).To(BeTrue())

		input := make([]byte, 200)
		rand.New(rand.NewSource(11)).Read(input)

		var w1, w2 uint64
		b = batch.New(cmn.DefaultSemantics())
		object.Write(cl, flat, input, 200, 0, &w1, b)
		Expect(chunked.Write(cl, ch, input, 200, 0, &w2, b)).To(Succeed())
		Expect(b.Execute()).To(BeTrue())

		for _, win := range [][2]uint64{{0, 200}, {10, 50}, {100, 100}, {199, 1}} {
			off, length := win[0], win[1]
			buf1 := make([]byte, length)
			buf2 := make([]byte, length)
			var r1, r2 uint64
			rb := batch.New(cmn.DefaultSemantics())
			object.Read(cl, flat, buf1, length, off, &r1, rb)
			Expect(chunked.Read(cl, ch, buf2, length, off, &r2, rb)).To(Succeed())
			Expect(rb.Execute()).To(BeTrue())
			Expect(buf2).To(Equal(buf1))
		}
	})
})

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
