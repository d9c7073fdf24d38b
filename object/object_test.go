package object_test

import (
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
)

func newLocalClient(dir string) *client.Client {
	cfg := cmn.DefaultConfig()
	cl := client.New(cfg)
	objBackend, err := backend.NewObject("posix", dir+"/objects")
	Expect(err).NotTo(HaveOccurred())
	kvBackend, err := backend.NewKV("kvbunt", "")
	Expect(err).NotTo(HaveOccurred())
	cl.ObjectBackend = objBackend
	cl.KVBackend = kvBackend
	return cl
}

var _ = Describe("Transformation object", func() {
	var cl *client.Client

	BeforeEach(func() {
		cl = newLocalClient(GinkgoT().TempDir())
	})

	It("round trips XOR exactly as in scenario S1", func() {
		o := object.New(cl, "bench", "o")
		b := batch.New(cmn.DefaultSemantics())
		object.Create(cl, o, b, cmn.TransformXOR, cmn.ModeClient)
		Expect(b.Execute()).To(BeTrue())

		input := []byte{0x41, 0x42, 0x43, 0x44}
		var written uint64
		b = batch.New(cmn.DefaultSemantics())
		object.Write(cl, o, input, 4, 0, &written, b)
		Expect(b.Execute()).To(BeTrue())
		Expect(written).To(Equal(uint64(4)))

		var mtime time.Time
		var origSize, transSize uint64
		var typ cmn.TransformType
		b = batch.New(cmn.DefaultSemantics())
		object.Status(cl, o, b, &mtime, &origSize, &transSize, &typ)
		Expect(b.Execute()).To(BeTrue())
		Expect(origSize).To(Equal(uint64(4)))
		Expect(transSize).To(Equal(uint64(4)))

		raw := make([]byte, 4)
		h, err := cl.ObjectBackend.Open("bench", "o")
		Expect(err).NotTo(HaveOccurred())
		_, err = cl.ObjectBackend.Read(h, raw, 4, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(cl.ObjectBackend.Close(h)).To(Succeed())
		Expect(raw).To(Equal([]byte{0xBE, 0xBD, 0xBC, 0xBB}))

		readBuf := make([]byte, 4)
		var read uint64
		b = batch.New(cmn.DefaultSemantics())
		object.Read(cl, o, readBuf, 4, 0, &read, b)
		Expect(b.Execute()).To(BeTrue())
		Expect(readBuf).To(Equal(input))
	})

	It("whole-object RLE write/read matches scenario S2", func() {
		o := object.New(cl, "bench", "o")
		b := batch.New(cmn.DefaultSemantics())
		object.Create(cl, o, b, cmn.TransformRLE, cmn.ModeClient)
		Expect(b.Execute()).To(BeTrue())

		input := make([]byte, 300)
		for i := range input {
			input[i] = 0x05
		}
		var written uint64
		b = batch.New(cmn.DefaultSemantics())
		object.Write(cl, o, input, 300, 0, &written, b)
		Expect(b.Execute()).To(BeTrue())

		var origSize, transSize uint64
		var typ cmn.TransformType
		var mtime time.Time
		b = batch.New(cmn.DefaultSemantics())
		object.Status(cl, o, b, &mtime, &origSize, &transSize, &typ)
		Expect(b.Execute()).To(BeTrue())
		Expect(origSize).To(Equal(uint64(300)))
		Expect(transSize).To(Equal(uint64(4)))

		window := make([]byte, 50)
		var read uint64
		b = batch.New(cmn.DefaultSemantics())
		object.Read(cl, o, window, 50, 100, &read, b)
		Expect(b.Execute()).To(BeTrue())
		Expect(read).To(Equal(uint64(50)))
		for _, by := range window {
			Expect(by).To(Equal(byte(0x05)))
		}
	})

	It("fakes bytes_written under SAFETY_NONE without waiting on a reply", func() {
		o := object.New(cl, "bench", "o")
		b := batch.New(cmn.DefaultSemantics())
		object.Create(cl, o, b, cmn.TransformNone, cmn.ModeClient)
		Expect(b.Execute()).To(BeTrue())

		var written uint64
		sem := cmn.Semantics{Safety: cmn.SafetyNone}
		b = batch.New(sem)
		object.Write(cl, o, []byte{0xAB}, 1, 0, &written, b)
		Expect(b.Execute()).To(BeTrue())
		Expect(written).To(Equal(uint64(1)))
	})

	It("deletes the object and its metadata record", func() {
		o := object.New(cl, "bench", "o")
		b := batch.New(cmn.DefaultSemantics())
		object.Create(cl, o, b, cmn.TransformNone, cmn.ModeClient)
		Expect(b.Execute()).To(BeTrue())

		b = batch.New(cmn.DefaultSemantics())
		object.Delete(cl, o, b)
		Expect(b.Execute()).To(BeTrue())

		_, err := cl.ObjectBackend.Open("bench", "o")
		Expect(err).To(HaveOccurred())
	})
})
