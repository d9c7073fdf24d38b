package batch_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/julea-project/julea/batch"
	"github.com/julea-project/julea/cmn"
)

var _ = Describe("Batch", func() {
	var recordedRuns [][]string

	recordExec := func(label string) batch.ExecFunc {
		return func(ops []*batch.Op, _ cmn.Semantics) bool {
			var keys []string
			for _, op := range ops {
				keys = append(keys, op.Data.(string))
			}
			recordedRuns = append(recordedRuns, append([]string{label}, keys...))
			return true
		}
	}

	BeforeEach(func() {
		recordedRuns = nil
	})

	It("groups consecutive same-key, same-exec operations into one run", func() {
		b := batch.New(cmn.DefaultSemantics())
		execA := recordExec("A")
		execB := recordExec("B")

		b.Enqueue(&batch.Op{Key: "obj1", Exec: execA, Data: "r1"})
		b.Enqueue(&batch.Op{Key: "obj1", Exec: execA, Data: "r2"})
		b.Enqueue(&batch.Op{Key: "obj2", Exec: execB, Data: "r3"})
		b.Enqueue(&batch.Op{Key: "obj1", Exec: execA, Data: "r4"})

		ok := b.Execute()
		Expect(ok).To(BeTrue())
		// Three runs: (obj1,A){r1,r2}, (obj2,B){r3}, (obj1,A){r4} — the
		// user's order inside each run is preserved and runs are NOT
		// merged across the non-adjacent obj2 run.
		Expect(recordedRuns).To(HaveLen(3))
		Expect(recordedRuns[0]).To(Equal([]string{"A", "r1", "r2"}))
		Expect(recordedRuns[1]).To(Equal([]string{"B", "r3"}))
		Expect(recordedRuns[2]).To(Equal([]string{"A", "r4"}))
	})

	It("frees every op exactly once after its run", func() {
		b := batch.New(cmn.DefaultSemantics())
		freed := map[string]int{}
		exec := func(ops []*batch.Op, _ cmn.Semantics) bool { return true }
		free := func(op *batch.Op) { freed[op.Data.(string)]++ }

		b.Enqueue(&batch.Op{Key: "k", Exec: exec, Free: free, Data: "a"})
		b.Enqueue(&batch.Op{Key: "k", Exec: exec, Free: free, Data: "b"})

		b.Execute()
		Expect(freed).To(Equal(map[string]int{"a": 1, "b": 1}))
	})

	It("returns the logical AND of all run results", func() {
		b := batch.New(cmn.DefaultSemantics())
		ok := func(ops []*batch.Op, _ cmn.Semantics) bool { return true }
		fail := func(ops []*batch.Op, _ cmn.Semantics) bool { return false }

		b.Enqueue(&batch.Op{Key: "x", Exec: ok})
		b.Enqueue(&batch.Op{Key: "y", Exec: fail})

		Expect(b.Execute()).To(BeFalse())
	})

	It("lets sibling ops in other runs complete despite one run failing", func() {
		b := batch.New(cmn.DefaultSemantics())
		var ranY bool
		fail := func(ops []*batch.Op, _ cmn.Semantics) bool { return false }
		ok := func(ops []*batch.Op, _ cmn.Semantics) bool { ranY = true; return true }

		b.Enqueue(&batch.Op{Key: "x", Exec: fail})
		b.Enqueue(&batch.Op{Key: "y", Exec: ok})

		b.Execute()
		Expect(ranY).To(BeTrue())
	})
})

var _ = Describe("ChunkRange", func() {
	It("returns a single range when length fits under the limit", func() {
		Expect(batch.ChunkRange(10, 100, 1000)).To(Equal([][2]uint64{{10, 100}}))
	})

	It("splits a range exceeding max_operation_size into chunked sub-ranges", func() {
		got := batch.ChunkRange(0, 250, 100)
		Expect(got).To(Equal([][2]uint64{{0, 100}, {100, 100}, {200, 50}}))
	})

	It("returns nil for a zero-length range", func() {
		Expect(batch.ChunkRange(5, 0, 100)).To(BeNil())
	})
})
