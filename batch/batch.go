// Package batch implements the operation pipeline of §4.5: an ordered
// list of operations, each carrying an opaque key and two callbacks —
// exec (invoked once per run of consecutive same-key, same-exec
// operations) and free (invoked once per operation after its run's exec
// returns).
package batch

import (
	"reflect"
	"sync/atomic"

	"github.com/julea-project/julea/cmn"
)

// ExecFunc runs one run of operations against their shared target.
type ExecFunc func(ops []*Op, sem cmn.Semantics) bool

// FreeFunc releases whatever an operation's Data holds.
type FreeFunc func(op *Op)

// Op is one pipeline operation: an opaque Key used only for run grouping,
// the Exec/Free callback pair, and Data private to the caller that
// enqueued it.
type Op struct {
	Key  any
	Exec ExecFunc
	Free FreeFunc
	Data any
}

// Batch is the ordered list of operations of §3/§4.5.
type Batch struct {
	Semantics cmn.Semantics
	ops       []*Op
}

// New returns an empty Batch under the given semantics.
func New(sem cmn.Semantics) *Batch {
	return &Batch{Semantics: sem}
}

// Enqueue appends an operation, preserving the caller's order (the
// "user's order inside a run is preserved" guarantee of §4.5).
func (b *Batch) Enqueue(op *Op) {
	b.ops = append(b.ops, op)
}

// Len reports the number of enqueued operations.
func (b *Batch) Len() int { return len(b.ops) }

func execIdentity(f ExecFunc) uintptr {
	return reflect.ValueOf(f).Pointer()
}

// runs partitions b.ops into maximal consecutive spans sharing both Key
// and Exec function identity (§4.5, step 1), preserving order (step: "the
// partition is stable").
func (b *Batch) runs() [][]*Op {
	var out [][]*Op
	i := 0
	for i < len(b.ops) {
		j := i + 1
		for j < len(b.ops) &&
			b.ops[j].Key == b.ops[i].Key &&
			execIdentity(b.ops[j].Exec) == execIdentity(b.ops[i].Exec) {
			j++
		}
		out = append(out, b.ops[i:j])
		i = j
	}
	return out
}

// Execute runs every run's Exec once, frees every op's Data exactly once
// after its run, and returns the conjunction (logical AND) of all Exec
// results (§4.5, §7: "batch_execute returns the logical AND of
// per-operation successes").
func (b *Batch) Execute() bool {
	ok := true
	for _, run := range b.runs() {
		result := run[0].Exec(run, b.Semantics)
		if !result {
			ok = false
		}
		for _, op := range run {
			if op.Free != nil {
				op.Free(op)
			}
		}
	}
	return ok
}

// AddUint64 performs the atomic accumulation §4.5 requires for
// bytes_read/bytes_written when a user operation has been split across
// multiple pipeline operations by ChunkRange.
func AddUint64(counter *uint64, delta uint64) {
	atomic.AddUint64(counter, delta)
}

// ChunkRange splits a (offset, length) user request into at most
// ceil(length/maxOperationSize) sub-ranges, each itself a (offset,
// length) pair, per §4.5's "Large per-operation payloads exceeding
// max_operation_size MUST be split at the API boundary."
func ChunkRange(offset, length, maxOperationSize uint64) [][2]uint64 {
	if maxOperationSize == 0 || length <= maxOperationSize {
		if length == 0 {
			return nil
		}
		return [][2]uint64{{offset, length}}
	}
	var out [][2]uint64
	for remaining := length; remaining > 0; {
		n := maxOperationSize
		if n > remaining {
			n = remaining
		}
		out = append(out, [2]uint64{offset, n})
		offset += n
		remaining -= n
	}
	return out
}
