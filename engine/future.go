package engine

import (
	"context"

	"goa.design/bridge/ir"
)

// future is a single-assignment promise for one trunk's resolved value.
// Exactly one goroutine ever calls resolve; every other caller only awaits.
type future struct {
	done chan struct{}
	val  ir.Value
	err  error
}

func newFuture() *future {
	return &future{done: make(chan struct{})}
}

func (f *future) resolve(v ir.Value, err error) {
	f.val = v
	f.err = err
	close(f.done)
}

// await blocks until f settles or ctx is done, whichever comes first.
// Cancellation never tears down the in-flight invocation itself — another
// consumer may still be awaiting the same future.
func (f *future) await(ctx context.Context) (ir.Value, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return ir.Null, ctx.Err()
	}
}

// settled reports whether f has already resolved, without blocking.
func (f *future) settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
