package swarm

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// ErrTimeout is reported when a call exceeds its own deadline. It wraps
// context.DeadlineExceeded.
var ErrTimeout = fmt.Errorf("swarm: timed out: %w", context.DeadlineExceeded)

// PanicError carries a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string { return fmt.Sprintf("panic: %v", p.Value) }

// Result is the outcome of one bounded call.
type Result[T any] struct {
	Value   T
	Err     error
	Elapsed time.Duration
}

// WithTimeout runs fn with a deadline of d (none when d <= 0) and returns
// as soon as fn finishes or the deadline passes, whichever comes first.
// A panic in fn is returned as a *PanicError. When the parent context is
// cancelled first, its error is returned instead of ErrTimeout.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) Result[T] {
	start := time.Now()
	cctx, cancel := ctx, context.CancelFunc(func() {})
	if d > 0 {
		cctx, cancel = context.WithTimeout(ctx, d)
	}
	defer cancel()

	ch := make(chan Result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- Result[T]{Err: &PanicError{Value: r, Stack: debug.Stack()}}
			}
		}()
		v, err := fn(cctx)
		ch <- Result[T]{Value: v, Err: err}
	}()

	var res Result[T]
	select {
	case res = <-ch:
		if res.Err != nil && ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
			res.Err = ErrTimeout
		}
	case <-cctx.Done():
		if err := ctx.Err(); err != nil {
			res.Err = err
		} else {
			res.Err = ErrTimeout
		}
	}
	res.Elapsed = time.Since(start)
	return res
}
