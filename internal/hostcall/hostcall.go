package hostcall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediasolver/internal/services"
)

// ErrIncomplete reports that a bounded call did not finish within its timeout.
var ErrIncomplete = errors.New("host call did not complete")

// Result is the outcome of a bounded call. Completed is false when the
// timeout elapsed (or the context ended) before the operation returned; Value
// and Err are meaningful only when Completed is true.
type Result[T any] struct {
	Completed bool
	Value     T
	Err       error
}

type outcome[T any] struct {
	value T
	err   error
}

// Do runs op on a separate goroutine and waits at most timeout for it. A
// non-positive timeout waits until op returns or ctx ends. Panics inside op
// are converted into errors.
func Do[T any](ctx context.Context, timeout time.Duration, op func() (T, error)) Result[T] {
	return DoRelease(ctx, timeout, op, nil)
}

// DoRelease is Do with a release hook for results that arrive after the
// caller gave up. release runs on the worker goroutine with any value op
// returned without error, so late sessions and handles can be closed.
func DoRelease[T any](ctx context.Context, timeout time.Duration, op func() (T, error), release func(T)) Result[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan outcome[T])
	abandoned := make(chan struct{})
	go func() {
		out := invoke(op)
		select {
		case done <- out:
		case <-abandoned:
			if release != nil && out.err == nil {
				release(out.value)
			}
		}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case out := <-done:
		return Result[T]{Completed: true, Value: out.value, Err: out.err}
	case <-expired:
	case <-ctx.Done():
	}
	close(abandoned)
	return Result[T]{}
}

func invoke[T any](op func() (T, error)) (out outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out.err = fmt.Errorf("host call panicked: %v", r)
		}
	}()
	out.value, out.err = op()
	return out
}

// Call is Do for callers that only care about the value. An incomplete call
// is returned as an error matching both ErrIncomplete and services.ErrTimeout.
func Call[T any](ctx context.Context, timeout time.Duration, name string, op func() (T, error)) (T, error) {
	return CallRelease(ctx, timeout, name, op, nil)
}

// CallRelease is Call with DoRelease's release hook.
func CallRelease[T any](ctx context.Context, timeout time.Duration, name string, op func() (T, error), release func(T)) (T, error) {
	res := DoRelease(ctx, timeout, op, release)
	if !res.Completed {
		var zero T
		if ctx != nil && ctx.Err() != nil {
			return zero, fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return zero, &TimeoutError{Op: name, Timeout: timeout}
	}
	return res.Value, res.Err
}

// TimeoutError describes which host operation exceeded its bound.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: no response from host within %s", e.Op, e.Timeout)
}

// Is lets errors.Is match the package and service level timeout markers.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrIncomplete || target == services.ErrTimeout
}

// IsTimeout reports whether err came from a bounded call that did not complete.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrIncomplete)
}
