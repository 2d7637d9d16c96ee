package actorutil

import (
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// BackgroundTask runs blocking work (a Modbus round trip) for an actor and
// turns its outcome into exactly one message. Without Recover a failed task
// delivers nothing.
type BackgroundTask[T any] struct {
	ctx     actor.Context
	fn      func() (T, error)
	timeout time.Duration
	recover func(error) T
}

func NewBackgroundTask[T any](ctx actor.Context, fn func() (T, error)) *BackgroundTask[T] {
	return &BackgroundTask[T]{
		ctx: ctx,
		fn:  fn,
	}
}

func NewBackgroundTaskNoError[T any](ctx actor.Context, fn func() T) *BackgroundTask[T] {
	return NewBackgroundTask(ctx, func() (T, error) {
		return fn(), nil
	})
}

// MapBackgroundTask transforms the result of t. Timeout and recovery are not carried over.
func MapBackgroundTask[T, T2 any](t *BackgroundTask[T], mapFn func(T) T2) *BackgroundTask[T2] {
	return NewBackgroundTask(t.ctx, func() (T2, error) {
		r, err := t.fn()
		if err != nil {
			var zero T2
			return zero, err
		}
		return mapFn(r), nil
	})
}

// WithTimeout bounds the wait. The work itself keeps running until its own I/O timeout.
func (t *BackgroundTask[T]) WithTimeout(timeout time.Duration) *BackgroundTask[T] {
	t.timeout = timeout
	return t
}

func (t *BackgroundTask[T]) Recover(fn func(error) T) *BackgroundTask[T] {
	t.recover = fn
	return t
}

func (t *BackgroundTask[T]) Run() (T, error) {
	bg := io.Eval(t.fn)
	if t.timeout > 0 {
		bg = io.WithTimeout[T](t.timeout)(bg)
	}
	result := io.RunSync(bg)
	if result.Error != nil && t.recover != nil {
		return t.recover(result.Error), nil
	}
	return result.Value, result.Error
}

func (t *BackgroundTask[T]) PipeTo(pid *actor.PID) {
	value, err := t.Run()
	if err != nil {
		return
	}
	t.ctx.Send(pid, value)
}
