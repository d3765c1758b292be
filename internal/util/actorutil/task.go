package actorutil

import (
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// Sender is the part of a context a background task needs to deliver its result.
// Use the root context: actor contexts must not leave the actor goroutine.
type Sender interface {
	Send(pid *actor.PID, message interface{})
}

type SafeBackgroundTask[T any] struct {
	sender  Sender
	fn      func() (*T, error)
	timeout *time.Duration
	recover func(error) T
}

func NewBackgroundTask[T any](sender Sender, fn func() (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		sender: sender,
		fn:     fn,
	}
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

// Recover maps an error or timeout into a regular result.
func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

// PipeTo runs the task on its own goroutine and sends the result to pid.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	go func() {
		if value, ok := t.Run(); ok {
			t.sender.Send(pid, value)
		}
	}()
}

// Run executes the task synchronously. ok is false when it failed and no Recover was set.
func (t *SafeBackgroundTask[T]) Run() (value T, ok bool) {
	bgFn := io.Eval(t.fn)
	bg := io.Map(bgFn, func(a *T) T {
		if a != nil {
			return *a
		}
		panic(errors.New("result is nil"))
	})
	if t.timeout != nil {
		bg = io.WithTimeout[T](*t.timeout)(bg)
	}
	result := io.RunSync(bg)
	if result.Error != nil {
		if t.recover == nil {
			return value, false
		}
		return t.recover(result.Error), true
	}
	return result.Value, true
}
