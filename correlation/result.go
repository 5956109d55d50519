package correlation

import "mini-wamp/message"

// Result is what a continuation receives: the typed reply, or the Error the
// router sent instead.
type Result[T any] struct {
	Value T
	Err   *message.Error
}

func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

func Fail[T any](err *message.Error) Result[T] { return Result[T]{Err: err} }

// Failed reports whether the result carries an Error.
func (r Result[T]) Failed() bool { return r.Err != nil }

// Unwrap returns the value, or the Error as a Go error.
func (r Result[T]) Unwrap() (T, error) {
	if r.Err != nil {
		var zero T
		return zero, r.Err
	}
	return r.Value, nil
}

// Handler is a continuation for a single-shot request. c is a detached
// context bound to the session; requests submitted on it are buffered and
// sent once Handle returns. The returned context holds the pending entries
// to fold back into the session, normally c itself. Returning nil means c.
//
// Handlers run on the session loop and may write but must never block on a
// read.
type Handler[T any] interface {
	Handle(c *Context, r Result[T]) *Context
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[T any] func(c *Context, r Result[T]) *Context

func (f HandlerFunc[T]) Handle(c *Context, r Result[T]) *Context { return f(c, r) }

// Discard is a Handler that ignores its result.
func Discard[T any]() Handler[T] {
	return HandlerFunc[T](func(c *Context, _ Result[T]) *Context { return c })
}

// EventHandler receives every Event for one subscription until the
// subscription is torn down.
type EventHandler interface {
	HandleEvent(c *Context, ev *message.Event) *Context
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(c *Context, ev *message.Event) *Context

func (f EventHandlerFunc) HandleEvent(c *Context, ev *message.Event) *Context { return f(c, ev) }
