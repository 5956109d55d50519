// Package middleware wraps the session's inbound dispatch.
//
// Every decoded message passes through the chain before it is routed to the
// correlation context:
//
//	frame ─▶ decode ─▶ Logging ─▶ Metrics ─▶ Tracing ─▶ route
//
// A handler reports whether the message matched a pending operation; a non-nil
// error is fatal to the session.
package middleware

import (
	"context"

	"mini-wamp/message"
)

type HandlerFunc func(ctx context.Context, m message.Message) (handled bool, err error)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain 将多个中间件组合成一个中间件
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
