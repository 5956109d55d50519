package client

import (
	"github.com/rs/zerolog"

	"mini-wamp/codec"
	"mini-wamp/correlation"
	"mini-wamp/message"
	"mini-wamp/middleware"
)

// WelcomeHandler runs once when the router accepts the session.
type WelcomeHandler func(c *correlation.Context, w *message.Welcome) *correlation.Context

// ChallengeHandler answers an authentication Challenge, normally by sending
// Authenticate on c.
type ChallengeHandler func(c *correlation.Context, ch *message.Challenge) *correlation.Context

type options struct {
	logger      zerolog.Logger
	codec       codec.Codec
	middlewares []middleware.Middleware
	passthrough func(message.Message)
	onWelcome   WelcomeHandler
	onChallenge ChallengeHandler
}

type Option func(*options)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithMiddleware wraps inbound dispatch. The first middleware is outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mws...) }
}

// WithPassthrough receives messages that matched nothing: stale or
// unsolicited replies and Extension messages. It runs on the loop goroutine.
func WithPassthrough(fn func(message.Message)) Option {
	return func(o *options) { o.passthrough = fn }
}

// OnWelcome sets the single Welcome continuation.
func OnWelcome(h WelcomeHandler) Option {
	return func(o *options) { o.onWelcome = h }
}

// OnChallenge sets the single Challenge continuation.
func OnChallenge(h ChallengeHandler) Option {
	return func(o *options) { o.onChallenge = h }
}
