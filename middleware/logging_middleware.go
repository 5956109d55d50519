package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mini-wamp/message"
)

// LoggingMiddleware logs every dispatched message at debug level, unmatched
// replies at info and fatal dispatch errors at error.
func LoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, m message.Message) (bool, error) {
			start := time.Now()
			handled, err := next(ctx, m)
			duration := time.Since(start)

			event := logger.Debug()
			switch {
			case err != nil:
				event = logger.Error().Err(err)
			case !handled && correlatable(m):
				event = logger.Info()
			}
			event = event.Str("type", m.Type().String()).Bool("handled", handled).Dur("duration", duration)
			if r, ok := m.(message.Requester); ok {
				event = event.Uint64("request_id", r.Request())
			}
			event.Msg("dispatch")
			return handled, err
		}
	}
}

// correlatable reports whether m answers something the client asked for, so
// a miss means a stale or unsolicited reply.
func correlatable(m message.Message) bool {
	switch m.Type() {
	case message.TypeError, message.TypePublished, message.TypeSubscribed, message.TypeUnsubscribed,
		message.TypeResult, message.TypeRegistered, message.TypeUnregistered, message.TypeEvent,
		message.TypeInvocation, message.TypeInterrupt:
		return true
	}
	return false
}
