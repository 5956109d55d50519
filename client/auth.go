package client

import (
	"github.com/rs/zerolog/log"

	"mini-wamp/correlation"
	"mini-wamp/message"
)

// TicketAuth answers a "ticket" Challenge with the given ticket. Any other
// method is refused with Abort. Send failures go to the global logger.
func TicketAuth(ticket string) ChallengeHandler {
	return func(c *correlation.Context, ch *message.Challenge) *correlation.Context {
		if ch.AuthMethod != "ticket" {
			if err := c.Send(message.NewAbort(message.ErrAuthorizationFailed)); err != nil {
				log.Error().Err(err).Str("authmethod", ch.AuthMethod).Msg("abort")
			}
			return c
		}
		if err := c.Send(message.NewAuthenticate(ticket)); err != nil {
			log.Error().Err(err).Msg("authenticate")
		}
		return c
	}
}

// TicketHello adds the details a router needs to offer ticket authentication.
func TicketHello(h *message.Hello, authID string) *message.Hello {
	if h.Details == nil {
		h.Details = message.Dict{}
	}
	h.Details["authmethods"] = []any{"ticket"}
	if authID != "" {
		h.Details["authid"] = authID
	}
	return h
}
