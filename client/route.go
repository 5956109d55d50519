package client

import (
	"context"

	"mini-wamp/correlation"
	"mini-wamp/message"
)

// settle runs a continuation on a detached context and folds the result
// back into the session.
func settle[T any](s *Session, h correlation.Handler[T], r correlation.Result[T]) error {
	return s.ctx.Continue(func(d *correlation.Context) *correlation.Context {
		return h.Handle(d, r)
	})
}

// route is the innermost dispatch handler. It reports whether a
// continuation ran; a miss is not an error.
func (s *Session) route(_ context.Context, m message.Message) (bool, error) {
	if _, ext := m.(*message.Extension); !ext && !message.ReceivableBy(m.Type(), message.ClientRoles()...) {
		return false, &InvalidFrameError{Message: m}
	}

	switch m := m.(type) {
	case *message.Welcome:
		return s.onWelcome(m)
	case *message.Challenge:
		return s.onChallenge(m)
	case *message.Abort:
		s.setState(StateClosed)
		return false, &AbortError{Abort: m}
	case *message.Goodbye:
		return s.onGoodbye(m)
	case *message.Error:
		return s.onError(m)

	case *message.Published:
		p, ok := s.ctx.TakePublish(m.RequestID)
		if !ok {
			return false, nil
		}
		return true, settle(s, p.Handler, correlation.Ok(m))

	case *message.Subscribed:
		p, ok := s.ctx.TakeSubscribe(m.RequestID)
		if !ok {
			return false, nil
		}
		return true, settle(s, p.Handler, correlation.Ok(m))

	case *message.Unsubscribed:
		p, ok := s.ctx.TakeUnsubscribe(m.RequestID)
		if !ok {
			return false, nil
		}
		s.ctx.RemoveEvent(p.Request.Subscription)
		return true, settle(s, p.Handler, correlation.Ok(m))

	case *message.Registered:
		p, ok := s.ctx.TakeRegister(m.RequestID)
		if !ok {
			return false, nil
		}
		return true, settle(s, p.Handler, correlation.Ok(m))

	case *message.Unregistered:
		p, ok := s.ctx.TakeUnregister(m.RequestID)
		if !ok {
			return false, nil
		}
		s.ctx.RemoveInvocation(p.Request.Registration)
		return true, settle(s, p.Handler, correlation.Ok(m))

	case *message.Result:
		return s.onResult(m)

	case *message.Event:
		h, ok := s.ctx.FindEvent(m.Subscription)
		if !ok {
			return false, nil
		}
		return true, s.ctx.Continue(func(d *correlation.Context) *correlation.Context {
			return h.HandleEvent(d, m)
		})

	case *message.Invocation:
		h, ok := s.ctx.FindInvocation(m.Registration)
		if !ok {
			return false, nil
		}
		return true, settle(s, h, correlation.Ok(m))

	case *message.Interrupt:
		if s.interrupt(m.RequestID) {
			s.logger.Debug().Uint64("request", m.RequestID).Msg("invocation interrupted")
			return true, nil
		}
		p, ok := s.ctx.TakeCancel(m.RequestID)
		if !ok {
			return false, nil
		}
		return true, settle(s, p.Handler, correlation.Ok(m))

	case *message.Extension:
		return false, nil
	}
	return false, &InvalidFrameError{Message: m}
}

func (s *Session) onWelcome(m *message.Welcome) (bool, error) {
	s.sessionID.Store(m.Session)
	s.setState(StateEstablished)
	s.joinOnce.Do(func() { close(s.joined) })
	s.logger.Info().Uint64("session", m.Session).Msg("session established")

	if s.opts.onWelcome == nil {
		return false, nil
	}
	return true, s.ctx.Continue(func(d *correlation.Context) *correlation.Context {
		return s.opts.onWelcome(d, m)
	})
}

func (s *Session) onChallenge(m *message.Challenge) (bool, error) {
	s.setState(StateAuthenticating)
	if s.opts.onChallenge == nil {
		s.logger.Warn().Str("authmethod", m.AuthMethod).Msg("challenge received without a handler")
		return false, nil
	}
	return true, s.ctx.Continue(func(d *correlation.Context) *correlation.Context {
		return s.opts.onChallenge(d, m)
	})
}

// onGoodbye completes a close we started, or answers one the router started.
// Either way the session ends cleanly.
func (s *Session) onGoodbye(m *message.Goodbye) (bool, error) {
	if s.State() != StateClosing {
		if err := s.ctx.Send(message.NewGoodbye(message.CloseGoodbyeAndOut)); err != nil {
			s.logger.Debug().Err(err).Msg("goodbye reply not sent")
		}
	}
	s.logger.Info().Str("reason", m.Reason).Msg("session closed")
	s.setState(StateClosed)
	return true, nil
}

// onResult keeps the Call pending while results are progressive. The final
// result also settles any Cancel still waiting for that call.
func (s *Session) onResult(m *message.Result) (bool, error) {
	if m.Progressive() {
		p, ok := s.ctx.FindCall(m.RequestID)
		if !ok {
			return false, nil
		}
		return true, settle(s, p.Handler, correlation.Ok(m))
	}
	p, ok := s.ctx.TakeCall(m.RequestID)
	if !ok {
		return false, nil
	}
	s.ctx.TakeCancel(m.RequestID)
	return true, settle(s, p.Handler, correlation.Ok(m))
}

// onError routes an Error to the collection named by its cause tag.
func (s *Session) onError(m *message.Error) (bool, error) {
	id := m.RequestID
	switch m.Cause {
	case message.TypeCall:
		p, ok := s.ctx.TakeCall(id)
		if !ok {
			return false, nil
		}
		if err := settle(s, p.Handler, correlation.Fail[*message.Result](m)); err != nil {
			return true, err
		}
		if c, ok := s.ctx.TakeCancel(id); ok {
			return true, settle(s, c.Handler, correlation.Fail[*message.Interrupt](m))
		}
		return true, nil

	case message.TypeCancel:
		p, ok := s.ctx.TakeCancel(id)
		if !ok {
			return false, nil
		}
		return true, settle(s, p.Handler, correlation.Fail[*message.Interrupt](m))

	case message.TypeRegister:
		p, ok := s.ctx.TakeRegister(id)
		if !ok {
			return false, nil
		}
		return true, settle(s, p.Handler, correlation.Fail[*message.Registered](m))

	case message.TypeUnregister:
		p, ok := s.ctx.TakeUnregister(id)
		if !ok {
			return false, nil
		}
		return true, settle(s, p.Handler, correlation.Fail[*message.Unregistered](m))

	case message.TypeSubscribe:
		p, ok := s.ctx.TakeSubscribe(id)
		if !ok {
			return false, nil
		}
		return true, settle(s, p.Handler, correlation.Fail[*message.Subscribed](m))

	case message.TypeUnsubscribe:
		p, ok := s.ctx.TakeUnsubscribe(id)
		if !ok {
			return false, nil
		}
		return true, settle(s, p.Handler, correlation.Fail[*message.Unsubscribed](m))

	case message.TypePublish:
		p, ok := s.ctx.TakePublish(id)
		if !ok {
			return false, nil
		}
		return true, settle(s, p.Handler, correlation.Fail[*message.Published](m))

	case message.TypeInvocation:
		h, ok := s.ctx.TakeInvocationByRequest(id)
		if !ok {
			return false, nil
		}
		return true, settle(s, h, correlation.Fail[*message.Invocation](m))
	}
	return false, nil
}
