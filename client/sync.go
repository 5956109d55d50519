package client

import (
	"context"
	"errors"

	"mini-wamp/correlation"
	"mini-wamp/message"
)

// The methods in this file block the calling goroutine until the router
// answers. They must not be called from a continuation, which runs on the
// loop and would wait for itself.

// Procedure implements a registered procedure for Register. It runs on its
// own goroutine; ctx ends when the router interrupts the invocation or the
// session ends. Returning a *message.Error sends that error URI back to the
// caller, context.Canceled is reported as wamp.error.canceled and any other
// error as wamp.error.runtime_error.
type Procedure func(ctx context.Context, inv *message.Invocation) (message.List, message.Dict, error)

func await[T any](ctx context.Context, s *Session, ch chan correlation.Result[T]) (T, error) {
	var zero T
	select {
	case r := <-ch:
		return r.Unwrap()
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		return zero, ErrSessionDone
	}
}

func deliver[T any](ch chan correlation.Result[T]) correlation.HandlerFunc[T] {
	return func(d *correlation.Context, r correlation.Result[T]) *correlation.Context {
		ch <- r
		return d
	}
}

// submit runs fn on the loop and returns the error fn reported, or the
// error Do reported when fn never got to run.
func (s *Session) submit(fn func(c *correlation.Context) error) error {
	var submitErr error
	if err := s.Do(func(c *correlation.Context) *correlation.Context {
		submitErr = fn(c)
		return c
	}); err != nil {
		return err
	}
	return submitErr
}

// Call invokes procedure and waits for its final result. If ctx ends first a
// Cancel in "kill" mode is sent for the call.
func (s *Session) Call(ctx context.Context, procedure string, args message.List, kwargs message.Dict) (*message.Result, error) {
	return s.CallProgress(ctx, procedure, args, kwargs, nil)
}

// CallProgress is Call with progressive results: each one is passed to
// progress on the loop goroutine before the final result returns.
func (s *Session) CallProgress(ctx context.Context, procedure string, args message.List, kwargs message.Dict, progress func(*message.Result)) (*message.Result, error) {
	ch := make(chan correlation.Result[*message.Result], 1)
	opts := message.Dict{}
	if progress != nil {
		opts["receive_progress"] = true
	}
	var id uint64
	err := s.submit(func(c *correlation.Context) error {
		req, err := c.Call(procedure, opts, args, kwargs, correlation.HandlerFunc[*message.Result](
			func(d *correlation.Context, r correlation.Result[*message.Result]) *correlation.Context {
				if !r.Failed() && r.Value.Progressive() {
					if progress != nil {
						progress(r.Value)
					}
					return d
				}
				ch <- r
				return d
			}))
		id = req.RequestID
		return err
	})
	if err != nil {
		return nil, err
	}

	res, err := await(ctx, s, ch)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		cancelErr := s.submit(func(c *correlation.Context) error {
			_, err := c.Cancel(id, "kill", nil)
			return err
		})
		if cancelErr != nil {
			s.logger.Debug().Err(cancelErr).Uint64("request", id).Msg("cancel not sent")
		}
	}
	return res, err
}

// Publish sends an event. With acknowledge it waits for Published, otherwise
// it returns nil once the message is written.
func (s *Session) Publish(ctx context.Context, topic string, args message.List, kwargs message.Dict, acknowledge bool) (*message.Published, error) {
	ch := make(chan correlation.Result[*message.Published], 1)
	err := s.submit(func(c *correlation.Context) error {
		_, err := c.Publish(topic, args, kwargs, acknowledge, deliver(ch))
		return err
	})
	if err != nil || !acknowledge {
		return nil, err
	}
	return await(ctx, s, ch)
}

// Subscribe subscribes to topic and calls fn for every event on the loop
// goroutine until Unsubscribe.
func (s *Session) Subscribe(ctx context.Context, topic string, opts message.Dict, fn func(*message.Event)) (*message.Subscribed, error) {
	ch := make(chan correlation.Result[*message.Subscribed], 1)
	events := correlation.EventHandlerFunc(func(d *correlation.Context, ev *message.Event) *correlation.Context {
		fn(ev)
		return d
	})
	err := s.submit(func(c *correlation.Context) error {
		_, err := c.SubscribeTo(topic, opts, events, deliver(ch))
		return err
	})
	if err != nil {
		return nil, err
	}
	return await(ctx, s, ch)
}

func (s *Session) Unsubscribe(ctx context.Context, subscription uint64) error {
	ch := make(chan correlation.Result[*message.Unsubscribed], 1)
	err := s.submit(func(c *correlation.Context) error {
		_, err := c.Unsubscribe(subscription, deliver(ch))
		return err
	})
	if err != nil {
		return err
	}
	_, err = await(ctx, s, ch)
	return err
}

// Register registers procedure and serves each invocation with fn on its
// own goroutine. The reply goes back through the loop. ctx bounds the
// registration only; each invocation gets a context that ends when the
// router interrupts it or the session ends.
func (s *Session) Register(ctx context.Context, procedure string, opts message.Dict, fn Procedure) (*message.Registered, error) {
	ch := make(chan correlation.Result[*message.Registered], 1)
	impl := correlation.HandlerFunc[*message.Invocation](func(d *correlation.Context, r correlation.Result[*message.Invocation]) *correlation.Context {
		if r.Failed() {
			s.logger.Warn().Err(r.Err).Str("procedure", procedure).Msg("invocation error")
			return d
		}
		ictx, cancel := context.WithCancel(context.Background())
		s.track(r.Value.RequestID, cancel)
		go s.serve(ictx, cancel, r.Value, fn)
		return d
	})
	err := s.submit(func(c *correlation.Context) error {
		_, err := c.Provide(procedure, opts, impl, deliver(ch))
		return err
	})
	if err != nil {
		return nil, err
	}
	return await(ctx, s, ch)
}

// serve runs fn for one invocation. The invocation is tracked before serve
// starts so an Interrupt arriving right behind it is not missed.
func (s *Session) serve(ctx context.Context, cancel context.CancelFunc, inv *message.Invocation, fn Procedure) {
	defer cancel()
	defer s.untrack(inv.RequestID)
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	args, kwargs, callErr := fn(ctx, inv)
	err := s.Do(func(c *correlation.Context) *correlation.Context {
		var reply error
		var wampErr *message.Error
		switch {
		case callErr == nil:
			reply = c.Yield(inv, args, kwargs)
		case errors.As(callErr, &wampErr):
			reply = c.ReplyError(inv, message.URI(wampErr.URI), wampErr.Args, wampErr.Kwargs)
		case errors.Is(callErr, context.Canceled):
			reply = c.ReplyError(inv, message.ErrCanceled, nil, nil)
		default:
			reply = c.ReplyError(inv, message.ErrRuntime, message.List{callErr.Error()}, nil)
		}
		if reply != nil {
			s.logger.Error().Err(reply).Uint64("request", inv.RequestID).Msg("invocation reply")
		}
		return c
	})
	if err != nil {
		s.logger.Debug().Err(err).Uint64("request", inv.RequestID).Msg("invocation reply dropped")
	}
}

func (s *Session) track(invocation uint64, cancel context.CancelFunc) {
	s.inflightMu.Lock()
	s.inflight[invocation] = cancel
	s.inflightMu.Unlock()
}

func (s *Session) untrack(invocation uint64) {
	s.inflightMu.Lock()
	delete(s.inflight, invocation)
	s.inflightMu.Unlock()
}

// interrupt cancels the context of the invocation being served under id.
func (s *Session) interrupt(invocation uint64) bool {
	s.inflightMu.Lock()
	cancel, ok := s.inflight[invocation]
	s.inflightMu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (s *Session) Unregister(ctx context.Context, registration uint64) error {
	ch := make(chan correlation.Result[*message.Unregistered], 1)
	err := s.submit(func(c *correlation.Context) error {
		_, err := c.Unregister(registration, deliver(ch))
		return err
	})
	if err != nil {
		return err
	}
	_, err = await(ctx, s, ch)
	return err
}
