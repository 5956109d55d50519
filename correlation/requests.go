package correlation

import "mini-wamp/message"

// The helpers below build a request with the next id from the session's
// source and submit it. They return the request so callers can keep its id.

func (c *Context) Call(procedure string, opts message.Dict, args message.List, kwargs message.Dict, h Handler[*message.Result]) (*message.Call, error) {
	req := &message.Call{RequestID: c.NextID(), Options: opts, Procedure: procedure, Args: args, Kwargs: kwargs}
	return req, c.SubmitCall(req, h)
}

// Cancel asks the router to cancel the Call with the given request id. mode
// is "skip", "kill" or "killnowait"; empty leaves the router's default.
func (c *Context) Cancel(call uint64, mode string, h Handler[*message.Interrupt]) (*message.Cancel, error) {
	opts := message.Dict{}
	if mode != "" {
		opts["mode"] = mode
	}
	req := &message.Cancel{RequestID: call, Options: opts}
	return req, c.SubmitCancel(req, h)
}

func (c *Context) Register(procedure string, opts message.Dict, h Handler[*message.Registered]) (*message.Register, error) {
	req := &message.Register{RequestID: c.NextID(), Options: opts, Procedure: procedure}
	return req, c.SubmitRegister(req, h)
}

func (c *Context) Unregister(registration uint64, h Handler[*message.Unregistered]) (*message.Unregister, error) {
	req := &message.Unregister{RequestID: c.NextID(), Registration: registration}
	return req, c.SubmitUnregister(req, h)
}

func (c *Context) Subscribe(topic string, opts message.Dict, h Handler[*message.Subscribed]) (*message.Subscribe, error) {
	req := &message.Subscribe{RequestID: c.NextID(), Options: opts, Topic: topic}
	return req, c.SubmitSubscribe(req, h)
}

func (c *Context) Unsubscribe(subscription uint64, h Handler[*message.Unsubscribed]) (*message.Unsubscribe, error) {
	req := &message.Unsubscribe{RequestID: c.NextID(), Subscription: subscription}
	return req, c.SubmitUnsubscribe(req, h)
}

// Publish sends an event. With acknowledge set the router answers with
// Published or Error and h runs; otherwise h is ignored.
func (c *Context) Publish(topic string, args message.List, kwargs message.Dict, acknowledge bool, h Handler[*message.Published]) (*message.Publish, error) {
	opts := message.Dict{}
	if acknowledge {
		opts["acknowledge"] = true
	}
	req := &message.Publish{RequestID: c.NextID(), Options: opts, Topic: topic, Args: args, Kwargs: kwargs}
	return req, c.SubmitPublish(req, h)
}

// Yield answers an Invocation.
func (c *Context) Yield(inv *message.Invocation, args message.List, kwargs message.Dict) error {
	return c.Send(&message.Yield{RequestID: inv.RequestID, Options: message.Dict{}, Args: args, Kwargs: kwargs})
}

// ReplyError answers a request the router sent us, typically an Invocation.
func (c *Context) ReplyError(req message.Requester, uri message.URI, args message.List, kwargs message.Dict) error {
	return c.Send(message.NewError(req, uri, args, kwargs))
}

// SubscribeTo subscribes and, once the router confirms, attaches events as
// the subscription's listener. then may be nil.
func (c *Context) SubscribeTo(topic string, opts message.Dict, events EventHandler, then Handler[*message.Subscribed]) (*message.Subscribe, error) {
	return c.Subscribe(topic, opts, HandlerFunc[*message.Subscribed](func(d *Context, r Result[*message.Subscribed]) *Context {
		if !r.Failed() {
			d.OnEvent(r.Value.Subscription, events)
		}
		if then == nil {
			return d
		}
		return then.Handle(d, r)
	}))
}

// Provide registers a procedure and, once the router confirms, attaches impl
// as its implementation. then may be nil.
func (c *Context) Provide(procedure string, opts message.Dict, impl Handler[*message.Invocation], then Handler[*message.Registered]) (*message.Register, error) {
	return c.Register(procedure, opts, HandlerFunc[*message.Registered](func(d *Context, r Result[*message.Registered]) *Context {
		if !r.Failed() {
			d.OnInvocation(r.Value, impl)
		}
		if then == nil {
			return d
		}
		return then.Handle(d, r)
	}))
}
