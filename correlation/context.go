// Package correlation keeps a session's books: which requests are waiting
// for a reply, which subscriptions and registrations are live, and what to
// run when their traffic arrives.
//
//	Submit(Call{id=7}) ──send──▶ router
//	      │
//	      └─▶ calls: [{Call 7, h}]
//	                        ▲
//	Result{id=7} ──Take(7)──┘──▶ h.Handle(detached, Ok(result)) ──▶ Merge ──▶ Flush
//
// A Context has no internal locking. The session mutates it from its loop
// goroutine only; continuations get a detached context of their own whose
// writes are buffered until the session merges and flushes it.
package correlation

import (
	"errors"
	"fmt"

	"mini-wamp/codec"
	"mini-wamp/message"
)

var ErrDuplicateRequest = errors.New("correlation: request id already pending")

// Sender writes one serialized message. transport.Conn satisfies it.
type Sender interface {
	WriteText(data []byte) error
}

// Pending is a request waiting for its reply, with the continuation to run.
type Pending[Req message.Requester, Resp any] struct {
	Request Req
	Handler Handler[Resp]
}

type collection[Req message.Requester, Resp any] []Pending[Req, Resp]

func (col collection[Req, Resp]) index(id uint64) int {
	for i, p := range col {
		if p.Request.Request() == id {
			return i
		}
	}
	return -1
}

func (col *collection[Req, Resp]) take(id uint64) (Pending[Req, Resp], bool) {
	i := col.index(id)
	if i < 0 {
		return Pending[Req, Resp]{}, false
	}
	p := (*col)[i]
	*col = append((*col)[:i], (*col)[i+1:]...)
	return p, true
}

func (col collection[Req, Resp]) find(id uint64) (Pending[Req, Resp], bool) {
	if i := col.index(id); i >= 0 {
		return col[i], true
	}
	return Pending[Req, Resp]{}, false
}

type eventListener struct {
	subscription uint64
	handler      EventHandler
}

// invocationListener is keyed by registration id. register is the request id
// of the Register that created it, which errors caused by invocations carry.
type invocationListener struct {
	registration uint64
	register     uint64
	handler      Handler[*message.Invocation]
}

// Context holds the pending operations of a session or of a detached
// fragment produced by a continuation.
type Context struct {
	parent   *Context
	sender   Sender
	codec    codec.Codec
	ids      *IDSource
	buffered [][]byte

	registers    collection[*message.Register, *message.Registered]
	unregisters  collection[*message.Unregister, *message.Unregistered]
	subscribes   collection[*message.Subscribe, *message.Subscribed]
	unsubscribes collection[*message.Unsubscribe, *message.Unsubscribed]
	publishes    collection[*message.Publish, *message.Published]
	calls        collection[*message.Call, *message.Result]
	cancels      collection[*message.Cancel, *message.Interrupt]
	invocations  []invocationListener
	events       []eventListener
}

// New returns a session context writing through sender. A nil sender yields
// a detached context; a nil codec means JSON; a nil ids gets a fresh source.
func New(sender Sender, cdc codec.Codec, ids *IDSource) *Context {
	if cdc == nil {
		cdc = &codec.JSONCodec{}
	}
	if ids == nil {
		ids = NewIDSource()
	}
	return &Context{sender: sender, codec: cdc, ids: ids}
}

// Detach returns an empty context that shares c's codec and id source but
// buffers its writes. Submits on it are checked against c's pending entries
// as well as its own.
func (c *Context) Detach() *Context {
	return &Context{parent: c, codec: c.codec, ids: c.ids}
}

// Detached reports whether c buffers instead of sending.
func (c *Context) Detached() bool { return c.sender == nil }

// NextID draws a request id from the session's source.
func (c *Context) NextID() uint64 { return c.ids.Next() }

// Send writes m without tracking a reply, or buffers it when detached.
func (c *Context) Send(m message.Message) error {
	data, err := c.codec.Encode(m)
	if err != nil {
		return err
	}
	if c.sender == nil {
		c.buffered = append(c.buffered, data)
		return nil
	}
	return c.sender.WriteText(data)
}

// live reports whether id is pending in pick's collection of c or of any
// context c was detached from.
func live[Req message.Requester, Resp any](c *Context, pick func(*Context) *collection[Req, Resp], id uint64) bool {
	for ; c != nil; c = c.parent {
		if _, ok := pick(c).find(id); ok {
			return true
		}
	}
	return false
}

func submit[Req message.Requester, Resp any](c *Context, pick func(*Context) *collection[Req, Resp], req Req, h Handler[Resp]) error {
	if live(c, pick, req.Request()) {
		return fmt.Errorf("%w: %s %d", ErrDuplicateRequest, req.Type(), req.Request())
	}
	if err := c.Send(req); err != nil {
		return err
	}
	if h == nil {
		h = Discard[Resp]()
	}
	col := pick(c)
	*col = append(*col, Pending[Req, Resp]{Request: req, Handler: h})
	return nil
}

func registersOf(c *Context) *collection[*message.Register, *message.Registered] {
	return &c.registers
}

func unregistersOf(c *Context) *collection[*message.Unregister, *message.Unregistered] {
	return &c.unregisters
}

func subscribesOf(c *Context) *collection[*message.Subscribe, *message.Subscribed] {
	return &c.subscribes
}

func unsubscribesOf(c *Context) *collection[*message.Unsubscribe, *message.Unsubscribed] {
	return &c.unsubscribes
}

func publishesOf(c *Context) *collection[*message.Publish, *message.Published] {
	return &c.publishes
}

func callsOf(c *Context) *collection[*message.Call, *message.Result] {
	return &c.calls
}

func cancelsOf(c *Context) *collection[*message.Cancel, *message.Interrupt] {
	return &c.cancels
}

func (c *Context) SubmitRegister(req *message.Register, h Handler[*message.Registered]) error {
	return submit(c, registersOf, req, h)
}

func (c *Context) SubmitUnregister(req *message.Unregister, h Handler[*message.Unregistered]) error {
	return submit(c, unregistersOf, req, h)
}

func (c *Context) SubmitSubscribe(req *message.Subscribe, h Handler[*message.Subscribed]) error {
	return submit(c, subscribesOf, req, h)
}

func (c *Context) SubmitUnsubscribe(req *message.Unsubscribe, h Handler[*message.Unsubscribed]) error {
	return submit(c, unsubscribesOf, req, h)
}

// SubmitPublish tracks the publication only when it asks for an
// acknowledgement; otherwise the router never replies and the request is
// just sent.
func (c *Context) SubmitPublish(req *message.Publish, h Handler[*message.Published]) error {
	if !req.Acknowledged() {
		return c.Send(req)
	}
	return submit(c, publishesOf, req, h)
}

func (c *Context) SubmitCall(req *message.Call, h Handler[*message.Result]) error {
	return submit(c, callsOf, req, h)
}

// SubmitCancel tracks a Cancel under the request id of the Call it cancels.
// An Interrupt with that id, or an Error caused by the Cancel, settles it.
func (c *Context) SubmitCancel(req *message.Cancel, h Handler[*message.Interrupt]) error {
	return submit(c, cancelsOf, req, h)
}

func (c *Context) TakeRegister(id uint64) (Pending[*message.Register, *message.Registered], bool) {
	return c.registers.take(id)
}

func (c *Context) TakeUnregister(id uint64) (Pending[*message.Unregister, *message.Unregistered], bool) {
	return c.unregisters.take(id)
}

func (c *Context) TakeSubscribe(id uint64) (Pending[*message.Subscribe, *message.Subscribed], bool) {
	return c.subscribes.take(id)
}

func (c *Context) TakeUnsubscribe(id uint64) (Pending[*message.Unsubscribe, *message.Unsubscribed], bool) {
	return c.unsubscribes.take(id)
}

func (c *Context) TakePublish(id uint64) (Pending[*message.Publish, *message.Published], bool) {
	return c.publishes.take(id)
}

func (c *Context) TakeCall(id uint64) (Pending[*message.Call, *message.Result], bool) {
	return c.calls.take(id)
}

// FindCall looks up a Call without removing it, for progressive results.
func (c *Context) FindCall(id uint64) (Pending[*message.Call, *message.Result], bool) {
	return c.calls.find(id)
}

func (c *Context) TakeCancel(id uint64) (Pending[*message.Cancel, *message.Interrupt], bool) {
	return c.cancels.take(id)
}

// OnEvent attaches a listener to a subscription id. It persists until
// RemoveEvent.
func (c *Context) OnEvent(subscription uint64, h EventHandler) {
	c.events = append(c.events, eventListener{subscription: subscription, handler: h})
}

// FindEvent returns the listener for a subscription id.
func (c *Context) FindEvent(subscription uint64) (EventHandler, bool) {
	for _, l := range c.events {
		if l.subscription == subscription {
			return l.handler, true
		}
	}
	return nil, false
}

// RemoveEvent drops the listener for a subscription id.
func (c *Context) RemoveEvent(subscription uint64) bool {
	for i, l := range c.events {
		if l.subscription == subscription {
			c.events = append(c.events[:i], c.events[i+1:]...)
			return true
		}
	}
	return false
}

// OnInvocation attaches a procedure implementation to the registration the
// router confirmed. It persists until RemoveInvocation.
func (c *Context) OnInvocation(reg *message.Registered, h Handler[*message.Invocation]) {
	c.invocations = append(c.invocations, invocationListener{
		registration: reg.Registration,
		register:     reg.RequestID,
		handler:      h,
	})
}

// FindInvocation returns the implementation for a registration id.
func (c *Context) FindInvocation(registration uint64) (Handler[*message.Invocation], bool) {
	for _, l := range c.invocations {
		if l.registration == registration {
			return l.handler, true
		}
	}
	return nil, false
}

// TakeInvocationByRequest removes the listener created by the Register with
// the given request id.
func (c *Context) TakeInvocationByRequest(register uint64) (Handler[*message.Invocation], bool) {
	for i, l := range c.invocations {
		if l.register == register {
			c.invocations = append(c.invocations[:i], c.invocations[i+1:]...)
			return l.handler, true
		}
	}
	return nil, false
}

// RemoveInvocation drops the listener for a registration id.
func (c *Context) RemoveInvocation(registration uint64) bool {
	for i, l := range c.invocations {
		if l.registration == registration {
			c.invocations = append(c.invocations[:i], c.invocations[i+1:]...)
			return true
		}
	}
	return false
}

// Merge appends other's pending entries, listeners and buffered frames onto
// c, preserving order. A single-shot entry whose (type, id) is already live
// in c is dropped and reported with ErrDuplicateRequest; everything else is
// still merged. other must not be used afterwards.
func (c *Context) Merge(other *Context) error {
	if other == nil || other == c {
		return nil
	}
	errs := []error{
		mergeInto(c, other, registersOf),
		mergeInto(c, other, unregistersOf),
		mergeInto(c, other, subscribesOf),
		mergeInto(c, other, unsubscribesOf),
		mergeInto(c, other, publishesOf),
		mergeInto(c, other, callsOf),
		mergeInto(c, other, cancelsOf),
	}
	c.invocations = append(c.invocations, other.invocations...)
	c.events = append(c.events, other.events...)
	c.buffered = append(c.buffered, other.buffered...)
	return errors.Join(errs...)
}

func mergeInto[Req message.Requester, Resp any](c, other *Context, pick func(*Context) *collection[Req, Resp]) error {
	var errs []error
	dst := pick(c)
	for _, p := range *pick(other) {
		id := p.Request.Request()
		if _, dup := dst.find(id); dup {
			errs = append(errs, fmt.Errorf("%w: %s %d", ErrDuplicateRequest, p.Request.Type(), id))
			continue
		}
		*dst = append(*dst, p)
	}
	return errors.Join(errs...)
}

// Drain returns the buffered frames and clears them.
func (c *Context) Drain() [][]byte {
	frames := c.buffered
	c.buffered = nil
	return frames
}

// Flush writes buffered frames through the sender in order. Detached
// contexts keep their buffer.
func (c *Context) Flush() error {
	if c.sender == nil {
		return nil
	}
	for len(c.buffered) > 0 {
		if err := c.sender.WriteText(c.buffered[0]); err != nil {
			return err
		}
		c.buffered = c.buffered[1:]
	}
	c.buffered = nil
	return nil
}

// Continue runs fn against a fresh detached context, folds whatever it
// returns back into c and flushes the frames it produced. Entries that
// would duplicate a live request surface as ErrDuplicateRequest.
func (c *Context) Continue(fn func(d *Context) *Context) error {
	d := c.Detach()
	next := fn(d)
	mergeErr := c.Merge(d)
	if next != nil && next != d {
		mergeErr = errors.Join(mergeErr, c.Merge(next))
	}
	if err := c.Flush(); err != nil {
		return err
	}
	return mergeErr
}

// Len counts single-shot pending requests.
func (c *Context) Len() int {
	return len(c.registers) + len(c.unregisters) + len(c.subscribes) + len(c.unsubscribes) +
		len(c.publishes) + len(c.calls) + len(c.cancels)
}

// Listeners counts live Event and Invocation listeners.
func (c *Context) Listeners() int {
	return len(c.events) + len(c.invocations)
}

// Buffered counts frames waiting to be sent.
func (c *Context) Buffered() int {
	return len(c.buffered)
}
