package correlation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mini-wamp/codec"
	"mini-wamp/message"
)

type recorder struct {
	frames []string
	fail   error
}

func (r *recorder) WriteText(data []byte) error {
	if r.fail != nil {
		return r.fail
	}
	r.frames = append(r.frames, string(data))
	return nil
}

func newSession() (*Context, *recorder) {
	rec := &recorder{}
	return New(rec, &codec.JSONCodec{}, nil), rec
}

func TestSubmitSendsAndStores(t *testing.T) {
	c, rec := newSession()

	req, err := c.Subscribe("t", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), req.RequestID)
	assert.Equal(t, []string{`[32,1,{},"t"]`}, rec.frames)
	assert.Equal(t, 1, c.Len())

	p, ok := c.TakeSubscribe(req.RequestID)
	require.True(t, ok)
	assert.Same(t, req, p.Request)
	assert.Equal(t, 0, c.Len())

	_, ok = c.TakeSubscribe(req.RequestID)
	assert.False(t, ok)
}

func TestSubmitWriteFailureNotStored(t *testing.T) {
	c, rec := newSession()
	rec.fail = errors.New("broken pipe")

	_, err := c.Call("p", nil, nil, nil, nil)
	assert.EqualError(t, err, "broken pipe")
	assert.Equal(t, 0, c.Len())
}

func TestSubmitDuplicate(t *testing.T) {
	c, rec := newSession()
	req := &message.Call{RequestID: 42, Procedure: "p"}
	require.NoError(t, c.SubmitCall(req, nil))
	err := c.SubmitCall(&message.Call{RequestID: 42, Procedure: "q"}, nil)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	assert.Len(t, rec.frames, 1)
	assert.Equal(t, 1, c.Len())
}

func TestDetachedBuffers(t *testing.T) {
	c, rec := newSession()
	d := c.Detach()
	assert.True(t, d.Detached())
	assert.False(t, c.Detached())

	_, err := d.Register("proc", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rec.frames)
	assert.Equal(t, 1, d.Buffered())

	frames := d.Drain()
	require.Len(t, frames, 1)
	assert.Equal(t, `[64,1,{},"proc"]`, string(frames[0]))
	assert.Equal(t, 0, d.Buffered())
}

func TestContinueMergesAndFlushes(t *testing.T) {
	c, rec := newSession()
	sub, err := c.Subscribe("t", nil, nil)
	require.NoError(t, err)

	p, ok := c.TakeSubscribe(sub.RequestID)
	require.True(t, ok)

	var nested *message.Call
	err = c.Continue(func(d *Context) *Context {
		var err error
		nested, err = d.Call("after.subscribe", nil, message.List{1}, nil, nil)
		require.NoError(t, err)
		return p.Handler.Handle(d, Ok(&message.Subscribed{RequestID: sub.RequestID, Subscription: 9}))
	})
	require.NoError(t, err)

	require.Len(t, rec.frames, 2)
	assert.Equal(t, `[48,2,{},"after.subscribe",[1]]`, rec.frames[1])
	assert.Equal(t, 0, c.Buffered())

	found, ok := c.TakeCall(nested.RequestID)
	require.True(t, ok)
	assert.Same(t, nested, found.Request)
}

func TestContinueNilReturnKeepsDetached(t *testing.T) {
	c, _ := newSession()
	require.NoError(t, c.Continue(func(d *Context) *Context {
		_, err := d.Unsubscribe(3, nil)
		require.NoError(t, err)
		return nil
	}))
	_, ok := c.TakeUnsubscribe(1)
	assert.True(t, ok)
}

func TestContinueFlushFailure(t *testing.T) {
	c, rec := newSession()
	rec.fail = errors.New("closed")
	err := c.Continue(func(d *Context) *Context {
		require.NoError(t, d.Send(&message.Goodbye{Reason: "x"}))
		return d
	})
	assert.EqualError(t, err, "closed")
}

func TestMergePreservesOrder(t *testing.T) {
	c, _ := newSession()
	_, err := c.Call("a", nil, nil, nil, nil)
	require.NoError(t, err)

	d := c.Detach()
	_, err = d.Call("b", nil, nil, nil, nil)
	require.NoError(t, err)
	_, err = d.Call("c", nil, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, c.Merge(d))

	var procs []string
	for _, p := range c.calls {
		procs = append(procs, p.Request.Procedure)
	}
	assert.Equal(t, []string{"a", "b", "c"}, procs)
	assert.Equal(t, 2, c.Buffered())
}

func TestPublishAcknowledge(t *testing.T) {
	c, rec := newSession()

	_, err := c.Publish("t", message.List{"x"}, nil, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	req, err := c.Publish("t", nil, message.Dict{"k": 1}, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, `[16,2,{"acknowledge":true},"t",[],{"k":1}]`, rec.frames[1])

	_, ok := c.TakePublish(req.RequestID)
	assert.True(t, ok)
}

func TestEventListenersPersist(t *testing.T) {
	c, _ := newSession()
	var seen []uint64
	c.OnEvent(9, EventHandlerFunc(func(d *Context, ev *message.Event) *Context {
		seen = append(seen, ev.Publication)
		return d
	}))

	for pub := uint64(1); pub <= 3; pub++ {
		h, ok := c.FindEvent(9)
		require.True(t, ok)
		require.NoError(t, c.Continue(func(d *Context) *Context {
			return h.HandleEvent(d, &message.Event{Subscription: 9, Publication: pub})
		}))
	}
	assert.Equal(t, []uint64{1, 2, 3}, seen)
	assert.Equal(t, 1, c.Listeners())

	assert.True(t, c.RemoveEvent(9))
	_, ok := c.FindEvent(9)
	assert.False(t, ok)
	assert.False(t, c.RemoveEvent(9))
}

func TestSubscribeToAttachesListener(t *testing.T) {
	c, _ := newSession()
	thenCalled := 0
	req, err := c.SubscribeTo("t", nil, EventHandlerFunc(func(d *Context, _ *message.Event) *Context { return d }),
		HandlerFunc[*message.Subscribed](func(d *Context, r Result[*message.Subscribed]) *Context {
			thenCalled++
			return d
		}))
	require.NoError(t, err)

	p, ok := c.TakeSubscribe(req.RequestID)
	require.True(t, ok)
	require.NoError(t, c.Continue(func(d *Context) *Context {
		return p.Handler.Handle(d, Ok(&message.Subscribed{RequestID: req.RequestID, Subscription: 77}))
	}))
	assert.Equal(t, 1, thenCalled)
	_, ok = c.FindEvent(77)
	assert.True(t, ok)

	req, err = c.SubscribeTo("u", nil, nil, nil)
	require.NoError(t, err)
	p, _ = c.TakeSubscribe(req.RequestID)
	require.NoError(t, c.Continue(func(d *Context) *Context {
		return p.Handler.Handle(d, Fail[*message.Subscribed](&message.Error{Cause: message.TypeSubscribe, RequestID: req.RequestID}))
	}))
	assert.Equal(t, 1, c.Listeners())
}

func TestProvideAttachesInvocation(t *testing.T) {
	c, rec := newSession()
	impl := HandlerFunc[*message.Invocation](func(d *Context, r Result[*message.Invocation]) *Context {
		_ = d.Yield(r.Value, message.List{"done"}, nil)
		return d
	})
	req, err := c.Provide("proc", nil, impl, nil)
	require.NoError(t, err)

	p, _ := c.TakeRegister(req.RequestID)
	require.NoError(t, c.Continue(func(d *Context) *Context {
		return p.Handler.Handle(d, Ok(&message.Registered{RequestID: req.RequestID, Registration: 5}))
	}))

	h, ok := c.FindInvocation(5)
	require.True(t, ok)
	require.NoError(t, c.Continue(func(d *Context) *Context {
		return h.Handle(d, Ok(&message.Invocation{RequestID: 100, Registration: 5}))
	}))
	assert.Equal(t, `[70,100,{},["done"]]`, rec.frames[len(rec.frames)-1])

	_, ok = c.FindInvocation(5)
	assert.True(t, ok, "invocation listeners persist")

	_, ok = c.TakeInvocationByRequest(req.RequestID)
	assert.True(t, ok)
	assert.False(t, c.RemoveInvocation(5))
}

func TestCancelKeyedByCall(t *testing.T) {
	c, rec := newSession()
	call, err := c.Call("slow", nil, nil, nil, nil)
	require.NoError(t, err)
	_, err = c.Cancel(call.RequestID, "kill", nil)
	require.NoError(t, err)
	assert.Equal(t, `[49,1,{"mode":"kill"}]`, rec.frames[1])

	_, err = c.Cancel(call.RequestID, "", nil)
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	_, ok := c.TakeCancel(call.RequestID)
	assert.True(t, ok)
}

func TestDetachedSeesParentPending(t *testing.T) {
	c, rec := newSession()
	_, err := c.Cancel(5, "kill", nil)
	require.NoError(t, err)

	d := c.Detach()
	_, err = d.Cancel(5, "kill", nil)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	assert.Equal(t, 0, d.Buffered(), "a refused request is not sent")

	nested := d.Detach()
	_, err = nested.Cancel(5, "", nil)
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	_, err = d.Cancel(6, "kill", nil)
	assert.NoError(t, err)
	assert.Len(t, rec.frames, 1)
}

func TestContinueKeepsOneLiveEntry(t *testing.T) {
	c, rec := newSession()
	var errs []error
	for i := 0; i < 2; i++ {
		require.NoError(t, c.Continue(func(d *Context) *Context {
			_, err := d.Cancel(5, "kill", nil)
			errs = append(errs, err)
			return d
		}))
	}
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], ErrDuplicateRequest)
	assert.Equal(t, 1, c.Len())
	assert.Len(t, rec.frames, 1)

	_, ok := c.TakeCancel(5)
	require.True(t, ok)
	_, ok = c.TakeCancel(5)
	assert.False(t, ok)
}

func TestMergeDropsLiveDuplicates(t *testing.T) {
	c, _ := newSession()
	first := 0
	require.NoError(t, c.SubmitCancel(&message.Cancel{RequestID: 5}, HandlerFunc[*message.Interrupt](
		func(d *Context, _ Result[*message.Interrupt]) *Context {
			first++
			return d
		})))

	// A context built on its own knows nothing of c's entries.
	other := New(nil, nil, nil)
	require.NoError(t, other.SubmitCancel(&message.Cancel{RequestID: 5}, nil))
	require.NoError(t, other.SubmitCall(&message.Call{RequestID: 9, Procedure: "p"}, nil))

	err := c.Merge(other)
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	assert.Equal(t, 2, c.Len(), "the call is merged, the second cancel is not")

	p, ok := c.TakeCancel(5)
	require.True(t, ok)
	p.Handler.Handle(c, Ok(&message.Interrupt{RequestID: 5}))
	assert.Equal(t, 1, first)

	err = c.Continue(func(d *Context) *Context {
		dup := New(nil, nil, nil)
		require.NoError(t, dup.SubmitCall(&message.Call{RequestID: 9, Procedure: "p"}, nil))
		return dup
	})
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestResultUnwrap(t *testing.T) {
	v, err := Ok(3).Unwrap()
	assert.NoError(t, err)
	assert.Equal(t, 3, v)

	wampErr := &message.Error{Cause: message.TypeCall, URI: string(message.ErrCanceled)}
	_, err = Fail[int](wampErr).Unwrap()
	var got *message.Error
	require.ErrorAs(t, err, &got)
	assert.Same(t, wampErr, got)
}

func TestIDSourceWraps(t *testing.T) {
	s := NewIDSource()
	assert.Equal(t, uint64(1), s.Next())
	assert.Equal(t, uint64(2), s.Next())

	s.last.Store(MaxID - 1)
	assert.Equal(t, MaxID, s.Next())
	assert.Equal(t, uint64(1), s.Next())
}

func TestDetachedSharesIDs(t *testing.T) {
	c, _ := newSession()
	a := c.NextID()
	b := c.Detach().NextID()
	assert.Equal(t, a+1, b)
}
