// Package client runs a WAMP session over one transport connection.
//
// A Session owns the connection and the session's correlation context. Run
// drives a single consumer loop; a reader goroutine does the blocking reads
// and hands frames over in arrival order:
//
//	reader ──frames──┐
//	                 ├──▶ Run loop ──decode──▶ middleware ──▶ route ──▶ continuation
//	Do(fn) ──jobs────┘                                                     │
//	                                                          Merge + Flush ◀┘
//
// Only the loop touches the correlation context. Other goroutines reach it
// through Do, which runs a function on the loop and waits for it.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"mini-wamp/codec"
	"mini-wamp/correlation"
	"mini-wamp/message"
	"mini-wamp/middleware"
	"mini-wamp/transport"
)

// Delivery is what dispatching one frame produced.
type Delivery struct {
	Message message.Message
	// Handled is true when a continuation ran.
	Handled bool
}

type job struct {
	fn   func(c *correlation.Context) *correlation.Context
	done chan error
}

type readResult struct {
	frame transport.Frame
	err   error
}

// Session is one client session on one connection.
type Session struct {
	conn     transport.Conn
	codec    codec.Codec
	ctx      *correlation.Context
	logger   zerolog.Logger
	opts     options
	dispatch middleware.HandlerFunc

	state     atomic.Int32
	sessionID atomic.Uint64
	// startMu orders Do's inline path against Run taking over the context.
	startMu   sync.Mutex
	running   bool
	jobs      chan job
	done      chan struct{}
	joined    chan struct{}
	joinOnce  sync.Once

	// inflight holds the cancel func of each invocation being served, by
	// invocation request id.
	inflightMu sync.Mutex
	inflight   map[uint64]context.CancelFunc
}

// New wraps an open connection. The session starts in StateConnected.
func New(conn transport.Conn, opts ...Option) *Session {
	o := options{logger: zerolog.Nop(), codec: &codec.JSONCodec{}}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Session{
		conn:     conn,
		codec:    o.codec,
		logger:   o.logger,
		opts:     o,
		jobs:     make(chan job),
		done:     make(chan struct{}),
		joined:   make(chan struct{}),
		inflight: make(map[uint64]context.CancelFunc),
	}
	s.ctx = correlation.New(conn, o.codec, correlation.NewIDSource())
	s.dispatch = middleware.Chain(o.middlewares...)(s.route)
	s.state.Store(int32(StateConnected))
	return s
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev != st {
		s.logger.Debug().Stringer("from", prev).Stringer("to", st).Msg("session state")
	}
}

// ID is the router-assigned session id, zero until Welcome.
func (s *Session) ID() uint64 { return s.sessionID.Load() }

// Joined is closed when the router welcomes the session.
func (s *Session) Joined() <-chan struct{} { return s.joined }

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

// Context returns the session's correlation context. It may only be used
// before Run starts or from inside the loop.
func (s *Session) Context() *correlation.Context { return s.ctx }

// Join sends Hello for realm. Passing a nil hello announces all client roles.
func (s *Session) Join(realm string, hello *message.Hello) error {
	if hello == nil {
		hello = message.NewHello(realm)
	}
	hello.Realm = realm
	return s.Do(func(c *correlation.Context) *correlation.Context {
		if err := c.Send(hello); err != nil {
			s.logger.Error().Err(err).Msg("hello")
		}
		return c
	})
}

// Leave starts a client-initiated close. Run returns nil once the router
// answers with its own Goodbye.
func (s *Session) Leave(reason message.CloseReason) error {
	if s.State() != StateEstablished {
		return ErrNotEstablished
	}
	return s.Do(func(c *correlation.Context) *correlation.Context {
		if err := c.Send(message.NewGoodbye(reason)); err == nil {
			s.setState(StateClosing)
		}
		return c
	})
}

// Do runs fn on the loop goroutine against a detached context, then merges
// what it returns and sends what it buffered. Before Run starts, fn runs on
// the calling goroutine instead.
func (s *Session) Do(fn func(c *correlation.Context) *correlation.Context) error {
	select {
	case <-s.done:
		return ErrSessionDone
	default:
	}
	s.startMu.Lock()
	if !s.running {
		defer s.startMu.Unlock()
		return s.ctx.Continue(fn)
	}
	s.startMu.Unlock()

	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case s.jobs <- j:
	case <-s.done:
		return ErrSessionDone
	}
	select {
	case err := <-j.done:
		return err
	case <-s.done:
		return ErrSessionDone
	}
}

// Run drives the session until the router closes it, a fatal error occurs
// or ctx is done. A completed Goodbye handshake returns nil.
func (s *Session) Run(ctx context.Context) error {
	s.startMu.Lock()
	if s.running {
		s.startMu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.startMu.Unlock()

	stop := make(chan struct{})
	defer func() {
		close(stop)
		s.conn.Close()
		s.setState(StateClosed)
		close(s.done)
	}()

	frames := make(chan readResult)
	go s.readLoop(frames, stop)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case j := <-s.jobs:
			j.done <- s.ctx.Continue(j.fn)

		case r := <-frames:
			if r.err != nil {
				return fmt.Errorf("client: read: %w", r.err)
			}
			stopLoop, err := s.handleFrame(ctx, r.frame)
			if err != nil {
				return err
			}
			if stopLoop {
				return nil
			}
		}
	}
}

func (s *Session) readLoop(frames chan<- readResult, stop <-chan struct{}) {
	for {
		f, err := s.conn.ReadFrame()
		select {
		case frames <- readResult{frame: f, err: err}:
		case <-stop:
			return
		}
		if err != nil || f.Kind == transport.FrameClosed {
			return
		}
	}
}

// handleFrame reports whether the loop should stop cleanly.
func (s *Session) handleFrame(ctx context.Context, f transport.Frame) (bool, error) {
	switch f.Kind {
	case transport.FrameControl:
		return false, nil
	case transport.FrameBinary:
		return false, ErrUnsupportedEncoding
	case transport.FrameClosed:
		if st := s.State(); st == StateClosing || st == StateClosed {
			return true, nil
		}
		return false, ErrConnectionClosed
	}

	_, err := s.Dispatch(ctx, f.Data)
	if err != nil {
		var malformed *message.MalformedTagError
		if errors.As(err, &malformed) {
			s.logger.Warn().Err(err).Msg("skipping frame without a valid tag")
			return false, nil
		}
		return false, err
	}
	return s.State() == StateClosed, nil
}

// Dispatch decodes one text frame and routes it. It must run on the loop
// goroutine, or before Run starts. A *message.MalformedTagError leaves the
// session intact; any other error is fatal.
func (s *Session) Dispatch(ctx context.Context, data []byte) (Delivery, error) {
	m, err := s.codec.Decode(data)
	if err != nil {
		return Delivery{}, err
	}
	handled, err := s.dispatch(ctx, m)
	if err != nil {
		return Delivery{Message: m, Handled: handled}, err
	}
	if !handled && s.opts.passthrough != nil {
		s.opts.passthrough(m)
	}
	return Delivery{Message: m, Handled: handled}, nil
}

// Close closes the connection without a Goodbye. Run returns once the
// reader notices.
func (s *Session) Close() error {
	return s.conn.Close()
}
