// Package routertest runs an in-process WAMP router for tests and local
// experiments. It listens for WebSocket and RawSocket clients.
//
// In scripted mode each connection is handed to the test through Accept and
// driven by hand. In automatic mode the router plays a minimal broker and
// dealer for one realm:
//
//	Accept conn → serve (one goroutine per peer reads frames)
//	  → Hello/Authenticate → Welcome
//	  → Subscribe/Publish  → Subscribed, Event fan-out, Published
//	  → Register/Call      → Registered, Invocation → Yield → Result
package routertest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mini-wamp/codec"
	"mini-wamp/protocol"
	"mini-wamp/registry"
	"mini-wamp/transport"
)

var ErrClosed = errors.New("routertest: router closed")

type options struct {
	realm     string
	auto      bool
	ticket    string
	lengthExp byte
	logger    zerolog.Logger
}

type Option func(*options)

// WithRealm sets the realm automatic mode accepts. Default "realm1".
func WithRealm(realm string) Option {
	return func(o *options) { o.realm = realm }
}

// Auto makes the router answer clients itself instead of handing them to
// Accept.
func Auto() Option {
	return func(o *options) { o.auto = true }
}

// WithTicket requires ticket authentication in automatic mode.
func WithTicket(ticket string) Option {
	return func(o *options) { o.ticket = ticket }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Router is a test router. Create it with New and stop it with Close.
type Router struct {
	opts     options
	http     *httptest.Server
	listener net.Listener
	upgrader websocket.Upgrader
	peers    chan *Peer
	wg       sync.WaitGroup // Tracks live peers for graceful shutdown
	shutdown atomic.Bool
	ids      atomic.Uint64

	mu        sync.Mutex
	live      map[*Peer]struct{}
	announced []announcement
	realm     *realmState
}

type announcement struct {
	reg   registry.Registry
	realm string
	url   string
}

// New starts a router on loopback ports.
func New(opts ...Option) (*Router, error) {
	o := options{realm: "realm1", lengthExp: 15, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	r := &Router{
		opts:  o,
		peers: make(chan *Peer, 16),
		live:  make(map[*Peer]struct{}),
		realm: newRealmState(),
		upgrader: websocket.Upgrader{
			Subprotocols: []string{codec.JSONSubprotocol},
			CheckOrigin:  func(*http.Request) bool { return true },
		},
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("routertest: listen: %w", err)
	}
	r.listener = ln
	r.http = httptest.NewServer(http.HandlerFunc(r.handleWebSocket))
	go r.acceptRawSocket()
	return r, nil
}

// WebSocketURL is the ws:// address of the router.
func (r *Router) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(r.http.URL, "http") + "/ws"
}

// RawSocketURL is the tcp:// address of the router.
func (r *Router) RawSocketURL() string {
	return "tcp://" + r.listener.Addr().String()
}

func (r *Router) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.opts.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	r.attach(transport.NewWebSocket(conn))
}

// acceptRawSocket is the Accept loop for RawSocket clients.
func (r *Router) acceptRawSocket() {
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if !r.shutdown.Load() {
				r.opts.logger.Error().Err(err).Msg("rawsocket accept")
			}
			return
		}
		go func() {
			_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
			_, clientLimit, err := protocol.ServerHandshake(conn, r.opts.lengthExp, func(s byte) bool {
				return s == protocol.SerializerJSON
			})
			if err != nil {
				r.opts.logger.Debug().Err(err).Msg("rawsocket handshake failed")
				conn.Close()
				return
			}
			_ = conn.SetDeadline(time.Time{})
			r.attach(transport.NewRawSocketAccepted(conn, protocol.LengthFor(r.opts.lengthExp), clientLimit))
		}()
	}
}

func (r *Router) attach(conn transport.Conn) {
	if r.shutdown.Load() {
		conn.Close()
		return
	}
	p := newPeer(conn)
	r.mu.Lock()
	r.live[p] = struct{}{}
	r.mu.Unlock()

	if !r.opts.auto {
		select {
		case r.peers <- p:
		default:
			r.opts.logger.Warn().Msg("no test accepting peers; dropping connection")
			p.Close()
		}
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.detach(p)
		r.serve(p)
	}()
}

func (r *Router) detach(p *Peer) {
	r.realm.drop(p)
	r.mu.Lock()
	delete(r.live, p)
	r.mu.Unlock()
	p.Close()
}

// Accept returns the next connected client in scripted mode.
func (r *Router) Accept(ctx context.Context) (*Peer, error) {
	select {
	case p := <-r.peers:
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Announce publishes both of the router's URLs for realm in reg, the way a
// real router would announce itself for discovery.
func (r *Router) Announce(ctx context.Context, reg registry.Registry, realm string, weight int) error {
	for _, url := range []string{r.WebSocketURL(), r.RawSocketURL()} {
		if err := reg.Register(ctx, realm, registry.RouterInstance{URL: url, Weight: weight, Version: "routertest"}, 10); err != nil {
			return err
		}
		r.mu.Lock()
		r.announced = append(r.announced, announcement{reg: reg, realm: realm, url: url})
		r.mu.Unlock()
	}
	return nil
}

// Close performs graceful shutdown:
//  1. Withdraw announcements so clients stop picking this router
//  2. Set the shutdown flag so the Accept error is expected
//  3. Close listeners and every live peer
//  4. Wait for peer goroutines, bounded by timeout
func (r *Router) Close(timeout time.Duration) error {
	r.mu.Lock()
	announced := r.announced
	r.announced = nil
	r.mu.Unlock()
	for _, a := range announced {
		_ = a.reg.Deregister(context.Background(), a.realm, a.url)
	}

	r.shutdown.Store(true)
	r.listener.Close()
	r.http.CloseClientConnections()
	r.http.Close()

	r.mu.Lock()
	for p := range r.live {
		p.Close()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("routertest: timeout waiting for peers to finish")
	}
}

func (r *Router) nextID() uint64 { return r.ids.Add(1) }
