package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mini-wamp/codec"
	"mini-wamp/protocol"
)

type dialOptions struct {
	attempts  uint
	delay     time.Duration
	timeout   time.Duration
	lengthExp byte
	header    http.Header
	logger    zerolog.Logger
}

// DialOption configures Dial.
type DialOption func(*dialOptions)

// WithRetries sets the total number of connection attempts.
func WithRetries(attempts uint) DialOption {
	return func(o *dialOptions) { o.attempts = attempts }
}

// WithRetryDelay sets the base delay between attempts.
func WithRetryDelay(d time.Duration) DialOption {
	return func(o *dialOptions) { o.delay = d }
}

// WithHandshakeTimeout bounds each attempt's connect and handshake.
func WithHandshakeTimeout(d time.Duration) DialOption {
	return func(o *dialOptions) { o.timeout = d }
}

// WithMaxLengthExp sets the RawSocket receive limit to 2^(9+exp) bytes.
func WithMaxLengthExp(exp byte) DialOption {
	return func(o *dialOptions) { o.lengthExp = exp & 0x0F }
}

// WithHeader adds HTTP headers to the WebSocket upgrade request.
func WithHeader(h http.Header) DialOption {
	return func(o *dialOptions) { o.header = h }
}

func WithDialLogger(l zerolog.Logger) DialOption {
	return func(o *dialOptions) { o.logger = l }
}

// Dial connects to a router. The scheme selects the transport:
//
//	ws://, wss://   WebSocket with the wamp.2.json subprotocol
//	tcp://, rs://   RawSocket over TCP
//	unix://         RawSocket over a Unix domain socket
//
// Failed attempts are retried with backoff; an unsupported scheme or a router
// that refuses the serializer is not retried.
func Dial(ctx context.Context, rawURL string, opts ...DialOption) (Conn, error) {
	o := dialOptions{
		attempts:  3,
		delay:     200 * time.Millisecond,
		timeout:   10 * time.Second,
		lengthExp: 15,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse %q: %w", rawURL, err)
	}

	var dial func(context.Context) (Conn, error)
	switch u.Scheme {
	case "ws", "wss":
		dial = func(ctx context.Context) (Conn, error) { return dialWebSocket(ctx, u.String(), o) }
	case "tcp", "rs":
		dial = func(ctx context.Context) (Conn, error) { return dialRawSocket(ctx, "tcp", u.Host, o) }
	case "unix":
		dial = func(ctx context.Context) (Conn, error) { return dialRawSocket(ctx, "unix", u.Path, o) }
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, u.Scheme)
	}

	return retry.DoWithData(
		func() (Conn, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()
			return dial(attemptCtx)
		},
		retry.Attempts(o.attempts),
		retry.Delay(o.delay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var refused *protocol.HandshakeError
			return !errors.As(err, &refused) && !errors.Is(err, ErrSubprotocolRefused)
		}),
		retry.OnRetry(func(n uint, err error) {
			o.logger.Warn().Err(err).Uint("attempt", n+1).Str("url", rawURL).Msg("dial failed, retrying")
		}),
	)
}

func dialWebSocket(ctx context.Context, rawURL string, o dialOptions) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: o.timeout,
		Subprotocols:     []string{codec.JSONSubprotocol},
	}
	conn, _, err := dialer.DialContext(ctx, rawURL, o.header)
	if err != nil {
		return nil, fmt.Errorf("transport: websocket dial %s: %w", rawURL, err)
	}
	if conn.Subprotocol() != codec.JSONSubprotocol {
		conn.Close()
		return nil, fmt.Errorf("%w: got %q", ErrSubprotocolRefused, conn.Subprotocol())
	}
	return NewWebSocket(conn), nil
}

func dialRawSocket(ctx context.Context, network, addr string, o dialOptions) (Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: rawsocket dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	rs, err := NewRawSocket(conn, protocol.SerializerJSON, o.lengthExp)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return rs, nil
}
