package routertest

import (
	"errors"
	"fmt"
	"time"

	"mini-wamp/codec"
	"mini-wamp/message"
	"mini-wamp/transport"
)

var ErrTimeout = errors.New("routertest: timed out waiting for a message")

// Peer is the router's side of one client connection.
type Peer struct {
	conn   transport.Conn
	codec  codec.Codec
	frames chan transport.Frame
	closed chan struct{}
}

func newPeer(conn transport.Conn) *Peer {
	p := &Peer{
		conn:   conn,
		codec:  &codec.JSONCodec{},
		frames: make(chan transport.Frame, 64),
		closed: make(chan struct{}),
	}
	go p.read()
	return p
}

func (p *Peer) read() {
	defer close(p.closed)
	for {
		f, err := p.conn.ReadFrame()
		if err != nil || f.Kind == transport.FrameClosed {
			return
		}
		if f.Kind != transport.FrameText {
			continue
		}
		p.frames <- f
	}
}

// Send writes m to the client.
func (p *Peer) Send(m message.Message) error {
	data, err := p.codec.Encode(m)
	if err != nil {
		return err
	}
	return p.conn.WriteText(data)
}

// SendRaw writes a frame as-is, for malformed or unusual input.
func (p *Peer) SendRaw(raw string) error {
	return p.conn.WriteText([]byte(raw))
}

// Receive returns the next message from the client. Closed connections
// report transport.ErrClosed once buffered messages are drained.
func (p *Peer) Receive(timeout time.Duration) (message.Message, error) {
	select {
	case f := <-p.frames:
		return p.codec.Decode(f.Data)
	case <-p.closed:
		select {
		case f := <-p.frames:
			return p.codec.Decode(f.Data)
		default:
		}
		return nil, transport.ErrClosed
	case <-time.After(timeout):
		return nil, ErrTimeout
	}
}

// next blocks until a message arrives or the client leaves.
func (p *Peer) next() (message.Message, error) {
	select {
	case f := <-p.frames:
		return p.codec.Decode(f.Data)
	case <-p.closed:
		select {
		case f := <-p.frames:
			return p.codec.Decode(f.Data)
		default:
		}
		return nil, transport.ErrClosed
	}
}

// Expect is Receive that also checks the message type.
func (p *Peer) Expect(t message.Type, timeout time.Duration) (message.Message, error) {
	m, err := p.Receive(timeout)
	if err != nil {
		return nil, err
	}
	if m.Type() != t {
		return m, fmt.Errorf("routertest: expected %s, got %s", t, m.Type())
	}
	return m, nil
}

// Done is closed when the client disconnects.
func (p *Peer) Done() <-chan struct{} { return p.closed }

func (p *Peer) Close() error {
	return p.conn.Close()
}
