package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"mini-wamp/protocol"
)

// RawSocket speaks WAMP RawSocket framing over a stream connection.
type RawSocket struct {
	conn      net.Conn
	sending   sync.Mutex // Write lock: a frame's header and payload must not interleave with another frame
	recvLimit uint32     // Largest frame we accept, announced in our handshake
	sendLimit uint32     // Largest frame the router accepts, learned from its handshake
}

// NewRawSocket performs the client handshake on conn. lengthExp announces our
// receive limit as 2^(9+lengthExp) bytes.
func NewRawSocket(conn net.Conn, serializer, lengthExp byte) (*RawSocket, error) {
	sendLimit, err := protocol.ClientHandshake(conn, serializer, lengthExp)
	if err != nil {
		return nil, fmt.Errorf("transport: rawsocket handshake: %w", err)
	}
	return &RawSocket{
		conn:      conn,
		recvLimit: protocol.LengthFor(lengthExp),
		sendLimit: sendLimit,
	}, nil
}

// NewRawSocketAccepted wraps a connection whose handshake the caller already
// completed. Used by routers and tests.
func NewRawSocketAccepted(conn net.Conn, recvLimit, sendLimit uint32) *RawSocket {
	return &RawSocket{conn: conn, recvLimit: recvLimit, sendLimit: sendLimit}
}

// ReadFrame reads the next frame. Pings are answered with a pong carrying
// the same payload before being reported as control frames.
func (r *RawSocket) ReadFrame() (Frame, error) {
	header, payload, err := protocol.Decode(r.conn, r.recvLimit)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return Frame{Kind: FrameClosed}, nil
		}
		return Frame{}, err
	}
	switch header.Type {
	case protocol.FramePing:
		if err := r.write(protocol.FramePong, payload); err != nil {
			return Frame{}, err
		}
		return Frame{Kind: FrameControl, Data: payload}, nil
	case protocol.FramePong:
		return Frame{Kind: FrameControl, Data: payload}, nil
	}
	return Frame{Kind: FrameText, Data: payload}, nil
}

func (r *RawSocket) WriteText(data []byte) error {
	if uint32(len(data)) > r.sendLimit {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), r.sendLimit)
	}
	return r.write(protocol.FrameRegular, data)
}

// Ping sends a RawSocket ping frame.
func (r *RawSocket) Ping() error {
	return r.write(protocol.FramePing, nil)
}

func (r *RawSocket) write(t protocol.FrameType, payload []byte) error {
	r.sending.Lock()
	defer r.sending.Unlock()
	return protocol.Encode(r.conn, t, payload)
}

func (r *RawSocket) Close() error {
	return r.conn.Close()
}
