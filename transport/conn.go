// Package transport implements the duplex channels a WAMP session runs over.
//
// Every implementation offers the same frame-level contract: ReadFrame blocks
// for the next frame and classifies it, WriteText sends one serialized
// message. Exactly one goroutine may read; any number may write, because each
// write takes the connection's write lock for the duration of that write only.
//
//	session loop ──ReadFrame──┐
//	                          ├──→ single conn (WebSocket | RawSocket | Pipe) ──→ Router
//	continuations ─WriteText──┘
//
// Reads and writes never share a lock, so a continuation that writes while
// the loop is between reads cannot deadlock it.
package transport

import (
	"errors"
	"fmt"
)

// FrameKind classifies what ReadFrame returned.
type FrameKind uint8

const (
	FrameText    FrameKind = iota // A serialized WAMP message
	FrameBinary                   // Payload in an encoding this client does not speak
	FrameControl                  // Ping/pong or similar; carries no WAMP traffic
	FrameClosed                   // The peer closed the connection cleanly
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	case FrameControl:
		return "control"
	case FrameClosed:
		return "closed"
	}
	return fmt.Sprintf("FrameKind(%d)", uint8(k))
}

// Frame is one unit read from a connection.
type Frame struct {
	Kind FrameKind
	Data []byte
}

// Conn is a message-oriented duplex channel.
type Conn interface {
	// ReadFrame blocks until the next frame arrives. A clean close by the
	// peer is reported as a FrameClosed frame, not an error.
	ReadFrame() (Frame, error)
	// WriteText sends one text frame. Safe for concurrent use.
	WriteText(data []byte) error
	Close() error
}

// Pinger is implemented by connections that can send a transport-level ping.
type Pinger interface {
	Ping() error
}

var (
	ErrClosed             = errors.New("transport: connection closed")
	ErrUnsupportedURL     = errors.New("transport: unsupported URL scheme")
	ErrMessageTooLarge    = errors.New("transport: message exceeds peer limit")
	ErrSubprotocolRefused = errors.New("transport: router did not accept the subprotocol")
)
