// Package protocol implements WAMP RawSocket framing over a byte stream.
//
// A RawSocket connection starts with a 4-byte handshake in each direction,
// then carries length-prefixed frames. The receiver reads the header first to
// learn the payload length, then reads exactly that many bytes.
//
// Handshake (client → router, router echoes with its own limit):
//
//	0        1             2    3
//	┌────────┬──────┬──────┬────┬────┐
//	│  0x7F  │ len  │ ser  │ 00 │ 00 │
//	│ magic  │ 4bit │ 4bit │    │    │
//	└────────┴──────┴──────┴────┴────┘
//
// Frame format:
//
//	0      1                 4
//	┌──────┬─────────────────┬────────────────┐
//	│ type │     length      │  payload ...   │
//	│ 0-2  │ uint24, BE      │ length bytes   │
//	└──────┴─────────────────┴────────────────┘
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Magic      byte = 0x7F
	HeaderSize int  = 4
	// MaxLength is the largest payload a 24-bit length can carry.
	MaxLength uint32 = 1<<24 - 1
)

// FrameType distinguishes regular WAMP traffic from transport-level pings.
type FrameType byte

const (
	FrameRegular FrameType = 0 // One serialized WAMP message
	FramePing    FrameType = 1 // Probe; the peer must answer with a pong carrying the same payload
	FramePong    FrameType = 2 // Answer to a ping
)

// Serializer ids announced in the handshake.
const (
	SerializerJSON    byte = 1
	SerializerMsgPack byte = 2
)

var (
	ErrInvalidMagic   = errors.New("protocol: invalid magic byte")
	ErrReservedBits   = errors.New("protocol: reserved bits set")
	ErrFrameTooLarge  = errors.New("protocol: frame exceeds negotiated length")
	ErrUnknownFrame   = errors.New("protocol: unknown frame type")
	ErrSerializerEcho = errors.New("protocol: router answered with a different serializer")
)

// Header is the fixed 4-byte frame header.
type Header struct {
	Type   FrameType
	Length uint32
}

// Encode writes a complete frame (header + payload) to w.
// The caller must hold a write lock if multiple goroutines share the same writer,
// otherwise frames from different messages will interleave and corrupt the stream.
func Encode(w io.Writer, t FrameType, payload []byte) error {
	if uint64(len(payload)) > uint64(MaxLength) {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)))
	buf[0] = byte(t)
	copy(buf[HeaderSize:], payload)

	_, err := w.Write(buf)
	return err
}

// Decode reads a complete frame from r. Payloads longer than maxLen are
// rejected before any payload byte is read.
func Decode(r io.Reader, maxLen uint32) (*Header, []byte, error) {
	// Step 1: Read the fixed 4-byte header
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, nil, err
	}

	// Step 2: Validate frame type; the upper five bits are reserved
	if headerBuf[0]&0xF8 != 0 {
		return nil, nil, fmt.Errorf("%w: type byte %#x", ErrReservedBits, headerBuf[0])
	}
	t := FrameType(headerBuf[0])
	if t != FrameRegular && t != FramePing && t != FramePong {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownFrame, t)
	}

	// Step 3: Parse the 24-bit length and check it against the limit
	length := uint32(headerBuf[1])<<16 | uint32(headerBuf[2])<<8 | uint32(headerBuf[3])
	if length > maxLen {
		return nil, nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, maxLen)
	}

	// Step 4: Read exactly length bytes
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, nil, err
	}
	return &Header{Type: t, Length: length}, payload, nil
}
