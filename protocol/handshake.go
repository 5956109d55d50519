package protocol

import (
	"fmt"
	"io"
)

// HandshakeError is a router's refusal, carried in the upper nibble of the
// second handshake byte.
type HandshakeError struct {
	Code byte
}

const (
	HandshakeSerializerUnsupported byte = 1
	HandshakeLengthUnacceptable    byte = 2
	HandshakeReservedBits          byte = 3
	HandshakeTooManyConnections    byte = 4
)

func (e *HandshakeError) Error() string {
	switch e.Code {
	case HandshakeSerializerUnsupported:
		return "protocol: router refused handshake: serializer unsupported"
	case HandshakeLengthUnacceptable:
		return "protocol: router refused handshake: maximum message length unacceptable"
	case HandshakeReservedBits:
		return "protocol: router refused handshake: use of reserved bits"
	case HandshakeTooManyConnections:
		return "protocol: router refused handshake: maximum connection count reached"
	}
	return fmt.Sprintf("protocol: router refused handshake: code %d", e.Code)
}

// LengthFor converts the 4-bit length exponent into a byte limit: 2^(9+exp).
func LengthFor(exp byte) uint32 {
	n := uint32(1) << (9 + uint32(exp&0x0F))
	if n > MaxLength {
		return MaxLength
	}
	return n
}

// ClientHandshake announces the serializer and the client's receive limit and
// returns the router's receive limit, which bounds the frames we may send.
func ClientHandshake(rw io.ReadWriter, serializer, lengthExp byte) (uint32, error) {
	if _, err := rw.Write([]byte{Magic, lengthExp<<4 | serializer&0x0F, 0, 0}); err != nil {
		return 0, err
	}

	reply := make([]byte, 4)
	if _, err := io.ReadFull(rw, reply); err != nil {
		return 0, err
	}
	if reply[0] != Magic {
		return 0, fmt.Errorf("%w: %#x", ErrInvalidMagic, reply[0])
	}
	if reply[2] != 0 || reply[3] != 0 {
		return 0, ErrReservedBits
	}
	if reply[1]&0x0F == 0 {
		return 0, &HandshakeError{Code: reply[1] >> 4}
	}
	if reply[1]&0x0F != serializer {
		return 0, fmt.Errorf("%w: %d", ErrSerializerEcho, reply[1]&0x0F)
	}
	return LengthFor(reply[1] >> 4), nil
}

// ServerHandshake reads a client handshake and answers it. accept decides
// whether the requested serializer is supported. It returns the serializer
// and the client's receive limit.
func ServerHandshake(rw io.ReadWriter, lengthExp byte, accept func(serializer byte) bool) (byte, uint32, error) {
	req := make([]byte, 4)
	if _, err := io.ReadFull(rw, req); err != nil {
		return 0, 0, err
	}
	if req[0] != Magic {
		return 0, 0, fmt.Errorf("%w: %#x", ErrInvalidMagic, req[0])
	}
	if req[2] != 0 || req[3] != 0 {
		_, _ = rw.Write([]byte{Magic, HandshakeReservedBits << 4, 0, 0})
		return 0, 0, ErrReservedBits
	}
	serializer := req[1] & 0x0F
	if !accept(serializer) {
		_, _ = rw.Write([]byte{Magic, HandshakeSerializerUnsupported << 4, 0, 0})
		return 0, 0, &HandshakeError{Code: HandshakeSerializerUnsupported}
	}
	if _, err := rw.Write([]byte{Magic, lengthExp<<4 | serializer, 0, 0}); err != nil {
		return 0, 0, err
	}
	return serializer, LengthFor(req[1] >> 4), nil
}
