// Package codec serializes WAMP messages for text frames.
//
// A codec sits between the message catalog and a transport:
//
//	message.Message ──Encode──▶ []byte ──transport──▶ []byte ──Decode──▶ message.Message
//
// CodecType values match the RawSocket serializer ids so the handshake can
// announce them directly.
package codec

import (
	"errors"
	"fmt"

	"mini-wamp/message"
)

type CodecType byte

const (
	CodecTypeJSON    CodecType = 1
	CodecTypeMsgPack CodecType = 2
)

var (
	ErrUnsupportedCodec = errors.New("codec: unsupported serializer")
	ErrMalformedFrame   = errors.New("codec: malformed frame")
)

type Codec interface {
	// Encode serializes a message's wire sequence.
	Encode(m message.Message) ([]byte, error)
	// Decode parses a frame and dispatches it by tag. Errors from
	// message.Decode are returned unwrapped so callers can tell a
	// *message.MalformedTagError from a type-specific failure.
	Decode(data []byte) (message.Message, error)
	Type() CodecType
	// Subprotocol is the WebSocket subprotocol name.
	Subprotocol() string
}

func GetCodec(codecType CodecType) (Codec, error) {
	if codecType == CodecTypeJSON {
		return &JSONCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedCodec, codecType)
}

// BySubprotocol returns the codec for a negotiated WebSocket subprotocol.
func BySubprotocol(name string) (Codec, error) {
	if name == JSONSubprotocol {
		return &JSONCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, name)
}
