package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"mini-wamp/message"
)

const JSONSubprotocol = "wamp.2.json"

// JSONCodec uses Go's standard library encoding/json for serialization.
// Numbers decode as json.Number so 64-bit ids survive intact.
type JSONCodec struct{}

func (c *JSONCodec) Encode(m message.Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m.Encode()); err != nil {
		return nil, fmt.Errorf("codec: encode %s: %w", m.Type(), err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func (c *JSONCodec) Decode(data []byte) (message.Message, error) {
	seq, err := c.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return message.Decode(seq)
}

// Unmarshal parses a frame into its raw sequence without dispatching.
func (c *JSONCodec) Unmarshal(data []byte) (message.List, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var seq message.List
	if err := dec.Decode(&seq); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after sequence", ErrMalformedFrame)
	}
	return seq, nil
}

func (c *JSONCodec) Type() CodecType {
	return CodecTypeJSON
}

func (c *JSONCodec) Subprotocol() string {
	return JSONSubprotocol
}
