package protocol

import (
	"bytes"
	"errors"
	"net"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	body := []byte(`[1,"realm1",{}]`)

	var buf bytes.Buffer
	if err := Encode(&buf, FrameRegular, body); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got := buf.Bytes()[:HeaderSize]; !bytes.Equal(got, []byte{0, 0, 0, byte(len(body))}) {
		t.Fatalf("header mismatch: got %x", got)
	}

	header, decodedBody, err := Decode(&buf, MaxLength)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if header.Type != FrameRegular {
		t.Errorf("Type mismatch: got %d, want %d", header.Type, FrameRegular)
	}
	if header.Length != uint32(len(body)) {
		t.Errorf("Length mismatch: got %d, want %d", header.Length, len(body))
	}
	if !bytes.Equal(decodedBody, body) {
		t.Errorf("Body mismatch: got %s, want %s", decodedBody, body)
	}
}

func TestDecodePing(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, FramePing, []byte("are-you-there")); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	header, payload, err := Decode(&buf, MaxLength)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if header.Type != FramePing || string(payload) != "are-you-there" {
		t.Errorf("got %d %q, want ping \"are-you-there\"", header.Type, payload)
	}
}

func TestDecodeEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, FramePong, nil); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	header, body, err := Decode(&buf, MaxLength)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if header.Length != 0 || len(body) != 0 {
		t.Errorf("Expected empty body, got length %d", len(body))
	}
}

func TestDecodeReservedBits(t *testing.T) {
	// 类型字节的高位是保留位
	buf := bytes.NewBuffer([]byte{0x08, 0, 0, 0})
	_, _, err := Decode(buf, MaxLength)
	if !errors.Is(err, ErrReservedBits) {
		t.Fatalf("expected ErrReservedBits, got %v", err)
	}

	buf = bytes.NewBuffer([]byte{0x03, 0, 0, 0})
	_, _, err = Decode(buf, MaxLength)
	if !errors.Is(err, ErrUnknownFrame) {
		t.Fatalf("expected ErrUnknownFrame, got %v", err)
	}
}

func TestDecodeTooLarge(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, FrameRegular, make([]byte, 1024)); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	// 超过协商的长度，不应读取消息体
	_, _, err := Decode(&buf, 512)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
	if buf.Len() != 1024 {
		t.Errorf("payload should stay unread, %d bytes left", buf.Len())
	}
}

func TestDecodeLargeBody(t *testing.T) {
	var buf bytes.Buffer

	largeBody := make([]byte, 1024*1024)
	for i := range largeBody {
		largeBody[i] = byte(i % 256)
	}
	if err := Encode(&buf, FrameRegular, largeBody); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	_, decodedBody, err := Decode(&buf, LengthFor(15))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(decodedBody, largeBody) {
		t.Errorf("large body mismatch")
	}
}

func TestLengthFor(t *testing.T) {
	if got := LengthFor(0); got != 512 {
		t.Errorf("LengthFor(0) = %d, want 512", got)
	}
	if got := LengthFor(15); got != MaxLength {
		t.Errorf("LengthFor(15) = %d, want %d", got, MaxLength)
	}
}

func TestHandshake(t *testing.T) {
	client, router := net.Pipe()
	defer client.Close()
	defer router.Close()

	type result struct {
		serializer byte
		limit      uint32
		err        error
	}
	done := make(chan result, 1)
	go func() {
		s, limit, err := ServerHandshake(router, 4, func(s byte) bool { return s == SerializerJSON })
		done <- result{s, limit, err}
	}()

	limit, err := ClientHandshake(client, SerializerJSON, 15)
	if err != nil {
		t.Fatalf("ClientHandshake failed: %v", err)
	}
	if limit != LengthFor(4) {
		t.Errorf("router limit = %d, want %d", limit, LengthFor(4))
	}

	r := <-done
	if r.err != nil {
		t.Fatalf("ServerHandshake failed: %v", r.err)
	}
	if r.serializer != SerializerJSON || r.limit != MaxLength {
		t.Errorf("server saw serializer %d limit %d", r.serializer, r.limit)
	}
}

func TestHandshakeRefused(t *testing.T) {
	client, router := net.Pipe()
	defer client.Close()
	defer router.Close()

	go func() {
		_, _, _ = ServerHandshake(router, 4, func(byte) bool { return false })
	}()

	_, err := ClientHandshake(client, SerializerMsgPack, 15)
	var refused *HandshakeError
	if !errors.As(err, &refused) {
		t.Fatalf("expected HandshakeError, got %v", err)
	}
	if refused.Code != HandshakeSerializerUnsupported {
		t.Errorf("code = %d, want %d", refused.Code, HandshakeSerializerUnsupported)
	}
}
