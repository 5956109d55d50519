package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket carries WAMP messages as WebSocket text frames.
type WebSocket struct {
	conn    *websocket.Conn
	sending sync.Mutex
	pongs   chan []byte
}

// NewWebSocket wraps an established connection. Pongs received while reading
// are surfaced as control frames.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	ws := &WebSocket{conn: conn, pongs: make(chan []byte, 1)}
	conn.SetPongHandler(func(data string) error {
		select {
		case ws.pongs <- []byte(data):
		default:
		}
		return nil
	})
	return ws
}

func (w *WebSocket) ReadFrame() (Frame, error) {
	select {
	case data := <-w.pongs:
		return Frame{Kind: FrameControl, Data: data}, nil
	default:
	}

	messageType, data, err := w.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return Frame{Kind: FrameClosed}, nil
		}
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return Frame{Kind: FrameClosed, Data: []byte(closeErr.Text)}, nil
		}
		return Frame{}, err
	}
	switch messageType {
	case websocket.TextMessage:
		return Frame{Kind: FrameText, Data: data}, nil
	case websocket.BinaryMessage:
		return Frame{Kind: FrameBinary, Data: data}, nil
	}
	return Frame{Kind: FrameControl, Data: data}, nil
}

func (w *WebSocket) WriteText(data []byte) error {
	w.sending.Lock()
	defer w.sending.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// Ping sends a WebSocket ping control frame.
func (w *WebSocket) Ping() error {
	w.sending.Lock()
	defer w.sending.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

// Close sends a normal-closure frame and closes the connection.
func (w *WebSocket) Close() error {
	w.sending.Lock()
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	w.sending.Unlock()
	return w.conn.Close()
}

// Subprotocol returns the negotiated WebSocket subprotocol.
func (w *WebSocket) Subprotocol() string {
	return w.conn.Subprotocol()
}
