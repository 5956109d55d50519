package transport

import "sync"

// PipeConn is one end of an in-memory connection. Frames written on one end
// are read from the other in order. Closing either end closes both.
type PipeConn struct {
	in    chan Frame
	peer  *PipeConn
	state *pipeState
}

type pipeState struct {
	once sync.Once
	done chan struct{}
}

// Pipe returns two connected ends.
func Pipe() (*PipeConn, *PipeConn) {
	state := &pipeState{done: make(chan struct{})}
	a := &PipeConn{in: make(chan Frame, 64), state: state}
	b := &PipeConn{in: make(chan Frame, 64), state: state}
	a.peer, b.peer = b, a
	return a, b
}

// ReadFrame returns frames already delivered before reporting the close.
func (p *PipeConn) ReadFrame() (Frame, error) {
	select {
	case f := <-p.in:
		return f, nil
	case <-p.state.done:
		select {
		case f := <-p.in:
			return f, nil
		default:
		}
		return Frame{Kind: FrameClosed}, nil
	}
}

func (p *PipeConn) WriteText(data []byte) error {
	return p.WriteFrame(Frame{Kind: FrameText, Data: append([]byte(nil), data...)})
}

// WriteFrame delivers a frame of any kind to the peer.
func (p *PipeConn) WriteFrame(f Frame) error {
	select {
	case <-p.state.done:
		return ErrClosed
	default:
	}
	select {
	case p.peer.in <- f:
		return nil
	case <-p.state.done:
		return ErrClosed
	}
}

// Ping delivers a control frame to the peer.
func (p *PipeConn) Ping() error {
	return p.WriteFrame(Frame{Kind: FrameControl})
}

func (p *PipeConn) Close() error {
	p.state.once.Do(func() { close(p.state.done) })
	return nil
}
