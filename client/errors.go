package client

import (
	"errors"
	"fmt"

	"mini-wamp/message"
)

var (
	ErrUnsupportedEncoding = errors.New("client: binary frames are not supported")
	ErrConnectionClosed    = errors.New("client: connection closed by peer")
	ErrSessionDone         = errors.New("client: session loop is not running")
	ErrAlreadyRunning      = errors.New("client: session loop already running")
	ErrNotEstablished      = errors.New("client: session is not established")
)

// AbortError ends the session when the router sends Abort.
type AbortError struct {
	Abort *message.Abort
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("client: session aborted: %s", e.Abort.Reason)
}

// InvalidFrameError reports a well-formed message that no client role may
// receive, such as a Call or a Hello arriving from the router.
type InvalidFrameError struct {
	Message message.Message
}

func (e *InvalidFrameError) Error() string {
	return fmt.Sprintf("client: invalid frame received: %s", e.Message.Type())
}
