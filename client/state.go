package client

// State is where a session stands in its lifecycle.
//
//	NotConnected ─▶ Connected ─Hello─▶ (Challenge) Authenticating ─▶ Established ─Goodbye─▶ Closing ─▶ Closed
//	                                                                        └──────────Abort / loss───────────┘
type State int32

const (
	StateNotConnected State = iota
	StateConnected
	StateAuthenticating
	StateEstablished
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNotConnected:
		return "not-connected"
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateEstablished:
		return "established"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}
