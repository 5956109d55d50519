package message

// errorCauses are the request-bearing types an Error may answer.
var errorCauses = map[Type]bool{
	TypeCall:        true,
	TypeRegister:    true,
	TypeUnregister:  true,
	TypeSubscribe:   true,
	TypeUnsubscribe: true,
	TypePublish:     true,
	TypeInvocation:  true,
	TypeCancel:      true,
}

// IsErrorCause reports whether t may appear as the cause tag of an Error.
func IsErrorCause(t Type) bool { return errorCauses[t] }

// Error reports the failure of a request. Cause is the tag of the request
// that failed and RequestID is that request's id.
//
//	[8, 48, 7814135, {}, "wamp.error.no_such_procedure"]
//	 │  │   │        │   └─ error URI
//	 │  │   │        └─ details
//	 │  │   └─ request id of the failed Call
//	 │  └─ cause tag (Call)
//	 └─ tag: Error
type Error struct {
	Cause     Type
	RequestID uint64
	Details   Dict
	URI       string
	Args      List
	Kwargs    Dict
}

func (*Error) Type() Type        { return TypeError }
func (m *Error) Request() uint64 { return m.RequestID }

func (m *Error) Encode() List {
	seq := List{uint64(TypeError), uint64(m.Cause), m.RequestID, dictOrEmpty(m.Details), m.URI}
	return appendPayload(seq, m.Args, m.Kwargs)
}

// Error lets an Error message travel as a Go error to continuations.
func (m *Error) Error() string {
	return "wamp: " + m.Cause.String() + " " + m.URI
}

func decodeError(seq List) (Message, error) {
	r, err := readerFor(TypeError, seq)
	if err != nil {
		return nil, err
	}
	cause := r.id("cause")
	if r.err == nil && !IsErrorCause(Type(cause)) {
		return nil, &NoSuchErrorCauseError{Cause: cause, Raw: seq}
	}
	m := &Error{Cause: Type(cause), RequestID: r.id("request_id"), Details: r.dict("details"), URI: r.str("error")}
	m.Args, m.Kwargs = r.payload()
	return m, r.done()
}

// NewError builds an Error answering req.
func NewError(req Requester, uri URI, args List, kwargs Dict) *Error {
	return &Error{
		Cause:     req.Type(),
		RequestID: req.Request(),
		Details:   Dict{},
		URI:       string(uri),
		Args:      args,
		Kwargs:    kwargs,
	}
}
