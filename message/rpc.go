package message

// Call invokes a procedure through the dealer.
type Call struct {
	RequestID uint64
	Options   Dict
	Procedure string
	Args      List
	Kwargs    Dict
}

func (*Call) Type() Type        { return TypeCall }
func (m *Call) Request() uint64 { return m.RequestID }

func (m *Call) Encode() List {
	seq := List{uint64(TypeCall), m.RequestID, dictOrEmpty(m.Options), m.Procedure}
	return appendPayload(seq, m.Args, m.Kwargs)
}

func decodeCall(seq List) (Message, error) {
	r, err := readerFor(TypeCall, seq)
	if err != nil {
		return nil, err
	}
	m := &Call{RequestID: r.id("request_id"), Options: r.dict("options"), Procedure: r.str("procedure")}
	m.Args, m.Kwargs = r.payload()
	return m, r.done()
}

// Cancel asks the dealer to interrupt an in-flight Call. RequestID is the
// request id of the Call being canceled.
type Cancel struct {
	RequestID uint64
	Options   Dict
}

func (*Cancel) Type() Type        { return TypeCancel }
func (m *Cancel) Request() uint64 { return m.RequestID }

func (m *Cancel) Encode() List {
	return List{uint64(TypeCancel), m.RequestID, dictOrEmpty(m.Options)}
}

func decodeCancel(seq List) (Message, error) {
	r, err := readerFor(TypeCancel, seq)
	if err != nil {
		return nil, err
	}
	m := &Cancel{RequestID: r.id("request_id"), Options: r.dict("options")}
	return m, r.done()
}

// Result carries the outcome of a Call.
type Result struct {
	RequestID uint64
	Details   Dict
	Args      List
	Kwargs    Dict
}

func (*Result) Type() Type        { return TypeResult }
func (m *Result) Request() uint64 { return m.RequestID }

func (m *Result) Encode() List {
	seq := List{uint64(TypeResult), m.RequestID, dictOrEmpty(m.Details)}
	return appendPayload(seq, m.Args, m.Kwargs)
}

// Progressive reports whether more results for the same call will follow.
func (m *Result) Progressive() bool {
	p, _ := m.Details["progress"].(bool)
	return p
}

func decodeResult(seq List) (Message, error) {
	r, err := readerFor(TypeResult, seq)
	if err != nil {
		return nil, err
	}
	m := &Result{RequestID: r.id("request_id"), Details: r.dict("details")}
	m.Args, m.Kwargs = r.payload()
	return m, r.done()
}

// Register offers a procedure to the dealer.
type Register struct {
	RequestID uint64
	Options   Dict
	Procedure string
}

func (*Register) Type() Type        { return TypeRegister }
func (m *Register) Request() uint64 { return m.RequestID }

func (m *Register) Encode() List {
	return List{uint64(TypeRegister), m.RequestID, dictOrEmpty(m.Options), m.Procedure}
}

func decodeRegister(seq List) (Message, error) {
	r, err := readerFor(TypeRegister, seq)
	if err != nil {
		return nil, err
	}
	m := &Register{RequestID: r.id("request_id"), Options: r.dict("options"), Procedure: r.str("procedure")}
	return m, r.done()
}

// Registered acknowledges a Register and assigns the registration id that
// later Invocation messages are keyed by.
type Registered struct {
	RequestID    uint64
	Registration uint64
}

func (*Registered) Type() Type        { return TypeRegistered }
func (m *Registered) Request() uint64 { return m.RequestID }

func (m *Registered) Encode() List {
	return List{uint64(TypeRegistered), m.RequestID, m.Registration}
}

func decodeRegistered(seq List) (Message, error) {
	r, err := readerFor(TypeRegistered, seq)
	if err != nil {
		return nil, err
	}
	m := &Registered{RequestID: r.id("request_id"), Registration: r.id("registration")}
	return m, r.done()
}

// Unregister withdraws a registration.
type Unregister struct {
	RequestID    uint64
	Registration uint64
}

func (*Unregister) Type() Type        { return TypeUnregister }
func (m *Unregister) Request() uint64 { return m.RequestID }

func (m *Unregister) Encode() List {
	return List{uint64(TypeUnregister), m.RequestID, m.Registration}
}

func decodeUnregister(seq List) (Message, error) {
	r, err := readerFor(TypeUnregister, seq)
	if err != nil {
		return nil, err
	}
	m := &Unregister{RequestID: r.id("request_id"), Registration: r.id("registration")}
	return m, r.done()
}

// Unregistered acknowledges an Unregister.
type Unregistered struct {
	RequestID uint64
}

func (*Unregistered) Type() Type        { return TypeUnregistered }
func (m *Unregistered) Request() uint64 { return m.RequestID }

func (m *Unregistered) Encode() List {
	return List{uint64(TypeUnregistered), m.RequestID}
}

func decodeUnregistered(seq List) (Message, error) {
	r, err := readerFor(TypeUnregistered, seq)
	if err != nil {
		return nil, err
	}
	m := &Unregistered{RequestID: r.id("request_id")}
	return m, r.done()
}

// Invocation asks the callee to execute a registered procedure.
type Invocation struct {
	RequestID    uint64
	Registration uint64
	Details      Dict
	Args         List
	Kwargs       Dict
}

func (*Invocation) Type() Type        { return TypeInvocation }
func (m *Invocation) Request() uint64 { return m.RequestID }

func (m *Invocation) Encode() List {
	seq := List{uint64(TypeInvocation), m.RequestID, m.Registration, dictOrEmpty(m.Details)}
	return appendPayload(seq, m.Args, m.Kwargs)
}

func decodeInvocation(seq List) (Message, error) {
	r, err := readerFor(TypeInvocation, seq)
	if err != nil {
		return nil, err
	}
	m := &Invocation{RequestID: r.id("request_id"), Registration: r.id("registration"), Details: r.dict("details")}
	m.Args, m.Kwargs = r.payload()
	return m, r.done()
}

// Interrupt tells the callee that the caller canceled the invocation.
type Interrupt struct {
	RequestID uint64
	Options   Dict
}

func (*Interrupt) Type() Type        { return TypeInterrupt }
func (m *Interrupt) Request() uint64 { return m.RequestID }

func (m *Interrupt) Encode() List {
	return List{uint64(TypeInterrupt), m.RequestID, dictOrEmpty(m.Options)}
}

func decodeInterrupt(seq List) (Message, error) {
	r, err := readerFor(TypeInterrupt, seq)
	if err != nil {
		return nil, err
	}
	m := &Interrupt{RequestID: r.id("request_id"), Options: r.dict("options")}
	return m, r.done()
}

// Yield returns the callee's result for an Invocation.
type Yield struct {
	RequestID uint64
	Options   Dict
	Args      List
	Kwargs    Dict
}

func (*Yield) Type() Type        { return TypeYield }
func (m *Yield) Request() uint64 { return m.RequestID }

func (m *Yield) Encode() List {
	seq := List{uint64(TypeYield), m.RequestID, dictOrEmpty(m.Options)}
	return appendPayload(seq, m.Args, m.Kwargs)
}

func decodeYield(seq List) (Message, error) {
	r, err := readerFor(TypeYield, seq)
	if err != nil {
		return nil, err
	}
	m := &Yield{RequestID: r.id("request_id"), Options: r.dict("options")}
	m.Args, m.Kwargs = r.payload()
	return m, r.done()
}
