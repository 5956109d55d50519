package message

// Session lifecycle messages: Hello, Welcome, Abort, Challenge, Authenticate, Goodbye.

// Hello opens a session on a realm.
type Hello struct {
	Realm   string
	Details Dict
}

func (*Hello) Type() Type { return TypeHello }

func (m *Hello) Encode() List {
	return List{uint64(TypeHello), m.Realm, dictOrEmpty(m.Details)}
}

func decodeHello(seq List) (Message, error) {
	r, err := readerFor(TypeHello, seq)
	if err != nil {
		return nil, err
	}
	m := &Hello{Realm: r.str("realm"), Details: r.dict("details")}
	return m, r.done()
}

// Welcome confirms the session and carries the router-assigned session id.
type Welcome struct {
	Session uint64
	Details Dict
}

func (*Welcome) Type() Type { return TypeWelcome }

func (m *Welcome) Encode() List {
	return List{uint64(TypeWelcome), m.Session, dictOrEmpty(m.Details)}
}

func decodeWelcome(seq List) (Message, error) {
	r, err := readerFor(TypeWelcome, seq)
	if err != nil {
		return nil, err
	}
	m := &Welcome{Session: r.id("session"), Details: r.dict("details")}
	return m, r.done()
}

// Abort terminates a session that was never established or must be torn down at once.
type Abort struct {
	Details Dict
	Reason  string
}

func (*Abort) Type() Type { return TypeAbort }

func (m *Abort) Encode() List {
	return List{uint64(TypeAbort), dictOrEmpty(m.Details), m.Reason}
}

func decodeAbort(seq List) (Message, error) {
	r, err := readerFor(TypeAbort, seq)
	if err != nil {
		return nil, err
	}
	m := &Abort{Details: r.dict("details"), Reason: r.str("reason")}
	return m, r.done()
}

// Challenge asks the client to authenticate with the given method.
type Challenge struct {
	AuthMethod string
	Details    Dict
}

func (*Challenge) Type() Type { return TypeChallenge }

func (m *Challenge) Encode() List {
	return List{uint64(TypeChallenge), m.AuthMethod, dictOrEmpty(m.Details)}
}

func decodeChallenge(seq List) (Message, error) {
	r, err := readerFor(TypeChallenge, seq)
	if err != nil {
		return nil, err
	}
	m := &Challenge{AuthMethod: r.str("authmethod"), Details: r.dict("details")}
	return m, r.done()
}

// Authenticate answers a Challenge.
type Authenticate struct {
	Signature string
	Details   Dict
}

func (*Authenticate) Type() Type { return TypeAuthenticate }

func (m *Authenticate) Encode() List {
	return List{uint64(TypeAuthenticate), m.Signature, dictOrEmpty(m.Details)}
}

func decodeAuthenticate(seq List) (Message, error) {
	r, err := readerFor(TypeAuthenticate, seq)
	if err != nil {
		return nil, err
	}
	m := &Authenticate{Signature: r.str("signature"), Details: r.dict("details")}
	return m, r.done()
}

// Goodbye closes an established session. Either peer may send it first; the
// other replies with its own Goodbye.
type Goodbye struct {
	Details Dict
	Reason  string
}

func (*Goodbye) Type() Type { return TypeGoodbye }

func (m *Goodbye) Encode() List {
	return List{uint64(TypeGoodbye), dictOrEmpty(m.Details), m.Reason}
}

func decodeGoodbye(seq List) (Message, error) {
	r, err := readerFor(TypeGoodbye, seq)
	if err != nil {
		return nil, err
	}
	m := &Goodbye{Details: r.dict("details"), Reason: r.str("reason")}
	return m, r.done()
}

// NewHello builds a Hello announcing the given client roles. Each role is
// advertised with the features this client implements for it.
func NewHello(realm string, roles ...Role) *Hello {
	if len(roles) == 0 {
		roles = ClientRoles()
	}
	announced := Dict{}
	for _, role := range roles {
		announced[role.String()] = Dict{"features": roleFeatures(role)}
	}
	return &Hello{Realm: realm, Details: Dict{"roles": announced}}
}

// NewAuthenticate builds the reply to a Challenge.
func NewAuthenticate(signature string) *Authenticate {
	return &Authenticate{Signature: signature, Details: Dict{}}
}

// NewGoodbye builds a Goodbye with the given close reason.
func NewGoodbye(reason CloseReason) *Goodbye {
	return &Goodbye{Details: Dict{}, Reason: string(reason)}
}

// NewAbort builds an Abort with the given reason URI.
func NewAbort(reason URI) *Abort {
	return &Abort{Details: Dict{}, Reason: string(reason)}
}
