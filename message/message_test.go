package message

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payloadCase struct {
	name   string
	args   List
	kwargs Dict
}

var payloadCases = []payloadCase{
	{"none", nil, nil},
	{"empty args", List{}, nil},
	{"empty kwargs", nil, Dict{}},
	{"both", List{1, 2}, Dict{"a": 1}},
}

// samples returns one instance of every catalog type, with p applied to the
// types that carry args/kwargs.
func samples(p payloadCase) []Message {
	details := Dict{"k": "v"}
	return []Message{
		&Hello{Realm: "realm1", Details: Dict{"roles": Dict{"caller": Dict{}}}},
		&Welcome{Session: 9129137332, Details: details},
		&Abort{Details: Dict{}, Reason: "wamp.error.no_such_realm"},
		&Challenge{AuthMethod: "ticket", Details: Dict{}},
		&Authenticate{Signature: "secret", Details: Dict{}},
		&Goodbye{Details: Dict{}, Reason: "wamp.close.system_shutdown"},
		&Error{Cause: TypeCall, RequestID: 7, Details: Dict{}, URI: "wamp.error.canceled", Args: p.args, Kwargs: p.kwargs},
		&Publish{RequestID: 1, Options: Dict{}, Topic: "com.topic", Args: p.args, Kwargs: p.kwargs},
		&Published{RequestID: 1, Publication: 2},
		&Subscribe{RequestID: 3, Options: Dict{}, Topic: "com.topic"},
		&Subscribed{RequestID: 3, Subscription: 4},
		&Unsubscribe{RequestID: 5, Subscription: 4},
		&Unsubscribed{RequestID: 5},
		&Event{Subscription: 4, Publication: 6, Details: details, Args: p.args, Kwargs: p.kwargs},
		&Call{RequestID: 7, Options: Dict{}, Procedure: "com.proc", Args: p.args, Kwargs: p.kwargs},
		&Cancel{RequestID: 7, Options: Dict{"mode": "kill"}},
		&Result{RequestID: 7, Details: Dict{}, Args: p.args, Kwargs: p.kwargs},
		&Register{RequestID: 8, Options: Dict{}, Procedure: "com.proc"},
		&Registered{RequestID: 8, Registration: 9},
		&Unregister{RequestID: 10, Registration: 9},
		&Unregistered{RequestID: 10},
		&Invocation{RequestID: 11, Registration: 9, Details: Dict{}, Args: p.args, Kwargs: p.kwargs},
		&Interrupt{RequestID: 11, Options: Dict{}},
		&Yield{RequestID: 11, Options: Dict{}, Args: p.args, Kwargs: p.kwargs},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, p := range payloadCases {
		p := p
		t.Run(p.name, func(t *testing.T) {
			msgs := samples(p)
			require.Len(t, msgs, len(Types()))
			for _, m := range msgs {
				got, err := Decode(m.Encode())
				require.NoError(t, err, m.Type().String())
				assert.Equal(t, m, got, m.Type().String())
			}
		})
	}
}

func TestDecodeAsRejectsOtherTags(t *testing.T) {
	for _, m := range samples(payloadCases[0]) {
		for _, other := range Types() {
			if other == m.Type() {
				continue
			}
			_, err := DecodeAs(other, m.Encode())
			var mismatch *TypeMismatchError
			require.ErrorAs(t, err, &mismatch, "%s as %s", m.Type(), other)
			assert.Equal(t, other, mismatch.Expected)
			assert.Equal(t, m.Type(), mismatch.Actual)
		}
	}
}

func TestEncodeCall(t *testing.T) {
	call := &Call{
		RequestID: 7814135,
		Options:   Dict{},
		Procedure: "com.myapp.user.new",
		Args:      List{"johnny"},
		Kwargs:    Dict{"firstname": "John", "surname": "Doe"},
	}
	data, err := json.Marshal(call.Encode())
	require.NoError(t, err)
	assert.Equal(t, `[48,7814135,{},"com.myapp.user.new",["johnny"],{"firstname":"John","surname":"Doe"}]`, string(data))
}

func TestPayloadElision(t *testing.T) {
	tests := []struct {
		name   string
		args   List
		kwargs Dict
		want   string
	}{
		{"both absent", nil, nil, `[50,1,{}]`},
		{"kwargs only", nil, Dict{"a": 1}, `[50,1,{},[],{"a":1}]`},
		{"args only", List{1}, nil, `[50,1,{},[1]]`},
		{"empty args present", List{}, nil, `[50,1,{},[]]`},
		{"both", List{1}, Dict{"a": 1}, `[50,1,{},[1],{"a":1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal((&Result{RequestID: 1, Args: tt.args, Kwargs: tt.kwargs}).Encode())
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestDecodeWelcome(t *testing.T) {
	m, err := Decode(List{uint64(2), uint64(9129137332), Dict{"roles": Dict{"broker": Dict{}}}})
	require.NoError(t, err)
	w, ok := m.(*Welcome)
	require.True(t, ok)
	assert.Equal(t, uint64(9129137332), w.Session)
	assert.Equal(t, Dict{"broker": Dict{}}, w.Details["roles"])
}

func TestDecodeFromJSONNumbers(t *testing.T) {
	seq := List{json.Number("36"), json.Number("4"), json.Number("9007199254740992"), Dict{}, List{json.Number("1")}}
	m, err := Decode(seq)
	require.NoError(t, err)
	ev := m.(*Event)
	assert.Equal(t, uint64(4), ev.Subscription)
	assert.Equal(t, uint64(1<<53), ev.Publication)
	assert.Nil(t, ev.Kwargs)
}

func TestDecodeExtension(t *testing.T) {
	raw := List{uint64(999), "anything", Dict{}}
	m, err := Decode(raw)
	require.NoError(t, err)
	ext, ok := m.(*Extension)
	require.True(t, ok)
	assert.Equal(t, uint64(999), ext.Tag)
	assert.Equal(t, raw, ext.Encode())
	assert.Equal(t, "Extension(999)", ext.Type().String())
}

func TestDecodeMalformedTag(t *testing.T) {
	for _, seq := range []List{{}, {"48"}, {-1}, {1.5}, {nil}} {
		_, err := Decode(seq)
		var malformed *MalformedTagError
		assert.ErrorAs(t, err, &malformed, "%v", seq)
	}
}

func TestDecodeFieldShapes(t *testing.T) {
	tests := []struct {
		name  string
		seq   List
		field string
	}{
		{"options array", List{48, 1, List{}, "p"}, "options"},
		{"options scalar", List{48, 1, "x", "p"}, "options"},
		{"options null", List{48, 1, nil, "p"}, "options"},
		{"details array", List{2, 1, List{}}, "details"},
		{"args object", List{48, 1, Dict{}, "p", Dict{}}, "args"},
		{"kwargs array", List{48, 1, Dict{}, "p", List{}, List{}}, "kwargs"},
		{"missing procedure", List{48, 1, Dict{}}, "procedure"},
		{"negative id", List{33, -4, 5}, "request_id"},
		{"trailing", List{35, 1, 2}, "sequence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.seq)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestDecodeNullPayload(t *testing.T) {
	m, err := Decode(List{48, 1, Dict{}, "p", nil, Dict{"a": 1}})
	require.NoError(t, err)
	call := m.(*Call)
	assert.Nil(t, call.Args)
	assert.Equal(t, Dict{"a": 1}, call.Kwargs)
}

func TestErrorCause(t *testing.T) {
	m, err := Decode(List{8, 32, 12, Dict{}, "wamp.error.not_authorized"})
	require.NoError(t, err)
	e := m.(*Error)
	assert.Equal(t, TypeSubscribe, e.Cause)
	assert.Equal(t, uint64(12), e.Request())

	for _, cause := range []Type{TypeCall, TypeRegister, TypeUnregister, TypeSubscribe, TypeUnsubscribe, TypePublish, TypeInvocation, TypeCancel} {
		assert.True(t, IsErrorCause(cause), cause.String())
	}

	raw := List{8, 33, 12, Dict{}, "wamp.error.not_authorized"}
	_, err = Decode(raw)
	var cause *NoSuchErrorCauseError
	require.ErrorAs(t, err, &cause)
	assert.Equal(t, uint64(33), cause.Cause)
	assert.Equal(t, raw, cause.Raw)
}

func TestErrorAsGoError(t *testing.T) {
	call := &Call{RequestID: 3, Procedure: "p"}
	var err error = NewError(call, ErrNoSuchProcedure, nil, nil)
	var wampErr *Error
	require.True(t, errors.As(err, &wampErr))
	assert.Equal(t, TypeCall, wampErr.Cause)
	assert.Equal(t, uint64(3), wampErr.RequestID)
	assert.Contains(t, err.Error(), string(ErrNoSuchProcedure))
}

func TestDirections(t *testing.T) {
	client := ClientRoles()
	for _, typ := range []Type{TypeHello, TypeCall, TypeRegister, TypeSubscribe, TypeUnsubscribe, TypeUnregister, TypeCancel, TypeAuthenticate, TypeYield, TypePublish} {
		assert.False(t, ReceivableBy(typ, client...), typ.String())
	}
	for _, typ := range []Type{TypeWelcome, TypeChallenge, TypeAbort, TypeGoodbye, TypeError, TypePublished, TypeSubscribed,
		TypeUnsubscribed, TypeEvent, TypeResult, TypeRegistered, TypeUnregistered, TypeInvocation, TypeInterrupt} {
		assert.True(t, ReceivableBy(typ, client...), typ.String())
	}

	assert.Equal(t, Direction{Sends: true}, DirectionOf(TypeCall, RoleCaller))
	assert.Equal(t, Direction{Receives: true}, DirectionOf(TypeCall, RoleDealer))
	assert.Equal(t, Direction{Sends: true, Receives: true}, DirectionOf(TypeError, RoleCallee))
	assert.Equal(t, Direction{}, DirectionOf(Type(999), RoleCaller))

	for _, typ := range Types() {
		_, ok := directions[typ]
		assert.True(t, ok, typ.String())
	}
}

func TestNewHello(t *testing.T) {
	h := NewHello("realm1", RoleCaller, RoleSubscriber)
	roles := h.Details["roles"].(Dict)
	assert.Len(t, roles, 2)
	assert.Contains(t, roles, "caller")
	assert.Contains(t, roles, "subscriber")

	h = NewHello("realm1")
	assert.Len(t, h.Details["roles"].(Dict), 4)

	data, err := json.Marshal(NewGoodbye(CloseSystemShutdown).Encode())
	require.NoError(t, err)
	assert.Equal(t, `[6,{},"wamp.close.system_shutdown"]`, string(data))
}
