package message

import "fmt"

type decoder func(List) (Message, error)

var decoders = map[Type]decoder{
	TypeHello:        decodeHello,
	TypeWelcome:      decodeWelcome,
	TypeAbort:        decodeAbort,
	TypeChallenge:    decodeChallenge,
	TypeAuthenticate: decodeAuthenticate,
	TypeGoodbye:      decodeGoodbye,
	TypeError:        decodeError,
	TypePublish:      decodePublish,
	TypePublished:    decodePublished,
	TypeSubscribe:    decodeSubscribe,
	TypeSubscribed:   decodeSubscribed,
	TypeUnsubscribe:  decodeUnsubscribe,
	TypeUnsubscribed: decodeUnsubscribed,
	TypeEvent:        decodeEvent,
	TypeCall:         decodeCall,
	TypeCancel:       decodeCancel,
	TypeResult:       decodeResult,
	TypeRegister:     decodeRegister,
	TypeRegistered:   decodeRegistered,
	TypeUnregister:   decodeUnregister,
	TypeUnregistered: decodeUnregistered,
	TypeInvocation:   decodeInvocation,
	TypeInterrupt:    decodeInterrupt,
	TypeYield:        decodeYield,
}

// Extension holds a message whose tag is not in the catalog. It is kept
// verbatim so newer routers do not break older clients.
type Extension struct {
	Tag uint64
	Raw List
}

func (m *Extension) Type() Type   { return Type(m.Tag) }
func (m *Extension) Encode() List { return m.Raw }

// Decode reads the tag in position 0 and hands the sequence to that type's
// decoder. Unknown tags decode to *Extension and never fail.
//
// A *MalformedTagError means no decoder was chosen, so the failure is local
// to this sequence. Any other error comes from a type-specific decoder.
func Decode(seq List) (Message, error) {
	t, err := tagOf(seq)
	if err != nil {
		return nil, err
	}
	dec, ok := decoders[t]
	if !ok {
		return &Extension{Tag: uint64(t), Raw: seq}, nil
	}
	return dec(seq)
}

// DecodeAs decodes seq as type t, failing with *TypeMismatchError when the
// tag disagrees.
func DecodeAs(t Type, seq List) (Message, error) {
	dec, ok := decoders[t]
	if !ok {
		return nil, fmt.Errorf("message: no decoder for %s", t)
	}
	return dec(seq)
}
