// Package message defines the WAMP message catalog exchanged between a client and a router.
//
// Every message travels as a sequence whose first element is the numeric type tag.
// The remaining elements are the message's fields in a fixed order:
//
//	[48, 7814135, {}, "com.myapp.user.new", ["johnny"], {"firstname": "John"}]
//	 │   │        │   │                     │           └─ kwargs (optional)
//	 │   │        │   │                     └─ args (optional)
//	 │   │        │   └─ procedure
//	 │   │        └─ options (object)
//	 │   └─ request id
//	 └─ tag: Call
//
// Messages are plain structs. Encode turns one into a List ready for a codec;
// Decode turns an untyped List back into the concrete message by its tag.
package message

import "fmt"

// Dict is an object-shaped generic value (options, details, kwargs).
type Dict = map[string]any

// List is an array-shaped generic value (the message sequence itself, args).
type List = []any

// Type is the numeric tag in position 0 of every message.
type Type uint64

const (
	TypeHello        Type = 1
	TypeWelcome      Type = 2
	TypeAbort        Type = 3
	TypeChallenge    Type = 4
	TypeAuthenticate Type = 5
	TypeGoodbye      Type = 6
	TypeError        Type = 8
	TypePublish      Type = 16
	TypePublished    Type = 17
	TypeSubscribe    Type = 32
	TypeSubscribed   Type = 33
	TypeUnsubscribe  Type = 34
	TypeUnsubscribed Type = 35
	TypeEvent        Type = 36
	TypeCall         Type = 48
	TypeCancel       Type = 49
	TypeResult       Type = 50
	TypeRegister     Type = 64
	TypeRegistered   Type = 65
	TypeUnregister   Type = 66
	TypeUnregistered Type = 67
	TypeInvocation   Type = 68
	TypeInterrupt    Type = 69
	TypeYield        Type = 70
)

var typeNames = map[Type]string{
	TypeHello:        "Hello",
	TypeWelcome:      "Welcome",
	TypeAbort:        "Abort",
	TypeChallenge:    "Challenge",
	TypeAuthenticate: "Authenticate",
	TypeGoodbye:      "Goodbye",
	TypeError:        "Error",
	TypePublish:      "Publish",
	TypePublished:    "Published",
	TypeSubscribe:    "Subscribe",
	TypeSubscribed:   "Subscribed",
	TypeUnsubscribe:  "Unsubscribe",
	TypeUnsubscribed: "Unsubscribed",
	TypeEvent:        "Event",
	TypeCall:         "Call",
	TypeCancel:       "Cancel",
	TypeResult:       "Result",
	TypeRegister:     "Register",
	TypeRegistered:   "Registered",
	TypeUnregister:   "Unregister",
	TypeUnregistered: "Unregistered",
	TypeInvocation:   "Invocation",
	TypeInterrupt:    "Interrupt",
	TypeYield:        "Yield",
}

// String returns the catalog name of the type, or "Extension(n)" for unknown tags.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Extension(%d)", uint64(t))
}

// Known reports whether t is one of the catalog types.
func (t Type) Known() bool {
	_, ok := typeNames[t]
	return ok
}

// Message is implemented by every catalog type and by Extension.
type Message interface {
	// Type returns the message's tag.
	Type() Type
	// Encode returns the wire sequence, tag first, with optional trailing
	// args/kwargs elided where the message allows it.
	Encode() List
}

// Requester is implemented by messages that carry a request id in position 1.
type Requester interface {
	Message
	Request() uint64
}

// Types returns all catalog types in tag order.
func Types() []Type {
	return []Type{
		TypeHello, TypeWelcome, TypeAbort, TypeChallenge, TypeAuthenticate, TypeGoodbye,
		TypeError,
		TypePublish, TypePublished, TypeSubscribe, TypeSubscribed, TypeUnsubscribe, TypeUnsubscribed, TypeEvent,
		TypeCall, TypeCancel, TypeResult,
		TypeRegister, TypeRegistered, TypeUnregister, TypeUnregistered, TypeInvocation, TypeInterrupt, TypeYield,
	}
}

func dictOrEmpty(d Dict) Dict {
	if d == nil {
		return Dict{}
	}
	return d
}
