package message

// Role is one of the six WAMP peer roles.
type Role uint8

const (
	RoleCaller Role = iota
	RoleCallee
	RolePublisher
	RoleSubscriber
	RoleDealer
	RoleBroker
)

func (r Role) String() string {
	switch r {
	case RoleCaller:
		return "caller"
	case RoleCallee:
		return "callee"
	case RolePublisher:
		return "publisher"
	case RoleSubscriber:
		return "subscriber"
	case RoleDealer:
		return "dealer"
	case RoleBroker:
		return "broker"
	}
	return "unknown"
}

// ClientRoles returns the roles a client may take.
func ClientRoles() []Role {
	return []Role{RoleCaller, RoleCallee, RolePublisher, RoleSubscriber}
}

// Feature names announced in Hello details.
const (
	FeatureCallCanceling     = "call_canceling"
	FeatureProgCallResults   = "progressive_call_results"
	FeatureCallerIdent       = "caller_identification"
	FeaturePubExclusion      = "publisher_exclusion"
	FeaturePubIdent          = "publisher_identification"
	FeaturePatternSub        = "pattern_based_subscription"
	FeaturePatternBasedReg   = "pattern_based_registration"
	FeatureSharedReg         = "shared_registration"
	FeatureSubBlackWhiteList = "subscriber_blackwhite_listing"
)

func roleFeatures(r Role) Dict {
	switch r {
	case RoleCaller:
		return Dict{FeatureCallCanceling: true, FeatureProgCallResults: true, FeatureCallerIdent: true}
	case RoleCallee:
		return Dict{FeatureCallCanceling: true, FeatureCallerIdent: true, FeaturePatternBasedReg: true, FeatureSharedReg: true}
	case RolePublisher:
		return Dict{FeaturePubExclusion: true, FeaturePubIdent: true, FeatureSubBlackWhiteList: true}
	case RoleSubscriber:
		return Dict{FeaturePatternSub: true, FeaturePubIdent: true}
	}
	return Dict{}
}

// Direction says whether a role sends and/or receives a message type.
type Direction struct {
	Sends    bool
	Receives bool
}

var (
	none = Direction{}
	tx   = Direction{Sends: true}
	rx   = Direction{Receives: true}
	txrx = Direction{Sends: true, Receives: true}
)

// directions is indexed by Role in declaration order:
// caller, callee, publisher, subscriber, dealer, broker.
var directions = map[Type][6]Direction{
	TypeHello:        {tx, tx, tx, tx, rx, rx},
	TypeWelcome:      {rx, rx, rx, rx, tx, tx},
	TypeAbort:        {txrx, txrx, txrx, txrx, txrx, txrx},
	TypeChallenge:    {rx, rx, rx, rx, tx, tx},
	TypeAuthenticate: {tx, tx, tx, tx, rx, rx},
	TypeGoodbye:      {txrx, txrx, txrx, txrx, txrx, txrx},
	TypeError:        {rx, txrx, rx, rx, txrx, tx},

	TypePublish:      {none, none, tx, none, none, rx},
	TypePublished:    {none, none, rx, none, none, tx},
	TypeSubscribe:    {none, none, none, tx, none, rx},
	TypeSubscribed:   {none, none, none, rx, none, tx},
	TypeUnsubscribe:  {none, none, none, tx, none, rx},
	TypeUnsubscribed: {none, none, none, rx, none, tx},
	TypeEvent:        {none, none, none, rx, none, tx},

	TypeCall:         {tx, none, none, none, rx, none},
	TypeCancel:       {tx, none, none, none, rx, none},
	TypeResult:       {rx, none, none, none, tx, none},
	TypeRegister:     {none, tx, none, none, rx, none},
	TypeRegistered:   {none, rx, none, none, tx, none},
	TypeUnregister:   {none, tx, none, none, rx, none},
	TypeUnregistered: {none, rx, none, none, tx, none},
	TypeInvocation:   {none, rx, none, none, tx, none},
	TypeInterrupt:    {none, rx, none, none, tx, none},
	TypeYield:        {none, tx, none, none, rx, none},
}

// DirectionOf returns how role r handles messages of type t. Unknown types
// and roles report neither direction. The table is advisory; the codec does
// not consult it.
func DirectionOf(t Type, r Role) Direction {
	row, ok := directions[t]
	if !ok || int(r) >= len(row) {
		return none
	}
	return row[r]
}

// ReceivableBy reports whether any of roles may receive t.
func ReceivableBy(t Type, roles ...Role) bool {
	for _, r := range roles {
		if DirectionOf(t, r).Receives {
			return true
		}
	}
	return false
}
