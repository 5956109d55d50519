package message

// URI is a WAMP error URI.
type URI string

const (
	ErrInvalidURI           URI = "wamp.error.invalid_uri"
	ErrNoSuchProcedure      URI = "wamp.error.no_such_procedure"
	ErrProcedureExists      URI = "wamp.error.procedure_already_exists"
	ErrNoSuchRegistration   URI = "wamp.error.no_such_registration"
	ErrNoSuchSubscription   URI = "wamp.error.no_such_subscription"
	ErrInvalidArgument      URI = "wamp.error.invalid_argument"
	ErrSystemShutdown       URI = "wamp.error.system_shutdown"
	ErrCloseRealm           URI = "wamp.error.close_realm"
	ErrGoodbyeAndOut        URI = "wamp.error.goodbye_and_out"
	ErrNotAuthorized        URI = "wamp.error.not_authorized"
	ErrAuthorizationFailed  URI = "wamp.error.authorization_failed"
	ErrNoSuchRealm          URI = "wamp.error.no_such_realm"
	ErrNoSuchRole           URI = "wamp.error.no_such_role"
	ErrCanceled             URI = "wamp.error.canceled"
	ErrOptionNotAllowed     URI = "wamp.error.option_not_allowed"
	ErrNoEligibleCallee     URI = "wamp.error.no_eligible_callee"
	ErrDisallowedDiscloseMe URI = "wamp.error.option_disallowed.disclose_me"
	ErrNetworkFailure       URI = "wamp.error.network_failure"
	ErrProtocolViolation    URI = "wamp.error.protocol_violation"
	ErrRuntime              URI = "wamp.error.runtime_error"
)

// CloseReason is the reason URI carried by Goodbye and Abort.
type CloseReason string

const (
	CloseSystemShutdown CloseReason = "wamp.close.system_shutdown"
	CloseRealm          CloseReason = "wamp.close.close_realm"
	CloseGoodbyeAndOut  CloseReason = "wamp.close.goodbye_and_out"
	CloseKilled         CloseReason = "wamp.close.killed"
	CloseNormal         CloseReason = "wamp.close.normal"
)
