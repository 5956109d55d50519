package message

// appendPayload applies the arity-elision rule for optional trailing args and
// kwargs, most specific case first:
//
//	args == nil && kwargs == nil  →  [..fixed]
//	args == nil && kwargs != nil  →  [..fixed, [], kwargs]
//	args != nil && kwargs == nil  →  [..fixed, args]
//	args != nil && kwargs != nil  →  [..fixed, args, kwargs]
//
// Present means non-nil; empty containers are present.
func appendPayload(seq List, args List, kwargs Dict) List {
	switch {
	case args == nil && kwargs == nil:
		return seq
	case args == nil:
		return append(seq, List{}, kwargs)
	case kwargs == nil:
		return append(seq, args)
	default:
		return append(seq, args, kwargs)
	}
}
