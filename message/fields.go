package message

import (
	"encoding/json"
	"math"
	"strconv"
)

// fieldReader walks a message sequence positionally. The first failure sticks;
// later reads become no-ops and done reports it.
type fieldReader struct {
	typ Type
	seq List
	pos int
	err error
}

// readerFor validates the tag in position 0 against t.
func readerFor(t Type, seq List) (*fieldReader, error) {
	tag, err := tagOf(seq)
	if err != nil {
		return nil, err
	}
	if tag != t {
		return nil, &TypeMismatchError{Expected: t, Actual: tag}
	}
	return &fieldReader{typ: t, seq: seq, pos: 1}, nil
}

func (r *fieldReader) next(name string) (any, bool) {
	if r.err != nil {
		return nil, false
	}
	if r.pos >= len(r.seq) {
		r.err = &FieldError{Type: r.typ, Field: name, Reason: "must be present"}
		return nil, false
	}
	v := r.seq[r.pos]
	r.pos++
	return v, true
}

func (r *fieldReader) fail(name, reason string) {
	r.err = &FieldError{Type: r.typ, Field: name, Reason: reason}
}

func (r *fieldReader) id(name string) uint64 {
	v, ok := r.next(name)
	if !ok {
		return 0
	}
	n, ok := toUint64(v)
	if !ok {
		r.fail(name, "must be an unsigned integer")
	}
	return n
}

func (r *fieldReader) str(name string) string {
	v, ok := r.next(name)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(name, "must be a string")
	}
	return s
}

func (r *fieldReader) dict(name string) Dict {
	v, ok := r.next(name)
	if !ok {
		return nil
	}
	d, ok := v.(map[string]any)
	if !ok || d == nil {
		r.fail(name, "must be object-like")
		return nil
	}
	return d
}

// payload reads the optional trailing args and kwargs. Absent fields decode to
// nil. An empty args array followed by kwargs is the elision placeholder and
// also decodes to nil.
func (r *fieldReader) payload() (List, Dict) {
	if r.err != nil || r.pos >= len(r.seq) {
		return nil, nil
	}
	var args List
	switch v := r.seq[r.pos].(type) {
	case nil:
	case []any:
		args = v
	default:
		r.fail("args", "must be array-like or null")
		return nil, nil
	}
	r.pos++
	if r.pos >= len(r.seq) {
		return args, nil
	}
	var kwargs Dict
	switch v := r.seq[r.pos].(type) {
	case nil:
	case map[string]any:
		kwargs = v
	default:
		r.fail("kwargs", "must be object-like or null")
		return nil, nil
	}
	r.pos++
	if kwargs != nil && args != nil && len(args) == 0 {
		args = nil
	}
	return args, kwargs
}

func (r *fieldReader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.pos < len(r.seq) {
		return &FieldError{Type: r.typ, Field: "sequence", Reason: ErrTrailingElements.Error()}
	}
	return nil
}

// tagOf reads position 0 as an unsigned tag.
func tagOf(seq List) (Type, error) {
	if len(seq) == 0 {
		return 0, &MalformedTagError{Raw: seq}
	}
	n, ok := toUint64(seq[0])
	if !ok {
		return 0, &MalformedTagError{Raw: seq}
	}
	return Type(n), nil
}

// toUint64 accepts the integer shapes produced by encoding/json (with UseNumber)
// and by Go callers building sequences by hand.
func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case json.Number:
		u, err := strconv.ParseUint(string(n), 10, 64)
		return u, err == nil
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case Type:
		return uint64(n), true
	case int:
		return uint64(n), n >= 0
	case int64:
		return uint64(n), n >= 0
	case int32:
		return uint64(n), n >= 0
	case float64:
		if n < 0 || n != math.Trunc(n) || n >= 1<<64 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}
