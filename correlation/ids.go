package correlation

import "sync/atomic"

// MaxID is the largest request id. WAMP ids must fit in an IEEE-754 double
// without loss, so the range is [1, 2^53].
const MaxID uint64 = 1 << 53

// IDSource hands out request ids for one session. Every context derived from
// a session shares its source so ids never repeat while in flight.
type IDSource struct {
	last atomic.Uint64
}

// NewIDSource returns a source whose first id is 1.
func NewIDSource() *IDSource {
	return &IDSource{}
}

// Next returns the next id, wrapping from MaxID back to 1.
func (s *IDSource) Next() uint64 {
	for {
		cur := s.last.Load()
		next := cur + 1
		if next > MaxID {
			next = 1
		}
		if s.last.CompareAndSwap(cur, next) {
			return next
		}
	}
}
