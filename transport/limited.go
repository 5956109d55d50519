package transport

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// LimitedConn throttles outbound messages with a token bucket. Reads pass
// through untouched.
type LimitedConn struct {
	Conn
	ctx     context.Context
	limiter *rate.Limiter
}

// NewLimitedConn allows perSecond writes on average with bursts up to burst.
// Waiting writers give up when ctx is done.
func NewLimitedConn(ctx context.Context, conn Conn, perSecond float64, burst int) *LimitedConn {
	return &LimitedConn{
		Conn:    conn,
		ctx:     ctx,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (l *LimitedConn) WriteText(data []byte) error {
	if err := l.limiter.Wait(l.ctx); err != nil {
		return fmt.Errorf("transport: rate limit: %w", err)
	}
	return l.Conn.WriteText(data)
}

// Ping is not rate limited.
func (l *LimitedConn) Ping() error {
	if p, ok := l.Conn.(Pinger); ok {
		return p.Ping()
	}
	return nil
}
