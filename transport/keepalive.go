package transport

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Keepalive pings conn every interval until ctx is done or a ping fails.
// Transports without a ping frame are left alone.
func Keepalive(ctx context.Context, conn Conn, interval time.Duration, logger zerolog.Logger) {
	pinger, ok := conn.(Pinger)
	if !ok || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pinger.Ping(); err != nil {
				logger.Debug().Err(err).Msg("keepalive stopped")
				return
			}
		}
	}
}
