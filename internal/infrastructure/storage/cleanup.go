package storage

import (
	"context"
	"time"

	"github.com/jbctechsolutions/tokencalc/internal/application/ports"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/logging"
)

// StartCleanupTicker runs store.Cleanup every interval until ctx is cancelled.
// A non-positive interval disables the ticker.
func StartCleanupTicker(ctx context.Context, store ports.SessionStore, interval time.Duration, logger *logging.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = logging.Nop()
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := store.Cleanup(ctx)
				if err != nil {
					logger.WarnContext(ctx, "session cleanup failed", "error", err.Error())
					continue
				}
				if removed > 0 {
					logging.LogSessionsExpired(ctx, logger, removed)
				}
			}
		}
	}()
}
