package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reaper purges expired revocation entries and reports how many went.
type Reaper interface {
	Reap() int
}

// StartRevocationReaper runs RunRevocationReaper in its own goroutine.
func StartRevocationReaper(ctx context.Context, reaper Reaper, interval time.Duration, logger *zap.Logger) {
	if reaper == nil || interval <= 0 {
		return
	}
	go RunRevocationReaper(ctx, reaper, interval, logger)
}

// RunRevocationReaper calls Reap every interval until ctx is done.
func RunRevocationReaper(ctx context.Context, reaper Reaper, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := reaper.Reap(); n > 0 {
				logger.Debug("revocation entries reaped", zap.Int("count", n))
			}
		}
	}
}
