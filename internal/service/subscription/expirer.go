package subscription

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Expirer periodically flips lapsed subscription rows to expired. Access
// checks compare end_time to the clock and never wait on it; it only keeps
// the stored status column honest for reporting.
type Expirer struct {
	svc      *Service
	interval time.Duration
	log      *zap.Logger
}

// NewExpirer creates an expirer that runs on the given interval
func NewExpirer(svc *Service, interval time.Duration, log *zap.Logger) *Expirer {
	return &Expirer{
		svc:      svc,
		interval: interval,
		log:      log,
	}
}

// Run expires lapsed rows on a ticker until ctx is cancelled. Failures are
// logged and never propagate; the next tick retries from scratch.
func (e *Expirer) Run(ctx context.Context) {
	e.log.Info("subscription expirer started", zap.Duration("interval", e.interval))

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("subscription expirer stopped")
			return
		case <-ticker.C:
			if _, err := e.svc.ExpireLapsed(ctx); err != nil {
				e.log.Error("subscription expiry pass failed", zap.Error(err))
			}
		}
	}
}
