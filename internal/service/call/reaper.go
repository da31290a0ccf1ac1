package call

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/metrics"
)

// Reaper periodically sweeps stale calls. It runs independently of request
// handling and communicates with it only through the session store: a sweep
// performs the same conditional drop transition a request would, so the two
// can overlap safely.
type Reaper struct {
	svc      *Service
	interval time.Duration
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewReaper creates a reaper that sweeps on the given interval
func NewReaper(svc *Service, interval time.Duration, m *metrics.Metrics, log *zap.Logger) *Reaper {
	return &Reaper{
		svc:      svc,
		interval: interval,
		metrics:  m,
		log:      log,
	}
}

// Run sweeps on a ticker until ctx is cancelled. Sweep failures are logged
// and never propagate; the next tick retries from scratch.
func (r *Reaper) Run(ctx context.Context) {
	r.log.Info("reaper started", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	start := time.Now()

	dropped, err := r.svc.SweepStaleCalls(ctx)
	if err != nil {
		r.log.Error("stale call sweep failed", zap.Error(err))
		return
	}

	if r.metrics != nil {
		r.metrics.ReaperSwept(dropped, time.Since(start))
	}
	if dropped > 0 {
		r.log.Info("stale call sweep completed",
			zap.Int("dropped", dropped),
			zap.Duration("took", time.Since(start)),
		)
	}
}
