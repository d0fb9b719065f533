package session

import (
	"context"
	"time"

	collab "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/domain"
)

// Default reaper policy: 30 minutes idle, swept every 5 minutes.
const (
	DefaultIdleTimeout   = 30 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
)

// Reaper periodically evicts participants that stopped sending events and
// announces them through the same participant-left path as a clean leave.
type Reaper struct {
	gateway  *Gateway
	timeout  time.Duration
	interval time.Duration
	opts     options
}

// NewReaper constructs a Reaper. Non-positive durations pick the defaults.
func NewReaper(gateway *Gateway, timeout, interval time.Duration, opts ...Option) *Reaper {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Reaper{gateway: gateway, timeout: timeout, interval: interval, opts: buildOptions(opts)}
}

// Sweep runs one eviction pass and returns what it evicted.
func (r *Reaper) Sweep() []collab.Eviction {
	evicted := r.gateway.Registry().SweepStale(r.timeout, r.opts.now())
	for _, ev := range evicted {
		r.gateway.Evict(ev)
	}
	r.opts.metrics.Evicted(len(evicted))
	if len(evicted) > 0 {
		r.opts.logger.Info("reaper evicted idle participants", "count", len(evicted), "timeout", r.timeout)
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.opts.logger.Info("reaper started", "timeout", r.timeout, "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
