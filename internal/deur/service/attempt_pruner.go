package service

import (
	"context"
	"log"
	"time"

	"github.com/avanserv/deurapi/internal/deur/store"
)

// AttemptPruner periodically deletes scan attempts older than a configurable
// retention period. It runs as a background goroutine and is safe to stop
// via its context or the Stop method.
//
// A retention of 0 disables pruning entirely: the attempt log is the audit
// trail, so dropping history is strictly opt-in.
type AttemptPruner struct {
	store     store.AttemptStore
	retention time.Duration
	interval  time.Duration
	logger    *log.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

type PrunerConfig struct {
	// RetentionDays is how many days of attempt history to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs. Defaults to 6.
	IntervalHours int
}

// NewAttemptPruner creates a pruner but does not start it.
func NewAttemptPruner(s store.AttemptStore, cfg PrunerConfig, logger *log.Logger) *AttemptPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &AttemptPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start begins the background loop: an immediate prune, then one per
// interval, until ctx is cancelled or Stop is called.
func (p *AttemptPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Printf("attempt pruner disabled (retention=0)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.logger.Printf("attempt pruner started (retention=%dd, interval=%dh)",
		int(p.retention.Hours()/24), int(p.interval.Hours()))
}

// Stop signals the pruner to exit and waits for it to finish.
func (p *AttemptPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *AttemptPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *AttemptPruner) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Printf("attempt prune error: %v", err)
		return
	}
	if deleted > 0 {
		p.logger.Printf("attempt prune: deleted %d rows older than %s",
			deleted, cutoff.Format(time.RFC3339))
	}
}
