package subscription

import (
	"context"
	"time"

	"github.com/zyadwael2009/gym/internal/logger"
	"github.com/zyadwael2009/gym/internal/metrics"
)

// Sweeper periodically expires overdue subscriptions and resumes ones
// whose freeze window has elapsed. Reads at entry validation never
// mutate state, so this is the only place lapsed rows get flipped.
type Sweeper struct {
	repo     Repository
	interval time.Duration
}

func NewSweeper(repo Repository, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{repo: repo, interval: interval}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Subscription sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.repo.ExpireOverdue(ctx)
	if err != nil {
		logger.Errorf("Sweeper failed to expire subscriptions: %v", err)
	} else if expired > 0 {
		logger.Infof("Expired %d overdue subscriptions", expired)
		for i := 0; i < expired; i++ {
			metrics.RecordSubscriptionTransition("expired")
		}
	}

	unfrozen, err := s.repo.UnfreezeElapsed(ctx)
	if err != nil {
		logger.Errorf("Sweeper failed to unfreeze subscriptions: %v", err)
	} else if unfrozen > 0 {
		logger.Infof("Resumed %d subscriptions after freeze", unfrozen)
		for i := 0; i < unfrozen; i++ {
			metrics.RecordSubscriptionTransition("unfrozen")
		}
	}

	counts, err := s.repo.ActiveCountsByPlan(ctx)
	if err != nil {
		logger.Errorf("Sweeper failed to count active subscriptions: %v", err)
		return
	}
	metrics.ActiveSubscriptions.Reset()
	for _, pc := range counts {
		metrics.ActiveSubscriptions.WithLabelValues(pc.PlanName).Set(float64(pc.Count))
	}
}
