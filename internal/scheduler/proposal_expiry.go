package scheduler

import (
	"context"
	"time"

	"marketplace_backend/platform/logger"
)

const defaultProposalExpiryInterval = 10 * time.Minute

// ProposalExpirer expires lapsed pending proposals.
type ProposalExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// ProposalExpiry periodically expires proposals past their valid-until date.
type ProposalExpiry struct {
	expirer  ProposalExpirer
	log      *logger.Logger
	interval time.Duration
}

func NewProposalExpiry(expirer ProposalExpirer, log *logger.Logger, interval time.Duration) *ProposalExpiry {
	if interval <= 0 {
		interval = defaultProposalExpiryInterval
	}

	return &ProposalExpiry{
		expirer:  expirer,
		log:      log,
		interval: interval,
	}
}

func (p *ProposalExpiry) Run(ctx context.Context) {
	if p == nil || p.expirer == nil {
		return
	}

	p.sweep(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *ProposalExpiry) sweep(ctx context.Context) {
	expired, err := p.expirer.ExpireDue(ctx)
	if err != nil {
		p.log.Warn("proposal expiry failed", "error", err)
		return
	}

	if expired > 0 {
		p.log.Info("proposal expiry expired pending proposals", "expired", expired)
	}
}
