package service

import (
	"context"
	"time"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

const expireBatchSize = 100

type merchantTxExpirer interface {
	ExpireMerchantTransaction(ctx context.Context, reference string) (*domain.MerchantTransaction, error)
}

// PendingExpirer cancels merchant transactions left pending longer than
// ttl. It is the only background actor and is off unless ttl > 0.
type PendingExpirer struct {
	merchantTxs ports.MerchantTxRepository
	expirer     merchantTxExpirer
	ttl         time.Duration
	interval    time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

func NewPendingExpirer(merchantTxs ports.MerchantTxRepository, expirer merchantTxExpirer, ttl, interval time.Duration, log zerolog.Logger) *PendingExpirer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PendingExpirer{
		merchantTxs: merchantTxs,
		expirer:     expirer,
		ttl:         ttl,
		interval:    interval,
		now:         time.Now,
		log:         log,
	}
}

// Run sweeps every interval until ctx ends.
func (e *PendingExpirer) Run(ctx context.Context) {
	if e.ttl <= 0 {
		return
	}
	e.log.Info().Dur("ttl", e.ttl).Dur("interval", e.interval).Msg("pending expiry sweeper started")
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.Sweep(ctx); err != nil {
				e.log.Error().Err(err).Msg("pending expiry sweep failed")
			}
		}
	}
}

// Sweep expires one batch and returns how many transactions it closed. A
// transaction resolved concurrently by its parties is skipped.
func (e *PendingExpirer) Sweep(ctx context.Context) (int, error) {
	stale, err := e.merchantTxs.ListStalePending(ctx, e.now().UTC().Add(-e.ttl), expireBatchSize)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, m := range stale {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		if _, err := e.expirer.ExpireMerchantTransaction(ctx, m.Reference); err != nil {
			if apperror.CodeOf(err) == apperror.ErrNotFoundOrAlreadyProcessed().Code {
				continue
			}
			e.log.Warn().Err(err).Str("reference", m.Reference).Msg("failed to expire merchant transaction")
			continue
		}
		expired++
	}
	if expired > 0 {
		e.log.Info().Int("expired", expired).Msg("expired stale merchant transactions")
	}
	return expired, nil
}
