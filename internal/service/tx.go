package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const defaultRetryBackoff = 25 * time.Millisecond

// txRunner executes a unit of work inside one database transaction. A unit
// that fails with ports.ErrTransient is rolled back and run again, up to
// retries extra times, before the caller sees ErrLockTimeout.
type txRunner struct {
	transactor ports.DBTransactor
	retries    int
	backoff    time.Duration
	log        zerolog.Logger
}

func newTxRunner(transactor ports.DBTransactor, retries int, log zerolog.Logger) *txRunner {
	if retries < 0 {
		retries = 0
	}
	return &txRunner{
		transactor: transactor,
		retries:    retries,
		backoff:    defaultRetryBackoff,
		log:        log,
	}
}

// run returns nil, an *apperror.AppError raised by fn, or a SYS error.
func (r *txRunner) run(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			r.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("retrying after transient storage conflict")
			select {
			case <-time.After(r.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return apperror.ErrLockTimeout(ctx.Err())
			}
		}
		err = r.once(ctx, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ports.ErrTransient) {
			return toAppError(err)
		}
	}
	r.log.Error().Err(err).Str("op", op).Int("retries", r.retries).Msg("transaction retries exhausted")
	return apperror.ErrLockTimeout(err)
}

func (r *txRunner) once(ctx context.Context, fn func(tx pgx.Tx) error) error {
	dbTx, err := r.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := fn(dbTx); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// toAppError passes typed errors through and hides the rest behind SYS_001.
func toAppError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, ports.ErrDuplicateReference) {
		return apperror.ErrConflict("reference")
	}
	return apperror.ErrDatabaseError(err)
}
