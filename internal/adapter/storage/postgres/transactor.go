package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor. Each transaction caps how long a
// row lock may be waited for, so a stuck lock surfaces as SQLSTATE 55P03.
type Transactor struct {
	pool        Pool
	lockTimeout time.Duration
}

// NewTransactor creates a new Transactor wrapping the connection pool.
// lockTimeout <= 0 leaves the server default in place.
func NewTransactor(pool Pool, lockTimeout time.Duration) *Transactor {
	return &Transactor{pool: pool, lockTimeout: lockTimeout}
}

// Begin starts a new database transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, wrapErr("begin tx", err)
	}
	if t.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", t.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			tx.Rollback(ctx) //nolint:errcheck
			return nil, wrapErr("set lock timeout", err)
		}
	}
	return &classifiedTx{Tx: tx}, nil
}

// classifiedTx tags serialization failures reported at commit time the same
// way statement errors are tagged.
type classifiedTx struct {
	pgx.Tx
}

func (t *classifiedTx) Commit(ctx context.Context) error {
	if err := t.Tx.Commit(ctx); err != nil {
		return wrapErr("commit tx", err)
	}
	return nil
}
