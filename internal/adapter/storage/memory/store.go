// Package memory is an in-process storage driver. Transactions are
// serialized and keep an undo journal, so a rolled-back unit leaves no
// trace. Reads outside a transaction may observe a running transaction's
// writes.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cutcoin-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errForeignTx = errors.New("memory: transaction was not started by this store")

// Store holds every table of the wallet core.
type Store struct {
	sem chan struct{} // one transaction at a time
	mu  sync.RWMutex

	wallets     map[uuid.UUID]*domain.Wallet
	merchants   map[uuid.UUID]*domain.Merchant
	ledger      map[uuid.UUID]*domain.LedgerTransaction
	ledgerOrder []uuid.UUID
	merchantTxs map[string]*domain.MerchantTransaction
	payments    map[string]*domain.Payment
	otps        map[uuid.UUID]*domain.OneTimeCode
	audit       []domain.AuditLog
	settings    map[string]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sem:         make(chan struct{}, 1),
		wallets:     make(map[uuid.UUID]*domain.Wallet),
		merchants:   make(map[uuid.UUID]*domain.Merchant),
		ledger:      make(map[uuid.UUID]*domain.LedgerTransaction),
		merchantTxs: make(map[string]*domain.MerchantTransaction),
		payments:    make(map[string]*domain.Payment),
		otps:        make(map[uuid.UUID]*domain.OneTimeCode),
		settings:    make(map[string]string),
	}
}

// Begin implements ports.DBTransactor. It waits for the running transaction
// to finish or ctx to end.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	select {
	case s.sem <- struct{}{}:
		return &memTx{store: s}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("memory: begin: %w", ctx.Err())
	}
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// memTx satisfies pgx.Tx for the repositories in this package. Only Commit
// and Rollback are meaningful; the embedded nil Tx panics if anything else
// is called.
type memTx struct {
	pgx.Tx
	store *Store
	undo  []func()
	done  bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.finish()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.finish()
	return nil
}

func (t *memTx) finish() {
	t.done = true
	t.undo = nil
	<-t.store.sem
}

// write runs fn under the store lock and records its inverse.
func (t *memTx) write(fn func() (undo func(), err error)) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	undo, err := fn()
	if err != nil {
		return err
	}
	if undo != nil {
		t.undo = append(t.undo, undo)
	}
	return nil
}

func asTx(tx pgx.Tx) (*memTx, error) {
	t, ok := tx.(*memTx)
	if !ok || t.done {
		return nil, errForeignTx
	}
	return t, nil
}
