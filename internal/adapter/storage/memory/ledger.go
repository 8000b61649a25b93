package memory

import (
	"context"
	"fmt"
	"time"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct{ s *Store }

func NewLedgerRepo(s *Store) *LedgerRepo { return &LedgerRepo{s: s} }

func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.LedgerTransaction) error {
	mt, err := asTx(tx)
	if err != nil {
		return err
	}
	return mt.write(func() (func(), error) {
		for _, existing := range r.s.ledger {
			if existing.Reference == t.Reference {
				return nil, fmt.Errorf("insert ledger transaction: %w", ports.ErrDuplicateReference)
			}
		}
		cp := *t
		r.s.ledger[t.ID] = &cp
		r.s.ledgerOrder = append(r.s.ledgerOrder, t.ID)
		return func() {
			delete(r.s.ledger, t.ID)
			r.s.ledgerOrder = r.s.ledgerOrder[:len(r.s.ledgerOrder)-1]
		}, nil
	})
}

func (r *LedgerRepo) GetByReference(ctx context.Context, reference string) (*domain.LedgerTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.ledger {
		if t.Reference == reference {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *LedgerRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.TransactionStatus) (bool, error) {
	mt, err := asTx(tx)
	if err != nil {
		return false, err
	}
	changed := false
	err = mt.write(func() (func(), error) {
		t, ok := r.s.ledger[id]
		if !ok || t.Status != from {
			return nil, nil
		}
		t.Status = to
		changed = true
		return func() { t.Status = from }, nil
	})
	return changed, err
}

// List pages newest first; insertion order breaks created_at ties.
func (r *LedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerTransaction, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []domain.LedgerTransaction
	for i := len(r.s.ledgerOrder) - 1; i >= 0; i-- {
		t := r.s.ledger[r.s.ledgerOrder[i]]
		if !t.Involves(params.WalletID) {
			continue
		}
		if params.Type != nil && t.Type != *params.Type {
			continue
		}
		if params.Status != nil && t.Status != *params.Status {
			continue
		}
		matched = append(matched, *t)
	}
	total := int64(len(matched))

	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return []domain.LedgerTransaction{}, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *LedgerRepo) SumSentSince(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, typ domain.TransactionType, since time.Time) (int64, error) {
	var sum int64
	err := r.eachSent(tx, walletID, typ, func(t *domain.LedgerTransaction) {
		if !t.CreatedAt.Before(since) {
			sum += t.Amount
		}
	})
	return sum, err
}

func (r *LedgerRepo) AvgSent(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, typ domain.TransactionType) (int64, error) {
	var sum, n int64
	err := r.eachSent(tx, walletID, typ, func(t *domain.LedgerTransaction) {
		sum += t.Amount
		n++
	})
	if err != nil || n == 0 {
		return 0, err
	}
	return sum / n, nil
}

func (r *LedgerRepo) CountSentToSince(ctx context.Context, tx pgx.Tx, walletID, receiverID uuid.UUID, typ domain.TransactionType, since time.Time) (int64, error) {
	var n int64
	err := r.eachSent(tx, walletID, typ, func(t *domain.LedgerTransaction) {
		if t.ReceiverID != nil && *t.ReceiverID == receiverID && !t.CreatedAt.Before(since) {
			n++
		}
	})
	return n, err
}

// eachSent visits completed rows of typ sent by walletID.
func (r *LedgerRepo) eachSent(tx pgx.Tx, walletID uuid.UUID, typ domain.TransactionType, fn func(*domain.LedgerTransaction)) error {
	if _, err := asTx(tx); err != nil {
		return err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.ledger {
		if t.SenderID != nil && *t.SenderID == walletID &&
			t.Type == typ && t.Status == domain.TransactionStatusCompleted {
			fn(t)
		}
	}
	return nil
}
