package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// MerchantTxRepo implements ports.MerchantTxRepository.
type MerchantTxRepo struct{ s *Store }

func NewMerchantTxRepo(s *Store) *MerchantTxRepo { return &MerchantTxRepo{s: s} }

func (r *MerchantTxRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.MerchantTransaction) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	return t.write(func() (func(), error) {
		if _, exists := r.s.merchantTxs[m.Reference]; exists {
			return nil, fmt.Errorf("insert merchant transaction: %w", ports.ErrDuplicateReference)
		}
		cp := *m
		r.s.merchantTxs[m.Reference] = &cp
		return func() { delete(r.s.merchantTxs, m.Reference) }, nil
	})
}

func (r *MerchantTxRepo) GetByReference(ctx context.Context, reference string) (*domain.MerchantTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyMerchantTx(r.s.merchantTxs[reference]), nil
}

func (r *MerchantTxRepo) Resolve(ctx context.Context, tx pgx.Tx, p ports.ResolveParams) (*domain.MerchantTransaction, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	var out *domain.MerchantTransaction
	err = t.write(func() (func(), error) {
		m, ok := r.s.merchantTxs[p.Reference]
		if !ok || !m.IsPending() {
			return nil, nil
		}
		if (p.SubjectID != nil && m.SubjectID != *p.SubjectID) ||
			(p.MerchantID != nil && m.MerchantID != *p.MerchantID) ||
			(p.Type != nil && m.Type != *p.Type) {
			return nil, nil
		}
		prev := *m
		by, at := p.By, p.At
		m.Status = p.To
		m.ResolvedBy = &by
		if p.To == domain.MerchantTxCompleted {
			m.CompletedAt = &at
		} else {
			m.CancelledAt = &at
		}
		out = copyMerchantTx(m)
		return func() { *m = prev }, nil
	})
	return out, err
}

func (r *MerchantTxRepo) ListPending(ctx context.Context, f ports.PendingFilter) ([]domain.MerchantTransaction, error) {
	return r.list(func(m *domain.MerchantTransaction) bool {
		return m.IsPending() &&
			(f.SubjectID == nil || m.SubjectID == *f.SubjectID) &&
			(f.MerchantID == nil || m.MerchantID == *f.MerchantID)
	}, 0), nil
}

func (r *MerchantTxRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.MerchantTransaction, error) {
	return r.list(func(m *domain.MerchantTransaction) bool {
		return m.IsPending() && m.CreatedAt.Before(olderThan)
	}, limit), nil
}

// list returns matching rows oldest first; limit <= 0 means no limit.
func (r *MerchantTxRepo) list(match func(*domain.MerchantTransaction) bool, limit int) []domain.MerchantTransaction {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.MerchantTransaction
	for _, m := range r.s.merchantTxs {
		if match(m) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func copyMerchantTx(m *domain.MerchantTransaction) *domain.MerchantTransaction {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}
