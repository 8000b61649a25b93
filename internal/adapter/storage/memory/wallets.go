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

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct{ s *Store }

func NewWalletRepo(s *Store) *WalletRepo { return &WalletRepo{s: s} }

func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.wallets {
		if existing.Address == w.Address ||
			(existing.OwnerID == w.OwnerID && existing.OwnerType == w.OwnerType) {
			return fmt.Errorf("insert wallet: %w", ports.ErrDuplicateReference)
		}
	}
	cp := *w
	r.s.wallets[w.ID] = &cp
	return nil
}

func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyWallet(r.s.wallets[id]), nil
}

func (r *WalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, w := range r.s.wallets {
		if w.OwnerID == ownerID && w.OwnerType == ownerType {
			return copyWallet(w), nil
		}
	}
	return nil, nil
}

func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, w := range r.s.wallets {
		if w.Address == address {
			return copyWallet(w), nil
		}
	}
	return nil, nil
}

// GetByIDForUpdate needs no row lock: the transaction already excludes
// every other writer.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	if _, err := asTx(tx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *WalletRepo) Credit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	return t.write(func() (func(), error) {
		w, ok := r.s.wallets[id]
		if !ok {
			return nil, fmt.Errorf("credit wallet: wallet not found: %s", id)
		}
		prev := *w
		w.Balance += amount
		w.UpdatedAt = time.Now().UTC()
		return func() { *w = prev }, nil
	})
}

func (r *WalletRepo) Debit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (bool, error) {
	t, err := asTx(tx)
	if err != nil {
		return false, err
	}
	changed := false
	err = t.write(func() (func(), error) {
		w, ok := r.s.wallets[id]
		if !ok || w.Balance < amount {
			return nil, nil
		}
		prev := *w
		w.Balance -= amount
		w.UpdatedAt = time.Now().UTC()
		changed = true
		return func() { *w = prev }, nil
	})
	return changed, err
}

func copyWallet(w *domain.Wallet) *domain.Wallet {
	if w == nil {
		return nil
	}
	cp := *w
	return &cp
}

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct{ s *Store }

func NewMerchantRepo(s *Store) *MerchantRepo { return &MerchantRepo{s: s} }

func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.merchants {
		if existing.Code == m.Code {
			return fmt.Errorf("insert merchant: %w", ports.ErrDuplicateReference)
		}
	}
	cp := *m
	r.s.merchants[m.ID] = &cp
	return nil
}

func (r *MerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.merchants[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *MerchantRepo) GetByCode(ctx context.Context, code string) (*domain.Merchant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.merchants {
		if m.Code == code {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}
