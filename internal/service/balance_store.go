package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BalanceStore holds the only two balance mutators. Both run on the
// caller's transaction so the change commits with its ledger or merchant
// transaction write.
type BalanceStore struct {
	wallets ports.WalletRepository
}

func NewBalanceStore(wallets ports.WalletRepository) *BalanceStore {
	return &BalanceStore{wallets: wallets}
}

func (b *BalanceStore) Credit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return apperror.ErrInvalidAmount()
	}
	if err := b.wallets.Credit(ctx, tx, walletID, amount); err != nil {
		return fmt.Errorf("credit %s: %w", walletID, err)
	}
	return nil
}

func (b *BalanceStore) Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return apperror.ErrInvalidAmount()
	}
	ok, err := b.wallets.Debit(ctx, tx, walletID, amount)
	if err != nil {
		return fmt.Errorf("debit %s: %w", walletID, err)
	}
	if !ok {
		return apperror.ErrInsufficientFunds()
	}
	return nil
}

// LockOrdered locks the given wallets in ascending id order, the global
// lock order every multi-wallet unit follows.
func (b *BalanceStore) LockOrdered(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) (map[uuid.UUID]*domain.Wallet, error) {
	ordered := append([]uuid.UUID(nil), ids...)
	sort.Slice(ordered, func(i, j int) bool { return bytes.Compare(ordered[i][:], ordered[j][:]) < 0 })

	locked := make(map[uuid.UUID]*domain.Wallet, len(ordered))
	for _, id := range ordered {
		if _, done := locked[id]; done {
			continue
		}
		w, err := b.wallets.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lock wallet %s: %w", id, err)
		}
		if w == nil {
			return nil, apperror.ErrNotFound("wallet")
		}
		locked[id] = w
	}
	return locked, nil
}
