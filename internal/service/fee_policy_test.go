package service

import (
	"context"
	"testing"

	"cutcoin-wallet/internal/adapter/storage/memory"
	"cutcoin-wallet/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeSchedule_Defaults(t *testing.T) {
	f := DefaultFeeSchedule()
	tests := []struct {
		name   string
		typ    domain.TransactionType
		amount int64
		want   int64
	}{
		{"transfer below threshold", domain.TransactionTypeTransfer, cut(500), 0},
		{"transfer at threshold", domain.TransactionTypeTransfer, cut(1000), 0},
		{"transfer just above", domain.TransactionTypeTransfer, cut(1000) + 1, 500},
		{"transfer 1200", domain.TransactionTypeTransfer, cut(1200), cut(6)},
		{"transfer rounds half up", domain.TransactionTypeTransfer, 100100, 501},
		{"withdrawal at threshold", domain.TransactionTypeWithdrawal, cut(2000), 0},
		{"withdrawal 2500", domain.TransactionTypeWithdrawal, cut(2500), cut(25)},
		{"deposit is free", domain.TransactionTypeDeposit, cut(100000), 0},
		{"payment is free", domain.TransactionTypePayment, cut(100000), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Fee(tt.typ, tt.amount))
		})
	}
}

func TestFeePolicy_ReadsSettings(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewSettingsRepo(store)
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, SettingTransferFeeRate, "0.02"))
	require.NoError(t, repo.Set(ctx, SettingTransferFeeThreshold, "10.00"))
	require.NoError(t, repo.Set(ctx, SettingWithdrawalFeeRate, "not-a-rate"))

	p := NewFeePolicy(NewSettings(repo, zerolog.Nop()))

	assert.Equal(t, cut(2), p.Fee(ctx, domain.TransactionTypeTransfer, cut(100)))
	assert.Zero(t, p.Fee(ctx, domain.TransactionTypeTransfer, cut(10)))
	// A malformed rate falls back to the 1% default.
	assert.Equal(t, cut(25), p.Fee(ctx, domain.TransactionTypeWithdrawal, cut(2500)))
}
