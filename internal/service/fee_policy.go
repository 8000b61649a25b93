package service

import (
	"context"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/pkg/money"

	"github.com/shopspring/decimal"
)

// FeeSchedule prices money movements. Fee is pure; the payer bears it and
// the recipient always receives the plain amount.
type FeeSchedule struct {
	TransferRate        decimal.Decimal
	TransferThreshold   int64
	WithdrawalRate      decimal.Decimal
	WithdrawalThreshold int64
}

// DefaultFeeSchedule: 0.5% on transfers above 1,000.00 and 1% on
// withdrawals above 2,000.00.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		TransferRate:        decimal.RequireFromString("0.005"),
		TransferThreshold:   100000,
		WithdrawalRate:      decimal.RequireFromString("0.01"),
		WithdrawalThreshold: 200000,
	}
}

// Fee returns the fee in minor units; the threshold itself is fee-free.
func (f FeeSchedule) Fee(typ domain.TransactionType, amount int64) int64 {
	switch typ {
	case domain.TransactionTypeTransfer:
		if amount > f.TransferThreshold {
			return money.ApplyRate(amount, f.TransferRate)
		}
	case domain.TransactionTypeWithdrawal:
		if amount > f.WithdrawalThreshold {
			return money.ApplyRate(amount, f.WithdrawalRate)
		}
	}
	return 0
}

// FeePolicy resolves the current schedule from settings.
type FeePolicy struct {
	settings *Settings
}

func NewFeePolicy(settings *Settings) *FeePolicy {
	return &FeePolicy{settings: settings}
}

func (p *FeePolicy) Schedule(ctx context.Context) FeeSchedule {
	def := DefaultFeeSchedule()
	return FeeSchedule{
		TransferRate:        p.settings.Decimal(ctx, SettingTransferFeeRate, def.TransferRate),
		TransferThreshold:   p.settings.Amount(ctx, SettingTransferFeeThreshold, def.TransferThreshold),
		WithdrawalRate:      p.settings.Decimal(ctx, SettingWithdrawalFeeRate, def.WithdrawalRate),
		WithdrawalThreshold: p.settings.Amount(ctx, SettingWithdrawalFeeThreshold, def.WithdrawalThreshold),
	}
}

func (p *FeePolicy) Fee(ctx context.Context, typ domain.TransactionType, amount int64) int64 {
	return p.Schedule(ctx).Fee(typ, amount)
}
