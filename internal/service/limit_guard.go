package service

import (
	"context"
	"fmt"
	"time"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/pkg/apperror"
	"cutcoin-wallet/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Guard defaults.
const (
	DefaultDailyTransferLimit = 5_000_000 // 50,000.00
	DefaultRiskAmountMin      = 500_000   // 5,000.00
	DefaultRiskVelocityMax    = 5
)

var defaultRiskMultiplier = decimal.NewFromInt(3)

// GuardCheck describes the transfer being confirmed.
type GuardCheck struct {
	UserID           uuid.UUID
	SenderWalletID   uuid.UUID
	ReceiverWalletID uuid.UUID
	Amount           int64
	Reference        string
}

// LimitGuard enforces the daily cap and raises advisory risk signals. It
// runs inside the transfer's transaction after the sender row is locked.
type LimitGuard struct {
	ledger   ports.LedgerRepository
	settings *Settings
	now      func() time.Time
}

func NewLimitGuard(ledger ports.LedgerRepository, settings *Settings) *LimitGuard {
	return &LimitGuard{ledger: ledger, settings: settings, now: time.Now}
}

// Check fails with DailyLimitExceeded when the cap would be crossed.
// Otherwise it returns zero or more signals, none of which block.
func (g *LimitGuard) Check(ctx context.Context, tx pgx.Tx, c GuardCheck) ([]domain.RiskSignal, error) {
	now := g.now().UTC()
	typ := domain.TransactionTypeTransfer

	limit := g.settings.Amount(ctx, SettingDailyTransferLimit, DefaultDailyTransferLimit)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sentToday, err := g.ledger.SumSentSince(ctx, tx, c.SenderWalletID, typ, dayStart)
	if err != nil {
		return nil, fmt.Errorf("sum daily transfers: %w", err)
	}
	if sentToday+c.Amount > limit {
		return nil, apperror.ErrDailyLimitExceeded()
	}

	var signals []domain.RiskSignal

	avg, err := g.ledger.AvgSent(ctx, tx, c.SenderWalletID, typ)
	if err != nil {
		return nil, fmt.Errorf("average transfer: %w", err)
	}
	mult := g.settings.Decimal(ctx, SettingRiskAmountMultiplier, defaultRiskMultiplier)
	minAmount := g.settings.Amount(ctx, SettingRiskAmountMin, DefaultRiskAmountMin)
	if avg > 0 && c.Amount > minAmount &&
		decimal.NewFromInt(c.Amount).GreaterThan(decimal.NewFromInt(avg).Mul(mult)) {
		signals = append(signals, domain.RiskSignal{
			Kind:      domain.RiskAmountAnomaly,
			UserID:    c.UserID,
			Reference: c.Reference,
			Amount:    c.Amount,
			Detail:    fmt.Sprintf("amount %s exceeds %s x average %s", money.Format(c.Amount), mult.String(), money.Format(avg)),
			RaisedAt:  now,
		})
	}

	maxVelocity := g.settings.Int(ctx, SettingRiskVelocityMax, DefaultRiskVelocityMax)
	recent, err := g.ledger.CountSentToSince(ctx, tx, c.SenderWalletID, c.ReceiverWalletID, typ, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("count recent transfers: %w", err)
	}
	if recent >= maxVelocity {
		signals = append(signals, domain.RiskSignal{
			Kind:      domain.RiskVelocityAnomaly,
			UserID:    c.UserID,
			Reference: c.Reference,
			Amount:    c.Amount,
			Detail:    fmt.Sprintf("%d transfers to the same recipient in 24h", recent),
			RaisedAt:  now,
		})
	}
	return signals, nil
}
