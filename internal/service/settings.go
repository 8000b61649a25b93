package service

import (
	"context"
	"strconv"

	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/pkg/money"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Keys of the runtime business settings table.
const (
	SettingTransferFeeRate        = "fee.transfer.rate"
	SettingTransferFeeThreshold   = "fee.transfer.threshold"
	SettingWithdrawalFeeRate      = "fee.withdrawal.rate"
	SettingWithdrawalFeeThreshold = "fee.withdrawal.threshold"
	SettingDailyTransferLimit     = "limit.transfer.daily"
	SettingRiskAmountMultiplier   = "risk.amount.multiplier"
	SettingRiskAmountMin          = "risk.amount.min"
	SettingRiskVelocityMax        = "risk.velocity.max"
	SettingExchangeRate           = "exchange.rate"
)

// Settings reads typed values from a ConfigProvider. A missing, unreadable
// or malformed value falls back to the supplied default.
type Settings struct {
	provider ports.ConfigProvider
	log      zerolog.Logger
}

func NewSettings(provider ports.ConfigProvider, log zerolog.Logger) *Settings {
	return &Settings{provider: provider, log: log}
}

func (s *Settings) raw(ctx context.Context, key string) (string, bool) {
	if s == nil || s.provider == nil {
		return "", false
	}
	v, ok, err := s.provider.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("settings read failed, using default")
		return "", false
	}
	return v, ok
}

// Decimal reads a rate or multiplier.
func (s *Settings) Decimal(ctx context.Context, key string, def decimal.Decimal) decimal.Decimal {
	v, ok := s.raw(ctx, key)
	if !ok {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		s.log.Warn().Str("key", key).Str("value", v).Msg("invalid decimal setting, using default")
		return def
	}
	return d
}

// Amount reads a CUT amount such as "50000.00" into minor units.
func (s *Settings) Amount(ctx context.Context, key string, def int64) int64 {
	v, ok := s.raw(ctx, key)
	if !ok {
		return def
	}
	minor, err := money.Parse(v)
	if err != nil || minor < 0 {
		s.log.Warn().Str("key", key).Str("value", v).Msg("invalid amount setting, using default")
		return def
	}
	return minor
}

// Int reads a plain count.
func (s *Settings) Int(ctx context.Context, key string, def int64) int64 {
	v, ok := s.raw(ctx, key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		s.log.Warn().Str("key", key).Str("value", v).Msg("invalid integer setting, using default")
		return def
	}
	return n
}
