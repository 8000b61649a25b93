// Package logsink is the event and notification backend used when Kafka is
// disabled: every event becomes a structured log line.
package logsink

import (
	"context"

	"cutcoin-wallet/internal/core/domain"

	"github.com/rs/zerolog"
)

// Sink implements ports.EventPublisher and ports.Notifier.
type Sink struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Sink {
	return &Sink{log: log}
}

func (s *Sink) PublishLedger(ctx context.Context, t *domain.LedgerTransaction) error {
	s.log.Info().
		Str("reference", t.Reference).
		Str("type", string(t.Type)).
		Str("status", string(t.Status)).
		Int64("amount", t.Amount).
		Int64("fee", t.Fee).
		Msg("ledger event")
	return nil
}

func (s *Sink) PublishRisk(ctx context.Context, sig domain.RiskSignal) error {
	s.log.Warn().
		Str("kind", string(sig.Kind)).
		Str("user_id", sig.UserID.String()).
		Str("reference", sig.Reference).
		Int64("amount", sig.Amount).
		Str("detail", sig.Detail).
		Msg("risk signal")
	return nil
}

// Notify logs the notification. The message body is dropped for OTP
// notifications so codes never reach the log.
func (s *Sink) Notify(ctx context.Context, n domain.Notification) error {
	ev := s.log.Info().
		Str("recipient_id", n.RecipientID.String()).
		Str("recipient_kind", string(n.RecipientKind)).
		Str("kind", string(n.Kind))
	if n.Kind != domain.NotifyOTPIssued {
		ev = ev.Str("message", n.Message)
	}
	ev.Msg("notification")
	return nil
}
