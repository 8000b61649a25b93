// Package kafka publishes ledger events, risk signals and notifications as
// JSON messages keyed by reference.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cutcoin-wallet/config"
	"cutcoin-wallet/internal/core/domain"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements ports.EventPublisher and ports.Notifier.
type Publisher struct {
	ledger        messageWriter
	risk          messageWriter
	notifications messageWriter
}

// NewPublisher opens one writer per topic.
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	return &Publisher{
		ledger:        newWriter(cfg.Brokers, cfg.LedgerTopic),
		risk:          newWriter(cfg.Brokers, cfg.RiskTopic),
		notifications: newWriter(cfg.Brokers, cfg.NotificationsTopic),
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// ledgerEvent is the wire form of a ledger row. Amounts stay in minor units.
type ledgerEvent struct {
	Reference  string `json:"reference"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	SenderID   string `json:"sender_wallet_id,omitempty"`
	ReceiverID string `json:"receiver_wallet_id,omitempty"`
	Amount     int64  `json:"amount"`
	Fee        int64  `json:"fee"`
	CreatedAt  string `json:"created_at"`
}

func (p *Publisher) PublishLedger(ctx context.Context, t *domain.LedgerTransaction) error {
	ev := ledgerEvent{
		Reference: t.Reference,
		Type:      string(t.Type),
		Status:    string(t.Status),
		Amount:    t.Amount,
		Fee:       t.Fee,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if t.SenderID != nil {
		ev.SenderID = t.SenderID.String()
	}
	if t.ReceiverID != nil {
		ev.ReceiverID = t.ReceiverID.String()
	}
	return write(ctx, p.ledger, t.Reference, ev)
}

func (p *Publisher) PublishRisk(ctx context.Context, s domain.RiskSignal) error {
	return write(ctx, p.risk, s.Reference, s)
}

func (p *Publisher) Notify(ctx context.Context, n domain.Notification) error {
	return write(ctx, p.notifications, n.RecipientID.String(), n)
}

// Close flushes and closes every writer.
func (p *Publisher) Close() error {
	var first error
	for _, w := range []messageWriter{p.ledger, p.risk, p.notifications} {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func write(ctx context.Context, w messageWriter, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}
