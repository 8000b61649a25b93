package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cutcoin-wallet/config"
	"cutcoin-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func newTestPublisher() (*Publisher, *fakeWriter, *fakeWriter, *fakeWriter) {
	l, r, n := &fakeWriter{}, &fakeWriter{}, &fakeWriter{}
	return &Publisher{ledger: l, risk: r, notifications: n}, l, r, n
}

func TestPublishLedger(t *testing.T) {
	p, ledger, _, _ := newTestPublisher()
	sender := uuid.New()
	tx := &domain.LedgerTransaction{
		Reference: "TRF-20260301120000-0123456789AB",
		SenderID:  &sender,
		Amount:    150000,
		Fee:       750,
		Type:      domain.TransactionTypeTransfer,
		Status:    domain.TransactionStatusCompleted,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.PublishLedger(context.Background(), tx))
	require.Len(t, ledger.msgs, 1)
	assert.Equal(t, tx.Reference, string(ledger.msgs[0].Key))

	var got map[string]any
	require.NoError(t, json.Unmarshal(ledger.msgs[0].Value, &got))
	assert.Equal(t, "transfer", got["type"])
	assert.Equal(t, sender.String(), got["sender_wallet_id"])
	assert.NotContains(t, got, "receiver_wallet_id")
	assert.Equal(t, float64(150000), got["amount"])
}

func TestPublishRiskAndNotify(t *testing.T) {
	p, _, risk, notes := newTestPublisher()
	user := uuid.New()

	require.NoError(t, p.PublishRisk(context.Background(), domain.RiskSignal{
		Kind: domain.RiskVelocityAnomaly, UserID: user, Reference: "TRF-1",
	}))
	require.NoError(t, p.Notify(context.Background(), domain.Notification{
		RecipientID: user, RecipientKind: domain.OwnerStudent, Kind: domain.NotifyOTPIssued,
	}))

	require.Len(t, risk.msgs, 1)
	assert.Equal(t, "TRF-1", string(risk.msgs[0].Key))
	require.Len(t, notes.msgs, 1)
	assert.Equal(t, user.String(), string(notes.msgs[0].Key))
}

func TestPublish_WriteError(t *testing.T) {
	p, ledger, _, _ := newTestPublisher()
	ledger.err = errors.New("broker down")

	err := p.PublishLedger(context.Background(), &domain.LedgerTransaction{Reference: "DEP-1"})
	assert.ErrorContains(t, err, "broker down")
}

func TestClose(t *testing.T) {
	p, l, r, n := newTestPublisher()
	require.NoError(t, p.Close())
	assert.True(t, l.closed && r.closed && n.closed)
}

func TestNewPublisher_Topics(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{
		Brokers:            []string{"localhost:9092"},
		LedgerTopic:        "cut.ledger",
		RiskTopic:          "cut.risk",
		NotificationsTopic: "cut.notifications",
	})
	assert.Equal(t, "cut.ledger", p.ledger.(*kafka.Writer).Topic)
	assert.Equal(t, "cut.risk", p.risk.(*kafka.Writer).Topic)
	assert.Equal(t, "cut.notifications", p.notifications.(*kafka.Writer).Topic)
}
