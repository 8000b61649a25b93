package logsink

import (
	"bytes"
	"context"
	"testing"

	"cutcoin-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_NotifyHidesOTP(t *testing.T) {
	var buf bytes.Buffer
	s := New(zerolog.New(&buf))

	require.NoError(t, s.Notify(context.Background(), domain.Notification{
		RecipientID: uuid.New(),
		Kind:        domain.NotifyOTPIssued,
		Message:     "Your code is 123456",
	}))
	assert.NotContains(t, buf.String(), "123456")
	assert.Contains(t, buf.String(), "otp.issued")

	buf.Reset()
	require.NoError(t, s.Notify(context.Background(), domain.Notification{
		RecipientID: uuid.New(),
		Kind:        domain.NotifyTransferReceived,
		Message:     "You received 10.00 CUT",
	}))
	assert.Contains(t, buf.String(), "You received 10.00 CUT")
}

func TestSink_Events(t *testing.T) {
	var buf bytes.Buffer
	s := New(zerolog.New(&buf))

	require.NoError(t, s.PublishLedger(context.Background(), &domain.LedgerTransaction{
		Reference: "DEP-1", Type: domain.TransactionTypeDeposit, Amount: 500,
	}))
	require.NoError(t, s.PublishRisk(context.Background(), domain.RiskSignal{
		Kind: domain.RiskAmountAnomaly, Reference: "TRF-1",
	}))
	assert.Contains(t, buf.String(), `"reference":"DEP-1"`)
	assert.Contains(t, buf.String(), `"kind":"AMOUNT_ANOMALY"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
