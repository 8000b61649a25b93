package service

import (
	"context"
	"fmt"
	"testing"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/internal/core/ports/mocks"
	"cutcoin-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestLedgerRecorder_Record(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerRepository(ctrl)
	r := NewLedgerRecorder(ledger)
	tx := &mockTx{}
	from, to := uuid.New(), uuid.New()

	ledger.EXPECT().Create(gomock.Any(), tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, row *domain.LedgerTransaction) error {
			assert.Equal(t, "TRF-1", row.Reference)
			assert.Equal(t, domain.TransactionStatusCompleted, row.Status)
			assert.NotEqual(t, uuid.Nil, row.ID)
			assert.False(t, row.CreatedAt.IsZero())
			return nil
		})

	row, err := r.Record(context.Background(), tx, LedgerEntry{
		Reference:  "TRF-1",
		Type:       domain.TransactionTypeTransfer,
		SenderID:   &from,
		ReceiverID: &to,
		Amount:     cut(10),
	})
	require.NoError(t, err)
	assert.Equal(t, &from, row.SenderID)
}

func TestLedgerRecorder_RejectsBadAmounts(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := NewLedgerRecorder(mocks.NewMockLedgerRepository(ctrl))

	_, err := r.Record(context.Background(), &mockTx{}, LedgerEntry{Reference: "X", Amount: 0})
	assert.ErrorIs(t, err, apperror.ErrInvalidAmount())
	_, err = r.Record(context.Background(), &mockTx{}, LedgerEntry{Reference: "X", Amount: 1, Fee: -1})
	assert.ErrorIs(t, err, apperror.ErrInvalidAmount())
}

func TestLedgerRecorder_DuplicateReference(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerRepository(ctrl)
	r := NewLedgerRecorder(ledger)

	ledger.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("insert ledger row: %w", ports.ErrDuplicateReference))

	_, err := r.Record(context.Background(), &mockTx{}, LedgerEntry{Reference: "TRF-1", Amount: 1})
	assert.ErrorIs(t, err, apperror.ErrConflict("transaction reference"))
}

func TestLedgerRecorder_MarkStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerRepository(ctrl)
	r := NewLedgerRecorder(ledger)
	tx := &mockTx{}
	id := uuid.New()

	// Completed rows never move; the repository is not even asked.
	err := r.MarkStatus(context.Background(), tx, id, domain.TransactionStatusCompleted, domain.TransactionStatusCancelled)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrAlreadyProcessed())

	ledger.EXPECT().UpdateStatus(gomock.Any(), tx, id, domain.TransactionStatusPending, domain.TransactionStatusFailed).Return(true, nil)
	assert.NoError(t, r.MarkStatus(context.Background(), tx, id, domain.TransactionStatusPending, domain.TransactionStatusFailed))

	ledger.EXPECT().UpdateStatus(gomock.Any(), tx, id, domain.TransactionStatusPending, domain.TransactionStatusCompleted).Return(false, nil)
	err = r.MarkStatus(context.Background(), tx, id, domain.TransactionStatusPending, domain.TransactionStatusCompleted)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrAlreadyProcessed())
}
