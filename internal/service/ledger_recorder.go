package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerEntry is the input to LedgerRecorder.Record.
type LedgerEntry struct {
	Reference   string
	Type        domain.TransactionType
	SenderID    *uuid.UUID
	ReceiverID  *uuid.UUID
	Amount      int64
	Fee         int64
	Status      domain.TransactionStatus
	Description string
}

// LedgerRecorder appends ledger rows. Rows are never deleted and only a
// pending row may change status.
type LedgerRecorder struct {
	ledger ports.LedgerRepository
	now    func() time.Time
}

func NewLedgerRecorder(ledger ports.LedgerRepository) *LedgerRecorder {
	return &LedgerRecorder{ledger: ledger, now: time.Now}
}

func (r *LedgerRecorder) Record(ctx context.Context, tx pgx.Tx, e LedgerEntry) (*domain.LedgerTransaction, error) {
	if e.Amount <= 0 || e.Fee < 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if e.Status == "" {
		e.Status = domain.TransactionStatusCompleted
	}
	row := &domain.LedgerTransaction{
		ID:          uuid.New(),
		Reference:   e.Reference,
		SenderID:    e.SenderID,
		ReceiverID:  e.ReceiverID,
		Amount:      e.Amount,
		Fee:         e.Fee,
		Type:        e.Type,
		Status:      e.Status,
		Description: e.Description,
		CreatedAt:   r.now().UTC(),
	}
	if err := r.ledger.Create(ctx, tx, row); err != nil {
		if errors.Is(err, ports.ErrDuplicateReference) {
			return nil, apperror.ErrConflict("transaction reference")
		}
		return nil, fmt.Errorf("record ledger row: %w", err)
	}
	return row, nil
}

// MarkStatus moves a pending row. A completed row is never altered.
func (r *LedgerRecorder) MarkStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.TransactionStatus) error {
	if !domain.CanTransition(from, to) {
		return apperror.ErrNotFoundOrAlreadyProcessed()
	}
	ok, err := r.ledger.UpdateStatus(ctx, tx, id, from, to)
	if err != nil {
		return fmt.Errorf("update ledger status: %w", err)
	}
	if !ok {
		return apperror.ErrNotFoundOrAlreadyProcessed()
	}
	return nil
}
