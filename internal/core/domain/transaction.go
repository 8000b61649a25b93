package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypePayment    TransactionType = "payment"
)

// TransactionStatus represents the lifecycle state of a ledger row.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// LedgerTransaction is an append-only record of money movement. SenderID and
// ReceiverID are wallet ids; either is nil for value entering or leaving the
// system. Only Status may change once written.
type LedgerTransaction struct {
	ID          uuid.UUID         `json:"id"`
	Reference   string            `json:"reference"`
	SenderID    *uuid.UUID        `json:"sender_id,omitempty"`
	ReceiverID  *uuid.UUID        `json:"receiver_id,omitempty"`
	Amount      int64             `json:"amount"`
	Fee         int64             `json:"fee"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// IsTerminal returns true if the row is in a final state.
func (t *LedgerTransaction) IsTerminal() bool {
	return t.Status != TransactionStatusPending
}

// CanTransition reports whether a ledger row may move from one status to
// another. Only pending rows move, and never back to pending.
func CanTransition(from, to TransactionStatus) bool {
	if from != TransactionStatusPending {
		return false
	}
	switch to {
	case TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled:
		return true
	}
	return false
}

// Involves reports whether walletID is the sender or receiver.
func (t *LedgerTransaction) Involves(walletID uuid.UUID) bool {
	return (t.SenderID != nil && *t.SenderID == walletID) ||
		(t.ReceiverID != nil && *t.ReceiverID == walletID)
}
