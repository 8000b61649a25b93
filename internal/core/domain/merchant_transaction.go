package domain

import (
	"time"

	"github.com/google/uuid"
)

// MerchantTxType is the kind of merchant-mediated cash movement.
type MerchantTxType string

const (
	MerchantTxDeposit    MerchantTxType = "deposit"
	MerchantTxWithdrawal MerchantTxType = "withdrawal"
)

// LedgerType maps the merchant transaction kind to its ledger row type.
func (t MerchantTxType) LedgerType() TransactionType {
	if t == MerchantTxWithdrawal {
		return TransactionTypeWithdrawal
	}
	return TransactionTypeDeposit
}

// MerchantTxStatus is the single state of a merchant transaction.
// pending is the only non-terminal state.
type MerchantTxStatus string

const (
	MerchantTxPending   MerchantTxStatus = "pending"
	MerchantTxCompleted MerchantTxStatus = "completed"
	MerchantTxCancelled MerchantTxStatus = "cancelled"
	MerchantTxRejected  MerchantTxStatus = "rejected"
)

// Actor identifies who moved a merchant transaction.
type Actor string

const (
	ActorStudent  Actor = "student"
	ActorMerchant Actor = "merchant"
	ActorSystem   Actor = "system"
)

// MerchantTransaction is a two-party cash deposit or withdrawal awaiting the
// merchant's confirmation.
type MerchantTransaction struct {
	ID          uuid.UUID        `json:"id"`
	Reference   string           `json:"reference"`
	SubjectID   uuid.UUID        `json:"subject_id"`
	MerchantID  uuid.UUID        `json:"merchant_id"`
	Type        MerchantTxType   `json:"type"`
	Amount      int64            `json:"amount"`
	Fee         int64            `json:"fee"`
	Status      MerchantTxStatus `json:"status"`
	InitiatedBy Actor            `json:"initiated_by"`
	ResolvedBy  *Actor           `json:"resolved_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	CancelledAt *time.Time       `json:"cancelled_at,omitempty"`
}

// IsPending returns true while the transaction still awaits a decision.
func (m *MerchantTransaction) IsPending() bool {
	return m.Status == MerchantTxPending
}

// StudentConfirmed is true for every transaction a student started.
func (m *MerchantTransaction) StudentConfirmed() bool {
	return m.InitiatedBy == ActorStudent
}

// MerchantConfirmed is true once the merchant has completed the transaction.
func (m *MerchantTransaction) MerchantConfirmed() bool {
	return m.Status == MerchantTxCompleted
}

// Hold is the amount reserved from the student on initiation: amount plus
// fee for withdrawals, nothing for deposits.
func (m *MerchantTransaction) Hold() int64 {
	if m.Type == MerchantTxWithdrawal {
		return m.Amount + m.Fee
	}
	return 0
}
