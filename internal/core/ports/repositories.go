package ports

import (
	"context"
	"errors"
	"time"

	"cutcoin-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrDuplicateReference is returned by Create methods when the reference
// column's unique constraint rejects the row.
var ErrDuplicateReference = errors.New("duplicate reference")

// ErrTransient marks a storage failure that is safe to retry as a whole
// unit (serialization failure, deadlock, lock timeout).
var ErrTransient = errors.New("transient storage conflict")

// Read methods return (nil, nil) when the row does not exist. Methods
// accepting pgx.Tx run inside a caller-owned transaction.

// MerchantRepository defines persistence operations for merchants.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	GetByCode(ctx context.Context, code string) (*domain.Merchant, error)
}

// WalletRepository defines persistence operations for wallets.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error)
	GetByAddress(ctx context.Context, address string) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	Credit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error
	// Debit subtracts amount only when the balance covers it. It reports
	// false when no row was changed.
	Debit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (bool, error)
}

// LedgerRepository defines persistence operations for ledger transactions.
type LedgerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, t *domain.LedgerTransaction) error
	GetByReference(ctx context.Context, reference string) (*domain.LedgerTransaction, error)
	// UpdateStatus moves a row only if it is still in status from.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.TransactionStatus) (bool, error)
	List(ctx context.Context, params LedgerListParams) ([]domain.LedgerTransaction, int64, error)

	// Guard statistics over completed rows sent by a wallet.
	SumSentSince(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, typ domain.TransactionType, since time.Time) (int64, error)
	AvgSent(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, typ domain.TransactionType) (int64, error)
	CountSentToSince(ctx context.Context, tx pgx.Tx, walletID, receiverID uuid.UUID, typ domain.TransactionType, since time.Time) (int64, error)
}

// LedgerListParams holds filter + pagination for a wallet's history.
type LedgerListParams struct {
	WalletID uuid.UUID
	Type     *domain.TransactionType
	Status   *domain.TransactionStatus
	Page     int
	PageSize int
}

// MerchantTxRepository defines persistence for merchant transactions.
type MerchantTxRepository interface {
	Create(ctx context.Context, tx pgx.Tx, m *domain.MerchantTransaction) error
	GetByReference(ctx context.Context, reference string) (*domain.MerchantTransaction, error)
	// Resolve moves a pending row matching every set filter to a terminal
	// status in one statement. It returns (nil, nil) if nothing matched.
	Resolve(ctx context.Context, tx pgx.Tx, params ResolveParams) (*domain.MerchantTransaction, error)
	ListPending(ctx context.Context, filter PendingFilter) ([]domain.MerchantTransaction, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.MerchantTransaction, error)
}

// ResolveParams identifies the pending row to move and how to move it.
type ResolveParams struct {
	Reference  string
	SubjectID  *uuid.UUID
	MerchantID *uuid.UUID
	Type       *domain.MerchantTxType
	To         domain.MerchantTxStatus
	By         domain.Actor
	At         time.Time
}

// PendingFilter selects pending merchant transactions for one party.
type PendingFilter struct {
	SubjectID  *uuid.UUID
	MerchantID *uuid.UUID
}

// PaymentRepository defines persistence for gateway top-ups.
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)
	// Settle moves a pending payment to status; false if it was not pending.
	Settle(ctx context.Context, tx pgx.Tx, reference string, status domain.PaymentStatus) (bool, error)
}

// OTPRepository defines persistence for one-time codes.
type OTPRepository interface {
	Create(ctx context.Context, code *domain.OneTimeCode) error
	// ListActiveForUpdate locks every unused, unexpired code of subject
	// for purpose.
	ListActiveForUpdate(ctx context.Context, tx pgx.Tx, subject domain.Subject, purpose domain.OTPPurpose, now time.Time) ([]domain.OneTimeCode, error)
	// MarkUsed flips used only when it is still false.
	MarkUsed(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error)
}

// AuditRepository persists audit log rows.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// SettingsRepository is the key/value store behind ConfigProvider.
type SettingsRepository interface {
	ConfigProvider
	Set(ctx context.Context, key, value string) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
