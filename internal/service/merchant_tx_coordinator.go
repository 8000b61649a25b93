package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/pkg/apperror"
	"cutcoin-wallet/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InitiateMerchantTx opens a pending merchant transaction. Reference is
// generated when empty.
type InitiateMerchantTx struct {
	Reference       string
	StudentID       uuid.UUID
	StudentWalletID uuid.UUID
	MerchantID      uuid.UUID
	Type            domain.MerchantTxType
	Amount          int64
	Fee             int64
}

// ConfirmedMerchantTx is the outcome of a merchant confirmation.
type ConfirmedMerchantTx struct {
	Transaction    *domain.MerchantTransaction
	Ledger         *domain.LedgerTransaction
	StudentWallet  uuid.UUID
	MerchantWallet uuid.UUID
}

// MerchantTxCoordinator drives pending -> completed | cancelled | rejected.
// Every transition is a single predicate-guarded update on status=pending,
// so a replay or a racing second caller gets NotFoundOrAlreadyProcessed.
// All methods run on the caller's transaction.
type MerchantTxCoordinator struct {
	merchantTxs ports.MerchantTxRepository
	wallets     ports.WalletRepository
	balances    *BalanceStore
	recorder    *LedgerRecorder
	refs        *ReferenceGenerator
	now         func() time.Time
}

func NewMerchantTxCoordinator(
	merchantTxs ports.MerchantTxRepository,
	wallets ports.WalletRepository,
	balances *BalanceStore,
	recorder *LedgerRecorder,
	refs *ReferenceGenerator,
) *MerchantTxCoordinator {
	return &MerchantTxCoordinator{
		merchantTxs: merchantTxs,
		wallets:     wallets,
		balances:    balances,
		recorder:    recorder,
		refs:        refs,
		now:         time.Now,
	}
}

// Initiate creates the pending row. A withdrawal holds amount+fee from the
// student right away; a deposit moves nothing until the merchant confirms.
func (c *MerchantTxCoordinator) Initiate(ctx context.Context, tx pgx.Tx, p InitiateMerchantTx) (*domain.MerchantTransaction, error) {
	if p.Amount <= 0 || p.Fee < 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if _, err := money.Add(p.Amount, p.Fee); err != nil {
		return nil, apperror.ErrInvalidAmount()
	}
	ref := p.Reference
	if ref == "" {
		prefix := RefDeposit
		if p.Type == domain.MerchantTxWithdrawal {
			prefix = RefWithdrawal
		}
		ref = c.refs.New(prefix)
	}

	m := &domain.MerchantTransaction{
		ID:          uuid.New(),
		Reference:   ref,
		SubjectID:   p.StudentID,
		MerchantID:  p.MerchantID,
		Type:        p.Type,
		Amount:      p.Amount,
		Fee:         p.Fee,
		Status:      domain.MerchantTxPending,
		InitiatedBy: domain.ActorStudent,
		CreatedAt:   c.now().UTC(),
	}

	if hold := m.Hold(); hold > 0 {
		if _, err := c.balances.LockOrdered(ctx, tx, p.StudentWalletID); err != nil {
			return nil, err
		}
		if err := c.balances.Debit(ctx, tx, p.StudentWalletID, hold); err != nil {
			return nil, err
		}
	}

	if err := c.merchantTxs.Create(ctx, tx, m); err != nil {
		if errors.Is(err, ports.ErrDuplicateReference) {
			return nil, apperror.ErrConflict("merchant transaction reference")
		}
		return nil, fmt.Errorf("create merchant transaction: %w", err)
	}
	return m, nil
}

// Confirm completes a pending transaction of the given type for merchantID
// and writes its single ledger row under the same reference.
func (c *MerchantTxCoordinator) Confirm(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, reference string, typ domain.MerchantTxType) (*ConfirmedMerchantTx, error) {
	m, err := c.resolve(ctx, tx, ports.ResolveParams{
		Reference:  reference,
		MerchantID: &merchantID,
		Type:       &typ,
		To:         domain.MerchantTxCompleted,
		By:         domain.ActorMerchant,
	})
	if err != nil {
		return nil, err
	}

	student, err := c.walletOf(ctx, m.SubjectID, domain.OwnerStudent)
	if err != nil {
		return nil, err
	}
	merchant, err := c.walletOf(ctx, m.MerchantID, domain.OwnerMerchant)
	if err != nil {
		return nil, err
	}
	if _, err := c.balances.LockOrdered(ctx, tx, student, merchant); err != nil {
		return nil, err
	}

	entry := LedgerEntry{
		Reference: m.Reference,
		Type:      m.Type.LedgerType(),
		Amount:    m.Amount,
		Status:    domain.TransactionStatusCompleted,
	}
	switch m.Type {
	case domain.MerchantTxDeposit:
		// The merchant floats the cash it took from the student.
		if err := c.balances.Debit(ctx, tx, merchant, m.Amount); err != nil {
			return nil, err
		}
		if err := c.balances.Credit(ctx, tx, student, m.Amount); err != nil {
			return nil, err
		}
		entry.SenderID, entry.ReceiverID = &merchant, &student
		entry.Description = "cash deposit via merchant"
	case domain.MerchantTxWithdrawal:
		// The student side was debited at initiation.
		if err := c.balances.Credit(ctx, tx, merchant, m.Amount); err != nil {
			return nil, err
		}
		entry.SenderID, entry.ReceiverID = &student, &merchant
		entry.Fee = m.Fee
		entry.Description = "cash withdrawal via merchant"
	default:
		return nil, apperror.InternalError(fmt.Errorf("unknown merchant transaction type %q", m.Type))
	}

	row, err := c.recorder.Record(ctx, tx, entry)
	if err != nil {
		return nil, err
	}
	return &ConfirmedMerchantTx{Transaction: m, Ledger: row, StudentWallet: student, MerchantWallet: merchant}, nil
}

// Cancel is the initiating student's way out.
func (c *MerchantTxCoordinator) Cancel(ctx context.Context, tx pgx.Tx, studentID uuid.UUID, reference string) (*domain.MerchantTransaction, error) {
	return c.close(ctx, tx, ports.ResolveParams{
		Reference: reference,
		SubjectID: &studentID,
		To:        domain.MerchantTxCancelled,
		By:        domain.ActorStudent,
	})
}

// Reject is the merchant declining a pending transaction.
func (c *MerchantTxCoordinator) Reject(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, reference string) (*domain.MerchantTransaction, error) {
	return c.close(ctx, tx, ports.ResolveParams{
		Reference:  reference,
		MerchantID: &merchantID,
		To:         domain.MerchantTxRejected,
		By:         domain.ActorMerchant,
	})
}

// Expire cancels a stale pending transaction on behalf of the system.
func (c *MerchantTxCoordinator) Expire(ctx context.Context, tx pgx.Tx, reference string) (*domain.MerchantTransaction, error) {
	return c.close(ctx, tx, ports.ResolveParams{
		Reference: reference,
		To:        domain.MerchantTxCancelled,
		By:        domain.ActorSystem,
	})
}

// close resolves without completing and releases a withdrawal hold. No
// ledger row is written.
func (c *MerchantTxCoordinator) close(ctx context.Context, tx pgx.Tx, p ports.ResolveParams) (*domain.MerchantTransaction, error) {
	m, err := c.resolve(ctx, tx, p)
	if err != nil {
		return nil, err
	}
	if hold := m.Hold(); hold > 0 {
		student, err := c.walletOf(ctx, m.SubjectID, domain.OwnerStudent)
		if err != nil {
			return nil, err
		}
		if _, err := c.balances.LockOrdered(ctx, tx, student); err != nil {
			return nil, err
		}
		if err := c.balances.Credit(ctx, tx, student, hold); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (c *MerchantTxCoordinator) resolve(ctx context.Context, tx pgx.Tx, p ports.ResolveParams) (*domain.MerchantTransaction, error) {
	p.At = c.now().UTC()
	m, err := c.merchantTxs.Resolve(ctx, tx, p)
	if err != nil {
		return nil, fmt.Errorf("resolve merchant transaction: %w", err)
	}
	if m == nil {
		return nil, apperror.ErrNotFoundOrAlreadyProcessed()
	}
	return m, nil
}

func (c *MerchantTxCoordinator) walletOf(ctx context.Context, ownerID uuid.UUID, kind domain.OwnerType) (uuid.UUID, error) {
	w, err := c.wallets.GetByOwner(ctx, ownerID, kind)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load %s wallet: %w", kind, err)
	}
	if w == nil {
		return uuid.Nil, apperror.ErrNotFound(string(kind) + " wallet")
	}
	return w.ID, nil
}
