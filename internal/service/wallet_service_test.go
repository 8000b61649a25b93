package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== Transfer ====================

func TestWalletService_ScenarioA_TransferWithFee(t *testing.T) {
	h := newHarness(t)
	sender, senderW := h.student(t, cut(5000))
	_, recipientW := h.student(t, cut(100))

	q, err := h.svc.InitiateTransfer(context.Background(), ports.TransferRequest{
		SenderID:         sender,
		RecipientAddress: recipientW.Address,
		Amount:           cut(1200),
		Description:      "rent share",
	})
	require.NoError(t, err)
	assert.Equal(t, cut(6), q.Fee)
	assert.Equal(t, cut(1206), q.Total())
	assert.Regexp(t, `^TRF-\d{14}-[0-9A-F]{12}$`, q.Reference)

	// Quoting moves nothing.
	assert.Equal(t, cut(5000), h.balance(t, senderW.ID))

	row, err := h.svc.ConfirmTransfer(context.Background(), ports.ConfirmRequest{
		UserID:    sender,
		Reference: q.Reference,
		Code:      h.code(t, q.Reference),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeTransfer, row.Type)
	assert.Equal(t, domain.TransactionStatusCompleted, row.Status)
	assert.Equal(t, q.Reference, row.Reference)
	assert.Equal(t, "rent share", row.Description)

	assert.Equal(t, cut(3794), h.balance(t, senderW.ID))
	assert.Equal(t, cut(1300), h.balance(t, recipientW.ID))

	h.svc.Drain()
	require.Len(t, h.events.ledger, 1)
	assert.Equal(t, q.Reference, h.events.ledger[0].Reference)
	_, ok := h.notes.find(domain.NotifyTransferReceived, q.Reference)
	assert.True(t, ok)
	actions := auditActions(h)
	assert.Contains(t, actions, domain.AuditActionTransfer)
}

func TestWalletService_TransferUnderThresholdIsFree(t *testing.T) {
	h := newHarness(t)
	sender, senderW := h.student(t, cut(2000))
	_, recipientW := h.student(t, 0)

	row, err := h.transfer(t, sender, recipientW, cut(1000))
	require.NoError(t, err)
	assert.Zero(t, row.Fee)
	assert.Equal(t, cut(1000), h.balance(t, senderW.ID))
	assert.Equal(t, cut(1000), h.balance(t, recipientW.ID))
}

func TestWalletService_ScenarioD_DailyLimit(t *testing.T) {
	h := newHarness(t)
	sender, senderW := h.student(t, cut(10000))
	_, recipientW := h.student(t, 0)
	_, other := h.student(t, 0)

	h.seedTransfer(t, senderW.ID, other.ID, cut(49500), time.Now().UTC())

	_, err := h.transfer(t, sender, recipientW, cut(1000))
	assert.ErrorIs(t, err, apperror.ErrDailyLimitExceeded())
	assert.Equal(t, cut(10000), h.balance(t, senderW.ID))
	assert.Equal(t, int64(0), h.balance(t, recipientW.ID))

	// Exactly reaching the cap is allowed.
	_, err = h.transfer(t, sender, recipientW, cut(500))
	require.NoError(t, err)
}

func TestWalletService_DailyLimitFromSettings(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.settings.Set(context.Background(), SettingDailyTransferLimit, "100.00"))
	sender, _ := h.student(t, cut(1000))
	_, recipientW := h.student(t, 0)

	_, err := h.transfer(t, sender, recipientW, cut(101))
	assert.ErrorIs(t, err, apperror.ErrDailyLimitExceeded())
}

func TestWalletService_TransferValidation(t *testing.T) {
	h := newHarness(t)
	sender, senderW := h.student(t, cut(100))
	_, recipientW := h.student(t, 0)
	ctx := context.Background()

	tests := []struct {
		name string
		req  ports.TransferRequest
		want *apperror.AppError
	}{
		{"zero amount", ports.TransferRequest{SenderID: sender, RecipientAddress: recipientW.Address, Amount: 0}, apperror.ErrInvalidAmount()},
		{"negative amount", ports.TransferRequest{SenderID: sender, RecipientAddress: recipientW.Address, Amount: -5}, apperror.ErrInvalidAmount()},
		{"self transfer", ports.TransferRequest{SenderID: sender, RecipientAddress: senderW.Address, Amount: 1}, apperror.ErrSelfTransfer()},
		{"unknown recipient", ports.TransferRequest{SenderID: sender, RecipientAddress: "CUT-nobody", Amount: 1}, apperror.ErrNotFound("recipient wallet")},
		{"unknown sender", ports.TransferRequest{SenderID: uuid.New(), RecipientAddress: recipientW.Address, Amount: 1}, apperror.ErrNotFound("wallet")},
		{"insufficient", ports.TransferRequest{SenderID: sender, RecipientAddress: recipientW.Address, Amount: cut(101)}, apperror.ErrInsufficientFunds()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.InitiateTransfer(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWalletService_RepeatedTransfersWithinCodeWindow(t *testing.T) {
	h := newHarness(t)
	sender, senderW := h.student(t, cut(100))
	_, recipientW := h.student(t, 0)

	// More confirms than the failure cap, each with its own correct code.
	for i := 0; i < 8; i++ {
		_, err := h.transfer(t, sender, recipientW, cut(1))
		require.NoError(t, err, "transfer %d", i+1)
	}
	assert.Equal(t, cut(92), h.balance(t, senderW.ID))
	assert.Equal(t, cut(8), h.balance(t, recipientW.ID))
}

func TestWalletService_AmountPlusFeeOverflow(t *testing.T) {
	h := newHarness(t)
	student, studentW := h.student(t, 0)
	_, recipientW := h.student(t, 0)
	_, merchantW := h.merchant(t, "CAFE01", 0)
	huge := int64(math.MaxInt64 / 1000 * 999)

	_, err := h.svc.InitiateTransfer(context.Background(), ports.TransferRequest{
		SenderID: student, RecipientAddress: recipientW.Address, Amount: huge,
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidAmount())

	_, err = h.svc.InitiateWithdrawal(context.Background(), ports.MerchantCashRequest{
		UserID: student, MerchantCode: "CAFE01", Amount: huge,
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidAmount())

	assert.Equal(t, int64(0), h.balance(t, studentW.ID))
	assert.Equal(t, int64(0), h.balance(t, merchantW.ID))
	assert.Equal(t, int64(0), h.balance(t, recipientW.ID))
}

func TestMerchantTxCoordinator_InitiateRejectsOverflow(t *testing.T) {
	h := newHarness(t)
	student, studentW := h.student(t, 0)
	merchant, _ := h.merchant(t, "CAFE01", 0)

	tx, err := h.store.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback(context.Background()) //nolint:errcheck

	_, err = h.svc.coordinator.Initiate(context.Background(), tx, InitiateMerchantTx{
		StudentID:       student,
		StudentWalletID: studentW.ID,
		MerchantID:      merchant.ID,
		Type:            domain.MerchantTxWithdrawal,
		Amount:          math.MaxInt64 - 10,
		Fee:             11,
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidAmount())
}

func TestWalletService_TransferToInactiveWallet(t *testing.T) {
	h := newHarness(t)
	sender, _ := h.student(t, cut(100))
	recipientID := uuid.New()
	inactive := &domain.Wallet{ID: uuid.New(), OwnerID: recipientID, OwnerType: domain.OwnerStudent, Address: "CUT-frozen"}
	require.NoError(t, h.wallets.Create(context.Background(), inactive))

	_, err := h.svc.InitiateTransfer(context.Background(), ports.TransferRequest{
		SenderID: sender, RecipientAddress: "CUT-frozen", Amount: cut(1),
	})
	assert.ErrorIs(t, err, apperror.ErrInactiveParty("wallet"))
}

func TestWalletService_ConfirmTransfer_WrongOwner(t *testing.T) {
	h := newHarness(t)
	sender, _ := h.student(t, cut(100))
	intruder, _ := h.student(t, cut(100))
	_, recipientW := h.student(t, 0)

	q, err := h.svc.InitiateTransfer(context.Background(), ports.TransferRequest{
		SenderID: sender, RecipientAddress: recipientW.Address, Amount: cut(10),
	})
	require.NoError(t, err)

	_, err = h.svc.ConfirmTransfer(context.Background(), ports.ConfirmRequest{
		UserID: intruder, Reference: q.Reference, Code: h.code(t, q.Reference),
	})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized())
}

func TestWalletService_ConfirmTransfer_WrongCode(t *testing.T) {
	h := newHarness(t)
	sender, senderW := h.student(t, cut(100))
	_, recipientW := h.student(t, 0)

	q, err := h.svc.InitiateTransfer(context.Background(), ports.TransferRequest{
		SenderID: sender, RecipientAddress: recipientW.Address, Amount: cut(10),
	})
	require.NoError(t, err)
	good := h.code(t, q.Reference)
	bad := "000000"
	if good == bad {
		bad = "111111"
	}

	_, err = h.svc.ConfirmTransfer(context.Background(), ports.ConfirmRequest{UserID: sender, Reference: q.Reference, Code: bad})
	assert.ErrorIs(t, err, apperror.ErrInvalidOrExpiredCode())
	assert.Equal(t, cut(100), h.balance(t, senderW.ID))

	_, err = h.svc.ConfirmTransfer(context.Background(), ports.ConfirmRequest{UserID: sender, Reference: q.Reference, Code: good})
	require.NoError(t, err)
}

func TestWalletService_ConfirmTransfer_Replay(t *testing.T) {
	h := newHarness(t)
	sender, senderW := h.student(t, cut(100))
	_, recipientW := h.student(t, 0)

	q, err := h.svc.InitiateTransfer(context.Background(), ports.TransferRequest{
		SenderID: sender, RecipientAddress: recipientW.Address, Amount: cut(10),
	})
	require.NoError(t, err)
	req := ports.ConfirmRequest{UserID: sender, Reference: q.Reference, Code: h.code(t, q.Reference)}

	_, err = h.svc.ConfirmTransfer(context.Background(), req)
	require.NoError(t, err)
	_, err = h.svc.ConfirmTransfer(context.Background(), req)
	assert.ErrorIs(t, err, apperror.ErrNotFound("quote"))
	assert.Equal(t, cut(90), h.balance(t, senderW.ID))
}

func TestWalletService_ConfirmTransfer_BalanceChangedSinceQuote(t *testing.T) {
	h := newHarness(t)
	sender, senderW := h.student(t, cut(100))
	_, recipientW := h.student(t, 0)
	_, other := h.student(t, 0)

	q, err := h.svc.InitiateTransfer(context.Background(), ports.TransferRequest{
		SenderID: sender, RecipientAddress: recipientW.Address, Amount: cut(80),
	})
	require.NoError(t, err)
	code := h.code(t, q.Reference)

	_, err = h.transfer(t, sender, other, cut(50))
	require.NoError(t, err)

	_, err = h.svc.ConfirmTransfer(context.Background(), ports.ConfirmRequest{UserID: sender, Reference: q.Reference, Code: code})
	assert.ErrorIs(t, err, apperror.ErrInsufficientFunds())
	assert.Equal(t, cut(50), h.balance(t, senderW.ID))
	assert.Equal(t, int64(0), h.balance(t, recipientW.ID))
}

func TestWalletService_VelocitySignalDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	sender, senderW := h.student(t, cut(1000))
	_, recipientW := h.student(t, 0)
	for i := 0; i < 5; i++ {
		h.seedTransfer(t, senderW.ID, recipientW.ID, cut(1), time.Now().UTC().Add(-time.Hour))
	}

	row, err := h.transfer(t, sender, recipientW, cut(1))
	require.NoError(t, err)

	h.svc.Drain()
	require.Len(t, h.events.risk, 1)
	assert.Equal(t, domain.RiskVelocityAnomaly, h.events.risk[0].Kind)
	assert.Equal(t, row.Reference, h.events.risk[0].Reference)
	assert.Contains(t, auditActions(h), domain.AuditActionRiskVelocityAnomaly)
}

func TestWalletService_AmountSignalDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	sender, senderW := h.student(t, cut(20000))
	_, recipientW := h.student(t, 0)
	_, other := h.student(t, 0)
	h.seedTransfer(t, senderW.ID, other.ID, cut(1000), time.Now().UTC().Add(-48*time.Hour))

	_, err := h.transfer(t, sender, recipientW, cut(6000))
	require.NoError(t, err)

	h.svc.Drain()
	require.Len(t, h.events.risk, 1)
	assert.Equal(t, domain.RiskAmountAnomaly, h.events.risk[0].Kind)
}

// ==================== Merchant withdrawal ====================

func TestWalletService_ScenarioB_WithdrawalConfirmed(t *testing.T) {
	h := newHarness(t)
	student, studentW := h.student(t, cut(3000))
	merchant, merchantW := h.merchant(t, "CAFE01", 0)

	q, err := h.svc.InitiateWithdrawal(context.Background(), ports.MerchantCashRequest{
		UserID: student, MerchantCode: "CAFE01", Amount: cut(2500),
	})
	require.NoError(t, err)
	assert.Equal(t, cut(25), q.Fee)
	assert.Equal(t, cut(3000), h.balance(t, studentW.ID))

	m, err := h.svc.ConfirmWithdrawal(context.Background(), ports.ConfirmRequest{
		UserID: student, Reference: q.Reference, Code: h.code(t, q.Reference),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MerchantTxPending, m.Status)
	assert.True(t, m.StudentConfirmed())
	assert.False(t, m.MerchantConfirmed())
	assert.Equal(t, cut(475), h.balance(t, studentW.ID))

	done, err := h.svc.MerchantConfirm(context.Background(), merchant.ID, m.Reference, domain.MerchantTxWithdrawal)
	require.NoError(t, err)
	assert.Equal(t, domain.MerchantTxCompleted, done.Status)
	assert.True(t, done.MerchantConfirmed())
	require.NotNil(t, done.ResolvedBy)
	assert.Equal(t, domain.ActorMerchant, *done.ResolvedBy)
	assert.NotNil(t, done.CompletedAt)

	assert.Equal(t, cut(2500), h.balance(t, merchantW.ID))
	assert.Equal(t, cut(475), h.balance(t, studentW.ID))

	row, err := h.ledger.GetByReference(context.Background(), m.Reference)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, domain.TransactionTypeWithdrawal, row.Type)
	assert.Equal(t, domain.TransactionStatusCompleted, row.Status)
	assert.Equal(t, cut(2500), row.Amount)
	assert.Equal(t, cut(25), row.Fee)
	assert.Equal(t, studentW.ID, *row.SenderID)
	assert.Equal(t, merchantW.ID, *row.ReceiverID)
}

func TestWalletService_ScenarioC_WithdrawalCancelled(t *testing.T) {
	h := newHarness(t)
	student, studentW := h.student(t, cut(3000))
	merchant, merchantW := h.merchant(t, "CAFE01", 0)

	m := openWithdrawal(t, h, student, "CAFE01", cut(2500))
	assert.Equal(t, cut(475), h.balance(t, studentW.ID))

	cancelled, err := h.svc.CancelMerchantTransaction(context.Background(), student, m.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.MerchantTxCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, cut(3000), h.balance(t, studentW.ID))
	assert.Equal(t, int64(0), h.balance(t, merchantW.ID))

	row, err := h.ledger.GetByReference(context.Background(), m.Reference)
	require.NoError(t, err)
	assert.Nil(t, row)

	// Cancelling again never refunds twice.
	_, err = h.svc.CancelMerchantTransaction(context.Background(), student, m.Reference)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrAlreadyProcessed())
	assert.Equal(t, cut(3000), h.balance(t, studentW.ID))

	// Nor can the merchant still confirm it.
	_, err = h.svc.MerchantConfirm(context.Background(), merchant.ID, m.Reference, domain.MerchantTxWithdrawal)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrAlreadyProcessed())
}

func TestWalletService_CancelCompletedFails(t *testing.T) {
	h := newHarness(t)
	student, studentW := h.student(t, cut(3000))
	merchant, _ := h.merchant(t, "CAFE01", 0)

	m := openWithdrawal(t, h, student, "CAFE01", cut(2500))
	_, err := h.svc.MerchantConfirm(context.Background(), merchant.ID, m.Reference, domain.MerchantTxWithdrawal)
	require.NoError(t, err)

	_, err = h.svc.CancelMerchantTransaction(context.Background(), student, m.Reference)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrAlreadyProcessed())
	assert.Equal(t, cut(475), h.balance(t, studentW.ID))
}

func TestWalletService_CancelByOtherStudentFails(t *testing.T) {
	h := newHarness(t)
	student, studentW := h.student(t, cut(3000))
	other, _ := h.student(t, 0)
	h.merchant(t, "CAFE01", 0)

	m := openWithdrawal(t, h, student, "CAFE01", cut(100))
	_, err := h.svc.CancelMerchantTransaction(context.Background(), other, m.Reference)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrAlreadyProcessed())
	assert.Equal(t, cut(2900), h.balance(t, studentW.ID))
}

func TestWalletService_MerchantConfirm_WrongMerchantOrType(t *testing.T) {
	h := newHarness(t)
	student, _ := h.student(t, cut(3000))
	merchant, _ := h.merchant(t, "CAFE01", 0)
	other, _ := h.merchant(t, "BOOK02", 0)

	m := openWithdrawal(t, h, student, "CAFE01", cut(100))

	_, err := h.svc.MerchantConfirm(context.Background(), other.ID, m.Reference, domain.MerchantTxWithdrawal)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrAlreadyProcessed())
	_, err = h.svc.MerchantConfirm(context.Background(), merchant.ID, m.Reference, domain.MerchantTxDeposit)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrAlreadyProcessed())

	_, err = h.svc.MerchantConfirm(context.Background(), merchant.ID, m.Reference, domain.MerchantTxWithdrawal)
	require.NoError(t, err)
	_, err = h.svc.MerchantConfirm(context.Background(), merchant.ID, m.Reference, domain.MerchantTxWithdrawal)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrAlreadyProcessed())
}

func TestWalletService_MerchantReject_RefundsWithdrawal(t *testing.T) {
	h := newHarness(t)
	student, studentW := h.student(t, cut(3000))
	merchant, _ := h.merchant(t, "CAFE01", 0)

	m := openWithdrawal(t, h, student, "CAFE01", cut(2500))
	rejected, err := h.svc.MerchantReject(context.Background(), merchant.ID, m.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.MerchantTxRejected, rejected.Status)
	assert.Equal(t, cut(3000), h.balance(t, studentW.ID))

	h.svc.Drain()
	_, ok := h.notes.find(domain.NotifyMerchantTxClosed, m.Reference)
	assert.True(t, ok)
	assert.Contains(t, auditActions(h), domain.AuditActionMerchantReject)
}

func TestWalletService_WithdrawalValidation(t *testing.T) {
	h := newHarness(t)
	student, _ := h.student(t, cut(100))
	suspended := &domain.Merchant{ID: uuid.New(), Code: "SUSP", Status: domain.MerchantStatusSuspended}
	require.NoError(t, h.merchants.Create(context.Background(), suspended))
	h.merchant(t, "CAFE01", 0)

	tests := []struct {
		name string
		req  ports.MerchantCashRequest
		want *apperror.AppError
	}{
		{"invalid amount", ports.MerchantCashRequest{UserID: student, MerchantCode: "CAFE01", Amount: 0}, apperror.ErrInvalidAmount()},
		{"unknown merchant", ports.MerchantCashRequest{UserID: student, MerchantCode: "NONE", Amount: 1}, apperror.ErrNotFound("merchant")},
		{"inactive merchant", ports.MerchantCashRequest{UserID: student, MerchantCode: "SUSP", Amount: 1}, apperror.ErrInactiveParty("merchant")},
		{"insufficient with fee", ports.MerchantCashRequest{UserID: student, MerchantCode: "CAFE01", Amount: cut(101)}, apperror.ErrInsufficientFunds()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.InitiateWithdrawal(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWalletService_WithdrawalCodeIsPurposeScoped(t *testing.T) {
	h := newHarness(t)
	student, _ := h.student(t, cut(5000))
	_, recipientW := h.student(t, 0)
	h.merchant(t, "CAFE01", 0)

	tq, err := h.svc.InitiateTransfer(context.Background(), ports.TransferRequest{
		SenderID: student, RecipientAddress: recipientW.Address, Amount: cut(1),
	})
	require.NoError(t, err)
	wq, err := h.svc.InitiateWithdrawal(context.Background(), ports.MerchantCashRequest{
		UserID: student, MerchantCode: "CAFE01", Amount: cut(1),
	})
	require.NoError(t, err)

	transferCode, withdrawalCode := h.code(t, tq.Reference), h.code(t, wq.Reference)

	// A transfer code does not authorize a withdrawal.
	if transferCode != withdrawalCode {
		_, err = h.svc.ConfirmWithdrawal(context.Background(), ports.ConfirmRequest{
			UserID: student, Reference: wq.Reference, Code: transferCode,
		})
		assert.ErrorIs(t, err, apperror.ErrInvalidOrExpiredCode())
	}

	// A transfer reference is not a withdrawal quote.
	_, err = h.svc.ConfirmWithdrawal(context.Background(), ports.ConfirmRequest{
		UserID: student, Reference: tq.Reference, Code: transferCode,
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound("quote"))
}

// ==================== Merchant deposit ====================

func TestWalletService_DepositConfirmed(t *testing.T) {
	h := newHarness(t)
	student, studentW := h.student(t, 0)
	merchant, merchantW := h.merchant(t, "CAFE01", cut(1000))

	m, err := h.svc.InitiateMerchantDeposit(context.Background(), ports.MerchantCashRequest{
		UserID: student, MerchantCode: "CAFE01", Amount: cut(300),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MerchantTxPending, m.Status)
	assert.Regexp(t, `^DEP-`, m.Reference)
	assert.Zero(t, m.Fee)
	assert.Equal(t, int64(0), h.balance(t, studentW.ID))
	assert.Equal(t, cut(1000), h.balance(t, merchantW.ID))

	pending, err := h.svc.ListPendingForMerchant(context.Background(), merchant.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, m.Reference, pending[0].Reference)

	_, err = h.svc.MerchantConfirm(context.Background(), merchant.ID, m.Reference, domain.MerchantTxDeposit)
	require.NoError(t, err)
	assert.Equal(t, cut(300), h.balance(t, studentW.ID))
	assert.Equal(t, cut(700), h.balance(t, merchantW.ID))

	row, err := h.ledger.GetByReference(context.Background(), m.Reference)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, domain.TransactionTypeDeposit, row.Type)
	assert.Equal(t, merchantW.ID, *row.SenderID)
	assert.Equal(t, studentW.ID, *row.ReceiverID)

	pending, err = h.svc.ListPendingForStudent(context.Background(), student)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWalletService_DepositMerchantShortOfFloat(t *testing.T) {
	h := newHarness(t)
	student, studentW := h.student(t, 0)
	merchant, merchantW := h.merchant(t, "CAFE01", cut(100))

	m, err := h.svc.InitiateMerchantDeposit(context.Background(), ports.MerchantCashRequest{
		UserID: student, MerchantCode: "CAFE01", Amount: cut(300),
	})
	require.NoError(t, err)

	_, err = h.svc.MerchantConfirm(context.Background(), merchant.ID, m.Reference, domain.MerchantTxDeposit)
	assert.ErrorIs(t, err, apperror.ErrInsufficientFunds())

	// The whole unit rolled back: still pending, nothing moved.
	got, err := h.merchantTxs.GetByReference(context.Background(), m.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.MerchantTxPending, got.Status)
	assert.Equal(t, int64(0), h.balance(t, studentW.ID))
	assert.Equal(t, cut(100), h.balance(t, merchantW.ID))
}

func TestWalletService_CancelDepositMovesNothing(t *testing.T) {
	h := newHarness(t)
	student, studentW := h.student(t, cut(10))
	h.merchant(t, "CAFE01", cut(1000))

	m, err := h.svc.InitiateMerchantDeposit(context.Background(), ports.MerchantCashRequest{
		UserID: student, MerchantCode: "CAFE01", Amount: cut(300),
	})
	require.NoError(t, err)
	_, err = h.svc.CancelMerchantTransaction(context.Background(), student, m.Reference)
	require.NoError(t, err)
	assert.Equal(t, cut(10), h.balance(t, studentW.ID))
}

// ==================== Top-up ====================

func TestWalletService_TopupCompleted(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.settings.Set(context.Background(), SettingExchangeRate, "0.25"))
	student, studentW := h.student(t, 0)

	res, err := h.svc.InitiateTopup(context.Background(), ports.TopupRequest{UserID: student, Amount: cut(100)})
	require.NoError(t, err)
	assert.Equal(t, "secret", res.ClientSecret)
	assert.Equal(t, domain.PaymentStatusPending, res.Payment.Status)
	assert.Equal(t, int64(2500), res.Payment.FiatAmount)
	require.Len(t, h.gateway.created, 1)
	assert.Equal(t, res.Payment.Reference, h.gateway.created[0].Reference)
	assert.Equal(t, "usd", h.gateway.created[0].Currency)

	p, err := h.svc.CompleteTopup(context.Background(), student, res.Payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, p.Status)
	assert.Equal(t, int64(0), h.balance(t, studentW.ID))

	h.gateway.status = domain.GatewayStatusSucceeded
	p, err = h.svc.CompleteTopup(context.Background(), student, res.Payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, p.Status)
	assert.Equal(t, cut(100), h.balance(t, studentW.ID))

	row, err := h.ledger.GetByReference(context.Background(), p.Reference)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, domain.TransactionTypeDeposit, row.Type)
	assert.Nil(t, row.SenderID)

	// Completing again credits nothing more.
	p, err = h.svc.CompleteTopup(context.Background(), student, res.Payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, p.Status)
	assert.Equal(t, cut(100), h.balance(t, studentW.ID))
}

func TestWalletService_TopupFailed(t *testing.T) {
	h := newHarness(t)
	student, studentW := h.student(t, 0)

	res, err := h.svc.InitiateTopup(context.Background(), ports.TopupRequest{UserID: student, Amount: cut(100)})
	require.NoError(t, err)

	h.gateway.status = domain.GatewayStatusFailed
	p, err := h.svc.CompleteTopup(context.Background(), student, res.Payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, p.Status)
	assert.Equal(t, int64(0), h.balance(t, studentW.ID))
}

func TestWalletService_TopupErrors(t *testing.T) {
	h := newHarness(t)
	student, _ := h.student(t, 0)
	other, _ := h.student(t, 0)

	res, err := h.svc.InitiateTopup(context.Background(), ports.TopupRequest{UserID: student, Amount: cut(1)})
	require.NoError(t, err)

	_, err = h.svc.CompleteTopup(context.Background(), other, res.Payment.Reference)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized())
	_, err = h.svc.CompleteTopup(context.Background(), student, "TOP-unknown")
	assert.ErrorIs(t, err, apperror.ErrNotFound("payment"))

	h.gateway.err = errors.New("stripe down")
	_, err = h.svc.InitiateTopup(context.Background(), ports.TopupRequest{UserID: student, Amount: cut(1)})
	assert.ErrorIs(t, err, apperror.ErrGatewayFailure(nil))

	h.svc.gateway = nil
	_, err = h.svc.InitiateTopup(context.Background(), ports.TopupRequest{UserID: student, Amount: cut(1)})
	assert.ErrorIs(t, err, apperror.ErrGatewayFailure(nil))
}

// ==================== Reads ====================

func TestWalletService_ListHistory(t *testing.T) {
	h := newHarness(t)
	sender, _ := h.student(t, cut(100))
	_, recipientW := h.student(t, 0)
	for i := 0; i < 3; i++ {
		_, err := h.transfer(t, sender, recipientW, cut(1))
		require.NoError(t, err)
	}

	rows, total, err := h.svc.ListHistory(context.Background(), ports.HistoryParams{
		OwnerID: sender, OwnerType: domain.OwnerStudent, Page: 1, PageSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, rows, 2)

	rows, total, err = h.svc.ListHistory(context.Background(), ports.HistoryParams{
		OwnerID: recipientW.OwnerID, OwnerType: domain.OwnerStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, rows, 3)

	_, _, err = h.svc.ListHistory(context.Background(), ports.HistoryParams{OwnerID: uuid.New(), OwnerType: domain.OwnerStudent})
	assert.ErrorIs(t, err, apperror.ErrNotFound("wallet"))
}

func TestWalletService_GetBalance(t *testing.T) {
	h := newHarness(t)
	student, w := h.student(t, cut(42))

	got, err := h.svc.GetBalance(context.Background(), student, domain.OwnerStudent)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
	assert.Equal(t, cut(42), got.Balance)

	_, err = h.svc.GetBalance(context.Background(), student, domain.OwnerMerchant)
	assert.ErrorIs(t, err, apperror.ErrNotFound("wallet"))
}

// ==================== helpers ====================

func openWithdrawal(t *testing.T, h *harness, student uuid.UUID, merchantCode string, amount int64) *domain.MerchantTransaction {
	t.Helper()
	q, err := h.svc.InitiateWithdrawal(context.Background(), ports.MerchantCashRequest{
		UserID: student, MerchantCode: merchantCode, Amount: amount,
	})
	require.NoError(t, err)
	m, err := h.svc.ConfirmWithdrawal(context.Background(), ports.ConfirmRequest{
		UserID: student, Reference: q.Reference, Code: h.code(t, q.Reference),
	})
	require.NoError(t, err)
	return m
}

func auditActions(h *harness) []domain.AuditAction {
	h.svc.Drain()
	var out []domain.AuditAction
	for _, e := range h.audit.Entries() {
		out = append(out, e.Action)
	}
	return out
}
