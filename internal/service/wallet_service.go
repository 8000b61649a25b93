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
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var defaultExchangeRate = decimal.NewFromInt(1)

// WalletRepos groups the persistence ports the wallet service needs.
type WalletRepos struct {
	Wallets     ports.WalletRepository
	Merchants   ports.MerchantRepository
	Ledger      ports.LedgerRepository
	MerchantTxs ports.MerchantTxRepository
	Payments    ports.PaymentRepository
	OTPs        ports.OTPRepository
	Audit       ports.AuditRepository
	Settings    ports.ConfigProvider
	Transactor  ports.DBTransactor
}

// WalletCollaborators are the non-storage ports. Gateway may be nil, which
// disables top-ups.
type WalletCollaborators struct {
	Hasher   ports.HashService
	Quotes   ports.QuoteStore
	Limiter  ports.RateLimiter
	Notifier ports.Notifier
	Events   ports.EventPublisher
	Gateway  ports.PaymentGateway
}

// WalletOptions carries the static knobs from config.
type WalletOptions struct {
	OTPTTL         time.Duration
	OTPMaxAttempts int64
	OTPMaxLive     int
	QuoteTTL       time.Duration
	TxRetries      int
	Currency       string
	HashParams     Argon2Params
}

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	wallets     ports.WalletRepository
	merchants   ports.MerchantRepository
	ledger      ports.LedgerRepository
	merchantTxs ports.MerchantTxRepository
	payments    ports.PaymentRepository
	quotes      ports.QuoteStore
	gateway     ports.PaymentGateway

	tx          *txRunner
	refs        *ReferenceGenerator
	settings    *Settings
	fees        *FeePolicy
	guard       *LimitGuard
	otp         *OTPService
	balances    *BalanceStore
	recorder    *LedgerRecorder
	coordinator *MerchantTxCoordinator
	dispatch    *Dispatcher

	quoteTTL time.Duration
	currency string
	now      func() time.Time
	log      zerolog.Logger
}

func NewWalletService(repos WalletRepos, collab WalletCollaborators, opts WalletOptions, log zerolog.Logger) *WalletServiceImpl {
	runner := newTxRunner(repos.Transactor, opts.TxRetries, log)
	settings := NewSettings(repos.Settings, log)
	refs := NewReferenceGenerator()
	balances := NewBalanceStore(repos.Wallets)
	recorder := NewLedgerRecorder(repos.Ledger)

	hasher := collab.Hasher
	if hasher == nil {
		hasher = NewArgon2HashService(opts.HashParams)
	}
	otp := NewOTPService(repos.OTPs, hasher, collab.Limiter, runner, OTPPolicy{
		TTL:         opts.OTPTTL,
		MaxAttempts: opts.OTPMaxAttempts,
		MaxLive:     opts.OTPMaxLive,
	}, log)

	quoteTTL := opts.QuoteTTL
	if quoteTTL <= 0 {
		quoteTTL = otp.TTL()
	}
	currency := opts.Currency
	if currency == "" {
		currency = "usd"
	}

	return &WalletServiceImpl{
		wallets:     repos.Wallets,
		merchants:   repos.Merchants,
		ledger:      repos.Ledger,
		merchantTxs: repos.MerchantTxs,
		payments:    repos.Payments,
		quotes:      collab.Quotes,
		gateway:     collab.Gateway,
		tx:          runner,
		refs:        refs,
		settings:    settings,
		fees:        NewFeePolicy(settings),
		guard:       NewLimitGuard(repos.Ledger, settings),
		otp:         otp,
		balances:    balances,
		recorder:    recorder,
		coordinator: NewMerchantTxCoordinator(repos.MerchantTxs, repos.Wallets, balances, recorder, refs),
		dispatch:    NewDispatcher(collab.Notifier, collab.Events, NewAuditService(repos.Audit, log), log),
		quoteTTL:    quoteTTL,
		currency:    currency,
		now:         time.Now,
		log:         log,
	}
}

// Drain waits for post-commit side effects; called on shutdown.
func (s *WalletServiceImpl) Drain() {
	s.dispatch.Wait()
}

// ---- Reads ----

func (s *WalletServiceImpl) GetBalance(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error) {
	w, err := s.wallets.GetByOwner(ctx, ownerID, ownerType)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return w, nil
}

func (s *WalletServiceImpl) ListHistory(ctx context.Context, params ports.HistoryParams) ([]domain.LedgerTransaction, int64, error) {
	w, err := s.GetBalance(ctx, params.OwnerID, params.OwnerType)
	if err != nil {
		return nil, 0, err
	}
	page, size := params.Page, params.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	rows, total, err := s.ledger.List(ctx, ports.LedgerListParams{
		WalletID: w.ID,
		Type:     params.Type,
		Status:   params.Status,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list history: %w", err))
	}
	return rows, total, nil
}

func (s *WalletServiceImpl) ListPendingForStudent(ctx context.Context, userID uuid.UUID) ([]domain.MerchantTransaction, error) {
	rows, err := s.merchantTxs.ListPending(ctx, ports.PendingFilter{SubjectID: &userID})
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list pending: %w", err))
	}
	return rows, nil
}

func (s *WalletServiceImpl) ListPendingForMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.MerchantTransaction, error) {
	rows, err := s.merchantTxs.ListPending(ctx, ports.PendingFilter{MerchantID: &merchantID})
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list pending: %w", err))
	}
	return rows, nil
}

// ---- Peer transfer ----

// InitiateTransfer prices the transfer, issues a transfer OTP and stores
// the quote. No balance moves.
func (s *WalletServiceImpl) InitiateTransfer(ctx context.Context, req ports.TransferRequest) (*domain.Quote, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	sender, err := s.activeStudentWallet(ctx, req.SenderID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.wallets.GetByAddress(ctx, req.RecipientAddress)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get recipient wallet: %w", err))
	}
	if recipient == nil {
		return nil, apperror.ErrNotFound("recipient wallet")
	}
	if recipient.ID == sender.ID {
		return nil, apperror.ErrSelfTransfer()
	}
	if !recipient.Active {
		return nil, apperror.ErrInactiveParty("recipient wallet")
	}

	fee := s.fees.Fee(ctx, domain.TransactionTypeTransfer, req.Amount)
	total, err := money.Add(req.Amount, fee)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}
	if !sender.Covers(total) {
		return nil, apperror.ErrInsufficientFunds()
	}

	q := &domain.Quote{
		Reference:         s.refs.New(RefTransfer),
		Kind:              domain.QuoteTransfer,
		OwnerID:           req.SenderID,
		SenderWalletID:    sender.ID,
		RecipientWalletID: recipient.ID,
		RecipientAddress:  recipient.Address,
		Amount:            req.Amount,
		Fee:               fee,
		Description:       req.Description,
	}
	if err := s.issueQuote(ctx, q, domain.OTPPurposeTransfer); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("reference", q.Reference).
		Str("sender_wallet", sender.ID.String()).
		Int64("amount", q.Amount).
		Int64("fee", q.Fee).
		Msg("transfer quoted")
	return q, nil
}

// ConfirmTransfer verifies the code and moves the money in one unit:
// lock both wallets, re-check balance, run the guard, debit, credit,
// record.
func (s *WalletServiceImpl) ConfirmTransfer(ctx context.Context, req ports.ConfirmRequest) (*domain.LedgerTransaction, error) {
	q, err := s.loadQuote(ctx, req, domain.QuoteTransfer)
	if err != nil {
		return nil, err
	}
	if err := s.otp.Verify(ctx, domain.StudentSubject(req.UserID), domain.OTPPurposeTransfer, req.Code); err != nil {
		return nil, err
	}

	var (
		row       *domain.LedgerTransaction
		signals   []domain.RiskSignal
		recipient *domain.Wallet
	)
	err = s.tx.run(ctx, "confirm transfer", func(tx pgx.Tx) error {
		locked, err := s.balances.LockOrdered(ctx, tx, q.SenderWalletID, q.RecipientWalletID)
		if err != nil {
			return err
		}
		sender := locked[q.SenderWalletID]
		recipient = locked[q.RecipientWalletID]
		if !sender.Active || !recipient.Active {
			return apperror.ErrInactiveParty("wallet")
		}
		if !sender.Covers(q.Total()) {
			return apperror.ErrInsufficientFunds()
		}

		signals, err = s.guard.Check(ctx, tx, GuardCheck{
			UserID:           req.UserID,
			SenderWalletID:   sender.ID,
			ReceiverWalletID: recipient.ID,
			Amount:           q.Amount,
			Reference:        q.Reference,
		})
		if err != nil {
			return err
		}

		if err := s.balances.Debit(ctx, tx, sender.ID, q.Total()); err != nil {
			return err
		}
		if err := s.balances.Credit(ctx, tx, recipient.ID, q.Amount); err != nil {
			return err
		}
		row, err = s.recorder.Record(ctx, tx, LedgerEntry{
			Reference:   q.Reference,
			Type:        domain.TransactionTypeTransfer,
			SenderID:    &sender.ID,
			ReceiverID:  &recipient.ID,
			Amount:      q.Amount,
			Fee:         q.Fee,
			Status:      domain.TransactionStatusCompleted,
			Description: q.Description,
		})
		return err
	})
	if err != nil {
		s.log.Warn().Err(err).Str("reference", q.Reference).Msg("transfer failed")
		return nil, err
	}
	s.dropQuote(ctx, q.Reference)

	s.log.Info().
		Str("reference", row.Reference).
		Int64("amount", row.Amount).
		Int64("fee", row.Fee).
		Msg("transfer completed")

	s.dispatch.Ledger(ctx, row)
	for _, sig := range signals {
		s.dispatch.Risk(ctx, sig)
	}
	s.dispatch.Audit(ctx, newAuditEntry(&req.UserID, domain.ActorStudent, domain.AuditActionTransfer, "transaction", row.Reference,
		map[string]any{"amount": row.Amount, "fee": row.Fee, "recipient": q.RecipientAddress}))
	s.dispatch.Notify(ctx, domain.Notification{
		RecipientID:   req.UserID,
		RecipientKind: domain.OwnerStudent,
		Kind:          domain.NotifyTransferSent,
		Message:       fmt.Sprintf("You sent %s CUT to %s (fee %s).", money.Format(row.Amount), q.RecipientAddress, money.Format(row.Fee)),
		Data:          map[string]string{"reference": row.Reference},
	})
	s.dispatch.Notify(ctx, domain.Notification{
		RecipientID:   recipient.OwnerID,
		RecipientKind: recipient.OwnerType,
		Kind:          domain.NotifyTransferReceived,
		Message:       fmt.Sprintf("You received %s CUT.", money.Format(row.Amount)),
		Data:          map[string]string{"reference": row.Reference},
	})
	return row, nil
}

// ---- Merchant-mediated cash ----

// InitiateWithdrawal quotes a cash withdrawal at an active merchant and
// issues a withdrawal OTP.
func (s *WalletServiceImpl) InitiateWithdrawal(ctx context.Context, req ports.MerchantCashRequest) (*domain.Quote, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	student, err := s.activeStudentWallet(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	merchant, err := s.activeMerchant(ctx, req.MerchantCode)
	if err != nil {
		return nil, err
	}

	fee := s.fees.Fee(ctx, domain.TransactionTypeWithdrawal, req.Amount)
	total, err := money.Add(req.Amount, fee)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}
	if !student.Covers(total) {
		return nil, apperror.ErrInsufficientFunds()
	}

	q := &domain.Quote{
		Reference:      s.refs.New(RefWithdrawal),
		Kind:           domain.QuoteWithdrawal,
		OwnerID:        req.UserID,
		SenderWalletID: student.ID,
		MerchantID:     merchant.ID,
		MerchantCode:   merchant.Code,
		Amount:         req.Amount,
		Fee:            fee,
	}
	if err := s.issueQuote(ctx, q, domain.OTPPurposeWithdrawal); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("reference", q.Reference).
		Str("merchant", merchant.Code).
		Int64("amount", q.Amount).
		Int64("fee", q.Fee).
		Msg("withdrawal quoted")
	return q, nil
}

// ConfirmWithdrawal verifies the code and opens the pending merchant
// transaction, holding amount+fee from the student.
func (s *WalletServiceImpl) ConfirmWithdrawal(ctx context.Context, req ports.ConfirmRequest) (*domain.MerchantTransaction, error) {
	q, err := s.loadQuote(ctx, req, domain.QuoteWithdrawal)
	if err != nil {
		return nil, err
	}
	if err := s.otp.Verify(ctx, domain.StudentSubject(req.UserID), domain.OTPPurposeWithdrawal, req.Code); err != nil {
		return nil, err
	}
	merchant, err := s.activeMerchant(ctx, q.MerchantCode)
	if err != nil {
		return nil, err
	}

	var m *domain.MerchantTransaction
	err = s.tx.run(ctx, "confirm withdrawal", func(tx pgx.Tx) error {
		var err error
		m, err = s.coordinator.Initiate(ctx, tx, InitiateMerchantTx{
			Reference:       q.Reference,
			StudentID:       req.UserID,
			StudentWalletID: q.SenderWalletID,
			MerchantID:      merchant.ID,
			Type:            domain.MerchantTxWithdrawal,
			Amount:          q.Amount,
			Fee:             q.Fee,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.dropQuote(ctx, q.Reference)
	s.afterInitiate(ctx, m, merchant)
	return m, nil
}

// InitiateMerchantDeposit opens a pending cash deposit; nothing moves until
// the merchant confirms.
func (s *WalletServiceImpl) InitiateMerchantDeposit(ctx context.Context, req ports.MerchantCashRequest) (*domain.MerchantTransaction, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	student, err := s.activeStudentWallet(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	merchant, err := s.activeMerchant(ctx, req.MerchantCode)
	if err != nil {
		return nil, err
	}

	var m *domain.MerchantTransaction
	err = s.tx.run(ctx, "initiate deposit", func(tx pgx.Tx) error {
		var err error
		m, err = s.coordinator.Initiate(ctx, tx, InitiateMerchantTx{
			StudentID:       req.UserID,
			StudentWalletID: student.ID,
			MerchantID:      merchant.ID,
			Type:            domain.MerchantTxDeposit,
			Amount:          req.Amount,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterInitiate(ctx, m, merchant)
	return m, nil
}

func (s *WalletServiceImpl) MerchantConfirm(ctx context.Context, merchantID uuid.UUID, reference string, typ domain.MerchantTxType) (*domain.MerchantTransaction, error) {
	var out *ConfirmedMerchantTx
	err := s.tx.run(ctx, "merchant confirm", func(tx pgx.Tx) error {
		var err error
		out, err = s.coordinator.Confirm(ctx, tx, merchantID, reference, typ)
		return err
	})
	if err != nil {
		return nil, err
	}
	m := out.Transaction
	s.log.Info().
		Str("reference", m.Reference).
		Str("type", string(m.Type)).
		Int64("amount", m.Amount).
		Msg("merchant transaction completed")

	s.dispatch.Ledger(ctx, out.Ledger)
	s.dispatch.Audit(ctx, newAuditEntry(&merchantID, domain.ActorMerchant, domain.AuditActionMerchantComplete, "merchant_transaction", m.Reference,
		map[string]any{"type": m.Type, "amount": m.Amount, "fee": m.Fee}))
	s.dispatch.Notify(ctx, domain.Notification{
		RecipientID:   m.SubjectID,
		RecipientKind: domain.OwnerStudent,
		Kind:          domain.NotifyMerchantTxComplete,
		Message:       fmt.Sprintf("Your %s of %s CUT is complete.", m.Type, money.Format(m.Amount)),
		Data:          map[string]string{"reference": m.Reference},
	})
	return m, nil
}

func (s *WalletServiceImpl) MerchantReject(ctx context.Context, merchantID uuid.UUID, reference string) (*domain.MerchantTransaction, error) {
	var m *domain.MerchantTransaction
	err := s.tx.run(ctx, "merchant reject", func(tx pgx.Tx) error {
		var err error
		m, err = s.coordinator.Reject(ctx, tx, merchantID, reference)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterClose(ctx, m, &merchantID, domain.AuditActionMerchantReject)
	return m, nil
}

func (s *WalletServiceImpl) CancelMerchantTransaction(ctx context.Context, userID uuid.UUID, reference string) (*domain.MerchantTransaction, error) {
	var m *domain.MerchantTransaction
	err := s.tx.run(ctx, "cancel merchant transaction", func(tx pgx.Tx) error {
		var err error
		m, err = s.coordinator.Cancel(ctx, tx, userID, reference)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterClose(ctx, m, &userID, domain.AuditActionMerchantCancel)
	return m, nil
}

// ExpireMerchantTransaction cancels a stale pending transaction as the
// system actor, refunding a withdrawal hold.
func (s *WalletServiceImpl) ExpireMerchantTransaction(ctx context.Context, reference string) (*domain.MerchantTransaction, error) {
	var m *domain.MerchantTransaction
	err := s.tx.run(ctx, "expire merchant transaction", func(tx pgx.Tx) error {
		var err error
		m, err = s.coordinator.Expire(ctx, tx, reference)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterClose(ctx, m, nil, domain.AuditActionMerchantExpire)
	return m, nil
}

// ---- Gateway top-up ----

// InitiateTopup opens a gateway checkout for amount CUT and records the
// pending payment.
func (s *WalletServiceImpl) InitiateTopup(ctx context.Context, req ports.TopupRequest) (*ports.TopupResult, error) {
	if s.gateway == nil {
		return nil, apperror.ErrGatewayFailure(errors.New("payment gateway not configured"))
	}
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	w, err := s.activeStudentWallet(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	rate := s.settings.Decimal(ctx, SettingExchangeRate, defaultExchangeRate)
	fiat := money.ApplyRate(req.Amount, rate)
	if fiat <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	ref := s.refs.New(RefTopup)
	checkout, err := s.gateway.CreateCheckout(ctx, ports.CheckoutRequest{
		Reference:  ref,
		UserID:     req.UserID,
		FiatAmount: fiat,
		Currency:   s.currency,
	})
	if err != nil {
		return nil, apperror.ErrGatewayFailure(err)
	}

	now := s.now().UTC()
	p := &domain.Payment{
		ID:          uuid.New(),
		Reference:   ref,
		ExternalRef: checkout.ExternalRef,
		UserID:      req.UserID,
		WalletID:    w.ID,
		Amount:      req.Amount,
		FiatAmount:  fiat,
		Currency:    s.currency,
		Status:      domain.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, toAppError(fmt.Errorf("create payment: %w", err))
	}
	s.log.Info().
		Str("reference", ref).
		Str("external_ref", checkout.ExternalRef).
		Int64("amount", req.Amount).
		Int64("fiat_amount", fiat).
		Msg("topup initiated")
	return &ports.TopupResult{Payment: p, ClientSecret: checkout.ClientSecret}, nil
}

// CompleteTopup polls the gateway. A paid checkout settles the payment and
// credits the wallet in one unit; a failed one marks the payment failed.
// Settled payments are returned as they are.
func (s *WalletServiceImpl) CompleteTopup(ctx context.Context, userID uuid.UUID, reference string) (*domain.Payment, error) {
	if s.gateway == nil {
		return nil, apperror.ErrGatewayFailure(errors.New("payment gateway not configured"))
	}
	p, err := s.payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get payment: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrNotFound("payment")
	}
	if p.UserID != userID {
		return nil, apperror.ErrUnauthorized()
	}
	if p.Status != domain.PaymentStatusPending {
		return p, nil
	}

	status, err := s.gateway.Status(ctx, p.ExternalRef)
	if err != nil {
		return nil, apperror.ErrGatewayFailure(err)
	}

	switch status {
	case domain.GatewayStatusPending:
		return p, nil
	case domain.GatewayStatusFailed:
		err = s.tx.run(ctx, "fail topup", func(tx pgx.Tx) error {
			if _, err := s.payments.Settle(ctx, tx, p.Reference, domain.PaymentStatusFailed); err != nil {
				return fmt.Errorf("settle payment: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return s.reloadPayment(ctx, p)
	}

	var row *domain.LedgerTransaction
	err = s.tx.run(ctx, "complete topup", func(tx pgx.Tx) error {
		ok, err := s.payments.Settle(ctx, tx, p.Reference, domain.PaymentStatusCompleted)
		if err != nil {
			return fmt.Errorf("settle payment: %w", err)
		}
		if !ok {
			return apperror.ErrNotFoundOrAlreadyProcessed()
		}
		if _, err := s.balances.LockOrdered(ctx, tx, p.WalletID); err != nil {
			return err
		}
		if err := s.balances.Credit(ctx, tx, p.WalletID, p.Amount); err != nil {
			return err
		}
		walletID := p.WalletID
		row, err = s.recorder.Record(ctx, tx, LedgerEntry{
			Reference:   p.Reference,
			Type:        domain.TransactionTypeDeposit,
			ReceiverID:  &walletID,
			Amount:      p.Amount,
			Status:      domain.TransactionStatusCompleted,
			Description: "gateway top-up " + p.ExternalRef,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("reference", p.Reference).Int64("amount", p.Amount).Msg("topup completed")
	s.dispatch.Ledger(ctx, row)
	s.dispatch.Audit(ctx, newAuditEntry(&userID, domain.ActorStudent, domain.AuditActionTopup, "payment", p.Reference,
		map[string]any{"amount": p.Amount, "fiat_amount": p.FiatAmount, "currency": p.Currency}))
	s.dispatch.Notify(ctx, domain.Notification{
		RecipientID:   userID,
		RecipientKind: domain.OwnerStudent,
		Kind:          domain.NotifyTopupCompleted,
		Message:       fmt.Sprintf("Your top-up of %s CUT has arrived.", money.Format(p.Amount)),
		Data:          map[string]string{"reference": p.Reference},
	})
	return s.reloadPayment(ctx, p)
}

// ---- helpers ----

func (s *WalletServiceImpl) activeStudentWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	w, err := s.GetBalance(ctx, userID, domain.OwnerStudent)
	if err != nil {
		return nil, err
	}
	if !w.Active {
		return nil, apperror.ErrInactiveParty("wallet")
	}
	return w, nil
}

func (s *WalletServiceImpl) activeMerchant(ctx context.Context, code string) (*domain.Merchant, error) {
	m, err := s.merchants.GetByCode(ctx, code)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get merchant: %w", err))
	}
	if m == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	if !m.IsActive() {
		return nil, apperror.ErrInactiveParty("merchant")
	}
	return m, nil
}

// issueQuote issues the OTP, stores the quote for its lifetime and sends
// the code to the student.
func (s *WalletServiceImpl) issueQuote(ctx context.Context, q *domain.Quote, purpose domain.OTPPurpose) error {
	code, otp, err := s.otp.Issue(ctx, domain.StudentSubject(q.OwnerID), purpose, 0)
	if err != nil {
		return err
	}
	q.ExpiresAt = s.now().UTC().Add(s.quoteTTL)
	if err := s.quotes.Save(ctx, q, s.quoteTTL); err != nil {
		return apperror.InternalError(fmt.Errorf("save quote: %w", err))
	}
	s.dispatch.Notify(ctx, domain.Notification{
		RecipientID:   q.OwnerID,
		RecipientKind: domain.OwnerStudent,
		Kind:          domain.NotifyOTPIssued,
		Message: fmt.Sprintf("Your CUTcoin %s code is %s. It expires at %s UTC.",
			purpose, code, otp.ExpiresAt.Format("15:04")),
		Data: map[string]string{"reference": q.Reference, "code": code},
	})
	return nil
}

func (s *WalletServiceImpl) loadQuote(ctx context.Context, req ports.ConfirmRequest, kind domain.QuoteKind) (*domain.Quote, error) {
	q, err := s.quotes.Get(ctx, req.Reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load quote: %w", err))
	}
	if q == nil || q.Kind != kind {
		return nil, apperror.ErrNotFound("quote")
	}
	if q.OwnerID != req.UserID {
		return nil, apperror.ErrUnauthorized()
	}
	return q, nil
}

func (s *WalletServiceImpl) dropQuote(ctx context.Context, reference string) {
	if err := s.quotes.Delete(ctx, reference); err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("failed to delete quote")
	}
}

func (s *WalletServiceImpl) reloadPayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	fresh, err := s.payments.GetByReference(ctx, p.Reference)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("reload payment: %w", err))
	}
	if fresh == nil {
		return nil, apperror.ErrNotFound("payment")
	}
	return fresh, nil
}

func (s *WalletServiceImpl) afterInitiate(ctx context.Context, m *domain.MerchantTransaction, merchant *domain.Merchant) {
	s.log.Info().
		Str("reference", m.Reference).
		Str("type", string(m.Type)).
		Str("merchant", merchant.Code).
		Int64("amount", m.Amount).
		Int64("hold", m.Hold()).
		Msg("merchant transaction pending")
	s.dispatch.Notify(ctx, domain.Notification{
		RecipientID:   merchant.ID,
		RecipientKind: domain.OwnerMerchant,
		Kind:          domain.NotifyMerchantTxPending,
		Message:       fmt.Sprintf("New %s of %s CUT awaiting confirmation.", m.Type, money.Format(m.Amount)),
		Data:          map[string]string{"reference": m.Reference, "type": string(m.Type)},
	})
}

func (s *WalletServiceImpl) afterClose(ctx context.Context, m *domain.MerchantTransaction, actorID *uuid.UUID, action domain.AuditAction) {
	actor := domain.ActorSystem
	if m.ResolvedBy != nil {
		actor = *m.ResolvedBy
	}
	s.log.Info().
		Str("reference", m.Reference).
		Str("status", string(m.Status)).
		Str("by", string(actor)).
		Int64("refund", m.Hold()).
		Msg("merchant transaction closed")

	s.dispatch.Audit(ctx, newAuditEntry(actorID, actor, action, "merchant_transaction", m.Reference,
		map[string]any{"type": m.Type, "amount": m.Amount, "refund": m.Hold()}))

	note := domain.Notification{
		Kind:    domain.NotifyMerchantTxClosed,
		Message: fmt.Sprintf("The %s %s of %s CUT was %s.", m.Type, m.Reference, money.Format(m.Amount), m.Status),
		Data:    map[string]string{"reference": m.Reference, "status": string(m.Status)},
	}
	if actor != domain.ActorStudent {
		student := note
		student.RecipientID, student.RecipientKind = m.SubjectID, domain.OwnerStudent
		s.dispatch.Notify(ctx, student)
	}
	if actor != domain.ActorMerchant {
		merchant := note
		merchant.RecipientID, merchant.RecipientKind = m.MerchantID, domain.OwnerMerchant
		s.dispatch.Notify(ctx, merchant)
	}
}
