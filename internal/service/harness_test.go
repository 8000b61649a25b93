package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"cutcoin-wallet/internal/adapter/storage/memory"
	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// cut converts whole CUT to minor units.
func cut(units int64) int64 { return units * 100 }

type captureNotifier struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func (c *captureNotifier) Notify(ctx context.Context, n domain.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, n)
	return nil
}

func (c *captureNotifier) find(kind domain.NotificationKind, reference string) (domain.Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.notes {
		if n.Kind == kind && n.Data["reference"] == reference {
			return n, true
		}
	}
	return domain.Notification{}, false
}

type captureEvents struct {
	mu     sync.Mutex
	ledger []domain.LedgerTransaction
	risk   []domain.RiskSignal
}

func (c *captureEvents) PublishLedger(ctx context.Context, t *domain.LedgerTransaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ledger = append(c.ledger, *t)
	return nil
}

func (c *captureEvents) PublishRisk(ctx context.Context, s domain.RiskSignal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.risk = append(c.risk, s)
	return nil
}

type fakeGateway struct {
	mu      sync.Mutex
	status  domain.GatewayStatus
	created []ports.CheckoutRequest
	err     error
}

func (g *fakeGateway) CreateCheckout(ctx context.Context, req ports.CheckoutRequest) (*domain.Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.created = append(g.created, req)
	return &domain.Checkout{ExternalRef: fmt.Sprintf("pi_%d", len(g.created)), ClientSecret: "secret"}, nil
}

func (g *fakeGateway) Status(ctx context.Context, externalRef string) (domain.GatewayStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.status, nil
}

type harness struct {
	svc         *WalletServiceImpl
	store       *memory.Store
	wallets     *memory.WalletRepo
	merchants   *memory.MerchantRepo
	ledger      *memory.LedgerRepo
	merchantTxs *memory.MerchantTxRepo
	payments    *memory.PaymentRepo
	otps        *memory.OTPRepo
	audit       *memory.AuditRepo
	settings    *memory.SettingsRepo
	quotes      *memory.QuoteStore
	notes       *captureNotifier
	events      *captureEvents
	gateway     *fakeGateway
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

// newHarnessWith lets a test adjust the service options before wiring.
func newHarnessWith(t *testing.T, tune func(*WalletOptions)) *harness {
	t.Helper()
	opts := WalletOptions{
		OTPTTL:         10 * time.Minute,
		OTPMaxAttempts: 5,
		OTPMaxLive:     5,
		TxRetries:      3,
		Currency:       "usd",
		HashParams:     cheapArgon2,
	}
	if tune != nil {
		tune(&opts)
	}
	s := memory.NewStore()
	h := &harness{
		store:       s,
		wallets:     memory.NewWalletRepo(s),
		merchants:   memory.NewMerchantRepo(s),
		ledger:      memory.NewLedgerRepo(s),
		merchantTxs: memory.NewMerchantTxRepo(s),
		payments:    memory.NewPaymentRepo(s),
		otps:        memory.NewOTPRepo(s),
		audit:       memory.NewAuditRepo(s),
		settings:    memory.NewSettingsRepo(s),
		quotes:      memory.NewQuoteStore(),
		notes:       &captureNotifier{},
		events:      &captureEvents{},
		gateway:     &fakeGateway{status: domain.GatewayStatusPending},
	}
	h.svc = NewWalletService(
		WalletRepos{
			Wallets:     h.wallets,
			Merchants:   h.merchants,
			Ledger:      h.ledger,
			MerchantTxs: h.merchantTxs,
			Payments:    h.payments,
			OTPs:        h.otps,
			Audit:       h.audit,
			Settings:    h.settings,
			Transactor:  s,
		},
		WalletCollaborators{
			Quotes:   h.quotes,
			Limiter:  memory.NewRateLimiter(),
			Notifier: h.notes,
			Events:   h.events,
			Gateway:  h.gateway,
		},
		opts,
		zerolog.Nop(),
	)
	return h
}

func (h *harness) student(t *testing.T, balance int64) (uuid.UUID, *domain.Wallet) {
	t.Helper()
	userID := uuid.New()
	w := &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   userID,
		OwnerType: domain.OwnerStudent,
		Address:   "CUT-" + userID.String()[:12],
		Balance:   balance,
		Active:    true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, h.wallets.Create(context.Background(), w))
	return userID, w
}

func (h *harness) merchant(t *testing.T, code string, balance int64) (*domain.Merchant, *domain.Wallet) {
	t.Helper()
	m := &domain.Merchant{
		ID:        uuid.New(),
		Code:      code,
		Name:      "Campus " + code,
		Status:    domain.MerchantStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, h.merchants.Create(context.Background(), m))
	w := &domain.Wallet{
		ID:        uuid.New(),
		OwnerID:   m.ID,
		OwnerType: domain.OwnerMerchant,
		Address:   "MER-" + code,
		Balance:   balance,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, h.wallets.Create(context.Background(), w))
	return m, w
}

func (h *harness) balance(t *testing.T, walletID uuid.UUID) int64 {
	t.Helper()
	w, err := h.wallets.GetByID(context.Background(), walletID)
	require.NoError(t, err)
	require.NotNil(t, w)
	return w.Balance
}

// code returns the OTP sent for a quote.
func (h *harness) code(t *testing.T, reference string) string {
	t.Helper()
	h.svc.Drain()
	n, ok := h.notes.find(domain.NotifyOTPIssued, reference)
	require.True(t, ok, "no otp notification for %s", reference)
	return n.Data["code"]
}

func (h *harness) transfer(t *testing.T, userID uuid.UUID, to *domain.Wallet, amount int64) (*domain.LedgerTransaction, error) {
	t.Helper()
	q, err := h.svc.InitiateTransfer(context.Background(), ports.TransferRequest{
		SenderID:         userID,
		RecipientAddress: to.Address,
		Amount:           amount,
	})
	if err != nil {
		return nil, err
	}
	return h.svc.ConfirmTransfer(context.Background(), ports.ConfirmRequest{
		UserID:    userID,
		Reference: q.Reference,
		Code:      h.code(t, q.Reference),
	})
}

// seedTransfer writes a completed transfer row directly.
func (h *harness) seedTransfer(t *testing.T, from, to uuid.UUID, amount int64, at time.Time) {
	t.Helper()
	ctx := context.Background()
	tx, err := h.store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, h.ledger.Create(ctx, tx, &domain.LedgerTransaction{
		ID:         uuid.New(),
		Reference:  "TRF-SEED-" + uuid.NewString()[:8],
		SenderID:   &from,
		ReceiverID: &to,
		Amount:     amount,
		Type:       domain.TransactionTypeTransfer,
		Status:     domain.TransactionStatusCompleted,
		CreatedAt:  at,
	}))
	require.NoError(t, tx.Commit(ctx))
}
