package ports

import (
	"context"
	"time"

	"cutcoin-wallet/internal/core/domain"

	"github.com/google/uuid"
)

// HashService hashes short secrets (one-time codes) with Argon2id.
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(subjectID uuid.UUID, role domain.OwnerType) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	SubjectID uuid.UUID
	Role      domain.OwnerType
}

// ConfigProvider exposes runtime business settings by key.
type ConfigProvider interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// QuoteStore keeps priced two-phase operations until they are confirmed.
type QuoteStore interface {
	Save(ctx context.Context, quote *domain.Quote, ttl time.Duration) error
	// Get returns nil, nil for unknown or expired references.
	Get(ctx context.Context, reference string) (*domain.Quote, error)
	Delete(ctx context.Context, reference string) error
}

// RateLimiter is a fixed-window counter.
type RateLimiter interface {
	// Allow counts one hit against key and reports whether it fits limit.
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
	// Count returns the hits already recorded in key's current window.
	Count(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// Notifier delivers user-facing messages (OTP codes, receipts).
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// EventPublisher emits domain events for downstream consumers.
type EventPublisher interface {
	PublishLedger(ctx context.Context, t *domain.LedgerTransaction) error
	PublishRisk(ctx context.Context, s domain.RiskSignal) error
}

// PaymentGateway is the external processor behind self-service top-ups.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*domain.Checkout, error)
	Status(ctx context.Context, externalRef string) (domain.GatewayStatus, error)
}

// CheckoutRequest describes a gateway charge. FiatAmount is in the
// currency's minor units.
type CheckoutRequest struct {
	Reference  string
	UserID     uuid.UUID
	FiatAmount int64
	Currency   string
}

// --- Service Ports (Business Logic) ---

// WalletService is the orchestrator every API entry point goes through.
type WalletService interface {
	GetBalance(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error)
	ListHistory(ctx context.Context, params HistoryParams) ([]domain.LedgerTransaction, int64, error)

	InitiateTransfer(ctx context.Context, req TransferRequest) (*domain.Quote, error)
	ConfirmTransfer(ctx context.Context, req ConfirmRequest) (*domain.LedgerTransaction, error)

	InitiateWithdrawal(ctx context.Context, req MerchantCashRequest) (*domain.Quote, error)
	ConfirmWithdrawal(ctx context.Context, req ConfirmRequest) (*domain.MerchantTransaction, error)
	InitiateMerchantDeposit(ctx context.Context, req MerchantCashRequest) (*domain.MerchantTransaction, error)

	MerchantConfirm(ctx context.Context, merchantID uuid.UUID, reference string, typ domain.MerchantTxType) (*domain.MerchantTransaction, error)
	MerchantReject(ctx context.Context, merchantID uuid.UUID, reference string) (*domain.MerchantTransaction, error)
	CancelMerchantTransaction(ctx context.Context, userID uuid.UUID, reference string) (*domain.MerchantTransaction, error)
	ListPendingForStudent(ctx context.Context, userID uuid.UUID) ([]domain.MerchantTransaction, error)
	ListPendingForMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.MerchantTransaction, error)

	InitiateTopup(ctx context.Context, req TopupRequest) (*TopupResult, error)
	CompleteTopup(ctx context.Context, userID uuid.UUID, reference string) (*domain.Payment, error)
}

// HistoryParams selects a page of an owner's ledger history.
type HistoryParams struct {
	OwnerID   uuid.UUID
	OwnerType domain.OwnerType
	Type      *domain.TransactionType
	Status    *domain.TransactionStatus
	Page      int
	PageSize  int
}

// TransferRequest holds validated input for a peer transfer.
type TransferRequest struct {
	SenderID         uuid.UUID
	RecipientAddress string
	Amount           int64
	Description      string
}

// MerchantCashRequest holds validated input for a merchant deposit or
// withdrawal.
type MerchantCashRequest struct {
	UserID       uuid.UUID
	MerchantCode string
	Amount       int64
}

// ConfirmRequest completes a quoted operation with the one-time code.
type ConfirmRequest struct {
	UserID    uuid.UUID
	Reference string
	Code      string
}

// TopupRequest holds validated input for a gateway top-up.
type TopupRequest struct {
	UserID uuid.UUID
	Amount int64
}

// TopupResult is returned once the gateway checkout exists.
type TopupResult struct {
	Payment      *domain.Payment
	ClientSecret string
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}
