package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus tracks a gateway-backed top-up.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is a student's self-deposit paid through the external gateway.
// Amount is CUT minor units; FiatAmount is the charged amount in the
// gateway currency's minor units.
type Payment struct {
	ID          uuid.UUID     `json:"id"`
	Reference   string        `json:"reference"`
	ExternalRef string        `json:"external_ref"`
	UserID      uuid.UUID     `json:"user_id"`
	WalletID    uuid.UUID     `json:"wallet_id"`
	Amount      int64         `json:"amount"`
	FiatAmount  int64         `json:"fiat_amount"`
	Currency    string        `json:"currency"`
	Status      PaymentStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// GatewayStatus is the gateway's view of a checkout, reduced to what the
// wallet acts on.
type GatewayStatus string

const (
	GatewayStatusPending   GatewayStatus = "pending"
	GatewayStatusSucceeded GatewayStatus = "succeeded"
	GatewayStatusFailed    GatewayStatus = "failed"
)

// Checkout is what the gateway returns for a new top-up.
type Checkout struct {
	ExternalRef  string `json:"external_ref"`
	ClientSecret string `json:"client_secret"`
}
