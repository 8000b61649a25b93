package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuoteKind is the two-phase operation a quote belongs to.
type QuoteKind string

const (
	QuoteTransfer   QuoteKind = "transfer"
	QuoteWithdrawal QuoteKind = "withdrawal"
)

// Quote is the result of the first phase of a transfer or withdrawal: the
// priced operation waiting for the student's one-time code.
type Quote struct {
	Reference         string    `json:"reference"`
	Kind              QuoteKind `json:"kind"`
	OwnerID           uuid.UUID `json:"owner_id"`
	SenderWalletID    uuid.UUID `json:"sender_wallet_id"`
	RecipientWalletID uuid.UUID `json:"recipient_wallet_id,omitempty"`
	RecipientAddress  string    `json:"recipient_address,omitempty"`
	MerchantID        uuid.UUID `json:"merchant_id,omitempty"`
	MerchantCode      string    `json:"merchant_code,omitempty"`
	Amount            int64     `json:"amount"`
	Fee               int64     `json:"fee"`
	Description       string    `json:"description,omitempty"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// Total is what the payer is debited.
func (q *Quote) Total() int64 {
	return q.Amount + q.Fee
}
