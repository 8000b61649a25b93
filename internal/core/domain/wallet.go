package domain

import (
	"time"

	"github.com/google/uuid"
)

// OwnerType distinguishes student wallets from merchant wallets.
type OwnerType string

const (
	OwnerStudent  OwnerType = "student"
	OwnerMerchant OwnerType = "merchant"
)

// Wallet holds a balance in minor units (1 CUT = 100). Wallets are never
// deleted; Balance is never negative.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	OwnerType OwnerType `json:"owner_type"`
	Address   string    `json:"address"`
	Balance   int64     `json:"balance"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Covers reports whether the wallet can pay amount. A negative amount is
// never covered.
func (w *Wallet) Covers(amount int64) bool {
	return amount >= 0 && w.Balance >= amount
}
