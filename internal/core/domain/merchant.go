package domain

import (
	"time"

	"github.com/google/uuid"
)

// MerchantStatus represents the lifecycle state of a merchant.
type MerchantStatus string

const (
	MerchantStatusActive      MerchantStatus = "ACTIVE"
	MerchantStatusSuspended   MerchantStatus = "SUSPENDED"
	MerchantStatusDeactivated MerchantStatus = "DEACTIVATED"
)

// Merchant is a campus vendor acting as a cash-in/cash-out agent. Code is
// the short identifier students type when choosing a merchant.
type Merchant struct {
	ID        uuid.UUID      `json:"id"`
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Status    MerchantStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsActive returns true if the merchant can take part in transactions.
func (m *Merchant) IsActive() bool {
	return m.Status == MerchantStatusActive
}
