package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionTransfer            AuditAction = "TRANSFER"
	AuditActionMerchantComplete    AuditAction = "MERCHANT_TX_COMPLETED"
	AuditActionMerchantCancel      AuditAction = "MERCHANT_TX_CANCELLED"
	AuditActionMerchantReject      AuditAction = "MERCHANT_TX_REJECTED"
	AuditActionMerchantExpire      AuditAction = "MERCHANT_TX_EXPIRED"
	AuditActionTopup               AuditAction = "TOPUP"
	AuditActionRiskAmountAnomaly   AuditAction = "RISK_AMOUNT_ANOMALY"
	AuditActionRiskVelocityAnomaly AuditAction = "RISK_VELOCITY_ANOMALY"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	ActorID      *uuid.UUID  `json:"actor_id,omitempty"`
	Actor        Actor       `json:"actor"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time   `json:"created_at"`
}
