package domain

import (
	"time"

	"github.com/google/uuid"
)

// RiskKind names an advisory anomaly raised on a transfer.
type RiskKind string

const (
	RiskAmountAnomaly   RiskKind = "AMOUNT_ANOMALY"
	RiskVelocityAnomaly RiskKind = "VELOCITY_ANOMALY"
)

// RiskSignal never blocks a transfer. It is logged, audited and published.
type RiskSignal struct {
	Kind      RiskKind  `json:"kind"`
	UserID    uuid.UUID `json:"user_id"`
	Reference string    `json:"reference"`
	Amount    int64     `json:"amount"`
	Detail    string    `json:"detail"`
	RaisedAt  time.Time `json:"raised_at"`
}

// AuditAction maps the signal to its audit log action.
func (s RiskSignal) AuditAction() AuditAction {
	if s.Kind == RiskVelocityAnomaly {
		return AuditActionRiskVelocityAnomaly
	}
	return AuditActionRiskAmountAnomaly
}
