package domain

import (
	"github.com/google/uuid"
)

// NotificationKind identifies the message template downstream senders use.
type NotificationKind string

const (
	NotifyOTPIssued          NotificationKind = "otp.issued"
	NotifyTransferSent       NotificationKind = "transfer.sent"
	NotifyTransferReceived   NotificationKind = "transfer.received"
	NotifyMerchantTxPending  NotificationKind = "merchant_tx.pending"
	NotifyMerchantTxComplete NotificationKind = "merchant_tx.completed"
	NotifyMerchantTxClosed   NotificationKind = "merchant_tx.closed"
	NotifyTopupCompleted     NotificationKind = "topup.completed"
)

// Notification is handed to the dispatcher after commit. Delivery (SMS,
// email, push) is a downstream concern.
type Notification struct {
	RecipientID   uuid.UUID         `json:"recipient_id"`
	RecipientKind OwnerType         `json:"recipient_kind"`
	Kind          NotificationKind  `json:"kind"`
	Message       string            `json:"message"`
	Data          map[string]string `json:"data,omitempty"`
}
