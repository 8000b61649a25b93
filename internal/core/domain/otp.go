package domain

import (
	"time"

	"github.com/google/uuid"
)

// OTPPurpose scopes a one-time code to a single kind of action.
type OTPPurpose string

const (
	OTPPurposeWithdrawal           OTPPurpose = "withdrawal"
	OTPPurposeTransfer             OTPPurpose = "transfer"
	OTPPurposeMerchantRegistration OTPPurpose = "merchant_registration"
)

// Subject is the student or merchant a code is issued to.
type Subject struct {
	ID   uuid.UUID
	Kind OwnerType
}

func StudentSubject(id uuid.UUID) Subject  { return Subject{ID: id, Kind: OwnerStudent} }
func MerchantSubject(id uuid.UUID) Subject { return Subject{ID: id, Kind: OwnerMerchant} }

func (s Subject) String() string {
	return string(s.Kind) + ":" + s.ID.String()
}

// OneTimeCode is a hashed short-lived code. Exactly one of UserID and
// MerchantID is set. Rows are never deleted.
type OneTimeCode struct {
	ID         uuid.UUID  `json:"id"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	MerchantID *uuid.UUID `json:"merchant_id,omitempty"`
	Purpose    OTPPurpose `json:"purpose"`
	CodeHash   string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Used       bool       `json:"used"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewOneTimeCode builds an unused code row for subject.
func NewOneTimeCode(subject Subject, purpose OTPPurpose, codeHash string, now time.Time, ttl time.Duration) *OneTimeCode {
	c := &OneTimeCode{
		ID:        uuid.New(),
		Purpose:   purpose,
		CodeHash:  codeHash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	id := subject.ID
	if subject.Kind == OwnerMerchant {
		c.MerchantID = &id
	} else {
		c.UserID = &id
	}
	return c
}

// Subject returns who the code was issued to.
func (c *OneTimeCode) Subject() Subject {
	if c.MerchantID != nil {
		return MerchantSubject(*c.MerchantID)
	}
	if c.UserID != nil {
		return StudentSubject(*c.UserID)
	}
	return Subject{}
}

// Usable reports whether the code is unused and unexpired at now.
func (c *OneTimeCode) Usable(now time.Time) bool {
	return !c.Used && now.Before(c.ExpiresAt)
}
