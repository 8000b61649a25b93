package service

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reference prefixes, one per kind of money movement.
const (
	RefTransfer   = "TRF"
	RefWithdrawal = "WDR"
	RefDeposit    = "DEP"
	RefTopup      = "TOP"
)

// ReferenceGenerator issues <PREFIX>-<yyyymmddHHMMSS>-<12 hex> references.
// The suffix carries 48 random bits; storage enforces uniqueness.
type ReferenceGenerator struct {
	now func() time.Time
}

func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{now: time.Now}
}

func (g *ReferenceGenerator) New(prefix string) string {
	id := uuid.New()
	return prefix + "-" + g.now().UTC().Format("20060102150405") + "-" + strings.ToUpper(hex.EncodeToString(id[:6]))
}
