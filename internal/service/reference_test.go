package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReferenceGenerator_Format(t *testing.T) {
	g := NewReferenceGenerator()
	g.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("WAT", 3600)) }

	ref := g.New(RefWithdrawal)
	assert.Regexp(t, `^WDR-20260102020405-[0-9A-F]{12}$`, ref)
}

func TestReferenceGenerator_Unique(t *testing.T) {
	g := NewReferenceGenerator()
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		ref := g.New(RefTransfer)
		_, dup := seen[ref]
		assert.False(t, dup, "duplicate reference %s", ref)
		seen[ref] = struct{}{}
	}
}
