package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OTPRepo implements ports.OTPRepository.
type OTPRepo struct{ s *Store }

func NewOTPRepo(s *Store) *OTPRepo { return &OTPRepo{s: s} }

func (r *OTPRepo) Create(ctx context.Context, c *domain.OneTimeCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.otps[c.ID] = &cp
	return nil
}

func (r *OTPRepo) ListActiveForUpdate(ctx context.Context, tx pgx.Tx, subject domain.Subject, purpose domain.OTPPurpose, now time.Time) ([]domain.OneTimeCode, error) {
	if _, err := asTx(tx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.OneTimeCode
	for _, c := range r.s.otps {
		if c.Subject() == subject && c.Purpose == purpose && c.Usable(now) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *OTPRepo) MarkUsed(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error) {
	t, err := asTx(tx)
	if err != nil {
		return false, err
	}
	changed := false
	err = t.write(func() (func(), error) {
		c, ok := r.s.otps[id]
		if !ok || c.Used {
			return nil, nil
		}
		c.Used = true
		c.UsedAt = &at
		changed = true
		return func() {
			c.Used = false
			c.UsedAt = nil
		}, nil
	})
	return changed, err
}

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct{ s *Store }

func NewPaymentRepo(s *Store) *PaymentRepo { return &PaymentRepo{s: s} }

func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.payments[p.Reference]; exists {
		return fmt.Errorf("insert payment: %w", ports.ErrDuplicateReference)
	}
	cp := *p
	r.s.payments[p.Reference] = &cp
	return nil
}

func (r *PaymentRepo) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.payments[reference]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *PaymentRepo) Settle(ctx context.Context, tx pgx.Tx, reference string, status domain.PaymentStatus) (bool, error) {
	t, err := asTx(tx)
	if err != nil {
		return false, err
	}
	changed := false
	err = t.write(func() (func(), error) {
		p, ok := r.s.payments[reference]
		if !ok || p.Status != domain.PaymentStatusPending {
			return nil, nil
		}
		prev := *p
		p.Status = status
		p.UpdatedAt = time.Now().UTC()
		changed = true
		return func() { *p = prev }, nil
	})
	return changed, err
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct{ s *Store }

func NewAuditRepo(s *Store) *AuditRepo { return &AuditRepo{s: s} }

func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *log)
	return nil
}

// Entries returns a snapshot of the audit trail.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.AuditLog(nil), r.s.audit...)
}

// SettingsRepo implements ports.SettingsRepository.
type SettingsRepo struct{ s *Store }

func NewSettingsRepo(s *Store) *SettingsRepo { return &SettingsRepo{s: s} }

func (r *SettingsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.settings[key]
	return v, ok, nil
}

func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.settings[key] = value
	return nil
}
