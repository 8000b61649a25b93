package service

import (
	"context"
	"sync"
	"time"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"

	"github.com/rs/zerolog"
)

const defaultDispatchTimeout = 5 * time.Second

// Dispatcher runs post-commit side effects in the background. A failure is
// logged and never reaches the caller or the committed state.
type Dispatcher struct {
	notifier ports.Notifier
	events   ports.EventPublisher
	audit    *AuditService
	timeout  time.Duration
	log      zerolog.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(notifier ports.Notifier, events ports.EventPublisher, audit *AuditService, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		events:   events,
		audit:    audit,
		timeout:  defaultDispatchTimeout,
		log:      log,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, n domain.Notification) {
	if d.notifier == nil {
		return
	}
	d.spawn(ctx, "notify", func(ctx context.Context) error { return d.notifier.Notify(ctx, n) })
}

func (d *Dispatcher) Ledger(ctx context.Context, t *domain.LedgerTransaction) {
	if d.events == nil || t == nil {
		return
	}
	d.spawn(ctx, "publish ledger", func(ctx context.Context) error { return d.events.PublishLedger(ctx, t) })
}

// Risk logs, audits and publishes an advisory signal.
func (d *Dispatcher) Risk(ctx context.Context, s domain.RiskSignal) {
	d.log.Warn().
		Str("kind", string(s.Kind)).
		Str("user_id", s.UserID.String()).
		Str("reference", s.Reference).
		Int64("amount", s.Amount).
		Str("detail", s.Detail).
		Msg("risk signal raised")

	userID := s.UserID
	d.Audit(ctx, newAuditEntry(&userID, domain.ActorSystem, s.AuditAction(), "transaction", s.Reference,
		map[string]any{"kind": s.Kind, "amount": s.Amount, "detail": s.Detail}))
	if d.events != nil {
		d.spawn(ctx, "publish risk", func(ctx context.Context) error { return d.events.PublishRisk(ctx, s) })
	}
}

func (d *Dispatcher) Audit(ctx context.Context, entry *domain.AuditLog) {
	if d.audit == nil {
		return
	}
	d.spawn(ctx, "audit", func(ctx context.Context) error { return d.audit.Log(ctx, entry) })
}

// Wait blocks until every dispatched side effect has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) spawn(ctx context.Context, op string, fn func(context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			d.log.Warn().Err(err).Str("op", op).Msg("post-commit dispatch failed")
		}
	}()
}
