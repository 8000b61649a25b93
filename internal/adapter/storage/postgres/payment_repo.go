package postgres

import (
	"context"
	"errors"

	"cutcoin-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, reference, external_ref, user_id, wallet_id, amount, fiat_amount, currency, status, created_at, updated_at`

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Create inserts a pending top-up.
func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Reference, p.ExternalRef, p.UserID, p.WalletID, p.Amount, p.FiatAmount,
		p.Currency, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return wrapInsertErr("insert payment", err)
	}
	return nil
}

// GetByReference fetches a top-up by reference.
func (r *PaymentRepo) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = $1`

	p := &domain.Payment{}
	err := r.pool.QueryRow(ctx, query, reference).Scan(
		&p.ID, &p.Reference, &p.ExternalRef, &p.UserID, &p.WalletID, &p.Amount, &p.FiatAmount,
		&p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get payment by reference", err)
	}
	return p, nil
}

// Settle moves a pending top-up to its final status.
func (r *PaymentRepo) Settle(ctx context.Context, tx pgx.Tx, reference string, status domain.PaymentStatus) (bool, error) {
	query := `UPDATE payments SET status = $1, updated_at = NOW() WHERE reference = $2 AND status = 'pending'`

	tag, err := tx.Exec(ctx, query, status, reference)
	if err != nil {
		return false, wrapErr("settle payment", err)
	}
	return tag.RowsAffected() == 1, nil
}
