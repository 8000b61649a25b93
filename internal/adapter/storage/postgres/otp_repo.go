package postgres

import (
	"context"
	"fmt"
	"time"

	"cutcoin-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const otpColumns = `id, user_id, merchant_id, purpose, code_hash, expires_at, used, used_at, created_at`

// OTPRepo implements ports.OTPRepository.
type OTPRepo struct {
	pool Pool
}

// NewOTPRepo creates a new OTPRepo.
func NewOTPRepo(pool Pool) *OTPRepo {
	return &OTPRepo{pool: pool}
}

// Create stores a freshly issued code hash.
func (r *OTPRepo) Create(ctx context.Context, c *domain.OneTimeCode) error {
	query := `INSERT INTO otp_codes (` + otpColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.UserID, c.MerchantID, c.Purpose, c.CodeHash, c.ExpiresAt, c.Used, c.UsedAt, c.CreatedAt,
	)
	if err != nil {
		return wrapErr("insert otp code", err)
	}
	return nil
}

// ListActiveForUpdate locks the subject's usable codes for purpose, newest
// first, so two verifications of the same code serialize.
func (r *OTPRepo) ListActiveForUpdate(ctx context.Context, tx pgx.Tx, subject domain.Subject, purpose domain.OTPPurpose, now time.Time) ([]domain.OneTimeCode, error) {
	column := "user_id"
	if subject.Kind == domain.OwnerMerchant {
		column = "merchant_id"
	}
	query := fmt.Sprintf(`SELECT %s FROM otp_codes
		WHERE %s = $1 AND purpose = $2 AND used = false AND expires_at > $3
		ORDER BY created_at DESC FOR UPDATE`, otpColumns, column)

	rows, err := tx.Query(ctx, query, subject.ID, purpose, now)
	if err != nil {
		return nil, wrapErr("list active otp codes", err)
	}
	defer rows.Close()

	var codes []domain.OneTimeCode
	for rows.Next() {
		var c domain.OneTimeCode
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.MerchantID, &c.Purpose, &c.CodeHash,
			&c.ExpiresAt, &c.Used, &c.UsedAt, &c.CreatedAt,
		); err != nil {
			return nil, wrapErr("scan otp code", err)
		}
		codes = append(codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate otp codes: %w", err)
	}
	return codes, nil
}

// MarkUsed consumes a code. False means it was already used.
func (r *OTPRepo) MarkUsed(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE otp_codes SET used = true, used_at = $1 WHERE id = $2 AND used = false`

	tag, err := tx.Exec(ctx, query, at, id)
	if err != nil {
		return false, wrapErr("mark otp used", err)
	}
	return tag.RowsAffected() == 1, nil
}
