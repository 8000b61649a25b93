package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const merchantTxColumns = `id, reference, subject_id, merchant_id, type, amount, fee, status,
	initiated_by, resolved_by, created_at, completed_at, cancelled_at`

// MerchantTxRepo implements ports.MerchantTxRepository.
type MerchantTxRepo struct {
	pool Pool
}

// NewMerchantTxRepo creates a new MerchantTxRepo.
func NewMerchantTxRepo(pool Pool) *MerchantTxRepo {
	return &MerchantTxRepo{pool: pool}
}

// Create inserts a pending merchant transaction within a database transaction.
func (r *MerchantTxRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.MerchantTransaction) error {
	query := `INSERT INTO merchant_transactions (` + merchantTxColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := tx.Exec(ctx, query,
		m.ID, m.Reference, m.SubjectID, m.MerchantID, m.Type, m.Amount, m.Fee, m.Status,
		m.InitiatedBy, m.ResolvedBy, m.CreatedAt, m.CompletedAt, m.CancelledAt,
	)
	if err != nil {
		return wrapInsertErr("insert merchant transaction", err)
	}
	return nil
}

// GetByReference fetches a merchant transaction by reference.
func (r *MerchantTxRepo) GetByReference(ctx context.Context, reference string) (*domain.MerchantTransaction, error) {
	query := `SELECT ` + merchantTxColumns + ` FROM merchant_transactions WHERE reference = $1`
	return scanMerchantTx(r.pool.QueryRow(ctx, query, reference), "get merchant transaction by reference")
}

// Resolve is the single guarded transition out of pending. The status
// predicate makes concurrent resolutions race on the row lock, and only the
// first one sees a match.
func (r *MerchantTxRepo) Resolve(ctx context.Context, tx pgx.Tx, p ports.ResolveParams) (*domain.MerchantTransaction, error) {
	args := []any{p.To, p.By, p.At, p.Reference}
	set := "status = $1, resolved_by = $2, "
	if p.To == domain.MerchantTxCompleted {
		set += "completed_at = $3"
	} else {
		set += "cancelled_at = $3"
	}

	conditions := []string{"reference = $4", "status = 'pending'"}
	argIdx := 5
	if p.SubjectID != nil {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", argIdx))
		args = append(args, *p.SubjectID)
		argIdx++
	}
	if p.MerchantID != nil {
		conditions = append(conditions, fmt.Sprintf("merchant_id = $%d", argIdx))
		args = append(args, *p.MerchantID)
		argIdx++
	}
	if p.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *p.Type)
	}

	query := fmt.Sprintf(`UPDATE merchant_transactions SET %s WHERE %s RETURNING %s`,
		set, strings.Join(conditions, " AND "), merchantTxColumns)

	return scanMerchantTx(tx.QueryRow(ctx, query, args...), "resolve merchant transaction")
}

// ListPending returns pending rows for a student or a merchant, oldest first.
func (r *MerchantTxRepo) ListPending(ctx context.Context, f ports.PendingFilter) ([]domain.MerchantTransaction, error) {
	conditions := []string{"status = 'pending'"}
	var args []any
	argIdx := 1
	if f.SubjectID != nil {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", argIdx))
		args = append(args, *f.SubjectID)
		argIdx++
	}
	if f.MerchantID != nil {
		conditions = append(conditions, fmt.Sprintf("merchant_id = $%d", argIdx))
		args = append(args, *f.MerchantID)
	}

	query := fmt.Sprintf(`SELECT %s FROM merchant_transactions WHERE %s ORDER BY created_at ASC`,
		merchantTxColumns, strings.Join(conditions, " AND "))
	return r.query(ctx, "list pending merchant transactions", query, args...)
}

// ListStalePending returns pending rows created before olderThan.
func (r *MerchantTxRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.MerchantTransaction, error) {
	query := `SELECT ` + merchantTxColumns + ` FROM merchant_transactions
		WHERE status = 'pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2`
	return r.query(ctx, "list stale merchant transactions", query, olderThan, limit)
}

func (r *MerchantTxRepo) query(ctx context.Context, op, query string, args ...any) ([]domain.MerchantTransaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	var out []domain.MerchantTransaction
	for rows.Next() {
		m, err := scanMerchantTx(rows, op)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

func scanMerchantTx(row pgx.Row, op string) (*domain.MerchantTransaction, error) {
	m := &domain.MerchantTransaction{}
	err := row.Scan(
		&m.ID, &m.Reference, &m.SubjectID, &m.MerchantID, &m.Type, &m.Amount, &m.Fee, &m.Status,
		&m.InitiatedBy, &m.ResolvedBy, &m.CreatedAt, &m.CompletedAt, &m.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}
	return m, nil
}
